package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/novo-network/biterc/internal/config"
	"github.com/novo-network/biterc/internal/da"
)

// buildDAManager constructs every configured backend and wires them into
// a single manager defaulting to cfg.DefaultDA, mirroring gen-config's
// one-section-per-backend TOML layout.
func buildDAManager(ctx context.Context, cfg *config.Config) (*da.Manager, error) {
	var backends []da.Backend
	var defaultTag uint8

	if cfg.File != nil {
		b, err := da.NewFileBackend(da.FileConfig{Path: cfg.File.Path})
		if err != nil {
			return nil, fmt.Errorf("file backend: %w", err)
		}
		backends = append(backends, b)
		if cfg.DefaultDA == "file" {
			defaultTag = b.TypeTag()
		}
	}
	if cfg.IPFS != nil {
		b, err := da.NewIPFSBackend(da.IPFSConfig{Gateway: cfg.IPFS.Gateway, Timeout: time.Duration(cfg.IPFS.TimeoutSec) * time.Second})
		if err != nil {
			return nil, fmt.Errorf("ipfs backend: %w", err)
		}
		backends = append(backends, b)
		if cfg.DefaultDA == "ipfs" {
			defaultTag = b.TypeTag()
		}
	}
	if cfg.Celestia != nil {
		ns, err := hex.DecodeString(cfg.Celestia.NamespaceID)
		if err != nil {
			return nil, fmt.Errorf("celestia namespace_id: %w", err)
		}
		b, err := da.NewCelestiaBackend(ctx, da.CelestiaConfig{URL: cfg.Celestia.URL, Token: cfg.Celestia.Token, NamespaceID: ns})
		if err != nil {
			return nil, fmt.Errorf("celestia backend: %w", err)
		}
		backends = append(backends, b)
		if cfg.DefaultDA == "celestia" {
			defaultTag = b.TypeTag()
		}
	}
	if cfg.Greenfield != nil {
		b, err := da.NewGreenfieldBackend(da.GreenfieldConfig{
			RPCAddr:      cfg.Greenfield.RPCAddr,
			ChainID:      cfg.Greenfield.ChainID,
			Bucket:       cfg.Greenfield.Bucket,
			PasswordFile: cfg.Greenfield.PasswordFile,
			CLIPath:      cfg.Greenfield.CLIPath,
		})
		if err != nil {
			return nil, fmt.Errorf("greenfield backend: %w", err)
		}
		backends = append(backends, b)
		if cfg.DefaultDA == "greenfield" {
			defaultTag = b.TypeTag()
		}
	}

	return da.NewManager(defaultTag, backends...)
}
