package da

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/crypto"
)

// FileConfig configures the file DA backend.
type FileConfig struct {
	Path string
}

// FileBackend stores payloads as hex text on the local filesystem, keyed
// by their Keccak-256 hash. Grounded on the teacher's diskLRU
// (core/storage.go put/get-by-content-hash), adapted from an evicting
// cache into a durable, non-evicting content store — every write here is
// permanent, unlike the teacher's bounded LRU.
type FileBackend struct {
	dir string
}

// NewFileBackend validates cfg and returns a ready FileBackend. A backend
// whose configuration is absent must never be constructed — callers only
// invoke this when FileConfig is present in the process config.
func NewFileBackend(cfg FileConfig) (*FileBackend, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("da: file backend: path required")
	}
	if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
		return nil, fmt.Errorf("da: file backend: %w", err)
	}
	return &FileBackend{dir: cfg.Path}, nil
}

// TypeTag implements Backend.
func (f *FileBackend) TypeTag() uint8 { return TypeFile }

// PutFull writes payload under {path}/{hex(keccak256(payload))},
// idempotently.
func (f *FileBackend) PutFull(_ context.Context, payload []byte) ([]byte, error) {
	hash := crypto.Keccak256(payload)
	p := f.pathFor(hash)
	if _, err := os.Stat(p); err == nil {
		return hash, nil
	}
	if err := os.WriteFile(p, []byte(hex.EncodeToString(payload)), 0o644); err != nil {
		return nil, fmt.Errorf("da: file backend write: %w", err)
	}
	return hash, nil
}

// Get reads the payload back and decodes the hex text it was stored as.
func (f *FileBackend) Get(_ context.Context, locatorBody []byte) ([]byte, error) {
	p := f.pathFor(locatorBody)
	raw, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("da: file backend read: %w", err)
	}
	payload, err := hex.DecodeString(string(raw))
	if err != nil {
		return nil, fmt.Errorf("da: file backend decode: %w", err)
	}
	return payload, nil
}

func (f *FileBackend) pathFor(hash []byte) string {
	return filepath.Join(f.dir, hex.EncodeToString(hash))
}
