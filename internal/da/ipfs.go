package da

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	cidpkg "github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
)

// IPFSConfig configures the IPFS DA backend.
type IPFSConfig struct {
	Gateway string
	Timeout time.Duration
}

// IPFSBackend pins payloads to an IPFS gateway and resolves CIDs back to
// bytes. Locator body is the binary multihash of the CIDv1 computed over
// the payload — grounded directly on the teacher's Storage.Pin
// (core/storage.go), which computes the same CIDv1-over-SHA2-256 locally
// before talking to the gateway.
type IPFSBackend struct {
	gateway string
	client  *http.Client
}

// NewIPFSBackend validates cfg and returns a ready IPFSBackend.
func NewIPFSBackend(cfg IPFSConfig) (*IPFSBackend, error) {
	if cfg.Gateway == "" {
		return nil, fmt.Errorf("da: ipfs backend: gateway required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &IPFSBackend{gateway: cfg.Gateway, client: &http.Client{Timeout: timeout}}, nil
}

// TypeTag implements Backend.
func (b *IPFSBackend) TypeTag() uint8 { return TypeIPFS }

// PutFull pins payload recursively via the gateway's /api/v0/add?pin=true
// endpoint and returns the binary multihash of the resulting CID.
func (b *IPFSBackend) PutFull(ctx context.Context, payload []byte) ([]byte, error) {
	encodedMH, err := mh.Sum(payload, mh.SHA2_256, -1)
	if err != nil {
		return nil, fmt.Errorf("da: ipfs multihash: %w", err)
	}
	c := cidpkg.NewCidV1(cidpkg.Raw, encodedMH)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.gateway+"/api/v0/add?pin=true", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("da: ipfs gateway pin: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("da: ipfs gateway pin %d: %s", resp.StatusCode, string(body))
	}
	return []byte(c.Hash()), nil
}

// Get concatenates the chunk stream the gateway returns for the CID
// rebuilt from locatorBody.
func (b *IPFSBackend) Get(ctx context.Context, locatorBody []byte) ([]byte, error) {
	if _, err := mh.Cast(locatorBody); err != nil {
		return nil, fmt.Errorf("da: ipfs locator decode: %w", err)
	}
	c := cidpkg.NewCidV1(cidpkg.Raw, mh.Multihash(locatorBody))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.gateway+"/ipfs/"+c.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("da: ipfs gateway get: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("da: ipfs gateway get %d: %s", resp.StatusCode, string(body))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("da: ipfs gateway read: %w", err)
	}
	return data, nil
}
