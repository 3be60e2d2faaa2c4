package da

import (
	"context"
	"encoding/binary"
	"fmt"

	openrpc "github.com/celestiaorg/celestia-openrpc"
	"github.com/celestiaorg/celestia-openrpc/types/blob"
	"github.com/celestiaorg/celestia-openrpc/types/share"
)

// CelestiaConfig configures the Celestia DA backend.
type CelestiaConfig struct {
	URL         string
	Token       string
	NamespaceID []byte
}

// CelestiaBackend submits payloads as blobs under a fixed namespace to a
// Celestia light/bridge node and re-validates fetched blobs against their
// commitment. Locator body is commitment(32) ‖ height(8, BE).
type CelestiaBackend struct {
	client    *openrpc.Client
	namespace share.Namespace
}

// NewCelestiaBackend dials the Celestia node's JSON-RPC endpoint and
// derives the fixed namespace the backend submits blobs under.
func NewCelestiaBackend(ctx context.Context, cfg CelestiaConfig) (*CelestiaBackend, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("da: celestia backend: url required")
	}
	if len(cfg.NamespaceID) == 0 {
		return nil, fmt.Errorf("da: celestia backend: namespace id required")
	}
	client, err := openrpc.NewClient(ctx, cfg.URL, cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("da: celestia dial: %w", err)
	}
	ns, err := share.NewBlobNamespaceV0(cfg.NamespaceID)
	if err != nil {
		return nil, fmt.Errorf("da: celestia namespace: %w", err)
	}
	return &CelestiaBackend{client: client, namespace: ns}, nil
}

// TypeTag implements Backend.
func (c *CelestiaBackend) TypeTag() uint8 { return TypeCelestia }

// PutFull submits payload as a blob under the fixed namespace and encodes
// the resulting commitment and inclusion height into the locator body.
func (c *CelestiaBackend) PutFull(ctx context.Context, payload []byte) ([]byte, error) {
	b, err := blob.NewBlobV0(c.namespace, payload)
	if err != nil {
		return nil, fmt.Errorf("da: celestia blob: %w", err)
	}
	height, err := c.client.Blob.Submit(ctx, []*blob.Blob{b}, nil)
	if err != nil {
		return nil, fmt.Errorf("da: celestia submit: %w", err)
	}

	locator := make([]byte, 40)
	copy(locator[0:32], b.Commitment)
	binary.BigEndian.PutUint64(locator[32:40], height)
	return locator, nil
}

// Get fetches the blob at the encoded height and re-validates it against
// its commitment before returning the payload.
func (c *CelestiaBackend) Get(ctx context.Context, locatorBody []byte) ([]byte, error) {
	if len(locatorBody) != 40 {
		return nil, fmt.Errorf("da: celestia locator: want 40 bytes, got %d", len(locatorBody))
	}
	commitment := locatorBody[0:32]
	height := binary.BigEndian.Uint64(locatorBody[32:40])

	got, err := c.client.Blob.Get(ctx, height, c.namespace, commitment)
	if err != nil {
		return nil, fmt.Errorf("da: celestia get: %w", err)
	}
	ok, err := c.client.Blob.Included(ctx, height, c.namespace, nil, commitment)
	if err != nil {
		return nil, fmt.Errorf("da: celestia inclusion check: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("da: celestia blob failed inclusion check at height %d", height)
	}
	return got.Data, nil
}
