package producer

import (
	"context"
	"fmt"

	"github.com/novo-network/biterc/internal/derive"
	"github.com/novo-network/biterc/internal/runtime"
)

// Bootstrap implements the one-time fresh-datadir scan: it drives
// fetcher forward until the first Config item appears, applies it to
// engine, and persists both the chain-config snapshot and the resulting
// height cursor so a restart never repeats the scan.
func Bootstrap(ctx context.Context, fetcher *derive.Fetcher, engine runtime.Engine, store *Store) (uint32, error) {
	cfg, height, err := fetcher.BootstrapFirstConfig(ctx)
	if err != nil {
		return 0, fmt.Errorf("producer: bootstrap scan: %w", err)
	}
	fetcher.SetChainID(cfg.ChainID)
	if err := engine.SetChainID(ctx, cfg.ChainID); err != nil {
		return 0, fmt.Errorf("producer: bootstrap set chain id: %w", err)
	}
	if err := store.SaveChainConfig(cfg); err != nil {
		return 0, fmt.Errorf("producer: bootstrap persist chain config: %w", err)
	}
	if err := store.SaveHeight(height + 1); err != nil {
		return 0, fmt.Errorf("producer: bootstrap persist height: %w", err)
	}
	return cfg.ChainID, nil
}

// ComputeStartHeight implements spec §4.6's idempotent-restart formula:
// the boot height is the cursor persisted once at bootstrap plus
// however many L2 blocks the engine has sealed since (one per L1
// height consumed, whether or not it carried any items), so a restart
// neither re-scans an already-consumed L1 height nor skips one. The
// height file itself is never rewritten after bootstrap; the loop's
// progress lives in the EVM chain's own block count instead.
func ComputeStartHeight(ctx context.Context, store *Store, engine runtime.Engine) (uint64, error) {
	persisted, err := store.LoadHeight()
	if err != nil {
		return 0, err
	}
	head, err := engine.GetLatestBlockHeader(ctx)
	if err != nil {
		return 0, fmt.Errorf("producer: get latest block header: %w", err)
	}
	return persisted + head.Number, nil
}
