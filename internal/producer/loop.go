package producer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/novo-network/biterc/internal/derive"
	"github.com/novo-network/biterc/internal/domain"
	"github.com/novo-network/biterc/internal/runtime"
)

// defaultPollInterval is the backoff between an empty poll (no new L1
// block yet) and a transient fetch failure, per spec's fixed 1s retry.
const defaultPollInterval = time.Second

// fetcherSource is the subset of *derive.Fetcher the loop drives. A
// named interface here, rather than the concrete type, lets tests drive
// applyBlock without standing up a real Bitcoin client.
type fetcherSource interface {
	FetchOne(ctx context.Context) (*domain.Block, error)
	Height() uint64
	SetChainID(id uint32)
}

// Loop applies the fetcher's derived items to the EVM runtime, one L1
// block at a time. The height cursor file is written exactly once, at
// bootstrap; a restart recomputes the next L1 height to fetch from that
// fixed point plus the EVM chain's own block count, so the loop never
// rewrites it itself. It owns the Engine exclusively; nothing else in
// this process writes to the EVM runtime or the datadir's cursor files.
type Loop struct {
	fetcher      fetcherSource
	engine       runtime.Engine
	store        *Store
	pollInterval time.Duration
	log          *logrus.Logger
}

// NewLoop wires a producer Loop. A zero pollInterval defaults to 1s.
func NewLoop(fetcher *derive.Fetcher, engine runtime.Engine, store *Store, pollInterval time.Duration, log *logrus.Logger) *Loop {
	return newLoop(fetcher, engine, store, pollInterval, log)
}

func newLoop(fetcher fetcherSource, engine runtime.Engine, store *Store, pollInterval time.Duration, log *logrus.Logger) *Loop {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	if log == nil {
		log = logrus.New()
	}
	return &Loop{fetcher: fetcher, engine: engine, store: store, pollInterval: pollInterval, log: log}
}

// Run drives the loop until ctx is cancelled or a fatal error occurs. A
// reorg or an EVM produce failure is fatal: the persisted bootstrap
// height plus the EVM chain's block count is the sole source of truth
// for a restart, so this process simply stops rather than guessing how
// to recover.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		block, err := l.fetcher.FetchOne(ctx)
		if err != nil {
			if errors.Is(err, derive.ErrL1ReorgDetected) {
				return fmt.Errorf("producer: fatal: %w", err)
			}
			l.log.WithError(err).Warn("l1 poll failed, retrying")
			if err := sleep(ctx, l.pollInterval); err != nil {
				return err
			}
			continue
		}
		if block == nil {
			if err := sleep(ctx, l.pollInterval); err != nil {
				return err
			}
			continue
		}

		if err := l.applyBlock(ctx, block); err != nil {
			return fmt.Errorf("producer: fatal: apply block at height %d: %w", l.fetcher.Height()-1, err)
		}
	}
}

// applyBlock implements spec §4.6: open a producer at the current tip,
// walk items in derivation order rotating chain-config and assigning
// deposit nonces, then seal the block. The chain-config snapshot is
// persisted as each config item rotates in, but the height cursor is
// not touched here — ComputeStartHeight derives it from the sealed
// EVM chain's own block count on the next restart.
func (l *Loop) applyBlock(ctx context.Context, block *domain.Block) error {
	bp, err := l.engine.GenerateBlockProducer(ctx, block.Time)
	if err != nil {
		return fmt.Errorf("open block producer: %w", err)
	}

	var txs []*domain.SignedTransaction
	for _, item := range block.Items {
		if item.Kind == domain.ItemKindConfig {
			l.fetcher.SetChainID(item.Config.ChainID)
			if err := l.store.SaveChainConfig(item.Config); err != nil {
				return fmt.Errorf("persist chain config: %w", err)
			}
			if err := l.engine.SetChainID(ctx, item.Config.ChainID); err != nil {
				return fmt.Errorf("rotate runtime chain id: %w", err)
			}
			continue
		}

		tx := item.Transaction
		nonce, err := l.engine.GetNonce(ctx, tx.Deposit.From)
		if err != nil {
			return fmt.Errorf("get nonce for %s: %w", tx.Deposit.From, err)
		}
		tx.Nonce = nonce

		if err := l.engine.CheckSignedTx(tx); err != nil {
			l.log.WithError(err).WithField("from", tx.Deposit.From).Warn("dropping deposit that failed runtime validation")
			continue
		}
		txs = append(txs, tx)
	}

	if _, err := bp.ProduceBlock(ctx, txs); err != nil {
		return fmt.Errorf("produce block: %w", err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
