// Package derive turns a stream of Bitcoin blocks into the ordered
// DerivedItem lists the L2 producer loop applies: it scans each block's
// transactions for well-formed commitment outputs, validates them against
// the active chain id and DA registry, pays the DA layer to resolve the
// payload, and reconstructs either a deposit transaction or a
// chain-configuration update.
package derive

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/sirupsen/logrus"

	"github.com/novo-network/biterc/internal/btctx"
	"github.com/novo-network/biterc/internal/da"
	"github.com/novo-network/biterc/internal/domain"
)

// Fetcher walks the Bitcoin chain one height at a time, decoding
// commitment outputs into DerivedItems. It is not safe for concurrent
// use: the producer loop drives it from a single goroutine.
type Fetcher struct {
	btc     btctx.BitcoinClient
	builder *btctx.Builder
	da      *da.Manager

	feeAddress btcutil.Address
	daFeeSats  btcutil.Amount
	chainID    uint32

	height uint64
	// expectedParent is the hash of the last block this Fetcher
	// processed. nil only before the first FetchOne call. Checked
	// against the next block's header to resolve the REDESIGN FLAG:
	// unhandled reorgs abort the process instead of silently
	// re-deriving from a stale fork.
	expectedParent *chainhash.Hash

	log *logrus.Logger
}

// NewFetcher builds a Fetcher starting at startHeight. If startHeight is
// not the chain's genesis, it reconstructs expectedParent from the block
// already on disk at startHeight-1 so the first FetchOne call still
// performs the continuity check.
func NewFetcher(
	btc btctx.BitcoinClient,
	builder *btctx.Builder,
	daMgr *da.Manager,
	feeAddress btcutil.Address,
	daFeeSats btcutil.Amount,
	startHeight uint64,
	chainID uint32,
	log *logrus.Logger,
) (*Fetcher, error) {
	tip, err := btc.GetBlockCount()
	if err != nil {
		return nil, fmt.Errorf("%w: get block count: %v", ErrL1Unreachable, err)
	}
	if startHeight > uint64(tip)+1 {
		return nil, ErrStartHeightBeyondTip
	}

	f := &Fetcher{
		btc:        btc,
		builder:    builder,
		da:         daMgr,
		feeAddress: feeAddress,
		daFeeSats:  daFeeSats,
		chainID:    chainID,
		height:     startHeight,
		log:        log,
	}

	if startHeight > 0 {
		prevHash, err := btc.GetBlockHash(int64(startHeight - 1))
		if err != nil {
			return nil, fmt.Errorf("%w: get parent block hash: %v", ErrL1Unreachable, err)
		}
		f.expectedParent = prevHash
	}
	return f, nil
}

// Height reports the next L1 height FetchOne will attempt.
func (f *Fetcher) Height() uint64 { return f.height }

// ChainID reports the chain id new deposit records are checked against.
func (f *Fetcher) ChainID() uint32 { return f.chainID }

// SetChainID rotates the active chain id in response to an applied
// Config item. Takes effect for every record decoded afterward. decodeTx
// already rotates the id itself as soon as it decodes a Config item, so
// later outputs of the same L1 block are checked against the new id; the
// producer loop's call when it applies the item sets the same value.
func (f *Fetcher) SetChainID(id uint32) { f.chainID = id }

// FetchOne advances by exactly one L1 block and returns its derived
// items, or (nil, nil) if height is already past the chain tip. A non-nil
// error is either transient (ErrL1Unreachable, ErrDABackendUnreachable)
// or fatal (ErrL1ReorgDetected); the caller dispatches on errors.Is.
func (f *Fetcher) FetchOne(ctx context.Context) (*domain.Block, error) {
	tip, err := f.btc.GetBlockCount()
	if err != nil {
		return nil, fmt.Errorf("%w: get block count: %v", ErrL1Unreachable, err)
	}
	if f.height > uint64(tip) {
		return nil, nil
	}

	hash, err := f.btc.GetBlockHash(int64(f.height))
	if err != nil {
		return nil, fmt.Errorf("%w: get block hash at %d: %v", ErrL1Unreachable, f.height, err)
	}
	block, err := f.btc.GetBlock(hash)
	if err != nil {
		return nil, fmt.Errorf("%w: get block %s: %v", ErrL1Unreachable, hash, err)
	}

	if f.expectedParent != nil && block.Header.PrevBlock != *f.expectedParent {
		return nil, fmt.Errorf("%w: height %d wants parent %s, block has %s",
			ErrL1ReorgDetected, f.height, f.expectedParent, block.Header.PrevBlock)
	}

	var items []domain.DerivedItem
	for _, tx := range block.Transactions {
		txItems, err := f.decodeTx(ctx, tx)
		if err != nil {
			return nil, err
		}
		items = append(items, txItems...)
	}

	f.expectedParent = hash
	f.height++

	return &domain.Block{Time: uint64(block.Header.Timestamp.Unix()), Items: items}, nil
}

// BootstrapFirstConfig advances the fetcher until it observes a block
// carrying at least one Config item, returning that item and the height
// it was found at. A node's first boot has no prior chain id to validate
// deposit records against, so it must discover the genesis configuration
// this way before entering the steady-state producer loop.
func (f *Fetcher) BootstrapFirstConfig(ctx context.Context) (*domain.ChainConfig, uint64, error) {
	for {
		block, err := f.FetchOne(ctx)
		if err != nil {
			return nil, 0, err
		}
		if block == nil {
			return nil, 0, fmt.Errorf("derive: reached chain tip before observing a chain configuration")
		}
		for _, item := range block.Items {
			if item.Kind == domain.ItemKindConfig {
				return item.Config, f.height - 1, nil
			}
		}
	}
}
