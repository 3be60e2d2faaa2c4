// Package runtime declares the interfaces the derivation pipeline drives
// but never implements: the EVM execution engine and its standard
// Ethereum JSON-RPC surface. Both are external collaborators per the
// system's scope — production wires a real engine in; tests wire in a
// fake that satisfies the same contract.
package runtime

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/novo-network/biterc/internal/domain"
)

// BlockHeader is the subset of the EVM runtime's block header the
// derivation pipeline needs to reason about restart idempotence.
type BlockHeader struct {
	Number    uint64
	Hash      common.Hash
	ParentHash common.Hash
	Timestamp uint64
}

// BlockProducer is the handle returned by Engine.GenerateBlockProducer for
// a single in-progress L2 block. The producer loop feeds it transactions
// in derivation order and seals it once per L1 block.
type BlockProducer interface {
	// ProduceBlock executes and seals the block with the given ordered
	// transaction list (possibly empty) and returns the resulting header.
	ProduceBlock(ctx context.Context, txs []*domain.SignedTransaction) (*BlockHeader, error)
}

// Engine is the local EVM execution engine: block storage, state
// transition and the standard Ethereum JSON-RPC surface. It is owned
// exclusively by the producer loop.
type Engine interface {
	// SpawnJSONRPCServer starts the engine's own Ethereum JSON-RPC
	// listener (eth_*, net_*, ...). It runs for the engine's lifetime.
	SpawnJSONRPCServer(ctx context.Context, listenAddr string) error

	// CheckSignedTx validates a deposit transaction against current
	// state before it is handed to a block producer.
	CheckSignedTx(tx *domain.SignedTransaction) error

	// GenerateBlockProducer opens a new block at the current tip with
	// the given L1-derived timestamp.
	GenerateBlockProducer(ctx context.Context, timestamp uint64) (BlockProducer, error)

	// GetLatestBlockHeader returns the current L2 chain tip.
	GetLatestBlockHeader(ctx context.Context) (*BlockHeader, error)

	// GetNonce returns the authoritative next nonce for addr. The
	// producer loop calls this at block-production time and overwrites
	// any nonce carried on a derived deposit transaction.
	GetNonce(ctx context.Context, addr common.Address) (uint64, error)

	// SetChainID rotates the runtime's active chain id in response to a
	// derived Config item. Takes effect for every subsequent item
	// applied within the same L1 block, since the call is synchronous.
	SetChainID(ctx context.Context, chainID uint32) error
}

// GasEstimator is the standard Ethereum JSON-RPC surface as consumed by a
// remote client (the transaction-building CLI), as opposed to Engine
// which is the in-process contract the producer loop drives directly.
type GasEstimator interface {
	EstimateDepositGas(ctx context.Context, tx domain.DepositTransaction) (uint64, error)
}
