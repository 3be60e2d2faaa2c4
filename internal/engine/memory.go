// Package engine provides a minimal in-process runtime.Engine: an
// account-balance and nonce ledger exercising every deposit the producer
// loop seals, in the same mutex-guarded map style the core ledger keeps
// its balances and nonces. It does not execute EVM bytecode — a
// production deployment of this node points the producer loop at a real
// execution client over the same runtime.Engine contract instead.
package engine

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/novo-network/biterc/internal/domain"
	"github.com/novo-network/biterc/internal/runtime"
)

// Account is one address's tracked balance and nonce.
type Account struct {
	Balance *big.Int
	Nonce   uint64
}

// MemoryEngine is a reference runtime.Engine: it credits Mint to From,
// assigns nonces sequentially, and seals one header per ProduceBlock
// call. Contract calls/creates (non-empty Data) are neither executed nor
// recorded; Data is ignored.
type MemoryEngine struct {
	mu       sync.RWMutex
	accounts map[common.Address]*Account
	chainID  uint32
	head     runtime.BlockHeader
}

// NewMemoryEngine builds an engine starting at the given chain id and an
// empty genesis header.
func NewMemoryEngine(chainID uint32) *MemoryEngine {
	return &MemoryEngine{
		accounts: make(map[common.Address]*Account),
		chainID:  chainID,
		head:     runtime.BlockHeader{Number: 0},
	}
}

// SpawnJSONRPCServer is a no-op: this reference engine exposes no
// standard Ethereum JSON-RPC surface of its own.
func (e *MemoryEngine) SpawnJSONRPCServer(context.Context, string) error { return nil }

// CheckSignedTx rejects a deposit only when it would need funds the
// account does not have and is not minting; every other deposit shape is
// accepted, since this engine cannot evaluate bytecode-level reverts.
func (e *MemoryEngine) CheckSignedTx(tx *domain.SignedTransaction) error {
	if tx.Deposit.Value == nil {
		return fmt.Errorf("engine: nil value")
	}
	if tx.Deposit.Mint != nil {
		return nil
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	acct := e.accounts[tx.Deposit.From]
	if acct == nil || acct.Balance.Cmp(tx.Deposit.Value) < 0 {
		return fmt.Errorf("engine: %s has insufficient balance for a non-minting deposit", tx.Deposit.From)
	}
	return nil
}

// GenerateBlockProducer opens the single in-progress block this engine
// ever holds: it has no mempool, so ProduceBlock both executes and seals
// in one call.
func (e *MemoryEngine) GenerateBlockProducer(_ context.Context, timestamp uint64) (runtime.BlockProducer, error) {
	return &memoryBlockProducer{engine: e, timestamp: timestamp}, nil
}

// GetLatestBlockHeader returns the current head.
func (e *MemoryEngine) GetLatestBlockHeader(context.Context) (*runtime.BlockHeader, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	h := e.head
	return &h, nil
}

// GetNonce returns addr's next nonce, zero for an account never seen.
func (e *MemoryEngine) GetNonce(_ context.Context, addr common.Address) (uint64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if acct := e.accounts[addr]; acct != nil {
		return acct.Nonce, nil
	}
	return 0, nil
}

// SetChainID rotates the engine's active chain id.
func (e *MemoryEngine) SetChainID(_ context.Context, chainID uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.chainID = chainID
	return nil
}

// EstimateDepositGas implements runtime.GasEstimator with a flat cost
// plus a per-byte calldata charge, mirroring the shape of the standard
// Ethereum intrinsic-gas formula without requiring a real EVM.
func (e *MemoryEngine) EstimateDepositGas(_ context.Context, tx domain.DepositTransaction) (uint64, error) {
	const baseGas = 21_000
	const perByteGas = 16
	return baseGas + uint64(len(tx.Data))*perByteGas, nil
}

func (e *MemoryEngine) account(addr common.Address) *Account {
	acct := e.accounts[addr]
	if acct == nil {
		acct = &Account{Balance: new(big.Int)}
		e.accounts[addr] = acct
	}
	return acct
}

type memoryBlockProducer struct {
	engine    *MemoryEngine
	timestamp uint64
}

// ProduceBlock credits every deposit's mint to its sender (Value is not
// moved between accounts), bumps each sender's nonce, and advances the
// header chain by one.
func (p *memoryBlockProducer) ProduceBlock(_ context.Context, txs []*domain.SignedTransaction) (*runtime.BlockHeader, error) {
	e := p.engine
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, tx := range txs {
		acct := e.account(tx.Deposit.From)
		if tx.Nonce != acct.Nonce {
			return nil, fmt.Errorf("engine: tx for %s carries stale nonce %d, expected %d", tx.Deposit.From, tx.Nonce, acct.Nonce)
		}
		if tx.Deposit.Mint != nil {
			acct.Balance.Add(acct.Balance, tx.Deposit.Mint)
		}
		acct.Nonce++
	}

	e.head = runtime.BlockHeader{
		Number:     e.head.Number + 1,
		ParentHash: e.head.Hash,
		Hash:       syntheticHash(e.head.Number+1, p.timestamp),
		Timestamp:  p.timestamp,
	}
	return &e.head, nil
}

func syntheticHash(number uint64, timestamp uint64) common.Hash {
	var h common.Hash
	big.NewInt(0).SetUint64(number ^ timestamp).FillBytes(h[:])
	return h
}
