// Package evmtx builds the canonical deposit-style EVM transaction from
// a caller's (from, value, to, data) intent, the shape the submission
// CLI hands to the DA layer ahead of anchoring.
package evmtx

import (
	"context"
	crand "crypto/rand"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/novo-network/biterc/internal/domain"
	"github.com/novo-network/biterc/internal/runtime"
)

// BuildDepositTx estimates gas against the L2 runtime and returns a
// SignedTransaction ready to be RLP-encoded and stored via the DA
// manager. The source_hash carried here is a random placeholder: it
// only affects the estimator's local accounting and is always
// overwritten with the anchoring transaction's actual txid once the
// deposit is derived back off L1.
func BuildDepositTx(ctx context.Context, estimator runtime.GasEstimator, chainID uint32, from common.Address, to *common.Address, value *big.Int, data []byte) (*domain.SignedTransaction, error) {
	if value == nil {
		value = big.NewInt(0)
	}

	placeholder, err := randomSourceHash()
	if err != nil {
		return nil, fmt.Errorf("evmtx: source hash placeholder: %w", err)
	}

	dep := domain.DepositTransaction{
		SourceHash:          placeholder,
		From:                from,
		To:                  to,
		Value:               value,
		IsSystemTransaction: false,
		Data:                data,
	}
	if value.Sign() != 0 {
		dep.Mint = new(big.Int).Set(value)
	}

	gasLimit, err := estimator.EstimateDepositGas(ctx, dep)
	if err != nil {
		return nil, fmt.Errorf("evmtx: estimate gas: %w", err)
	}
	dep.GasLimit = gasLimit

	return &domain.SignedTransaction{ChainID: chainID, Deposit: dep}, nil
}

func randomSourceHash() (common.Hash, error) {
	var h common.Hash
	if _, err := crand.Read(h[:]); err != nil {
		return common.Hash{}, err
	}
	return h, nil
}
