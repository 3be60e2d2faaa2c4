// Package domain holds the value types shared by every component of the
// derivation pipeline: the commitment codec, the DA layer, the fetcher and
// the producer loop all operate on these same structs rather than each
// declaring their own.
package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ItemKind distinguishes the two shapes a derived item can take.
type ItemKind uint8

const (
	// ItemKindTransaction marks a derived deposit transaction.
	ItemKindTransaction ItemKind = iota
	// ItemKindConfig marks a derived chain-configuration update.
	ItemKindConfig
)

// DepositTransaction is the canonical deposit-style EVM transaction: its
// authority comes from an L1 output, never from a signature. Mirrors the
// OP-stack deposit transaction shape (source hash, from, mint, system-tx
// flag) since that is the natural Go analogue of a deposit tx.
type DepositTransaction struct {
	SourceHash          common.Hash     `json:"source_hash"`
	From                 common.Address  `json:"from"`
	To                   *common.Address `json:"to,omitempty" rlp:"nil"`
	Mint                 *big.Int        `json:"mint,omitempty" rlp:"nil"`
	Value                *big.Int        `json:"value"`
	GasLimit             uint64          `json:"gas_limit"`
	IsSystemTransaction  bool            `json:"is_system_tx"`
	Data                 []byte          `json:"data"`
}

// IsCreate reports whether the deposit transaction creates a contract
// rather than calling one.
func (d *DepositTransaction) IsCreate() bool { return d.To == nil }

// SignedTransaction wraps a DepositTransaction with the fields the producer
// loop owns authoritatively: nonce (assigned at block-production time, not
// trusted from L1) and the L2 chain id it was derived under.
type SignedTransaction struct {
	ChainID uint32             `json:"chain_id"`
	Nonce   uint64             `json:"nonce"`
	Deposit DepositTransaction `json:"deposit"`
}

// Account is a single account entry inside a ChainConfig snapshot.
type Account struct {
	Balance *big.Int               `json:"balance,omitempty"`
	Nonce   *uint64                `json:"nonce,omitempty"`
	Code    []byte                 `json:"code,omitempty"`
	Storage map[common.Hash]common.Hash `json:"storage,omitempty"`
}

// ChainConfig is a chain-configuration update item. A Config item rotates
// the fetcher's active chain id and is applied to the EVM runtime without
// producing an EVM transaction.
type ChainConfig struct {
	ChainID  uint32                     `json:"chain_id"`
	BinHash  common.Hash                `json:"bin_hash"`
	Accounts map[common.Address]Account `json:"accounts"`
}

// DerivedItem is the sum type emitted by the fetcher for each decoded L1
// output: either a chain-config update or a deposit transaction. Exactly
// one of Config/Transaction is populated, selected by Kind.
type DerivedItem struct {
	Kind        ItemKind
	Config      *ChainConfig
	Transaction *SignedTransaction
}

// Block is the per-L1-height result the fetcher hands to the producer
// loop: the L1 block time and the ordered item list decoded from it.
// An empty Items slice is valid — informational L1 blocks carry no
// L2-relevant commitments.
type Block struct {
	Time  uint64
	Items []DerivedItem
}
