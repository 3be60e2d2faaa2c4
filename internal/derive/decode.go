package derive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/novo-network/biterc/internal/btctx"
	"github.com/novo-network/biterc/internal/commitment"
	"github.com/novo-network/biterc/internal/domain"
)

// depositTxTypePrefix is the leading byte every DA-resolved deposit
// payload must carry before its RLP-encoded DepositTransaction body.
const depositTxTypePrefix = 0x7e

// decodeTx applies the economic gate, derives the sender address, and
// decodes every output of tx into at most one DerivedItem each. A tx
// that fails the economic gate yields no items at all; it is not an
// error, just an anchoring transaction that never paid for its DA fee.
func (f *Fetcher) decodeTx(ctx context.Context, tx *wire.MsgTx) ([]domain.DerivedItem, error) {
	if len(tx.TxIn) == 0 || isCoinbase(tx) {
		return nil, nil
	}

	feeSurplus, ok, err := f.verifyTransaction(tx)
	if err != nil {
		return nil, fmt.Errorf("%w: verify tx %s: %v", ErrL1Unreachable, tx.TxHash(), err)
	}
	if !ok {
		return nil, nil
	}

	first := tx.TxIn[0].PreviousOutPoint
	sender, err := f.builder.GetEthFromAddress(ctx, &first.Hash, first.Index)
	if err != nil {
		return nil, fmt.Errorf("%w: derive sender for tx %s: %v", ErrL1Unreachable, tx.TxHash(), err)
	}

	txid := tx.TxHash()
	srcHash := common.Hash(txid)
	var items []domain.DerivedItem
	for i, out := range tx.TxOut {
		item, err := f.decodeOutput(ctx, out.PkScript, srcHash, sender)
		if err != nil {
			if errors.Is(err, ErrDABackendUnreachable) {
				return nil, err
			}
			if f.log != nil {
				f.log.WithError(err).WithField("txid", txid).WithField("vout", i).Debug("skipping unresolvable commitment output")
			}
			continue
		}
		if item == nil {
			continue
		}
		if item.Kind == domain.ItemKindTransaction {
			gasSat := item.Transaction.Deposit.GasLimit / btctx.SAT2WEI
			if uint64(feeSurplus) < gasSat {
				continue
			}
		}
		if item.Kind == domain.ItemKindConfig {
			// A config update governs every later output of this L1
			// block, so rotate the chain id before decoding them.
			f.chainID = item.Config.ChainID
		}
		items = append(items, *item)
	}
	return items, nil
}

// verifyTransaction implements the economic gate: a transaction must pay
// at least the configured DA fee to the fee address, and its input total
// must exceed its output total. The surplus (in satoshis) is the L2 gas
// budget every deposit item decoded from this transaction draws against.
func (f *Fetcher) verifyTransaction(tx *wire.MsgTx) (btcutil.Amount, bool, error) {
	feeScript, err := txscript.PayToAddrScript(f.feeAddress)
	if err != nil {
		return 0, false, fmt.Errorf("derive: fee address script: %w", err)
	}

	var sumIn btcutil.Amount
	for _, in := range tx.TxIn {
		prevTx, err := f.btc.GetRawTransaction(&in.PreviousOutPoint.Hash)
		if err != nil {
			return 0, false, fmt.Errorf("lookup prev tx %s: %w", in.PreviousOutPoint.Hash, err)
		}
		outs := prevTx.MsgTx().TxOut
		if int(in.PreviousOutPoint.Index) >= len(outs) {
			return 0, false, fmt.Errorf("prevout %s:%d out of range", in.PreviousOutPoint.Hash, in.PreviousOutPoint.Index)
		}
		sumIn += btcutil.Amount(outs[in.PreviousOutPoint.Index].Value)
	}

	var sumOut btcutil.Amount
	paidDaFee := false
	for _, out := range tx.TxOut {
		sumOut += btcutil.Amount(out.Value)
		if bytes.Equal(out.PkScript, feeScript) && btcutil.Amount(out.Value) >= f.daFeeSats {
			paidDaFee = true
		}
	}
	if !paidDaFee {
		return 0, false, nil
	}
	if sumIn <= sumOut {
		return 0, false, nil
	}
	return sumIn - sumOut, true, nil
}

// decodeOutput is the per-output decode path spec §4.5 describes:
// commitment shape check, record decode/check against the fetcher's
// current chain id, DA resolve, then deposit or config decode. Only
// decodeTx calls it. Returns (nil, nil) for a scriptPubKey
// that is not shaped like a commitment at all — that is not an error,
// just an ordinary payment output.
func (f *Fetcher) decodeOutput(ctx context.Context, script []byte, srcHash common.Hash, sender common.Address) (*domain.DerivedItem, error) {
	raw, ok := commitment.ExtractRecordBytes(script)
	if !ok {
		return nil, nil
	}
	rec, err := commitment.Decode(raw)
	if err != nil {
		return nil, err
	}
	if err := commitment.Check(rec, f.chainID, f.da.Types()); err != nil {
		return nil, err
	}

	payload, err := f.da.Get(ctx, rec.DALocator())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDABackendUnreachable, err)
	}

	switch rec.TxType {
	case commitment.TxTypeConfig:
		var cfg domain.ChainConfig
		if err := json.Unmarshal(payload, &cfg); err != nil {
			return nil, fmt.Errorf("derive: decode config payload: %w", err)
		}
		return &domain.DerivedItem{Kind: domain.ItemKindConfig, Config: &cfg}, nil

	case commitment.TxTypeDeposit:
		if len(payload) == 0 || payload[0] != depositTxTypePrefix {
			return nil, fmt.Errorf("derive: deposit payload missing 0x%x type prefix", depositTxTypePrefix)
		}
		var dep domain.DepositTransaction
		if err := rlp.DecodeBytes(payload[1:], &dep); err != nil {
			return nil, fmt.Errorf("derive: decode deposit payload: %w", err)
		}
		dep.From = sender
		dep.SourceHash = srcHash
		return &domain.DerivedItem{
			Kind: domain.ItemKindTransaction,
			Transaction: &domain.SignedTransaction{
				ChainID: rec.ChainID,
				Deposit: dep,
			},
		}, nil

	default:
		return nil, fmt.Errorf("derive: unreachable tx type %d", rec.TxType)
	}
}

// isCoinbase reports whether tx's first input is the coinbase sentinel
// (a previous outpoint with an all-zero hash). Coinbase transactions
// carry no real UTXO to derive a sender from, so they never yield items.
func isCoinbase(tx *wire.MsgTx) bool {
	return tx.TxIn[0].PreviousOutPoint.Hash == (chainhash.Hash{})
}
