// Package btctx builds, fee-estimates and signs the P2WPKH Bitcoin
// transactions that anchor an L2 commitment in an OP_RETURN output plus a
// DA-fee payment output.
package btctx

import (
	"context"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/novo-network/biterc/internal/commitment"
)

// SAT2WEI relates satoshi fees to wei gas: 1 satoshi = 10 gwei.
const SAT2WEI = 10_000_000_000

// ErrInsufficientBalance is returned by BuildTransaction when the
// supplied UTXOs cannot cover the required fee.
var ErrInsufficientBalance = errors.New("btctx: insufficient balance")

// BitcoinClient is the subset of a Bitcoin Core RPC client the builder
// and fetcher need. Its method set matches btcsuite/btcd/rpcclient.Client
// exactly so that type is a drop-in implementation in production; tests
// supply an in-memory fake.
type BitcoinClient interface {
	GetBlockCount() (int64, error)
	GetBlockHash(blockHeight int64) (*chainhash.Hash, error)
	GetBlock(blockHash *chainhash.Hash) (*wire.MsgBlock, error)
	GetRawTransaction(txHash *chainhash.Hash) (*btcutil.Tx, error)
	SendRawTransaction(tx *wire.MsgTx, allowHighFees bool) (*chainhash.Hash, error)
}

// UTXO is a single unspent output as reported by an Electrum server.
type UTXO struct {
	TxID  chainhash.Hash
	Vout  uint32
	Value int64 // satoshis
}

// ElectrumClient is the subset of an Electrum protocol client the builder
// needs: UTXO listing and relay-fee estimation for a scriptPubKey.
type ElectrumClient interface {
	ListUnspent(ctx context.Context, script []byte) ([]UTXO, error)
	RelayFee(ctx context.Context) (btcutil.Amount, error)
}

// DAFeeInfo is the DA-fee policy returned by the submission RPC's
// getDaInfo endpoint.
type DAFeeInfo struct {
	Address btcutil.Address
	Fee     btcutil.Amount
}

// DAInfoProvider fetches the current DA-fee policy from the submission
// RPC, mirroring the original publisher's call to novo_getDaInfo.
type DAInfoProvider interface {
	GetDaInfo(ctx context.Context) (DAFeeInfo, error)
}

// Builder constructs anchoring Bitcoin transactions and derives EVM
// sender addresses from spent outputs.
type Builder struct {
	btc      BitcoinClient
	electrum ElectrumClient
	params   *chaincfg.Params
}

// NewBuilder wires a Builder to its Bitcoin Core and Electrum clients.
func NewBuilder(btc BitcoinClient, electrum ElectrumClient, params *chaincfg.Params) *Builder {
	return &Builder{btc: btc, electrum: electrum, params: params}
}

// BuildTransaction implements spec §4.3's anchoring-tx construction:
// clamp the fee against the relay fee, add the DA fee (if daInfo is
// non-nil), select UTXOs, and assemble
// [OP_RETURN commitment, DA-fee payment, change] signed as P2WPKH with
// SIGHASH_ALL.
func (b *Builder) BuildTransaction(
	ctx context.Context,
	privKey *btcec.PrivateKey,
	signerScript []byte,
	utxos []UTXO,
	ethFeeSats int64,
	record commitment.Record,
	daInfo DAInfoProvider,
) (*wire.MsgTx, error) {
	fee := btcutil.Amount(ethFeeSats)

	relayFee, err := b.electrum.RelayFee(ctx)
	if err != nil {
		return nil, fmt.Errorf("btctx: relay fee: %w", err)
	}
	if fee < relayFee {
		fee = relayFee
	}

	var daFee btcutil.Amount
	var daAddr btcutil.Address
	if daInfo != nil {
		info, err := daInfo.GetDaInfo(ctx)
		if err != nil {
			return nil, fmt.Errorf("btctx: da info: %w", err)
		}
		daFee = info.Fee
		daAddr = info.Address
		fee += daFee
	}

	selected, sum, err := selectUTXOs(utxos, fee)
	if err != nil {
		return nil, err
	}

	tx := wire.NewMsgTx(1)
	tx.LockTime = 0
	for _, u := range selected {
		txid := u.TxID
		tx.AddTxIn(&wire.TxIn{
			PreviousOutPoint: wire.OutPoint{Hash: txid, Index: u.Vout},
			Sequence:         wire.MaxTxInSequenceNum,
		})
	}

	encoded := commitment.Encode(record)
	opReturnScript, err := txscript.NullDataScript(encoded[:])
	if err != nil {
		return nil, fmt.Errorf("btctx: op_return script: %w", err)
	}
	tx.AddTxOut(wire.NewTxOut(0, opReturnScript))

	if daInfo != nil {
		daScript, err := txscript.PayToAddrScript(daAddr)
		if err != nil {
			return nil, fmt.Errorf("btctx: da fee script: %w", err)
		}
		tx.AddTxOut(wire.NewTxOut(int64(daFee), daScript))
	}

	change := sum - fee
	tx.AddTxOut(wire.NewTxOut(int64(change), signerScript))

	prevValues := make([]int64, len(selected))
	for i, u := range selected {
		prevValues[i] = u.Value
	}
	if err := signP2WPKHInputs(tx, privKey, signerScript, prevValues); err != nil {
		return nil, err
	}
	return tx, nil
}

func selectUTXOs(utxos []UTXO, fee btcutil.Amount) ([]UTXO, btcutil.Amount, error) {
	var selected []UTXO
	var sum btcutil.Amount
	for _, u := range utxos {
		selected = append(selected, u)
		sum += btcutil.Amount(u.Value)
		if sum > fee {
			return selected, sum, nil
		}
	}
	return nil, 0, fmt.Errorf("%w: have %d sat, need > %d sat", ErrInsufficientBalance, sum, fee)
}

func signP2WPKHInputs(tx *wire.MsgTx, privKey *btcec.PrivateKey, signerScript []byte, prevValues []int64) error {
	pubKeyHash := btcutil.Hash160(privKey.PubKey().SerializeCompressed())
	subscript, err := p2pkhSubscript(pubKeyHash)
	if err != nil {
		return fmt.Errorf("btctx: subscript: %w", err)
	}

	prevFetcher := txscript.NewCannedPrevOutputFetcher(signerScript, 0)
	sigHashes := txscript.NewTxSigHashes(tx, prevFetcher)

	for i := range tx.TxIn {
		witness, err := txscript.WitnessSignature(tx, sigHashes, i, prevValues[i], subscript, txscript.SigHashAll, privKey, true)
		if err != nil {
			return fmt.Errorf("btctx: sign input %d: %w", i, err)
		}
		tx.TxIn[i].Witness = witness
	}
	return nil
}

func p2pkhSubscript(pubKeyHash []byte) ([]byte, error) {
	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_DUP).
		AddOp(txscript.OP_HASH160).
		AddData(pubKeyHash).
		AddOp(txscript.OP_EQUALVERIFY).
		AddOp(txscript.OP_CHECKSIG).
		Script()
}
