package btctx

import (
	"context"
	"errors"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"

	"github.com/novo-network/biterc/internal/commitment"
)

type fakeElectrum struct {
	relayFee btcutil.Amount
}

func (f *fakeElectrum) ListUnspent(context.Context, []byte) ([]UTXO, error) { return nil, nil }
func (f *fakeElectrum) RelayFee(context.Context) (btcutil.Amount, error)    { return f.relayFee, nil }

type fakeDAInfo struct {
	info DAFeeInfo
}

func (f *fakeDAInfo) GetDaInfo(context.Context) (DAFeeInfo, error) { return f.info, nil }

func testUTXOs(values ...int64) []UTXO {
	out := make([]UTXO, len(values))
	for i, v := range values {
		var h chainhash.Hash
		h[0] = byte(i + 1)
		out[i] = UTXO{TxID: h, Vout: uint32(i), Value: v}
	}
	return out
}

func signerSetup(t *testing.T) (*btcec.PrivateKey, []byte) {
	t.Helper()
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("gen key: %v", err)
	}
	pubHash := btcutil.Hash160(priv.PubKey().SerializeCompressed())
	addr, err := btcutil.NewAddressWitnessPubKeyHash(pubHash, &chaincfg.MainNetParams)
	if err != nil {
		t.Fatalf("witness addr: %v", err)
	}
	script, err := txscript.PayToAddrScript(addr)
	if err != nil {
		t.Fatalf("p2wpkh script: %v", err)
	}
	return priv, script
}

func TestBuildTransaction_OutputOrderAndFees(t *testing.T) {
	priv, signerScript := signerSetup(t)
	daAddr, err := btcutil.NewAddressPubKeyHash(btcutil.Hash160([]byte("da-fee-addr")), &chaincfg.MainNetParams)
	if err != nil {
		t.Fatalf("da addr: %v", err)
	}

	b := NewBuilder(nil, &fakeElectrum{relayFee: 100}, &chaincfg.MainNetParams)
	daInfo := &fakeDAInfo{info: DAFeeInfo{Address: daAddr, Fee: 500}}

	record := commitment.Record{ChainID: 1, TxType: 0, DAType: 0}
	tx, err := b.BuildTransaction(context.Background(), priv, signerScript, testUTXOs(2000, 2000), 1000, record, daInfo)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if len(tx.TxOut) != 3 {
		t.Fatalf("expected 3 outputs, got %d", len(tx.TxOut))
	}
	// OUT0: OP_RETURN, value 0.
	if tx.TxOut[0].Value != 0 {
		t.Fatalf("expected OUT0 value 0, got %d", tx.TxOut[0].Value)
	}
	if tx.TxOut[0].PkScript[0] != 0x6a {
		t.Fatalf("expected OUT0 to be OP_RETURN")
	}
	// OUT1: DA fee payment.
	if tx.TxOut[1].Value != 500 {
		t.Fatalf("expected OUT1 value 500, got %d", tx.TxOut[1].Value)
	}
	// fee = max(1000, relayFee=100) + daFee(500) = 1500; first utxo (2000) > 1500 already.
	wantChange := int64(2000 - 1500)
	if tx.TxOut[2].Value != wantChange {
		t.Fatalf("expected change %d, got %d", wantChange, tx.TxOut[2].Value)
	}
	if len(tx.TxIn) != 1 {
		t.Fatalf("expected 1 input selected, got %d", len(tx.TxIn))
	}
	if len(tx.TxIn[0].Witness) == 0 {
		t.Fatalf("expected signed witness data")
	}
}

func TestBuildTransaction_InsufficientBalance(t *testing.T) {
	priv, signerScript := signerSetup(t)
	b := NewBuilder(nil, &fakeElectrum{relayFee: 100}, &chaincfg.MainNetParams)

	record := commitment.Record{ChainID: 1, TxType: 0, DAType: 0}
	_, err := b.BuildTransaction(context.Background(), priv, signerScript, testUTXOs(10), 1000, record, nil)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}
