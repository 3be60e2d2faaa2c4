package btctx

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/ethereum/go-ethereum/crypto"
)

type fakeBitcoinClient struct {
	txs map[chainhash.Hash]*wire.MsgTx
}

func (f *fakeBitcoinClient) GetBlockCount() (int64, error) { return 0, nil }
func (f *fakeBitcoinClient) GetBlockHash(int64) (*chainhash.Hash, error) {
	return nil, nil
}
func (f *fakeBitcoinClient) GetBlock(*chainhash.Hash) (*wire.MsgBlock, error) { return nil, nil }
func (f *fakeBitcoinClient) GetRawTransaction(h *chainhash.Hash) (*btcutil.Tx, error) {
	tx, ok := f.txs[*h]
	if !ok {
		return nil, errors.New("tx not found")
	}
	return btcutil.NewTx(tx), nil
}
func (f *fakeBitcoinClient) SendRawTransaction(tx *wire.MsgTx, _ bool) (*chainhash.Hash, error) {
	h := tx.TxHash()
	return &h, nil
}

func TestGetEthFromAddress_P2PK(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("gen key: %v", err)
	}
	pub := priv.PubKey().SerializeCompressed()

	script, err := txscript.NewScriptBuilder().AddData(pub).AddOp(txscript.OP_CHECKSIG).Script()
	if err != nil {
		t.Fatalf("build p2pk script: %v", err)
	}

	prevTx := wire.NewMsgTx(1)
	prevTx.AddTxOut(wire.NewTxOut(1000, script))
	txid := prevTx.TxHash()

	client := &fakeBitcoinClient{txs: map[chainhash.Hash]*wire.MsgTx{txid: prevTx}}
	b := NewBuilder(client, nil, &chaincfg.MainNetParams)

	addr, err := b.GetEthFromAddress(context.Background(), &txid, 0)
	if err != nil {
		t.Fatalf("get eth from address: %v", err)
	}

	want := crypto.Keccak256(crypto.Keccak256(pub))
	if !bytes.Equal(addr[:], want[:20]) {
		t.Fatalf("address mismatch: got %x, want %x", addr, want[:20])
	}
}

func TestGetEthFromAddress_FallbackScriptHash(t *testing.T) {
	addrObj, err := btcutil.NewAddressPubKeyHash(btcutil.Hash160([]byte("fake pubkey")), &chaincfg.MainNetParams)
	if err != nil {
		t.Fatalf("addr: %v", err)
	}
	script, err := txscript.PayToAddrScript(addrObj)
	if err != nil {
		t.Fatalf("p2pkh script: %v", err)
	}

	prevTx := wire.NewMsgTx(1)
	prevTx.AddTxOut(wire.NewTxOut(1000, script))
	txid := prevTx.TxHash()

	client := &fakeBitcoinClient{txs: map[chainhash.Hash]*wire.MsgTx{txid: prevTx}}
	b := NewBuilder(client, nil, &chaincfg.MainNetParams)

	addr, err := b.GetEthFromAddress(context.Background(), &txid, 0)
	if err != nil {
		t.Fatalf("get eth from address: %v", err)
	}

	want := btcutil.Hash160(script)
	if !bytes.Equal(addr[:], want) {
		t.Fatalf("address mismatch: got %x, want %x", addr, want)
	}
}
