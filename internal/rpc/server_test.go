package rpc

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/novo-network/biterc/internal/da"
)

// fakeBroadcaster is a minimal btctx.BitcoinClient that only supports
// SendRawTransaction; the submission RPC never calls the block-reading
// methods, so they fail loudly if exercised by mistake.
type fakeBroadcaster struct {
	sent    *wire.MsgTx
	sendErr error
}

func (f *fakeBroadcaster) GetBlockCount() (int64, error) { return 0, errors.New("unused") }
func (f *fakeBroadcaster) GetBlockHash(int64) (*chainhash.Hash, error) {
	return nil, errors.New("unused")
}
func (f *fakeBroadcaster) GetBlock(*chainhash.Hash) (*wire.MsgBlock, error) {
	return nil, errors.New("unused")
}
func (f *fakeBroadcaster) GetRawTransaction(*chainhash.Hash) (*btcutil.Tx, error) {
	return nil, errors.New("unused")
}
func (f *fakeBroadcaster) SendRawTransaction(tx *wire.MsgTx, _ bool) (*chainhash.Hash, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = tx
	h := tx.TxHash()
	return &h, nil
}

func testFeeAddress(t *testing.T) btcutil.Address {
	t.Helper()
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("new private key: %v", err)
	}
	addr, err := btcutil.NewAddressPubKeyHash(btcutil.Hash160(priv.PubKey().SerializeCompressed()), &chaincfg.RegressionNetParams)
	if err != nil {
		t.Fatalf("fee address: %v", err)
	}
	return addr
}

func testServer(t *testing.T, btc *fakeBroadcaster, daFee btcutil.Amount) (*Server, btcutil.Address) {
	t.Helper()
	fb, err := da.NewFileBackend(da.FileConfig{Path: t.TempDir()})
	if err != nil {
		t.Fatalf("file backend: %v", err)
	}
	mgr, err := da.NewManager(da.TypeFile, fb)
	if err != nil {
		t.Fatalf("da manager: %v", err)
	}
	feeAddr := testFeeAddress(t)
	return NewServer(mgr, btc, feeAddr, daFee, &chaincfg.RegressionNetParams, nil), feeAddr
}

// txPayingFee builds a minimal one-output Bitcoin transaction paying
// amount to feeAddr.
func txPayingFee(t *testing.T, feeAddr btcutil.Address, amount btcutil.Amount) *wire.MsgTx {
	t.Helper()
	script, err := txscript.PayToAddrScript(feeAddr)
	if err != nil {
		t.Fatalf("fee script: %v", err)
	}
	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(&wire.TxIn{PreviousOutPoint: wire.OutPoint{Index: 0}})
	tx.AddTxOut(wire.NewTxOut(int64(amount), script))
	return tx
}

func serializeHex(t *testing.T, tx *wire.MsgTx) string {
	t.Helper()
	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		t.Fatalf("serialize tx: %v", err)
	}
	return hex.EncodeToString(buf.Bytes())
}

func doRPC(t *testing.T, s *Server, body string) map[string]any {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestSendRawTransaction_Success(t *testing.T) {
	btc := &fakeBroadcaster{}
	s, feeAddr := testServer(t, btc, 1000)
	tx := txPayingFee(t, feeAddr, 1000)

	body := `{"jsonrpc":"2.0","id":1,"method":"sendRawTransaction","params":["` +
		hex.EncodeToString([]byte("hello world")) + `","` + serializeHex(t, tx) + `"]}`
	out := doRPC(t, s, body)

	if out["error"] != nil {
		t.Fatalf("unexpected error: %v", out["error"])
	}
	result, ok := out["result"].(map[string]any)
	if !ok || result["txid"] == nil {
		t.Fatalf("expected a txid in result, got %v", out)
	}
	if btc.sent == nil {
		t.Fatalf("expected broadcast to have happened")
	}
}

func TestSendRawTransaction_DaFeeMissing(t *testing.T) {
	btc := &fakeBroadcaster{}
	s, feeAddr := testServer(t, btc, 1000)
	tx := txPayingFee(t, feeAddr, 500) // below the required fee

	body := `{"jsonrpc":"2.0","id":1,"method":"sendRawTransaction","params":["` +
		hex.EncodeToString([]byte("payload")) + `","` + serializeHex(t, tx) + `"]}`
	out := doRPC(t, s, body)

	errBody, ok := out["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected an error, got %v", out)
	}
	if int(errBody["code"].(float64)) != codeDaFeeMissing {
		t.Fatalf("expected code %d, got %v", codeDaFeeMissing, errBody["code"])
	}
	if btc.sent != nil {
		t.Fatalf("must not broadcast when the DA fee is unpaid")
	}
}

func TestSendRawTransaction_InvalidHexParams(t *testing.T) {
	btc := &fakeBroadcaster{}
	s, _ := testServer(t, btc, 1000)

	body := `{"jsonrpc":"2.0","id":1,"method":"sendRawTransaction","params":["not-hex","also-not-hex"]}`
	out := doRPC(t, s, body)

	errBody, ok := out["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected an error, got %v", out)
	}
	if int(errBody["code"].(float64)) != codeInvalidParams {
		t.Fatalf("expected code %d, got %v", codeInvalidParams, errBody["code"])
	}
}

func TestHandleJSONRPC_UnknownMethod(t *testing.T) {
	btc := &fakeBroadcaster{}
	s, _ := testServer(t, btc, 1000)

	out := doRPC(t, s, `{"jsonrpc":"2.0","id":1,"method":"notAMethod","params":[]}`)
	errBody, ok := out["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected an error, got %v", out)
	}
	if int(errBody["code"].(float64)) != codeMethodNotFound {
		t.Fatalf("expected code %d, got %v", codeMethodNotFound, errBody["code"])
	}
}

func TestHandleJSONRPC_MalformedBody(t *testing.T) {
	btc := &fakeBroadcaster{}
	s, _ := testServer(t, btc, 1000)

	out := doRPC(t, s, `{not json`)
	errBody, ok := out["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected an error, got %v", out)
	}
	if int(errBody["code"].(float64)) != codeParseError {
		t.Fatalf("expected code %d, got %v", codeParseError, errBody["code"])
	}
}

func TestGetDaInfo(t *testing.T) {
	btc := &fakeBroadcaster{}
	s, feeAddr := testServer(t, btc, 2500)

	out := doRPC(t, s, `{"jsonrpc":"2.0","id":1,"method":"getDaInfo","params":[]}`)
	result, ok := out["result"].(map[string]any)
	if !ok {
		t.Fatalf("expected a result, got %v", out)
	}
	if result["address"] != feeAddr.EncodeAddress() {
		t.Fatalf("expected address %s, got %v", feeAddr.EncodeAddress(), result["address"])
	}
	if int(result["fee"].(float64)) != 2500 {
		t.Fatalf("expected fee 2500, got %v", result["fee"])
	}
}
