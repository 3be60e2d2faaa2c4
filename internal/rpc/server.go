// Package rpc exposes the submission JSON-RPC surface: broadcasting a
// DA-backed anchoring transaction and reporting the current DA-fee
// policy. Routed with gorilla/mux the same way the teacher's wallet
// server routes its HTTP API, down to the shared request-logging
// middleware.
package rpc

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/novo-network/biterc/internal/btctx"
	"github.com/novo-network/biterc/internal/da"
)

// Server implements the two-method submission RPC over JSON-RPC 2.0.
type Server struct {
	da         *da.Manager
	btc        btctx.BitcoinClient
	feeAddress btcutil.Address
	daFee      btcutil.Amount
	params     *chaincfg.Params
	log        *logrus.Logger
	router     *mux.Router
}

// NewServer wires a Server and its gorilla/mux route table.
func NewServer(daMgr *da.Manager, btc btctx.BitcoinClient, feeAddress btcutil.Address, daFee btcutil.Amount, params *chaincfg.Params, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.New()
	}
	s := &Server{da: daMgr, btc: btc, feeAddress: feeAddress, daFee: daFee, params: params, log: log}

	r := mux.NewRouter()
	r.Use(loggingMiddleware(log))
	r.HandleFunc("/", s.handleJSONRPC).Methods(http.MethodPost)
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

func loggingMiddleware(log *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.WithField("method", r.Method).WithField("path", r.URL.Path).WithField("elapsed", time.Since(start)).Debug("rpc request")
		})
	}
}

type jsonRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type jsonRPCErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type jsonRPCResponse struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      json.RawMessage   `json:"id"`
	Result  any               `json:"result,omitempty"`
	Error   *jsonRPCErrorBody `json:"error,omitempty"`
}

func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var req jsonRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, nil, codeParseError, "parse error: "+err.Error())
		return
	}

	switch req.Method {
	case "sendRawTransaction":
		result, rpcErr := s.sendRawTransaction(r.Context(), req.Params)
		if rpcErr != nil {
			writeError(w, req.ID, rpcErr.Code, rpcErr.Message)
			return
		}
		writeResult(w, req.ID, result)

	case "getDaInfo":
		writeResult(w, req.ID, s.getDaInfo())

	default:
		writeError(w, req.ID, codeMethodNotFound, "method not found: "+req.Method)
	}
}

// sendRawTransaction implements spec §4.7: store the payload, verify the
// accompanying Bitcoin transaction actually pays for it, then broadcast.
func (s *Server) sendRawTransaction(ctx context.Context, rawParams json.RawMessage) (any, *rpcError) {
	payload, btcTxBytes, perr := parseSendRawTxParams(rawParams)
	if perr != nil {
		return nil, perr
	}

	if _, err := s.da.Put(ctx, payload); err != nil {
		return nil, internalError("da put failed: " + err.Error())
	}

	tx := wire.NewMsgTx(wire.TxVersion)
	if err := tx.Deserialize(bytes.NewReader(btcTxBytes)); err != nil {
		return nil, invalidParams("btc_tx is not a well-formed bitcoin transaction: " + err.Error())
	}

	feeScript, err := txscript.PayToAddrScript(s.feeAddress)
	if err != nil {
		return nil, internalError("fee address script: " + err.Error())
	}
	paid := false
	for _, out := range tx.TxOut {
		if scriptsEqual(out.PkScript, feeScript) && btcutil.Amount(out.Value) >= s.daFee {
			paid = true
			break
		}
	}
	if !paid {
		return nil, daFeeMissing()
	}

	txid, err := s.btc.SendRawTransaction(tx, false)
	if err != nil {
		return nil, internalError("broadcast failed: " + err.Error())
	}
	return map[string]string{"txid": txid.String()}, nil
}

// getDaInfo implements spec §4.7's auxiliary endpoint.
func (s *Server) getDaInfo() map[string]any {
	return map[string]any{
		"address": s.feeAddress.EncodeAddress(),
		"fee":     uint64(s.daFee),
	}
}

func scriptsEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// parseSendRawTxParams accepts either a 2-element positional array
// [tx_data_hex, btc_tx_hex] or a {tx_data, btc_tx} object, matching the
// two calling conventions real JSON-RPC 2.0 clients use.
func parseSendRawTxParams(raw json.RawMessage) ([]byte, []byte, *rpcError) {
	var asArray []string
	if err := json.Unmarshal(raw, &asArray); err == nil {
		if len(asArray) != 2 {
			return nil, nil, invalidParams("sendRawTransaction takes exactly 2 positional params")
		}
		return decodeHexPair(asArray[0], asArray[1])
	}

	var asObject struct {
		TxData string `json:"tx_data"`
		BtcTx  string `json:"btc_tx"`
	}
	if err := json.Unmarshal(raw, &asObject); err != nil {
		return nil, nil, invalidParams("params must be a 2-element array or a {tx_data, btc_tx} object")
	}
	return decodeHexPair(asObject.TxData, asObject.BtcTx)
}

func decodeHexPair(txDataHex, btcTxHex string) ([]byte, []byte, *rpcError) {
	payload, err := hex.DecodeString(strings.TrimPrefix(txDataHex, "0x"))
	if err != nil {
		return nil, nil, invalidParams("tx_data is not valid hex: " + err.Error())
	}
	btcTx, err := hex.DecodeString(strings.TrimPrefix(btcTxHex, "0x"))
	if err != nil {
		return nil, nil, invalidParams("btc_tx is not valid hex: " + err.Error())
	}
	return payload, btcTx, nil
}

func writeResult(w http.ResponseWriter, id json.RawMessage, result any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(jsonRPCResponse{JSONRPC: "2.0", ID: id, Result: result})
}

func writeError(w http.ResponseWriter, id json.RawMessage, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(jsonRPCResponse{JSONRPC: "2.0", ID: id, Error: &jsonRPCErrorBody{Code: code, Message: message}})
}
