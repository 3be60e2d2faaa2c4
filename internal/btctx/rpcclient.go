package btctx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/btcsuite/btcd/btcutil"
)

// jsonRPCRequest and jsonRPCResponse are the minimal JSON-RPC 2.0 envelope
// used to call the submission RPC's getDaInfo endpoint from the
// publisher-side CLI.
type jsonRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type jsonRPCResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// HTTPDAInfoClient calls a node's getDaInfo JSON-RPC endpoint over HTTP.
type HTTPDAInfoClient struct {
	url    string
	client *http.Client
	params addressDecoder
}

// addressDecoder decodes an address string under one fixed Bitcoin
// network (the CLI binds btcutil.DecodeAddress to its chaincfg.Params).
type addressDecoder interface {
	DecodeAddress(addr string) (btcutil.Address, error)
}

// NewHTTPDAInfoClient builds a client for the node's submission RPC at
// url, decoding addresses under the given network.
func NewHTTPDAInfoClient(url string, decoder addressDecoder) *HTTPDAInfoClient {
	return &HTTPDAInfoClient{url: url, client: &http.Client{}, params: decoder}
}

// GetDaInfo implements DAInfoProvider.
func (c *HTTPDAInfoClient) GetDaInfo(ctx context.Context) (DAFeeInfo, error) {
	reqBody, err := json.Marshal(jsonRPCRequest{JSONRPC: "2.0", ID: 1, Method: "getDaInfo", Params: []any{}})
	if err != nil {
		return DAFeeInfo{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(reqBody))
	if err != nil {
		return DAFeeInfo{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return DAFeeInfo{}, fmt.Errorf("btctx: getDaInfo request: %w", err)
	}
	defer resp.Body.Close()

	var rpcResp jsonRPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return DAFeeInfo{}, fmt.Errorf("btctx: getDaInfo decode: %w", err)
	}
	if rpcResp.Error != nil {
		return DAFeeInfo{}, fmt.Errorf("btctx: getDaInfo rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}

	var result struct {
		Address string `json:"address"`
		Fee     uint64 `json:"fee"`
	}
	if err := json.Unmarshal(rpcResp.Result, &result); err != nil {
		return DAFeeInfo{}, fmt.Errorf("btctx: getDaInfo result: %w", err)
	}
	addr, err := c.params.DecodeAddress(result.Address)
	if err != nil {
		return DAFeeInfo{}, fmt.Errorf("btctx: getDaInfo address: %w", err)
	}
	return DAFeeInfo{Address: addr, Fee: btcutil.Amount(result.Fee)}, nil
}
