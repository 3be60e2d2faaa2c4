package btctx

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/checksum0/go-electrum/electrum"
)

// electrumAdapter wraps a github.com/checksum0/go-electrum node
// connection and exposes the minimal ElectrumClient surface this package
// depends on.
type electrumAdapter struct {
	node *electrum.Node
}

// DialElectrum connects to an Electrum server at addr over TCP and
// returns an ElectrumClient backed by it.
func DialElectrum(ctx context.Context, addr string) (ElectrumClient, error) {
	node := electrum.NewNode()
	if err := node.ConnectTCP(addr); err != nil {
		return nil, fmt.Errorf("btctx: electrum connect: %w", err)
	}
	return &electrumAdapter{node: node}, nil
}

// ListUnspent reports the unspent outputs paying to script.
func (a *electrumAdapter) ListUnspent(ctx context.Context, script []byte) ([]UTXO, error) {
	scripthash := electrumScripthash(script)
	raw, err := a.node.BlockchainScripthashListUnspent(ctx, scripthash)
	if err != nil {
		return nil, fmt.Errorf("btctx: electrum list_unspent: %w", err)
	}
	out := make([]UTXO, 0, len(raw))
	for _, u := range raw {
		txid, err := chainhash.NewHashFromStr(u.Hash)
		if err != nil {
			return nil, fmt.Errorf("btctx: electrum txid: %w", err)
		}
		out = append(out, UTXO{TxID: *txid, Vout: uint32(u.Position), Value: u.Value})
	}
	return out, nil
}

// RelayFee returns the server's minimum relay fee as a satoshi amount.
func (a *electrumAdapter) RelayFee(ctx context.Context) (btcutil.Amount, error) {
	btc, err := a.node.BlockchainRelayFee(ctx)
	if err != nil {
		return 0, fmt.Errorf("btctx: electrum relay_fee: %w", err)
	}
	return btcutil.NewAmount(btc)
}

// electrumScripthash computes the SHA-256(scriptPubKey), byte-reversed,
// hex-encoded scripthash Electrum's protocol indexes UTXOs by.
func electrumScripthash(script []byte) string {
	sum := chainhash.HashB(script)
	reversed := make([]byte, len(sum))
	for i, b := range sum {
		reversed[len(sum)-1-i] = b
	}
	return fmt.Sprintf("%x", reversed)
}
