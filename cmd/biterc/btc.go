package main

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/rpcclient"

	"github.com/novo-network/biterc/internal/btctx"
	"github.com/novo-network/biterc/internal/config"
)

// netParams resolves the TOML network name to btcd's chain parameters.
func netParams(network string) (*chaincfg.Params, error) {
	switch network {
	case "mainnet":
		return &chaincfg.MainNetParams, nil
	case "testnet":
		return &chaincfg.TestNet3Params, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	case "signet":
		return &chaincfg.SigNetParams, nil
	default:
		return nil, fmt.Errorf("unknown network %q", network)
	}
}

// dialBitcoinRPC connects to Bitcoin Core's JSON-RPC over HTTP POST.
// *rpcclient.Client satisfies btctx.BitcoinClient directly.
func dialBitcoinRPC(cfg config.BTCConfig) (*rpcclient.Client, error) {
	connCfg := &rpcclient.ConnConfig{
		Host:         trimScheme(cfg.BTCURL),
		User:         cfg.Username,
		Pass:         cfg.Password,
		HTTPPostMode: true,
		DisableTLS:   true,
	}
	client, err := rpcclient.New(connCfg, nil)
	if err != nil {
		return nil, fmt.Errorf("bitcoin rpc dial: %w", err)
	}
	return client, nil
}

func trimScheme(url string) string {
	for _, prefix := range []string{"http://", "https://"} {
		if len(url) > len(prefix) && url[:len(prefix)] == prefix {
			return url[len(prefix):]
		}
	}
	return url
}

// dialElectrum connects to the Electrum/Electrs endpoint configured for
// UTXO listing and relay-fee estimation.
func dialElectrum(ctx context.Context, electrsURL string) (btctx.ElectrumClient, error) {
	return btctx.DialElectrum(ctx, electrsURL)
}
