package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/spf13/cobra"

	"github.com/novo-network/biterc/internal/btctx"
	"github.com/novo-network/biterc/internal/commitment"
	"github.com/novo-network/biterc/internal/config"
)

// paramsDecoder makes *chaincfg.Params satisfy btctx's unexported
// addressDecoder interface, so a HTTPDAInfoClient can decode the fee
// address returned by a node's getDaInfo endpoint under the CLI's
// configured network.
type paramsDecoder struct{ params *chaincfg.Params }

func (d paramsDecoder) DecodeAddress(addr string) (btcutil.Address, error) {
	return btcutil.DecodeAddress(addr, d.params)
}

// loadPublisherKey decodes a WIF-encoded private key and derives the
// P2WPKH script it signs for, the shape both chain-cfg and eth use as
// the anchoring transaction's change output.
func loadPublisherKey(wif string, params *chaincfg.Params) (*btcec.PrivateKey, []byte, error) {
	decoded, err := btcutil.DecodeWIF(wif)
	if err != nil {
		return nil, nil, fmt.Errorf("decode wif: %w", err)
	}
	pubKeyHash := btcutil.Hash160(decoded.PrivKey.PubKey().SerializeCompressed())
	addr, err := btcutil.NewAddressWitnessPubKeyHash(pubKeyHash, params)
	if err != nil {
		return nil, nil, fmt.Errorf("derive p2wpkh address: %w", err)
	}
	script, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return nil, nil, fmt.Errorf("signer script: %w", err)
	}
	return decoded.PrivKey, script, nil
}

// addPublishFlags registers the flags chain-cfg and eth share: the
// signing key, the fee-quoting node to call, and whether to broadcast
// the finished transaction or just print it.
func addPublishFlags(cmd *cobra.Command, configPath, wif, nodeURL *string, submit *bool) {
	cmd.Flags().StringVar(configPath, "config", "biterc.toml", "path to the node's TOML config file")
	cmd.Flags().StringVar(wif, "wif", "", "WIF-encoded private key funding this transaction")
	cmd.Flags().StringVar(nodeURL, "node-url", "", "submission RPC URL to quote the DA fee from (defaults to this config's own listen_addr)")
	cmd.Flags().BoolVar(submit, "submit", false, "broadcast the transaction instead of printing its hex")
	cmd.MarkFlagRequired("wif")
}

// resolveNodeURL falls back to the local node's own submission RPC when
// no remote quoting node is given, matching a single-operator deployment
// where the CLI and the node share one config file.
func resolveNodeURL(nodeURL, listenAddr string) string {
	if nodeURL != "" {
		return nodeURL
	}
	return "http://" + listenAddr + "/"
}

// publishParams carries the knobs shared by every anchoring subcommand.
type publishParams struct {
	configPath    string
	wif           string
	nodeURL       string
	submit        bool
	txType        uint8
	recordChainID uint32
}

// payloadFunc builds the raw bytes to hand the DA manager, given the
// loaded config and the signer's own P2WPKH script (chain-cfg marshals a
// ChainConfig and ignores the script; eth uses it to derive the deposit's
// from address and RLP-encodes the result behind its type-prefix byte).
type payloadFunc func(ctx context.Context, cfg *config.Config, signerScript []byte) ([]byte, error)

// publishItem implements the common forward path every anchoring
// subcommand follows: store the payload in DA, encode its locator into a
// Commitment Record, build the anchoring Bitcoin transaction, and either
// print or broadcast it.
func publishItem(ctx context.Context, p publishParams, buildPayload payloadFunc) error {
	cfg, err := config.Load(p.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	params, err := netParams(cfg.BTC.Network)
	if err != nil {
		return fmt.Errorf("network: %w", err)
	}

	privKey, signerScript, err := loadPublisherKey(p.wif, params)
	if err != nil {
		return err
	}

	daMgr, err := buildDAManager(ctx, cfg)
	if err != nil {
		return fmt.Errorf("da manager: %w", err)
	}
	payload, err := buildPayload(ctx, cfg, signerScript)
	if err != nil {
		return fmt.Errorf("build payload: %w", err)
	}
	typedHash, err := daMgr.Put(ctx, payload)
	if err != nil {
		return fmt.Errorf("da put: %w", err)
	}
	if len(typedHash) != 1+32 {
		return fmt.Errorf("unexpected typed hash length %d", len(typedHash))
	}
	var hash [32]byte
	copy(hash[:], typedHash[1:])
	record := commitment.Record{ChainID: p.recordChainID, TxType: p.txType, DAType: typedHash[0], Hash: hash}

	btc, err := dialBitcoinRPC(cfg.BTC)
	if err != nil {
		return fmt.Errorf("bitcoin rpc: %w", err)
	}
	defer btc.Shutdown()
	electrum, err := dialElectrum(ctx, cfg.BTC.ElectrsURL)
	if err != nil {
		return fmt.Errorf("electrum: %w", err)
	}
	builder := btctx.NewBuilder(btc, electrum, params)

	utxos, err := electrum.ListUnspent(ctx, signerScript)
	if err != nil {
		return fmt.Errorf("list unspent: %w", err)
	}

	daInfo := btctx.NewHTTPDAInfoClient(resolveNodeURL(p.nodeURL, cfg.ListenAddr), paramsDecoder{params: params})
	tx, err := builder.BuildTransaction(ctx, privKey, signerScript, utxos, 0, record, daInfo)
	if err != nil {
		return fmt.Errorf("build transaction: %w", err)
	}

	if !p.submit {
		var buf bytes.Buffer
		if err := tx.Serialize(&buf); err != nil {
			return fmt.Errorf("serialize transaction: %w", err)
		}
		fmt.Println(hex.EncodeToString(buf.Bytes()))
		return nil
	}

	txid, err := btc.SendRawTransaction(tx, false)
	if err != nil {
		return fmt.Errorf("broadcast transaction: %w", err)
	}
	fmt.Println(txid.String())
	return nil
}
