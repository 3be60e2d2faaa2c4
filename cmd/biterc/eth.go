package main

import (
	"context"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/spf13/cobra"

	"github.com/novo-network/biterc/internal/commitment"
	"github.com/novo-network/biterc/internal/config"
	"github.com/novo-network/biterc/internal/engine"
	"github.com/novo-network/biterc/internal/evmtx"
)

// depositTxTypePrefix is the leading byte every DA-resolved deposit
// payload carries ahead of its RLP body, matching the fetcher's decoder.
const depositTxTypePrefix = 0x7e

// ethCmd publishes a deposit transaction: builds the canonical deposit
// tx, RLP-encodes it behind its type-prefix byte, anchors it exactly
// like chain-cfg does, but with tx_type 0.
func ethCmd() *cobra.Command {
	var (
		configPath, wif, nodeURL, toHex, dataHex, valueWei string
		chainID                                            uint32
		submit                                             bool
	)
	cmd := &cobra.Command{
		Use:   "eth",
		Short: "anchor a deposit transaction on L1",
		RunE: func(cmd *cobra.Command, args []string) error {
			value, ok := new(big.Int).SetString(valueWei, 10)
			if !ok {
				return fmt.Errorf("invalid --value-wei %q", valueWei)
			}
			var to *common.Address
			if toHex != "" {
				addr := common.HexToAddress(toHex)
				to = &addr
			}
			data := []byte(dataHex)

			return publishItem(cmd.Context(), publishParams{
				configPath:    configPath,
				wif:           wif,
				nodeURL:       nodeURL,
				submit:        submit,
				txType:        commitment.TxTypeDeposit,
				recordChainID: chainID,
			}, func(ctx context.Context, cfg *config.Config, signerScript []byte) ([]byte, error) {
				return buildDepositPayload(ctx, chainID, signerScript, to, value, data)
			})
		},
	}
	addPublishFlags(cmd, &configPath, &wif, &nodeURL, &submit)
	cmd.Flags().Uint32Var(&chainID, "chain-id", 0, "the L2 chain id this deposit targets")
	cmd.Flags().StringVar(&toHex, "to", "", "recipient address (omit to create a contract)")
	cmd.Flags().StringVar(&valueWei, "value-wei", "0", "wei value to mint and transfer")
	cmd.Flags().StringVar(&dataHex, "data", "", "calldata")
	cmd.MarkFlagRequired("chain-id")
	return cmd
}

// buildDepositPayload derives the deposit's from address the same way
// the fetcher's decoder later will — a Hash160 fingerprint of the spent
// output's scriptPubKey, which here is the signer's own P2WPKH script —
// estimates gas with a local reference engine, and returns the RLP body
// behind the deposit type-prefix byte. A production deployment would
// instead have the live L2 node quote gas over its own JSON-RPC.
func buildDepositPayload(ctx context.Context, chainID uint32, signerScript []byte, to *common.Address, value *big.Int, data []byte) ([]byte, error) {
	from := common.BytesToAddress(btcutil.Hash160(signerScript))

	estimator := engine.NewMemoryEngine(chainID)
	signed, err := evmtx.BuildDepositTx(ctx, estimator, chainID, from, to, value, data)
	if err != nil {
		return nil, fmt.Errorf("build deposit tx: %w", err)
	}

	body, err := rlp.EncodeToBytes(signed.Deposit)
	if err != nil {
		return nil, fmt.Errorf("rlp encode deposit: %w", err)
	}
	return append([]byte{depositTxTypePrefix}, body...), nil
}
