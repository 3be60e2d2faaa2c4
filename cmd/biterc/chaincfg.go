package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/novo-network/biterc/internal/commitment"
	"github.com/novo-network/biterc/internal/config"
	"github.com/novo-network/biterc/internal/domain"
)

// chainCfgCmd publishes a chain-configuration update: it anchors a
// ChainConfig item the same way eth anchors a deposit, except the DA
// payload is the JSON-encoded config itself and tx_type is 1.
func chainCfgCmd() *cobra.Command {
	var (
		configPath, wif, nodeURL, accountsFile, binHashHex string
		newChainID                                         uint32
		submit                                             bool
	)
	cmd := &cobra.Command{
		Use:   "chain-cfg",
		Short: "anchor a chain-configuration update on L1",
		RunE: func(cmd *cobra.Command, args []string) error {
			accounts := map[common.Address]domain.Account{}
			if accountsFile != "" {
				raw, err := os.ReadFile(accountsFile)
				if err != nil {
					return fmt.Errorf("read accounts file: %w", err)
				}
				if err := json.Unmarshal(raw, &accounts); err != nil {
					return fmt.Errorf("parse accounts file: %w", err)
				}
			}
			var binHash common.Hash
			if binHashHex != "" {
				b, err := hex.DecodeString(binHashHex)
				if err != nil || len(b) != len(binHash) {
					return fmt.Errorf("bin-hash must be %d hex bytes", len(binHash))
				}
				copy(binHash[:], b)
			}

			cc := domain.ChainConfig{ChainID: newChainID, BinHash: binHash, Accounts: accounts}
			return publishItem(cmd.Context(), publishParams{
				configPath:    configPath,
				wif:           wif,
				nodeURL:       nodeURL,
				submit:        submit,
				txType:        commitment.TxTypeConfig,
				recordChainID: newChainID,
			}, func(ctx context.Context, cfg *config.Config, signerScript []byte) ([]byte, error) {
				return json.Marshal(cc)
			})
		},
	}
	addPublishFlags(cmd, &configPath, &wif, &nodeURL, &submit)
	cmd.Flags().Uint32Var(&newChainID, "chain-id", 0, "the new chain id this config activates")
	cmd.Flags().StringVar(&binHashHex, "bin-hash", "", "hex-encoded 32-byte runtime binary hash")
	cmd.Flags().StringVar(&accountsFile, "accounts-file", "", "path to a JSON file mapping address to {balance,nonce,code,storage}")
	cmd.MarkFlagRequired("chain-id")
	return cmd
}
