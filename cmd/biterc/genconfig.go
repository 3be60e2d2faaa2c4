package main

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/novo-network/biterc/internal/config"
)

// genConfigCmd emits a fully-commented-by-example default configuration,
// the file format node --config expects.
func genConfigCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "gen-config",
		Short: "emit a default node configuration as TOML",
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := toml.Marshal(config.Default())
			if err != nil {
				return fmt.Errorf("marshal default config: %w", err)
			}
			if outPath == "" {
				_, err := cmd.OutOrStdout().Write(body)
				return err
			}
			return os.WriteFile(outPath, body, 0o644)
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", "write to this file instead of stdout")
	return cmd
}
