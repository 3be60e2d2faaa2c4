// Command biterc runs the Bitcoin-anchored L2 node and its companion
// transaction-building subcommands from a bare cobra root: commands are
// wired directly in main, with no separate registration package.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{Use: "biterc", Short: "Bitcoin-anchored L2 sidechain node"}
	root.AddCommand(nodeCmd())
	root.AddCommand(genConfigCmd())
	root.AddCommand(chainCfgCmd())
	root.AddCommand(ethCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
