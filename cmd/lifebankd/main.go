// Package main implements lifebankd, the personal knowledge base daemon.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"

	configPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "lifebankd",
	Short: "Personal knowledge base daemon",
	Long: `lifebankd maintains a personal knowledge base extracted from daily
records. It sanitizes raw journal, tracker and conversation data, exchanges
the pseudonymized result with an external AI collaborator in two rounds, and
merges the extracted facts into a taxonomy-classified node store.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default ~/.config/lifebank/config.yaml)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(extractCmd)
}
