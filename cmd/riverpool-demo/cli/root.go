// Package cli implements the riverpool-demo command tree: a small
// cobra-based binary that wires a configured ConnectionManager into a
// riverpool.Pool and exercises it end to end.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	version = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "riverpool-demo",
	Short: "Demonstrates the riverpool connection pool against a configured backend",
	Long: `riverpool-demo loads a backend (sql, tcp, or grpc), builds a
riverpool.Pool around it, and checks connections in and out to show the
pool's steady-state and replenishment behavior end to end.`,
}

// Execute runs the root command, exiting the process on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// SetVersion records the build version shown by `riverpool-demo version`.
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to riverpool.yaml (default: ./riverpool.yaml)")
}
