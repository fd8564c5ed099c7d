package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "wears-ops",
		Short:   "Operator tools for order confirmation emails",
		Version: Version,
	}

	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(pendingCmd())
	rootCmd.AddCommand(resendCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
