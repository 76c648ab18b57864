package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "docrender",
	Short: "Generate invoice and warranty card PDFs",
	Long: `docrender builds invoice and warranty card PDFs for shop orders and
stores them under the media root.

Run "docrender serve" for the HTTP service or "docrender render" to build a
single document from a JSON request.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "docrender: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd, renderCmd)
}
