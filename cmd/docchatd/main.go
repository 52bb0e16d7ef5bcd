package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/docchat-ai/docchat/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "docchatd",
		Short: "DocChat daemon and CLI",
		Long:  "DocChat: ingest PDF documents into a vector index and chat with them through a retrieval agent",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(cli.ServeCmd())
	rootCmd.AddCommand(cli.IngestCmd())
	rootCmd.AddCommand(cli.ChatCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
