package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "txctl",
		Short:         "Operator tooling for the transaction webhook service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("server", "http://localhost:8080", "Base URL of a running webhook service")

	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(replayCmd())
	rootCmd.AddCommand(getCmd())
	rootCmd.AddCommand(recoverCmd())
	return rootCmd
}
