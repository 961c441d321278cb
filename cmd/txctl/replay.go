package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vanshika/txwebhook/internal/client"
	"github.com/vanshika/txwebhook/internal/generator"
	"github.com/vanshika/txwebhook/internal/worker"
)

func replayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay [notifications.json]",
		Short: "Deliver a generated dataset to the service concurrently",
		Args:  cobra.ExactArgs(1),
		RunE:  runReplay,
	}

	cmd.Flags().IntP("workers", "w", 8, "Number of concurrent senders")
	cmd.Flags().Duration("timeout", client.DefaultTimeout, "Per-request timeout")

	return cmd
}

func runReplay(cmd *cobra.Command, args []string) error {
	serverURL, _ := cmd.Flags().GetString("server")
	workers, _ := cmd.Flags().GetInt("workers")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	hooks, err := generator.ReadNotifications(args[0])
	if err != nil {
		return err
	}
	if len(hooks) == 0 {
		return fmt.Errorf("dataset %s is empty", args[0])
	}

	c := client.New(client.Config{BaseURL: serverURL, Timeout: timeout})
	start := time.Now()
	stats, err := client.Replay(cmd.Context(), c, worker.NewPool(workers), hooks)

	fmt.Fprintf(cmd.OutOrStdout(), "Delivered %d webhooks in %s: %d received, %d already received, %d failed\n",
		len(hooks), time.Since(start).Round(time.Millisecond), stats.Received, stats.Duplicates, stats.Failed)
	return err
}
