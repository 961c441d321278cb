package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vanshika/txwebhook/internal/generator"
)

func generateCmd() *cobra.Command {
	def := generator.DefaultConfig()
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write synthetic webhook deliveries, redeliveries included",
		Args:  cobra.NoArgs,
		RunE:  runGenerate,
	}

	cmd.Flags().IntP("count", "n", def.NumNotifications, "Number of deliveries to generate")
	cmd.Flags().Float64("duplicate-chance", def.DuplicateChance, "Probability that a delivery repeats an earlier one")
	cmd.Flags().Int("accounts", def.NumAccounts, "Size of the account pool")
	cmd.Flags().StringSlice("currencies", def.Currencies, "Currency codes to draw from")
	cmd.Flags().Int64("seed", def.Seed, "Random seed for deterministic generation")
	cmd.Flags().StringP("output-dir", "o", "data", "Directory to write notifications.json into")
	cmd.Flags().Bool("stdout", false, "Write the deliveries to stdout instead of a file")

	return cmd
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	count, _ := flags.GetInt("count")
	dupChance, _ := flags.GetFloat64("duplicate-chance")
	accounts, _ := flags.GetInt("accounts")
	currencies, _ := flags.GetStringSlice("currencies")
	seed, _ := flags.GetInt64("seed")
	outputDir, _ := flags.GetString("output-dir")
	toStdout, _ := flags.GetBool("stdout")

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	dataset, err := generator.New(generator.Config{
		NumNotifications: count,
		DuplicateChance:  dupChance,
		NumAccounts:      accounts,
		Currencies:       currencies,
		Seed:             seed,
	}).Generate(ctx)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	if toStdout {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(dataset.Notifications)
	}

	path, err := generator.WriteDataset(dataset, outputDir)
	if err != nil {
		return fmt.Errorf("failed to write dataset: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Generated %d deliveries (%d unique transactions) into %s\n", len(dataset.Notifications), dataset.Unique, path)
	return nil
}
