package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/vanshika/txwebhook/internal/client"
)

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [transaction_id]",
		Short: "Show the current record of a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			serverURL, _ := cmd.Flags().GetString("server")

			tx, err := client.New(client.Config{BaseURL: serverURL}).Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(tx)
		},
	}
}
