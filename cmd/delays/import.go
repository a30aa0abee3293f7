package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/storm-alert-delays/internal/adapter/orders"
)

func newImportCmd() *cobra.Command {
	var csvPath, dbPath string

	cmd := &cobra.Command{
		Use:   "import-orders",
		Short: "Replace the SQLite order store with a CSV export",
		Long: `Load an order CSV into the orders table used when ORDERS_SOURCE=sqlite.

The existing rows are replaced in one transaction; a CSV with a missing
column or a duplicate Job Id leaves the store untouched.

Examples:
  delays import-orders --csv open_orders.csv --db orders.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(csvPath)
			if err != nil {
				return err
			}
			defer f.Close()

			list, err := orders.ReadCSV(f)
			if err != nil {
				return fmt.Errorf("read %s: %w", csvPath, err)
			}

			store, err := orders.NewSQLiteSource(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.ReplaceOrders(cmd.Context(), list); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d orders into %s\n", len(list), dbPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv", "", "Order CSV export (required)")
	cmd.Flags().StringVar(&dbPath, "db", "orders.db", "SQLite database path")
	_ = cmd.MarkFlagRequired("csv")

	return cmd
}
