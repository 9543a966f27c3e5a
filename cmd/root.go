package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"billing/internal/logger"
	"billing/pkg/models"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "billing",
	Short: "Billing and inventory ledger for a small trading business",
	Long: `billing issues GST invoices, tracks stock, and runs imported purchases through
a review step before they reach inventory.

State lives in a local bbolt file. When cloud sync is enabled every change is
pushed to a shared JSON document on Google Drive after a short quiet interval.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", describeError(err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Ledger database path (default: LEDGER_DB_PATH)")
	rootCmd.PersistentFlags().String("role", string(models.RoleEmployee), "Acting user role: admin or employee")
}
