package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset data in the database",
	Long: `Reset data in the database.

Examples:
  tally reset invoices    # Delete all invoices, payments, and their history
  tally reset all         # Wipe everything: customers, invoices, payments`,
}

// Order matters due to foreign keys
var (
	ledgerTables = []string{"payments", "invoice_history", "invoices"}
	allTables    = append(append([]string{}, ledgerTables...), "customers")
)

var resetInvoicesCmd = &cobra.Command{
	Use:   "invoices",
	Short: "Delete all invoices, payments, and invoice history",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !confirmPrompt(os.Stdin, "This will delete ALL invoices and payments. Continue?") {
			fmt.Println("Cancelled.")
			return nil
		}

		if err := clearTables(ledgerTables); err != nil {
			return err
		}

		fmt.Println("All invoices and payments have been deleted.")
		return nil
	},
}

var resetAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Delete ALL data: customers, invoices, payments, everything",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !confirmPrompt(os.Stdin, "This will delete ALL data (customers, invoices, payments, everything). Continue?") {
			fmt.Println("Cancelled.")
			return nil
		}

		if err := clearTables(allTables); err != nil {
			return err
		}

		fmt.Println("All data has been deleted.")
		return nil
	},
}

func clearTables(tables []string) error {
	tx, err := appInstance.DB.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range tables {
		if _, err := tx.Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	return tx.Commit()
}

func confirmPrompt(in io.Reader, message string) bool {
	fmt.Printf("%s [y/N] ", message)
	reader := bufio.NewReader(in)
	input, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	input = strings.TrimSpace(strings.ToLower(input))
	return input == "y" || input == "yes"
}

func init() {
	resetCmd.AddCommand(resetInvoicesCmd)
	resetCmd.AddCommand(resetAllCmd)
}
