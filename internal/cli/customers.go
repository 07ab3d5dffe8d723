package cli

import (
	"context"
	"fmt"

	"github.com/andy/tally/internal/domain"
	"github.com/spf13/cobra"
)

var customersCmd = &cobra.Command{
	Use:     "customers",
	Aliases: []string{"customer"},
	Short:   "Manage customers",
	Long:    `Add, list, and archive customers.`,
}

var customersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List customers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		includeArchived, _ := cmd.Flags().GetBool("archived")

		customers, err := appInstance.CustomerRepo.List(ctx, includeArchived)
		if err != nil {
			return fmt.Errorf("failed to list customers: %w", err)
		}

		if len(customers) == 0 {
			fmt.Println("No customers found")
			return nil
		}

		fmt.Printf("%-10s %-30s %-30s %-8s\n", "ID", "Name", "Email", "Archived")
		fmt.Println("-------------------------------------------------------------------------------")

		for _, c := range customers {
			archived := ""
			if c.IsArchived {
				archived = "yes"
			}
			fmt.Printf("%-10s %-30s %-30s %-8s\n",
				shortID(c.ID),
				truncate(c.Name, 30),
				truncate(c.Email, 30),
				archived,
			)
		}

		return nil
	},
}

var customersAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Add a new customer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		customer := domain.NewCustomer(args[0])
		customer.Email, _ = cmd.Flags().GetString("email")
		customer.Notes, _ = cmd.Flags().GetString("notes")

		if err := appInstance.CustomerRepo.Create(ctx, customer); err != nil {
			return fmt.Errorf("failed to create customer: %w", err)
		}

		fmt.Printf("✓ Customer created: %s (ID: %s)\n", customer.Name, customer.ID)
		return nil
	},
}

var customersArchiveCmd = &cobra.Command{
	Use:   "archive [id-or-name]",
	Short: "Archive a customer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		customer, err := resolveCustomer(ctx, appInstance.CustomerRepo, args[0])
		if err != nil {
			return err
		}

		if err := appInstance.CustomerRepo.Archive(ctx, customer.ID); err != nil {
			return fmt.Errorf("failed to archive customer: %w", err)
		}

		fmt.Printf("✓ Customer archived: %s\n", customer.Name)
		return nil
	},
}

func init() {
	customersCmd.AddCommand(customersListCmd)
	customersCmd.AddCommand(customersAddCmd)
	customersCmd.AddCommand(customersArchiveCmd)

	customersListCmd.Flags().Bool("archived", false, "Include archived customers")

	customersAddCmd.Flags().String("email", "", "Customer email")
	customersAddCmd.Flags().String("notes", "", "Notes about the customer")
}
