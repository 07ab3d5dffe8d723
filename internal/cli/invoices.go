package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/andy/tally/internal/domain"
	"github.com/andy/tally/internal/repository"
	"github.com/andy/tally/internal/service"
	"github.com/spf13/cobra"
)

var invoicesCmd = &cobra.Command{
	Use:     "invoices",
	Aliases: []string{"invoice", "inv"},
	Short:   "Manage invoices",
	Long:    `Create, send, cancel, and inspect invoices.`,
}

var invoicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List invoices",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		var filter repository.InvoiceFilter
		if cmd.Flags().Changed("customer") {
			ref, _ := cmd.Flags().GetString("customer")
			customer, err := resolveCustomer(ctx, appInstance.CustomerRepo, ref)
			if err != nil {
				return err
			}
			filter.CustomerID = &customer.ID
		}
		if cmd.Flags().Changed("status") {
			statusStr, _ := cmd.Flags().GetString("status")
			status, err := domain.ParseInvoiceStatus(statusStr)
			if err != nil {
				return err
			}
			filter.Status = &status
		}

		invoices, err := appInstance.InvoiceService.ListInvoices(ctx, filter)
		if err != nil {
			return fmt.Errorf("failed to list invoices: %w", err)
		}

		if len(invoices) == 0 {
			fmt.Println("No invoices found")
			return nil
		}

		names := newCustomerNames(appInstance.CustomerRepo)

		fmt.Printf("%-15s %-20s %-12s %-12s %12s %12s %-10s\n", "Number", "Customer", "Issued", "Due", "Total", "Paid", "Status")
		fmt.Println("--------------------------------------------------------------------------------------------------")

		for _, inv := range invoices {
			due := "-"
			if inv.DueDate != nil {
				due = formatDate(*inv.DueDate)
			}
			fmt.Printf("%-15s %-20s %-12s %-12s %12s %12s %s\n",
				truncate(inv.InvoiceNumber, 15),
				truncate(names.get(ctx, inv.CustomerID), 20),
				formatDate(inv.IssuedAt),
				due,
				formatAmount(inv.Total),
				formatAmount(inv.AmountPaid),
				renderStatus(inv.Status, 10),
			)
		}

		fmt.Printf("\nTotal: %d invoice(s)\n", len(invoices))
		return nil
	},
}

var invoicesCreateCmd = &cobra.Command{
	Use:   "create [customer_id_or_name]",
	Short: "Create a new draft invoice",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		customer, err := resolveCustomer(ctx, appInstance.CustomerRepo, args[0])
		if err != nil {
			return err
		}

		totalStr, _ := cmd.Flags().GetString("total")
		total, err := parseAmount(totalStr)
		if err != nil {
			return err
		}

		issuedStr, _ := cmd.Flags().GetString("issued")
		issued, err := parseDate(issuedStr)
		if err != nil {
			return fmt.Errorf("invalid issue date: %w", err)
		}

		input := service.CreateInvoiceInput{
			CustomerID: customer.ID,
			Total:      total,
			IssuedAt:   issued,
		}
		input.Number, _ = cmd.Flags().GetString("number")
		if cmd.Flags().Changed("due-days") {
			days, _ := cmd.Flags().GetInt("due-days")
			input.DueDays = &days
		}

		invoice, err := appInstance.InvoiceService.CreateInvoice(ctx, input)
		if err != nil {
			return fmt.Errorf("failed to create invoice: %w", err)
		}

		fmt.Printf("✓ Draft invoice created: %s\n", invoice.InvoiceNumber)
		fmt.Printf("  Customer: %s\n", customer.Name)
		fmt.Printf("  Total: %s\n", formatAmount(invoice.Total))
		if invoice.DueDate != nil {
			fmt.Printf("  Due: %s\n", formatDate(*invoice.DueDate))
		}
		return nil
	},
}

var invoicesShowCmd = &cobra.Command{
	Use:   "show [number_or_id]",
	Short: "Show invoice details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		invoice, err := appInstance.InvoiceService.GetInvoice(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to get invoice: %w", err)
		}

		customerName := newCustomerNames(appInstance.CustomerRepo).get(ctx, invoice.CustomerID)

		fmt.Println(strings.Repeat("=", 60))
		fmt.Println(titleStyle.Render("Invoice: " + invoice.InvoiceNumber))
		fmt.Println(strings.Repeat("=", 60))
		fmt.Printf("Customer: %s\n", customerName)
		fmt.Printf("Issued:   %s\n", formatDate(invoice.IssuedAt))
		if invoice.DueDate != nil {
			fmt.Printf("Due:      %s\n", formatDate(*invoice.DueDate))
		}
		fmt.Printf("Status:   %s\n", renderStatus(invoice.Status, 0))
		fmt.Println()
		fmt.Printf("Total:       %12s\n", formatAmount(invoice.Total))
		fmt.Printf("Paid:        %12s\n", formatAmount(invoice.AmountPaid))
		if outstanding, err := invoice.Outstanding(); err == nil {
			label := "Outstanding:"
			if outstanding.IsNegative() {
				label = "Credit:     "
				outstanding = outstanding.Neg()
			}
			fmt.Printf("%s %12s\n", label, totalStyle.Render(formatMoney(outstanding)))
		}

		payments, err := appInstance.PaymentService.ListPayments(ctx, repository.PaymentFilter{InvoiceID: &invoice.ID})
		if err != nil {
			return fmt.Errorf("failed to load payments: %w", err)
		}
		if len(payments) > 0 {
			fmt.Println()
			fmt.Println("Payments:")
			fmt.Println(strings.Repeat("-", 60))
			for _, p := range payments {
				fmt.Printf("%-12s %12s  %-15s %s\n",
					formatDate(p.PaidAt),
					formatAmount(p.Amount),
					truncate(p.Reference, 15),
					p.Method,
				)
			}
		}
		fmt.Println(strings.Repeat("=", 60))

		return nil
	},
}

var invoicesSendCmd = &cobra.Command{
	Use:   "send [number_or_id]",
	Short: "Mark a draft invoice as sent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		invoice, err := appInstance.InvoiceService.GetInvoice(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to get invoice: %w", err)
		}

		invoice, err = appInstance.InvoiceService.MarkSent(ctx, invoice.ID)
		if err != nil {
			return fmt.Errorf("failed to mark invoice as sent: %w", err)
		}

		fmt.Printf("✓ Invoice %s marked as sent\n", invoice.InvoiceNumber)
		return nil
	},
}

var invoicesCancelCmd = &cobra.Command{
	Use:   "cancel [number_or_id]",
	Short: "Cancel an invoice that has received no payments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		invoice, err := appInstance.InvoiceService.GetInvoice(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to get invoice: %w", err)
		}

		reason, _ := cmd.Flags().GetString("reason")
		invoice, err = appInstance.InvoiceService.Cancel(ctx, invoice.ID, reason)
		if err != nil {
			return fmt.Errorf("failed to cancel invoice: %w", err)
		}

		fmt.Printf("✓ Invoice %s cancelled\n", invoice.InvoiceNumber)
		return nil
	},
}

var invoicesCheckOverdueCmd = &cobra.Command{
	Use:   "check-overdue",
	Short: "Mark sent and partially paid invoices past their due date as overdue",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		changed, err := appInstance.InvoiceService.CheckOverdue(ctx)
		if err != nil {
			return fmt.Errorf("failed to check overdue invoices: %w", err)
		}

		if len(changed) == 0 {
			fmt.Println("No invoices became overdue")
			return nil
		}

		for _, inv := range changed {
			fmt.Printf("✓ %s is overdue (due %s)\n", inv.InvoiceNumber, formatDate(*inv.DueDate))
		}
		return nil
	},
}

var invoicesHistoryCmd = &cobra.Command{
	Use:   "history [number_or_id]",
	Short: "Show the settlement audit trail of an invoice",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		invoice, err := appInstance.InvoiceService.GetInvoice(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to get invoice: %w", err)
		}

		history, err := appInstance.InvoiceService.History(ctx, invoice.ID)
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}

		if len(history) == 0 {
			fmt.Println("No changes recorded")
			return nil
		}

		fmt.Printf("%-20s %-12s %-12s %-12s %s\n", "Changed", "Field", "Old", "New", "Reason")
		fmt.Println("--------------------------------------------------------------------------------")
		for _, h := range history {
			fmt.Printf("%-20s %-12s %-12s %-12s %s\n",
				h.ChangedAt.Local().Format("2006-01-02 15:04"),
				h.FieldName,
				truncate(h.OldValue, 12),
				truncate(h.NewValue, 12),
				h.ChangeReason,
			)
		}
		return nil
	},
}

func init() {
	invoicesCmd.AddCommand(invoicesListCmd)
	invoicesCmd.AddCommand(invoicesCreateCmd)
	invoicesCmd.AddCommand(invoicesShowCmd)
	invoicesCmd.AddCommand(invoicesSendCmd)
	invoicesCmd.AddCommand(invoicesCancelCmd)
	invoicesCmd.AddCommand(invoicesCheckOverdueCmd)
	invoicesCmd.AddCommand(invoicesHistoryCmd)

	// List flags
	invoicesListCmd.Flags().String("customer", "", "Filter by customer ID or name")
	invoicesListCmd.Flags().String("status", "", "Filter by status (draft, sent, partial, paid, overdue, cancelled)")

	// Create flags
	invoicesCreateCmd.Flags().String("total", "", "Invoice total (required)")
	invoicesCreateCmd.Flags().String("issued", "today", "Issue date")
	invoicesCreateCmd.Flags().Int("due-days", 0, "Days until due (defaults to config)")
	invoicesCreateCmd.Flags().String("number", "", "Invoice number (generated when empty)")
	invoicesCreateCmd.MarkFlagRequired("total")

	// Cancel flags
	invoicesCancelCmd.Flags().String("reason", "", "Why the invoice is cancelled")
}
