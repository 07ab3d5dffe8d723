package cli

import (
	"context"
	"fmt"

	"github.com/andy/tally/internal/repository"
	"github.com/andy/tally/internal/service"
	"github.com/spf13/cobra"
)

var paymentsCmd = &cobra.Command{
	Use:     "payments",
	Aliases: []string{"payment", "pay"},
	Short:   "Record and list payments",
	Long: `Record money received from customers.

A payment against an invoice settles it; a payment with only a customer is
held on the account as unapplied credit.`,
}

var paymentsRecordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a payment",
	Example: `  tally payments record --invoice INV-2024-0001 --amount 500
  tally payments record --customer Acme --amount 200 --reference CHK-1042`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		amountStr, _ := cmd.Flags().GetString("amount")
		amount, err := parseAmount(amountStr)
		if err != nil {
			return err
		}

		dateStr, _ := cmd.Flags().GetString("date")
		paidAt, err := parseDate(dateStr)
		if err != nil {
			return fmt.Errorf("invalid payment date: %w", err)
		}

		reference, _ := cmd.Flags().GetString("reference")
		method, _ := cmd.Flags().GetString("method")

		invoiceRef, _ := cmd.Flags().GetString("invoice")
		if invoiceRef == "" {
			customerRef, _ := cmd.Flags().GetString("customer")
			customer, err := resolveCustomer(ctx, appInstance.CustomerRepo, customerRef)
			if err != nil {
				return err
			}

			payment, err := appInstance.PaymentService.RecordUnapplied(ctx, service.UnappliedPaymentInput{
				CustomerID: customer.ID,
				Amount:     amount,
				PaidAt:     paidAt,
				Reference:  reference,
				Method:     method,
			})
			if err != nil {
				return fmt.Errorf("failed to record payment: %w", err)
			}

			fmt.Printf("✓ Payment of %s recorded for %s (unapplied)\n", formatAmount(payment.Amount), customer.Name)
			return nil
		}

		invoice, err := appInstance.InvoiceService.GetInvoice(ctx, invoiceRef)
		if err != nil {
			return fmt.Errorf("failed to get invoice: %w", err)
		}

		result, err := appInstance.PaymentService.RecordPayment(ctx, service.RecordPaymentInput{
			InvoiceID: invoice.ID,
			Amount:    amount,
			PaidAt:    paidAt,
			Reference: reference,
			Method:    method,
		})
		if err != nil {
			return fmt.Errorf("failed to record payment: %w", err)
		}

		fmt.Printf("✓ Payment of %s applied to %s\n", formatAmount(result.Payment.Amount), result.Invoice.InvoiceNumber)
		fmt.Printf("  Paid: %s of %s\n", formatAmount(result.Invoice.AmountPaid), formatAmount(result.Invoice.Total))
		fmt.Printf("  Status: %s\n", renderStatus(result.Invoice.Status, 0))
		if result.Overpaid.IsPositive() {
			fmt.Println(warningStyle.Render(fmt.Sprintf("  Overpaid by %s, held as customer credit", formatMoney(result.Overpaid))))
		}
		return nil
	},
}

var paymentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List payments",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		var filter repository.PaymentFilter
		if cmd.Flags().Changed("customer") {
			ref, _ := cmd.Flags().GetString("customer")
			customer, err := resolveCustomer(ctx, appInstance.CustomerRepo, ref)
			if err != nil {
				return err
			}
			filter.CustomerID = &customer.ID
		}
		if cmd.Flags().Changed("invoice") {
			ref, _ := cmd.Flags().GetString("invoice")
			invoice, err := appInstance.InvoiceService.GetInvoice(ctx, ref)
			if err != nil {
				return fmt.Errorf("failed to get invoice: %w", err)
			}
			filter.InvoiceID = &invoice.ID
		}

		payments, err := appInstance.PaymentService.ListPayments(ctx, filter)
		if err != nil {
			return fmt.Errorf("failed to list payments: %w", err)
		}

		if len(payments) == 0 {
			fmt.Println("No payments found")
			return nil
		}

		names := newCustomerNames(appInstance.CustomerRepo)
		invoiceNumbers := make(map[string]string)

		fmt.Printf("%-12s %-20s %-15s %12s %-15s %s\n", "Date", "Customer", "Invoice", "Amount", "Reference", "Method")
		fmt.Println("------------------------------------------------------------------------------------------")

		for _, p := range payments {
			invoiceNumber := "(unapplied)"
			if p.InvoiceID != nil {
				number, ok := invoiceNumbers[*p.InvoiceID]
				if !ok {
					number = shortID(*p.InvoiceID)
					if inv, err := appInstance.InvoiceRepo.GetByID(ctx, *p.InvoiceID); err == nil {
						number = inv.InvoiceNumber
					}
					invoiceNumbers[*p.InvoiceID] = number
				}
				invoiceNumber = number
			}

			fmt.Printf("%-12s %-20s %-15s %12s %-15s %s\n",
				formatDate(p.PaidAt),
				truncate(names.get(ctx, p.CustomerID), 20),
				truncate(invoiceNumber, 15),
				formatAmount(p.Amount),
				truncate(p.Reference, 15),
				p.Method,
			)
		}

		fmt.Printf("\nTotal: %d payment(s)\n", len(payments))
		return nil
	},
}

func init() {
	paymentsCmd.AddCommand(paymentsRecordCmd)
	paymentsCmd.AddCommand(paymentsListCmd)

	// Record flags
	paymentsRecordCmd.Flags().String("invoice", "", "Invoice number or ID to apply the payment to")
	paymentsRecordCmd.Flags().String("customer", "", "Customer ID or name for an unapplied payment")
	paymentsRecordCmd.Flags().String("amount", "", "Amount received (required)")
	paymentsRecordCmd.Flags().String("date", "today", "Date the money was received")
	paymentsRecordCmd.Flags().String("reference", "", "Check number, transfer ID, etc.")
	paymentsRecordCmd.Flags().String("method", "", "Payment method (check, ach, card, ...)")
	paymentsRecordCmd.MarkFlagRequired("amount")
	paymentsRecordCmd.MarkFlagsOneRequired("invoice", "customer")
	paymentsRecordCmd.MarkFlagsMutuallyExclusive("invoice", "customer")

	// List flags
	paymentsListCmd.Flags().String("customer", "", "Filter by customer ID or name")
	paymentsListCmd.Flags().String("invoice", "", "Filter by invoice number or ID")
}
