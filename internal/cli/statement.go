package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/andy/tally/internal/ledger"
	"github.com/andy/tally/internal/service"
	"github.com/spf13/cobra"
)

var statementCmd = &cobra.Command{
	Use:   "statement [customer_id_or_name]",
	Short: "Print a customer's account statement for a period",
	Long: `Print the opening balance, every invoice and payment dated inside the
period with a running balance, and the closing balance.

Records that cannot be read (non-numeric amounts, missing dates) are listed
at the end and left out of the balances. Use --strict to fail instead.`,
	Example: `  tally statement Acme --from 2024-01-01 --to 2024-01-31
  tally statement Acme --from 2024-01-01 --to 2024-03-31 --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		customer, err := resolveCustomer(ctx, appInstance.CustomerRepo, args[0])
		if err != nil {
			return err
		}

		fromStr, _ := cmd.Flags().GetString("from")
		toStr, _ := cmd.Flags().GetString("to")
		start, err := parseDate(fromStr)
		if err != nil {
			return fmt.Errorf("invalid start date: %w", err)
		}
		end, err := parseDate(toStr)
		if err != nil {
			return fmt.Errorf("invalid end date: %w", err)
		}

		var opts []ledger.Option
		if strict, _ := cmd.Flags().GetBool("strict"); strict {
			opts = append(opts, ledger.WithMalformedPolicy(ledger.AbortOnMalformed))
		}

		st, err := appInstance.StatementService.Statement(ctx, customer.ID, start, end, opts...)
		if err != nil {
			return fmt.Errorf("failed to compute statement: %w", err)
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return writeJSON(os.Stdout, st)
		}
		printStatement(os.Stdout, customer.Name, st)
		return nil
	},
}

func printStatement(w io.Writer, customerName string, st *ledger.Statement) {
	fmt.Fprintln(w, titleStyle.Render("Statement: "+customerName))
	fmt.Fprintln(w, subtitleStyle.Render(fmt.Sprintf("%s to %s",
		formatDate(st.PeriodStart), formatDate(st.PeriodEnd))))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%-12s %-8s %-18s %12s %12s\n", "Date", "Type", "Reference", "Amount", "Balance")
	fmt.Fprintln(w, strings.Repeat("-", 66))
	fmt.Fprintf(w, "%-12s %-8s %-18s %12s %12s\n",
		formatDate(st.PeriodStart), "", "Opening balance", "", formatMoney(st.OpeningBalance))

	for _, line := range st.Lines {
		fmt.Fprintf(w, "%-12s %-8s %-18s %12s %12s\n",
			formatDate(line.Date),
			line.Kind,
			truncate(line.Reference, 18),
			formatMoney(line.Amount),
			formatMoney(line.Balance),
		)
	}

	fmt.Fprintln(w, strings.Repeat("-", 66))
	fmt.Fprintf(w, "%-40s %12s\n", "Charges", formatMoney(st.Totals.Charges))
	fmt.Fprintf(w, "%-40s %12s\n", "Payments", formatMoney(st.Totals.Payments))
	fmt.Fprintf(w, "%-40s %s\n", "Closing balance",
		totalStyle.Render(fmt.Sprintf("%12s", formatMoney(st.Totals.ClosingBalance))))

	printSkipped(w, st.Skipped)
}

func printSkipped(w io.Writer, skipped []*ledger.MalformedRecordError) {
	if len(skipped) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, warningStyle.Render(fmt.Sprintf("%d record(s) skipped:", len(skipped))))
	for _, rec := range skipped {
		fmt.Fprintf(w, "  %s\n", rec.Error())
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Reports across all customers",
}

var reportReceivablesCmd = &cobra.Command{
	Use:   "receivables",
	Short: "Show what every customer owes",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		asOf := time.Now()
		if cmd.Flags().Changed("as-of") {
			asOfStr, _ := cmd.Flags().GetString("as-of")
			var err error
			asOf, err = parseDate(asOfStr)
			if err != nil {
				return fmt.Errorf("invalid as-of date: %w", err)
			}
		}
		includeArchived, _ := cmd.Flags().GetBool("archived")

		report, err := appInstance.ReportService.Receivables(ctx, asOf, includeArchived)
		if err != nil {
			return fmt.Errorf("failed to build receivables report: %w", err)
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return writeJSON(os.Stdout, report)
		}
		printReceivables(os.Stdout, report)
		return nil
	},
}

func printReceivables(w io.Writer, r *service.Receivables) {
	fmt.Fprintln(w, titleStyle.Render("Receivables as of "+formatDate(r.AsOf)))
	fmt.Fprintln(w)

	if len(r.Customers) == 0 {
		fmt.Fprintln(w, "Nothing outstanding")
		printSkipped(w, r.Skipped)
		return
	}

	fmt.Fprintf(w, "%-25s %12s %12s %6s %8s\n", "Customer", "Outstanding", "Credit", "Open", "Overdue")
	fmt.Fprintln(w, strings.Repeat("-", 67))
	for _, c := range r.Customers {
		overdue := fmt.Sprintf("%8d", c.Overdue)
		if c.Overdue > 0 {
			overdue = errorStyle.Render(overdue)
		}
		fmt.Fprintf(w, "%-25s %12s %12s %6d %s\n",
			truncate(c.Name, 25),
			formatMoney(c.Outstanding),
			formatMoney(c.Credit),
			c.OpenInvoices,
			overdue,
		)
	}
	fmt.Fprintln(w, strings.Repeat("-", 67))
	fmt.Fprintf(w, "%-25s %s %12s\n", "Total",
		totalStyle.Render(fmt.Sprintf("%12s", formatMoney(r.TotalOutstanding))),
		formatMoney(r.TotalCredit))

	printSkipped(w, r.Skipped)
}

func init() {
	reportCmd.AddCommand(reportReceivablesCmd)

	statementCmd.Flags().String("from", "", "First day of the period (required)")
	statementCmd.Flags().String("to", "today", "Last day of the period")
	statementCmd.Flags().Bool("strict", false, "Fail on unreadable records instead of skipping them")
	statementCmd.Flags().Bool("json", false, "Print the statement as JSON")
	statementCmd.MarkFlagRequired("from")

	reportReceivablesCmd.Flags().String("as-of", "", "Balance date (defaults to today)")
	reportReceivablesCmd.Flags().Bool("archived", false, "Include archived customers")
	reportReceivablesCmd.Flags().Bool("json", false, "Print the report as JSON")
}
