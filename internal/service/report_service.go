package service

import (
	"context"
	"fmt"
	"time"

	"github.com/andy/tally/internal/domain"
	"github.com/andy/tally/internal/ledger"
	"github.com/andy/tally/internal/repository"
	"github.com/shopspring/decimal"
)

// CustomerBalance is one customer's position as of a date
type CustomerBalance struct {
	CustomerID   string          `json:"customer_id"`
	Name         string          `json:"name"`
	Balance      decimal.Decimal `json:"balance"`     // positive: customer owes
	Outstanding  decimal.Decimal `json:"outstanding"` // max(balance, 0)
	Credit       decimal.Decimal `json:"credit"`      // max(-balance, 0)
	OpenInvoices int             `json:"open_invoices"`
	Overdue      int             `json:"overdue"`
}

// Receivables summarizes what every customer owes
type Receivables struct {
	AsOf             time.Time                      `json:"as_of"`
	Customers        []CustomerBalance              `json:"customers"`
	TotalOutstanding decimal.Decimal                `json:"total_outstanding"`
	TotalCredit      decimal.Decimal                `json:"total_credit"`
	Skipped          []*ledger.MalformedRecordError `json:"skipped,omitempty"`
}

// ReportService provides aggregations across customers
type ReportService interface {
	// Receivables returns balances through asOf for every customer with a
	// non-zero balance or an open invoice.
	Receivables(ctx context.Context, asOf time.Time, includeArchived bool) (*Receivables, error)
}

type reportService struct {
	customerRepo repository.CustomerRepository
	invoiceRepo  repository.InvoiceRepository
	paymentRepo  repository.PaymentRepository
}

// NewReportService creates a new report service
func NewReportService(
	customerRepo repository.CustomerRepository,
	invoiceRepo repository.InvoiceRepository,
	paymentRepo repository.PaymentRepository,
) ReportService {
	return &reportService{
		customerRepo: customerRepo,
		invoiceRepo:  invoiceRepo,
		paymentRepo:  paymentRepo,
	}
}

func (s *reportService) Receivables(ctx context.Context, asOf time.Time, includeArchived bool) (*Receivables, error) {
	customers, err := s.customerRepo.List(ctx, includeArchived)
	if err != nil {
		return nil, err
	}

	// A one-day statement ending at asOf closes on the full balance to date.
	day := domain.Day(asOf)
	period := ledger.Period{Start: day, End: day}

	report := &Receivables{
		AsOf:             day,
		Customers:        make([]CustomerBalance, 0),
		TotalOutstanding: decimal.Zero,
		TotalCredit:      decimal.Zero,
	}

	for _, c := range customers {
		invoices, payments, err := loadHistory(ctx, s.invoiceRepo, s.paymentRepo, c.ID)
		if err != nil {
			return nil, err
		}

		st, err := ledger.ComputeStatement(c.ID, period, invoices, payments)
		if err != nil {
			return nil, fmt.Errorf("failed to compute balance for %s: %w", c.Name, err)
		}
		report.Skipped = append(report.Skipped, st.Skipped...)

		cb := CustomerBalance{
			CustomerID:  c.ID,
			Name:        c.Name,
			Balance:     st.Totals.ClosingBalance,
			Outstanding: decimal.Zero,
			Credit:      decimal.Zero,
		}
		if cb.Balance.IsPositive() {
			cb.Outstanding = cb.Balance
		} else {
			cb.Credit = cb.Balance.Neg()
		}

		for _, inv := range invoices {
			switch inv.Status {
			case domain.InvoiceStatusOverdue:
				cb.Overdue++
				cb.OpenInvoices++
			case domain.InvoiceStatusSent, domain.InvoiceStatusPartial:
				cb.OpenInvoices++
			}
		}

		if cb.Balance.IsZero() && cb.OpenInvoices == 0 {
			continue
		}

		report.Customers = append(report.Customers, cb)
		report.TotalOutstanding = report.TotalOutstanding.Add(cb.Outstanding)
		report.TotalCredit = report.TotalCredit.Add(cb.Credit)
	}

	return report, nil
}
