package service

import (
	"context"
	"fmt"
	"time"

	"github.com/andy/tally/internal/domain"
	"github.com/andy/tally/internal/ledger"
	"github.com/andy/tally/internal/logger"
	"github.com/andy/tally/internal/repository"
	"github.com/rs/zerolog"
)

// StatementService builds customer statements from stored history
type StatementService interface {
	// Statement computes the statement of customerID for [start, end].
	// opts are applied after the configured malformed-record policy.
	Statement(ctx context.Context, customerID string, start, end time.Time, opts ...ledger.Option) (*ledger.Statement, error)
}

type statementService struct {
	customerRepo repository.CustomerRepository
	invoiceRepo  repository.InvoiceRepository
	paymentRepo  repository.PaymentRepository
	policy       ledger.MalformedPolicy
	log          zerolog.Logger
}

// NewStatementService creates a new statement service
func NewStatementService(
	customerRepo repository.CustomerRepository,
	invoiceRepo repository.InvoiceRepository,
	paymentRepo repository.PaymentRepository,
	policy ledger.MalformedPolicy,
) StatementService {
	return &statementService{
		customerRepo: customerRepo,
		invoiceRepo:  invoiceRepo,
		paymentRepo:  paymentRepo,
		policy:       policy,
		log:          logger.WithComponent("statements"),
	}
}

func (s *statementService) Statement(
	ctx context.Context,
	customerID string,
	start, end time.Time,
	opts ...ledger.Option,
) (*ledger.Statement, error) {
	period, err := ledger.NewPeriod(start, end)
	if err != nil {
		return nil, err
	}

	if _, err := s.customerRepo.GetByID(ctx, customerID); err != nil {
		return nil, err
	}

	invoices, payments, err := loadHistory(ctx, s.invoiceRepo, s.paymentRepo, customerID)
	if err != nil {
		return nil, err
	}

	all := append([]ledger.Option{ledger.WithMalformedPolicy(s.policy)}, opts...)
	st, err := ledger.ComputeStatement(customerID, period, invoices, payments, all...)
	if err != nil {
		return nil, err
	}

	for _, skipped := range st.Skipped {
		s.log.Warn().
			Str("customer_id", customerID).
			Str("kind", string(skipped.Kind)).
			Str("id", skipped.ID).
			Str("field", skipped.Field).
			Err(skipped.Err).
			Msg("skipping malformed record")
	}

	return st, nil
}

// loadHistory returns the complete billable history of one customer.
// Draft and cancelled invoices were never owed and are left out.
func loadHistory(
	ctx context.Context,
	invoiceRepo repository.InvoiceRepository,
	paymentRepo repository.PaymentRepository,
	customerID string,
) ([]domain.Invoice, []domain.Payment, error) {
	invoiceRows, err := invoiceRepo.List(ctx, repository.InvoiceFilter{CustomerID: &customerID})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load invoices: %w", err)
	}
	paymentRows, err := paymentRepo.List(ctx, repository.PaymentFilter{CustomerID: &customerID})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load payments: %w", err)
	}

	invoices := make([]domain.Invoice, 0, len(invoiceRows))
	for _, inv := range invoiceRows {
		if inv.Status == domain.InvoiceStatusDraft || inv.Status == domain.InvoiceStatusCancelled {
			continue
		}
		invoices = append(invoices, *inv)
	}

	payments := make([]domain.Payment, 0, len(paymentRows))
	for _, p := range paymentRows {
		payments = append(payments, *p)
	}

	return invoices, payments, nil
}
