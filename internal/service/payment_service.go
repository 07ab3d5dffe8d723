package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andy/tally/internal/domain"
	"github.com/andy/tally/internal/ledger"
	"github.com/andy/tally/internal/logger"
	"github.com/andy/tally/internal/repository"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ErrConcurrentUpdate is returned when every settle attempt lost a race
// against another writer of the same invoice.
var ErrConcurrentUpdate = errors.New("invoice kept changing while applying payment")

// RecordPaymentInput is money received against one invoice
type RecordPaymentInput struct {
	InvoiceID string          `validate:"required"`
	Amount    decimal.Decimal `validate:"-"`
	PaidAt    time.Time       `validate:"required"`
	Reference string          `validate:"max=64"`
	Method    string          `validate:"max=32"`
}

// UnappliedPaymentInput is money received from a customer with no invoice
type UnappliedPaymentInput struct {
	CustomerID string          `validate:"required"`
	Amount     decimal.Decimal `validate:"-"`
	PaidAt     time.Time       `validate:"required"`
	Reference  string          `validate:"max=64"`
	Method     string          `validate:"max=32"`
}

// PaymentResult is the outcome of applying a payment
type PaymentResult struct {
	Payment  *domain.Payment
	Invoice  *domain.Invoice // state after the payment
	Overpaid decimal.Decimal // amount paid above the invoice total
	Attempts int
}

// PaymentService records payments and settles invoices
type PaymentService interface {
	// RecordPayment applies a payment to an invoice and persists both atomically
	RecordPayment(ctx context.Context, in RecordPaymentInput) (*PaymentResult, error)

	// RecordUnapplied stores a customer payment not tied to an invoice
	RecordUnapplied(ctx context.Context, in UnappliedPaymentInput) (*domain.Payment, error)

	// ListPayments lists payments with optional filters
	ListPayments(ctx context.Context, filter repository.PaymentFilter) ([]*domain.Payment, error)
}

type paymentService struct {
	invoiceRepo  repository.InvoiceRepository
	paymentRepo  repository.PaymentRepository
	customerRepo repository.CustomerRepository
	maxAttempts  int
	log          zerolog.Logger
}

// NewPaymentService creates a new payment service. maxAttempts bounds the
// optimistic settle loop and is raised to 1 if smaller.
func NewPaymentService(
	invoiceRepo repository.InvoiceRepository,
	paymentRepo repository.PaymentRepository,
	customerRepo repository.CustomerRepository,
	maxAttempts int,
) PaymentService {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &paymentService{
		invoiceRepo:  invoiceRepo,
		paymentRepo:  paymentRepo,
		customerRepo: customerRepo,
		maxAttempts:  maxAttempts,
		log:          logger.WithComponent("payments"),
	}
}

func (s *paymentService) RecordPayment(ctx context.Context, in RecordPaymentInput) (*PaymentResult, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("invalid payment input: %w", err)
	}

	var payment *domain.Payment
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		invoice, err := s.invoiceRepo.GetByID(ctx, in.InvoiceID)
		if err != nil {
			return nil, err
		}

		app, err := ledger.ApplyPayment(*invoice, in.Amount)
		if err != nil {
			return nil, err
		}

		if payment == nil {
			payment = domain.NewPayment(invoice.CustomerID, in.Amount, in.PaidAt).ForInvoice(invoice.ID)
			payment.Reference = strings.TrimSpace(in.Reference)
			payment.Method = strings.TrimSpace(in.Method)
		}

		err = s.invoiceRepo.Settle(ctx, repository.SettleRequest{
			Invoice:    invoice,
			Payment:    payment,
			AmountPaid: app.AmountPaid,
			Status:     app.Status,
			Reason:     settleReason(payment),
		})
		if errors.Is(err, repository.ErrVersionConflict) {
			s.log.Warn().
				Str("invoice_id", in.InvoiceID).
				Int("attempt", attempt).
				Int("max_attempts", s.maxAttempts).
				Msg("invoice changed during payment, retrying")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to settle invoice %s: %w", invoice.InvoiceNumber, err)
		}

		overpaid := app.Overpaid()
		if overpaid.IsPositive() {
			s.log.Info().
				Str("invoice", invoice.InvoiceNumber).
				Str("overpaid", overpaid.String()).
				Msg("invoice overpaid, excess held as customer credit")
		}

		return &PaymentResult{
			Payment:  payment,
			Invoice:  invoice,
			Overpaid: overpaid,
			Attempts: attempt,
		}, nil
	}

	return nil, fmt.Errorf("%w: invoice %s after %d attempts", ErrConcurrentUpdate, in.InvoiceID, s.maxAttempts)
}

func settleReason(p *domain.Payment) string {
	if p.Reference != "" {
		return "payment " + p.Reference
	}
	return "payment " + p.ID
}

func (s *paymentService) RecordUnapplied(ctx context.Context, in UnappliedPaymentInput) (*domain.Payment, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("invalid payment input: %w", err)
	}

	customer, err := s.customerRepo.GetByID(ctx, in.CustomerID)
	if err != nil {
		return nil, err
	}

	payment := domain.NewPayment(customer.ID, in.Amount, in.PaidAt)
	payment.Reference = strings.TrimSpace(in.Reference)
	payment.Method = strings.TrimSpace(in.Method)

	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("customer_id", customer.ID).
		Str("amount", in.Amount.String()).
		Msg("unapplied payment recorded")

	return payment, nil
}

func (s *paymentService) ListPayments(ctx context.Context, filter repository.PaymentFilter) ([]*domain.Payment, error) {
	return s.paymentRepo.List(ctx, filter)
}
