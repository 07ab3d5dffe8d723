package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andy/tally/internal/config"
	"github.com/andy/tally/internal/domain"
	"github.com/andy/tally/internal/ledger"
	"github.com/andy/tally/internal/logger"
	"github.com/andy/tally/internal/repository"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var (
	ErrInvoiceNotCancellable = errors.New("invoice has received money or is already closed")
	ErrInvalidTransition     = errors.New("invalid invoice status transition")
	ErrInvalidAmount         = errors.New("amount must not be negative")
)

var validate = validator.New()

// CreateInvoiceInput describes a new invoice. DueDays nil uses the configured default.
type CreateInvoiceInput struct {
	CustomerID string          `validate:"required"`
	Total      decimal.Decimal `validate:"-"`
	IssuedAt   time.Time       `validate:"required"`
	DueDays    *int            `validate:"omitempty,gte=0,lte=365"`
	Number     string          `validate:"omitempty,max=32"` // auto-generated when empty
}

// InvoiceService manages the invoice lifecycle around settlement
type InvoiceService interface {
	// CreateInvoice creates a draft invoice with an auto-generated number
	CreateInvoice(ctx context.Context, in CreateInvoiceInput) (*domain.Invoice, error)

	// MarkSent moves a draft invoice to sent
	MarkSent(ctx context.Context, invoiceID string) (*domain.Invoice, error)

	// Cancel voids an invoice that has not received money
	Cancel(ctx context.Context, invoiceID, reason string) (*domain.Invoice, error)

	// CheckOverdue marks sent and partially paid invoices past due as overdue
	CheckOverdue(ctx context.Context) ([]*domain.Invoice, error)

	// GetInvoice retrieves an invoice by number or ID
	GetInvoice(ctx context.Context, ref string) (*domain.Invoice, error)

	// ListInvoices lists invoices with optional filters
	ListInvoices(ctx context.Context, filter repository.InvoiceFilter) ([]*domain.Invoice, error)

	// History returns the settlement audit trail of an invoice
	History(ctx context.Context, invoiceID string) ([]*domain.InvoiceHistory, error)
}

type invoiceService struct {
	invoiceRepo  repository.InvoiceRepository
	customerRepo repository.CustomerRepository
	cfg          config.InvoiceConfig
	now          func() time.Time
	log          zerolog.Logger
}

// NewInvoiceService creates a new invoice service
func NewInvoiceService(
	invoiceRepo repository.InvoiceRepository,
	customerRepo repository.CustomerRepository,
	cfg config.InvoiceConfig,
) InvoiceService {
	return &invoiceService{
		invoiceRepo:  invoiceRepo,
		customerRepo: customerRepo,
		cfg:          cfg,
		now:          time.Now,
		log:          logger.WithComponent("invoices"),
	}
}

func (s *invoiceService) CreateInvoice(ctx context.Context, in CreateInvoiceInput) (*domain.Invoice, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("invalid invoice input: %w", err)
	}
	if in.Total.IsNegative() {
		return nil, ErrInvalidAmount
	}

	customer, err := s.customerRepo.GetByID(ctx, in.CustomerID)
	if err != nil {
		return nil, err
	}
	if customer.IsArchived {
		return nil, fmt.Errorf("customer %s is archived", customer.Name)
	}

	number := in.Number
	if number == "" {
		number, err = s.invoiceRepo.GetNextInvoiceNumber(ctx, s.cfg.NumberPrefix, in.IssuedAt.Year())
		if err != nil {
			return nil, fmt.Errorf("failed to generate invoice number: %w", err)
		}
	}

	invoice := domain.NewInvoice(number, customer.ID, in.IssuedAt, in.Total)

	dueDays := s.cfg.DefaultDueDays
	if in.DueDays != nil {
		dueDays = *in.DueDays
	}
	due := domain.Day(in.IssuedAt).AddDate(0, 0, dueDays)
	invoice.DueDate = &due

	if err := invoice.Validate(); err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.Create(ctx, invoice); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("invoice", invoice.InvoiceNumber).
		Str("customer_id", customer.ID).
		Str("total", in.Total.String()).
		Msg("invoice created")

	return invoice, nil
}

func (s *invoiceService) MarkSent(ctx context.Context, invoiceID string) (*domain.Invoice, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	if invoice.Status != domain.InvoiceStatusDraft {
		return nil, fmt.Errorf("%w: cannot send a %s invoice", ErrInvalidTransition, invoice.Status)
	}

	if err := s.invoiceRepo.UpdateStatus(ctx, invoice, domain.InvoiceStatusSent, "sent to customer"); err != nil {
		return nil, err
	}

	return invoice, nil
}

func (s *invoiceService) Cancel(ctx context.Context, invoiceID, reason string) (*domain.Invoice, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	if !invoice.CanCancel() {
		return nil, fmt.Errorf("%w: %s is %s", ErrInvoiceNotCancellable, invoice.InvoiceNumber, invoice.Status)
	}

	if reason == "" {
		reason = "cancelled"
	}
	if err := s.invoiceRepo.UpdateStatus(ctx, invoice, domain.InvoiceStatusCancelled, reason); err != nil {
		return nil, err
	}

	return invoice, nil
}

func (s *invoiceService) CheckOverdue(ctx context.Context) ([]*domain.Invoice, error) {
	now := s.now()
	changed := make([]*domain.Invoice, 0)

	for _, status := range []domain.InvoiceStatus{domain.InvoiceStatusSent, domain.InvoiceStatusPartial} {
		st := status
		invoices, err := s.invoiceRepo.List(ctx, repository.InvoiceFilter{Status: &st})
		if err != nil {
			return nil, err
		}

		for _, invoice := range invoices {
			next, ok := ledger.DeriveOverdue(*invoice, now)
			if !ok {
				continue
			}
			err := s.invoiceRepo.UpdateStatus(ctx, invoice, next, "past due date")
			if errors.Is(err, repository.ErrVersionConflict) {
				// a payment landed first; the next run re-evaluates it
				s.log.Warn().Str("invoice", invoice.InvoiceNumber).Msg("skipped overdue check after concurrent update")
				continue
			}
			if err != nil {
				return nil, err
			}
			changed = append(changed, invoice)
		}
	}

	return changed, nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, ref string) (*domain.Invoice, error) {
	invoice, err := s.invoiceRepo.GetByNumber(ctx, ref)
	if errors.Is(err, repository.ErrNotFound) {
		return s.invoiceRepo.GetByID(ctx, ref)
	}
	return invoice, err
}

func (s *invoiceService) ListInvoices(ctx context.Context, filter repository.InvoiceFilter) ([]*domain.Invoice, error) {
	return s.invoiceRepo.List(ctx, filter)
}

func (s *invoiceService) History(ctx context.Context, invoiceID string) ([]*domain.InvoiceHistory, error) {
	return s.invoiceRepo.History(ctx, invoiceID)
}
