package repository

import (
	"context"
	"errors"

	"github.com/andy/tally/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict is returned by Settle and UpdateStatus when the
	// invoice changed after the caller read it. Nothing was written.
	ErrVersionConflict = errors.New("invoice was modified by another writer")
)

// CustomerRepository manages customer persistence
type CustomerRepository interface {
	Create(ctx context.Context, customer *domain.Customer) error
	GetByID(ctx context.Context, id string) (*domain.Customer, error)
	GetByName(ctx context.Context, name string) (*domain.Customer, error)
	List(ctx context.Context, includeArchived bool) ([]*domain.Customer, error)
	Update(ctx context.Context, customer *domain.Customer) error
	Archive(ctx context.Context, id string) error
}

// InvoiceFilter narrows List. Nil fields match everything.
type InvoiceFilter struct {
	CustomerID *string
	Status     *domain.InvoiceStatus
}

// SettleRequest is one payment applied to one invoice. Invoice is the
// snapshot the new state was derived from; its Version must still be current.
type SettleRequest struct {
	Invoice    *domain.Invoice
	Payment    *domain.Payment
	AmountPaid decimal.Decimal
	Status     domain.InvoiceStatus
	Reason     string
}

// InvoiceRepository manages invoice persistence with audit trail
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *domain.Invoice) error
	GetByID(ctx context.Context, id string) (*domain.Invoice, error)
	GetByNumber(ctx context.Context, number string) (*domain.Invoice, error)
	List(ctx context.Context, filter InvoiceFilter) ([]*domain.Invoice, error)
	// UpdateStatus moves invoice to status if its version is unchanged and
	// records the change in invoice_history.
	UpdateStatus(ctx context.Context, invoice *domain.Invoice, status domain.InvoiceStatus, reason string) error
	// Settle writes the payment and the invoice's new AmountPaid/Status in
	// one transaction, guarded by the invoice version.
	Settle(ctx context.Context, req SettleRequest) error
	History(ctx context.Context, invoiceID string) ([]*domain.InvoiceHistory, error)
	GetNextInvoiceNumber(ctx context.Context, prefix string, year int) (string, error)
}

// PaymentFilter narrows List. Nil fields match everything.
type PaymentFilter struct {
	CustomerID *string
	InvoiceID  *string
}

// PaymentRepository manages payment persistence. Payments are never
// updated; invoice-bound payments are written by InvoiceRepository.Settle.
type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	GetByID(ctx context.Context, id string) (*domain.Payment, error)
	List(ctx context.Context, filter PaymentFilter) ([]*domain.Payment, error)
}
