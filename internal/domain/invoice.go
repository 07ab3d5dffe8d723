package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusPartial   InvoiceStatus = "partial"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
)

// IsValid reports whether s is a known settlement state
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPartial,
		InvoiceStatusPaid, InvoiceStatusCancelled, InvoiceStatusOverdue:
		return true
	}
	return false
}

// ParseInvoiceStatus converts a string to an InvoiceStatus
func ParseInvoiceStatus(s string) (InvoiceStatus, error) {
	status := InvoiceStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("unknown invoice status %q", s)
	}
	return status, nil
}

type Invoice struct {
	ID            string
	InvoiceNumber string
	CustomerID    string
	IssuedAt      time.Time // zero if missing from the source record
	DueDate       *time.Time
	Total         Amount
	AmountPaid    Amount
	Status        InvoiceStatus
	Version       int64 // bumped on every settlement change
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewInvoice creates a new draft invoice with nothing paid
func NewInvoice(invoiceNumber, customerID string, issuedAt time.Time, total decimal.Decimal) *Invoice {
	now := time.Now()
	return &Invoice{
		ID:            uuid.New().String(),
		InvoiceNumber: invoiceNumber,
		CustomerID:    customerID,
		IssuedAt:      issuedAt,
		Total:         NewAmount(total),
		AmountPaid:    NewAmount(decimal.Zero),
		Status:        InvoiceStatusDraft,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// IsTerminal returns true if the invoice can no longer change state
func (i *Invoice) IsTerminal() bool {
	return i.Status == InvoiceStatusCancelled
}

// CanCancel returns true if the invoice has not received money and is not settled
func (i *Invoice) CanCancel() bool {
	if i.Status == InvoiceStatusPaid || i.Status == InvoiceStatusCancelled {
		return false
	}
	paid, err := i.AmountPaid.Decimal()
	return err == nil && paid.IsZero()
}

// Outstanding returns Total - AmountPaid. A negative result is customer credit.
func (i *Invoice) Outstanding() (decimal.Decimal, error) {
	total, err := i.Total.Decimal()
	if err != nil {
		return decimal.Zero, fmt.Errorf("total: %w", err)
	}
	paid, err := i.AmountPaid.Decimal()
	if err != nil {
		return decimal.Zero, fmt.Errorf("amount paid: %w", err)
	}
	return total.Sub(paid), nil
}

// Validate returns an error if the invoice is invalid
func (i *Invoice) Validate() error {
	if i.ID == "" {
		return errors.New("invoice ID is required")
	}
	if i.InvoiceNumber == "" {
		return errors.New("invoice number is required")
	}
	if i.CustomerID == "" {
		return errors.New("customer ID is required")
	}
	if i.IssuedAt.IsZero() {
		return errors.New("issue date is required")
	}
	total, err := i.Total.Decimal()
	if err != nil {
		return fmt.Errorf("invalid total: %w", err)
	}
	if total.IsNegative() {
		return errors.New("total cannot be negative")
	}
	paid, err := i.AmountPaid.Decimal()
	if err != nil {
		return fmt.Errorf("invalid amount paid: %w", err)
	}
	if paid.IsNegative() {
		return errors.New("amount paid cannot be negative")
	}
	if !i.Status.IsValid() {
		return fmt.Errorf("unknown invoice status %q", i.Status)
	}
	if i.DueDate != nil && Day(*i.DueDate).Before(Day(i.IssuedAt)) {
		return errors.New("due date must not be before issue date")
	}
	return nil
}
