package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment is a single receipt of funds against a customer account,
// optionally tied to one invoice. Payments are never edited once recorded.
type Payment struct {
	ID         string
	CustomerID string
	InvoiceID  *string // nil = unapplied customer payment
	Amount     Amount
	PaidAt     time.Time // zero if missing from the source record
	Reference  string
	Method     string
	CreatedAt  time.Time
}

// NewPayment creates a payment with a generated ID
func NewPayment(customerID string, amount decimal.Decimal, paidAt time.Time) *Payment {
	return &Payment{
		ID:         uuid.New().String(),
		CustomerID: customerID,
		Amount:     NewAmount(amount),
		PaidAt:     paidAt,
		CreatedAt:  time.Now(),
	}
}

// ForInvoice ties the payment to an invoice
func (p *Payment) ForInvoice(invoiceID string) *Payment {
	p.InvoiceID = &invoiceID
	return p
}

// Validate returns an error if the payment is invalid
func (p *Payment) Validate() error {
	if p.ID == "" {
		return errors.New("payment ID is required")
	}
	if p.CustomerID == "" {
		return errors.New("customer ID is required")
	}
	amount, err := p.Amount.Decimal()
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	if !amount.IsPositive() {
		return errors.New("payment amount must be positive")
	}
	if p.PaidAt.IsZero() {
		return errors.New("payment date is required")
	}
	return nil
}
