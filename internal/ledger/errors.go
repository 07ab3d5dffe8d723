package ledger

import (
	"errors"
	"fmt"

	"github.com/andy/tally/internal/domain"
)

var (
	// ErrMalformedRecord matches every *MalformedRecordError.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrInvalidState matches every *InvalidStateError.
	ErrInvalidState = errors.New("invalid invoice state")

	// ErrInvalidPeriod is returned when a statement period starts after it ends.
	ErrInvalidPeriod = errors.New("period start is after period end")

	// ErrMissingDate is the cause recorded when a record has no effective date.
	ErrMissingDate = errors.New("date is missing")

	// ErrForeignCustomer is the cause recorded when a record belongs to a
	// different customer than the statement being computed.
	ErrForeignCustomer = errors.New("record belongs to another customer")
)

// RecordKind names the source record type behind a transaction.
type RecordKind string

const (
	RecordInvoice RecordKind = "invoice"
	RecordPayment RecordKind = "payment"
)

// MalformedRecordError reports a source record that cannot be turned into a
// transaction. Err holds the cause (domain.ErrNotNumeric, ErrMissingDate,
// ErrForeignCustomer).
type MalformedRecordError struct {
	Kind  RecordKind `json:"kind"`
	ID    string     `json:"id"`
	Field string     `json:"field"`
	Err   error      `json:"-"`
}

// Error implements the error interface.
func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed %s %s: field %s: %v", e.Kind, e.ID, e.Field, e.Err)
}

// Unwrap returns the cause.
func (e *MalformedRecordError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrMalformedRecord) true.
func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}

func malformed(kind RecordKind, id, field string, err error) *MalformedRecordError {
	return &MalformedRecordError{Kind: kind, ID: id, Field: field, Err: err}
}

// InvalidStateError reports a payment that cannot be applied. No mutation
// is implied when it is returned.
type InvalidStateError struct {
	InvoiceID string
	Status    domain.InvoiceStatus
	Reason    string
}

// Error implements the error interface.
func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot apply payment to invoice %s (status %s): %s", e.InvoiceID, e.Status, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidState) true.
func (e *InvalidStateError) Is(target error) bool {
	return target == ErrInvalidState
}
