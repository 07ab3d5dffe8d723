package ledger

import (
	"time"

	"github.com/andy/tally/internal/domain"
	"github.com/shopspring/decimal"
)

// Application is the settlement an invoice should move to after a payment.
// The caller persists AmountPaid and Status together with the payment row.
type Application struct {
	AmountPaid decimal.Decimal
	Status     domain.InvoiceStatus
	Total      decimal.Decimal
}

// Overpaid returns how far AmountPaid exceeds Total, or zero
func (a Application) Overpaid() decimal.Decimal {
	over := a.AmountPaid.Sub(a.Total)
	if over.IsPositive() {
		return over
	}
	return decimal.Zero
}

// ApplyPayment derives the settlement of inv after receiving payment.
// inv is not modified. Overpayment is kept as AmountPaid > Total with status
// paid; no clamping happens here.
//
// ApplyPayment keeps no record of what it has applied. Callers must apply each
// payment exactly once, and must either serialize calls per invoice or
// persist the result under a transaction that re-reads AmountPaid right
// before calling it (see repository.InvoiceRepository.Settle).
func ApplyPayment(inv domain.Invoice, payment decimal.Decimal) (Application, error) {
	if !payment.IsPositive() {
		return Application{}, &InvalidStateError{
			InvoiceID: inv.ID,
			Status:    inv.Status,
			Reason:    "payment amount must be positive",
		}
	}
	if inv.Status == domain.InvoiceStatusCancelled {
		return Application{}, &InvalidStateError{
			InvoiceID: inv.ID,
			Status:    inv.Status,
			Reason:    "invoice is cancelled",
		}
	}

	total, err := inv.Total.Decimal()
	if err != nil {
		return Application{}, malformed(RecordInvoice, inv.ID, "total", err)
	}
	paid, err := inv.AmountPaid.Decimal()
	if err != nil {
		return Application{}, malformed(RecordInvoice, inv.ID, "amount_paid", err)
	}

	newPaid := paid.Add(payment)
	status := inv.Status
	switch {
	case newPaid.GreaterThanOrEqual(total):
		status = domain.InvoiceStatusPaid
	case newPaid.IsPositive():
		status = domain.InvoiceStatusPartial
	}

	return Application{AmountPaid: newPaid, Status: status, Total: total}, nil
}

// DeriveOverdue reports whether inv should move to overdue as of now.
// Only sent and partially paid invoices with a due date before today qualify.
func DeriveOverdue(inv domain.Invoice, now time.Time) (domain.InvoiceStatus, bool) {
	if inv.DueDate == nil {
		return inv.Status, false
	}
	if inv.Status != domain.InvoiceStatusSent && inv.Status != domain.InvoiceStatusPartial {
		return inv.Status, false
	}
	if domain.Day(*inv.DueDate).Before(domain.Day(now)) {
		return domain.InvoiceStatusOverdue, true
	}
	return inv.Status, false
}
