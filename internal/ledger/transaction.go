package ledger

import (
	"strings"
	"time"

	"github.com/andy/tally/internal/domain"
	"github.com/shopspring/decimal"
)

// Kind distinguishes charges from payments
type Kind string

const (
	KindCharge  Kind = "charge"
	KindPayment Kind = "payment"
)

// Transaction is the signed, dated view of one invoice or payment.
// Charges are positive, payments negative. Date is a calendar day (see domain.Day).
type Transaction struct {
	ID          string          `json:"id"`
	Kind        Kind            `json:"kind"`
	Date        time.Time       `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Reference   string          `json:"reference"`
}

// NormalizeInvoice maps an invoice to a charge. A null total reads as zero;
// a missing issue date or non-numeric total is a *MalformedRecordError.
func NormalizeInvoice(inv domain.Invoice) (Transaction, error) {
	if inv.IssuedAt.IsZero() {
		return Transaction{}, malformed(RecordInvoice, inv.ID, "issued_at", ErrMissingDate)
	}
	total, err := inv.Total.Decimal()
	if err != nil {
		return Transaction{}, malformed(RecordInvoice, inv.ID, "total", err)
	}

	ref := inv.InvoiceNumber
	if ref == "" {
		ref = inv.ID
	}

	return Transaction{
		ID:          inv.ID,
		Kind:        KindCharge,
		Date:        domain.Day(inv.IssuedAt),
		Amount:      total,
		Description: "Invoice " + ref,
		Reference:   ref,
	}, nil
}

// NormalizePayment maps a payment to a negative transaction whatever sign
// the source stored. A null amount reads as zero; a missing payment date or
// non-numeric amount is a *MalformedRecordError.
func NormalizePayment(p domain.Payment) (Transaction, error) {
	if p.PaidAt.IsZero() {
		return Transaction{}, malformed(RecordPayment, p.ID, "paid_at", ErrMissingDate)
	}
	amount, err := p.Amount.Decimal()
	if err != nil {
		return Transaction{}, malformed(RecordPayment, p.ID, "amount", err)
	}

	ref := strings.TrimSpace(p.Reference)
	if ref == "" {
		ref = p.ID
	}

	return Transaction{
		ID:          p.ID,
		Kind:        KindPayment,
		Date:        domain.Day(p.PaidAt),
		Amount:      amount.Abs().Neg(),
		Description: "Payment " + ref,
		Reference:   ref,
	}, nil
}

func kindRank(k Kind) int {
	if k == KindCharge {
		return 0
	}
	return 1
}

// compareTransactions orders by date, then charges before payments, then
// reference, then ID.
func compareTransactions(a, b Transaction) int {
	if c := a.Date.Compare(b.Date); c != 0 {
		return c
	}
	if c := kindRank(a.Kind) - kindRank(b.Kind); c != 0 {
		return c
	}
	if c := strings.Compare(a.Reference, b.Reference); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}
