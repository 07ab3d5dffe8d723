package ledger

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/andy/tally/internal/domain"
	"github.com/shopspring/decimal"
)

// Period is an inclusive [Start, End] statement window at day granularity
type Period struct {
	Start time.Time
	End   time.Time
}

// NewPeriod builds a validated period
func NewPeriod(start, end time.Time) (Period, error) {
	p := Period{Start: start, End: end}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

// Validate returns ErrInvalidPeriod if Start falls on a later day than End
func (p Period) Validate() error {
	if domain.Day(p.Start).After(domain.Day(p.End)) {
		return fmt.Errorf("%w: %s > %s", ErrInvalidPeriod,
			p.Start.Format(domain.DateLayout), p.End.Format(domain.DateLayout))
	}
	return nil
}

// MalformedPolicy decides what a statement does with a record that cannot
// be normalized.
type MalformedPolicy int

const (
	// SkipMalformed leaves the record out and lists it in Statement.Skipped.
	SkipMalformed MalformedPolicy = iota
	// AbortOnMalformed fails the statement with the record's error.
	AbortOnMalformed
)

func (p MalformedPolicy) String() string {
	if p == AbortOnMalformed {
		return "abort"
	}
	return "skip"
}

// ParseMalformedPolicy accepts "skip" or "abort"
func ParseMalformedPolicy(s string) (MalformedPolicy, error) {
	switch s {
	case "", "skip":
		return SkipMalformed, nil
	case "abort":
		return AbortOnMalformed, nil
	}
	return SkipMalformed, fmt.Errorf("unknown malformed record policy %q", s)
}

type options struct {
	policy MalformedPolicy
}

// Option configures ComputeStatement
type Option func(*options)

// WithMalformedPolicy overrides the default SkipMalformed policy
func WithMalformedPolicy(p MalformedPolicy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// Line is a transaction with the account balance after it was applied
type Line struct {
	Transaction
	Balance decimal.Decimal `json:"balance"`
}

type Totals struct {
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	Charges        decimal.Decimal `json:"charges"`
	Payments       decimal.Decimal `json:"payments"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
}

type Statement struct {
	CustomerID     string                  `json:"customer_id"`
	PeriodStart    time.Time               `json:"period_start"`
	PeriodEnd      time.Time               `json:"period_end"`
	OpeningBalance decimal.Decimal         `json:"opening_balance"`
	Lines          []Line                  `json:"transactions"`
	Totals         Totals                  `json:"totals"`
	Skipped        []*MalformedRecordError `json:"skipped,omitempty"`
}

// ComputeStatement builds the statement of one customer for period from the
// customer's complete invoice and payment history. The caller is responsible
// for completeness: a missing record silently shifts the opening balance.
//
// Records dated before the period feed the opening balance; records inside it
// become lines ordered by date, charges before payments, then reference and
// ID. Records that cannot be normalized, or that carry another customer's ID,
// are handled by the malformed policy.
func ComputeStatement(
	customerID string,
	period Period,
	invoices []domain.Invoice,
	payments []domain.Payment,
	opts ...Option,
) (*Statement, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}

	o := options{policy: SkipMalformed}
	for _, opt := range opts {
		opt(&o)
	}

	start := domain.Day(period.Start)
	end := domain.Day(period.End)

	st := &Statement{
		CustomerID:  customerID,
		PeriodStart: start,
		PeriodEnd:   end,
		Lines:       make([]Line, 0),
	}

	opening := decimal.Zero
	inPeriod := make([]Transaction, 0, len(invoices)+len(payments))

	place := func(tx Transaction, err error) error {
		if err != nil {
			var mre *MalformedRecordError
			if !errors.As(err, &mre) || o.policy == AbortOnMalformed {
				return err
			}
			st.Skipped = append(st.Skipped, mre)
			return nil
		}
		switch {
		case tx.Date.Before(start):
			opening = opening.Add(tx.Amount)
		case !tx.Date.After(end):
			inPeriod = append(inPeriod, tx)
		}
		return nil
	}

	for _, inv := range invoices {
		if inv.CustomerID != "" && inv.CustomerID != customerID {
			if err := place(Transaction{}, malformed(RecordInvoice, inv.ID, "customer_id", ErrForeignCustomer)); err != nil {
				return nil, err
			}
			continue
		}
		if err := place(NormalizeInvoice(inv)); err != nil {
			return nil, err
		}
	}
	for _, p := range payments {
		if p.CustomerID != "" && p.CustomerID != customerID {
			if err := place(Transaction{}, malformed(RecordPayment, p.ID, "customer_id", ErrForeignCustomer)); err != nil {
				return nil, err
			}
			continue
		}
		if err := place(NormalizePayment(p)); err != nil {
			return nil, err
		}
	}

	slices.SortStableFunc(inPeriod, compareTransactions)

	charges := decimal.Zero
	paid := decimal.Zero
	balance := opening
	for _, tx := range inPeriod {
		balance = balance.Add(tx.Amount)
		st.Lines = append(st.Lines, Line{Transaction: tx, Balance: balance})
		if tx.Kind == KindCharge {
			charges = charges.Add(tx.Amount)
		} else {
			paid = paid.Add(tx.Amount.Neg())
		}
	}

	st.OpeningBalance = opening
	st.Totals = Totals{
		OpeningBalance: opening,
		Charges:        charges,
		Payments:       paid,
		ClosingBalance: balance,
	}
	return st, nil
}
