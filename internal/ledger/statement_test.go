package ledger

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/andy/tally/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCustomer = "cust-1"

func day(s string) time.Time {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func period(t *testing.T, start, end string) Period {
	t.Helper()
	p, err := NewPeriod(day(start), day(end))
	require.NoError(t, err)
	return p
}

func invoice(id, number, issued, total string) domain.Invoice {
	inv := domain.Invoice{
		ID:            id,
		InvoiceNumber: number,
		CustomerID:    testCustomer,
		Total:         domain.ParseAmount(total),
		AmountPaid:    domain.AmountFromInt(0),
		Status:        domain.InvoiceStatusSent,
	}
	if issued != "" {
		inv.IssuedAt = day(issued)
	}
	return inv
}

func payment(id, ref, paid, amount string) domain.Payment {
	p := domain.Payment{
		ID:         id,
		CustomerID: testCustomer,
		Amount:     domain.ParseAmount(amount),
		Reference:  ref,
	}
	if paid != "" {
		p.PaidAt = day(paid)
	}
	return p
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

func januaryHistory() ([]domain.Invoice, []domain.Payment) {
	return []domain.Invoice{invoice("inv-1", "INV-2024-0001", "2024-01-05", "500")},
		[]domain.Payment{payment("pay-1", "CHK-1", "2024-01-20", "500")}
}

func TestComputeStatement_PaidWithinPeriod(t *testing.T) {
	invoices, payments := januaryHistory()

	st, err := ComputeStatement(testCustomer, period(t, "2024-01-01", "2024-01-31"), invoices, payments)
	require.NoError(t, err)

	assertDecimal(t, "0", st.OpeningBalance)
	require.Len(t, st.Lines, 2)

	assert.Equal(t, KindCharge, st.Lines[0].Kind)
	assertDecimal(t, "500", st.Lines[0].Amount)
	assertDecimal(t, "500", st.Lines[0].Balance)
	assert.Equal(t, "Invoice INV-2024-0001", st.Lines[0].Description)

	assert.Equal(t, KindPayment, st.Lines[1].Kind)
	assertDecimal(t, "-500", st.Lines[1].Amount)
	assertDecimal(t, "0", st.Lines[1].Balance)

	assertDecimal(t, "0", st.Totals.OpeningBalance)
	assertDecimal(t, "500", st.Totals.Charges)
	assertDecimal(t, "500", st.Totals.Payments)
	assertDecimal(t, "0", st.Totals.ClosingBalance)
	assert.Empty(t, st.Skipped)
}

func TestComputeStatement_HistoryBeforePeriodFormsOpeningBalance(t *testing.T) {
	invoices, payments := januaryHistory()

	st, err := ComputeStatement(testCustomer, period(t, "2024-02-01", "2024-02-28"), invoices, payments)
	require.NoError(t, err)

	assertDecimal(t, "0", st.OpeningBalance)
	assert.NotNil(t, st.Lines)
	assert.Empty(t, st.Lines)
	assertDecimal(t, "0", st.Totals.ClosingBalance)
}

func TestComputeStatement_UnpaidChargeCarriesForward(t *testing.T) {
	invoices := []domain.Invoice{
		invoice("inv-1", "INV-1", "2024-01-05", "500"),
		invoice("inv-2", "INV-2", "2024-02-10", "120.50"),
	}
	payments := []domain.Payment{payment("pay-1", "", "2024-01-20", "200")}

	st, err := ComputeStatement(testCustomer, period(t, "2024-02-01", "2024-02-29"), invoices, payments)
	require.NoError(t, err)

	assertDecimal(t, "300", st.OpeningBalance)
	require.Len(t, st.Lines, 1)
	assertDecimal(t, "420.50", st.Lines[0].Balance)
	assertDecimal(t, "420.50", st.Totals.ClosingBalance)
}

func TestComputeStatement_RecordsAfterPeriodIgnored(t *testing.T) {
	invoices := []domain.Invoice{invoice("inv-1", "INV-1", "2024-03-01", "99")}

	st, err := ComputeStatement(testCustomer, period(t, "2024-02-01", "2024-02-29"), invoices, nil)
	require.NoError(t, err)

	assertDecimal(t, "0", st.OpeningBalance)
	assert.Empty(t, st.Lines)
	assertDecimal(t, "0", st.Totals.ClosingBalance)
}

func TestComputeStatement_Conservation(t *testing.T) {
	invoices := []domain.Invoice{
		invoice("inv-1", "INV-1", "2023-12-30", "0.10"),
		invoice("inv-2", "INV-2", "2024-01-02", "0.20"),
		invoice("inv-3", "INV-3", "2024-01-15", "1999.99"),
		invoice("inv-4", "INV-4", "2024-01-31", "0.01"),
	}
	payments := []domain.Payment{
		payment("pay-1", "A", "2024-01-02", "0.30"),
		payment("pay-2", "B", "2024-01-16", "-1000"),
		payment("pay-3", "C", "2024-01-31", "0.07"),
	}

	st, err := ComputeStatement(testCustomer, period(t, "2024-01-01", "2024-01-31"), invoices, payments)
	require.NoError(t, err)

	expected := st.Totals.OpeningBalance.Add(st.Totals.Charges).Sub(st.Totals.Payments)
	assert.True(t, expected.Equal(st.Totals.ClosingBalance), "closing %s != %s", st.Totals.ClosingBalance, expected)
	assertDecimal(t, "0.10", st.OpeningBalance)
	assertDecimal(t, "2000.20", st.Totals.Charges)
	assertDecimal(t, "1000.37", st.Totals.Payments)
	assertDecimal(t, "999.93", st.Totals.ClosingBalance)

	last := st.Lines[len(st.Lines)-1]
	assert.True(t, last.Balance.Equal(st.Totals.ClosingBalance))
}

func TestComputeStatement_Ordering(t *testing.T) {
	invoices := []domain.Invoice{
		invoice("inv-b", "INV-B", "2024-01-10", "10"),
		invoice("inv-a", "INV-A", "2024-01-10", "10"),
		invoice("inv-c", "INV-C", "2024-01-03", "10"),
	}
	payments := []domain.Payment{
		payment("pay-1", "AAA", "2024-01-10", "5"),
		payment("pay-0", "", "2024-01-03", "5"),
	}
	// a payment timestamped earlier in the day still sorts after same-day charges
	payments[0].PaidAt = day("2024-01-10").Add(time.Hour)
	invoices[0].IssuedAt = day("2024-01-10").Add(20 * time.Hour)

	st, err := ComputeStatement(testCustomer, period(t, "2024-01-01", "2024-01-31"), invoices, payments)
	require.NoError(t, err)

	ids := make([]string, 0, len(st.Lines))
	for _, l := range st.Lines {
		ids = append(ids, l.ID)
	}
	assert.Equal(t, []string{"inv-c", "pay-0", "inv-a", "inv-b", "pay-1"}, ids)
}

func TestComputeStatement_Deterministic(t *testing.T) {
	invoices := []domain.Invoice{
		invoice("inv-1", "INV-1", "2024-01-10", "10"),
		invoice("inv-2", "INV-1", "2024-01-10", "10"),
		invoice("inv-3", "INV-3", "2024-01-04", "33.33"),
	}
	payments := []domain.Payment{
		payment("pay-1", "X", "2024-01-10", "10"),
		payment("pay-2", "X", "2024-01-10", "10"),
	}
	p := period(t, "2024-01-01", "2024-01-31")

	first, err := ComputeStatement(testCustomer, p, invoices, payments)
	require.NoError(t, err)
	want, err := json.Marshal(first)
	require.NoError(t, err)

	// reversed input order must not change the output
	revInv := []domain.Invoice{invoices[2], invoices[1], invoices[0]}
	revPay := []domain.Payment{payments[1], payments[0]}
	for i := 0; i < 5; i++ {
		st, err := ComputeStatement(testCustomer, p, revInv, revPay)
		require.NoError(t, err)
		got, err := json.Marshal(st)
		require.NoError(t, err)
		assert.Equal(t, string(want), string(got))
	}
}

func TestComputeStatement_NullAmountCountsAsZero(t *testing.T) {
	invoices := []domain.Invoice{invoice("inv-1", "INV-1", "2024-01-05", "")}
	payments := []domain.Payment{payment("pay-1", "", "2024-01-06", "")}

	st, err := ComputeStatement(testCustomer, period(t, "2024-01-01", "2024-01-31"), invoices, payments)
	require.NoError(t, err)

	require.Len(t, st.Lines, 2)
	assertDecimal(t, "0", st.Totals.ClosingBalance)
	assert.Empty(t, st.Skipped)
}

func TestComputeStatement_MalformedRecords(t *testing.T) {
	invoices := []domain.Invoice{
		invoice("inv-1", "INV-1", "2024-01-05", "500"),
		invoice("inv-bad", "INV-2", "2024-01-06", "five hundred"),
		invoice("inv-nodate", "INV-3", "", "10"),
	}
	payments := []domain.Payment{payment("pay-bad", "", "2024-01-07", "12,00")}

	t.Run("skip", func(t *testing.T) {
		st, err := ComputeStatement(testCustomer, period(t, "2024-01-01", "2024-01-31"), invoices, payments)
		require.NoError(t, err)

		require.Len(t, st.Lines, 1)
		assertDecimal(t, "500", st.Totals.ClosingBalance)
		require.Len(t, st.Skipped, 3)

		assert.Equal(t, "inv-bad", st.Skipped[0].ID)
		assert.Equal(t, "total", st.Skipped[0].Field)
		assert.ErrorIs(t, st.Skipped[0], domain.ErrNotNumeric)

		assert.Equal(t, "inv-nodate", st.Skipped[1].ID)
		assert.Equal(t, "issued_at", st.Skipped[1].Field)
		assert.ErrorIs(t, st.Skipped[1], ErrMissingDate)

		assert.Equal(t, RecordPayment, st.Skipped[2].Kind)
		assert.Equal(t, "amount", st.Skipped[2].Field)
	})

	t.Run("abort", func(t *testing.T) {
		st, err := ComputeStatement(testCustomer, period(t, "2024-01-01", "2024-01-31"),
			invoices, payments, WithMalformedPolicy(AbortOnMalformed))
		require.Error(t, err)
		assert.Nil(t, st)
		assert.ErrorIs(t, err, ErrMalformedRecord)

		var mre *MalformedRecordError
		require.True(t, errors.As(err, &mre))
		assert.Equal(t, "inv-bad", mre.ID)
	})
}

func TestComputeStatement_ForeignCustomerRecord(t *testing.T) {
	invoices, payments := januaryHistory()
	stray := payment("pay-other", "", "2024-01-21", "50")
	stray.CustomerID = "cust-2"
	payments = append(payments, stray)

	st, err := ComputeStatement(testCustomer, period(t, "2024-01-01", "2024-01-31"), invoices, payments)
	require.NoError(t, err)
	assert.Len(t, st.Lines, 2)
	require.Len(t, st.Skipped, 1)
	assert.Equal(t, "customer_id", st.Skipped[0].Field)
	assert.ErrorIs(t, st.Skipped[0], ErrForeignCustomer)

	_, err = ComputeStatement(testCustomer, period(t, "2024-01-01", "2024-01-31"),
		invoices, payments, WithMalformedPolicy(AbortOnMalformed))
	assert.ErrorIs(t, err, ErrForeignCustomer)
}

func TestComputeStatement_SingleDayPeriod(t *testing.T) {
	invoices, payments := januaryHistory()

	st, err := ComputeStatement(testCustomer, period(t, "2024-01-05", "2024-01-05"), invoices, payments)
	require.NoError(t, err)
	require.Len(t, st.Lines, 1)
	assert.Equal(t, "inv-1", st.Lines[0].ID)
	assertDecimal(t, "500", st.Totals.ClosingBalance)
}

func TestComputeStatement_InvalidPeriod(t *testing.T) {
	_, err := NewPeriod(day("2024-02-01"), day("2024-01-31"))
	assert.ErrorIs(t, err, ErrInvalidPeriod)

	// periods built by hand are checked too
	st, err := ComputeStatement(testCustomer, Period{Start: day("2024-02-01"), End: day("2024-01-31")}, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidPeriod)
	assert.Nil(t, st)
}

func TestComputeStatement_EmptyHistory(t *testing.T) {
	st, err := ComputeStatement(testCustomer, period(t, "2024-01-01", "2024-01-31"), nil, nil)
	require.NoError(t, err)
	assertDecimal(t, "0", st.OpeningBalance)
	assert.Empty(t, st.Lines)
	assertDecimal(t, "0", st.Totals.ClosingBalance)

	out, err := json.Marshal(st)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"transactions":[]`)
	assert.NotContains(t, string(out), "skipped")
}

func TestParseMalformedPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    MalformedPolicy
		wantErr bool
	}{
		{"", SkipMalformed, false},
		{"skip", SkipMalformed, false},
		{"abort", AbortOnMalformed, false},
		{"ignore", SkipMalformed, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMalformedPolicy(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, mustParse(t, got.String()))
		})
	}
}

func mustParse(t *testing.T, s string) MalformedPolicy {
	t.Helper()
	p, err := ParseMalformedPolicy(s)
	require.NoError(t, err)
	return p
}
