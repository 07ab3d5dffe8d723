package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/andy/tally/internal/app"
	"github.com/andy/tally/internal/config"
	"github.com/andy/tally/internal/db"
	"github.com/andy/tally/internal/domain"
	"github.com/andy/tally/internal/ledger"
	"github.com/andy/tally/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *app.App {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "cli.db"), "test-key")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations())

	a, err := app.Wire(config.DefaultConfig(), database)
	require.NoError(t, err)
	t.Cleanup(func() {
		a.Close()
		SetApp(nil)
	})
	SetApp(a)
	return a
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), d)

	today, err := parseDate("today")
	require.NoError(t, err)
	yesterday, err := parseDate("Yesterday")
	require.NoError(t, err)
	assert.Equal(t, today.AddDate(0, 0, -1), yesterday)

	_, err = parseDate("02/29/2024")
	assert.Error(t, err)
}

func TestParseAmount(t *testing.T) {
	d, err := parseAmount(" 1250.50 ")
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.RequireFromString("1250.5")))

	for _, bad := range []string{"", "abc", "0", "-5"} {
		_, err := parseAmount(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdefgh", 5))
	assert.Equal(t, "12345678", shortID("12345678-aaaa-bbbb"))
	assert.Equal(t, "-", formatDate(time.Time{}))

	assert.Equal(t, "10.50", formatAmount(domain.ParseAmount("10.5")))
	assert.Equal(t, "0.00", formatAmount(domain.NullAmount()))
	assert.Equal(t, "!N/A", formatAmount(domain.ParseAmount("N/A")))
	assert.Equal(t, "paid  ", padRight("paid", 6))
}

func TestConfirmPrompt(t *testing.T) {
	assert.True(t, confirmPrompt(strings.NewReader("y\n"), "ok?"))
	assert.True(t, confirmPrompt(strings.NewReader("YES\n"), "ok?"))
	assert.False(t, confirmPrompt(strings.NewReader("n\n"), "ok?"))
	assert.False(t, confirmPrompt(strings.NewReader(""), "ok?"))
}

func TestPrintStatement(t *testing.T) {
	day := func(s string) time.Time {
		d, _ := time.Parse(domain.DateLayout, s)
		return d
	}
	st := &ledger.Statement{
		CustomerID:     "cust-1",
		PeriodStart:    day("2024-01-01"),
		PeriodEnd:      day("2024-01-31"),
		OpeningBalance: decimal.Zero,
		Lines: []ledger.Line{
			{
				Transaction: ledger.Transaction{ID: "i1", Kind: ledger.KindCharge, Date: day("2024-01-05"), Amount: decimal.NewFromInt(500), Reference: "INV-2024-0001"},
				Balance:     decimal.NewFromInt(500),
			},
			{
				Transaction: ledger.Transaction{ID: "p1", Kind: ledger.KindPayment, Date: day("2024-01-20"), Amount: decimal.NewFromInt(-500), Reference: "CHK-1"},
				Balance:     decimal.Zero,
			},
		},
		Totals: ledger.Totals{
			Charges:        decimal.NewFromInt(500),
			Payments:       decimal.NewFromInt(500),
			ClosingBalance: decimal.Zero,
		},
		Skipped: []*ledger.MalformedRecordError{
			{Kind: ledger.RecordPayment, ID: "p9", Field: "amount", Err: domain.ErrNotNumeric},
		},
	}

	var buf bytes.Buffer
	printStatement(&buf, "Acme", st)
	out := buf.String()

	assert.Contains(t, out, "Statement: Acme")
	assert.Contains(t, out, "2024-01-01 to 2024-01-31")
	assert.Contains(t, out, "INV-2024-0001")
	assert.Contains(t, out, "-500.00")
	assert.Contains(t, out, "1 record(s) skipped")
	assert.Contains(t, out, "malformed payment p9")
	assert.Less(t, strings.Index(out, "INV-2024-0001"), strings.Index(out, "CHK-1"))
}

func TestWriteJSON_StatementFields(t *testing.T) {
	st := &ledger.Statement{
		CustomerID:     "cust-1",
		OpeningBalance: decimal.RequireFromString("12.50"),
		Lines:          []ledger.Line{},
	}

	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, st))
	assert.Contains(t, buf.String(), `"customer_id": "cust-1"`)
	assert.Contains(t, buf.String(), `"opening_balance": "12.5"`)
	assert.Contains(t, buf.String(), `"transactions": []`)
	assert.NotContains(t, buf.String(), "skipped")
}

func TestPrintReceivables(t *testing.T) {
	r := &service.Receivables{
		AsOf: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		Customers: []service.CustomerBalance{
			{Name: "Acme", Outstanding: decimal.NewFromInt(700), Credit: decimal.Zero, OpenInvoices: 2, Overdue: 1},
			{Name: "Globex", Outstanding: decimal.Zero, Credit: decimal.NewFromInt(50)},
		},
		TotalOutstanding: decimal.NewFromInt(700),
		TotalCredit:      decimal.NewFromInt(50),
	}

	var buf bytes.Buffer
	printReceivables(&buf, r)
	out := buf.String()
	assert.Contains(t, out, "Receivables as of 2024-01-31")
	assert.Contains(t, out, "Acme")
	assert.Contains(t, out, "700.00")
	assert.Contains(t, out, "50.00")

	buf.Reset()
	printReceivables(&buf, &service.Receivables{AsOf: r.AsOf})
	assert.Contains(t, buf.String(), "Nothing outstanding")
}

func TestResolveCustomer(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)

	acme := domain.NewCustomer("Acme")
	require.NoError(t, a.CustomerRepo.Create(ctx, acme))

	byID, err := resolveCustomer(ctx, a.CustomerRepo, acme.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", byID.Name)

	byName, err := resolveCustomer(ctx, a.CustomerRepo, "Acme")
	require.NoError(t, err)
	assert.Equal(t, acme.ID, byName.ID)

	_, err = resolveCustomer(ctx, a.CustomerRepo, "Globex")
	assert.ErrorContains(t, err, "customer not found")

	names := newCustomerNames(a.CustomerRepo)
	assert.Equal(t, "Acme", names.get(ctx, acme.ID))
	assert.Equal(t, "missing-", names.get(ctx, "missing-customer"))
}

func TestClearTables(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)

	acme := domain.NewCustomer("Acme")
	require.NoError(t, a.CustomerRepo.Create(ctx, acme))
	inv, err := a.InvoiceService.CreateInvoice(ctx, service.CreateInvoiceInput{
		CustomerID: acme.ID,
		Total:      decimal.NewFromInt(100),
		IssuedAt:   time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	_, err = a.InvoiceService.MarkSent(ctx, inv.ID)
	require.NoError(t, err)
	_, err = a.PaymentService.RecordPayment(ctx, service.RecordPaymentInput{
		InvoiceID: inv.ID,
		Amount:    decimal.NewFromInt(40),
		PaidAt:    time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	require.NoError(t, clearTables(ledgerTables))

	for _, table := range ledgerTables {
		var n int
		require.NoError(t, a.DB.Get(&n, "SELECT COUNT(*) FROM "+table))
		assert.Zero(t, n, table)
	}
	customers, err := a.CustomerRepo.List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, customers, 1)

	require.NoError(t, clearTables(allTables))
	customers, err = a.CustomerRepo.List(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, customers)
}
