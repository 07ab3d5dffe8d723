package ledger

import (
	"testing"
	"time"

	"github.com/andy/tally/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeInvoice(t *testing.T) {
	inv := invoice("inv-1", "INV-2024-0007", "", "1250.00")
	inv.IssuedAt = time.Date(2024, 3, 9, 22, 15, 0, 0, time.FixedZone("EST", -5*3600))

	tx, err := NormalizeInvoice(inv)
	require.NoError(t, err)
	assert.Equal(t, "inv-1", tx.ID)
	assert.Equal(t, KindCharge, tx.Kind)
	assert.Equal(t, day("2024-03-09"), tx.Date)
	assertDecimal(t, "1250", tx.Amount)
	assert.Equal(t, "INV-2024-0007", tx.Reference)
	assert.Equal(t, "Invoice INV-2024-0007", tx.Description)
}

func TestNormalizeInvoice_FallsBackToID(t *testing.T) {
	tx, err := NormalizeInvoice(invoice("inv-9", "", "2024-03-09", "1"))
	require.NoError(t, err)
	assert.Equal(t, "inv-9", tx.Reference)
}

func TestNormalizePayment_AlwaysNegative(t *testing.T) {
	for _, amount := range []string{"75.25", "-75.25"} {
		tx, err := NormalizePayment(payment("pay-1", " CHK-100 ", "2024-03-10", amount))
		require.NoError(t, err)
		assert.Equal(t, KindPayment, tx.Kind)
		assertDecimal(t, "-75.25", tx.Amount)
		assert.Equal(t, "CHK-100", tx.Reference)
		assert.Equal(t, "Payment CHK-100", tx.Description)
	}
}

func TestNormalize_Malformed(t *testing.T) {
	_, err := NormalizePayment(payment("pay-1", "", "", "10"))
	assert.ErrorIs(t, err, ErrMalformedRecord)
	assert.ErrorIs(t, err, ErrMissingDate)

	_, err = NormalizePayment(payment("pay-1", "", "2024-01-01", "ten"))
	assert.ErrorIs(t, err, domain.ErrNotNumeric)

	_, err = NormalizeInvoice(invoice("inv-1", "INV-1", "", "10"))
	assert.ErrorIs(t, err, ErrMissingDate)
	assert.Contains(t, err.Error(), "issued_at")
}

func TestCompareTransactions(t *testing.T) {
	charge := Transaction{ID: "b", Kind: KindCharge, Date: day("2024-01-02"), Reference: "Z"}
	pay := Transaction{ID: "a", Kind: KindPayment, Date: day("2024-01-02"), Reference: "A"}
	earlier := Transaction{ID: "z", Kind: KindPayment, Date: day("2024-01-01"), Reference: "Z"}

	assert.Negative(t, compareTransactions(charge, pay))
	assert.Positive(t, compareTransactions(charge, earlier))
	assert.Zero(t, compareTransactions(pay, pay))

	sameRef := pay
	sameRef.ID = "b"
	assert.Negative(t, compareTransactions(pay, sameRef))
}
