package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/andy/tally/internal/domain"
	"github.com/jmoiron/sqlx"
)

// timeLayout is the RFC3339 format for storing times in SQLite
const timeLayout = time.RFC3339

// parseTime parses a time string in RFC3339 format
func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// parseRecordDate reads a business date that may have been imported as a
// bare calendar day. Missing or unreadable values come back as the zero
// time so the ledger can report the record instead of failing the query.
func parseRecordDate(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	if t, err := time.Parse(timeLayout, s.String); err == nil {
		return t
	}
	if t, err := time.Parse(domain.DateLayout, s.String); err == nil {
		return t
	}
	return time.Time{}
}

func formatNullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(timeLayout)
}

func formatRecordDate(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.Format(timeLayout)
}

// formatTime returns the current time formatted as RFC3339
func formatTime() string {
	return time.Now().Format(timeLayout)
}

// insertHistory writes one audit row unless the value did not change
func insertHistory(ctx context.Context, tx *sqlx.Tx, h *domain.InvoiceHistory) error {
	if h.OldValue == h.NewValue {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO invoice_history (invoice_id, field_name, old_value, new_value, change_reason, changed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, h.InvoiceID, h.FieldName, h.OldValue, h.NewValue, h.ChangeReason, h.ChangedAt.Format(timeLayout))
	return err
}
