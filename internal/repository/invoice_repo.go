package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/andy/tally/internal/db"
	"github.com/andy/tally/internal/domain"
)

// InvoiceRepo is a SQLite implementation of InvoiceRepository
type InvoiceRepo struct {
	db *db.DB
}

// NewInvoiceRepo creates a new InvoiceRepo
func NewInvoiceRepo(database *db.DB) *InvoiceRepo {
	return &InvoiceRepo{db: database}
}

type invoiceRow struct {
	ID            string         `db:"id"`
	InvoiceNumber string         `db:"invoice_number"`
	CustomerID    string         `db:"customer_id"`
	IssuedAt      sql.NullString `db:"issued_at"`
	DueDate       sql.NullString `db:"due_date"`
	Total         domain.Amount  `db:"total"`
	AmountPaid    domain.Amount  `db:"amount_paid"`
	Status        string         `db:"status"`
	Version       int64          `db:"version"`
	CreatedAt     string         `db:"created_at"`
	UpdatedAt     string         `db:"updated_at"`
}

const invoiceColumns = `id, invoice_number, customer_id, issued_at, due_date,
	total, amount_paid, status, version, created_at, updated_at`

func (row invoiceRow) toDomain() (*domain.Invoice, error) {
	inv := &domain.Invoice{
		ID:            row.ID,
		InvoiceNumber: row.InvoiceNumber,
		CustomerID:    row.CustomerID,
		IssuedAt:      parseRecordDate(row.IssuedAt),
		Total:         row.Total,
		AmountPaid:    row.AmountPaid,
		Status:        domain.InvoiceStatus(row.Status),
		Version:       row.Version,
	}

	if due := parseRecordDate(row.DueDate); !due.IsZero() {
		inv.DueDate = &due
	}

	var err error
	if inv.CreatedAt, err = parseTime(row.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if inv.UpdatedAt, err = parseTime(row.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return inv, nil
}

// Create inserts a new invoice into the database
func (r *InvoiceRepo) Create(ctx context.Context, invoice *domain.Invoice) error {
	if err := invoice.Validate(); err != nil {
		return fmt.Errorf("invalid invoice: %w", err)
	}

	if invoice.Version == 0 {
		invoice.Version = 1
	}
	if invoice.AmountPaid.IsNull() {
		invoice.AmountPaid = domain.AmountFromInt(0)
	}

	query := `
		INSERT INTO invoices (
			id, invoice_number, customer_id, issued_at, due_date,
			total, amount_paid, status, version, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		invoice.ID,
		invoice.InvoiceNumber,
		invoice.CustomerID,
		formatRecordDate(invoice.IssuedAt),
		formatNullableTime(invoice.DueDate),
		invoice.Total,
		invoice.AmountPaid,
		string(invoice.Status),
		invoice.Version,
		invoice.CreatedAt.Format(timeLayout),
		invoice.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	return nil
}

// GetByID retrieves an invoice by ID
func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*domain.Invoice, error) {
	return r.getOne(ctx, "SELECT "+invoiceColumns+" FROM invoices WHERE id = ?", id)
}

// GetByNumber retrieves an invoice by invoice number
func (r *InvoiceRepo) GetByNumber(ctx context.Context, number string) (*domain.Invoice, error) {
	return r.getOne(ctx, "SELECT "+invoiceColumns+" FROM invoices WHERE invoice_number = ?", number)
}

func (r *InvoiceRepo) getOne(ctx context.Context, query string, arg interface{}) (*domain.Invoice, error) {
	var row invoiceRow
	if err := r.db.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("invoice %v: %w", arg, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return row.toDomain()
}

// List retrieves invoices with optional filters, oldest issue date first
func (r *InvoiceRepo) List(ctx context.Context, filter InvoiceFilter) ([]*domain.Invoice, error) {
	query := "SELECT " + invoiceColumns + " FROM invoices WHERE 1=1"
	args := make([]interface{}, 0)

	if filter.CustomerID != nil {
		query += " AND customer_id = ?"
		args = append(args, *filter.CustomerID)
	}

	if filter.Status != nil {
		query += " AND status = ?"
		args = append(args, string(*filter.Status))
	}

	query += " ORDER BY issued_at, invoice_number"

	var rows []invoiceRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}

	invoices := make([]*domain.Invoice, 0, len(rows))
	for _, row := range rows {
		inv, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}

	return invoices, nil
}

// UpdateStatus changes the invoice status under its current version
func (r *InvoiceRepo) UpdateStatus(ctx context.Context, invoice *domain.Invoice, status domain.InvoiceStatus, reason string) error {
	if !status.IsValid() {
		return fmt.Errorf("unknown invoice status %q", status)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	if err := casInvoice(ctx, tx, invoice, invoice.AmountPaid, status, now); err != nil {
		return err
	}

	h := domain.NewInvoiceHistory(invoice.ID, "status", string(invoice.Status), string(status), reason)
	if err := insertHistory(ctx, tx, h); err != nil {
		return fmt.Errorf("failed to audit status change: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	invoice.Status = status
	invoice.Version++
	invoice.UpdatedAt = now
	return nil
}

// Settle applies a payment to an invoice atomically: the guarded invoice
// update, the payment row and the audit rows commit together or not at all.
func (r *InvoiceRepo) Settle(ctx context.Context, req SettleRequest) error {
	if req.Invoice == nil || req.Payment == nil {
		return errors.New("settle requires an invoice and a payment")
	}
	if err := req.Payment.Validate(); err != nil {
		return fmt.Errorf("invalid payment: %w", err)
	}
	if req.Payment.InvoiceID == nil || *req.Payment.InvoiceID != req.Invoice.ID {
		req.Payment.ForInvoice(req.Invoice.ID)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	paid := domain.NewAmount(req.AmountPaid)
	if err := casInvoice(ctx, tx, req.Invoice, paid, req.Status, now); err != nil {
		return err
	}

	if err := insertPayment(ctx, tx, req.Payment); err != nil {
		return err
	}

	changes := []*domain.InvoiceHistory{
		domain.NewInvoiceHistory(req.Invoice.ID, "amount_paid", req.Invoice.AmountPaid.String(), paid.String(), req.Reason),
		domain.NewInvoiceHistory(req.Invoice.ID, "status", string(req.Invoice.Status), string(req.Status), req.Reason),
	}
	for _, h := range changes {
		if err := insertHistory(ctx, tx, h); err != nil {
			return fmt.Errorf("failed to audit %s change: %w", h.FieldName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	req.Invoice.AmountPaid = paid
	req.Invoice.Status = req.Status
	req.Invoice.Version++
	req.Invoice.UpdatedAt = now
	return nil
}

// casInvoice updates settlement fields only if the stored version still
// matches the snapshot.
func casInvoice(ctx context.Context, tx execer, inv *domain.Invoice, paid domain.Amount, status domain.InvoiceStatus, now time.Time) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE invoices
		SET amount_paid = ?, status = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`, paid, string(status), now.Format(timeLayout), inv.ID, inv.Version)
	if err != nil {
		return fmt.Errorf("failed to update invoice: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 1 {
		return nil
	}

	var exists int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM invoices WHERE id = ?", inv.ID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check invoice: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("invoice %s: %w", inv.ID, ErrNotFound)
	}
	return fmt.Errorf("invoice %s at version %d: %w", inv.ID, inv.Version, ErrVersionConflict)
}

// History returns the audit trail of an invoice, oldest first
func (r *InvoiceRepo) History(ctx context.Context, invoiceID string) ([]*domain.InvoiceHistory, error) {
	query := `
		SELECT id, invoice_id, field_name, old_value, new_value, change_reason, changed_at
		FROM invoice_history
		WHERE invoice_id = ?
		ORDER BY id
	`

	var rows []struct {
		ID           int64          `db:"id"`
		InvoiceID    string         `db:"invoice_id"`
		FieldName    string         `db:"field_name"`
		OldValue     sql.NullString `db:"old_value"`
		NewValue     sql.NullString `db:"new_value"`
		ChangeReason sql.NullString `db:"change_reason"`
		ChangedAt    string         `db:"changed_at"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, invoiceID); err != nil {
		return nil, fmt.Errorf("failed to get invoice history: %w", err)
	}

	history := make([]*domain.InvoiceHistory, 0, len(rows))
	for _, row := range rows {
		changedAt, err := parseTime(row.ChangedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse changed_at: %w", err)
		}
		history = append(history, &domain.InvoiceHistory{
			ID:           row.ID,
			InvoiceID:    row.InvoiceID,
			FieldName:    row.FieldName,
			OldValue:     row.OldValue.String,
			NewValue:     row.NewValue.String,
			ChangeReason: row.ChangeReason.String,
			ChangedAt:    changedAt,
		})
	}

	return history, nil
}

// GetNextInvoiceNumber generates the next invoice number in format "PREFIX-YEAR-SEQUENCE"
func (r *InvoiceRepo) GetNextInvoiceNumber(ctx context.Context, prefix string, year int) (string, error) {
	pattern := fmt.Sprintf("%s-%d-%%", prefix, year)

	var numbers []string
	err := r.db.SelectContext(ctx, &numbers,
		"SELECT invoice_number FROM invoices WHERE invoice_number LIKE ?", pattern)
	if err != nil {
		return "", fmt.Errorf("failed to get last invoice number: %w", err)
	}

	// Compare numerically: "INV-2024-1000" sorts before "INV-2024-999" as text
	lastSeq := 0
	for _, n := range numbers {
		var y, seq int
		if _, err := fmt.Sscanf(n, prefix+"-%d-%d", &y, &seq); err != nil || y != year {
			continue
		}
		if seq > lastSeq {
			lastSeq = seq
		}
	}

	return fmt.Sprintf("%s-%d-%04d", prefix, year, lastSeq+1), nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}
