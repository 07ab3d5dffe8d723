package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/andy/tally/internal/db"
	"github.com/andy/tally/internal/domain"
)

// PaymentRepo is a SQLite implementation of PaymentRepository
type PaymentRepo struct {
	db *db.DB
}

// NewPaymentRepo creates a new PaymentRepo
func NewPaymentRepo(database *db.DB) *PaymentRepo {
	return &PaymentRepo{db: database}
}

type paymentRow struct {
	ID         string         `db:"id"`
	CustomerID string         `db:"customer_id"`
	InvoiceID  sql.NullString `db:"invoice_id"`
	Amount     domain.Amount  `db:"amount"`
	PaidAt     sql.NullString `db:"paid_at"`
	Reference  sql.NullString `db:"reference"`
	Method     sql.NullString `db:"method"`
	CreatedAt  string         `db:"created_at"`
}

const paymentColumns = `id, customer_id, invoice_id, amount, paid_at, reference, method, created_at`

func (row paymentRow) toDomain() (*domain.Payment, error) {
	p := &domain.Payment{
		ID:         row.ID,
		CustomerID: row.CustomerID,
		Amount:     row.Amount,
		PaidAt:     parseRecordDate(row.PaidAt),
		Reference:  row.Reference.String,
		Method:     row.Method.String,
	}
	if row.InvoiceID.Valid {
		p.ForInvoice(row.InvoiceID.String)
	}

	var err error
	if p.CreatedAt, err = parseTime(row.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	return p, nil
}

// Create inserts a payment that is not applied to any invoice
func (r *PaymentRepo) Create(ctx context.Context, payment *domain.Payment) error {
	if err := payment.Validate(); err != nil {
		return fmt.Errorf("invalid payment: %w", err)
	}
	if payment.InvoiceID != nil {
		return errors.New("invoice payments must be recorded through Settle")
	}

	return insertPayment(ctx, r.db, payment)
}

func insertPayment(ctx context.Context, x execer, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (id, customer_id, invoice_id, amount, paid_at, reference, method, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	var invoiceID interface{}
	if payment.InvoiceID != nil {
		invoiceID = *payment.InvoiceID
	}

	_, err := x.ExecContext(ctx, query,
		payment.ID,
		payment.CustomerID,
		invoiceID,
		payment.Amount,
		formatRecordDate(payment.PaidAt),
		payment.Reference,
		payment.Method,
		payment.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// GetByID retrieves a payment by ID
func (r *PaymentRepo) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	var row paymentRow
	err := r.db.GetContext(ctx, &row, "SELECT "+paymentColumns+" FROM payments WHERE id = ?", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("payment %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return row.toDomain()
}

// List retrieves payments with optional filters, oldest first
func (r *PaymentRepo) List(ctx context.Context, filter PaymentFilter) ([]*domain.Payment, error) {
	query := "SELECT " + paymentColumns + " FROM payments WHERE 1=1"
	args := make([]interface{}, 0)

	if filter.CustomerID != nil {
		query += " AND customer_id = ?"
		args = append(args, *filter.CustomerID)
	}

	if filter.InvoiceID != nil {
		query += " AND invoice_id = ?"
		args = append(args, *filter.InvoiceID)
	}

	query += " ORDER BY paid_at, created_at"

	var rows []paymentRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	payments := make([]*domain.Payment, 0, len(rows))
	for _, row := range rows {
		p, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}

	return payments, nil
}
