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

// CustomerRepo is a SQLite implementation of CustomerRepository
type CustomerRepo struct {
	db *db.DB
}

// NewCustomerRepo creates a new CustomerRepo
func NewCustomerRepo(database *db.DB) *CustomerRepo {
	return &CustomerRepo{db: database}
}

type customerRow struct {
	ID         string         `db:"id"`
	Name       string         `db:"name"`
	Email      sql.NullString `db:"email"`
	Notes      sql.NullString `db:"notes"`
	IsArchived bool           `db:"is_archived"`
	CreatedAt  string         `db:"created_at"`
	UpdatedAt  string         `db:"updated_at"`
}

const customerColumns = `id, name, email, notes, is_archived, created_at, updated_at`

func (row customerRow) toDomain() (*domain.Customer, error) {
	c := &domain.Customer{
		ID:         row.ID,
		Name:       row.Name,
		Email:      row.Email.String,
		Notes:      row.Notes.String,
		IsArchived: row.IsArchived,
	}

	var err error
	if c.CreatedAt, err = parseTime(row.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if c.UpdatedAt, err = parseTime(row.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return c, nil
}

// Create inserts a new customer into the database
func (r *CustomerRepo) Create(ctx context.Context, customer *domain.Customer) error {
	if err := customer.Validate(); err != nil {
		return fmt.Errorf("invalid customer: %w", err)
	}

	query := `
		INSERT INTO customers (id, name, email, notes, is_archived, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		customer.ID,
		customer.Name,
		customer.Email,
		customer.Notes,
		customer.IsArchived,
		customer.CreatedAt.Format(timeLayout),
		customer.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}

	return nil
}

// GetByID retrieves a customer by ID
func (r *CustomerRepo) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	return r.getOne(ctx, "SELECT "+customerColumns+" FROM customers WHERE id = ?", id)
}

// GetByName retrieves a customer by name
func (r *CustomerRepo) GetByName(ctx context.Context, name string) (*domain.Customer, error) {
	return r.getOne(ctx, "SELECT "+customerColumns+" FROM customers WHERE name = ?", name)
}

func (r *CustomerRepo) getOne(ctx context.Context, query string, arg interface{}) (*domain.Customer, error) {
	var row customerRow
	if err := r.db.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("customer %v: %w", arg, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return row.toDomain()
}

// List retrieves all customers, optionally including archived ones
func (r *CustomerRepo) List(ctx context.Context, includeArchived bool) ([]*domain.Customer, error) {
	query := `
		SELECT ` + customerColumns + `
		FROM customers
		WHERE is_archived = 0 OR ? = 1
		ORDER BY name
	`

	var rows []customerRow
	if err := r.db.SelectContext(ctx, &rows, query, includeArchived); err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}

	customers := make([]*domain.Customer, 0, len(rows))
	for _, row := range rows {
		c, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}

	return customers, nil
}

// Update updates an existing customer
func (r *CustomerRepo) Update(ctx context.Context, customer *domain.Customer) error {
	if err := customer.Validate(); err != nil {
		return fmt.Errorf("invalid customer: %w", err)
	}

	customer.UpdatedAt = time.Now()

	query := `
		UPDATE customers
		SET name = ?, email = ?, notes = ?, is_archived = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		customer.Name,
		customer.Email,
		customer.Notes,
		customer.IsArchived,
		customer.UpdatedAt.Format(timeLayout),
		customer.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}

	return requireOneRow(result, "customer", customer.ID)
}

// Archive marks a customer as archived. History stays in place so
// statements for past periods still balance.
func (r *CustomerRepo) Archive(ctx context.Context, id string) error {
	query := `
		UPDATE customers
		SET is_archived = 1, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query, formatTime(), id)
	if err != nil {
		return fmt.Errorf("failed to archive customer: %w", err)
	}

	return requireOneRow(result, "customer", id)
}

func requireOneRow(result sql.Result, what, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return nil
}
