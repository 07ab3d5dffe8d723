package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andy/tally/internal/domain"
	"github.com/andy/tally/internal/repository"
	"github.com/shopspring/decimal"
)

// parseDate accepts YYYY-MM-DD, "today" or "yesterday"
func parseDate(s string) (time.Time, error) {
	today := domain.Day(time.Now())
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "today":
		return today, nil
	case "yesterday":
		return today.AddDate(0, 0, -1), nil
	}

	t, err := time.Parse(domain.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("expected format: YYYY-MM-DD, 'today', or 'yesterday'")
	}
	return t, nil
}

// parseAmount reads a positive decimal money amount such as "1250.00"
func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("amount must be positive, got %s", d)
	}
	return d, nil
}

// resolveCustomer finds a customer by ID or, failing that, by exact name
func resolveCustomer(ctx context.Context, repo repository.CustomerRepository, ref string) (*domain.Customer, error) {
	customer, err := repo.GetByID(ctx, ref)
	if err == nil {
		return customer, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}

	customer, err = repo.GetByName(ctx, ref)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("customer not found: %s", ref)
		}
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return customer, nil
}

// customerNames caches ID to name lookups for table output
type customerNames struct {
	repo  repository.CustomerRepository
	names map[string]string
}

func newCustomerNames(repo repository.CustomerRepository) *customerNames {
	return &customerNames{repo: repo, names: make(map[string]string)}
}

func (c *customerNames) get(ctx context.Context, id string) string {
	if name, ok := c.names[id]; ok {
		return name
	}
	name := shortID(id)
	if customer, err := c.repo.GetByID(ctx, id); err == nil {
		name = customer.Name
	}
	c.names[id] = name
	return name
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(domain.DateLayout)
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
