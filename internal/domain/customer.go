package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Customer struct {
	ID         string
	Name       string
	Email      string
	Notes      string
	IsArchived bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewCustomer creates a new customer with a generated ID
func NewCustomer(name string) *Customer {
	now := time.Now()
	return &Customer{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(name),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate returns an error if the customer is invalid
func (c *Customer) Validate() error {
	if c.ID == "" {
		return errors.New("customer ID is required")
	}
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("customer name is required")
	}
	return nil
}
