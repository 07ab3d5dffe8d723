package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/andy/tally/internal/domain"
	"github.com/andy/tally/internal/repository"
	"github.com/shopspring/decimal"
)

// mock implementations

type mockCustomerRepo struct {
	customers map[string]*domain.Customer
}

func newMockCustomerRepo(customers ...*domain.Customer) *mockCustomerRepo {
	m := &mockCustomerRepo{customers: map[string]*domain.Customer{}}
	for _, c := range customers {
		m.customers[c.ID] = c
	}
	return m
}

func (m *mockCustomerRepo) Create(ctx context.Context, c *domain.Customer) error {
	m.customers[c.ID] = c
	return nil
}
func (m *mockCustomerRepo) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	if c, ok := m.customers[id]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("customer %s: %w", id, repository.ErrNotFound)
}
func (m *mockCustomerRepo) GetByName(ctx context.Context, name string) (*domain.Customer, error) {
	for _, c := range m.customers {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, repository.ErrNotFound
}
func (m *mockCustomerRepo) List(ctx context.Context, includeArchived bool) ([]*domain.Customer, error) {
	out := make([]*domain.Customer, 0)
	for _, c := range m.customers {
		if includeArchived || !c.IsArchived {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
func (m *mockCustomerRepo) Update(ctx context.Context, c *domain.Customer) error { return nil }
func (m *mockCustomerRepo) Archive(ctx context.Context, id string) error {
	m.customers[id].IsArchived = true
	return nil
}

// mockInvoiceRepo stores copies so callers hold snapshots, like the SQL repo.
type mockInvoiceRepo struct {
	invoices  map[string]domain.Invoice
	order     []string
	payments  *mockPaymentRepo
	history   []*domain.InvoiceHistory
	nextSeq   int
	conflicts int // Settle calls that lose a race before succeeding
	settles   int
}

func newMockInvoiceRepo(payments *mockPaymentRepo) *mockInvoiceRepo {
	return &mockInvoiceRepo{invoices: map[string]domain.Invoice{}, payments: payments, nextSeq: 1}
}

func (m *mockInvoiceRepo) put(inv *domain.Invoice) {
	if _, ok := m.invoices[inv.ID]; !ok {
		m.order = append(m.order, inv.ID)
	}
	if inv.Version == 0 {
		inv.Version = 1
	}
	m.invoices[inv.ID] = *inv
}

func (m *mockInvoiceRepo) Create(ctx context.Context, inv *domain.Invoice) error {
	m.put(inv)
	return nil
}
func (m *mockInvoiceRepo) GetByID(ctx context.Context, id string) (*domain.Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return nil, fmt.Errorf("invoice %s: %w", id, repository.ErrNotFound)
	}
	return &inv, nil
}
func (m *mockInvoiceRepo) GetByNumber(ctx context.Context, number string) (*domain.Invoice, error) {
	for _, inv := range m.invoices {
		if inv.InvoiceNumber == number {
			out := inv
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}
func (m *mockInvoiceRepo) List(ctx context.Context, f repository.InvoiceFilter) ([]*domain.Invoice, error) {
	out := make([]*domain.Invoice, 0)
	for _, id := range m.order {
		inv := m.invoices[id]
		if f.CustomerID != nil && inv.CustomerID != *f.CustomerID {
			continue
		}
		if f.Status != nil && inv.Status != *f.Status {
			continue
		}
		out = append(out, &inv)
	}
	return out, nil
}
func (m *mockInvoiceRepo) UpdateStatus(ctx context.Context, inv *domain.Invoice, status domain.InvoiceStatus, reason string) error {
	stored, ok := m.invoices[inv.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Version != inv.Version {
		return repository.ErrVersionConflict
	}
	m.history = append(m.history, domain.NewInvoiceHistory(inv.ID, "status", string(inv.Status), string(status), reason))
	inv.Status = status
	inv.Version++
	m.invoices[inv.ID] = *inv
	return nil
}
func (m *mockInvoiceRepo) Settle(ctx context.Context, req repository.SettleRequest) error {
	m.settles++
	stored := m.invoices[req.Invoice.ID]
	if m.conflicts > 0 {
		m.conflicts--
		// another writer got there first
		stored.Version++
		m.invoices[stored.ID] = stored
		return repository.ErrVersionConflict
	}
	if stored.Version != req.Invoice.Version {
		return repository.ErrVersionConflict
	}
	req.Invoice.AmountPaid = domain.NewAmount(req.AmountPaid)
	req.Invoice.Status = req.Status
	req.Invoice.Version++
	m.invoices[stored.ID] = *req.Invoice
	m.payments.payments = append(m.payments.payments, req.Payment)
	return nil
}
func (m *mockInvoiceRepo) History(ctx context.Context, invoiceID string) ([]*domain.InvoiceHistory, error) {
	return m.history, nil
}
func (m *mockInvoiceRepo) GetNextInvoiceNumber(ctx context.Context, prefix string, year int) (string, error) {
	n := fmt.Sprintf("%s-%d-%04d", prefix, year, m.nextSeq)
	m.nextSeq++
	return n, nil
}

type mockPaymentRepo struct {
	payments []*domain.Payment
}

func (m *mockPaymentRepo) Create(ctx context.Context, p *domain.Payment) error {
	m.payments = append(m.payments, p)
	return nil
}
func (m *mockPaymentRepo) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	for _, p := range m.payments {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, repository.ErrNotFound
}
func (m *mockPaymentRepo) List(ctx context.Context, f repository.PaymentFilter) ([]*domain.Payment, error) {
	out := make([]*domain.Payment, 0)
	for _, p := range m.payments {
		if f.CustomerID != nil && p.CustomerID != *f.CustomerID {
			continue
		}
		if f.InvoiceID != nil && (p.InvoiceID == nil || *p.InvoiceID != *f.InvoiceID) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

type fixture struct {
	customers *mockCustomerRepo
	invoices  *mockInvoiceRepo
	payments  *mockPaymentRepo
	acme      *domain.Customer
}

func newFixture() *fixture {
	acme := domain.NewCustomer("Acme")
	payments := &mockPaymentRepo{}
	return &fixture{
		customers: newMockCustomerRepo(acme),
		invoices:  newMockInvoiceRepo(payments),
		payments:  payments,
		acme:      acme,
	}
}

func date(s string) time.Time {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func (f *fixture) invoice(customerID, number, issued, total string, status domain.InvoiceStatus) *domain.Invoice {
	inv := domain.NewInvoice(number, customerID, date(issued), decimal.RequireFromString(total))
	inv.Status = status
	f.invoices.put(inv)
	return inv
}

func paymentsOf(customerID string) repository.PaymentFilter {
	return repository.PaymentFilter{CustomerID: &customerID}
}
