package domain

import "time"

type InvoiceHistory struct {
	ID           int64
	InvoiceID    string
	FieldName    string
	OldValue     string
	NewValue     string
	ChangeReason string
	ChangedAt    time.Time
}

// NewInvoiceHistory creates a history record for a settlement field change
func NewInvoiceHistory(invoiceID, fieldName, oldValue, newValue, reason string) *InvoiceHistory {
	return &InvoiceHistory{
		InvoiceID:    invoiceID,
		FieldName:    fieldName,
		OldValue:     oldValue,
		NewValue:     newValue,
		ChangeReason: reason,
		ChangedAt:    time.Now(),
	}
}
