package domain

import "time"

// DateLayout is the calendar-day format used for input and display
const DateLayout = "2006-01-02"

// Day returns midnight UTC of t's calendar date, taken in t's own location.
// Ledger comparisons happen at day granularity so a payment recorded at 09:00
// and an invoice issued at 15:00 on the same date share one date key.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
