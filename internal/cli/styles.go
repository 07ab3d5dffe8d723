package cli

import (
	"github.com/andy/tally/internal/domain"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

var (
	// Colors
	primaryColor = lipgloss.Color("39")  // Blue
	mutedColor   = lipgloss.Color("241") // Gray
	successColor = lipgloss.Color("76")  // Green
	warningColor = lipgloss.Color("214") // Orange
	errorColor   = lipgloss.Color("196") // Red

	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	subtitleStyle = lipgloss.NewStyle().Foreground(mutedColor)
	successStyle  = lipgloss.NewStyle().Foreground(successColor)
	warningStyle  = lipgloss.NewStyle().Foreground(warningColor)
	errorStyle    = lipgloss.NewStyle().Bold(true).Foreground(errorColor)
	totalStyle    = lipgloss.NewStyle().Bold(true)
)

func statusStyle(status domain.InvoiceStatus) lipgloss.Style {
	switch status {
	case domain.InvoiceStatusPaid:
		return successStyle
	case domain.InvoiceStatusPartial, domain.InvoiceStatusSent:
		return warningStyle
	case domain.InvoiceStatusOverdue:
		return errorStyle
	default:
		return subtitleStyle
	}
}

// renderStatus pads before styling so escape codes don't break columns
func renderStatus(status domain.InvoiceStatus, width int) string {
	return statusStyle(status).Render(padRight(string(status), width))
}

func padRight(s string, width int) string {
	for len(s) < width {
		s += " "
	}
	return s
}

func formatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// formatAmount shows unreadable stored amounts verbatim with a marker
func formatAmount(a domain.Amount) string {
	d, err := a.Decimal()
	if err != nil {
		return "!" + a.String()
	}
	return formatMoney(d)
}
