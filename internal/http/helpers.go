package http

import (
	"strings"

	"github.com/shopspring/decimal"
)

// parseMoney parses a user-entered amount. Accepts a decimal comma and
// surrounding whitespace.
func parseMoney(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", ".")
	return decimal.NewFromString(s)
}

// formatMoney renders an amount with two decimal places for display.
func formatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// formatPercent renders a percentage with at most two decimal places.
func formatPercent(d decimal.Decimal) string {
	return d.Round(2).String()
}

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}
