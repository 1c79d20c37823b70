// Package core holds the budget domain: categories, rules, the
// allocation engine and the rule validator. Everything here is pure;
// storage and transport live in their own packages.
package core

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

type (
	// AllocationLine is one computed row of a budget breakdown.
	AllocationLine struct {
		Name string
		// Amount is the currency amount allocated to the category.
		Amount decimal.Decimal
		// EffectivePercentage is Amount expressed as a percentage of the
		// total income, for fixed categories too.
		EffectivePercentage decimal.Decimal
		Fixed               bool
		Color               string
	}

	// AllocationResult is the derived breakdown for one (income, rule)
	// pair. It is never persisted.
	AllocationResult struct {
		Lines []AllocationLine
		// TotalFixed is the sum of all fixed-amount categories.
		TotalFixed decimal.Decimal
		// Remaining is income minus TotalFixed, the pool percentage
		// categories divide. May be negative on degenerate input.
		Remaining decimal.Decimal
		// Total is always the income itself: fixed amounts plus the
		// remaining pool distributed over percentages summing to 100
		// reconstruct it by construction.
		Total decimal.Decimal
	}
)

// Allocate splits income across categories. It is total over any
// numeric input: income <= 0 or fixed amounts exceeding income flow
// through as zero or negative amounts for the caller to flag.
//
// Lines come back in display order: fixed categories first, then
// percentage categories, original relative order preserved within each
// group.
func Allocate(income decimal.Decimal, categories []Category) AllocationResult {
	totalFixed := TotalFixed(categories)
	remaining := income.Sub(totalFixed)

	lines := make([]AllocationLine, 0, len(categories))
	for _, c := range categories {
		if c.IsFixed() {
			lines = append(lines, line(c, c.FixedAmount, income))
		}
	}
	for _, c := range categories {
		if !c.IsFixed() {
			amount := remaining.Mul(c.Percentage).Div(hundred)
			lines = append(lines, line(c, amount, income))
		}
	}

	return AllocationResult{
		Lines:      lines,
		TotalFixed: totalFixed,
		Remaining:  remaining,
		Total:      income,
	}
}

func line(c Category, amount, income decimal.Decimal) AllocationLine {
	var effective decimal.Decimal
	if !income.IsZero() {
		effective = amount.Div(income).Mul(hundred)
	}
	return AllocationLine{
		Name:                c.Name,
		Amount:              amount,
		EffectivePercentage: effective,
		Fixed:               c.IsFixed(),
		Color:               c.Color,
	}
}

// TotalFixed sums the fixed amounts over all fixed-mode categories.
func TotalFixed(categories []Category) decimal.Decimal {
	sum := decimal.Zero
	for _, c := range categories {
		if c.IsFixed() {
			sum = sum.Add(c.FixedAmount)
		}
	}
	return sum
}

// TotalPercentage sums the declared percentages over all
// percentage-mode categories.
func TotalPercentage(categories []Category) decimal.Decimal {
	sum := decimal.Zero
	for _, c := range categories {
		if !c.IsFixed() {
			sum = sum.Add(c.Percentage)
		}
	}
	return sum
}

// Remaining returns income minus the fixed-amount total.
func Remaining(income decimal.Decimal, categories []Category) decimal.Decimal {
	return income.Sub(TotalFixed(categories))
}
