package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// ModePercentage allocates a share of the income left after fixed amounts.
	ModePercentage AllocationMode = "percentage"
	// ModeFixed allocates a fixed currency amount regardless of income.
	ModeFixed AllocationMode = "fixed"
)

type (
	// AllocationMode selects how a category claims its share of income.
	AllocationMode string

	// Category is one line item of a budget rule. Percentage is meaningful
	// only in ModePercentage, FixedAmount only in ModeFixed; use the
	// constructors to keep the two from being set together.
	Category struct {
		Name        string
		Mode        AllocationMode
		Percentage  decimal.Decimal
		FixedAmount decimal.Decimal
		Color       string
	}

	// Rule is a named, ordered set of categories describing how to split
	// income. Category order is display order only.
	Rule struct {
		ID          string
		Name        string
		Description string
		Categories  []Category
	}
)

var (
	ErrEmptyRuleName     = errors.New("empty rule name")
	ErrEmptyCategoryName = errors.New("empty category name")
	ErrInvalidMode       = errors.New("invalid allocation mode")
)

// PercentageCategory builds a percentage-of-remaining-income category.
func PercentageCategory(name string, percentage decimal.Decimal, color string) Category {
	return Category{
		Name:       name,
		Mode:       ModePercentage,
		Percentage: percentage,
		Color:      color,
	}
}

// FixedCategory builds a fixed-currency-amount category.
func FixedCategory(name string, amount decimal.Decimal, color string) Category {
	return Category{
		Name:        name,
		Mode:        ModeFixed,
		FixedAmount: amount,
		Color:       color,
	}
}

// IsFixed reports whether the category claims a fixed amount.
func (c Category) IsFixed() bool {
	return c.Mode == ModeFixed
}

// IsValid returns true for a known allocation mode.
func (m AllocationMode) IsValid() bool {
	switch m {
	case ModePercentage, ModeFixed:
		return true
	default:
		return false
	}
}

func (m AllocationMode) String() string {
	return string(m)
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyCategoryName
	}
	if !c.Mode.IsValid() {
		return ErrInvalidMode
	}
	return nil
}

func (r Rule) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptyRuleName
	}
	for _, c := range r.Categories {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// CloneCategories returns a deep copy of the rule's category list so
// callers can mutate it without touching the original.
func (r Rule) CloneCategories() []Category {
	out := make([]Category, len(r.Categories))
	copy(out, r.Categories)
	return out
}
