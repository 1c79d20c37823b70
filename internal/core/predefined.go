package core

import "github.com/shopspring/decimal"

// Built-in rule ids. These never appear in the persisted collection and
// generated custom ids must never collide with them.
const (
	Rule503020   = "50-30-20"
	Rule25501510 = "25-50-15-10"
	Rule602020   = "60-20-20"
	Rule702010   = "70-20-10"
)

type predefinedCategory struct {
	name       string
	percentage int64
	color      string
}

type predefinedRule struct {
	id          string
	name        string
	description string
	categories  []predefinedCategory
}

// The built-in catalog is data, not logic: percentage-only categories
// summing to 100, with stable display colors.
var predefinedCatalog = []predefinedRule{
	{
		id:   Rule503020,
		name: "50/30/20 Rule",
		description: "50% for needs (essential expenses), 30% for wants (non-essential spending), " +
			"and 20% for savings or debt repayment",
		categories: []predefinedCategory{
			{"Needs", 50, "#4ade80"},
			{"Wants", 30, "#60a5fa"},
			{"Savings", 20, "#f472b6"},
		},
	},
	{
		id:   Rule25501510,
		name: "25/50/15/10 Rule",
		description: "25% for housing, 50% for necessities (including food and transportation), " +
			"15% for savings or investments, and 10% for fun or leisure",
		categories: []predefinedCategory{
			{"Housing", 25, "#4ade80"},
			{"Necessities", 50, "#60a5fa"},
			{"Savings", 15, "#f472b6"},
			{"Fun", 10, "#fbbf24"},
		},
	},
	{
		id:   Rule602020,
		name: "60/20/20 Rule",
		description: "60% for living expenses (all essential and some discretionary), " +
			"20% for savings and debt repayment, and 20% for personal spending",
		categories: []predefinedCategory{
			{"Living Expenses", 60, "#4ade80"},
			{"Savings & Debt", 20, "#60a5fa"},
			{"Personal Spending", 20, "#f472b6"},
		},
	},
	{
		id:   Rule702010,
		name: "70/20/10 Rule",
		description: "70% for living expenses, 20% for savings or investments, and 10% for giving",
		categories: []predefinedCategory{
			{"Living Expenses", 70, "#4ade80"},
			{"Savings", 20, "#60a5fa"},
			{"Giving", 10, "#f472b6"},
		},
	},
}

// PredefinedRules returns the built-in rules in catalog order. Each
// call builds fresh copies so callers cannot mutate the catalog.
func PredefinedRules() []Rule {
	out := make([]Rule, 0, len(predefinedCatalog))
	for _, p := range predefinedCatalog {
		out = append(out, p.build())
	}
	return out
}

// PredefinedRule looks up one built-in rule by id.
func PredefinedRule(id string) (Rule, bool) {
	for _, p := range predefinedCatalog {
		if p.id == id {
			return p.build(), true
		}
	}
	return Rule{}, false
}

// IsPredefinedID reports whether id belongs to the built-in catalog.
func IsPredefinedID(id string) bool {
	_, ok := PredefinedRule(id)
	return ok
}

func (p predefinedRule) build() Rule {
	cats := make([]Category, 0, len(p.categories))
	for _, c := range p.categories {
		cats = append(cats, PercentageCategory(c.name, decimal.NewFromInt(c.percentage), c.color))
	}
	return Rule{
		ID:          p.id,
		Name:        p.name,
		Description: p.description,
		Categories:  cats,
	}
}
