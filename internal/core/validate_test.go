package core

import (
	"errors"
	"testing"
)

func kindOf(t *testing.T, err error) ValidationKind {
	t.Helper()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	return verr.Kind
}

func TestValidateRuleAcceptsSoundRules(t *testing.T) {
	cases := []struct {
		name string
		cats []Category
	}{
		{
			name: "pure percentages",
			cats: []Category{
				{Name: "Needs", Mode: ModePercentage, Percentage: dec("50")},
				{Name: "Rest", Mode: ModePercentage, Percentage: dec("50")},
			},
		},
		{
			name: "mixed",
			cats: []Category{
				{Name: "Rent", Mode: ModeFixed, FixedAmount: dec("400")},
				{Name: "Needs", Mode: ModePercentage, Percentage: dec("60")},
				{Name: "Wants", Mode: ModePercentage, Percentage: dec("40")},
			},
		},
		{
			name: "decimal noise rounds to 100",
			cats: []Category{
				{Name: "A", Mode: ModePercentage, Percentage: dec("33.33")},
				{Name: "B", Mode: ModePercentage, Percentage: dec("33.33")},
				{Name: "C", Mode: ModePercentage, Percentage: dec("33.33")},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := ValidateRule("My Rule", tc.cats, DefaultTestIncome); err != nil {
				t.Fatalf("expected ok, got %v", err)
			}
		})
	}
}

func TestValidateRuleKinds(t *testing.T) {
	pct5050 := []Category{
		{Name: "A", Mode: ModePercentage, Percentage: dec("50")},
		{Name: "B", Mode: ModePercentage, Percentage: dec("50")},
	}

	cases := []struct {
		name     string
		ruleName string
		cats     []Category
		want     ValidationKind
	}{
		{
			name:     "empty rule name",
			ruleName: "   ",
			cats:     pct5050,
			want:     EmptyName,
		},
		{
			name:     "empty category name",
			ruleName: "Rule",
			cats: []Category{
				{Name: "", Mode: ModePercentage, Percentage: dec("50")},
				{Name: "B", Mode: ModePercentage, Percentage: dec("50")},
			},
			want: EmptyCategoryName,
		},
		{
			name:     "fixed amount not positive",
			ruleName: "Rule",
			cats: []Category{
				{Name: "Rent", Mode: ModeFixed},
				{Name: "B", Mode: ModePercentage, Percentage: dec("100")},
			},
			want: InvalidFixedAmount,
		},
		{
			name:     "percentage not positive",
			ruleName: "Rule",
			cats: []Category{
				{Name: "A", Mode: ModePercentage},
				{Name: "B", Mode: ModePercentage, Percentage: dec("100")},
			},
			want: InvalidPercentage,
		},
		{
			name:     "fixed exceeds test income",
			ruleName: "Rule",
			cats: []Category{
				{Name: "Rent", Mode: ModeFixed, FixedAmount: dec("1500")},
				{Name: "B", Mode: ModePercentage, Percentage: dec("100")},
			},
			want: FixedExceedsIncome,
		},
		{
			name:     "percentages sum to 99",
			ruleName: "Rule",
			cats: []Category{
				{Name: "A", Mode: ModePercentage, Percentage: dec("49")},
				{Name: "B", Mode: ModePercentage, Percentage: dec("50")},
			},
			want: PercentageNot100,
		},
		{
			name:     "percentages sum to 101",
			ruleName: "Rule",
			cats: []Category{
				{Name: "A", Mode: ModePercentage, Percentage: dec("51")},
				{Name: "B", Mode: ModePercentage, Percentage: dec("50")},
			},
			want: PercentageNot100,
		},
		{
			name:     "fixed-only rule fails the percentage sum first",
			ruleName: "Rule",
			cats: []Category{
				{Name: "Rent", Mode: ModeFixed, FixedAmount: dec("600")},
				{Name: "Bills", Mode: ModeFixed, FixedAmount: dec("400")},
			},
			want: PercentageNot100,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateRule(tc.ruleName, tc.cats, DefaultTestIncome)
			if err == nil {
				t.Fatalf("expected error")
			}
			if got := kindOf(t, err); got != tc.want {
				t.Fatalf("kind = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestValidateRuleChecksRunInOrder(t *testing.T) {
	// Both the rule name and a category are broken: the name check wins.
	cats := []Category{
		{Name: "", Mode: ModePercentage},
		{Name: "B", Mode: ModePercentage, Percentage: dec("1")},
	}
	err := ValidateRule("", cats, DefaultTestIncome)
	if got := kindOf(t, err); got != EmptyName {
		t.Fatalf("kind = %s, want %s (first failure wins)", got, EmptyName)
	}
}
