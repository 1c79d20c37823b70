package core

import "testing"

func TestPredefinedRulesSumTo100(t *testing.T) {
	rules := PredefinedRules()
	if len(rules) != 4 {
		t.Fatalf("expected 4 built-in rules, got %d", len(rules))
	}
	for _, r := range rules {
		if !TotalPercentage(r.Categories).Equal(dec("100")) {
			t.Fatalf("rule %s percentages sum to %s", r.ID, TotalPercentage(r.Categories))
		}
		for _, c := range r.Categories {
			if c.IsFixed() {
				t.Fatalf("rule %s has a fixed category %s", r.ID, c.Name)
			}
		}
	}
}

func TestPredefinedRuleLookup(t *testing.T) {
	r, ok := PredefinedRule(Rule503020)
	if !ok {
		t.Fatalf("missing %s", Rule503020)
	}
	if r.Name != "50/30/20 Rule" {
		t.Fatalf("name = %q", r.Name)
	}
	if _, ok := PredefinedRule("custom-123"); ok {
		t.Fatalf("custom id resolved as predefined")
	}
	if !IsPredefinedID(Rule702010) || IsPredefinedID("nope") {
		t.Fatalf("IsPredefinedID misbehaves")
	}
}

func TestPredefinedRulesAreImmutable(t *testing.T) {
	first := PredefinedRules()
	first[0].Categories[0].Name = "tampered"
	second := PredefinedRules()
	if second[0].Categories[0].Name != "Needs" {
		t.Fatalf("catalog mutated through returned copy")
	}
}
