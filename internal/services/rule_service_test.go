package services

import (
	"context"
	"testing"

	"budgetsplit/internal/colors"
	"budgetsplit/internal/core"
	"budgetsplit/internal/kv"
	"budgetsplit/internal/rules"

	"github.com/shopspring/decimal"
)

func newTestService(t *testing.T) *RuleService {
	t.Helper()
	repo := rules.NewRepository(kv.NewMemory(), colors.NewRandom(7))
	// Nil AMQP client: publish becomes a no-op, as when running without
	// a broker.
	return NewRuleService(repo, nil)
}

func twoCategories() []core.Category {
	return []core.Category{
		core.PercentageCategory("Needs", decimal.NewFromInt(50), "hsl(1, 70%, 65%)"),
		core.PercentageCategory("Wants", decimal.NewFromInt(50), "hsl(2, 70%, 65%)"),
	}
}

func TestAllRulesMergesPredefinedAndCustom(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	base := len(core.PredefinedRules())
	if got := svc.AllRules(ctx); len(got) != base {
		t.Fatalf("expected %d predefined rules, got %d", base, len(got))
	}

	if err := svc.CreateRule(ctx, core.Rule{ID: "custom-1", Name: "Mine", Categories: twoCategories()}); err != nil {
		t.Fatalf("create: %v", err)
	}

	got := svc.AllRules(ctx)
	if len(got) != base+1 {
		t.Fatalf("expected %d rules, got %d", base+1, len(got))
	}
	// Predefined first, custom after.
	if got[0].ID != core.Rule503020 {
		t.Fatalf("catalog order changed: first id = %s", got[0].ID)
	}
	if got[base].ID != "custom-1" {
		t.Fatalf("custom rule not appended: last id = %s", got[base].ID)
	}
}

func TestResolveCoversBothCatalogs(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	if _, ok := svc.Resolve(ctx, core.Rule503020); !ok {
		t.Fatal("predefined rule not resolvable")
	}
	if _, ok := svc.Resolve(ctx, "custom-1"); ok {
		t.Fatal("resolved a rule that does not exist")
	}

	if err := svc.CreateRule(ctx, core.Rule{ID: "custom-1", Name: "Mine", Categories: twoCategories()}); err != nil {
		t.Fatalf("create: %v", err)
	}
	r, ok := svc.Resolve(ctx, "custom-1")
	if !ok || r.Name != "Mine" {
		t.Fatalf("resolve custom rule = %+v ok=%v", r, ok)
	}
}

func TestMutationsWorkWithoutBroker(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	rule := core.Rule{ID: "custom-1", Name: "Mine", Categories: twoCategories()}
	if err := svc.CreateRule(ctx, rule); err != nil {
		t.Fatalf("create without broker: %v", err)
	}

	rule.Name = "Renamed"
	if err := svc.UpdateRule(ctx, rule); err != nil {
		t.Fatalf("update without broker: %v", err)
	}

	clone, err := svc.CloneRule(ctx, "custom-1")
	if err != nil {
		t.Fatalf("clone without broker: %v", err)
	}
	if clone.Name != "Renamed (Copy)" {
		t.Fatalf("clone name = %q", clone.Name)
	}

	if err := svc.DeleteRule(ctx, clone.ID); err != nil {
		t.Fatalf("delete without broker: %v", err)
	}
	if _, ok := svc.Resolve(ctx, clone.ID); ok {
		t.Fatal("clone still resolvable after delete")
	}
}

func TestImportExportThroughService(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	if err := svc.CreateRule(ctx, core.Rule{ID: "custom-1", Name: "Mine", Categories: twoCategories()}); err != nil {
		t.Fatalf("create: %v", err)
	}
	data, err := svc.ExportRules(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	other := newTestService(t)
	res, err := other.ImportRules(ctx, data)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Imported != 1 || res.Skipped != 0 {
		t.Fatalf("import result = %+v", res)
	}
}
