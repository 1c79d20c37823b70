package memory

import (
	"context"
	"testing"

	"budgetsplit/internal/core"

	"github.com/shopspring/decimal"
)

func TestMirrorRecordsLastSnapshot(t *testing.T) {
	ctx := context.Background()
	m := New()

	first := []core.Rule{{ID: "custom-1", Name: "One"}}
	second := []core.Rule{
		{ID: "custom-1", Name: "One"},
		{ID: "custom-2", Name: "Two", Categories: []core.Category{
			core.PercentageCategory("A", decimal.NewFromInt(100), "hsl(1, 70%, 65%)"),
		}},
	}

	if err := m.ReplaceRules(ctx, first); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if err := m.ReplaceRules(ctx, second); err != nil {
		t.Fatalf("replace: %v", err)
	}

	snap := m.Snapshot()
	if len(snap) != 2 || snap[1].ID != "custom-2" {
		t.Fatalf("snapshot = %+v", snap)
	}
	if m.Replaces() != 2 {
		t.Fatalf("replaces = %d", m.Replaces())
	}
}
