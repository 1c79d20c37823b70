package worker

import (
	"context"
	"testing"

	"budgetsplit/internal/amqp"
	"budgetsplit/internal/colors"
	"budgetsplit/internal/core"
	"budgetsplit/internal/kv"
	"budgetsplit/internal/rules"
	"budgetsplit/internal/services"
	"budgetsplit/internal/sheets/memory"

	"github.com/shopspring/decimal"
)

func TestHandleSyncMessageRewritesMirror(t *testing.T) {
	repo := rules.NewRepository(kv.NewMemory(), colors.NewRandom(7))
	mirror := memory.New()
	processor := services.NewMirrorProcessor(repo, mirror, services.DefaultMirrorProcessorConfig())
	w := NewMirrorWorker(processor)

	rule := core.Rule{
		ID:   "custom-1",
		Name: "Halves",
		Categories: []core.Category{
			core.PercentageCategory("A", decimal.NewFromInt(50), "#111111"),
			core.PercentageCategory("B", decimal.NewFromInt(50), "#222222"),
		},
	}
	if err := repo.Create(context.Background(), rule); err != nil {
		t.Fatalf("create: %v", err)
	}

	msg := amqp.NewRuleSyncMessage(rule.ID, amqp.ActionUpsert)
	if err := w.HandleSyncMessage(msg); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if got := mirror.Snapshot(); len(got) != 1 || got[0].ID != "custom-1" {
		t.Fatalf("mirror = %+v", got)
	}

	// A delete message also resolves to a full rewrite of what remains.
	if err := repo.Delete(context.Background(), rule.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	del := amqp.NewRuleSyncMessage(rule.ID, amqp.ActionDelete)
	if err := w.HandleSyncMessage(del); err != nil {
		t.Fatalf("handle delete: %v", err)
	}
	if got := mirror.Snapshot(); len(got) != 0 {
		t.Fatalf("mirror not emptied: %+v", got)
	}
	if mirror.Replaces() != 2 {
		t.Fatalf("replaces = %d", mirror.Replaces())
	}
}
