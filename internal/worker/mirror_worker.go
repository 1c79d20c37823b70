// Package worker glues the AMQP consumer to the mirror processor.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"budgetsplit/internal/amqp"
	"budgetsplit/internal/services"
)

// syncTimeout bounds one full mirror rewrite.
const syncTimeout = 30 * time.Second

// MirrorWorker turns incoming rule sync messages into mirror rewrites.
// The message is only a change notification; the local store is read
// fresh on every sync, so upserts and deletes take the same path.
type MirrorWorker struct {
	processor *services.MirrorProcessor
}

func NewMirrorWorker(processor *services.MirrorProcessor) *MirrorWorker {
	return &MirrorWorker{processor: processor}
}

// HandleSyncMessage rewrites the mirror in response to one message.
// Returning an error requeues the message.
func (w *MirrorWorker) HandleSyncMessage(msg *amqp.RuleSyncMessage) error {
	ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
	defer cancel()

	slog.InfoContext(ctx, "Processing rule sync message",
		"ruleId", msg.RuleID, "action", msg.Action, "timestamp", msg.Timestamp)

	if err := w.processor.Sync(ctx); err != nil {
		return fmt.Errorf("sync mirror for %s: %w", msg.RuleID, err)
	}
	return nil
}
