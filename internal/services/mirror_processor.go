package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"budgetsplit/internal/rules"
	"budgetsplit/internal/sheets"
)

// MirrorProcessorConfig holds configuration for the mirror processor.
type MirrorProcessorConfig struct {
	// RefreshInterval is how often to re-mirror the full collection
	// regardless of messages (default: 15m). This heals lost messages.
	RefreshInterval time.Duration
}

func DefaultMirrorProcessorConfig() MirrorProcessorConfig {
	return MirrorProcessorConfig{
		RefreshInterval: 15 * time.Minute,
	}
}

// MirrorProcessor keeps the external spreadsheet in step with the local
// rule collection. Every sync, whether message-driven or periodic, is a
// full rewrite of the mirror.
type MirrorProcessor struct {
	repo   *rules.Repository
	mirror sheets.RuleMirror
	config MirrorProcessorConfig

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewMirrorProcessor(repo *rules.Repository, mirror sheets.RuleMirror, config MirrorProcessorConfig) *MirrorProcessor {
	return &MirrorProcessor{
		repo:   repo,
		mirror: mirror,
		config: config,
	}
}

// Sync rewrites the mirror from the current collection. It is the
// handler behind every rule sync message: the message only says that
// something changed, the store is the source of truth.
func (p *MirrorProcessor) Sync(ctx context.Context) error {
	all := p.repo.List(ctx)
	if err := p.mirror.ReplaceRules(ctx, all); err != nil {
		return fmt.Errorf("replace mirrored rules: %w", err)
	}
	slog.InfoContext(ctx, "Mirror synced", "rules", len(all))
	return nil
}

// Start begins the periodic refresh loop. Returns an error if already
// running.
func (p *MirrorProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("mirror processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Mirror processor started",
		"refresh_interval", p.config.RefreshInterval)

	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *MirrorProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		slog.InfoContext(ctx, "Mirror processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Mirror processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

// IsRunning returns whether the processor is currently running.
func (p *MirrorProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *MirrorProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.RefreshInterval)
	defer ticker.Stop()

	// Mirror immediately on startup to recover from missed messages.
	if err := p.Sync(ctx); err != nil {
		slog.ErrorContext(ctx, "Startup mirror sync failed", "error", err)
	}

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.Sync(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic mirror sync failed", "error", err)
			}
		}
	}
}
