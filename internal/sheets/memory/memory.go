// Package memory is an in-process RuleMirror. It records the last
// replicated snapshot; useful for tests and for running the worker
// without Google credentials.
package memory

import (
	"context"
	"sync"

	"budgetsplit/internal/core"
	ports "budgetsplit/internal/sheets"
)

type Mirror struct {
	mu       sync.Mutex
	snapshot []core.Rule
	replaces int
}

var _ ports.RuleMirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{}
}

func (m *Mirror) ReplaceRules(_ context.Context, rules []core.Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = append([]core.Rule(nil), rules...)
	m.replaces++
	return nil
}

// Snapshot returns a copy of the last replicated collection.
func (m *Mirror) Snapshot() []core.Rule {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.Rule(nil), m.snapshot...)
}

// Replaces reports how many full rewrites happened.
func (m *Mirror) Replaces() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.replaces
}
