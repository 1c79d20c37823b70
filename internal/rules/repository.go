// Package rules owns the persisted collection of user-authored budget
// rules: CRUD, cloning, and export/import with merge-by-id semantics.
// Predefined rules never pass through here; they are compile-time data
// merged at read time by the caller.
package rules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"budgetsplit/internal/colors"
	"budgetsplit/internal/core"
	"budgetsplit/internal/kv"
)

// StorageKey is the single well-known key the whole collection lives
// under in the key-value store.
const StorageKey = "customBudgetRules"

// ExportFilename is the suggested name for a saved export file.
const ExportFilename = "custom-budget-rules.json"

// CopySuffix is appended to a cloned rule's name.
const CopySuffix = " (Copy)"

// Repository owns exclusive read-modify-write access to the persisted
// rule collection. Every mutation rewrites the whole collection so the
// store never sees a partial update; mu holds each mutation's read and
// write together so concurrent handlers cannot lose updates.
type Repository struct {
	store  kv.Store
	colors colors.Generator
	now    func() time.Time

	mu sync.Mutex
}

// ImportResult reports how an import merge went, for user feedback.
type ImportResult struct {
	Imported int
	Skipped  int
}

func NewRepository(store kv.Store, gen colors.Generator) *Repository {
	return &Repository{
		store:  store,
		colors: gen,
		now:    time.Now,
	}
}

// NewID generates a custom rule id from a high-resolution timestamp.
// Creation defensively rejects collisions anyway.
func (r *Repository) NewID() string {
	return fmt.Sprintf("custom-%d", r.now().UnixNano())
}

// NewColor hands out a display color for a new category.
func (r *Repository) NewColor() string {
	return r.colors.Next()
}

// ColorAvoiding hands out a display color distinguishable from avoid.
func (r *Repository) ColorAvoiding(avoid string) string {
	return r.colors.Avoiding(avoid)
}

// List returns the persisted custom rules in storage order. An absent
// key, a store failure, or malformed JSON all read as an empty
// collection: rule listing must never block the user, so those are
// logged and swallowed.
func (r *Repository) List(ctx context.Context) []core.Rule {
	raw, ok, err := r.store.Get(ctx, StorageKey)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to read rule collection, treating as empty",
			"error", err, "key", StorageKey)
		return nil
	}
	if !ok || raw == "" {
		return nil
	}

	parsed, err := decodeStored([]byte(raw))
	if err != nil {
		slog.WarnContext(ctx, "Malformed rule collection in store, treating as empty",
			"error", err, "key", StorageKey)
		return nil
	}
	return parsed
}

// Get finds one persisted rule by id.
func (r *Repository) Get(ctx context.Context, id string) (core.Rule, bool) {
	for _, rule := range r.List(ctx) {
		if rule.ID == id {
			return rule, true
		}
	}
	return core.Rule{}, false
}

// Create appends a rule to the collection. The id must not collide
// with a persisted rule or a predefined one.
func (r *Repository) Create(ctx context.Context, rule core.Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.create(ctx, rule)
}

// create is Create without the lock, for callers already holding mu.
func (r *Repository) create(ctx context.Context, rule core.Rule) error {
	if err := checkCategoryCount(rule); err != nil {
		return err
	}
	if core.IsPredefinedID(rule.ID) {
		return fmt.Errorf("%w: %s is a predefined rule id", ErrDuplicateID, rule.ID)
	}

	existing := r.List(ctx)
	for _, e := range existing {
		if e.ID == rule.ID {
			return fmt.Errorf("%w: %s", ErrDuplicateID, rule.ID)
		}
	}

	return r.save(ctx, append(existing, rule))
}

// Update replaces the persisted rule with the same id.
func (r *Repository) Update(ctx context.Context, rule core.Rule) error {
	if err := checkCategoryCount(rule); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing := r.List(ctx)
	replaced := false
	for i, e := range existing {
		if e.ID == rule.ID {
			existing[i] = rule
			replaced = true
			break
		}
	}
	if !replaced {
		return fmt.Errorf("%w: %s", ErrNotFound, rule.ID)
	}

	return r.save(ctx, existing)
}

// Delete removes a rule by id. A missing id is a no-op, not an error.
func (r *Repository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing := r.List(ctx)
	kept := existing[:0]
	for _, e := range existing {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(existing) {
		return nil
	}
	return r.save(ctx, kept)
}

// Clone duplicates a rule under a fresh id, with the name suffixed and
// every category recolored so the copy is visually distinguishable.
func (r *Repository) Clone(ctx context.Context, id string) (core.Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var source core.Rule
	found := false
	for _, rule := range r.List(ctx) {
		if rule.ID == id {
			source = rule
			found = true
			break
		}
	}
	if !found {
		return core.Rule{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	clone := core.Rule{
		ID:         r.NewID(),
		Name:       source.Name + CopySuffix,
		Categories: source.CloneCategories(),
	}
	for i := range clone.Categories {
		clone.Categories[i].Color = r.colors.Avoiding(clone.Categories[i].Color)
	}

	if err := r.create(ctx, clone); err != nil {
		return core.Rule{}, err
	}
	return clone, nil
}

// ExportAll serializes the whole persisted collection as UTF-8 JSON.
func (r *Repository) ExportAll(ctx context.Context) ([]byte, error) {
	existing := r.List(ctx)
	if len(existing) == 0 {
		return nil, ErrNothingToExport
	}
	data, err := encodeRules(existing)
	if err != nil {
		return nil, fmt.Errorf("encode rules: %w", err)
	}
	return data, nil
}

// ImportMerge parses data as a rule sequence and merges it into the
// collection by id: existing rules win, non-colliding records are
// appended. The batch is rejected atomically on any shape violation.
func (r *Repository) ImportMerge(ctx context.Context, data []byte) (ImportResult, error) {
	incoming, err := decodeImport(data)
	if err != nil {
		return ImportResult{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing := r.List(ctx)
	known := make(map[string]struct{}, len(existing))
	for _, e := range existing {
		known[e.ID] = struct{}{}
	}

	var res ImportResult
	merged := existing
	for _, in := range incoming {
		if _, collides := known[in.ID]; collides || core.IsPredefinedID(in.ID) {
			res.Skipped++
			continue
		}
		known[in.ID] = struct{}{}
		merged = append(merged, in)
		res.Imported++
	}

	if res.Imported > 0 {
		if err := r.save(ctx, merged); err != nil {
			return ImportResult{}, err
		}
	}
	return res, nil
}

func (r *Repository) save(ctx context.Context, all []core.Rule) error {
	data, err := encodeRules(all)
	if err != nil {
		return fmt.Errorf("encode rules: %w", err)
	}
	if err := r.store.Set(ctx, StorageKey, string(data)); err != nil {
		return fmt.Errorf("persist rules: %w", err)
	}
	return nil
}

func checkCategoryCount(rule core.Rule) error {
	if len(rule.Categories) < core.MinCategories {
		return &core.ValidationError{
			Kind:    core.MinimumCategoryCount,
			Message: fmt.Sprintf("you need at least %d categories for a budget rule", core.MinCategories),
		}
	}
	return nil
}

// IsValidationError reports whether err carries a user-correctable
// authoring mistake rather than a repository failure.
func IsValidationError(err error) bool {
	var verr *core.ValidationError
	return errors.As(err, &verr)
}
