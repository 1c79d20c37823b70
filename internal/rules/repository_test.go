package rules

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"budgetsplit/internal/colors"
	"budgetsplit/internal/core"
	"budgetsplit/internal/kv"

	"github.com/shopspring/decimal"
)

func newTestRepo(t *testing.T) (*Repository, *kv.Memory) {
	t.Helper()
	store := kv.NewMemory()
	repo := NewRepository(store, colors.NewRandom(42))
	// Monotonic clock so back-to-back creates never share an id.
	var tick int64
	repo.now = func() time.Time {
		tick++
		return time.Unix(0, tick)
	}
	return repo, store
}

func sampleRule(id, name string) core.Rule {
	return core.Rule{
		ID:   id,
		Name: name,
		Categories: []core.Category{
			core.FixedCategory("Rent", decimal.NewFromInt(800), "hsl(10, 70%, 65%)"),
			core.PercentageCategory("Savings", decimal.NewFromInt(40), "hsl(120, 70%, 65%)"),
			core.PercentageCategory("Fun", decimal.NewFromInt(60), "hsl(240, 70%, 65%)"),
		},
	}
}

func TestCreateAndList(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	if got := repo.List(ctx); len(got) != 0 {
		t.Fatalf("fresh repo should list no rules, got %d", len(got))
	}

	if err := repo.Create(ctx, sampleRule("custom-1", "Mine")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Create(ctx, sampleRule("custom-2", "Also mine")); err != nil {
		t.Fatalf("create second: %v", err)
	}

	got := repo.List(ctx)
	if len(got) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(got))
	}
	if got[0].ID != "custom-1" || got[1].ID != "custom-2" {
		t.Fatalf("storage order not preserved: %s, %s", got[0].ID, got[1].ID)
	}
	if got[0].Categories[0].Name != "Rent" || !got[0].Categories[0].IsFixed() {
		t.Fatalf("categories did not round-trip: %+v", got[0].Categories[0])
	}
}

func TestCreateRejectsDuplicateAndPredefinedIDs(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	if err := repo.Create(ctx, sampleRule("custom-1", "Mine")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Create(ctx, sampleRule("custom-1", "Dup")); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
	if err := repo.Create(ctx, sampleRule(core.Rule503020, "Impostor")); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID for predefined id, got %v", err)
	}
}

func TestCreateRejectsTooFewCategories(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	r := sampleRule("custom-1", "Thin")
	r.Categories = r.Categories[:1]
	err := repo.Create(ctx, r)
	var verr *core.ValidationError
	if !errors.As(err, &verr) || verr.Kind != core.MinimumCategoryCount {
		t.Fatalf("expected minimum category count error, got %v", err)
	}
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	if err := repo.Create(ctx, sampleRule("custom-1", "Before")); err != nil {
		t.Fatalf("create: %v", err)
	}

	changed := sampleRule("custom-1", "After")
	if err := repo.Update(ctx, changed); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, ok := repo.Get(ctx, "custom-1")
	if !ok || got.Name != "After" {
		t.Fatalf("update not persisted: %+v ok=%v", got, ok)
	}

	if err := repo.Update(ctx, sampleRule("custom-missing", "Ghost")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	if err := repo.Create(ctx, sampleRule("custom-1", "Mine")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Delete(ctx, "custom-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := repo.Get(ctx, "custom-1"); ok {
		t.Fatal("rule still present after delete")
	}
	if err := repo.Delete(ctx, "custom-1"); err != nil {
		t.Fatalf("second delete should be a no-op, got %v", err)
	}
	if err := repo.Delete(ctx, "never-existed"); err != nil {
		t.Fatalf("deleting absent id should be a no-op, got %v", err)
	}
}

func TestClone(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	original := sampleRule("custom-1", "Mine")
	if err := repo.Create(ctx, original); err != nil {
		t.Fatalf("create: %v", err)
	}

	clone, err := repo.Clone(ctx, "custom-1")
	if err != nil {
		t.Fatalf("clone: %v", err)
	}
	if clone.ID == original.ID {
		t.Fatal("clone kept the source id")
	}
	if !strings.HasPrefix(clone.ID, "custom-") {
		t.Fatalf("clone id %q lacks the custom prefix", clone.ID)
	}
	if clone.Name != "Mine (Copy)" {
		t.Fatalf("clone name = %q", clone.Name)
	}
	if len(clone.Categories) != len(original.Categories) {
		t.Fatalf("clone category count = %d", len(clone.Categories))
	}
	for i, c := range clone.Categories {
		src := original.Categories[i]
		if c.Name != src.Name || c.Mode != src.Mode ||
			!c.Percentage.Equal(src.Percentage) || !c.FixedAmount.Equal(src.FixedAmount) {
			t.Fatalf("category %d allocation data changed: %+v vs %+v", i, c, src)
		}
		if c.Color == src.Color {
			t.Fatalf("category %d kept its color %q", i, c.Color)
		}
	}
	if got := repo.List(ctx); len(got) != 2 {
		t.Fatalf("expected source and clone persisted, got %d rules", len(got))
	}

	if _, err := repo.Clone(ctx, "custom-missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestExportRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	if _, err := repo.ExportAll(ctx); !errors.Is(err, ErrNothingToExport) {
		t.Fatalf("expected ErrNothingToExport on empty repo, got %v", err)
	}

	if err := repo.Create(ctx, sampleRule("custom-1", "Mine")); err != nil {
		t.Fatalf("create: %v", err)
	}
	data, err := repo.ExportAll(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	// Importing an export into the same repo collides on every id.
	res, err := repo.ImportMerge(ctx, data)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Imported != 0 || res.Skipped != 1 {
		t.Fatalf("reimport = %+v, want 0 imported 1 skipped", res)
	}

	// Into a fresh repo everything lands.
	fresh, _ := newTestRepo(t)
	res, err = fresh.ImportMerge(ctx, data)
	if err != nil {
		t.Fatalf("import into fresh repo: %v", err)
	}
	if res.Imported != 1 || res.Skipped != 0 {
		t.Fatalf("fresh import = %+v, want 1 imported 0 skipped", res)
	}
	got, ok := fresh.Get(ctx, "custom-1")
	if !ok || got.Name != "Mine" || len(got.Categories) != 3 {
		t.Fatalf("imported rule did not round-trip: %+v ok=%v", got, ok)
	}
}

func TestImportMergeExistingWins(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	mine := sampleRule("custom-1", "Mine")
	if err := repo.Create(ctx, mine); err != nil {
		t.Fatalf("create: %v", err)
	}

	payload := `[
	  {"id":"custom-1","name":"Theirs","categories":[
	    {"name":"A","percentage":50,"fixedAmount":0,"isFixed":false,"color":"hsl(1, 70%, 65%)"},
	    {"name":"B","percentage":50,"fixedAmount":0,"isFixed":false,"color":"hsl(2, 70%, 65%)"}
	  ]},
	  {"id":"custom-9","name":"New","categories":[
	    {"name":"A","percentage":50,"fixedAmount":0,"isFixed":false,"color":"hsl(3, 70%, 65%)"},
	    {"name":"B","percentage":50,"fixedAmount":0,"isFixed":false,"color":"hsl(4, 70%, 65%)"}
	  ]}
	]`

	res, err := repo.ImportMerge(ctx, []byte(payload))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Imported != 1 || res.Skipped != 1 {
		t.Fatalf("result = %+v, want 1 imported 1 skipped", res)
	}

	kept, _ := repo.Get(ctx, "custom-1")
	if kept.Name != "Mine" {
		t.Fatalf("existing rule was overwritten: %q", kept.Name)
	}
	if _, ok := repo.Get(ctx, "custom-9"); !ok {
		t.Fatal("non-colliding rule was not imported")
	}
}

func TestImportSkipsPredefinedIDs(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	payload := `[{"id":"50-30-20","name":"Impostor","categories":[
	  {"name":"A","percentage":50,"fixedAmount":0,"isFixed":false,"color":"hsl(1, 70%, 65%)"},
	  {"name":"B","percentage":50,"fixedAmount":0,"isFixed":false,"color":"hsl(2, 70%, 65%)"}
	]}]`

	res, err := repo.ImportMerge(ctx, []byte(payload))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Imported != 0 || res.Skipped != 1 {
		t.Fatalf("result = %+v, want predefined id skipped", res)
	}
	if got := repo.List(ctx); len(got) != 0 {
		t.Fatalf("predefined impostor was persisted: %d rules", len(got))
	}
}

func TestImportRejectsBadBatchesWholesale(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	cases := map[string]string{
		"not json":            `{{{`,
		"not an array":        `{"id":"custom-1"}`,
		"missing id":          `[{"name":"X","categories":[]}]`,
		"missing name":        `[{"id":"custom-1","categories":[]}]`,
		"missing categories":  `[{"id":"custom-1","name":"X"}]`,
		"missing isFixed":     `[{"id":"custom-1","name":"X","categories":[{"name":"A","percentage":50,"fixedAmount":0,"color":"c"},{"name":"B","percentage":50,"fixedAmount":0,"isFixed":false,"color":"c"}]}]`,
		"negative fixed":      `[{"id":"custom-1","name":"X","categories":[{"name":"A","percentage":0,"fixedAmount":-5,"isFixed":true,"color":"c"},{"name":"B","percentage":100,"fixedAmount":0,"isFixed":false,"color":"c"}]}]`,
		"percentage over 100": `[{"id":"custom-1","name":"X","categories":[{"name":"A","percentage":120,"fixedAmount":0,"isFixed":false,"color":"c"},{"name":"B","percentage":10,"fixedAmount":0,"isFixed":false,"color":"c"}]}]`,
		"sum not 100":         `[{"id":"custom-1","name":"X","categories":[{"name":"A","percentage":50,"fixedAmount":0,"isFixed":false,"color":"c"},{"name":"B","percentage":40,"fixedAmount":0,"isFixed":false,"color":"c"}]}]`,
	}

	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := repo.ImportMerge(ctx, []byte(payload))
			var ferr *ImportFormatError
			if !errors.As(err, &ferr) {
				t.Fatalf("expected ImportFormatError, got %v", err)
			}
			if got := repo.List(ctx); len(got) != 0 {
				t.Fatalf("rejected batch leaked %d rules into the store", len(got))
			}
		})
	}
}

func TestImportToleratesNearHundredSums(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	payload := `[{"id":"custom-1","name":"X","categories":[
	  {"name":"A","percentage":33.33,"fixedAmount":0,"isFixed":false,"color":"c"},
	  {"name":"B","percentage":33.33,"fixedAmount":0,"isFixed":false,"color":"c"},
	  {"name":"C","percentage":33.34,"fixedAmount":0,"isFixed":false,"color":"c"}
	]}]`

	res, err := repo.ImportMerge(ctx, []byte(payload))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Imported != 1 {
		t.Fatalf("result = %+v, want 1 imported", res)
	}
}

func TestListTreatsMalformedStoreAsEmpty(t *testing.T) {
	ctx := context.Background()
	repo, store := newTestRepo(t)

	if err := store.Set(ctx, StorageKey, "this is not json"); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	if got := repo.List(ctx); len(got) != 0 {
		t.Fatalf("malformed payload should read as empty, got %d rules", len(got))
	}

	// Creating afterwards replaces the junk with a valid collection.
	if err := repo.Create(ctx, sampleRule("custom-1", "Mine")); err != nil {
		t.Fatalf("create over junk: %v", err)
	}
	if got := repo.List(ctx); len(got) != 1 {
		t.Fatalf("expected 1 rule after recovery, got %d", len(got))
	}
}

func TestNewIDFormat(t *testing.T) {
	repo, _ := newTestRepo(t)
	id := repo.NewID()
	if !strings.HasPrefix(id, "custom-") {
		t.Fatalf("NewID() = %q", id)
	}
	if core.IsPredefinedID(id) {
		t.Fatalf("generated id %q collides with the predefined catalog", id)
	}
}

// slowStore widens the window between a mutation's read and its write,
// making lost updates near-certain if operations are not serialized.
type slowStore struct {
	*kv.Memory
	delay time.Duration
}

func (s *slowStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, ok, err := s.Memory.Get(ctx, key)
	time.Sleep(s.delay)
	return value, ok, err
}

func TestConcurrentMutationsDoNotLoseUpdates(t *testing.T) {
	ctx := context.Background()
	store := &slowStore{Memory: kv.NewMemory(), delay: 2 * time.Millisecond}
	repo := NewRepository(store, colors.NewRandom(42))

	const writers = 8
	errs := make([]error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("custom-%d", i)
			errs[i] = repo.Create(ctx, sampleRule(id, "Rule "+id))
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("create #%d: %v", i, err)
		}
	}
	got := repo.List(ctx)
	if len(got) != writers {
		t.Fatalf("expected %d rules after concurrent creates, got %d", writers, len(got))
	}

	// A delete racing a create must not resurrect the deleted rule or
	// drop the created one.
	var raceWG sync.WaitGroup
	raceWG.Add(2)
	go func() {
		defer raceWG.Done()
		if err := repo.Delete(ctx, "custom-0"); err != nil {
			t.Errorf("delete: %v", err)
		}
	}()
	go func() {
		defer raceWG.Done()
		if err := repo.Create(ctx, sampleRule("custom-new", "Late")); err != nil {
			t.Errorf("create: %v", err)
		}
	}()
	raceWG.Wait()

	ids := make(map[string]bool)
	for _, rule := range repo.List(ctx) {
		ids[rule.ID] = true
	}
	if ids["custom-0"] {
		t.Fatal("deleted rule survived a concurrent create")
	}
	if !ids["custom-new"] {
		t.Fatal("created rule lost to a concurrent delete")
	}
}
