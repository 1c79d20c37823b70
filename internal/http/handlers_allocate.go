package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"

	"budgetsplit/internal/core"

	"github.com/shopspring/decimal"
)

// ruleOption is one entry of the rule picker.
type ruleOption struct {
	ID       string
	Name     string
	Custom   bool
	Selected bool
}

// allocationRow is one rendered line of the breakdown table.
type allocationRow struct {
	Name    string
	Amount  string
	Percent string
	Fixed   bool
	Color   string
}

// allocationView is the template payload for the allocation partial.
type allocationView struct {
	Income     string
	RuleID     string
	RuleName   string
	Rows       []allocationRow
	TotalFixed string
	Remaining  string
	Total      string
	Overdrawn  bool
	Warning    string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	catalog := s.catalog(r.Context())
	data := struct {
		Rules []ruleOption
	}{}
	for i, rule := range catalog {
		data.Rules = append(data.Rules, ruleOption{
			ID:       rule.ID,
			Name:     rule.Name,
			Custom:   !core.IsPredefinedID(rule.ID),
			Selected: i == 0,
		})
	}

	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Index template execution failed", "error", err, "template", "index.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleAllocation renders the budget breakdown partial for an income
// and a rule id.
func (s *Server) handleAllocation(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	incomeStr := sanitizeInput(r.Form.Get("income"))
	ruleID := sanitizeInput(r.Form.Get("rule"))

	income, err := parseMoney(incomeStr)
	if err != nil || !income.IsPositive() {
		UnprocessableEntityError("Enter a valid income amount").Write(w)
		return
	}

	rule, ok := s.rules.Resolve(r.Context(), ruleID)
	if !ok {
		NotFoundError("Unknown budget rule").Write(w)
		return
	}

	result := s.allocate(r.Context(), income, rule)
	atomic.AddInt64(&s.appMetrics.allocations, 1)

	view := buildAllocationView(incomeStr, rule, result)
	if err := s.templates.ExecuteTemplate(w, "allocation.html", view); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "allocation.html")
		InternalServerError("Failed to render breakdown").Write(w)
	}
}

// allocate computes (or recalls) the breakdown for one income and rule.
func (s *Server) allocate(ctx context.Context, income decimal.Decimal, rule core.Rule) core.AllocationResult {
	key := rule.ID + "|" + income.String()
	if cached, found := s.allocationCache.Get(key); found {
		atomic.AddInt64(&s.appMetrics.cacheHits, 1)
		return cached
	}
	atomic.AddInt64(&s.appMetrics.cacheMisses, 1)

	result := core.Allocate(income, rule.Categories)
	s.allocationCache.Set(key, result)
	slog.DebugContext(ctx, "Allocation computed",
		"rule_id", rule.ID, "income", income.String(), "lines", len(result.Lines))
	return result
}

func buildAllocationView(incomeStr string, rule core.Rule, result core.AllocationResult) allocationView {
	view := allocationView{
		Income:     incomeStr,
		RuleID:     rule.ID,
		RuleName:   rule.Name,
		TotalFixed: formatMoney(result.TotalFixed),
		Remaining:  formatMoney(result.Remaining),
		Total:      formatMoney(result.Total),
		Overdrawn:  result.Remaining.IsNegative(),
	}
	if view.Overdrawn {
		view.Warning = "Fixed amounts exceed the income. Percentage categories receive negative amounts."
	}
	for _, line := range result.Lines {
		view.Rows = append(view.Rows, allocationRow{
			Name:    line.Name,
			Amount:  formatMoney(line.Amount),
			Percent: formatPercent(line.EffectivePercentage),
			Fixed:   line.Fixed,
			Color:   line.Color,
		})
	}
	return view
}
