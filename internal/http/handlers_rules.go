package http

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"

	"budgetsplit/internal/core"
	applog "budgetsplit/internal/log"
	"budgetsplit/internal/rules"

	"github.com/shopspring/decimal"
)

// maxImportSize caps uploaded rule files. Rule collections are tiny, so
// anything near this limit is not a rule file.
const maxImportSize = 1 << 20

// ruleCard is one rule rendered on the rules page.
type ruleCard struct {
	ID          string
	Name        string
	Description string
	Custom      bool
	Categories  []categoryRow
}

// categoryRow is one category line of a rule card or editor form.
type categoryRow struct {
	Name  string
	Mode  string
	Value string
	Color string
}

func toRuleCard(rule core.Rule) ruleCard {
	card := ruleCard{
		ID:          rule.ID,
		Name:        rule.Name,
		Description: rule.Description,
		Custom:      !core.IsPredefinedID(rule.ID),
	}
	for _, c := range rule.Categories {
		row := categoryRow{
			Name:  c.Name,
			Mode:  c.Mode.String(),
			Color: c.Color,
		}
		if c.IsFixed() {
			row.Value = formatMoney(c.FixedAmount)
		} else {
			row.Value = formatPercent(c.Percentage) + "%"
		}
		card.Categories = append(card.Categories, row)
	}
	return card
}

// handleRulesPage renders the rule management page: the predefined
// catalog, the custom collection, and the editor form.
func (s *Server) handleRulesPage(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	data := struct {
		Predefined []ruleCard
		Custom     []ruleCard
	}{}
	for _, rule := range core.PredefinedRules() {
		data.Predefined = append(data.Predefined, toRuleCard(rule))
	}
	for _, rule := range s.rules.CustomRules(r.Context()) {
		data.Custom = append(data.Custom, toRuleCard(rule))
	}

	if err := s.templates.ExecuteTemplate(w, "rules.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Rules template execution failed", "error", err, "template", "rules.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// parseRuleForm reads the rule editor fields into a candidate rule.
// Category fields arrive as parallel arrays, one entry per row.
func (s *Server) parseRuleForm(r *http.Request) (core.Rule, *HTMXResponseBuilder) {
	names := r.Form["cat_name"]
	modes := r.Form["cat_mode"]
	values := r.Form["cat_value"]
	colors := r.Form["cat_color"]

	if len(modes) != len(names) || len(values) != len(names) {
		return core.Rule{}, BadRequestError("Malformed category rows")
	}

	rule := core.Rule{
		ID:          sanitizeInput(r.Form.Get("id")),
		Name:        sanitizeInput(r.Form.Get("name")),
		Description: sanitizeInput(r.Form.Get("description")),
	}

	for i := range names {
		name := sanitizeInput(names[i])
		mode := core.AllocationMode(sanitizeInput(modes[i]))
		if !mode.IsValid() {
			return core.Rule{}, BadRequestError("Unknown category mode")
		}

		value, err := parseMoney(values[i])
		if err != nil {
			return core.Rule{}, UnprocessableEntityError("Enter a valid number for " + name)
		}

		color := ""
		if i < len(colors) {
			color = sanitizeInput(colors[i])
		}
		if color == "" {
			color = s.rules.NewColor()
		}

		if mode == core.ModeFixed {
			rule.Categories = append(rule.Categories, core.FixedCategory(name, value, color))
		} else {
			rule.Categories = append(rule.Categories, core.PercentageCategory(name, value, color))
		}
	}

	return rule, nil
}

// testIncome reads the optional validation income from the form.
func testIncome(r *http.Request) decimal.Decimal {
	raw := sanitizeInput(r.Form.Get("test_income"))
	if raw == "" {
		return core.DefaultTestIncome
	}
	income, err := parseMoney(raw)
	if err != nil || !income.IsPositive() {
		return core.DefaultTestIncome
	}
	return income
}

// handleSaveRule creates or updates a custom rule. An empty id means
// create; a present id means update.
func (s *Server) handleSaveRule(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	rule, fail := s.parseRuleForm(r)
	if fail != nil {
		fail.Write(w)
		return
	}

	if err := core.ValidateRule(rule.Name, rule.Categories, testIncome(r)); err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	if len(rule.Categories) < core.MinCategories {
		UnprocessableEntityError("A budget rule needs at least 2 categories").Write(w)
		return
	}

	creating := rule.ID == ""
	if creating {
		rule.ID = s.rules.NewID()
	}

	var err error
	if creating {
		err = s.rules.CreateRule(r.Context(), rule)
	} else {
		err = s.rules.UpdateRule(r.Context(), rule)
	}
	if err != nil {
		switch {
		case errors.Is(err, rules.ErrNotFound):
			NotFoundError("Rule not found").Write(w)
		case errors.Is(err, rules.ErrDuplicateID):
			UnprocessableEntityError("A rule with this id already exists").Write(w)
		case rules.IsValidationError(err):
			UnprocessableEntityError(err.Error()).Write(w)
		default:
			slog.ErrorContext(r.Context(), "Failed to save rule", "error", err, "rule_id", rule.ID)
			InternalServerError("Failed to save rule").Write(w)
		}
		return
	}

	s.invalidateCaches()
	atomic.AddInt64(&s.appMetrics.ruleSaves, 1)

	op := applog.OpUpdate
	message := "Rule updated"
	if creating {
		op = applog.OpCreate
		message = "Rule saved"
	}
	slog.InfoContext(r.Context(), "Rule saved",
		applog.NewFields().
			WithRule(rule.ID, rule.Name, len(rule.Categories)).
			WithOperation(op).
			WithComponent(applog.ComponentRules).
			ToSlice()...)

	body, fail := s.renderCustomRuleList(r)
	if fail != nil {
		fail.Write(w)
		return
	}
	NewHTMXResponse().
		TriggerRuleSaved(rule.ID).
		TriggerAllocationRefresh().
		TriggerFormReset().
		TriggerSuccessNotification(message).
		BodyHTML(body).
		Write(w)
}

// handleDeleteRule removes a custom rule. Deleting an already-gone rule
// succeeds so double-clicks stay harmless.
func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	id := sanitizeInput(r.Form.Get("id"))
	if id == "" {
		BadRequestError("Missing rule id").Write(w)
		return
	}
	if core.IsPredefinedID(id) {
		UnprocessableEntityError("Predefined rules cannot be deleted").Write(w)
		return
	}

	if err := s.rules.DeleteRule(r.Context(), id); err != nil {
		slog.ErrorContext(r.Context(), "Failed to delete rule", "error", err, "rule_id", id)
		InternalServerError("Failed to delete rule").Write(w)
		return
	}

	s.invalidateCaches()

	body, fail := s.renderCustomRuleList(r)
	if fail != nil {
		fail.Write(w)
		return
	}

	NewHTMXResponse().
		TriggerRuleDeleted(id).
		TriggerAllocationRefresh().
		TriggerSuccessNotification("Rule deleted").
		BodyHTML(body).
		Write(w)
}

// handleCloneRule duplicates any catalog rule into the custom
// collection. Predefined rules are cloned from the compiled catalog.
func (s *Server) handleCloneRule(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	id := sanitizeInput(r.Form.Get("id"))
	if id == "" {
		BadRequestError("Missing rule id").Write(w)
		return
	}

	clone, err := s.cloneCatalogRule(r, id)
	if err != nil {
		switch {
		case errors.Is(err, rules.ErrNotFound):
			NotFoundError("Rule not found").Write(w)
		default:
			slog.ErrorContext(r.Context(), "Failed to clone rule", "error", err, "rule_id", id)
			InternalServerError("Failed to clone rule").Write(w)
		}
		return
	}

	s.invalidateCaches()
	atomic.AddInt64(&s.appMetrics.ruleSaves, 1)

	body, fail := s.renderCustomRuleList(r)
	if fail != nil {
		fail.Write(w)
		return
	}

	NewHTMXResponse().
		TriggerRuleSaved(clone.ID).
		TriggerAllocationRefresh().
		TriggerSuccessNotification("Rule cloned as " + clone.Name).
		BodyHTML(body).
		Write(w)
}

// cloneCatalogRule clones a custom rule through the repository, or
// copies a predefined rule into the custom collection under a new id.
func (s *Server) cloneCatalogRule(r *http.Request, id string) (core.Rule, error) {
	if !core.IsPredefinedID(id) {
		return s.rules.CloneRule(r.Context(), id)
	}

	source, ok := core.PredefinedRule(id)
	if !ok {
		return core.Rule{}, rules.ErrNotFound
	}
	clone := core.Rule{
		ID:         s.rules.NewID(),
		Name:       source.Name + rules.CopySuffix,
		Categories: source.CloneCategories(),
	}
	for i := range clone.Categories {
		clone.Categories[i].Color = s.rules.ColorAvoiding(clone.Categories[i].Color)
	}
	if err := s.rules.CreateRule(r.Context(), clone); err != nil {
		return core.Rule{}, err
	}
	return clone, nil
}

// handleExportRules serves the custom collection as a JSON download.
func (s *Server) handleExportRules(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}

	data, err := s.rules.ExportRules(r.Context())
	if err != nil {
		if errors.Is(err, rules.ErrNothingToExport) {
			NotFoundError("There are no custom rules to export").Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Failed to export rules", "error", err)
		InternalServerError("Failed to export rules").Write(w)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+rules.ExportFilename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleImportRules merges an uploaded rule file into the custom
// collection. Accepts a multipart file field or a pasted payload.
func (s *Server) handleImportRules(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}

	payload, fail := readImportPayload(r)
	if fail != nil {
		fail.Write(w)
		return
	}

	res, err := s.rules.ImportRules(r.Context(), payload)
	if err != nil {
		var formatErr *rules.ImportFormatError
		if errors.As(err, &formatErr) {
			UnprocessableEntityError("Import rejected: " + formatErr.Reason).Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Failed to import rules", "error", err)
		InternalServerError("Failed to import rules").Write(w)
		return
	}

	s.invalidateCaches()
	slog.InfoContext(r.Context(), "Rules imported",
		applog.FieldImported, res.Imported,
		applog.FieldSkipped, res.Skipped,
		applog.FieldComponent, applog.ComponentRules)

	body, fail := s.renderCustomRuleList(r)
	if fail != nil {
		fail.Write(w)
		return
	}

	NewHTMXResponse().
		TriggerRulesImported(res.Imported, res.Skipped).
		TriggerAllocationRefresh().
		TriggerSuccessNotification(importSummary(res)).
		BodyHTML(body).
		Write(w)
}

func importSummary(res rules.ImportResult) string {
	switch {
	case res.Imported == 0 && res.Skipped == 0:
		return "The file contained no rules"
	case res.Imported == 0:
		return "All rules in the file already exist"
	case res.Skipped == 0:
		return "All rules imported"
	default:
		return "Import finished; existing rules were kept"
	}
}

// readImportPayload extracts the rule file from a multipart upload or
// falls back to the pasted payload field.
func readImportPayload(r *http.Request) ([]byte, *HTMXResponseBuilder) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxImportSize); err != nil {
			return nil, BadRequestError("Invalid upload")
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, BadRequestError("Missing rule file")
		}
		defer file.Close()

		payload, err := io.ReadAll(io.LimitReader(file, maxImportSize))
		if err != nil {
			return nil, BadRequestError("Failed to read rule file")
		}
		return payload, nil
	}

	if resp := ParseFormOrFail(r); resp != nil {
		return nil, resp
	}
	payload := r.Form.Get("payload")
	if payload == "" {
		return nil, BadRequestError("Missing rule file")
	}
	return []byte(payload), nil
}

// handleRuleCheck is the live-validation endpoint the editor form posts
// to on every change. It never persists anything.
func (s *Server) handleRuleCheck(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	rule, fail := s.parseRuleForm(r)
	if fail != nil {
		fail.Write(w)
		return
	}

	data := struct {
		OK      bool
		Message string
	}{OK: true, Message: "Rule looks good"}

	if err := core.ValidateRule(rule.Name, rule.Categories, testIncome(r)); err != nil {
		data.OK = false
		data.Message = err.Error()
	} else if len(rule.Categories) < core.MinCategories {
		data.OK = false
		data.Message = "A budget rule needs at least 2 categories"
	}

	if err := s.templates.ExecuteTemplate(w, "rule_check.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "rule_check.html")
		InternalServerError("Failed to render validation result").Write(w)
	}
}

// renderCustomRuleList renders the custom rule list partial that the
// mutation handlers swap back into the page.
func (s *Server) renderCustomRuleList(r *http.Request) (string, *HTMXResponseBuilder) {
	data := struct {
		Custom []ruleCard
	}{}
	for _, rule := range s.rules.CustomRules(r.Context()) {
		data.Custom = append(data.Custom, toRuleCard(rule))
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "rule_list.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "rule_list.html")
		return "", InternalServerError("Failed to render rule list")
	}
	return buf.String(), nil
}
