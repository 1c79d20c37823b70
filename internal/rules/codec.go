package rules

import (
	"encoding/json"
	"fmt"

	"budgetsplit/internal/core"

	"github.com/shopspring/decimal"
)

// storedCategory is the persisted wire shape of one category. The flat
// percentage/fixedAmount/isFixed triple is the storage and export
// format; the core sum type exists only in memory.
type storedCategory struct {
	Name        string  `json:"name"`
	Percentage  float64 `json:"percentage"`
	FixedAmount float64 `json:"fixedAmount"`
	IsFixed     bool    `json:"isFixed"`
	Color       string  `json:"color"`
}

type storedRule struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Categories []storedCategory `json:"categories"`
}

func encodeRules(rules []core.Rule) ([]byte, error) {
	out := make([]storedRule, 0, len(rules))
	for _, r := range rules {
		out = append(out, toStored(r))
	}
	return json.MarshalIndent(out, "", "  ")
}

// decodeStored parses the persisted collection. A payload that is not
// valid JSON, or not a sequence, returns the unmarshal error; List
// treats that as an empty collection and logs it.
func decodeStored(data []byte) ([]core.Rule, error) {
	var stored []storedRule
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}
	rules := make([]core.Rule, 0, len(stored))
	for _, s := range stored {
		rules = append(rules, fromStored(s))
	}
	return rules, nil
}

func toStored(r core.Rule) storedRule {
	cats := make([]storedCategory, 0, len(r.Categories))
	for _, c := range r.Categories {
		cats = append(cats, storedCategory{
			Name:        c.Name,
			Percentage:  c.Percentage.InexactFloat64(),
			FixedAmount: c.FixedAmount.InexactFloat64(),
			IsFixed:     c.IsFixed(),
			Color:       c.Color,
		})
	}
	return storedRule{ID: r.ID, Name: r.Name, Categories: cats}
}

func fromStored(s storedRule) core.Rule {
	cats := make([]core.Category, 0, len(s.Categories))
	for _, c := range s.Categories {
		if c.IsFixed {
			cats = append(cats, core.FixedCategory(c.Name, decimal.NewFromFloat(c.FixedAmount), c.Color))
		} else {
			cats = append(cats, core.PercentageCategory(c.Name, decimal.NewFromFloat(c.Percentage), c.Color))
		}
	}
	return core.Rule{ID: s.ID, Name: s.Name, Categories: cats}
}

// importCategory uses pointers so a field that is merely absent can be
// told apart from one with a zero value. Import payloads come from the
// outside world and bypass the interactive validator, so the shape
// check is stricter than the lenient storage decode.
type importCategory struct {
	Name        *string  `json:"name"`
	Percentage  *float64 `json:"percentage"`
	FixedAmount *float64 `json:"fixedAmount"`
	IsFixed     *bool    `json:"isFixed"`
	Color       *string  `json:"color"`
}

type importRule struct {
	ID         *string          `json:"id"`
	Name       *string          `json:"name"`
	Categories []importCategory `json:"categories"`
}

// importTolerance bounds how far a rule's percentage categories may
// stray from a 100 sum before the whole batch is rejected.
var importTolerance = decimal.NewFromFloat(0.01)

// decodeImport parses and shape-checks an import payload. Any
// deviation rejects the whole batch.
func decodeImport(data []byte) ([]core.Rule, error) {
	var incoming []importRule
	if err := json.Unmarshal(data, &incoming); err != nil {
		return nil, &ImportFormatError{Reason: "payload is not a JSON array of rules"}
	}

	rules := make([]core.Rule, 0, len(incoming))
	for i, in := range incoming {
		r, err := checkImportRule(i, in)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

func checkImportRule(i int, in importRule) (core.Rule, error) {
	if in.ID == nil || *in.ID == "" {
		return core.Rule{}, &ImportFormatError{Reason: fmt.Sprintf("rule %d: missing id", i)}
	}
	if in.Name == nil || *in.Name == "" {
		return core.Rule{}, &ImportFormatError{Reason: fmt.Sprintf("rule %d: missing name", i)}
	}
	if in.Categories == nil {
		return core.Rule{}, &ImportFormatError{Reason: fmt.Sprintf("rule %d: missing categories", i)}
	}

	stored := storedRule{ID: *in.ID, Name: *in.Name}
	totalPct := decimal.Zero
	for j, c := range in.Categories {
		where := fmt.Sprintf("rule %d category %d", i, j)
		switch {
		case c.Name == nil || *c.Name == "":
			return core.Rule{}, &ImportFormatError{Reason: where + ": missing name"}
		case c.Percentage == nil || *c.Percentage < 0 || *c.Percentage > 100:
			return core.Rule{}, &ImportFormatError{Reason: where + ": percentage must be a number in [0,100]"}
		case c.FixedAmount == nil || *c.FixedAmount < 0:
			return core.Rule{}, &ImportFormatError{Reason: where + ": fixedAmount must be a number >= 0"}
		case c.IsFixed == nil:
			return core.Rule{}, &ImportFormatError{Reason: where + ": missing isFixed flag"}
		case c.Color == nil || *c.Color == "":
			return core.Rule{}, &ImportFormatError{Reason: where + ": missing color"}
		}
		if !*c.IsFixed {
			totalPct = totalPct.Add(decimal.NewFromFloat(*c.Percentage))
		}
		stored.Categories = append(stored.Categories, storedCategory{
			Name:        *c.Name,
			Percentage:  *c.Percentage,
			FixedAmount: *c.FixedAmount,
			IsFixed:     *c.IsFixed,
			Color:       *c.Color,
		})
	}

	if totalPct.Sub(decimal.NewFromInt(100)).Abs().GreaterThan(importTolerance) {
		return core.Rule{}, &ImportFormatError{
			Reason: fmt.Sprintf("rule %d (%s): percentage categories sum to %s, expected 100", i, *in.Name, totalPct),
		}
	}

	return fromStored(stored), nil
}
