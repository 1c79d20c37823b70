package sheets

import (
	"context"

	"budgetsplit/internal/core"
)

// RuleMirror replicates the custom rule collection to an external
// spreadsheet. The mirror is a full rewrite per sync, so a lost message
// heals on the next one.
type RuleMirror interface {
	ReplaceRules(ctx context.Context, rules []core.Rule) error
}
