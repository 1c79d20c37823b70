package rules

import "errors"

var (
	// ErrDuplicateID means a create would collide with an existing rule
	// id. Ids are timestamp-generated so this is a defensive check, not
	// an expected user flow.
	ErrDuplicateID = errors.New("rule id already exists")

	// ErrNotFound means an update referenced an id with no persisted rule.
	ErrNotFound = errors.New("rule not found")

	// ErrNothingToExport means the persisted collection is empty. Callers
	// surface it as information, not as a failure.
	ErrNothingToExport = errors.New("no custom rules to export")
)

// ImportFormatError rejects an import payload wholesale: either it does
// not parse as a rule sequence or some record fails the shape checks.
// Nothing is merged when it is returned.
type ImportFormatError struct {
	Reason string
}

func (e *ImportFormatError) Error() string {
	return "invalid import format: " + e.Reason
}
