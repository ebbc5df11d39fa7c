// Package rules assigns categories to imported transactions by matching
// rule patterns against the transaction reference text. Rules run once per
// row, at commit time, and only when the user asks for them.
package rules

import (
	"time"

	"github.com/google/uuid"
)

// Rule maps a reference substring to a category. When several rules match the
// same reference, the longest pattern wins, then the most recent rule.
type Rule struct {
	ID         uuid.UUID
	Pattern    string
	CategoryID uuid.UUID
	CreatedAt  time.Time
}
