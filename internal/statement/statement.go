// Package statement implements the bank-statement import pipeline: parsing
// delimited exports into typed columns, mapping columns onto transaction
// fields, materializing per-row transaction candidates, pairing transfer legs
// between accounts, and committing the result into the ledger.
package statement

import (
	"errors"
	"fmt"
	"strings"
)

// ColumnType is the semantic type assigned to a parsed column.
type ColumnType string

const (
	TypeDate   ColumnType = "date"
	TypeNumber ColumnType = "number"
	TypeString ColumnType = "string"
)

// Value is one typed cell. Date cells normalize into Str as 2006-01-02,
// number cells populate Num, string cells populate Str. A nil *Value is a
// null cell (empty, or unparseable under the column's type).
type Value struct {
	Str string
	Num float64
}

// Column is one parsed statement column. Values is aligned by row index
// across all columns of the same file.
type Column struct {
	ID       string
	Name     string
	Type     ColumnType
	Nullable bool
	Values   []*Value
}

// ParseConfig controls parsing of one file. Zero values mean auto-detect.
type ParseConfig struct {
	Header     *bool  // nil: detect from first-row cell types
	Delimiter  rune   // 0: detect from candidate delimiters
	DateFormat string // Go layout; "": try common layouts in order
}

// ParseResult is the outcome of parsing one file. Warnings are non-fatal
// oddities (truncated rows etc.) retained for the user to inspect.
type ParseResult struct {
	Columns  []*Column
	Warnings []string
}

// Rows returns the number of data rows, which is equal across all columns.
func (r *ParseResult) Rows() int {
	if len(r.Columns) == 0 {
		return 0
	}

	return len(r.Columns[0].Values)
}

var (
	// ErrEmptyFile means no data rows remain once the header is removed.
	ErrEmptyFile = errors.New("statement contains no data rows")
)

// RaggedError is returned when too many rows disagree with the dominant
// column count for the parser output to be trusted.
type RaggedError struct {
	Ragged int
	Total  int
}

func (e *RaggedError) Error() string {
	return fmt.Sprintf("%d of %d rows do not match the detected column count", e.Ragged, e.Total)
}

// columnID derives a stable identifier from a column name, unique within one
// file. Mapping choices reference these ids, and files expose the same id for
// the same header so one mapping can span several uploads.
func columnID(name string, taken map[string]bool) string {
	base := strings.ToLower(strings.TrimSpace(name))
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}

		return '-'
	}, base)
	base = strings.Trim(base, "-")

	if base == "" {
		base = "column"
	}

	id := base
	for n := 2; taken[id]; n++ {
		id = fmt.Sprintf("%s-%d", base, n)
	}

	taken[id] = true

	return id
}
