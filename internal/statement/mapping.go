package statement

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/jpvalente/tally/internal/currency"
)

// ValueMode selects how transaction values are read from the columns.
type ValueMode string

const (
	// ValueSingle reads one signed column.
	ValueSingle ValueMode = "single"
	// ValueSplit reads separate credit and debit columns.
	ValueSplit ValueMode = "split"
)

// CurrencyMode selects how each row's currency is resolved.
type CurrencyMode string

const (
	// CurrencyConstant applies one fixed currency to every row.
	CurrencyConstant CurrencyMode = "constant"
	// CurrencyColumn resolves a column cell against a currency field.
	CurrencyColumn CurrencyMode = "column"
)

// ValueMapping is the tagged value-column assignment. Column applies in
// single mode; Credit/Debit apply in split mode. Flip reverses the sign
// convention: the signed column in single mode, the debit interpretation in
// split mode.
type ValueMapping struct {
	Mode   ValueMode
	Column string
	Credit string
	Debit  string
	Flip   bool
}

// CurrencyMapping is the tagged currency assignment. CurrencyID applies in
// constant mode; Column and Field apply in column mode.
type CurrencyMapping struct {
	Mode       CurrencyMode
	CurrencyID uuid.UUID
	Column     string
	Field      currency.MatchField
}

// Mapping assigns statement columns to transaction fields. It is shared
// across all files of one import; columns are referenced by id.
type Mapping struct {
	Date      string
	Reference string
	Balance   string
	Value     ValueMapping
	Currency  CurrencyMapping
}

// NewMapping returns the default mapping: single signed value column, no
// flips, constant currency.
func NewMapping(currencyID uuid.UUID) Mapping {
	return Mapping{
		Value:    ValueMapping{Mode: ValueSingle},
		Currency: CurrencyMapping{Mode: CurrencyConstant, CurrencyID: currencyID},
	}
}

// SetValueMode switches between single and split value columns. Changing
// mode clears the previously chosen columns so the mapping can never hold a
// stale reference from the other mode. Flip is reset with them.
func (m *Mapping) SetValueMode(mode ValueMode) {
	if m.Value.Mode == mode {
		return
	}

	m.Value = ValueMapping{Mode: mode}
}

// SetCurrencyMode switches between constant and column currency resolution,
// clearing the fields belonging to the other mode.
func (m *Mapping) SetCurrencyMode(mode CurrencyMode, constant uuid.UUID) {
	if m.Currency.Mode == mode {
		return
	}

	switch mode {
	case CurrencyConstant:
		m.Currency = CurrencyMapping{Mode: CurrencyConstant, CurrencyID: constant}
	case CurrencyColumn:
		m.Currency = CurrencyMapping{Mode: CurrencyColumn, Field: currency.MatchTicker}
	}
}

// Guess seeds a fresh mapping from the parsed columns: the first non-nullable
// date column and, when present, the first number column. Users adjust from
// there.
func (m *Mapping) Guess(columns []*Column) {
	for _, col := range columns {
		if m.Date == "" && col.Type == TypeDate && !col.Nullable {
			m.Date = col.ID
		}

		if m.Value.Mode == ValueSingle && m.Value.Column == "" && col.Type == TypeNumber {
			m.Value.Column = col.ID
		}
	}
}

// ValidateParsed reports whether the import can leave the parsing step: at
// least one file with at least one column and one data row.
func ValidateParsed(files []*File) error {
	if len(files) == 0 {
		return errors.New("no files uploaded")
	}

	for _, f := range files {
		if f.Err != nil {
			return fmt.Errorf("%s: %w", f.Name, f.Err)
		}

		if len(f.Columns) == 0 || len(f.Columns[0].Values) == 0 {
			return fmt.Errorf("%s: no columns parsed", f.Name)
		}
	}

	return nil
}

// Validate reports whether the mapping is complete enough to materialize
// candidates: a date column assigned, exactly one fully specified value mode,
// and a resolvable currency assignment. The returned error names the missing
// or offending piece.
func (m Mapping) Validate(files []*File, currencies []currency.Currency) error {
	if m.Date == "" {
		return errors.New("no date column assigned")
	}

	switch m.Value.Mode {
	case ValueSingle:
		if m.Value.Column == "" {
			return errors.New("no value column assigned")
		}
	case ValueSplit:
		if m.Value.Credit == "" || m.Value.Debit == "" {
			return errors.New("split values need both a credit and a debit column")
		}
	default:
		return fmt.Errorf("unknown value mode %q", m.Value.Mode)
	}

	switch m.Currency.Mode {
	case CurrencyConstant:
		if m.Currency.CurrencyID == uuid.Nil {
			return errors.New("no currency selected")
		}
	case CurrencyColumn:
		if m.Currency.Column == "" {
			return errors.New("no currency column assigned")
		}

		if !m.Currency.Field.Valid() {
			return fmt.Errorf("unknown currency field %q", m.Currency.Field)
		}

		if unmatched := m.unmatchedCurrencies(files, currencies); len(unmatched) > 0 {
			return fmt.Errorf("no known currency matches: %s", strings.Join(unmatched, ", "))
		}
	default:
		return fmt.Errorf("unknown currency mode %q", m.Currency.Mode)
	}

	return nil
}

// unmatchedCurrencies collects the distinct currency-column cells that do not
// resolve to any known currency. A mapping is usable as long as at least one
// cell resolves; a fully unmatched column is a configuration mistake worth
// naming value by value.
func (m Mapping) unmatchedCurrencies(files []*File, currencies []currency.Currency) []string {
	seen := make(map[string]bool)
	matchedAny := false

	var unmatched []string

	for _, f := range files {
		col := f.Column(m.Currency.Column)
		if col == nil {
			continue
		}

		for _, v := range col.Values {
			if v == nil {
				continue
			}

			if _, ok := currency.Find(currencies, m.Currency.Field, v.Str); ok {
				matchedAny = true
				continue
			}

			if !seen[v.Str] {
				seen[v.Str] = true

				unmatched = append(unmatched, v.Str)
			}
		}
	}

	if matchedAny {
		return nil
	}

	sort.Strings(unmatched)

	return unmatched
}
