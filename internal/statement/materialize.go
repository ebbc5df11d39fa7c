package statement

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jpvalente/tally/internal/currency"
)

// Candidate is one not-yet-committed transaction materialized from a
// statement row. Rows that cannot produce a valid transaction are kept but
// auto-excluded with the reason retained for the user to inspect.
type Candidate struct {
	Row        int
	AccountID  uuid.UUID
	Date       time.Time
	Reference  string
	Value      int64 // cents, signed
	CurrencyID uuid.UUID
	Balance    *int64
	Excluded   bool
	Reason     string
}

// Materialize applies the mapping to every row of a parsed file, producing
// one candidate per row in row order. It is deterministic: identical columns
// and mapping always yield identical candidates.
func Materialize(columns []*Column, m Mapping, account uuid.UUID, currencies []currency.Currency) []Candidate {
	if len(columns) == 0 {
		return nil
	}

	var (
		dateCol     = findColumn(columns, m.Date)
		refCol      = findColumn(columns, m.Reference)
		balanceCol  = findColumn(columns, m.Balance)
		valueCol    = findColumn(columns, m.Value.Column)
		creditCol   = findColumn(columns, m.Value.Credit)
		debitCol    = findColumn(columns, m.Value.Debit)
		currencyCol = findColumn(columns, m.Currency.Column)
	)

	rows := len(columns[0].Values)
	candidates := make([]Candidate, 0, rows)

	for i := 0; i < rows; i++ {
		c := Candidate{Row: i, AccountID: account}

		c.Date, c.Excluded, c.Reason = materializeDate(dateCol, i)

		c.Value = materializeValue(m.Value, valueCol, creditCol, debitCol, i)

		if refCol != nil {
			if v := refCol.Values[i]; v != nil {
				c.Reference = v.Str
			}
		}

		if balanceCol != nil {
			if v := balanceCol.Values[i]; v != nil {
				b := toCents(v.Num)
				c.Balance = &b
			}
		}

		if !c.Excluded {
			c.CurrencyID, c.Excluded, c.Reason = materializeCurrency(m.Currency, currencyCol, i, currencies)
		}

		candidates = append(candidates, c)
	}

	return candidates
}

func findColumn(columns []*Column, id string) *Column {
	if id == "" {
		return nil
	}

	for _, col := range columns {
		if col.ID == id {
			return col
		}
	}

	return nil
}

func materializeDate(col *Column, row int) (time.Time, bool, string) {
	if col == nil {
		return time.Time{}, true, "no date column"
	}

	v := col.Values[row]
	if v == nil {
		return time.Time{}, true, "missing date"
	}

	t, err := time.Parse(ISODate, v.Str)
	if err != nil {
		return time.Time{}, true, fmt.Sprintf("invalid date: %s", v.Str)
	}

	return t.UTC(), false, ""
}

// materializeValue nets the mapped value columns into signed cents. In single
// mode flip negates the signed column. In split mode the net is credit minus
// debit; flip negates the debit interpretation (for statements reporting
// debits as already-negative numbers), not the final net.
func materializeValue(vm ValueMapping, valueCol, creditCol, debitCol *Column, row int) int64 {
	switch vm.Mode {
	case ValueSingle:
		v := cellNumber(valueCol, row)
		if vm.Flip {
			v = -v
		}

		return toCents(v)
	case ValueSplit:
		credit := cellNumber(creditCol, row)
		debit := cellNumber(debitCol, row)

		if vm.Flip {
			debit = -debit
		}

		return toCents(credit) - toCents(debit)
	}

	return 0
}

func materializeCurrency(cm CurrencyMapping, col *Column, row int, currencies []currency.Currency) (uuid.UUID, bool, string) {
	if cm.Mode == CurrencyConstant {
		return cm.CurrencyID, false, ""
	}

	if col == nil {
		return uuid.Nil, true, "no currency column"
	}

	v := col.Values[row]
	if v == nil {
		return uuid.Nil, true, "missing currency"
	}

	c, ok := currency.Find(currencies, cm.Field, v.Str)
	if !ok {
		return uuid.Nil, true, fmt.Sprintf("unknown currency: %s", v.Str)
	}

	return c.ID, false, ""
}

// cellNumber reads a numeric cell, treating null cells as zero so that a
// statement with only one side of a split populated still nets correctly.
func cellNumber(col *Column, row int) float64 {
	if col == nil {
		return 0
	}

	v := col.Values[row]
	if v == nil {
		return 0
	}

	return v.Num
}

// toCents converts a statement amount to integer cents, rounding half away
// from zero the way banks print amounts.
func toCents(v float64) int64 {
	return decimal.NewFromFloat(v).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
