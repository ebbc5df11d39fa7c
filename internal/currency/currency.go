package currency

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Currency is a currency known to the ledger, e.g. {EUR, €, Euro}.
type Currency struct {
	ID        uuid.UUID
	Ticker    string
	Symbol    string
	Name      string
	CreatedAt time.Time
}

// MatchField selects which currency attribute a statement column is compared
// against when resolving currencies during import.
type MatchField string

const (
	MatchTicker MatchField = "ticker"
	MatchSymbol MatchField = "symbol"
	MatchName   MatchField = "name"
)

func (f MatchField) Valid() bool {
	switch f {
	case MatchTicker, MatchSymbol, MatchName:
		return true
	}

	return false
}

// value returns the attribute of c selected by f.
func (f MatchField) value(c Currency) string {
	switch f {
	case MatchTicker:
		return c.Ticker
	case MatchSymbol:
		return c.Symbol
	case MatchName:
		return c.Name
	}

	return ""
}

// Find resolves a raw statement cell to a currency by case-insensitive
// comparison against the chosen field. The bool reports whether a currency
// matched; resolution never guesses across fields.
func Find(currencies []Currency, field MatchField, cell string) (Currency, bool) {
	needle := strings.TrimSpace(cell)
	if needle == "" {
		return Currency{}, false
	}

	for _, c := range currencies {
		if strings.EqualFold(field.value(c), needle) {
			return c, true
		}
	}

	return Currency{}, false
}
