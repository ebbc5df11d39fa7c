package statement

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jpvalente/tally/internal/ledger"
)

// DetectConfig tunes transfer pairing. Values agree within Tolerance after
// currency conversion, and dates within WindowDays of each other, to absorb
// conversion spread and bank posting-date skew.
type DetectConfig struct {
	Tolerance  float64
	WindowDays int
}

func DefaultDetectConfig() DetectConfig {
	return DetectConfig{Tolerance: 0.01, WindowDays: 3}
}

// Rates expresses each currency in base-currency units per unit, used to
// compare transfer legs across currencies. Legs in currencies without a rate
// only pair when both sides share the currency.
type Rates map[uuid.UUID]float64

// Key addresses one candidate row within an import batch.
type Key struct {
	FileID string
	Row    int
}

// Match annotates one side of a detected transfer. Counterparts inside the
// batch carry the other row's key; counterparts already committed to the
// ledger carry the transaction id instead.
type Match struct {
	AccountID     uuid.UUID
	Counterpart   Key
	TransactionID *uuid.UUID
}

// InBatch reports whether the counterpart is another row of this import.
func (m Match) InBatch() bool { return m.TransactionID == nil }

// leg is one side eligible for pairing: either a candidate row or an
// existing ledger transaction.
type leg struct {
	key        Key
	account    uuid.UUID
	value      int64
	currencyID uuid.UUID
	date       time.Time
	ledgerID   *uuid.UUID
	order      int
	paired     bool
}

// DetectTransfers pairs rows that look like two legs of a movement between
// the user's own accounts: opposite signs, different accounts, converted
// absolute values within tolerance, dates within the window. Pairs inside
// the batch are annotated symmetrically. Detection is advisory; nothing here
// commits.
//
// Pairing is greedy in stable row order with a deterministic tie-break
// (closest date, then smallest relative value discrepancy, then lowest row
// order), so repeated runs over the same input always agree.
func DetectTransfers(files []*File, existing []*ledger.Transaction, rates Rates, cfg DetectConfig) map[Key]Match {
	legs := collectLegs(files, existing)
	matches := make(map[Key]Match)

	for i := range legs {
		if legs[i].paired || legs[i].ledgerID != nil {
			continue
		}

		best := -1

		for j := range legs {
			if j == i || legs[j].paired {
				continue
			}

			if !eligible(&legs[i], &legs[j], rates, cfg) {
				continue
			}

			if best < 0 || closer(&legs[i], &legs[j], &legs[best], rates) {
				best = j
			}
		}

		if best < 0 {
			continue
		}

		legs[i].paired = true
		legs[best].paired = true

		matches[legs[i].key] = Match{
			AccountID:     legs[best].account,
			Counterpart:   legs[best].key,
			TransactionID: legs[best].ledgerID,
		}

		if legs[best].ledgerID == nil {
			matches[legs[best].key] = Match{
				AccountID:   legs[i].account,
				Counterpart: legs[i].key,
			}
		}
	}

	return matches
}

// collectLegs flattens non-excluded candidates and ledger transactions into
// one deterministically ordered list. Batch rows come first so in-batch
// counterparts win ties against ledger ones.
func collectLegs(files []*File, existing []*ledger.Transaction) []leg {
	var legs []leg

	for _, f := range files {
		for i := range f.Candidates {
			c := &f.Candidates[i]
			if c.Excluded || c.Value == 0 {
				continue
			}

			legs = append(legs, leg{
				key:        Key{FileID: f.ID, Row: c.Row},
				account:    c.AccountID,
				value:      c.Value,
				currencyID: c.CurrencyID,
				date:       c.Date,
			})
		}
	}

	ordered := make([]*ledger.Transaction, len(existing))
	copy(ordered, existing)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].Date.Equal(ordered[j].Date) {
			return ordered[i].Date.Before(ordered[j].Date)
		}

		return ordered[i].ID.String() < ordered[j].ID.String()
	})

	for _, tx := range ordered {
		if tx.Value == 0 {
			continue
		}

		id := tx.ID

		legs = append(legs, leg{
			key:        Key{FileID: "", Row: -1},
			account:    tx.AccountID,
			value:      tx.Value,
			currencyID: tx.CurrencyID,
			date:       tx.Date,
			ledgerID:   &id,
		})
	}

	for i := range legs {
		legs[i].order = i
	}

	return legs
}

func eligible(a, b *leg, rates Rates, cfg DetectConfig) bool {
	if a.account == b.account {
		return false
	}

	if (a.value < 0) == (b.value < 0) {
		return false
	}

	if dayDistance(a.date, b.date) > cfg.WindowDays {
		return false
	}

	diff, ok := relativeDiff(a, b, rates)

	return ok && diff <= cfg.Tolerance
}

// closer reports whether candidate x beats the current best y as the
// counterpart for row r.
func closer(r, x, y *leg, rates Rates) bool {
	dx, dy := dayDistance(r.date, x.date), dayDistance(r.date, y.date)
	if dx != dy {
		return dx < dy
	}

	rx, _ := relativeDiff(r, x, rates)
	ry, _ := relativeDiff(r, y, rates)

	if rx != ry {
		return rx < ry
	}

	return x.order < y.order
}

// relativeDiff compares the converted absolute values of two legs. Same
// currency compares cents directly; different currencies convert through the
// rate table and fail when a rate is missing.
func relativeDiff(a, b *leg, rates Rates) (float64, bool) {
	va := float64(abs(a.value))
	vb := float64(abs(b.value))

	if a.currencyID != b.currencyID {
		ra, aok := rates[a.currencyID]
		rb, bok := rates[b.currencyID]

		if !aok || !bok || ra <= 0 || rb <= 0 {
			return 0, false
		}

		va *= ra
		vb *= rb
	}

	if va == 0 && vb == 0 {
		return 0, true
	}

	return absf(va-vb) / maxf(va, vb), true
}

func dayDistance(a, b time.Time) int {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}

	return int(d / (24 * time.Hour))
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}

	return n
}

func absf(f float64) float64 {
	if f < 0 {
		return -f
	}

	return f
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}

	return b
}
