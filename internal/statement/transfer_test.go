package statement

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpvalente/tally/internal/ledger"
)

var accountB = uuid.MustParse("bbbbbbbb-0000-0000-0000-000000000002")

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func candidateFile(id string, account uuid.UUID, candidates ...Candidate) *File {
	for i := range candidates {
		candidates[i].Row = i
		candidates[i].AccountID = account

		if candidates[i].CurrencyID == uuid.Nil {
			candidates[i].CurrencyID = eurID
		}
	}

	return &File{ID: id, Name: id + ".csv", Candidates: candidates}
}

func TestDetectTransfers_PairsOppositeLegs(t *testing.T) {
	a := candidateFile("file-1", accountA,
		Candidate{Date: day(2024, 3, 10), Value: -50000},
		Candidate{Date: day(2024, 3, 11), Value: -1250},
	)
	b := candidateFile("file-2", accountB,
		Candidate{Date: day(2024, 3, 10), Value: 50000},
	)

	matches := DetectTransfers([]*File{a, b}, nil, nil, DefaultDetectConfig())
	require.Len(t, matches, 2)

	out, ok := matches[Key{FileID: "file-1", Row: 0}]
	require.True(t, ok)
	assert.Equal(t, accountB, out.AccountID)
	assert.Equal(t, Key{FileID: "file-2", Row: 0}, out.Counterpart)
	assert.True(t, out.InBatch())

	in, ok := matches[Key{FileID: "file-2", Row: 0}]
	require.True(t, ok)
	assert.Equal(t, accountA, in.AccountID)
	assert.Equal(t, Key{FileID: "file-1", Row: 0}, in.Counterpart)

	_, ok = matches[Key{FileID: "file-1", Row: 1}]
	assert.False(t, ok)
}

func TestDetectTransfers_Symmetric(t *testing.T) {
	a := candidateFile("file-1", accountA,
		Candidate{Date: day(2024, 3, 10), Value: -50000},
	)
	b := candidateFile("file-2", accountB,
		Candidate{Date: day(2024, 3, 10), Value: 50000},
	)

	matches := DetectTransfers([]*File{a, b}, nil, nil, DefaultDetectConfig())

	for key, match := range matches {
		back, ok := matches[match.Counterpart]
		require.True(t, ok, "counterpart of %v missing", key)
		assert.Equal(t, key, back.Counterpart)
	}
}

func TestDetectTransfers_SameAccountNeverPairs(t *testing.T) {
	a := candidateFile("file-1", accountA,
		Candidate{Date: day(2024, 3, 10), Value: -50000},
		Candidate{Date: day(2024, 3, 10), Value: 50000},
	)

	matches := DetectTransfers([]*File{a}, nil, nil, DefaultDetectConfig())
	assert.Empty(t, matches)
}

func TestDetectTransfers_SameSignNeverPairs(t *testing.T) {
	a := candidateFile("file-1", accountA,
		Candidate{Date: day(2024, 3, 10), Value: 50000},
	)
	b := candidateFile("file-2", accountB,
		Candidate{Date: day(2024, 3, 10), Value: 50000},
	)

	matches := DetectTransfers([]*File{a, b}, nil, nil, DefaultDetectConfig())
	assert.Empty(t, matches)
}

func TestDetectTransfers_DateWindow(t *testing.T) {
	a := candidateFile("file-1", accountA,
		Candidate{Date: day(2024, 3, 10), Value: -50000},
	)

	within := candidateFile("file-2", accountB,
		Candidate{Date: day(2024, 3, 13), Value: 50000},
	)
	matches := DetectTransfers([]*File{a, within}, nil, nil, DefaultDetectConfig())
	assert.Len(t, matches, 2)

	beyond := candidateFile("file-2", accountB,
		Candidate{Date: day(2024, 3, 15), Value: 50000},
	)
	matches = DetectTransfers([]*File{a, beyond}, nil, nil, DefaultDetectConfig())
	assert.Empty(t, matches)
}

func TestDetectTransfers_Tolerance(t *testing.T) {
	a := candidateFile("file-1", accountA,
		Candidate{Date: day(2024, 3, 10), Value: -50000},
	)

	// 0.8% off: within the 1% tolerance.
	near := candidateFile("file-2", accountB,
		Candidate{Date: day(2024, 3, 10), Value: 49600},
	)
	matches := DetectTransfers([]*File{a, near}, nil, nil, DefaultDetectConfig())
	assert.Len(t, matches, 2)

	// 5% off: not a transfer.
	far := candidateFile("file-2", accountB,
		Candidate{Date: day(2024, 3, 10), Value: 47500},
	)
	matches = DetectTransfers([]*File{a, far}, nil, nil, DefaultDetectConfig())
	assert.Empty(t, matches)
}

func TestDetectTransfers_CrossCurrency(t *testing.T) {
	a := candidateFile("file-1", accountA,
		Candidate{Date: day(2024, 3, 10), Value: -50000, CurrencyID: eurID},
	)
	b := candidateFile("file-2", accountB,
		Candidate{Date: day(2024, 3, 10), Value: 54200, CurrencyID: usdID},
	)

	// 500 EUR out, 542 USD in at 1.085 USD/EUR: within tolerance.
	rates := Rates{eurID: 1.0, usdID: 1 / 1.085}

	matches := DetectTransfers([]*File{a, b}, nil, rates, DefaultDetectConfig())
	assert.Len(t, matches, 2)

	// Without a rate for USD the legs cannot be compared.
	matches = DetectTransfers([]*File{a, b}, nil, Rates{eurID: 1.0}, DefaultDetectConfig())
	assert.Empty(t, matches)
}

func TestDetectTransfers_TieBreaksByRowOrder(t *testing.T) {
	a := candidateFile("file-1", accountA,
		Candidate{Date: day(2024, 3, 10), Value: -50000},
	)
	b := candidateFile("file-2", accountB,
		Candidate{Date: day(2024, 3, 10), Value: 50000},
		Candidate{Date: day(2024, 3, 10), Value: 50000},
	)

	matches := DetectTransfers([]*File{a, b}, nil, nil, DefaultDetectConfig())
	require.Len(t, matches, 2)

	out := matches[Key{FileID: "file-1", Row: 0}]
	assert.Equal(t, Key{FileID: "file-2", Row: 0}, out.Counterpart)
}

func TestDetectTransfers_PrefersCloserDate(t *testing.T) {
	a := candidateFile("file-1", accountA,
		Candidate{Date: day(2024, 3, 10), Value: -50000},
	)
	b := candidateFile("file-2", accountB,
		Candidate{Date: day(2024, 3, 12), Value: 50000},
		Candidate{Date: day(2024, 3, 10), Value: 50000},
	)

	matches := DetectTransfers([]*File{a, b}, nil, nil, DefaultDetectConfig())

	out := matches[Key{FileID: "file-1", Row: 0}]
	assert.Equal(t, Key{FileID: "file-2", Row: 1}, out.Counterpart)
}

func TestDetectTransfers_SkipsExcludedAndZero(t *testing.T) {
	a := candidateFile("file-1", accountA,
		Candidate{Date: day(2024, 3, 10), Value: -50000, Excluded: true},
		Candidate{Date: day(2024, 3, 10), Value: 0},
	)
	b := candidateFile("file-2", accountB,
		Candidate{Date: day(2024, 3, 10), Value: 50000},
	)

	matches := DetectTransfers([]*File{a, b}, nil, nil, DefaultDetectConfig())
	assert.Empty(t, matches)
}

func TestDetectTransfers_LedgerCounterpart(t *testing.T) {
	txID := uuid.MustParse("cccccccc-0000-0000-0000-000000000003")
	existing := []*ledger.Transaction{{
		ID:         txID,
		AccountID:  accountB,
		Value:      50000,
		CurrencyID: eurID,
		Date:       day(2024, 3, 10),
	}}

	a := candidateFile("file-1", accountA,
		Candidate{Date: day(2024, 3, 10), Value: -50000},
	)

	matches := DetectTransfers([]*File{a}, existing, nil, DefaultDetectConfig())
	require.Len(t, matches, 1)

	match := matches[Key{FileID: "file-1", Row: 0}]
	assert.Equal(t, accountB, match.AccountID)
	assert.False(t, match.InBatch())
	require.NotNil(t, match.TransactionID)
	assert.Equal(t, txID, *match.TransactionID)
}

func TestDetectTransfers_BatchLegBeatsLedgerLeg(t *testing.T) {
	existing := []*ledger.Transaction{{
		ID:         uuid.MustParse("cccccccc-0000-0000-0000-000000000003"),
		AccountID:  accountB,
		Value:      50000,
		CurrencyID: eurID,
		Date:       day(2024, 3, 10),
	}}

	a := candidateFile("file-1", accountA,
		Candidate{Date: day(2024, 3, 10), Value: -50000},
	)
	b := candidateFile("file-2", accountB,
		Candidate{Date: day(2024, 3, 10), Value: 50000},
	)

	matches := DetectTransfers([]*File{a, b}, existing, nil, DefaultDetectConfig())
	require.Len(t, matches, 2)

	out := matches[Key{FileID: "file-1", Row: 0}]
	assert.True(t, out.InBatch())
	assert.Equal(t, Key{FileID: "file-2", Row: 0}, out.Counterpart)
}

func TestDetectTransfers_Deterministic(t *testing.T) {
	files := func() []*File {
		return []*File{
			candidateFile("file-1", accountA,
				Candidate{Date: day(2024, 3, 10), Value: -50000},
				Candidate{Date: day(2024, 3, 11), Value: -20000},
			),
			candidateFile("file-2", accountB,
				Candidate{Date: day(2024, 3, 10), Value: 50000},
				Candidate{Date: day(2024, 3, 12), Value: 20000},
			),
		}
	}

	first := DetectTransfers(files(), nil, nil, DefaultDetectConfig())
	second := DetectTransfers(files(), nil, nil, DefaultDetectConfig())
	assert.Equal(t, first, second)
}
