package statement

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var accountA = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000001")

func TestMaterialize_SingleMode(t *testing.T) {
	columns := []*Column{
		dateCol("date", "2024-01-05", "2024-01-06"),
		numberCol("amount", num(-12.5), num(34)),
		stringCol("ref", "COFFEE", "REFUND"),
	}

	m := validMapping()
	m.Reference = "ref"

	candidates := Materialize(columns, m, accountA, testCurrencies())
	require.Len(t, candidates, 2)

	first := candidates[0]
	assert.Equal(t, 0, first.Row)
	assert.Equal(t, accountA, first.AccountID)
	assert.Equal(t, "2024-01-05", first.Date.Format(ISODate))
	assert.Equal(t, int64(-1250), first.Value)
	assert.Equal(t, "COFFEE", first.Reference)
	assert.Equal(t, eurID, first.CurrencyID)
	assert.False(t, first.Excluded)

	assert.Equal(t, int64(3400), candidates[1].Value)
}

func TestMaterialize_FlipSingle(t *testing.T) {
	columns := []*Column{
		dateCol("date", "2024-01-05"),
		numberCol("amount", num(42.5)),
	}

	m := validMapping()
	m.Value.Flip = true

	candidates := Materialize(columns, m, accountA, testCurrencies())
	require.Len(t, candidates, 1)
	assert.Equal(t, int64(-4250), candidates[0].Value)
}

func TestMaterialize_SplitMode(t *testing.T) {
	columns := []*Column{
		dateCol("date", "2024-01-05", "2024-01-06", "2024-01-07"),
		numberCol("credit", num(100), nil, nil),
		numberCol("debit", num(30), num(25), nil),
	}

	m := validMapping()
	m.SetValueMode(ValueSplit)
	m.Value.Credit = "credit"
	m.Value.Debit = "debit"

	candidates := Materialize(columns, m, accountA, testCurrencies())
	require.Len(t, candidates, 3)

	assert.Equal(t, int64(7000), candidates[0].Value)
	assert.Equal(t, int64(-2500), candidates[1].Value)

	// Both sides empty nets to zero; the row stays included.
	assert.Equal(t, int64(0), candidates[2].Value)
	assert.False(t, candidates[2].Excluded)
}

func TestMaterialize_FlipSplitNegatesDebit(t *testing.T) {
	// Some banks export debits already negative; flip reads the debit column
	// with the opposite sign rather than negating the net.
	columns := []*Column{
		dateCol("date", "2024-01-05"),
		numberCol("credit", num(100)),
		numberCol("debit", num(-30)),
	}

	m := validMapping()
	m.SetValueMode(ValueSplit)
	m.Value.Credit = "credit"
	m.Value.Debit = "debit"
	m.Value.Flip = true

	candidates := Materialize(columns, m, accountA, testCurrencies())
	require.Len(t, candidates, 1)
	assert.Equal(t, int64(7000), candidates[0].Value)
}

func TestMaterialize_Balance(t *testing.T) {
	columns := []*Column{
		dateCol("date", "2024-01-05", "2024-01-06"),
		numberCol("amount", num(-12.5), num(34)),
		numberCol("saldo", num(987.65), nil),
	}

	m := validMapping()
	m.Balance = "saldo"

	candidates := Materialize(columns, m, accountA, testCurrencies())
	require.Len(t, candidates, 2)

	require.NotNil(t, candidates[0].Balance)
	assert.Equal(t, int64(98765), *candidates[0].Balance)
	assert.Nil(t, candidates[1].Balance)
}

func TestMaterialize_ExcludesMissingDate(t *testing.T) {
	columns := []*Column{
		dateCol("date", "2024-01-05", ""),
		numberCol("amount", num(1), num(2)),
	}

	candidates := Materialize(columns, validMapping(), accountA, testCurrencies())
	require.Len(t, candidates, 2)

	assert.False(t, candidates[0].Excluded)
	assert.True(t, candidates[1].Excluded)
	assert.Equal(t, "missing date", candidates[1].Reason)
}

func TestMaterialize_ExcludesUnknownCurrency(t *testing.T) {
	columns := []*Column{
		dateCol("date", "2024-01-05", "2024-01-06"),
		numberCol("amount", num(1), num(2)),
		stringCol("ccy", "EUR", "ZZZ"),
	}

	m := validMapping()
	m.SetCurrencyMode(CurrencyColumn, uuid.Nil)
	m.Currency.Column = "ccy"

	candidates := Materialize(columns, m, accountA, testCurrencies())
	require.Len(t, candidates, 2)

	assert.Equal(t, eurID, candidates[0].CurrencyID)
	assert.True(t, candidates[1].Excluded)
	assert.Equal(t, "unknown currency: ZZZ", candidates[1].Reason)
}

func TestMaterialize_Deterministic(t *testing.T) {
	columns := []*Column{
		dateCol("date", "2024-01-05", "2024-01-06", ""),
		numberCol("amount", num(-12.5), num(34), num(5)),
	}

	first := Materialize(columns, validMapping(), accountA, testCurrencies())
	second := Materialize(columns, validMapping(), accountA, testCurrencies())
	assert.Equal(t, first, second)
}

func TestMaterialize_RoundsToCents(t *testing.T) {
	// Float noise in parsed values must not leak into stored cents.
	columns := []*Column{
		dateCol("date", "2024-01-05"),
		numberCol("amount", num(19.99)),
	}

	candidates := Materialize(columns, validMapping(), accountA, testCurrencies())
	require.Len(t, candidates, 1)
	assert.Equal(t, int64(1999), candidates[0].Value)
}

func TestMaterialize_EndToEnd(t *testing.T) {
	csv := "Data;Montante\n30-01-2026;-10,50\n31-01-2026;8.608,52\n"

	result, err := Parse(csv, ParseConfig{})
	require.NoError(t, err)

	m := NewMapping(eurID)
	m.Guess(result.Columns)

	require.NoError(t, m.Validate([]*File{{ID: "file-1", Name: "f.csv", Columns: result.Columns}}, testCurrencies()))

	candidates := Materialize(result.Columns, m, accountA, testCurrencies())
	require.Len(t, candidates, 2)

	assert.Equal(t, "2026-01-30", candidates[0].Date.Format(ISODate))
	assert.Equal(t, int64(-1050), candidates[0].Value)
	assert.Equal(t, int64(860852), candidates[1].Value)
	assert.Equal(t, eurID, candidates[1].CurrencyID)
}
