package statement

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpvalente/tally/internal/currency"
)

var (
	eurID = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	usdID = uuid.MustParse("22222222-2222-2222-2222-222222222222")
)

func testCurrencies() []currency.Currency {
	return []currency.Currency{
		{ID: eurID, Ticker: "EUR", Symbol: "€", Name: "Euro"},
		{ID: usdID, Ticker: "USD", Symbol: "$", Name: "US Dollar"},
	}
}

func dateCol(id string, dates ...string) *Column {
	values := make([]*Value, len(dates))
	for i, d := range dates {
		if d != "" {
			values[i] = &Value{Str: d}
		}
	}

	return &Column{ID: id, Name: id, Type: TypeDate, Values: values}
}

func numberCol(id string, nums ...*float64) *Column {
	values := make([]*Value, len(nums))
	for i, n := range nums {
		if n != nil {
			values[i] = &Value{Num: *n}
		}
	}

	return &Column{ID: id, Name: id, Type: TypeNumber, Values: values}
}

func stringCol(id string, strs ...string) *Column {
	values := make([]*Value, len(strs))
	for i, s := range strs {
		if s != "" {
			values[i] = &Value{Str: s}
		}
	}

	return &Column{ID: id, Name: id, Type: TypeString, Values: values}
}

func num(f float64) *float64 { return &f }

func testFile(id string, columns ...*Column) *File {
	return &File{ID: id, Name: id + ".csv", Columns: columns}
}

func validMapping() Mapping {
	m := NewMapping(eurID)
	m.Date = "date"
	m.Value.Column = "amount"

	return m
}

func TestMappingGuess(t *testing.T) {
	columns := []*Column{
		stringCol("ref", "A", "B"),
		dateCol("booked", "2024-01-05", "2024-01-06"),
		numberCol("amount", num(1), num(2)),
	}

	m := NewMapping(eurID)
	m.Guess(columns)

	assert.Equal(t, "booked", m.Date)
	assert.Equal(t, "amount", m.Value.Column)
}

func TestMappingGuess_SkipsNullableDate(t *testing.T) {
	sparse := dateCol("maybe", "2024-01-05", "")
	sparse.Nullable = true

	columns := []*Column{sparse, dateCol("booked", "2024-01-05", "2024-01-06")}

	m := NewMapping(eurID)
	m.Guess(columns)

	assert.Equal(t, "booked", m.Date)
}

func TestSetValueMode_ClearsColumns(t *testing.T) {
	m := validMapping()
	m.Value.Flip = true

	m.SetValueMode(ValueSplit)

	assert.Equal(t, ValueSplit, m.Value.Mode)
	assert.Empty(t, m.Value.Column)
	assert.Empty(t, m.Value.Credit)
	assert.Empty(t, m.Value.Debit)
	assert.False(t, m.Value.Flip)

	// Re-setting the current mode keeps the assignment.
	m.Value.Credit = "in"
	m.SetValueMode(ValueSplit)
	assert.Equal(t, "in", m.Value.Credit)
}

func TestSetCurrencyMode(t *testing.T) {
	m := validMapping()

	m.SetCurrencyMode(CurrencyColumn, uuid.Nil)
	assert.Equal(t, CurrencyColumn, m.Currency.Mode)
	assert.Equal(t, uuid.Nil, m.Currency.CurrencyID)
	assert.Equal(t, currency.MatchTicker, m.Currency.Field)

	m.Currency.Column = "ccy"
	m.SetCurrencyMode(CurrencyConstant, eurID)
	assert.Equal(t, CurrencyConstant, m.Currency.Mode)
	assert.Equal(t, eurID, m.Currency.CurrencyID)
	assert.Empty(t, m.Currency.Column)
}

func TestValidateParsed(t *testing.T) {
	assert.Error(t, ValidateParsed(nil))

	good := testFile("file-1", dateCol("date", "2024-01-05"))
	assert.NoError(t, ValidateParsed([]*File{good}))

	broken := testFile("file-2")
	broken.Err = ErrEmptyFile

	err := ValidateParsed([]*File{good, broken})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyFile)
	assert.Contains(t, err.Error(), "file-2.csv")
}

func TestMappingValidate(t *testing.T) {
	files := []*File{testFile("file-1",
		dateCol("date", "2024-01-05"),
		numberCol("amount", num(-12.5)),
	)}
	currencies := testCurrencies()

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, validMapping().Validate(files, currencies))
	})

	t.Run("missing date", func(t *testing.T) {
		m := validMapping()
		m.Date = ""

		err := m.Validate(files, currencies)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "date column")
	})

	t.Run("missing value column", func(t *testing.T) {
		m := validMapping()
		m.Value.Column = ""

		err := m.Validate(files, currencies)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "value column")
	})

	t.Run("split needs both columns", func(t *testing.T) {
		m := validMapping()
		m.SetValueMode(ValueSplit)
		m.Value.Credit = "amount"

		err := m.Validate(files, currencies)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "credit and a debit")
	})

	t.Run("missing constant currency", func(t *testing.T) {
		m := validMapping()
		m.Currency.CurrencyID = uuid.Nil

		err := m.Validate(files, currencies)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no currency selected")
	})

	t.Run("missing currency column", func(t *testing.T) {
		m := validMapping()
		m.SetCurrencyMode(CurrencyColumn, uuid.Nil)

		err := m.Validate(files, currencies)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "currency column")
	})
}

func TestMappingValidate_UnmatchedCurrencies(t *testing.T) {
	files := []*File{testFile("file-1",
		dateCol("date", "2024-01-05", "2024-01-06"),
		numberCol("amount", num(-12.5), num(34)),
		stringCol("ccy", "XXX", "ZZZ"),
	)}

	m := validMapping()
	m.SetCurrencyMode(CurrencyColumn, uuid.Nil)
	m.Currency.Column = "ccy"

	err := m.Validate(files, testCurrencies())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "XXX, ZZZ")
}

func TestMappingValidate_PartialCurrencyMatchIsFine(t *testing.T) {
	// Per-row resolution failures are exclusions, not mapping errors; the
	// mapping only fails when nothing in the column resolves.
	files := []*File{testFile("file-1",
		dateCol("date", "2024-01-05", "2024-01-06"),
		numberCol("amount", num(-12.5), num(34)),
		stringCol("ccy", "EUR", "ZZZ"),
	)}

	m := validMapping()
	m.SetCurrencyMode(CurrencyColumn, uuid.Nil)
	m.Currency.Column = "ccy"

	assert.NoError(t, m.Validate(files, testCurrencies()))
}

func TestMappingValidate_CurrencyBySymbol(t *testing.T) {
	files := []*File{testFile("file-1",
		dateCol("date", "2024-01-05"),
		numberCol("amount", num(-12.5)),
		stringCol("ccy", "€"),
	)}

	m := validMapping()
	m.SetCurrencyMode(CurrencyColumn, uuid.Nil)
	m.Currency.Column = "ccy"
	m.Currency.Field = currency.MatchSymbol

	assert.NoError(t, m.Validate(files, testCurrencies()))
}
