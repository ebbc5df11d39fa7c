package statement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestParse_CommaWithHeader(t *testing.T) {
	csv := "Date,Amount,Description\n2024-01-05,-12.50,COFFEE\n2024-01-06,34.00,REFUND\n"

	result, err := Parse(csv, ParseConfig{})
	require.NoError(t, err)
	require.Len(t, result.Columns, 3)
	assert.Empty(t, result.Warnings)

	assert.Equal(t, "Date", result.Columns[0].Name)
	assert.Equal(t, "date", result.Columns[0].ID)
	assert.Equal(t, TypeDate, result.Columns[0].Type)

	assert.Equal(t, "Amount", result.Columns[1].Name)
	assert.Equal(t, TypeNumber, result.Columns[1].Type)

	assert.Equal(t, "Description", result.Columns[2].Name)
	assert.Equal(t, TypeString, result.Columns[2].Type)

	assert.Equal(t, 2, result.Rows())
}

func TestParse_DetectsSemicolon(t *testing.T) {
	csv := "Data mov.;Descrição;Montante\n30-01-2026;CAFE CENTRAL;-10,50\n09-01-2026;TFI WISE;8.608,52\n"

	result, err := Parse(csv, ParseConfig{})
	require.NoError(t, err)
	require.Len(t, result.Columns, 3)

	assert.Equal(t, TypeDate, result.Columns[0].Type)
	assert.Equal(t, TypeString, result.Columns[1].Type)
	assert.Equal(t, TypeNumber, result.Columns[2].Type)

	require.NotNil(t, result.Columns[2].Values[1])
	assert.InDelta(t, 8608.52, result.Columns[2].Values[1].Num, 0.0001)
}

func TestParse_DetectsTab(t *testing.T) {
	tsv := "2024-01-05\t-12.50\n2024-01-06\t34.00\n"

	result, err := Parse(tsv, ParseConfig{})
	require.NoError(t, err)
	require.Len(t, result.Columns, 2)
	assert.Equal(t, 2, result.Rows())
}

func TestParse_NoHeaderNamesColumns(t *testing.T) {
	csv := "2024-01-05,-12.50\n2024-01-06,34.00\n"

	result, err := Parse(csv, ParseConfig{})
	require.NoError(t, err)
	require.Len(t, result.Columns, 2)

	assert.Equal(t, "Column 1", result.Columns[0].Name)
	assert.Equal(t, "Column 2", result.Columns[1].Name)
	assert.Equal(t, "column-1", result.Columns[0].ID)
	assert.Equal(t, 2, result.Rows())
}

func TestParse_ForcedHeaderOverridesDetection(t *testing.T) {
	// Both rows look like data; forcing the header consumes the first.
	csv := "2024-01-05,-12.50\n2024-01-06,34.00\n"

	result, err := Parse(csv, ParseConfig{Header: boolPtr(true)})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Rows())
	assert.Equal(t, "2024-01-05", result.Columns[0].Name)
}

func TestParse_ShortRowPadsWithNull(t *testing.T) {
	csv := "Date,Amount,Ref\n2024-01-05,-12.50,A\n2024-01-06,34.00\n2024-01-07,1.00,C\n"

	result, err := Parse(csv, ParseConfig{})
	require.NoError(t, err)
	require.Len(t, result.Columns, 3)

	ref := result.Columns[2]
	assert.Nil(t, ref.Values[1])
	assert.True(t, ref.Nullable)
}

func TestParse_LongRowTruncatesWithWarning(t *testing.T) {
	csv := "Date,Amount\n2024-01-05,-12.50\n2024-01-06,34.00,EXTRA\n2024-01-07,1.00\n2024-01-08,2.00\n"

	result, err := Parse(csv, ParseConfig{})
	require.NoError(t, err)
	require.Len(t, result.Columns, 2)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "truncated")
}

func TestParse_EmptyFile(t *testing.T) {
	_, err := Parse("", ParseConfig{})
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = Parse("\n\n  \n", ParseConfig{})
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestParse_HeaderOnly(t *testing.T) {
	_, err := Parse("Date,Amount\n", ParseConfig{Header: boolPtr(true)})
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestParse_TooManyRaggedRows(t *testing.T) {
	csv := "a,b\nc\nd\ne,f,g\nh,i\n"

	_, err := Parse(csv, ParseConfig{})

	var ragged *RaggedError

	require.ErrorAs(t, err, &ragged)
	assert.Equal(t, 3, ragged.Ragged)
	assert.Equal(t, 5, ragged.Total)
}

func TestParse_SkipsBlankLines(t *testing.T) {
	csv := "Date,Amount\n\n2024-01-05,-12.50\n   ,\n2024-01-06,34.00\n"

	result, err := Parse(csv, ParseConfig{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Rows())
}

func TestParse_DuplicateHeaderNames(t *testing.T) {
	csv := "Amount,Amount\n-12.50,1.00\n34.00,2.00\n"

	result, err := Parse(csv, ParseConfig{})
	require.NoError(t, err)
	require.Len(t, result.Columns, 2)

	assert.Equal(t, "amount", result.Columns[0].ID)
	assert.Equal(t, "amount-2", result.Columns[1].ID)
}

func TestParse_ExplicitDelimiter(t *testing.T) {
	// Commas inside the cells would win delimiter detection; the config pins it.
	csv := "Ref;Amount\nA,B;-12,50\nC,D;34,00\n"

	result, err := Parse(csv, ParseConfig{Delimiter: ';'})
	require.NoError(t, err)
	require.Len(t, result.Columns, 2)
	assert.Equal(t, TypeNumber, result.Columns[1].Type)
}

func TestParse_BankPreambleAbsorbedAsHeader(t *testing.T) {
	// Real exports carry a metadata line before the table. The short line is
	// padded to the modal width and, since its cells do not parse as the body
	// types, consumed as the header row.
	csv := "Saldo;1.000,00\n\n30-01-2026;CAFE;-10,00\n31-01-2026;LOJA;-20,00\n01-02-2026;TFI;30,00\n02-02-2026;MERCADO;-5,00\n"

	result, err := Parse(csv, ParseConfig{})
	require.NoError(t, err)
	require.Len(t, result.Columns, 3)
	assert.Equal(t, 4, result.Rows())
	assert.Equal(t, "Saldo", result.Columns[0].Name)
	assert.Equal(t, "Column 3", result.Columns[2].Name)
	assert.Equal(t, TypeDate, result.Columns[0].Type)
}
