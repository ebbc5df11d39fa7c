package statement

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Candidate delimiters, in preference order for ties.
var delimiters = []rune{',', '\t', ';'}

const (
	// delimiterSampleRows bounds how many rows delimiter detection inspects.
	delimiterSampleRows = 50
	// maxRaggedFraction is the largest share of rows allowed to disagree with
	// the dominant column count before the parse is rejected outright.
	maxRaggedFraction = 0.25
)

// Parse turns raw file text into typed columns. It is a pure function of the
// contents and config: delimiter, header presence, and per-column types are
// inferred when the config leaves them unset.
func Parse(contents string, cfg ParseConfig) (*ParseResult, error) {
	delimiter := cfg.Delimiter
	if delimiter == 0 {
		delimiter = detectDelimiter(contents)
	}

	rows, err := readRows(contents, delimiter)
	if err != nil {
		return nil, fmt.Errorf("reading rows: %w", err)
	}

	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}

	width := modalWidth(rows)

	ragged := 0

	for _, row := range rows {
		if len(row) != width {
			ragged++
		}
	}

	if float64(ragged) > maxRaggedFraction*float64(len(rows)) {
		return nil, &RaggedError{Ragged: ragged, Total: len(rows)}
	}

	var warnings []string

	cells := make([][]string, 0, len(rows)) // row-major, padded/truncated to width

	for i, row := range rows {
		switch {
		case len(row) > width:
			warnings = append(warnings, fmt.Sprintf("row %d has %d fields, truncated to %d columns", i+1, len(row), width))
			row = row[:width]
		case len(row) < width:
			padded := make([]string, width)
			copy(padded, row)
			row = padded
		}

		cells = append(cells, row)
	}

	header := hasHeader(cells, cfg)

	names := make([]string, width)
	for j := range names {
		if header {
			names[j] = strings.TrimSpace(cells[0][j])
		}

		if names[j] == "" {
			names[j] = fmt.Sprintf("Column %d", j+1)
		}
	}

	data := cells
	if header {
		data = cells[1:]
	}

	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	taken := make(map[string]bool)
	columns := make([]*Column, width)

	for j := 0; j < width; j++ {
		raw := make([]string, len(data))
		for i := range data {
			raw[i] = strings.TrimSpace(data[i][j])
		}

		colType, nullable, values := classify(raw, cfg.DateFormat)

		columns[j] = &Column{
			ID:       columnID(names[j], taken),
			Name:     names[j],
			Type:     colType,
			Nullable: nullable,
			Values:   values,
		}
	}

	return &ParseResult{Columns: columns, Warnings: warnings}, nil
}

// readRows splits the contents on the delimiter, keeping ragged rows and
// sloppy quoting, and drops rows whose every cell is blank (banks pad exports
// with decorative empty lines).
func readRows(contents string, delimiter rune) ([][]string, error) {
	reader := csv.NewReader(strings.NewReader(contents))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, err
		}

		if isBlank(row) {
			continue
		}

		rows = append(rows, row)
	}

	return rows, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}

	return true
}

// detectDelimiter picks the candidate producing the most consistent column
// count across sampled rows, preferring wider tables on ties.
func detectDelimiter(contents string) rune {
	best := delimiters[0]
	bestScore := -1.0
	bestWidth := 0

	for _, d := range delimiters {
		rows, err := readRows(contents, d)
		if err != nil || len(rows) == 0 {
			continue
		}

		if len(rows) > delimiterSampleRows {
			rows = rows[:delimiterSampleRows]
		}

		width := modalWidth(rows)

		consistent := 0

		for _, row := range rows {
			if len(row) == width {
				consistent++
			}
		}

		score := float64(consistent) / float64(len(rows))

		if score > bestScore || (score == bestScore && width > bestWidth) {
			best = d
			bestScore = score
			bestWidth = width
		}
	}

	return best
}

// modalWidth returns the most common field count. Ties resolve to the larger
// width so data rows win over sparse preamble lines.
func modalWidth(rows [][]string) int {
	counts := make(map[int]int)
	for _, row := range rows {
		counts[len(row)]++
	}

	width := 0
	most := 0

	for w, n := range counts {
		if n > most || (n == most && w > width) {
			width = w
			most = n
		}
	}

	return width
}

// hasHeader reports whether the first row is a header. When not forced by the
// config, the first row counts as a header if some column's body classifies
// as date or number while the first row's cell does not parse as that type.
func hasHeader(cells [][]string, cfg ParseConfig) bool {
	if cfg.Header != nil {
		return *cfg.Header
	}

	if len(cells) < 2 {
		return false
	}

	for j := range cells[0] {
		first := strings.TrimSpace(cells[0][j])
		if first == "" {
			continue
		}

		body := make([]string, 0, len(cells)-1)
		for _, row := range cells[1:] {
			body = append(body, strings.TrimSpace(row[j]))
		}

		bodyType, _, _ := classify(body, cfg.DateFormat)
		if bodyType == TypeString {
			continue
		}

		if !parsesAs(first, bodyType, cfg.DateFormat) {
			return true
		}
	}

	return false
}

func parsesAs(cell string, t ColumnType, dateFormat string) bool {
	switch t {
	case TypeDate:
		_, ok := parseDateAny(cell, dateFormat)
		return ok
	case TypeNumber:
		_, ok := parseNumber(cell)
		return ok
	}

	return true
}
