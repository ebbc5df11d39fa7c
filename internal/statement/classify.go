package statement

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// typeThreshold is the share of non-empty sampled values that must parse
	// under a type before the column is classified as that type.
	typeThreshold = 0.95
	// classifySampleLimit caps how many values are inspected for very large
	// files; the chosen type still applies to every row.
	classifySampleLimit = 2048
)

// ISODate is the canonical calendar-date layout used throughout the import
// pipeline. Statement dates are calendar dates, never timestamps.
const ISODate = "2006-01-02"

// dateLayouts are tried in order; the first layout matching every sampled
// value wins for the whole column, so one file never mixes conventions.
var dateLayouts = []string{
	ISODate,
	"2006/01/02",
	"02-01-2006",
	"02/01/2006",
	"01/02/2006",
	"02.01.2006",
	"2 Jan 2006",
	"Jan 2, 2006",
}

// classify assigns a semantic type to a column of raw cell text and returns
// the typed values for every row. It never fails: columns that fit neither
// the date nor the number recognizer fall back to string.
func classify(raw []string, dateFormat string) (ColumnType, bool, []*Value) {
	sample := nonEmpty(raw, classifySampleLimit)

	if layout, ok := dateLayout(sample, dateFormat); ok {
		nullable, values := buildDates(raw, layout)
		return TypeDate, nullable, values
	}

	if numberFraction(sample) >= typeThreshold {
		nullable, values := buildNumbers(raw)
		return TypeNumber, nullable, values
	}

	nullable, values := buildStrings(raw)

	return TypeString, nullable, values
}

func nonEmpty(raw []string, limit int) []string {
	sample := make([]string, 0, len(raw))

	for _, s := range raw {
		if s == "" {
			continue
		}

		sample = append(sample, s)

		if len(sample) == limit {
			break
		}
	}

	return sample
}

// dateLayout finds the first layout under which at least typeThreshold of the
// sampled values parse. An explicit format from the parse config is the only
// layout tried when present.
func dateLayout(sample []string, dateFormat string) (string, bool) {
	if len(sample) == 0 {
		return "", false
	}

	layouts := dateLayouts
	if dateFormat != "" {
		layouts = []string{dateFormat}
	}

	for _, layout := range layouts {
		matched := 0

		for _, s := range sample {
			if _, err := time.Parse(layout, s); err == nil {
				matched++
			}
		}

		if float64(matched) >= typeThreshold*float64(len(sample)) {
			return layout, true
		}
	}

	return "", false
}

// parseDateAny parses a cell under the explicit format when given, else under
// any of the common layouts.
func parseDateAny(cell string, dateFormat string) (time.Time, bool) {
	layouts := dateLayouts
	if dateFormat != "" {
		layouts = []string{dateFormat}
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, cell); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

func buildDates(raw []string, layout string) (bool, []*Value) {
	nullable := false
	values := make([]*Value, len(raw))

	for i, s := range raw {
		t, err := time.Parse(layout, s)
		if s == "" || err != nil {
			nullable = true
			continue
		}

		values[i] = &Value{Str: t.UTC().Format(ISODate)}
	}

	return nullable, values
}

func numberFraction(sample []string) float64 {
	if len(sample) == 0 {
		return 0
	}

	matched := 0

	for _, s := range sample {
		if _, ok := parseNumber(s); ok {
			matched++
		}
	}

	return float64(matched) / float64(len(sample))
}

func buildNumbers(raw []string) (bool, []*Value) {
	nullable := false
	values := make([]*Value, len(raw))

	for i, s := range raw {
		n, ok := parseNumber(s)
		if !ok {
			nullable = true
			continue
		}

		values[i] = &Value{Num: n, Str: strconv.FormatFloat(n, 'f', -1, 64)}
	}

	return nullable, values
}

func buildStrings(raw []string) (bool, []*Value) {
	nullable := false
	values := make([]*Value, len(raw))

	for i, s := range raw {
		if s == "" {
			nullable = true
			continue
		}

		values[i] = &Value{Str: s}
	}

	return nullable, values
}

// thousandsPattern matches numbers grouped in threes by a single separator
// character, e.g. 1,234,567 or 1.234.567.
var thousandsPattern = regexp.MustCompile(`^\d{1,3}([.,\s]\d{3})+$`)

// parseNumber parses a statement amount tolerating locale thousands
// separators and parentheses-as-negative: "1,234.56", "1.234,56", "(42.50)".
func parseNumber(cell string) (float64, bool) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return 0, false
	}

	negative := false

	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	s = strings.TrimSpace(s)

	switch {
	case strings.HasPrefix(s, "-"):
		negative = !negative
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}

	// Non-breaking and regular spaces used as digit grouping.
	s = strings.ReplaceAll(s, " ", " ")

	normalized, ok := normalizeSeparators(s)
	if !ok {
		return 0, false
	}

	n, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0, false
	}

	if negative {
		n = -n
	}

	return n, true
}

// normalizeSeparators rewrites a digit string with locale separators into
// canonical form ("." decimal, no grouping). When both "." and "," appear the
// rightmost is the decimal separator. A single separator grouping digits in
// threes is treated as a thousands separator.
func normalizeSeparators(s string) (string, bool) {
	if s == "" {
		return "", false
	}

	dot := strings.LastIndex(s, ".")
	comma := strings.LastIndex(s, ",")

	switch {
	case dot >= 0 && comma >= 0:
		if dot > comma {
			s = strings.ReplaceAll(s, ",", "")
			s = strings.ReplaceAll(s, " ", "")
		} else {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, " ", "")
			s = strings.Replace(s, ",", ".", 1)
		}
	case thousandsPattern.MatchString(s):
		s = strings.ReplaceAll(s, ",", "")
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, " ", "")
	case comma >= 0:
		if strings.Count(s, ",") > 1 {
			return "", false
		}

		s = strings.ReplaceAll(s, " ", "")
		s = strings.Replace(s, ",", ".", 1)
	default:
		if strings.Count(s, ".") > 1 {
			return "", false
		}

		s = strings.ReplaceAll(s, " ", "")
	}

	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return "", false
		}
	}

	return s, true
}
