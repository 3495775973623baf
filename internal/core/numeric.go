package core

// numeric.go normalizes decimal numbers across the merged table.
//
// Detection counts dot and comma decimals in the source tables to suggest a
// notation. The precision pass finds the largest fractional digit count in
// the merged table. The rewrite pass renders every number, and every string
// that looks like a plain decimal, with that precision and the chosen
// separator. Text that merely contains digits and punctuation is left alone.

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	decimalPattern   = regexp.MustCompile(`^\d+[.,]\d+$`)
	precisionPattern = regexp.MustCompile(`^\d+[.,](\d+)$`)
)

// DecimalCounts tallies decimal-looking cells by separator.
type DecimalCounts struct {
	Dot   int
	Comma int
}

// Suggested returns dot only when dot decimals strictly outnumber comma
// decimals; ties and empty tallies suggest comma.
func (c DecimalCounts) Suggested() Notation {
	if c.Dot > c.Comma {
		return NotationDot
	}
	return NotationComma
}

// DetectDecimals scans every cell of the source tables before merging.
func DetectDecimals(tables []*ParsedTable) DecimalCounts {
	var c DecimalCounts
	for _, t := range tables {
		for _, row := range t.Rows {
			for _, v := range row {
				s, ok := decimalText(v)
				if !ok || !decimalPattern.MatchString(s) {
					continue
				}
				if strings.ContainsRune(s, ',') {
					c.Comma++
				} else {
					c.Dot++
				}
			}
		}
	}
	return c
}

// MaxPrecision returns the largest fractional digit count among decimal
// cells of the merged rows, or 0 when there are none.
func MaxPrecision(rows [][]any) int {
	maxDigits := 0
	for _, row := range rows {
		for _, v := range row {
			s, ok := decimalText(v)
			if !ok {
				continue
			}
			m := precisionPattern.FindStringSubmatch(s)
			if m != nil && len(m[1]) > maxDigits {
				maxDigits = len(m[1])
			}
		}
	}
	return maxDigits
}

// ApplyNumericStyle rewrites numbers and decimal strings in place.
// Values that do not parse to a finite number keep their original form.
func ApplyNumericStyle(rows [][]any, style NumericStyle) {
	sep := style.Notation.Separator()
	for _, row := range rows {
		for i, v := range row {
			if out, ok := formatDecimal(v, style.Precision, sep); ok {
				row[i] = out
			}
		}
	}
}

func formatDecimal(v any, precision int, sep string) (string, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case string:
		if !decimalPattern.MatchString(x) {
			return "", false
		}
		parsed, err := strconv.ParseFloat(strings.Replace(x, ",", ".", 1), 64)
		if err != nil {
			return "", false
		}
		f = parsed
	default:
		return "", false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", false
	}
	s := strconv.FormatFloat(f, 'f', precision, 64)
	if sep != "." {
		s = strings.Replace(s, ".", sep, 1)
	}
	return s, true
}

// decimalText returns the text a cell is matched against. Numbers use
// their shortest decimal rendering.
func decimalText(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return "", false
		}
		return strconv.FormatFloat(x, 'f', -1, 64), true
	}
	return "", false
}
