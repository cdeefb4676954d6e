package extractor

import (
	"fmt"
	"strconv"
	"strings"
)

// NormalizePriceText reduces raw price markup text to a parseable decimal
// string. It keeps only digits, commas and periods, converts the
// decimal-comma convention to a decimal point, and when more than one period
// remains treats all but the last as thousands separators and collapses them.
//
//	"38,99"     -> "38.99"
//	"1.234,56"  -> "1234.56"
//	"€ 12,-"    -> "12."
func NormalizePriceText(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			b.WriteRune(r)
		}
	}

	text := strings.ReplaceAll(b.String(), ",", ".")

	if strings.Count(text, ".") > 1 {
		parts := strings.Split(text, ".")
		text = strings.Join(parts[:len(parts)-1], "") + "." + parts[len(parts)-1]
	}

	return text
}

// CorrectCents applies the integer-cents heuristic: the site occasionally
// renders a price like 3899 with no decimal marker, so values above 1000 are
// divided by 100. Legitimately expensive items (> €1000) are misclassified
// by this rule; the threshold is a heuristic, not a guarantee.
func CorrectCents(v float64) float64 {
	if v > 1000 {
		return v / 100
	}
	return v
}

// ParsePrice normalizes and parses raw price text into currency units
func ParsePrice(raw string) (float64, error) {
	text := strings.TrimSuffix(NormalizePriceText(raw), ".")
	if text == "" {
		return 0, fmt.Errorf("no digits in price text %q", raw)
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable price text %q: %w", raw, err)
	}
	return CorrectCents(v), nil
}
