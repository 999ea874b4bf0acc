// Package normalizer converts Brazilian-formatted statement tokens into
// canonical values: DD/MM/YYYY dates to ISO, "R$ 1.234,56" amounts to floats,
// and installment phrasing into (index, total) pairs.
package normalizer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrFormat marks a malformed date or amount token. Parsers catch it per
// line and drop the row; it is never fatal to a batch.
var ErrFormat = errors.New("malformed value")

// NormalizeDate converts a DD/MM/YYYY date to YYYY-MM-DD.
func NormalizeDate(raw string) (string, error) {
	parts := strings.Split(strings.TrimSpace(raw), "/")
	if len(parts) != 3 {
		return "", fmt.Errorf("%w: date %q", ErrFormat, raw)
	}

	day, month, year := parts[0], parts[1], parts[2]
	for _, p := range parts {
		if _, err := strconv.Atoi(p); err != nil {
			return "", fmt.Errorf("%w: date %q", ErrFormat, raw)
		}
	}

	if len(day) < 2 {
		day = "0" + day
	}
	if len(month) < 2 {
		month = "0" + month
	}
	return fmt.Sprintf("%s-%s-%s", year, month, day), nil
}

// NormalizeAmount parses a Brazilian-formatted amount ("R$ 1.234,56",
// "-23,50") into a signed float. The dot is a thousands separator and the
// comma the decimal one.
func NormalizeAmount(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "R$", "")
	s = strings.ReplaceAll(s, "r$", "")
	s = strings.ReplaceAll(s, ",", ".")

	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: amount %q", ErrFormat, raw)
	}
	return value, nil
}
