// Package frame parses and formats the comma-separated lines the analyzer
// firmware prints once per loop.
package frame

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"msgeq7-viz/src/models"
)

var (
	// ErrMalformed is wrapped by every parse failure
	ErrMalformed = errors.New("malformed line")
	// ErrFieldCount means the line did not carry exactly 9 fields
	ErrFieldCount = fmt.Errorf("%w: wrong field count", ErrMalformed)
	// ErrNonNumeric means a field was not a plain decimal number
	ErrNonNumeric = fmt.Errorf("%w: non-numeric field", ErrMalformed)
)

// ParseLine validates and parses one line into a Frame.
// ReceivedAt is left zero; callers stamp it.
func ParseLine(line string) (models.Frame, error) {
	var f models.Frame

	parts := SplitFields(line)
	if len(parts) != models.FieldsPerFrame {
		return f, fmt.Errorf("%w: got %d, want %d", ErrFieldCount, len(parts), models.FieldsPerFrame)
	}

	var values [models.FieldsPerFrame]float64
	for i, p := range parts {
		if !IsDecimal(p) {
			return f, fmt.Errorf("%w: field %d %q", ErrNonNumeric, i, p)
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return f, fmt.Errorf("%w: field %d: %v", ErrNonNumeric, i, err)
		}
		values[i] = v
	}

	copy(f.Bands[:], values[:models.NumBands])
	f.BassThreshold = values[models.NumBands]
	f.TrebleThreshold = values[models.NumBands+1]
	return f, nil
}

// SplitFields trims the line, drops trailing commas and splits it.
// An empty line yields one empty field.
func SplitFields(line string) []string {
	line = strings.TrimSpace(line)
	line = strings.TrimRight(line, ",")
	return strings.Split(line, ",")
}

// IsDecimal reports whether s is ASCII digits with at most one dot.
// Signs, exponents and whitespace are rejected.
func IsDecimal(s string) bool {
	digits, dots := 0, 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= '0' && c <= '9':
			digits++
		case c == '.':
			dots++
			if dots > 1 {
				return false
			}
		default:
			return false
		}
	}
	return digits > 0
}

// IsDeviceMessage reports whether the line is firmware status text such as
// "Mode set to BOUNCE" rather than a data frame
func IsDeviceMessage(line string) bool {
	r, size := utf8.DecodeRuneInString(strings.TrimSpace(line))
	return size > 0 && unicode.IsLetter(r)
}

// FormatFrame renders f in the firmware wire format: every band followed by a
// comma, then the two thresholds, two decimals each
func FormatFrame(f models.Frame) string {
	var b strings.Builder
	for _, v := range f.Bands {
		b.WriteString(strconv.FormatFloat(v, 'f', 2, 64))
		b.WriteByte(',')
	}
	b.WriteString(strconv.FormatFloat(f.BassThreshold, 'f', 2, 64))
	b.WriteByte(',')
	b.WriteString(strconv.FormatFloat(f.TrebleThreshold, 'f', 2, 64))
	return b.String()
}
