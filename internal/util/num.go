package util

import (
	"fmt"
	"strconv"
	"strings"
)

func StringPtr(v string) *string { return &v }

func FloatPtr(v float64) *float64 { return &v }

// ExtractFloat pulls a best-effort numeric value out of a noisy cell. Numbers
// pass through; strings are scanned left to right and the first syntactically
// valid floating-point literal wins. Absence of a number is a normal outcome,
// reported as nil.
func ExtractFloat(value any) *float64 {
	switch v := value.(type) {
	case nil:
		return nil
	case float64:
		if v != v { // NaN
			return nil
		}
		return FloatPtr(v)
	case float32:
		return ExtractFloat(float64(v))
	case int:
		return FloatPtr(float64(v))
	case int32:
		return FloatPtr(float64(v))
	case int64:
		return FloatPtr(float64(v))
	case uint64:
		return FloatPtr(float64(v))
	case bool:
		return nil
	case string:
		return scanFloat(v)
	default:
		return scanFloat(fmt.Sprint(value))
	}
}

// foldMinus maps unicode minus and dash variants onto ASCII minus so the
// scanner only ever sees one sign character.
func foldMinus(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '−', '–', '—':
			return '-'
		}
		return r
	}, s)
}

func scanFloat(input string) *float64 {
	s := foldMinus(input)
	for i := 0; i < len(s); i++ {
		if !startsNumber(s, i) {
			continue
		}
		token, next := scanNumberAt(s, i)
		if token != "" {
			if parsed, err := strconv.ParseFloat(token, 64); err == nil {
				return FloatPtr(parsed)
			}
		}
		i = next
	}
	return nil
}

func startsNumber(s string, i int) bool {
	c := s[i]
	if isDigit(c) {
		return true
	}
	if c == '+' || c == '-' {
		if i+1 < len(s) && isDigit(s[i+1]) {
			return true
		}
		if i+2 < len(s) && s[i+1] == '.' && isDigit(s[i+2]) {
			return true
		}
		return false
	}
	if c == '.' {
		return i+1 < len(s) && isDigit(s[i+1])
	}
	return false
}

// scanNumberAt reads one number starting at i: sign, integer digits with
// optional comma-grouped thousands, optional decimal part, optional exponent.
// A comma only joins the number when it introduces an exact three-digit
// group, so "1,234" reads as 1234 while "3,7" stops at 3.
func scanNumberAt(s string, i int) (string, int) {
	var token strings.Builder
	if s[i] == '+' || s[i] == '-' {
		token.WriteByte(s[i])
		i++
	}

	intDigits := 0
	for i < len(s) && isDigit(s[i]) {
		token.WriteByte(s[i])
		intDigits++
		i++
	}

	if intDigits > 0 && intDigits <= 3 {
		for groupAt(s, i) {
			token.WriteString(s[i+1 : i+4])
			i += 4
		}
	}

	if intDigits > 0 && i < len(s) && s[i] == '.' {
		token.WriteByte('.')
		i++
		for i < len(s) && isDigit(s[i]) {
			token.WriteByte(s[i])
			i++
		}
	} else if intDigits == 0 && i < len(s) && s[i] == '.' {
		token.WriteByte('0')
		token.WriteByte('.')
		i++
		for i < len(s) && isDigit(s[i]) {
			token.WriteByte(s[i])
			i++
		}
	}

	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		expDigits := 0
		for j < len(s) && isDigit(s[j]) {
			expDigits++
			j++
		}
		if expDigits > 0 {
			token.WriteString(s[i:j])
			i = j
		}
	}

	return token.String(), i
}

// groupAt reports whether s[i:] opens an exact three-digit thousands group
// (",ddd" not followed by another digit).
func groupAt(s string, i int) bool {
	if i+3 >= len(s) || s[i] != ',' {
		return false
	}
	if !isDigit(s[i+1]) || !isDigit(s[i+2]) || !isDigit(s[i+3]) {
		return false
	}
	return i+4 >= len(s) || !isDigit(s[i+4])
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
