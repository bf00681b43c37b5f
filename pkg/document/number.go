package document

import (
	"fmt"
	"strconv"
	"strings"
)

// normalizeNumber rewrites a JSON number literal as its significant digits
// followed by a decimal exponent, so 1.50, 15e-1 and 1.5E0 all become 15e-1.
// The value is never rounded: literals that differ in any digit stay
// distinct however many digits they carry.
func normalizeNumber(literal string) (string, error) {
	s := literal
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	exp := 0
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		e, err := strconv.Atoi(s[i+1:])
		if err != nil {
			return "", fmt.Errorf("invalid number literal %q", literal)
		}
		exp = e
		s = s[:i]
	}

	intPart, frac, _ := strings.Cut(s, ".")
	digits := intPart + frac
	if digits == "" || strings.Trim(digits, "0123456789") != "" {
		return "", fmt.Errorf("invalid number literal %q", literal)
	}
	exp -= len(frac)

	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		return "0", nil
	}
	trimmed := strings.TrimRight(digits, "0")
	exp += len(digits) - len(trimmed)

	res := trimmed
	if exp != 0 {
		res += "e" + strconv.Itoa(exp)
	}
	if neg {
		res = "-" + res
	}
	return res, nil
}

// equalNumbers compares two number literals by value.
func equalNumbers(a, b string) bool {
	if a == b {
		return true
	}
	na, errA := normalizeNumber(a)
	nb, errB := normalizeNumber(b)
	return errA == nil && errB == nil && na == nb
}
