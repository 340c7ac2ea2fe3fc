package legaltext

import (
	"strings"
	"unicode"
)

// NaturalLess orders section numbers so that digit runs compare by value:
// "9" < "10" < "10a" < "101" and "1-201" < "1-1101".
func NaturalLess(a, b string) bool {
	return naturalCompare(a, b) < 0
}

func naturalCompare(a, b string) int {
	for a != "" && b != "" {
		ca, restA := nextChunk(a)
		cb, restB := nextChunk(b)
		if c := compareChunk(ca, cb); c != 0 {
			return c
		}
		a, b = restA, restB
	}
	switch {
	case a == "" && b == "":
		return 0
	case a == "":
		return -1
	default:
		return 1
	}
}

func nextChunk(s string) (chunk, rest string) {
	digit := isDigit(s[0])
	i := 1
	for i < len(s) && isDigit(s[i]) == digit {
		i++
	}
	return s[:i], s[i:]
}

func compareChunk(a, b string) int {
	if isDigit(a[0]) && isDigit(b[0]) {
		a = strings.TrimLeft(a, "0")
		b = strings.TrimLeft(b, "0")
		if len(a) != len(b) {
			if len(a) < len(b) {
				return -1
			}
			return 1
		}
		return strings.Compare(a, b)
	}
	return strings.Compare(strings.Map(unicode.ToLower, a), strings.Map(unicode.ToLower, b))
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// Bounds returns the smallest and largest number in natural order.
func Bounds(numbers []string) (lo, hi string) {
	for i, n := range numbers {
		if i == 0 || NaturalLess(n, lo) {
			lo = n
		}
		if i == 0 || NaturalLess(hi, n) {
			hi = n
		}
	}
	return lo, hi
}
