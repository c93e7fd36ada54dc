package util

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var (
	reUSThousands       = regexp.MustCompile(`^-?\d{1,3}(?:,\d{3})+(?:\.\d+)?$`)
	reEuropeanThousands = regexp.MustCompile(`^-?\d{1,3}(?:\.\d{3})+(?:,\d+)?$`)
	reDecimalComma      = regexp.MustCompile(`^-?\d+,\d+$`)
)

// ParseNumber converts a display string such as "$1,234.56", "1.234,56" or
// "(123.45)" to a float. The passes run in order: direct parse, US style
// (digits, '.' and '-' kept), European style ('.' thousands, ',' decimal).
// A value wrapped in parentheses is negated.
func ParseNumber(input string) (float64, bool) {
	s := strings.TrimSpace(input)
	if s == "" {
		return 0, false
	}

	negative := false
	if inner := strings.TrimFunc(s, isCurrencyOrSpace); strings.HasPrefix(inner, "(") && strings.HasSuffix(inner, ")") {
		negative = true
		s = strings.TrimSpace(inner[1 : len(inner)-1])
	}

	v, ok := parseNumberPasses(s)
	if !ok {
		return 0, false
	}
	if negative {
		v = -math.Abs(v)
	}
	return v, true
}

func isCurrencyOrSpace(r rune) bool {
	return unicode.IsSpace(r) || unicode.Is(unicode.Sc, r)
}

func parseNumberPasses(s string) (float64, bool) {
	if v, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(v, 0) && !math.IsNaN(v) {
		return v, true
	}

	compact := keepNumeric(s, true)
	if compact == "" || !hasDigit(compact) {
		return 0, false
	}

	if !looksEuropean(compact) {
		us := strings.ReplaceAll(compact, ",", "")
		if v, err := strconv.ParseFloat(us, 64); err == nil {
			return v, true
		}
	}

	eu := strings.ReplaceAll(compact, ".", "")
	eu = strings.ReplaceAll(eu, ",", ".")
	if v, err := strconv.ParseFloat(eu, 64); err == nil {
		return v, true
	}
	return 0, false
}

// looksEuropean reports separators that only read correctly as '.'
// thousands and ',' decimal: "1.234,56", "1.234.567", "12,5".
func looksEuropean(s string) bool {
	if reUSThousands.MatchString(s) {
		return false
	}
	if reEuropeanThousands.MatchString(s) && (strings.Contains(s, ",") || strings.Count(s, ".") > 1) {
		return true
	}
	if reDecimalComma.MatchString(s) {
		return true
	}
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	return lastComma >= 0 && lastDot >= 0 && lastComma > lastDot
}

func keepNumeric(s string, keepComma bool) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		case r == ',' && keepComma:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func hasDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}

// FormatNumber renders v in the canonical form used for comparison.
func FormatNumber(v float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParseBool maps yes/no style flags. Unknown values report false.
func ParseBool(input string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "true", "yes", "1", "y", "on":
		return true, true
	case "false", "no", "0", "n", "off":
		return false, true
	default:
		return false, false
	}
}

func StringPtr(v string) *string {
	return &v
}
