package util

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type Domain string

const (
	DomainAuto       Domain = "auto"
	DomainNone       Domain = "none"
	DomainCompany    Domain = "company"
	DomainIdentifier Domain = "identifier"
)

// TextOptions configures NormalizeText. The zero value trims, collapses
// unicode whitespace and case-folds.
type TextOptions struct {
	CaseSensitive     bool
	StripPunctuation  bool
	StripSpecialChars bool
	StripDiacritics   bool
	Domain            Domain
}

var (
	reCamelCase = regexp.MustCompile(`([a-z0-9])([A-Z])`)

	companySuffixes = map[string]string{
		"corporation":  "corp",
		"incorporated": "inc",
		"limited":      "ltd",
		"company":      "co",
		"companies":    "cos",
		"l.l.c":        "llc",
		"l.l.c.":       "llc",
		"co.":          "co",
		"corp.":        "corp",
		"inc.":         "inc",
		"ltd.":         "ltd",
		"llc.":         "llc",
		"plc.":         "plc",
		"&":            "and",
	}

	companyNameHints    = []string{"company", "business", "employer", "organization", "organisation", "firm", "vendor", "supplier", "merchant", "agency", "corp", "brand", "manufacturer"}
	identifierNameHints = []string{"id", "sku", "code", "ein", "tin", "npi", "uuid", "number", "num", "no", "phone", "zip", "postal", "postcode", "license", "licence", "account", "isbn", "upc", "ean", "serial", "mpn", "vin", "ref"}
)

// NormalizeText applies generic normalization then the domain normalizer.
// NormalizeText(NormalizeText(x, o), o) == NormalizeText(x, o).
func NormalizeText(input string, o TextOptions) string {
	s := input
	if !o.CaseSensitive {
		s = cases.Fold().String(s)
	}
	if o.StripDiacritics {
		s = stripDiacritics(s)
	}
	if o.StripSpecialChars {
		s = mapRunes(s, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) })
	} else if o.StripPunctuation {
		s = mapRunes(s, func(r rune) bool { return !unicode.IsPunct(r) })
	}
	s = collapseSpaces(s)

	switch o.Domain {
	case DomainCompany:
		s = normalizeCompany(s)
	case DomainIdentifier:
		s = normalizeIdentifier(s)
	}
	return s
}

// DomainForField guesses the domain normalizer from a field name such as
// "companyName" or "order_id".
func DomainForField(name string) Domain {
	tokens := FieldNameTokens(name)
	for _, t := range tokens {
		for _, hint := range companyNameHints {
			if t == hint {
				return DomainCompany
			}
		}
	}
	for _, t := range tokens {
		for _, hint := range identifierNameHints {
			if t == hint {
				return DomainIdentifier
			}
		}
	}
	return DomainNone
}

// FieldNameTokens splits camelCase, snake_case and kebab-case names into
// lower-case words.
func FieldNameTokens(name string) []string {
	s := reCamelCase.ReplaceAllString(name, "$1 $2")
	s = strings.Map(func(r rune) rune {
		if r == '_' || r == '-' || r == '.' {
			return ' '
		}
		return r
	}, s)
	return strings.Fields(strings.ToLower(s))
}

// Tokenize splits normalized text into words of at least minLen runes.
func Tokenize(input string, minLen int) []string {
	parts := strings.Fields(input)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimFunc(p, func(r rune) bool { return unicode.IsPunct(r) })
		if len([]rune(p)) >= minLen {
			out = append(out, p)
		}
	}
	return out
}

func CollapseSpaces(input string) string {
	return collapseSpaces(input)
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func mapRunes(s string, keep func(rune) bool) string {
	return strings.Map(func(r rune) rune {
		if keep(r) {
			return r
		}
		return ' '
	}, s)
}

func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func normalizeCompany(s string) string {
	s = strings.ReplaceAll(s, ",", " ")
	words := strings.Fields(s)
	out := make([]string, 0, len(words))
	for _, w := range words {
		if repl, ok := companySuffixes[strings.ToLower(w)]; ok {
			out = append(out, repl)
			continue
		}
		trimmed := strings.TrimRight(w, ".")
		if trimmed == "" {
			continue
		}
		if repl, ok := companySuffixes[strings.ToLower(trimmed)]; ok {
			trimmed = repl
		}
		out = append(out, trimmed)
	}
	return strings.Join(out, " ")
}

func normalizeIdentifier(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
