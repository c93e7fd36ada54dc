package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeText(t *testing.T) {
	cases := []struct {
		name  string
		input string
		opts  TextOptions
		want  string
	}{
		{name: "trim and collapse", input: "  Acme \n\t Corp  ", want: "acme corp"},
		{name: "case sensitive", input: "Acme  Corp", opts: TextOptions{CaseSensitive: true}, want: "Acme Corp"},
		{name: "strip punctuation", input: "Acme, Inc.", opts: TextOptions{StripPunctuation: true}, want: "acme inc"},
		{name: "strip special", input: "R&D #1 (beta)", opts: TextOptions{StripSpecialChars: true}, want: "r d 1 beta"},
		{name: "diacritics", input: "Café Müller", opts: TextOptions{StripDiacritics: true}, want: "cafe muller"},
		{name: "company suffix", input: "Acme Corporation", opts: TextOptions{Domain: DomainCompany}, want: "acme corp"},
		{name: "company dotted suffix", input: "Acme, Inc.", opts: TextOptions{Domain: DomainCompany}, want: "acme inc"},
		{name: "company ampersand", input: "Smith & Sons Ltd.", opts: TextOptions{Domain: DomainCompany}, want: "smith and sons ltd"},
		{name: "identifier", input: "SKU-12 34/A", opts: TextOptions{Domain: DomainIdentifier}, want: "sku1234a"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeText(tc.input, tc.opts))
		})
	}
}

func TestNormalizeTextIdempotent(t *testing.T) {
	inputs := []string{
		"  Acme   Corporation, Inc. ",
		"Ｆｕｌｌ Ｗｉｄｔｈ",
		"Straße Ärger",
		"l.l.c. . co.",
		"(555) 010-2030",
		"ǅemal ΣΊΣΥΦΟΣ",
	}
	optionSets := []TextOptions{
		{},
		{StripPunctuation: true},
		{StripSpecialChars: true, StripDiacritics: true},
		{Domain: DomainCompany},
		{Domain: DomainIdentifier},
		{CaseSensitive: true, Domain: DomainCompany},
	}
	for _, in := range inputs {
		for _, o := range optionSets {
			once := NormalizeText(in, o)
			assert.Equal(t, once, NormalizeText(once, o), "input %q opts %+v", in, o)
		}
	}
}

func TestDomainForField(t *testing.T) {
	assert.Equal(t, DomainCompany, DomainForField("companyName"))
	assert.Equal(t, DomainCompany, DomainForField("vendor_name"))
	assert.Equal(t, DomainIdentifier, DomainForField("orderId"))
	assert.Equal(t, DomainIdentifier, DomainForField("sku"))
	assert.Equal(t, DomainIdentifier, DomainForField("phone-number"))
	assert.Equal(t, DomainNone, DomainForField("title"))
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"acme", "widgets"}, Tokenize("the acme, widgets", 4))
	assert.Empty(t, Tokenize("", 1))
}
