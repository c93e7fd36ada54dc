package htmldoc

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"entitymatch/internal/document"
)

func firstText(t *testing.T, markup, selector string) string {
	t.Helper()
	doc, err := ParseString(markup)
	require.NoError(t, err)
	els, err := doc.Query(context.Background(), selector)
	require.NoError(t, err)
	require.NotEmpty(t, els)
	text, err := els[0].Text(context.Background())
	require.NoError(t, err)
	return text
}

func TestTextSeparatesBlocks(t *testing.T) {
	cases := []struct {
		name   string
		markup string
		sel    string
		words  []string
	}{
		{name: "headings and paragraphs", markup: `<div id="i"><h3>Globex</h3><p>Springfield</p></div>`, sel: "#i", words: []string{"Globex", "Springfield"}},
		{name: "nested divs", markup: `<li id="i"><div>Acme Corp</div><div><span>Boston</span>, <span>MA</span></div></li>`, sel: "#i", words: []string{"Acme", "Corp", "Boston,", "MA"}},
		{name: "table cells", markup: `<table><tr id="i"><td>Acme</td><td>42</td></tr></table>`, sel: "#i", words: []string{"Acme", "42"}},
		{name: "line break", markup: `<p id="i">Acme<br>Boston</p>`, sel: "#i", words: []string{"Acme", "Boston"}},
		{name: "inline stays joined", markup: `<span id="i"><b>Ac</b>me Corp</span>`, sel: "#i", words: []string{"Acme", "Corp"}},
		{name: "script dropped", markup: `<div id="i">Acme<script>var x = 1;</script></div>`, sel: "#i", words: []string{"Acme"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.words, strings.Fields(firstText(t, tc.markup, tc.sel)))
		})
	}
}

func TestTextKeepsOwnWhitespace(t *testing.T) {
	assert.Equal(t, " Widget Pro  ", firstText(t, `<div><span class="n"> Widget Pro  </span></div>`, ".n"))
	assert.Equal(t, "Acme", firstText(t, `<div id="i">Acme</div>`, "#i"))
}

func TestQueryRejectsInvalidSelector(t *testing.T) {
	doc, err := ParseString(`<p>x</p>`)
	require.NoError(t, err)
	_, err = doc.Query(context.Background(), "p[")
	assert.ErrorIs(t, err, document.ErrInvalidSelector)
}
