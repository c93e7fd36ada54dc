package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"entitymatch/internal"
	"entitymatch/internal/document"
	"entitymatch/internal/document/htmldoc"
)

const cardsHTML = `<html><body>
<div id="results">
  <div class="card" data-id="a1">
    <h3 class="title">Acme Corporation</h3>
    <span class="price">$1,234.56</span>
    <a class="link" href="/acme">View</a>
  </div>
  <div class="card" data-id="g2">
    <h3 class="title">Globex Inc</h3>
    <span class="price">(123.45)</span>
    <a class="link" href="/globex">View</a>
  </div>
  <div class="card" data-id="i3">
    <h3 class="title">Initech LLC</h3>
    <a class="link" href="/initech">View</a>
  </div>
</div>
</body></html>`

func parseHTML(t *testing.T, html string) *htmldoc.Document {
	t.Helper()
	doc, err := htmldoc.ParseString(html)
	require.NoError(t, err)
	return doc
}

func queryOne(t *testing.T, doc document.Document, selector string) document.Element {
	t.Helper()
	el, err := document.First(context.Background(), doc, selector)
	require.NoError(t, err)
	require.NotNil(t, el, selector)
	return el
}

func texts(t *testing.T, els []document.Element) []string {
	t.Helper()
	out := make([]string, 0, len(els))
	for _, el := range els {
		txt, err := el.Text(context.Background())
		require.NoError(t, err)
		out = append(out, strings.Join(strings.Fields(txt), " "))
	}
	return out
}

func source(kv ...string) internal.SourceEntity {
	values := map[string]*string{}
	for i := 0; i+1 < len(kv); i += 2 {
		v := kv[i+1]
		values[kv[i]] = &v
	}
	return internal.NewSourceEntity(values)
}

// scriptedDoc serves queries from a snapshot and scripts the waits.
type scriptedDoc struct {
	*htmldoc.Document

	waitFound bool
	waitErr   error
	settleErr error

	waits   []string
	sleeps  []time.Duration
	settles int
}

func (d *scriptedDoc) WaitForSelector(_ context.Context, selector string, _ time.Duration) (bool, error) {
	d.waits = append(d.waits, selector)
	return d.waitFound, d.waitErr
}

func (d *scriptedDoc) WaitForSettle(context.Context, time.Duration) error {
	d.settles++
	return d.settleErr
}

func (d *scriptedDoc) Sleep(_ context.Context, dur time.Duration) error {
	d.sleeps = append(d.sleeps, dur)
	return nil
}

type panicDoc struct{ document.Document }

func (panicDoc) Query(context.Context, string) ([]document.Element, error) {
	panic("query exploded")
}
