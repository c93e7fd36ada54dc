// Package htmldoc adapts a parsed HTML snapshot to document.Document using
// goquery. A snapshot never changes, so waits resolve immediately and clicks
// are recorded rather than dispatched.
package htmldoc

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"entitymatch/internal/document"
)

type Document struct {
	doc *goquery.Document

	mu     sync.Mutex
	clicks []string
}

func New(doc *goquery.Document) *Document {
	return &Document{doc: doc}
}

func Parse(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("htmldoc: parse: %w", err)
	}
	return New(doc), nil
}

func ParseString(html string) (*Document, error) {
	return Parse(strings.NewReader(html))
}

func (d *Document) Query(ctx context.Context, selector string) ([]document.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkSelector(selector); err != nil {
		return nil, err
	}
	return d.wrap(d.doc.Find(selector)), nil
}

func (d *Document) WaitForSelector(ctx context.Context, selector string, _ time.Duration) (bool, error) {
	els, err := d.Query(ctx, selector)
	if err != nil {
		return false, err
	}
	return len(els) > 0, nil
}

func (d *Document) WaitForSettle(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func (d *Document) Sleep(ctx context.Context, dur time.Duration) error {
	return document.Sleep(ctx, dur)
}

// Clicks lists a short description of every element clicked so far.
func (d *Document) Clicks() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.clicks...)
}

func (d *Document) recordClick(sel *goquery.Selection) {
	desc := goquery.NodeName(sel)
	if id, ok := sel.Attr("id"); ok && id != "" {
		desc += "#" + id
	}
	if class, ok := sel.Attr("class"); ok && strings.TrimSpace(class) != "" {
		desc += "." + strings.Join(strings.Fields(class), ".")
	}
	if text := strings.Join(strings.Fields(innerText(sel.Nodes)), " "); text != "" {
		if len(text) > 40 {
			text = text[:40]
		}
		desc += " " + text
	}
	d.mu.Lock()
	d.clicks = append(d.clicks, desc)
	d.mu.Unlock()
}

func (d *Document) wrap(sel *goquery.Selection) []document.Element {
	out := make([]document.Element, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, &element{doc: d, sel: s})
	})
	return out
}

type element struct {
	doc *Document
	sel *goquery.Selection
}

func (e *element) Find(ctx context.Context, selector string) ([]document.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkSelector(selector); err != nil {
		return nil, err
	}
	return e.doc.wrap(e.sel.Find(selector)), nil
}

func (e *element) Children(ctx context.Context) ([]document.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.doc.wrap(e.sel.Children()), nil
}

func (e *element) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return innerText(e.sel.Nodes), nil
}

func (e *element) HTML(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return e.sel.Html()
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	v, ok := e.sel.Attr(name)
	return v, ok, nil
}

func (e *element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.doc.recordClick(e.sel)
	return nil
}

func checkSelector(selector string) error {
	if strings.TrimSpace(selector) == "" {
		return fmt.Errorf("%w: empty", document.ErrInvalidSelector)
	}
	if _, err := cascadia.ParseGroup(selector); err != nil {
		return fmt.Errorf("%w: %q: %v", document.ErrInvalidSelector, selector, err)
	}
	return nil
}

// Elements whose content starts on a new line when rendered.
var blockElements = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Dd: true, atom.Details: true, atom.Div: true, atom.Dl: true, atom.Dt: true,
	atom.Fieldset: true, atom.Figcaption: true, atom.Figure: true, atom.Footer: true,
	atom.Form: true, atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true,
	atom.H5: true, atom.H6: true, atom.Header: true, atom.Hr: true, atom.Li: true,
	atom.Main: true, atom.Nav: true, atom.Ol: true, atom.P: true, atom.Pre: true,
	atom.Section: true, atom.Summary: true, atom.Table: true, atom.Tbody: true,
	atom.Thead: true, atom.Tfoot: true, atom.Tr: true, atom.Ul: true,
}

// innerText approximates the browser's innerText: descendant block
// elements, table cells and <br> break words apart, script and style
// content is dropped. Whitespace inside text nodes is kept as is.
func innerText(nodes []*html.Node) string {
	var b strings.Builder
	sep := func(r byte) {
		if b.Len() > 0 {
			b.WriteByte(r)
		}
	}

	var walk func(n *html.Node, root bool)
	walk = func(n *html.Node, root bool) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.CommentNode, html.DoctypeNode:
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Template, atom.Noscript:
				return
			case atom.Br:
				sep('\n')
				return
			}
		}

		var brk byte
		if n.Type == html.ElementNode && !root {
			switch {
			case blockElements[n.DataAtom]:
				brk = '\n'
			case n.DataAtom == atom.Td || n.DataAtom == atom.Th:
				brk = '\t'
			}
		}
		if brk != 0 {
			sep(brk)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, false)
		}
		if brk != 0 {
			sep(brk)
		}
	}

	for _, n := range nodes {
		walk(n, true)
	}
	return b.String()
}
