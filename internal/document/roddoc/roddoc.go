// Package roddoc adapts a live go-rod page to document.Document.
package roddoc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"entitymatch/internal/document"
)

const (
	defaultSettleWindow = 500 * time.Millisecond
	defaultWaitTimeout  = 10 * time.Second
)

type Page struct {
	page   *rod.Page
	settle time.Duration
}

type Option func(*Page)

// WithSettleWindow sets how long the page must stay quiet to count as settled.
func WithSettleWindow(d time.Duration) Option {
	return func(p *Page) {
		if d > 0 {
			p.settle = d
		}
	}
}

func New(page *rod.Page, opts ...Option) *Page {
	p := &Page{page: page, settle: defaultSettleWindow}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Page) Query(ctx context.Context, selector string) ([]document.Element, error) {
	els, err := p.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("roddoc: query %q: %w", selector, err)
	}
	return wrap(els), nil
}

func (p *Page) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) (bool, error) {
	waitCtx, cancel := context.WithTimeout(ctx, waitTimeout(timeout))
	defer cancel()

	_, err := p.page.Context(waitCtx).Element(selector)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, context.DeadlineExceeded) || waitCtx.Err() != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, nil
	}
	return false, fmt.Errorf("roddoc: wait %q: %w", selector, err)
}

func (p *Page) WaitForSettle(ctx context.Context, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, waitTimeout(timeout))
	defer cancel()

	if err := p.page.Context(waitCtx).WaitStable(p.settle); err != nil {
		if waitCtx.Err() != nil && ctx.Err() == nil {
			return document.ErrTimeout
		}
		return fmt.Errorf("roddoc: settle: %w", err)
	}
	return nil
}

// waitTimeout maps an unset timeout to the default instead of an already
// expired deadline.
func waitTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return defaultWaitTimeout
	}
	return d
}

func (p *Page) Sleep(ctx context.Context, d time.Duration) error {
	return document.Sleep(ctx, d)
}

func wrap(els rod.Elements) []document.Element {
	out := make([]document.Element, 0, len(els))
	for _, el := range els {
		out = append(out, &element{el: el})
	}
	return out
}

type element struct {
	el *rod.Element
}

func (e *element) Find(ctx context.Context, selector string) ([]document.Element, error) {
	els, err := e.el.Context(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("roddoc: find %q: %w", selector, err)
	}
	return wrap(els), nil
}

func (e *element) Children(ctx context.Context) ([]document.Element, error) {
	return e.Find(ctx, ":scope > *")
}

func (e *element) Text(ctx context.Context) (string, error) {
	return e.el.Context(ctx).Text()
}

func (e *element) HTML(ctx context.Context) (string, error) {
	v, err := e.el.Context(ctx).Property("innerHTML")
	if err != nil {
		return "", err
	}
	return v.Str(), nil
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	v, err := e.el.Context(ctx).Attribute(name)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (e *element) Click(ctx context.Context) error {
	el := e.el.Context(ctx)
	if err := el.ScrollIntoView(); err != nil {
		return fmt.Errorf("roddoc: scroll: %w", err)
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}
