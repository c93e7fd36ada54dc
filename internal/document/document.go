// Package document defines the narrow document-query capability the matcher
// drives. Adapters wrap a static HTML snapshot (htmldoc) or a live browser
// page (roddoc). The matcher only reads from and issues commands to a
// Document; it never closes or replaces it.
package document

import (
	"context"
	"errors"
	"time"
)

var (
	ErrUnsupported     = errors.New("document: operation not supported")
	ErrTimeout         = errors.New("document: wait timed out")
	ErrInvalidSelector = errors.New("document: invalid selector")
)

// Element is a handle to one node. Handles are borrowed: they stay valid only
// while the owning Document is unchanged.
type Element interface {
	// Find resolves selector relative to the element, in document order.
	Find(ctx context.Context, selector string) ([]Element, error)
	Children(ctx context.Context) ([]Element, error)
	Text(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)
	// Attribute reports the value and whether the attribute is present.
	Attribute(ctx context.Context, name string) (string, bool, error)
	Click(ctx context.Context) error
}

type Document interface {
	Query(ctx context.Context, selector string) ([]Element, error)
	// WaitForSelector reports whether selector matched before timeout.
	// Expiry is a false result, not an error.
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) (bool, error)
	WaitForSettle(ctx context.Context, timeout time.Duration) error
	Sleep(ctx context.Context, d time.Duration) error
}

// Sleep blocks for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// First returns the first element matching selector, or nil.
func First(ctx context.Context, doc Document, selector string) (Element, error) {
	els, err := doc.Query(ctx, selector)
	if err != nil || len(els) == 0 {
		return nil, err
	}
	return els[0], nil
}
