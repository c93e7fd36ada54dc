package loader

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"entitymatch/internal/document/htmldoc"
)

type FetchOptions struct {
	UserAgent string
	Timeout   time.Duration
	Logger    *zap.Logger
}

// Fetch downloads one page without running scripts and parses it as a
// static snapshot.
func Fetch(ctx context.Context, pageURL string, opts FetchOptions) (*htmldoc.Document, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	collectorOpts := []colly.CollectorOption{
		colly.StdlibContext(ctx),
		colly.MaxDepth(1),
		colly.AllowURLRevisit(),
	}
	if opts.UserAgent != "" {
		collectorOpts = append(collectorOpts, colly.UserAgent(opts.UserAgent))
	}
	c := colly.NewCollector(collectorOpts...)
	c.SetRequestTimeout(timeout)

	var (
		body     []byte
		status   int
		fetchErr error
	)
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = append([]byte(nil), r.Body...)
		log.Debug("fetched page", zap.String("url", r.Request.URL.String()), zap.Int("status", status), zap.Int("bytes", len(body)))
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = err
	})

	if err := c.Visit(pageURL); err != nil && fetchErr == nil {
		fetchErr = err
	}
	c.Wait()

	if fetchErr != nil {
		return nil, fmt.Errorf("fetch %s (status %d): %w", pageURL, status, fetchErr)
	}
	if body == nil {
		return nil, fmt.Errorf("fetch %s: empty response", pageURL)
	}
	return htmldoc.Parse(bytes.NewReader(body))
}
