package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"entitymatch/internal/browser"
	"entitymatch/internal/config"
	"entitymatch/internal/document"
	"entitymatch/internal/document/roddoc"
	"entitymatch/internal/loader"
)

// sourceFlags selects the document a command runs against.
type sourceFlags struct {
	input string
	url   string
	live  bool
}

func (s *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&s.input, "input", "i", "", "Local document (.html, .eml, .pdf, .xlsx, .txt)")
	cmd.Flags().StringVar(&s.url, "url", "", "Page URL to fetch")
	cmd.Flags().BoolVar(&s.live, "live", false, "Open --url in Chrome instead of fetching static HTML")
}

// open returns the document and a func releasing whatever backs it.
func (s *sourceFlags) open(ctx context.Context, cfg config.Config, log *zap.Logger) (document.Document, func(), error) {
	input := strings.TrimSpace(s.input)
	pageURL := strings.TrimSpace(s.url)

	switch {
	case input != "" && pageURL != "":
		return nil, nil, errors.New("--input and --url are mutually exclusive")
	case input != "":
		doc, err := loader.OpenFile(input)
		if err != nil {
			return nil, nil, err
		}
		return doc, func() {}, nil
	case pageURL != "" && !s.live:
		doc, err := loader.Fetch(ctx, pageURL, loader.FetchOptions{
			UserAgent: cfg.UserAgent,
			Timeout:   cfg.Timeout,
			Logger:    log,
		})
		if err != nil {
			return nil, nil, err
		}
		return doc, func() {}, nil
	case pageURL != "":
		sess, err := browser.Launch(ctx, browser.Config{
			RemoteURL: cfg.BrowserURL,
			Headless:  cfg.Headless,
			Logger:    log,
		})
		if err != nil {
			return nil, nil, err
		}
		page, err := sess.Open(ctx, pageURL)
		if err != nil {
			_ = sess.Close()
			return nil, nil, err
		}
		release := func() {
			if err := sess.Close(); err != nil {
				log.Warn("browser close", zap.Error(err))
			}
		}
		return roddoc.New(page, roddoc.WithSettleWindow(cfg.SettleWindow)), release, nil
	default:
		return nil, nil, fmt.Errorf("one of --input or --url is required")
	}
}

// loadOptions reads the options file and applies --set overrides to the
// source entity. "key=" sets an empty value; "key" alone sets null.
func loadOptions(path string, sets []string) (config.Options, error) {
	if strings.TrimSpace(path) == "" {
		return config.Options{}, errors.New("--options is required")
	}
	opts, err := config.LoadOptionsFile(path)
	if err != nil {
		return config.Options{}, err
	}
	if len(sets) == 0 {
		return opts, nil
	}

	source := make(map[string]*string, len(opts.SourceEntity)+len(sets))
	for k, v := range opts.SourceEntity {
		source[k] = v
	}
	for _, kv := range sets {
		key, value, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if key == "" {
			return config.Options{}, fmt.Errorf("invalid --set %q, want key=value", kv)
		}
		if !ok {
			source[key] = nil
			continue
		}
		v := value
		source[key] = &v
	}
	opts.SourceEntity = source
	return opts, nil
}
