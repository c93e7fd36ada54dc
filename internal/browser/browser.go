// Package browser launches or attaches to Chrome for the CLI's live mode.
// The matcher itself never owns a browser; it receives a page handle.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
	"go.uber.org/zap"
)

type Config struct {
	// RemoteURL is the DevTools WebSocket URL of a running Chrome.
	// Empty launches a local one.
	RemoteURL string
	Headless  bool
	// NavigateTimeout bounds navigation plus load. Default: 30s.
	NavigateTimeout time.Duration
	Logger          *zap.Logger
}

func (c *Config) defaults() {
	if c.NavigateTimeout <= 0 {
		c.NavigateTimeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

type Session struct {
	cfg     Config
	browser *rod.Browser
	lnch    *launcher.Launcher
}

func Launch(ctx context.Context, cfg Config) (*Session, error) {
	cfg.defaults()
	log := cfg.Logger

	wsURL := cfg.RemoteURL
	var l *launcher.Launcher
	if wsURL == "" {
		l = launcher.New().Headless(cfg.Headless).
			Set("disable-blink-features", "AutomationControlled")
		u, err := l.Context(ctx).Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		log.Info("browser: launched local chrome", zap.String("url", wsURL), zap.Bool("headless", cfg.Headless))
	} else {
		log.Info("browser: connecting to remote", zap.String("url", wsURL))
	}

	b := rod.New().ControlURL(wsURL).Context(ctx)
	if err := b.Connect(); err != nil {
		if l != nil {
			l.Cleanup()
		}
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	return &Session{cfg: cfg, browser: b, lnch: l}, nil
}

// Open creates a stealth tab, navigates to pageURL and waits for load.
func (s *Session) Open(ctx context.Context, pageURL string) (*rod.Page, error) {
	page, err := stealth.Page(s.browser)
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, s.cfg.NavigateTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		s.cfg.Logger.Warn("browser: wait load", zap.String("url", pageURL), zap.Error(err))
	}
	return page.Context(ctx), nil
}

func (s *Session) Close() error {
	var err error
	if s.browser != nil {
		err = s.browser.Close()
		s.browser = nil
	}
	if s.lnch != nil {
		s.lnch.Cleanup()
		s.lnch = nil
	}
	return err
}
