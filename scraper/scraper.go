package scraper

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/use-agent/shotlist/config"
	"github.com/use-agent/shotlist/engine"
	"github.com/use-agent/shotlist/models"
)

var _ engine.Engine = (*Browser)(nil)

// Browser is the go-rod capture engine. It owns one Chromium process and a
// single page that every capture reuses. Not safe for concurrent use.
type Browser struct {
	browser    *rod.Browser
	page       *rod.Page
	router     *rod.HijackRouter
	browserCfg config.BrowserConfig
	captureCfg config.CaptureConfig
	health     pageHealth
	closeOnce  sync.Once
	closeErr   error
}

// New launches a headless browser and opens the page used for all captures.
func New(browserCfg config.BrowserConfig, captureCfg config.CaptureConfig) (*Browser, error) {
	l := launcher.New().
		Headless(browserCfg.Headless).
		NoSandbox(browserCfg.NoSandbox)

	if browserCfg.BrowserBin != "" {
		l = l.Bin(browserCfg.BrowserBin)
	}
	if browserCfg.Proxy != "" {
		l = l.Proxy(browserCfg.Proxy)
	}

	// ── Launch flags ─────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("hide-scrollbars"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewCaptureError(
			models.ErrCodeBrowserCrash,
			"failed to launch browser",
			err,
		)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, models.NewCaptureError(
			models.ErrCodeBrowserCrash,
			"failed to connect to browser",
			err,
		)
	}

	b := &Browser{
		browser:    browser,
		browserCfg: browserCfg,
		captureCfg: captureCfg,
	}
	if err := b.openPage(); err != nil {
		_ = browser.Close()
		return nil, err
	}
	return b, nil
}

// Close closes the page and kills the browser. Safe to call more than once.
func (b *Browser) Close() error {
	b.closeOnce.Do(func() {
		slog.Debug("capture engine shutting down: closing page")
		pageErr := b.closePage()
		slog.Debug("capture engine shutting down: closing browser")
		b.closeErr = errors.Join(pageErr, b.browser.Close())
		slog.Info("browser closed")
	})
	return b.closeErr
}
