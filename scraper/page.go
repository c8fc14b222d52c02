package scraper

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/shotlist/engine"
	"github.com/use-agent/shotlist/models"
	"github.com/ysmood/gson"
	"golang.org/x/net/idna"
)

// openPage creates the capture page and applies the per-page setup.
//
// Setup order matters: stealth JS, headers and the hijack router only take
// effect for navigations that happen after they are installed.
func (b *Browser) openPage() error {
	page, err := b.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return models.NewCaptureError(
			models.ErrCodeBrowserCrash,
			"failed to create page",
			err,
		)
	}

	// ── 1. Viewport ───────────────────────────────────────────────────
	if b.browserCfg.ViewportWidth > 0 && b.browserCfg.ViewportHeight > 0 {
		if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             b.browserCfg.ViewportWidth,
			Height:            b.browserCfg.ViewportHeight,
			DeviceScaleFactor: 1,
		}); err != nil {
			_ = page.Close()
			return models.NewCaptureError(models.ErrCodeBrowserCrash, "failed to set viewport", err)
		}
	}

	// ── 2. User agent ─────────────────────────────────────────────────
	if ua := b.browserCfg.UserAgent; ua != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: ua}); err != nil {
			slog.Warn("user agent override failed, using browser default", "error", err)
		}
	}

	// ── 3. Stealth injection ──────────────────────────────────────────
	if b.captureCfg.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth",
				"error", evalErr,
			)
		}
	}

	// ── 4. Extra headers ──────────────────────────────────────────────
	if len(b.captureCfg.Headers) > 0 {
		// Headers only apply while the Network domain is enabled; it stays
		// enabled for the page's lifetime.
		_ = page.EnableDomain(&proto.NetworkEnable{})
		if err := (proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(b.captureCfg.Headers),
		}).Call(page); err != nil {
			slog.Warn("extra headers not applied", "error", err)
		}
	}

	// ── 5. Hijack router (resource types + ad domains) ────────────────
	b.router = setupHijack(page, b.captureCfg.BlockedResourceTypes, b.captureCfg.BlockAds)

	b.page = page
	b.health = pageHealth{}
	return nil
}

func (b *Browser) closePage() error {
	if b.router != nil {
		_ = b.router.Stop()
		b.router = nil
	}
	if b.page == nil {
		return nil
	}
	err := b.page.Close()
	b.page = nil
	return err
}

// recycle replaces a page whose error score crossed the configured threshold.
func (b *Browser) recycle() error {
	slog.Info("recycling capture page", "errScore", b.health.errScore, "useCount", b.health.useCount)
	if err := b.closePage(); err != nil {
		slog.Warn("recycle: failed to close old page", "error", err)
	}
	return b.openPage()
}

// Navigate loads rawURL and waits for Chromium's networkAlmostIdle lifecycle
// event: no more than two open connections for at least 500ms.
func (b *Browser) Navigate(ctx context.Context, rawURL string) error {
	if b.page == nil || b.health.shouldRetire(b.captureCfg.RecycleAfterErrors) {
		if err := b.recycle(); err != nil {
			return err
		}
	}

	if timeout := b.captureCfg.NavigationTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	p := b.page.Context(ctx)

	// The lifecycle listener MUST be registered before Navigate, otherwise
	// a fast page can go idle before we start listening.
	waitIdle := p.WaitNavigation(proto.PageLifecycleEventNameNetworkAlmostIdle)

	if err := p.Navigate(asciiHost(rawURL)); err != nil {
		b.health.recordFailure()
		return categorizeError(err, "navigation to target URL failed")
	}

	waitIdle()
	if err := ctx.Err(); err != nil {
		b.health.recordFailure()
		return categorizeError(err, "page did not reach network idle")
	}
	return nil
}

// ResetScroll scrolls back to the top of the document. Overlay removal runs
// here too, so the layout has the settle delay to reflow before capture.
func (b *Browser) ResetScroll(ctx context.Context) error {
	p := b.page.Context(ctx)
	if b.captureCfg.RemoveOverlays {
		removeOverlays(p)
	}
	if _, err := p.Eval(`() => window.scrollTo(0, 0)`); err != nil {
		b.health.recordFailure()
		return categorizeError(err, "failed to reset scroll position")
	}
	return nil
}

// Wait pauses for d so lazy-loaded content can render.
func (b *Browser) Wait(ctx context.Context, d time.Duration) error {
	return engine.Sleep(ctx, d)
}

// CaptureFullPage screenshots the whole scrollable document as PNG.
func (b *Browser) CaptureFullPage(ctx context.Context) ([]byte, error) {
	img, err := b.page.Context(ctx).Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		b.health.recordFailure()
		return nil, models.NewCaptureError(models.ErrCodeCapture, "full-page screenshot failed", err)
	}
	b.health.recordSuccess()
	return img, nil
}

// asciiHost converts an internationalized host name to its punycode form.
// The URL is returned unchanged when it has no host or conversion fails.
func asciiHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	host := u.Hostname()
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil || ascii == host {
		return rawURL
	}
	if port := u.Port(); port != "" {
		u.Host = ascii + ":" + port
	} else {
		u.Host = ascii
	}
	return u.String()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// removeOverlays injects JS to remove fixed/sticky positioned elements with
// high z-index, which are typically cookie consent banners and popup overlays.
func removeOverlays(p *rod.Page) {
	const js = `() => {
		for (const el of document.querySelectorAll('*')) {
			const style = window.getComputedStyle(el);
			if (style.position === 'fixed' || style.position === 'sticky') {
				const z = parseInt(style.zIndex, 10);
				if (z >= 900) {
					el.remove();
				}
			}
		}
		const selectors = [
			'[class*="cookie"]', '[class*="consent"]', '[id*="cookie"]', '[id*="consent"]',
			'[class*="gdpr"]', '[id*="gdpr"]', '[class*="popup"]', '[id*="popup"]',
		];
		for (const sel of selectors) {
			document.querySelectorAll(sel).forEach(el => {
				const pos = window.getComputedStyle(el).position;
				if (pos === 'fixed' || pos === 'sticky') {
					el.remove();
				}
			});
		}
		document.documentElement.style.overflow = '';
		if (document.body) document.body.style.overflow = '';
	}`
	if _, err := p.Eval(js); err != nil {
		slog.Debug("overlay removal failed", "error", err)
	}
}

// categorizeError wraps raw errors into typed CaptureErrors.
func categorizeError(err error, msg string) *models.CaptureError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewCaptureError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewCaptureError(models.ErrCodeTimeout, "capture canceled", err)
	default:
		return models.NewCaptureError(models.ErrCodeNavigation, msg, err)
	}
}
