package engine

import (
	"context"
	"time"
)

// Engine is the interface a capture backend must implement. An Engine drives
// a single page: callers must not use it from more than one goroutine.
type Engine interface {
	// Navigate loads url and returns once the network is idle. It fails if
	// the page has not settled within the engine's navigation timeout.
	Navigate(ctx context.Context, url string) error

	// ResetScroll scrolls the document back to the top.
	ResetScroll(ctx context.Context) error

	// Wait pauses for d or until ctx is done.
	Wait(ctx context.Context, d time.Duration) error

	// CaptureFullPage renders the full scrollable page as PNG bytes.
	CaptureFullPage(ctx context.Context) ([]byte, error)

	// Close releases the page and the browser behind it.
	Close() error
}

// Sleep blocks for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
