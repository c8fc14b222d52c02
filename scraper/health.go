package scraper

import "math"

// pageHealth scores the capture page across tasks.
//
// Scoring rules:
//   - Success: errScore -= 0.5 (min 0)
//   - Failure: errScore += 1.0
//
// A page whose score reaches the configured threshold is closed and replaced
// before the next navigation. The browser process itself is kept.
type pageHealth struct {
	errScore float64
	useCount int
}

func (h *pageHealth) recordSuccess() {
	h.useCount++
	h.errScore = math.Max(0, h.errScore-0.5)
}

func (h *pageHealth) recordFailure() {
	h.useCount++
	h.errScore += 1.0
}

// shouldRetire reports whether the score reached threshold. A threshold of 0
// or below disables retirement.
func (h *pageHealth) shouldRetire(threshold float64) bool {
	return threshold > 0 && h.errScore >= threshold
}
