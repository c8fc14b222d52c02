// Package pipeline runs capture tasks one at a time against a single engine
// and writes each screenshot to the output directory.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/use-agent/shotlist/engine"
	"github.com/use-agent/shotlist/models"
	"github.com/use-agent/shotlist/naming"
	"golang.org/x/time/rate"
)

// Options tune the per-task capture steps.
type Options struct {
	// SettleDelay is the pause between scrolling to the top and capturing.
	SettleDelay time.Duration

	// CapturesPerSecond paces navigations. 0 disables pacing.
	CapturesPerSecond float64

	// Report receives the human-readable progress lines. Defaults to io.Discard.
	Report io.Writer
}

// Pipeline owns the engine and the output directory for one run.
type Pipeline struct {
	eng     engine.Engine
	fs      afero.Fs
	opts    Options
	limiter *rate.Limiter
}

// New creates a Pipeline. The pipeline takes ownership of eng and closes it
// at the end of Run.
func New(eng engine.Engine, fs afero.Fs, opts Options) *Pipeline {
	if opts.Report == nil {
		opts.Report = io.Discard
	}
	var limiter *rate.Limiter
	if opts.CapturesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.CapturesPerSecond), 1)
	}
	return &Pipeline{eng: eng, fs: fs, opts: opts, limiter: limiter}
}

// Run captures every task in order and returns the success/failure counts.
//
// A failing task is logged and counted; it never stops the run. The only
// errors returned are the ones that prevent capturing at all: the output
// directory cannot be created. In that case the summary has no RunID. If ctx
// is canceled at any point, including during the last task, the loop stops
// and the partial summary is returned with ctx's error.
//
// The engine is closed before Run returns, whatever the outcome.
func (p *Pipeline) Run(ctx context.Context, tasks []models.CaptureTask, outDir string) (models.Summary, error) {
	defer func() {
		if err := p.eng.Close(); err != nil {
			slog.Warn("failed to close capture engine", "error", err)
		}
	}()

	start := time.Now()
	sum := models.Summary{
		OutDir: outDir,
		Total:  len(tasks),
	}

	if err := p.fs.MkdirAll(outDir, 0o755); err != nil {
		return sum, fmt.Errorf("create output directory %s: %w", outDir, err)
	}
	sum.RunID = uuid.NewString()
	log := slog.With("run_id", sum.RunID)

	var runErr error
	for i, task := range tasks {
		if err := ctx.Err(); err != nil {
			log.Warn("run interrupted", "remaining", len(tasks)-i, "error", err)
			runErr = err
			break
		}

		p.printf("[%d/%d] capturing: %s\n", i+1, len(tasks), task.URL)
		outcome := p.captureOne(ctx, task, outDir)
		sum.Record(outcome)

		if outcome.OK() {
			p.printf("   ok saved: %s\n", outcome.Filename)
			log.Debug("capture saved", "url", task.URL, "file", outcome.Filename)
		} else {
			p.printf("   FAILED %s: %v\n", task.URL, outcome.Err)
			log.Warn("capture failed", "url", task.URL, "error", outcome.Err)
		}
	}
	if runErr == nil {
		runErr = ctx.Err()
	}

	sum.Duration = time.Since(start)
	p.printf("\nDone. Screenshots in '%s'. Success: %d, Failed: %d\n", outDir, sum.Success, sum.Failed)
	log.Info("run finished",
		"total", sum.Total,
		"success", sum.Success,
		"failed", sum.Failed,
		"duration", sum.Duration,
	)
	return sum, runErr
}

// captureOne runs the steps for a single task. The file is written last, so
// a failure in any earlier step leaves nothing on disk.
//
//  1. Pace             – wait for the rate limiter, if configured
//  2. Navigate         – load the URL and wait for network idle
//  3. Reset scroll     – back to the top of the document
//  4. Settle           – give lazy content above the fold time to render
//  5. Capture          – full-page PNG
//  6. Name + write     – <outDir>/<naming.ForTask(task)>
func (p *Pipeline) captureOne(ctx context.Context, task models.CaptureTask, outDir string) models.CaptureOutcome {
	fail := func(err error) models.CaptureOutcome {
		return models.CaptureOutcome{Task: task, Err: err}
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return fail(err)
		}
	}

	if err := p.eng.Navigate(ctx, task.URL); err != nil {
		return fail(err)
	}
	if err := p.eng.ResetScroll(ctx); err != nil {
		return fail(err)
	}
	if err := p.eng.Wait(ctx, p.opts.SettleDelay); err != nil {
		return fail(err)
	}

	img, err := p.eng.CaptureFullPage(ctx)
	if err != nil {
		return fail(err)
	}

	name := naming.ForTask(task)
	if err := afero.WriteFile(p.fs, filepath.Join(outDir, name), img, 0o644); err != nil {
		return fail(models.NewCaptureError(models.ErrCodeWrite, "failed to write screenshot", err))
	}
	return models.CaptureOutcome{Task: task, Filename: name}
}

func (p *Pipeline) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.opts.Report, format, args...)
}
