package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/use-agent/shotlist/config"
	"github.com/use-agent/shotlist/engine"
	"github.com/use-agent/shotlist/models"
	"github.com/use-agent/shotlist/pipeline"
	"github.com/use-agent/shotlist/scraper"
	"github.com/use-agent/shotlist/sheet"
	"github.com/use-agent/shotlist/webhook"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// DefaultOutDir is used when no output directory argument is given.
const DefaultOutDir = "screenshots"

// engineFactory opens the capture engine. Swapped out in tests.
type engineFactory func(config.BrowserConfig, config.CaptureConfig) (engine.Engine, error)

func newScraperEngine(b config.BrowserConfig, c config.CaptureConfig) (engine.Engine, error) {
	return scraper.New(b, c)
}

// app bundles what a run needs besides configuration.
type app struct {
	fs        afero.Fs
	stdout    io.Writer
	newEngine engineFactory
}

func newRootCmd(a *app) *cobra.Command {
	var (
		timeout        time.Duration
		settle         time.Duration
		headless       bool
		noSandbox      bool
		stealth        bool
		blockAds       bool
		removeOverlays bool
		rate           float64
		viewport       string
		logLevel       string
		logFormat      string
	)

	cmd := &cobra.Command{
		Use:   "shotlist [OUT_DIR] [INPUT_FILE]",
		Short: "Capture full-page screenshots of every site in a CSV, TSV or URL list",
		Long: `shotlist opens each URL from the input file in headless Chromium and saves a
full-page PNG to OUT_DIR (default "screenshots").

INPUT_FILE may be .csv or .tsv with a header row, or .txt with one URL per
line. Without INPUT_FILE the first of sites.csv, sites.tsv, urls.txt in the
working directory is used.

Files are named "<contract>-<company>.png" from the Contract #/Company
columns when present, otherwise from the URL.`,
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()

			flags := cmd.Flags()
			if flags.Changed("timeout") {
				cfg.Capture.NavigationTimeout = timeout
			}
			if flags.Changed("settle") {
				cfg.Capture.SettleDelay = settle
			}
			if flags.Changed("headless") {
				cfg.Browser.Headless = headless
			}
			if flags.Changed("no-sandbox") {
				cfg.Browser.NoSandbox = noSandbox
			}
			if flags.Changed("stealth") {
				cfg.Capture.Stealth = stealth
			}
			if flags.Changed("block-ads") {
				cfg.Capture.BlockAds = blockAds
			}
			if flags.Changed("remove-overlays") {
				cfg.Capture.RemoveOverlays = removeOverlays
			}
			if flags.Changed("rate") {
				cfg.Capture.CapturesPerSecond = rate
			}
			if flags.Changed("viewport") {
				w, h, err := parseViewport(viewport)
				if err != nil {
					return err
				}
				cfg.Browser.ViewportWidth, cfg.Browser.ViewportHeight = w, h
			}
			if flags.Changed("log-level") {
				cfg.Log.Level = logLevel
			}
			if flags.Changed("log-format") {
				cfg.Log.Format = logFormat
			}

			initLogger(cfg.Log)

			outDir, input := DefaultOutDir, ""
			if len(args) > 0 {
				outDir = args[0]
			}
			if len(args) > 1 {
				input = args[1]
			}
			return a.run(cmd.Context(), cfg, outDir, input)
		},
	}

	f := cmd.Flags()
	f.DurationVar(&timeout, "timeout", 60*time.Second, "Navigation timeout per site")
	f.DurationVar(&settle, "settle", 800*time.Millisecond, "Pause after scrolling to the top, before capture")
	f.BoolVar(&headless, "headless", true, "Run the browser headless")
	f.BoolVar(&noSandbox, "no-sandbox", false, "Disable the Chromium sandbox (containers)")
	f.BoolVar(&stealth, "stealth", false, "Mask common headless-browser fingerprints")
	f.BoolVar(&blockAds, "block-ads", false, "Block well-known ad and tracking domains")
	f.BoolVar(&removeOverlays, "remove-overlays", false, "Remove cookie banners and fixed popups before capture")
	f.Float64Var(&rate, "rate", 0, "Maximum captures per second (0 = unlimited)")
	f.StringVar(&viewport, "viewport", "1366x768", "Viewport size as WIDTHxHEIGHT")
	f.StringVar(&logLevel, "log-level", "info", "Log level (debug|info|warn|error)")
	f.StringVar(&logFormat, "log-format", "auto", "Log format (auto|text|json)")

	cmd.SetVersionTemplate(fmt.Sprintf("%s (%s/%s)\n", version, runtime.GOOS, runtime.GOARCH))
	cmd.Version = version

	return cmd
}

// run loads the tasks, captures them and sends the optional webhook.
//
// Startup failures (no input, unsupported extension, no tasks, browser
// launch) are returned before any capture. Per-task failures only show up
// in the summary.
func (a *app) run(ctx context.Context, cfg *config.Config, outDir, input string) error {
	// ── 1. Resolve and load the input ───────────────────────────────
	if input == "" {
		detected, err := sheet.AutoDetectInput(a.fs)
		if err != nil {
			return err
		}
		input = detected
	}
	tasks, err := sheet.LoadTasks(a.fs, input)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(a.stdout, "Using input: %s\n", input)
	_, _ = fmt.Fprintf(a.stdout, "Saving to:   %s\n", outDir)
	slog.Debug("tasks loaded", "input", input, "tasks", len(tasks))

	// ── 2. Stop between tasks on SIGINT/SIGTERM ─────────────────────
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── 3. Launch the capture engine ────────────────────────────────
	eng, err := a.newEngine(cfg.Browser, cfg.Capture)
	if err != nil {
		return err
	}

	// ── 4. Capture (the pipeline closes the engine) ─────────────────
	p := pipeline.New(eng, a.fs, pipeline.Options{
		SettleDelay:       cfg.Capture.SettleDelay,
		CapturesPerSecond: cfg.Capture.CapturesPerSecond,
		Report:            a.stdout,
	})
	sum, runErr := p.Run(ctx, tasks, outDir)

	// ── 5. Notify ───────────────────────────────────────────────────
	// No RunID means the run never started (output directory failure).
	if cfg.Webhook.URL != "" && sum.RunID != "" {
		notify(cfg.Webhook, sum)
	}
	return runErr
}

// notify delivers the completion webhook. Failures are logged only.
func notify(cfg config.WebhookConfig, sum models.Summary) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := webhook.DeliverWithRetry(ctx, cfg.URL, cfg.Secret, webhook.NewRunCompleted(sum), webhook.DefaultRetryDelays); err != nil {
		slog.Error("webhook delivery exhausted all retries", "url", cfg.URL, "error", err)
	}
}

// parseViewport parses "WIDTHxHEIGHT".
func parseViewport(s string) (int, int, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid viewport %q, want WIDTHxHEIGHT", s)
	}
	w, errW := strconv.Atoi(ws)
	h, errH := strconv.Atoi(hs)
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("invalid viewport %q, want WIDTHxHEIGHT", s)
	}
	return w, h, nil
}
