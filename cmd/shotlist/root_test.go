package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/shotlist/config"
	"github.com/use-agent/shotlist/engine"
	"github.com/use-agent/shotlist/sheet"
)

type stubEngine struct {
	unreachable map[string]bool
	settle      time.Duration
	closed      bool
}

func (s *stubEngine) Navigate(_ context.Context, url string) error {
	if s.unreachable[url] {
		return errors.New("net::ERR_CONNECTION_REFUSED")
	}
	return nil
}
func (s *stubEngine) ResetScroll(context.Context) error { return nil }
func (s *stubEngine) Wait(_ context.Context, d time.Duration) error {
	s.settle = d
	return nil
}
func (s *stubEngine) CaptureFullPage(context.Context) ([]byte, error) { return []byte("png"), nil }
func (s *stubEngine) Close() error {
	s.closed = true
	return nil
}

func newTestApp(fs afero.Fs, eng *stubEngine) (*app, *bytes.Buffer, *config.CaptureConfig) {
	var out bytes.Buffer
	var captured config.CaptureConfig
	return &app{
		fs:     fs,
		stdout: &out,
		newEngine: func(_ config.BrowserConfig, c config.CaptureConfig) (engine.Engine, error) {
			captured = c
			return eng, nil
		},
	}, &out, &captured
}

func TestRootCmd_URLList(t *testing.T) {
	t.Chdir(t.TempDir())
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "urls.txt",
		[]byte("https://example.com/a?x=1\nhttps://example.com/b#frag\n"), 0o644))

	eng := &stubEngine{}
	a, out, capCfg := newTestApp(fs, eng)
	cmd := newRootCmd(a)
	cmd.SetArgs([]string{"out", "urls.txt", "--settle", "5ms", "--log-format", "json"})

	require.NoError(t, cmd.Execute())

	for _, name := range []string{"out/example.com_a.png", "out/example.com_b.png"} {
		ok, err := afero.Exists(fs, name)
		require.NoError(t, err)
		assert.True(t, ok, name)
	}
	assert.Contains(t, out.String(), "Using input: urls.txt")
	assert.Contains(t, out.String(), "Saving to:   out")
	assert.Contains(t, out.String(), "Success: 2, Failed: 0")
	assert.Equal(t, 5*time.Millisecond, capCfg.SettleDelay)
	assert.Equal(t, 5*time.Millisecond, eng.settle)
	assert.True(t, eng.closed)
}

func TestRootCmd_AutoDetectAndDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "sites.tsv",
		[]byte("Contract\tCompany Name\tLink\nK 9\tDelta Co\thttps://delta.test\n"), 0o644))

	a, out, _ := newTestApp(fs, &stubEngine{})
	cmd := newRootCmd(a)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())

	ok, err := afero.Exists(fs, DefaultOutDir+"/K9-Delta Co.png")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, out.String(), "Using input: sites.tsv")
}

func TestRootCmd_PerTaskFailuresAreNotFatal(t *testing.T) {
	t.Chdir(t.TempDir())
	fs := afero.NewMemMapFs()
	csv := "Company,URL\nA,https://a.test\nB,https://b.test\nC,https://c.test\n"
	require.NoError(t, afero.WriteFile(fs, "sites.csv", []byte(csv), 0o644))

	a, out, _ := newTestApp(fs, &stubEngine{unreachable: map[string]bool{"https://b.test": true}})
	cmd := newRootCmd(a)
	cmd.SetArgs([]string{"shots", "sites.csv"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Success: 2, Failed: 1")
}

func TestRun_FatalErrors(t *testing.T) {
	cfg := &config.Config{}

	t.Run("Should fail without an input file", func(t *testing.T) {
		eng := &stubEngine{}
		a, _, _ := newTestApp(afero.NewMemMapFs(), eng)
		err := a.run(t.Context(), cfg, "out", "")
		assert.ErrorIs(t, err, sheet.ErrNoInput)
		assert.False(t, eng.closed, "engine must not be started")
	})

	t.Run("Should fail on an unsupported extension", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "sites.xlsx", []byte("x"), 0o644))
		a, _, _ := newTestApp(fs, &stubEngine{})
		assert.ErrorIs(t, a.run(t.Context(), cfg, "out", "sites.xlsx"), sheet.ErrUnsupportedFormat)
	})

	t.Run("Should fail when the input has no usable rows", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "urls.txt", []byte("\n  \n"), 0o644))
		a, _, _ := newTestApp(fs, &stubEngine{})
		assert.ErrorIs(t, a.run(t.Context(), cfg, "out", "urls.txt"), sheet.ErrNoTasks)
	})

	t.Run("Should fail when the browser cannot start", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "urls.txt", []byte("https://a.test\n"), 0o644))
		a, _, _ := newTestApp(fs, &stubEngine{})
		boom := errors.New("no chromium")
		a.newEngine = func(config.BrowserConfig, config.CaptureConfig) (engine.Engine, error) {
			return nil, boom
		}
		assert.ErrorIs(t, a.run(t.Context(), cfg, "out", "urls.txt"), boom)
	})
}

func TestRun_Webhook(t *testing.T) {
	newServer := func(t *testing.T) (*httptest.Server, *atomic.Int32) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusOK)
		}))
		t.Cleanup(srv.Close)
		return srv, &hits
	}

	t.Run("Should notify after a completed run", func(t *testing.T) {
		srv, hits := newServer(t)
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "urls.txt", []byte("https://a.test\n"), 0o644))
		cfg := &config.Config{Webhook: config.WebhookConfig{URL: srv.URL}}

		a, _, _ := newTestApp(fs, &stubEngine{})
		require.NoError(t, a.run(t.Context(), cfg, "out", "urls.txt"))
		assert.EqualValues(t, 1, hits.Load())
	})

	t.Run("Should not notify when the output directory cannot be created", func(t *testing.T) {
		srv, hits := newServer(t)
		base := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(base, "urls.txt", []byte("https://a.test\n"), 0o644))
		cfg := &config.Config{Webhook: config.WebhookConfig{URL: srv.URL}}

		eng := &stubEngine{}
		a, _, _ := newTestApp(afero.NewReadOnlyFs(base), eng)
		require.Error(t, a.run(t.Context(), cfg, "out", "urls.txt"))
		assert.Zero(t, hits.Load())
		assert.True(t, eng.closed)
	})
}

func TestParseViewport(t *testing.T) {
	w, h, err := parseViewport("1920x1080")
	require.NoError(t, err)
	assert.Equal(t, 1920, w)
	assert.Equal(t, 1080, h)

	w, h, err = parseViewport(" 800X600 ")
	require.NoError(t, err)
	assert.Equal(t, []int{800, 600}, []int{w, h})

	for _, bad := range []string{"", "1920", "x1080", "axb", "0x600", "-1x5"} {
		_, _, err := parseViewport(bad)
		assert.Error(t, err, bad)
	}
}
