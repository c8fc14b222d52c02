package sheet

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/shotlist/models"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"sites.csv", FormatCSV},
		{"dir/SITES.CSV", FormatCSV},
		{"sites.tsv", FormatTSV},
		{"urls.TXT", FormatLines},
	}
	for _, tt := range tests {
		got, err := DetectFormat(tt.path)
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}

	for _, path := range []string{"sites.xlsx", "sites", "sites.csv.bak"} {
		_, err := DetectFormat(path)
		assert.ErrorIs(t, err, ErrUnsupportedFormat, path)
	}
}

func TestAutoDetectInput(t *testing.T) {
	t.Run("Should prefer csv over tsv over txt", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "urls.txt", []byte("x"), 0o644))
		require.NoError(t, afero.WriteFile(fs, "sites.tsv", []byte("x"), 0o644))

		got, err := AutoDetectInput(fs)
		require.NoError(t, err)
		assert.Equal(t, "sites.tsv", got)

		require.NoError(t, afero.WriteFile(fs, "sites.csv", []byte("x"), 0o644))
		got, err = AutoDetectInput(fs)
		require.NoError(t, err)
		assert.Equal(t, "sites.csv", got)
	})

	t.Run("Should fail when nothing is present", func(t *testing.T) {
		_, err := AutoDetectInput(afero.NewMemMapFs())
		assert.ErrorIs(t, err, ErrNoInput)
		assertInvalidInput(t, err)
	})
}

func TestLoadTasks(t *testing.T) {
	t.Run("Should load a csv file", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		csv := "Contract #,Company,Website\n" +
			"C 100,Acme,https://acme.test\n" +
			"C 101,NoSite,\n" +
			"C 102,\"Beta, Inc.\",https://beta.test\n"
		require.NoError(t, afero.WriteFile(fs, "in/sites.csv", []byte(csv), 0o644))

		tasks, err := LoadTasks(fs, "in/sites.csv")
		require.NoError(t, err)
		assert.Equal(t, []models.CaptureTask{
			{Company: "Acme", Contract: "C 100", URL: "https://acme.test"},
			{Company: "Beta, Inc.", Contract: "C 102", URL: "https://beta.test"},
		}, tasks)
	})

	t.Run("Should load a url list", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "urls.txt", []byte("https://a.test\n\nhttps://b.test\n"), 0o644))

		tasks, err := LoadTasks(fs, "urls.txt")
		require.NoError(t, err)
		require.Len(t, tasks, 2)
		assert.Equal(t, "https://b.test", tasks[1].URL)
	})

	t.Run("Should reject unknown extensions before reading", func(t *testing.T) {
		_, err := LoadTasks(afero.NewMemMapFs(), "sites.json")
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
		assertInvalidInput(t, err)
	})

	t.Run("Should fail when no task survives normalization", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "sites.tsv", []byte("Company\tNotes\nAcme\tnone\n"), 0o644))

		_, err := LoadTasks(fs, "sites.tsv")
		assert.ErrorIs(t, err, ErrNoTasks)
		assertInvalidInput(t, err)
	})

	t.Run("Should surface read errors", func(t *testing.T) {
		_, err := LoadTasks(afero.NewMemMapFs(), "missing.csv")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNoTasks)
		var ce *models.CaptureError
		assert.False(t, errors.As(err, &ce))
	})
}

func assertInvalidInput(t *testing.T, err error) {
	t.Helper()
	var ce *models.CaptureError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, models.ErrCodeInvalidInput, ce.Code)
}
