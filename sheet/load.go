package sheet

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/use-agent/shotlist/models"
)

var (
	// ErrNoInput is returned when no input file was given and none of the
	// default file names exist.
	ErrNoInput = errors.New("no input file found (sites.csv / sites.tsv / urls.txt)")

	// ErrUnsupportedFormat is returned for input files with an unknown extension.
	ErrUnsupportedFormat = errors.New("unsupported input file type, use .csv, .tsv, or .txt")

	// ErrNoTasks is returned when the input yields no rows with a URL.
	ErrNoTasks = errors.New("no rows/URLs found in input")
)

// Format identifies how an input file is parsed.
type Format int

const (
	FormatUnknown Format = iota
	FormatCSV
	FormatTSV
	FormatLines
)

func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatTSV:
		return "tsv"
	case FormatLines:
		return "line-list"
	default:
		return "unknown"
	}
}

// DefaultInputs are probed in order when no input path is supplied.
var DefaultInputs = []string{"sites.csv", "sites.tsv", "urls.txt"}

// DetectFormat picks the format from the file extension, ignoring case.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".tsv":
		return FormatTSV, nil
	case ".txt":
		return FormatLines, nil
	default:
		return FormatUnknown, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// AutoDetectInput returns the first of DefaultInputs present in fs.
func AutoDetectInput(fs afero.Fs) (string, error) {
	for _, name := range DefaultInputs {
		ok, err := afero.Exists(fs, name)
		if err != nil {
			return "", fmt.Errorf("probe %s: %w", name, err)
		}
		if ok {
			return name, nil
		}
	}
	return "", invalidInput("no input file given", ErrNoInput)
}

// Tasks parses text in the given format and normalizes it to capture tasks.
func Tasks(text string, format Format) ([]models.CaptureTask, error) {
	switch format {
	case FormatCSV:
		return NormalizeRows(ParseCSV(text)), nil
	case FormatTSV:
		return NormalizeRows(ParseTSV(text)), nil
	case FormatLines:
		return NormalizeLines(ParseLines(text)), nil
	default:
		return nil, ErrUnsupportedFormat
	}
}

// LoadTasks reads the input file at path and returns its capture tasks.
// It fails with ErrNoTasks when the file holds no usable rows.
func LoadTasks(fs afero.Fs, path string) ([]models.CaptureTask, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, invalidInput("cannot load "+path, err)
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read input %s: %w", path, err)
	}

	tasks, err := Tasks(string(data), format)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, invalidInput("cannot load "+path, ErrNoTasks)
	}
	return tasks, nil
}

// invalidInput tags a fatal input problem with ErrCodeInvalidInput. The
// sentinel stays reachable through errors.Is.
func invalidInput(msg string, err error) error {
	return models.NewCaptureError(models.ErrCodeInvalidInput, msg, err)
}
