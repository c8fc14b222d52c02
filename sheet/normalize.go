package sheet

import "github.com/use-agent/shotlist/models"

// Header aliases per logical field, highest priority first. Matching is
// case-sensitive.
var (
	companyColumns  = []string{"Company", "Company Name", "Name"}
	contractColumns = []string{"Contract #", "Contract", "Contract Number", "Contract No"}
	urlColumns      = []string{"Website Link", "Website", "Link", "URL", "Onsite"}
)

// firstNonEmpty walks columns in order and returns the first non-empty value.
func firstNonEmpty(row Row, columns []string) string {
	for _, c := range columns {
		if v := row[c]; v != "" {
			return v
		}
	}
	return ""
}

// NormalizeRows maps parsed rows to capture tasks, preserving order. Rows
// without a URL in any recognised column are dropped.
func NormalizeRows(rows []Row) []models.CaptureTask {
	tasks := make([]models.CaptureTask, 0, len(rows))
	for _, r := range rows {
		u := firstNonEmpty(r, urlColumns)
		if u == "" {
			continue
		}
		tasks = append(tasks, models.CaptureTask{
			Company:  firstNonEmpty(r, companyColumns),
			Contract: firstNonEmpty(r, contractColumns),
			URL:      u,
		})
	}
	return tasks
}

// NormalizeLines turns each non-empty line into a task with no metadata.
func NormalizeLines(lines []string) []models.CaptureTask {
	tasks := make([]models.CaptureTask, 0, len(lines))
	for _, l := range lines {
		if l == "" {
			continue
		}
		tasks = append(tasks, models.CaptureTask{URL: l})
	}
	return tasks
}
