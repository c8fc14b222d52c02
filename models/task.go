package models

import "time"

// CaptureTask is one website to screenshot, normalized from an input row.
type CaptureTask struct {
	// Company is the free-text company name. May be empty.
	Company string `json:"company"`

	// Contract is the contract number. May be empty.
	Contract string `json:"contract"`

	// URL is the page to capture. Never empty.
	URL string `json:"url"`
}

// CaptureOutcome is the result of processing a single task.
// Exactly one of Filename or Err is set.
type CaptureOutcome struct {
	Task     CaptureTask
	Filename string
	Err      error
}

// OK reports whether the capture was written to disk.
func (o CaptureOutcome) OK() bool {
	return o.Err == nil
}

// Summary aggregates the outcomes of a run.
type Summary struct {
	RunID    string        `json:"run_id"`
	OutDir   string        `json:"out_dir"`
	Total    int           `json:"total"`
	Success  int           `json:"success"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration_ns"`
}

// Record folds one outcome into the counters.
func (s *Summary) Record(o CaptureOutcome) {
	if o.OK() {
		s.Success++
	} else {
		s.Failed++
	}
}
