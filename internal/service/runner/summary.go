package runner

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/ignite/report-runner/internal/domain"
)

// SummaryHeader is the first line of the summary file.
var SummaryHeader = []string{"to_email", "csv_files"}

// Summary is the ordered record of one run. Only the runner appends to it.
type Summary struct {
	outcomes []domain.Outcome
}

func (s *Summary) add(o domain.Outcome) { s.outcomes = append(s.outcomes, o) }

// Outcomes returns the outcomes in job order.
func (s *Summary) Outcomes() []domain.Outcome {
	return append([]domain.Outcome(nil), s.outcomes...)
}

// Count returns the number of outcomes with the given status.
func (s *Summary) Count(status domain.OutcomeStatus) int {
	n := 0
	for _, o := range s.outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// Delivered returns the successful outcomes, which all carry a CSV artifact.
// A job that failed after export, for example at notification, is not
// delivered even though its files stay on disk.
func (s *Summary) Delivered() []domain.Outcome {
	var out []domain.Outcome
	for _, o := range s.outcomes {
		if o.Status == domain.OutcomeSuccess && o.CSVPath != "" {
			out = append(out, o)
		}
	}
	return out
}

// WriteFile writes one ;-delimited line per delivered report, replacing any
// previous file. Nothing is written when no report was delivered; the
// returned bool tells whether the file was written. Artifacts of jobs that
// failed after export are not listed; their paths are logged with the job failure.
func (s *Summary) WriteFile(path string) (bool, error) {
	delivered := s.Delivered()
	if len(delivered) == 0 {
		return false, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return false, fmt.Errorf("create summary: %w", err)
	}
	w := csv.NewWriter(f)
	w.Comma = ';'
	records := [][]string{SummaryHeader}
	for _, o := range delivered {
		records = append(records, []string{strings.Join(o.Recipients, ","), o.CSVPath})
	}
	if err := w.WriteAll(records); err != nil {
		f.Close()
		return false, fmt.Errorf("write summary: %w", err)
	}
	if err := f.Close(); err != nil {
		return false, fmt.Errorf("close summary: %w", err)
	}
	return true, nil
}
