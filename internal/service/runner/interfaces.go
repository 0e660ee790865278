package runner

import (
	"context"

	"github.com/ignite/report-runner/internal/domain"
)

// Fetcher returns the rows of one report. An empty result is not an error.
// Implementations hold database resources only for the duration of the call.
type Fetcher interface {
	Fetch(ctx context.Context, p domain.JobParams) ([]domain.ReportRow, error)
}

// Exporter writes rows to a new file and returns its path. It fails with
// domain.ErrEmptyData when rows is empty.
type Exporter interface {
	Export(rows []domain.ReportRow, prefix string, reportType domain.ReportType) (string, error)
}

// Notifier sends one email per call.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// Archiver copies a produced artifact to long-term storage and returns its
// location.
type Archiver interface {
	Archive(ctx context.Context, reportType domain.ReportType, path string) (string, error)
}
