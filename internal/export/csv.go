package export

import (
	"encoding/csv"
	"fmt"
	"time"

	"github.com/ignite/report-runner/internal/domain"
)

// CSVExporter writes one CSV file per call.
type CSVExporter struct {
	OutputDir string
	Delimiter rune
	now       func() time.Time
}

// NewCSVExporter creates an exporter writing below outputDir.
func NewCSVExporter(outputDir string, delimiter rune) *CSVExporter {
	if delimiter == 0 {
		delimiter = ','
	}
	return &CSVExporter{OutputDir: outputDir, Delimiter: delimiter, now: time.Now}
}

// Export writes rows with a header line and returns the file path.
func (e *CSVExporter) Export(rows []domain.ReportRow, prefix string, reportType domain.ReportType) (string, error) {
	if len(rows) == 0 {
		return "", domain.ErrEmptyData
	}
	t := newTable(rows)

	f, err := createArtifact(e.OutputDir, string(reportType), prefix, ".csv", e.now())
	if err != nil {
		return "", err
	}

	w := csv.NewWriter(f)
	w.Comma = e.Delimiter
	if err := w.Write(t.Header); err != nil {
		discard(f)
		return "", fmt.Errorf("write csv header: %w", err)
	}
	if err := w.WriteAll(t.Cells); err != nil {
		discard(f)
		return "", fmt.Errorf("write csv rows: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close csv: %w", err)
	}
	return f.Name(), nil
}
