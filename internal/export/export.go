// Package export renders report rows into CSV and PDF artifacts.
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ignite/report-runner/internal/domain"
)

// FileTimeLayout is embedded in every artifact file name.
const FileTimeLayout = "20060102_150405"

// maxNameAttempts bounds the numeric suffixes tried when a name is taken.
const maxNameAttempts = 100

// table is the rectangular view of a row set that both exporters render.
type table struct {
	Header []string
	Cells  [][]string
}

// newTable aligns rows on the union of their columns. A column absent from a
// row renders as an empty cell.
func newTable(rows []domain.ReportRow) table {
	header := domain.Columns(rows)
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[h] = i
	}
	cells := make([][]string, len(rows))
	for r, row := range rows {
		line := make([]string, len(header))
		for _, f := range row {
			line[index[f.Name]] = domain.FormatValue(f.Value)
		}
		cells[r] = line
	}
	return table{Header: header, Cells: cells}
}

// createArtifact opens a new file for prefix under dir/reportType. Existing
// files are never overwritten; a numeric suffix is added on collision.
func createArtifact(dir, reportType, prefix, ext string, now time.Time) (*os.File, error) {
	target := filepath.Join(dir, sanitize(reportType))
	if err := os.MkdirAll(target, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	base := fmt.Sprintf("%s_%s", sanitize(prefix), now.Format(FileTimeLayout))
	for i := 1; i <= maxNameAttempts; i++ {
		name := base + ext
		if i > 1 {
			name = fmt.Sprintf("%s_%d%s", base, i, ext)
		}
		f, err := os.OpenFile(filepath.Join(target, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create artifact: %w", err)
		}
		return f, nil
	}
	return nil, fmt.Errorf("create artifact: no free name for %s%s", base, ext)
}

// sanitize keeps a name usable as a single path element.
func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, name)
}

// discard removes a partially written artifact.
func discard(f *os.File) {
	f.Close()
	os.Remove(f.Name())
}
