package jobsource

import (
	"encoding/csv"
	"fmt"
	"os"
)

// sampleJob is the example row written below the header.
var sampleJob = []string{
	"client@entreprise.com",
	"manager@entreprise.com|finance@entreprise.com",
	"audit@entreprise.com",
	"Rapport Remittance",
	"remittance.html",
	"remit",
	"ND001",
	"2026-01-01",
	"2026-01-01",
	"P202601",
}

// WriteTemplate writes a job file containing the header and one sample job.
// An existing file is overwritten.
func WriteTemplate(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	w.Comma = Delimiter
	if err := w.Write(Header); err != nil {
		f.Close()
		return fmt.Errorf("write header: %w", err)
	}
	if err := w.Write(sampleJob); err != nil {
		f.Close()
		return fmt.Errorf("write sample: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
