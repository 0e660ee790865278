// Package jobsource reads the delimited job file that drives a run.
package jobsource

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ignite/report-runner/internal/domain"
)

// Delimiter separates columns in the job file.
const Delimiter = ';'

// Column names of the job file header.
const (
	ColTo           = "to_email"
	ColCC           = "cc"
	ColBCC          = "bcc"
	ColSubject      = "subject"
	ColTemplateName = "template_name"
	ColReportType   = "report_type"
	ColND           = "nd"
	ColDateStart    = "date_debut"
	ColDateEnd      = "date_fin"
	ColPartition    = "partition"
)

// Header is the canonical column order.
var Header = []string{
	ColTo, ColCC, ColBCC, ColSubject, ColTemplateName,
	ColReportType, ColND, ColDateStart, ColDateEnd, ColPartition,
}

var requiredColumns = []string{
	ColTo, ColSubject, ColTemplateName, ColReportType, ColND, ColDateStart, ColDateEnd,
}

// ErrMissingColumn is returned when the header lacks a required column.
var ErrMissingColumn = errors.New("job file header is missing a required column")

// ReadFile reads every job in the file at path, in file order.
func ReadFile(path string) ([]domain.JobDescriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	jobs, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return jobs, nil
}

// Read parses a job file. Rows may be shorter than the header; missing cells
// read as empty and are left to per-job validation. Quotes inside unquoted
// fields are kept literally, so free-text columns such as the subject never
// make the whole file unreadable.
func Read(r io.Reader) ([]domain.JobDescriptor, error) {
	cr := csv.NewReader(r)
	cr.Comma = Delimiter
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty file", ErrMissingColumn)
	}
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimPrefix(name, "\ufeff")
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}

	var jobs []domain.JobDescriptor
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if blank(record) {
			continue
		}

		cell := func(col string) string {
			i, ok := index[col]
			if !ok || i >= len(record) {
				return ""
			}
			return record[i]
		}

		jobs = append(jobs, domain.JobDescriptor{
			Index:        len(jobs) + 1,
			To:           cell(ColTo),
			CC:           cell(ColCC),
			BCC:          cell(ColBCC),
			Subject:      cell(ColSubject),
			TemplateName: cell(ColTemplateName),
			ReportType:   cell(ColReportType),
			ND:           cell(ColND),
			DateStart:    cell(ColDateStart),
			DateEnd:      cell(ColDateEnd),
			Partition:    cell(ColPartition),
		})
	}
	return jobs, nil
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
