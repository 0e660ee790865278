// Package params validates raw job descriptors and derives the typed query
// parameters used by the rest of the pipeline. It has no side effects.
package params

import (
	"fmt"
	"strings"
	"time"

	"github.com/ignite/report-runner/internal/domain"
)

// DateLayout is the only accepted date format in the job file.
const DateLayout = "2006-01-02"

// AddressSeparator separates addresses in the to/cc/bcc columns.
const AddressSeparator = "|"

// ParseEmails splits a pipe-delimited address list, trimming each entry and
// dropping empty ones. Order is preserved; empty input yields an empty list.
func ParseEmails(raw string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, AddressSeparator) {
		if addr := strings.TrimSpace(part); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

// StartOfDay returns midnight of d's calendar day.
func StartOfDay(d time.Time) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, d.Location())
}

// EndOfDay returns the last whole second of d's calendar day, computed as
// the start of the next day minus one second.
func EndOfDay(d time.Time) time.Time {
	return StartOfDay(d).AddDate(0, 0, 1).Add(-time.Second)
}

// Resolve validates job and returns its normalized parameters. Every failure
// wraps domain.ErrInvalidJob.
func Resolve(job domain.JobDescriptor) (domain.JobParams, error) {
	reportType := domain.ReportType(strings.TrimSpace(job.ReportType))
	if !reportType.Valid() {
		return domain.JobParams{}, fmt.Errorf("%w: unknown report_type %q", domain.ErrInvalidJob, job.ReportType)
	}

	partition := strings.TrimSpace(job.Partition)
	if reportType.RequiresPartition() && partition == "" {
		return domain.JobParams{}, fmt.Errorf("%w: partition is required for report_type=%s", domain.ErrInvalidJob, reportType)
	}

	nd := strings.TrimSpace(job.ND)
	if nd == "" {
		return domain.JobParams{}, fmt.Errorf("%w: nd is required", domain.ErrInvalidJob)
	}

	dateStart, err := parseDate("date_debut", job.DateStart)
	if err != nil {
		return domain.JobParams{}, err
	}
	dateEnd, err := parseDate("date_fin", job.DateEnd)
	if err != nil {
		return domain.JobParams{}, err
	}
	if dateEnd.Before(dateStart) {
		return domain.JobParams{}, fmt.Errorf("%w: date_fin %s is before date_debut %s",
			domain.ErrInvalidJob, job.DateEnd, job.DateStart)
	}

	return domain.JobParams{
		Index:        job.Index,
		To:           ParseEmails(job.To),
		CC:           ParseEmails(job.CC),
		BCC:          ParseEmails(job.BCC),
		Subject:      job.Subject,
		TemplateName: strings.TrimSpace(job.TemplateName),
		ReportType:   reportType,
		ND:           nd,
		DateStart:    dateStart,
		DateEnd:      dateEnd,
		Start:        StartOfDay(dateStart),
		End:          EndOfDay(dateEnd),
		Partition:    partition,
	}, nil
}

func parseDate(field, raw string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(raw), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s %q is not a %s date", domain.ErrInvalidJob, field, raw, "YYYY-MM-DD")
	}
	return d, nil
}
