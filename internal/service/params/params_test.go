package params_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/report-runner/internal/domain"
	"github.com/ignite/report-runner/internal/service/params"
)

func validJob() domain.JobDescriptor {
	return domain.JobDescriptor{
		Index:        1,
		To:           "a@x.com",
		Subject:      "Rapport",
		TemplateName: "remittance.html",
		ReportType:   "remit",
		ND:           "ND1",
		DateStart:    "2026-01-01",
		DateEnd:      "2026-01-01",
		Partition:    "P202601",
	}
}

func TestParseEmails(t *testing.T) {
	assert.Equal(t, []string{}, params.ParseEmails(""))
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, params.ParseEmails("a@x.com|  |b@x.com"))
	assert.Equal(t, []string{"a@x.com"}, params.ParseEmails("  a@x.com  "))
	assert.Equal(t, []string{}, params.ParseEmails(" | | "))
	assert.Equal(t, []string{"c@x.com", "a@x.com", "b@x.com"}, params.ParseEmails("c@x.com|a@x.com|b@x.com"))
}

func TestResolve_SingleDayCoversWholeDay(t *testing.T) {
	p, err := params.Resolve(validJob())
	require.NoError(t, err)

	day := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, day, p.Start)
	assert.Equal(t, day.AddDate(0, 0, 1).Add(-time.Second), p.End)
	assert.Equal(t, time.Date(2026, 1, 1, 23, 59, 59, 0, time.UTC), p.End)
	assert.Equal(t, day, p.DateStart)
	assert.Equal(t, day, p.DateEnd)
}

func TestResolve_MultiDayRange(t *testing.T) {
	job := validJob()
	job.DateStart = "2026-02-27"
	job.DateEnd = "2026-03-01"

	p, err := params.Resolve(job)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 27, 0, 0, 0, 0, time.UTC), p.Start)
	assert.Equal(t, time.Date(2026, 3, 1, 23, 59, 59, 0, time.UTC), p.End)
}

func TestResolve_NormalizesFields(t *testing.T) {
	job := validJob()
	job.To = "a@x.com| b@x.com "
	job.CC = ""
	job.BCC = "audit@x.com"
	job.ReportType = " up "
	job.ND = " ND9 "
	job.Partition = " P1 "

	p, err := params.Resolve(job)
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, p.To)
	assert.Equal(t, []string{}, p.CC)
	assert.Equal(t, []string{"audit@x.com"}, p.BCC)
	assert.Equal(t, domain.ReportUp, p.ReportType)
	assert.Equal(t, "ND9", p.ND)
	assert.Equal(t, "P1", p.Partition)
	assert.Equal(t, "Rapport", p.Subject)
	assert.Equal(t, 1, p.Index)
}

func TestResolve_UnknownReportType(t *testing.T) {
	for _, rt := range []string{"", "REMIT", "ledger", "remit2"} {
		job := validJob()
		job.ReportType = rt
		_, err := params.Resolve(job)
		assert.ErrorIs(t, err, domain.ErrInvalidJob, rt)
	}

	// Other fields being broken too must not change the classification.
	job := domain.JobDescriptor{ReportType: "other"}
	_, err := params.Resolve(job)
	assert.ErrorIs(t, err, domain.ErrInvalidJob)
}

func TestResolve_PartitionRequired(t *testing.T) {
	for _, rt := range domain.ReportTypes {
		for _, part := range []string{"", "   ", "\t"} {
			job := validJob()
			job.ReportType = string(rt)
			job.Partition = part
			_, err := params.Resolve(job)
			require.ErrorIs(t, err, domain.ErrInvalidJob)
			assert.Contains(t, err.Error(), "partition")
		}
	}
}

func TestResolve_BadDates(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
	}{
		{"slash format", "01/01/2026", "2026-01-01"},
		{"with time", "2026-01-01", "2026-01-01 10:00:00"},
		{"empty end", "2026-01-01", ""},
		{"impossible date", "2026-02-30", "2026-03-01"},
		{"end before start", "2026-01-02", "2026-01-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := validJob()
			job.DateStart = tt.start
			job.DateEnd = tt.end
			_, err := params.Resolve(job)
			assert.ErrorIs(t, err, domain.ErrInvalidJob)
		})
	}
}

func TestResolve_MissingND(t *testing.T) {
	job := validJob()
	job.ND = "  "
	_, err := params.Resolve(job)
	assert.ErrorIs(t, err, domain.ErrInvalidJob)
}

func TestEndOfDay_IgnoresTimeOfDay(t *testing.T) {
	noisy := time.Date(2026, 5, 10, 13, 45, 12, 999_999_999, time.UTC)
	assert.Equal(t, time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC), params.StartOfDay(noisy))
	assert.Equal(t, time.Date(2026, 5, 10, 23, 59, 59, 0, time.UTC), params.EndOfDay(noisy))
}
