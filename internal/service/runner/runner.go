package runner

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ignite/report-runner/internal/domain"
	"github.com/ignite/report-runner/internal/pkg/logger"
	"github.com/ignite/report-runner/internal/service/params"
)

// ContextDateLayout formats dates handed to email templates.
const ContextDateLayout = "02/01/2006"

// Runner drives jobs through the pipeline.
type Runner struct {
	fetcher  Fetcher
	csv      Exporter
	pdf      Exporter
	notifier Notifier
	archiver Archiver
	log      *logger.Logger
}

// Option configures optional pipeline steps.
type Option func(*Runner)

// WithPDF adds a PDF artifact next to the CSV one.
func WithPDF(e Exporter) Option { return func(r *Runner) { r.pdf = e } }

// WithArchiver uploads every produced artifact after export.
func WithArchiver(a Archiver) Option { return func(r *Runner) { r.archiver = a } }

// New creates a runner. The CSV exporter is mandatory; PDF export and
// archiving are enabled through options.
func New(fetcher Fetcher, csv Exporter, notifier Notifier, log *logger.Logger, opts ...Option) *Runner {
	if log == nil {
		log = logger.Nop()
	}
	r := &Runner{fetcher: fetcher, csv: csv, notifier: notifier, log: log}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run processes jobs sequentially and returns their outcomes. It never stops
// early on a job failure.
func (r *Runner) Run(ctx context.Context, jobs []domain.JobDescriptor) *Summary {
	runLog := r.log.With("run_id", uuid.NewString())
	runLog.Info("run started", "jobs", len(jobs), "pdf", r.pdf != nil, "archive", r.archiver != nil)

	summary := &Summary{}
	for _, job := range jobs {
		jobLog := runLog.With("job", job.Index)
		jobLog.Info("job started")

		outcome, err := r.runJob(ctx, job, jobLog)
		switch {
		case err != nil:
			jobLog.Error("job failed", "stage", outcome.Stage, "error", err,
				"artifacts", strings.Join(outcome.Artifacts(), ","))
		case outcome.Status == domain.OutcomeEmpty:
			jobLog.Warn("no rows for job", "outcome", outcome.Status, "nd", outcome.ND, "report_type", outcome.ReportType)
		default:
			jobLog.Info("job completed", "outcome", outcome.Status, "rows", outcome.RowCount,
				"artifacts", strings.Join(outcome.Artifacts(), ","))
		}
		summary.add(outcome)
	}

	runLog.Info("run finished",
		"success", summary.Count(domain.OutcomeSuccess),
		"empty", summary.Count(domain.OutcomeEmpty),
		"failure", summary.Count(domain.OutcomeFailure))
	return summary
}

// runJob takes one job from Pending to Done. On failure the returned outcome
// is already a Failure and err is a *domain.JobError.
func (r *Runner) runJob(ctx context.Context, job domain.JobDescriptor, log *logger.Logger) (domain.Outcome, error) {
	outcome := domain.Outcome{JobIndex: job.Index, Stage: domain.StagePending}
	fail := func(stage domain.Stage, err error) (domain.Outcome, error) {
		outcome.Status = domain.OutcomeFailure
		outcome.Stage = stage
		outcome.Err = &domain.JobError{Index: job.Index, Stage: stage, Err: err}
		return outcome, outcome.Err
	}

	outcome.Stage = domain.StageResolving
	p, err := params.Resolve(job)
	if err != nil {
		return fail(domain.StageResolving, err)
	}
	outcome.ReportType = p.ReportType
	outcome.ND = p.ND
	outcome.Recipients = p.To

	outcome.Stage = domain.StageFetching
	rows, err := r.fetcher.Fetch(ctx, p)
	if err != nil {
		return fail(domain.StageFetching, err)
	}
	if len(rows) == 0 {
		outcome.Status = domain.OutcomeEmpty
		outcome.Stage = domain.StageDone
		return outcome, nil
	}
	outcome.RowCount = len(rows)
	log.Info("rows fetched", "rows", len(rows))

	outcome.Stage = domain.StageExporting
	prefix := ArtifactPrefix(p)
	if outcome.CSVPath, err = r.csv.Export(rows, prefix, p.ReportType); err != nil {
		return fail(domain.StageExporting, fmt.Errorf("csv: %w", err))
	}
	if r.pdf != nil {
		if outcome.PDFPath, err = r.pdf.Export(rows, prefix, p.ReportType); err != nil {
			return fail(domain.StageExporting, fmt.Errorf("pdf: %w", err))
		}
	}
	r.archive(ctx, p.ReportType, outcome.Artifacts(), log)

	outcome.Stage = domain.StageNotifying
	err = r.notifier.Notify(ctx, domain.Notification{
		To:           p.To,
		CC:           p.CC,
		BCC:          p.BCC,
		Subject:      p.Subject,
		TemplateName: p.TemplateName,
		Context:      EmailContext(p, len(rows)),
		Attachments:  outcome.Artifacts(),
	})
	if err != nil {
		return fail(domain.StageNotifying, err)
	}

	outcome.Status = domain.OutcomeSuccess
	outcome.Stage = domain.StageDone
	return outcome, nil
}

// archive is best effort: an upload failure never fails the job.
func (r *Runner) archive(ctx context.Context, reportType domain.ReportType, paths []string, log *logger.Logger) {
	if r.archiver == nil {
		return
	}
	for _, path := range paths {
		uri, err := r.archiver.Archive(ctx, reportType, path)
		if err != nil {
			log.Warn("archive failed", "path", path, "error", err)
			continue
		}
		log.Debug("artifact archived", "path", path, "uri", uri)
	}
}

// ArtifactPrefix names the files of one job: <type>_<nd>_job<index>. The job
// index keeps two jobs for the same nd and type apart.
func ArtifactPrefix(p domain.JobParams) string {
	nd := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		}
		return '_'
	}, p.ND)
	return fmt.Sprintf("%s_%s_job%d", p.ReportType, nd, p.Index)
}

// EmailContext is the data handed to the email template.
func EmailContext(p domain.JobParams, count int) map[string]any {
	return map[string]any{
		"nd":          p.ND,
		"report_type": p.ReportType.Label(),
		"date_debut":  p.DateStart.Format(ContextDateLayout),
		"date_fin":    p.DateEnd.Format(ContextDateLayout),
		"count":       count,
	}
}
