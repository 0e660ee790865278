package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ignite/report-runner/internal/config"
	"github.com/ignite/report-runner/internal/export"
	"github.com/ignite/report-runner/internal/jobsource"
	"github.com/ignite/report-runner/internal/mailing"
	"github.com/ignite/report-runner/internal/pkg/logger"
	"github.com/ignite/report-runner/internal/repository/reports"
	"github.com/ignite/report-runner/internal/service/runner"
	"github.com/ignite/report-runner/internal/storage"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	jobsPath := flag.String("jobs", "", "job file, overrides jobs_file from the config")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	if *jobsPath != "" {
		cfg.JobsFile = *jobsPath
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		return 1
	}

	log, closeLog, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		return 1
	}
	defer closeLog()

	log.Info("report runner starting", "jobs_file", cfg.JobsFile, "driver", cfg.Database.Driver)

	jobs, err := jobsource.ReadFile(cfg.JobsFile)
	if err != nil {
		log.Error("cannot read job file", "path", cfg.JobsFile, "error", err)
		return 1
	}
	log.Info("jobs loaded", "count", len(jobs))

	db, dialect, err := reports.Open(cfg.Database)
	if err != nil {
		log.Error("cannot open database", "error", err)
		return 1
	}
	defer db.Close()

	ctx := context.Background()
	fetcher := reports.NewRepo(db, dialect, cfg.Database.Schema, cfg.Database.QueryTimeout())

	// An unusable transport fails each job at the notify stage, not the run.
	transport, err := mailing.NewTransport(ctx, cfg.Mail)
	if err != nil {
		log.Error("mail transport unavailable", "transport", cfg.Mail.Transport, "error", err)
	}
	if missing := cfg.Mail.Incomplete(); len(missing) > 0 {
		log.Warn("mail configuration incomplete", "missing", fmt.Sprint(missing))
	}
	notifier := mailing.NewNotifier(cfg.Mail, mailing.NewTemplateStore(cfg.Mail.TemplateDir), transport, log)

	var opts []runner.Option
	if cfg.Export.PDF() {
		if cfg.Export.RowsPerPage > export.MaxRowsPerPage() {
			log.Warn("export.rows_per_page too large for a readable page, clamped",
				"requested", cfg.Export.RowsPerPage, "used", export.MaxRowsPerPage())
		}
		opts = append(opts, runner.WithPDF(export.NewPDFExporter(cfg.Export.OutputDir, cfg.Export.RowsPerPage, cfg.Export.PDFTitle)))
	}
	if cfg.Archive.Enabled {
		archiver, err := storage.NewArchiver(ctx, cfg.Archive)
		if err != nil {
			log.Warn("archive disabled", "error", err)
		} else {
			opts = append(opts, runner.WithArchiver(archiver))
		}
	}

	csvExporter := export.NewCSVExporter(cfg.Export.OutputDir, cfg.Export.Delimiter())
	summary := runner.New(fetcher, csvExporter, notifier, log, opts...).Run(ctx, jobs)

	written, err := summary.WriteFile(cfg.SummaryFile)
	switch {
	case err != nil:
		log.Error("cannot write run summary", "path", cfg.SummaryFile, "error", err)
	case written:
		log.Info("run summary written", "path", cfg.SummaryFile, "rows", len(summary.Delivered()))
	default:
		log.Info("no report delivered, run summary not written")
	}
	return 0
}

// newLogger logs to stderr and to a rotating file under cfg.Dir.
func newLogger(cfg config.LogConfig) (*logger.Logger, func(), error) {
	level, err := logger.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	file, err := logger.NewFile(logger.FileOptions{
		Dir:        cfg.Dir,
		Prefix:     "report_runner",
		MaxSizeMB:  cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	}, time.Now())
	if err != nil {
		return nil, nil, err
	}
	out := io.MultiWriter(os.Stderr, file)
	return logger.New(out, logger.Options{Level: level, RedactPII: cfg.Redact()}), func() { file.Close() }, nil
}
