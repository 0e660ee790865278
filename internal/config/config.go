package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the report runner
type Config struct {
	JobsFile    string         `yaml:"jobs_file"`
	SummaryFile string         `yaml:"summary_file"`
	Database    DatabaseConfig `yaml:"database"`
	Mail        MailConfig     `yaml:"mail"`
	Export      ExportConfig   `yaml:"export"`
	Archive     ArchiveConfig  `yaml:"archive"`
	Log         LogConfig      `yaml:"log"`
}

// DatabaseConfig holds the reporting database connection settings
type DatabaseConfig struct {
	Driver              string `yaml:"driver"` // "oracle" or "postgres"
	URL                 string `yaml:"url"`    // full DSN, overrides the discrete fields
	Host                string `yaml:"host"`
	Port                int    `yaml:"port"`
	Service             string `yaml:"service"` // Oracle service name / Postgres database
	User                string `yaml:"user"`
	Password            string `yaml:"password"`
	Schema              string `yaml:"schema"`
	SSLMode             string `yaml:"ssl_mode"` // postgres only
	QueryTimeoutSeconds int    `yaml:"query_timeout_seconds"`
}

// QueryTimeout returns the per-fetch timeout as a duration
func (c DatabaseConfig) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutSeconds) * time.Second
}

// MailConfig holds the notifier transport settings
type MailConfig struct {
	Transport      string `yaml:"transport"` // "smtp" or "ses"
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	User           string `yaml:"user"`
	Password       string `yaml:"password"`
	From           string `yaml:"from"`
	TLSSkipVerify  bool   `yaml:"tls_skip_verify"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	TemplateDir    string `yaml:"template_dir"`
	SESRegion      string `yaml:"ses_region"`
	SESAccessKey   string `yaml:"ses_access_key"`
	SESSecretKey   string `yaml:"ses_secret_key"`
}

// Timeout returns the configured timeout as a duration
func (c MailConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Incomplete lists the missing settings for the selected transport. An empty
// result means the transport can be used.
func (c MailConfig) Incomplete() []string {
	var missing []string
	switch c.Transport {
	case "ses":
		if c.SESRegion == "" {
			missing = append(missing, "ses_region")
		}
	default:
		if c.Host == "" {
			missing = append(missing, "host")
		}
		if c.Port == 0 {
			missing = append(missing, "port")
		}
		if c.User == "" {
			missing = append(missing, "user")
		}
		if c.Password == "" {
			missing = append(missing, "password")
		}
	}
	if c.From == "" {
		missing = append(missing, "from")
	}
	return missing
}

// ExportConfig holds artifact export settings
type ExportConfig struct {
	OutputDir    string `yaml:"output_dir"`
	CSVDelimiter string `yaml:"csv_delimiter"`
	PDFEnabled   *bool  `yaml:"pdf_enabled"`
	RowsPerPage  int    `yaml:"rows_per_page"`
	PDFTitle     string `yaml:"pdf_title"`
}

// PDF reports whether the PDF exporter is part of the pipeline
func (c ExportConfig) PDF() bool {
	return c.PDFEnabled == nil || *c.PDFEnabled
}

// Delimiter returns the CSV delimiter rune
func (c ExportConfig) Delimiter() rune {
	for _, r := range c.CSVDelimiter {
		return r
	}
	return ','
}

// ArchiveConfig holds optional S3 archiving of produced artifacts
type ArchiveConfig struct {
	Enabled    bool   `yaml:"enabled"`
	S3Bucket   string `yaml:"s3_bucket"`
	S3Prefix   string `yaml:"s3_prefix"`
	AWSRegion  string `yaml:"aws_region"`
	AWSProfile string `yaml:"aws_profile"` // Empty string uses default credential chain
}

// LogConfig holds logging settings
type LogConfig struct {
	Level      string `yaml:"level"`
	Dir        string `yaml:"dir"`
	RedactPII  *bool  `yaml:"redact_pii"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// Redact reports whether email addresses are masked in logs
func (c LogConfig) Redact() bool {
	return c.RedactPII == nil || *c.RedactPII
}

// Load reads and parses the configuration file. A missing file is not an
// error: the defaults (and environment overrides in LoadFromEnv) are enough
// to run.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.JobsFile == "" {
		cfg.JobsFile = "report_jobs.csv"
	}
	if cfg.SummaryFile == "" {
		cfg.SummaryFile = "run_summary.csv"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "oracle"
	}
	if cfg.Database.Port == 0 {
		switch cfg.Database.Driver {
		case "postgres":
			cfg.Database.Port = 5432
		default:
			cfg.Database.Port = 1521
		}
	}
	if cfg.Database.Schema == "" {
		cfg.Database.Schema = "MCOMMADM"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.QueryTimeoutSeconds == 0 {
		cfg.Database.QueryTimeoutSeconds = 120
	}
	if cfg.Mail.Transport == "" {
		cfg.Mail.Transport = "smtp"
	}
	if cfg.Mail.Port == 0 && cfg.Mail.Transport == "smtp" {
		cfg.Mail.Port = 587
	}
	if cfg.Mail.TimeoutSeconds == 0 {
		cfg.Mail.TimeoutSeconds = 30
	}
	if cfg.Mail.TemplateDir == "" {
		cfg.Mail.TemplateDir = "templates"
	}
	if cfg.Export.OutputDir == "" {
		cfg.Export.OutputDir = "outputs"
	}
	if cfg.Export.CSVDelimiter == "" {
		cfg.Export.CSVDelimiter = ","
	}
	if cfg.Export.RowsPerPage == 0 {
		cfg.Export.RowsPerPage = 50
	}
	if cfg.Export.PDFTitle == "" {
		cfg.Export.PDFTitle = "Rapport automatique"
	}
	if cfg.Archive.AWSRegion == "" {
		cfg.Archive.AWSRegion = "us-east-1"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "INFO"
	}
	if cfg.Log.Dir == "" {
		cfg.Log.Dir = "logs"
	}
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = 5
	}
	if cfg.Log.MaxBackups == 0 {
		cfg.Log.MaxBackups = 5
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so credentials can live in .env next to the executable.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("REPORT_JOBS_FILE"); v != "" {
		cfg.JobsFile = v
	}
	if v := os.Getenv("REPORT_SUMMARY_FILE"); v != "" {
		cfg.SummaryFile = v
	}

	// Database overrides
	if v := os.Getenv("DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("ORACLE_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("ORACLE_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("ORACLE_PORT: %w", err)
		}
		cfg.Database.Port = port
	}
	if v := os.Getenv("ORACLE_SERVICE"); v != "" {
		cfg.Database.Service = v
	}
	if v := os.Getenv("ORACLE_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("ORACLE_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}

	// Mail overrides
	if v := os.Getenv("MAIL_TRANSPORT"); v != "" {
		cfg.Mail.Transport = v
	}
	if v := os.Getenv("EMAIL_HOST"); v != "" {
		cfg.Mail.Host = v
	}
	if v := os.Getenv("EMAIL_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("EMAIL_PORT: %w", err)
		}
		cfg.Mail.Port = port
	}
	if v := os.Getenv("EMAIL_USER"); v != "" {
		cfg.Mail.User = v
	}
	if v := os.Getenv("EMAIL_PASSWORD"); v != "" {
		cfg.Mail.Password = v
	}
	if v := os.Getenv("EMAIL_FROM"); v != "" {
		cfg.Mail.From = v
	}
	if v := os.Getenv("AWS_SES_REGION"); v != "" {
		cfg.Mail.SESRegion = v
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.Mail.SESAccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.Mail.SESSecretKey = v
	}
	// The mailbox used to authenticate is the sender unless told otherwise
	if cfg.Mail.From == "" {
		cfg.Mail.From = cfg.Mail.User
	}

	// Export overrides
	if v := os.Getenv("REPORT_OUTPUT_DIR"); v != "" {
		cfg.Export.OutputDir = v
	}
	if v := os.Getenv("REPORT_PDF_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("REPORT_PDF_ENABLED: %w", err)
		}
		cfg.Export.PDFEnabled = &enabled
	}

	// Archive overrides
	if v := os.Getenv("ARCHIVE_S3_BUCKET"); v != "" {
		cfg.Archive.S3Bucket = v
		cfg.Archive.Enabled = true
	}

	// Log overrides
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_DIR"); v != "" {
		cfg.Log.Dir = v
	}

	return cfg, nil
}

// Validate checks settings the runner cannot start without. Mail credentials
// are not checked: an incomplete transport fails each job's notification,
// not the run.
func (c *Config) Validate() error {
	var problems []string
	switch c.Database.Driver {
	case "oracle", "postgres":
	default:
		problems = append(problems, fmt.Sprintf("database.driver %q is not supported", c.Database.Driver))
	}
	switch c.Mail.Transport {
	case "smtp", "ses":
	default:
		problems = append(problems, fmt.Sprintf("mail.transport %q is not supported", c.Mail.Transport))
	}
	if c.Export.RowsPerPage < 0 {
		problems = append(problems, "export.rows_per_page must be positive")
	}
	if c.Archive.Enabled && c.Archive.S3Bucket == "" {
		problems = append(problems, "archive.s3_bucket is required when archive is enabled")
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}
