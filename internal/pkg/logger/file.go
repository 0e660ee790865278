package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileOptions configures the rotating log file.
type FileOptions struct {
	Dir        string
	Prefix     string
	MaxSizeMB  int
	MaxBackups int
}

// NewFile opens a size-rotated log file named <prefix>_<timestamp>.log
// inside Dir. The directory is created if needed.
func NewFile(opts FileOptions, now time.Time) (io.WriteCloser, error) {
	if opts.Dir == "" {
		opts.Dir = "logs"
	}
	if opts.Prefix == "" {
		opts.Prefix = "report_runner"
	}
	if opts.MaxSizeMB <= 0 {
		opts.MaxSizeMB = 5
	}
	if opts.MaxBackups <= 0 {
		opts.MaxBackups = 5
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	name := fmt.Sprintf("%s_%s.log", opts.Prefix, now.Format("20060102_150405"))
	return &lumberjack.Logger{
		Filename:   filepath.Join(opts.Dir, name),
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
	}, nil
}
