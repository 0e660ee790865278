package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors classifying per-job failures.
var (
	// ErrInvalidJob marks malformed or incomplete job parameters.
	ErrInvalidJob = errors.New("invalid job")
	// ErrQuery marks a database-layer failure.
	ErrQuery = errors.New("report query failed")
	// ErrEmptyData marks an export attempted with zero rows.
	ErrEmptyData = errors.New("no data to export")
	// ErrNotify marks a failed email notification.
	ErrNotify = errors.New("notification failed")
)

// JobError is a per-job failure tagged with the stage that produced it.
type JobError struct {
	Index int
	Stage Stage
	Err   error
}

func (e *JobError) Error() string {
	return fmt.Sprintf("job %d: %s: %v", e.Index, e.Stage, e.Err)
}

func (e *JobError) Unwrap() error { return e.Err }
