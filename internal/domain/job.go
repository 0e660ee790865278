package domain

import (
	"strings"
	"time"
)

// ReportType selects the query, column schema, and ordering of a report.
type ReportType string

const (
	// ReportRemit is the remittance transactions report.
	ReportRemit ReportType = "remit"
	// ReportUp is the generic transaction ledger report.
	ReportUp ReportType = "up"
)

// ReportTypes lists every defined report type.
var ReportTypes = []ReportType{ReportRemit, ReportUp}

// Valid reports whether t is a defined report type.
func (t ReportType) Valid() bool {
	switch t {
	case ReportRemit, ReportUp:
		return true
	}
	return false
}

// RequiresPartition reports whether jobs of this type must name a partition.
func (t ReportType) RequiresPartition() bool {
	switch t {
	case ReportRemit, ReportUp:
		return true
	}
	return false
}

// Label is the upper-cased form used in email subjects and templates.
func (t ReportType) Label() string { return strings.ToUpper(string(t)) }

// JobDescriptor is one row of the job file, exactly as read.
// Index is the 1-based position of the job in the file.
type JobDescriptor struct {
	Index        int
	To           string
	CC           string
	BCC          string
	Subject      string
	TemplateName string
	ReportType   string
	ND           string
	DateStart    string
	DateEnd      string
	Partition    string
}

// JobParams is the normalized parameter set derived from one JobDescriptor.
// It is never modified after resolution.
type JobParams struct {
	Index        int
	To           []string
	CC           []string
	BCC          []string
	Subject      string
	TemplateName string
	ReportType   ReportType
	ND           string
	// DateStart and DateEnd are the calendar dates as given (midnight UTC).
	DateStart time.Time
	DateEnd   time.Time
	// Start and End bound the closed query interval [Start, End].
	Start     time.Time
	End       time.Time
	Partition string
}
