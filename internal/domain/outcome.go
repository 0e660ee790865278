package domain

// Stage is a step of the per-job pipeline.
type Stage string

const (
	StagePending   Stage = "pending"
	StageResolving Stage = "resolving"
	StageFetching  Stage = "fetching"
	StageExporting Stage = "exporting"
	StageNotifying Stage = "notifying"
	StageDone      Stage = "done"
)

// OutcomeStatus is the terminal state of one job.
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeEmpty   OutcomeStatus = "empty"
	OutcomeFailure OutcomeStatus = "failure"
)

// Outcome records how a job ended. It is created once per job and never
// modified afterwards.
type Outcome struct {
	JobIndex   int
	Status     OutcomeStatus
	ReportType ReportType
	ND         string
	Recipients []string
	RowCount   int
	CSVPath    string
	PDFPath    string
	// Stage and Err are set for failures only.
	Stage Stage
	Err   error
}

// Artifacts returns the produced file paths, CSV first.
func (o Outcome) Artifacts() []string {
	var paths []string
	if o.CSVPath != "" {
		paths = append(paths, o.CSVPath)
	}
	if o.PDFPath != "" {
		paths = append(paths, o.PDFPath)
	}
	return paths
}

// Notification is a single email send request.
// BCC recipients are delivered to but never rendered in message headers.
type Notification struct {
	To           []string
	CC           []string
	BCC          []string
	Subject      string
	TemplateName string
	Context      map[string]any
	Attachments  []string
}
