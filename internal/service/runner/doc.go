// Package runner implements the per-job report pipeline.
//
// Jobs are processed one at a time in file order. Each job is resolved,
// fetched, exported and notified; a failure at any stage ends that job only
// and the run continues with the next one. Outcomes are collected in a
// Summary which the caller writes once the job list is consumed.
//
// Collaborators are injected through the interfaces in interfaces.go;
// implementations live in repository/reports, export, mailing and storage.
package runner
