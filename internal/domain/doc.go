// Package domain defines the core types shared by the report runner: the raw
// job descriptor read from the job file, the resolved query parameters, the
// report rows returned by the fetcher, and the per-job outcome.
//
// Rules for this package:
//   - No imports from other internal/ packages
//   - No *sql.DB, no file handles, no context.Context in struct fields
//   - Validation helpers are allowed (they're pure functions on the type)
//   - Constants, enums, and sentinel errors belong here
package domain
