package models

import "errors"

// Sentinel errors classified by callers.
var (
	// ErrDuplicateTagName reports a (projectId, name) uniqueness violation.
	// During import it is a per-row failure and does not abort sibling rows.
	ErrDuplicateTagName = errors.New("duplicate tag name")

	// ErrAccessDenied aborts the whole operation with no partial writes
	ErrAccessDenied = errors.New("access denied")

	// ErrTagNotFound is returned for lookups of missing tags by id or name
	ErrTagNotFound = errors.New("tag not found")

	// ErrProjectNotFound is returned for lookups of missing projects
	ErrProjectNotFound = errors.New("project not found")

	// ErrParse reports a structurally malformed vendor file. The whole
	// import aborts with this single error; no per-row detail is possible.
	ErrParse = errors.New("parse error")
)

// RowError describes why one input row was rejected. Row is 1-based and
// Raw carries the original input so the user can correct and resubmit.
type RowError struct {
	Row    int      `json:"row"`
	Raw    string   `json:"raw"`
	Errors []string `json:"errors"`
}

// ImportResult is the outcome of a batch import
type ImportResult struct {
	Success  bool       `json:"success"`
	Inserted int        `json:"inserted"`
	Errors   []RowError `json:"errors,omitempty"`
}
