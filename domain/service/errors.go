package service

import (
	"fmt"
	"strings"
)

// CommitError records the failure of a single commit's enrichment.
type CommitError struct {
	hash  string
	cause error
}

// NewCommitError creates a CommitError.
func NewCommitError(hash string, cause error) CommitError {
	return CommitError{hash: hash, cause: cause}
}

// Hash returns the failing commit's identifier.
func (e CommitError) Hash() string { return e.hash }

// Error implements the error interface.
func (e CommitError) Error() string {
	return fmt.Sprintf("commit %s: %v", e.hash, e.cause)
}

// Unwrap returns the underlying cause.
func (e CommitError) Unwrap() error { return e.cause }

// BatchError aggregates per-commit enrichment failures. It names every
// failing commit hash and cause, so a run never fails with a partial report.
type BatchError struct {
	total    int
	failures []CommitError
}

// NewBatchError creates a BatchError for a batch of total commits.
func NewBatchError(total int, failures []CommitError) *BatchError {
	fs := make([]CommitError, len(failures))
	copy(fs, failures)
	return &BatchError{total: total, failures: fs}
}

// Failures returns the per-commit failures in original commit order.
func (e *BatchError) Failures() []CommitError {
	fs := make([]CommitError, len(e.failures))
	copy(fs, e.failures)
	return fs
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d commits failed enrichment:", len(e.failures), e.total)
	for _, f := range e.failures {
		b.WriteString(" ")
		b.WriteString(f.Error())
		b.WriteString(";")
	}
	return strings.TrimSuffix(b.String(), ";")
}

// Unwrap exposes each per-commit cause for errors.Is / errors.As matching.
func (e *BatchError) Unwrap() []error {
	errs := make([]error, len(e.failures))
	for i, f := range e.failures {
		errs[i] = f
	}
	return errs
}
