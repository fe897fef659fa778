package models

import "errors"

// Error kinds shared across the core. Call sites wrap these with
// fmt.Errorf("...: %w", err) so errors.Is keeps working through layers;
// the HTTP adapter maps them onto status codes.
var (
	// ErrNotFound covers missing documents, users, and collections on reads.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists covers doc_id and collection_id collisions.
	ErrAlreadyExists = errors.New("already exists")
	// ErrPermissionDenied is returned when a user touches a collection they do not own.
	ErrPermissionDenied = errors.New("permission denied")

	// Write-time referential failures.
	ErrUnknownUser       = errors.New("unknown user")
	ErrUnknownCollection = errors.New("unknown collection")

	// ErrInvalidArgument covers caller mistakes such as chunk size <= overlap.
	ErrInvalidArgument = errors.New("invalid argument")

	// Pipeline failures.
	ErrFileMissing      = errors.New("original file missing")
	ErrConversionFailed = errors.New("conversion failed")

	// Non-fatal pipeline conditions, logged rather than raised.
	ErrEmbeddingDegraded = errors.New("embedding degraded")
	ErrIndexWrite        = errors.New("index write failed")

	// ErrTransient marks retryable network or I/O failures.
	ErrTransient = errors.New("transient failure")
)
