package file

import "errors"

var (
	// ErrNotFound signals that no record exists for the storage key.
	ErrNotFound = errors.New("file not found")
	// ErrForbidden is returned when the password gate denies a download.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFoundOrForbidden collapses missing and not-owned for
	// owner-scoped operations so existence is not leaked to non-owners.
	ErrNotFoundOrForbidden = errors.New("file not found or not owned")
	// ErrDuplicateKey indicates a storage key collision on insert.
	ErrDuplicateKey = errors.New("storage key already exists")
	// ErrStorage is the generic failure surfaced for blob or metadata
	// I/O errors.
	ErrStorage = errors.New("storage failure")
)
