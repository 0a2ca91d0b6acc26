package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrListingNotFound = errors.New("listing not found")
	ErrMediaNotFound   = errors.New("image not found on listing")
)

// FieldViolation names a single field rule that an input broke.
type FieldViolation struct {
	Field   string
	Message string
}

func (v FieldViolation) String() string {
	return v.Field + ": " + v.Message
}

// ValidationError carries every violation found in one validation pass so a
// client can fix all of them in a single round trip.
type ValidationError struct {
	Violations []FieldViolation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.String()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Messages returns one human-readable string per violation, in input order.
func (e *ValidationError) Messages() []string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.String()
	}
	return msgs
}

type UploadFailure string

const (
	UploadFailureFormat   UploadFailure = "format"
	UploadFailureTooLarge UploadFailure = "too_large"
	UploadFailureTimeout  UploadFailure = "timeout"
	UploadFailureRemote   UploadFailure = "remote"
)

// UploadError reports a rejected or failed media upload. Kind distinguishes
// local pre-check rejections from remote faults so the HTTP layer can pick a
// status code.
type UploadError struct {
	Kind UploadFailure
	Err  error
}

func (e *UploadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upload failed (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("upload failed (%s)", e.Kind)
}

func (e *UploadError) Unwrap() error { return e.Err }

// StoreError wraps a persistence failure. Duplicate marks unique-index
// conflicts, which map to HTTP 409 instead of 500.
type StoreError struct {
	Duplicate bool
	Err       error
}

func (e *StoreError) Error() string {
	if e.Duplicate {
		return fmt.Sprintf("store conflict: %v", e.Err)
	}
	return fmt.Sprintf("store failure: %v", e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
