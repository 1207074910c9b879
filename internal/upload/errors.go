package upload

import (
	"errors"
	"fmt"
)

// ValidationError marks caller input as malformed or incomplete. It is always
// caller-fixable and never retried automatically.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// BackendError wraps a storage/service failure. Retrying is the caller's
// decision; the planner and completer never retry internally.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// ProtocolError means the backend responded in an unexpected shape, for
// example a segment PUT without an ETag header.
type ProtocolError struct {
	Msg string
}

func (e *ProtocolError) Error() string {
	return e.Msg
}

// UploadFailedError reports that a segment transfer did not complete.
// PartNumber 0 means the whole-object single-shot PUT.
type UploadFailedError struct {
	PartNumber int32
	Err        error
}

func (e *UploadFailedError) Error() string {
	if e.PartNumber == 0 {
		return fmt.Sprintf("upload failed: %v", e.Err)
	}
	return fmt.Sprintf("upload failed for part %d: %v", e.PartNumber, e.Err)
}

func (e *UploadFailedError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}
