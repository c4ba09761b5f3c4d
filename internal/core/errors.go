package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrNegativeAmount     = errors.New("amount must not be negative")
	ErrEmptyDescription   = errors.New("empty description")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrInvalidDate        = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvertedPeriod     = errors.New("start date is after end date")
	ErrUnknownEntryKind   = errors.New("unknown entry kind")
	ErrUnknownOwnerKind   = errors.New("unknown attachment owner, expected fixa or divida")
	ErrUnknownFixedCharge = errors.New("unknown fixed charge")
	ErrEmptyPeriod        = errors.New("empty period")
	ErrEmptyMonthLabel    = errors.New("empty month label")
	ErrEmptyFile          = errors.New("empty file")
	ErrEmptyMessage       = errors.New("empty message")
)

// ValidationError reports a missing or malformed required field.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// FileTooLargeError rejects an upload above the size limit. Nothing is stored.
type FileTooLargeError struct {
	Size  int64
	Limit int64
}

func (e *FileTooLargeError) Error() string {
	if e.Size <= 0 {
		return fmt.Sprintf("file exceeds the %d MiB limit", e.Limit>>20)
	}
	return fmt.Sprintf("file has %d bytes, limit is %d MiB", e.Size, e.Limit>>20)
}

// UnsupportedFormatError rejects a file whose content is not of the expected type.
type UnsupportedFormatError struct {
	Reason string
}

func (e *UnsupportedFormatError) Error() string {
	return "unsupported format: " + e.Reason
}

type NotFoundError struct {
	Resource string
	ID       int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

// AnalysisFailure describes why a stored payslip could not be read. It is kept
// as a warning on the payslip and never returned from an upload.
type AnalysisFailure struct {
	Err error
}

func (e *AnalysisFailure) Error() string {
	return "analysis failed: " + e.Err.Error()
}

func (e *AnalysisFailure) Unwrap() error { return e.Err }

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
