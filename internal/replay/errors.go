package replay

import (
	"errors"
	"fmt"
)

// Error reports why a replay could not be completed.
//
// Both kinds are fatal: they mean the stored history is corrupt, out of
// order, or was produced by a bug, and resume must not proceed with a
// partially reconstructed value.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Index is the position of the offending action in the sequence.
	Index int

	// ChangeID is the log id of the offending change, or 0 if unknown.
	ChangeID int64

	// Path is the change path, when the failure concerns one.
	Path string
}

// ErrorCode categorizes replay errors.
type ErrorCode string

const (
	// ErrCodeMalformedReplay indicates a structurally invalid action
	// sequence: a snapshot marker outside the leading position, ids out of
	// order, or an invalid change record.
	ErrCodeMalformedReplay ErrorCode = "MALFORMED_REPLAY"

	// ErrCodePathResolution indicates a change whose path cannot be
	// resolved against the value being rebuilt.
	ErrCodePathResolution ErrorCode = "PATH_RESOLUTION"
)

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Path != "" && e.ChangeID != 0:
		return fmt.Sprintf("%s: %s (action %d, change %d, path %s)", e.Code, e.Message, e.Index, e.ChangeID, e.Path)
	case e.Path != "":
		return fmt.Sprintf("%s: %s (action %d, path %s)", e.Code, e.Message, e.Index, e.Path)
	default:
		return fmt.Sprintf("%s: %s (action %d)", e.Code, e.Message, e.Index)
	}
}

// IsMalformedReplay reports whether err is a malformed replay error.
// Uses errors.As to handle wrapped errors.
func IsMalformedReplay(err error) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Code == ErrCodeMalformedReplay
	}
	return false
}

// IsPathResolution reports whether err is a path resolution error.
func IsPathResolution(err error) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Code == ErrCodePathResolution
	}
	return false
}

func malformed(index int, format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeMalformedReplay,
		Message: fmt.Sprintf(format, args...),
		Index:   index,
	}
}

func unresolved(index int, path, format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodePathResolution,
		Message: fmt.Sprintf(format, args...),
		Index:   index,
		Path:    path,
	}
}
