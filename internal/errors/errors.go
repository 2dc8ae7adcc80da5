package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// UnknownCode indicates a seed code does not exist in the ontology release
	UnknownCode ErrorCode = "UNKNOWN_CODE"
	// InvalidDefinition indicates overlapping include/exclude sets or a bad override
	InvalidDefinition ErrorCode = "INVALID_DEFINITION"
	// UnknownNode indicates a code that is not a node of the concept graph
	UnknownNode ErrorCode = "UNKNOWN_NODE"
	// IncompleteStatuses indicates a status map that does not cover every graph node
	IncompleteStatuses ErrorCode = "INCOMPLETE_STATUSES"
	// PreconditionFailed indicates a state transition that is not allowed yet
	PreconditionFailed ErrorCode = "PRECONDITION_FAILED"
	// NoDifference indicates a new version identical to the previous one
	NoDifference ErrorCode = "NO_DIFFERENCE"
	// NotFound indicates a missing codelist version
	NotFound ErrorCode = "NOT_FOUND"
	// ReleaseNotFound indicates an ontology release that was never imported
	ReleaseNotFound ErrorCode = "RELEASE_NOT_FOUND"
	// CacheCorrupt indicates a graph cache blob that cannot be decoded
	CacheCorrupt ErrorCode = "CACHE_CORRUPT"
	// InvalidRelease indicates a release file that is not a self-contained ontology
	InvalidRelease ErrorCode = "INVALID_RELEASE"
	// CycleDetected indicates ontology edges that do not form a DAG
	CycleDetected ErrorCode = "CYCLE_DETECTED"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// EditInput suggests correcting the request input
	EditInput FixActionType = "edit-input"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
}

// CodelistError represents an error with a stable code, message, and suggestions
type CodelistError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates a CodelistError carrying the default fixes for its code.
func New(code ErrorCode, message string) *CodelistError {
	return &CodelistError{
		Code:           code,
		Message:        message,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Newf is New with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *CodelistError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap creates a CodelistError around an underlying cause.
func Wrap(code ErrorCode, message string, cause error) *CodelistError {
	e := New(code, message)
	e.cause = cause
	return e
}

// Error implements the error interface
func (e *CodelistError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *CodelistError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *CodelistError) WithDetails(details interface{}) *CodelistError {
	e.Details = details
	return e
}

// CodeOf returns the code of the first CodelistError in err's chain,
// or the empty code when there is none.
func CodeOf(err error) ErrorCode {
	var ce *CodelistError
	if stderrors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	UnknownCode: {
		{
			Type:        RunCommand,
			Command:     "codelists draft new --ignore-unknown ...",
			Safe:        true,
			Description: "Drop unknown codes and report them instead of failing",
		},
	},
	ReleaseNotFound: {
		{
			Type:        RunCommand,
			Command:     "codelists ontology import <release.toml>",
			Safe:        true,
			Description: "Import the ontology release before building codelists against it",
		},
	},
	PreconditionFailed: {
		{
			Type:        RunCommand,
			Command:     "codelists draft show <version> --unresolved",
			Safe:        true,
			Description: "List undecided and conflicting codes that must be resolved first",
		},
	},
	InvalidDefinition: {
		{
			Type:        EditInput,
			Description: "A code cannot be both included and excluded",
		},
	},
	InvalidRelease: {
		{
			Type:        EditInput,
			Description: "Give every concept a unique code and define each parent in the same release file",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
