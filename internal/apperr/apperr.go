// Package apperr defines the business rule violations returned by the
// production services. They are expected outcomes, not faults: handlers turn
// them into {success:false} responses while anything else is a system error.
package apperr

import (
	"errors"
	"fmt"
)

// Code identifies a business rule violation
type Code string

const (
	CodeNotFound                Code = "NOT_FOUND"
	CodeNotApproved             Code = "NOT_APPROVED"
	CodeAlreadyExists           Code = "ALREADY_EXISTS"
	CodeStageAlreadyStarted     Code = "STAGE_ALREADY_STARTED"
	CodeStageNotFound           Code = "STAGE_NOT_FOUND"
	CodeQuantityMismatch        Code = "QUANTITY_MISMATCH"
	CodeMissingIssues           Code = "MISSING_ISSUES"
	CodeMissingReinspectionDate Code = "MISSING_REINSPECTION_DATE"
	CodeMissingRepairNotes      Code = "MISSING_REPAIR_NOTES"
	CodeInvalidIssue            Code = "INVALID_ISSUE"
	CodeInvalidStage            Code = "INVALID_STAGE"
	CodeInvalidPriority         Code = "INVALID_PRIORITY"
	CodeInvalidTransition       Code = "INVALID_TRANSITION"
	CodeValidation              Code = "VALIDATION"
)

// Error is a business rule violation with optional structured details
type Error struct {
	Code    Code
	Message string
	Details map[string]interface{}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any *Error carrying the same code, so errors.Is(err, ErrNotFound) works
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithDetail returns a copy of e with key set in Details
func (e *Error) WithDetail(key string, value interface{}) *Error {
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &Error{Code: e.Code, Message: e.Message, Details: details}
}

// New creates a business error
func New(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Sentinels for errors.Is comparisons
var (
	ErrNotFound                = &Error{Code: CodeNotFound}
	ErrNotApproved             = &Error{Code: CodeNotApproved}
	ErrAlreadyExists           = &Error{Code: CodeAlreadyExists}
	ErrStageAlreadyStarted     = &Error{Code: CodeStageAlreadyStarted}
	ErrStageNotFound           = &Error{Code: CodeStageNotFound}
	ErrQuantityMismatch        = &Error{Code: CodeQuantityMismatch}
	ErrMissingIssues           = &Error{Code: CodeMissingIssues}
	ErrMissingReinspectionDate = &Error{Code: CodeMissingReinspectionDate}
	ErrMissingRepairNotes      = &Error{Code: CodeMissingRepairNotes}
	ErrInvalidIssue            = &Error{Code: CodeInvalidIssue}
	ErrInvalidStage            = &Error{Code: CodeInvalidStage}
	ErrInvalidPriority         = &Error{Code: CodeInvalidPriority}
	ErrInvalidTransition       = &Error{Code: CodeInvalidTransition}
	ErrValidation              = &Error{Code: CodeValidation}
)

// As extracts the business error from err, if any
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CodeOf returns the business code of err, or "" for system errors
func CodeOf(err error) Code {
	if e, ok := As(err); ok {
		return e.Code
	}
	return ""
}

// IsBusiness reports whether err is an expected business rule violation
func IsBusiness(err error) bool {
	_, ok := As(err)
	return ok
}

// RequireActor rejects an empty actor identity
func RequireActor(actor string) error {
	if actor == "" {
		return New(CodeValidation, "actor identity is required")
	}
	return nil
}
