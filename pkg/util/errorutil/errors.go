package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced to callers.
const (
	CodeValidation            = "VALIDATION_FAILED"
	CodeNotFound              = "NOT_FOUND"
	CodeUnauthorized          = "UNAUTHORIZED"
	CodeForbidden             = "FORBIDDEN"
	CodeConflict              = "CONFLICT"
	CodeInternal              = "INTERNAL_ERROR"
	CodeForbiddenTransition   = "FORBIDDEN_TRANSITION"
	CodeInvalidWaitingReason  = "INVALID_WAITING_REASON"
	CodeAssignmentRequired    = "ASSIGNMENT_REQUIRED"
	CodeInvalidAssignee       = "INVALID_ASSIGNEE"
	CodeUrgencyReasonTooShort = "URGENCY_REASON_TOO_SHORT"
	CodeNoChanges             = "NO_CHANGES"
	CodeStoreUnavailable      = "STORE_UNAVAILABLE"
	CodeWriteConflict         = "WRITE_CONFLICT"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Warning    bool
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewForbiddenTransition reports a status change the role may not perform.
func NewForbiddenTransition(role, from, to string) error {
	return NewDomainError(CodeForbiddenTransition,
		fmt.Sprintf("%s may not move a ticket from %s to %s", role, from, to),
		http.StatusForbidden,
		map[string]any{"role": role, "from": from, "to": to})
}

func NewInvalidWaitingReason(message string) error {
	return NewDomainError(CodeInvalidWaitingReason, message, http.StatusUnprocessableEntity, nil)
}

func NewAssignmentRequired() error {
	return NewDomainError(CodeAssignmentRequired, "an assignee is required to mark a ticket assigned", http.StatusUnprocessableEntity, nil)
}

func NewInvalidAssignee(message string, details map[string]any) error {
	return NewDomainError(CodeInvalidAssignee, message, http.StatusUnprocessableEntity, details)
}

func NewUrgencyReasonTooShort(message string) error {
	return NewDomainError(CodeUrgencyReasonTooShort, message, http.StatusUnprocessableEntity, nil)
}

// NewNoChanges is a user-facing warning rather than a failure.
func NewNoChanges() error {
	return &DomainError{
		Code:       CodeNoChanges,
		Message:    "no changes to save",
		HTTPStatus: http.StatusConflict,
		Warning:    true,
	}
}

func NewStoreUnavailable(err error) error {
	return &DomainError{
		Code:       CodeStoreUnavailable,
		Message:    "ticket store unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func NewWriteConflict(ticketID string, err error) error {
	return &DomainError{
		Code:       CodeWriteConflict,
		Message:    "ticket was changed by someone else; reload and retry",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"ticket_id": ticketID},
		Err:        err,
	}
}

// HasCode reports whether err is a DomainError with the given code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}
