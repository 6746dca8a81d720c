package api

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusReason is a machine-readable tag describing why a call failed.
// Callers branch on the reason, never on the message text.
type StatusReason string

const (
	ReasonNotFound           StatusReason = "NotFound"
	ReasonAlreadyExists      StatusReason = "AlreadyExists"
	ReasonConflict           StatusReason = "Conflict"
	ReasonUnauthorized       StatusReason = "Unauthorized"
	ReasonInternalError      StatusReason = "InternalError"
	ReasonServiceUnavailable StatusReason = "ServiceUnavailable"
	ReasonGatewayTimeout     StatusReason = "GatewayTimeout"
)

// Status is the structured error returned by the store and the facade.
// Code follows HTTP status semantics so the HTTP layer can pass it through.
type Status struct {
	Code    int          `json:"code"`
	Reason  StatusReason `json:"reason"`
	Message string       `json:"message"`
}

func (s *Status) Error() string { return s.Message }

func NewNotFound(kind, name string) *Status {
	return &Status{
		Code:    http.StatusNotFound,
		Reason:  ReasonNotFound,
		Message: fmt.Sprintf("%s %q not found", kind, name),
	}
}

func NewAlreadyExists(kind, name string) *Status {
	return &Status{
		Code:    http.StatusConflict,
		Reason:  ReasonAlreadyExists,
		Message: fmt.Sprintf("%s %q already exists", kind, name),
	}
}

func NewConflict(kind, name, message string) *Status {
	return &Status{
		Code:    http.StatusConflict,
		Reason:  ReasonConflict,
		Message: fmt.Sprintf("operation cannot be fulfilled on %s %q: %s", kind, name, message),
	}
}

func NewUnauthorized(message string) *Status {
	return &Status{Code: http.StatusUnauthorized, Reason: ReasonUnauthorized, Message: message}
}

func NewInternalError(message string) *Status {
	return &Status{Code: http.StatusInternalServerError, Reason: ReasonInternalError, Message: message}
}

func NewServiceUnavailable(message string) *Status {
	return &Status{Code: http.StatusServiceUnavailable, Reason: ReasonServiceUnavailable, Message: message}
}

func NewGatewayTimeout(message string) *Status {
	return &Status{Code: http.StatusGatewayTimeout, Reason: ReasonGatewayTimeout, Message: message}
}

// ReasonForError returns the StatusReason carried by err, or "" if err is not
// a Status.
func ReasonForError(err error) StatusReason {
	var status *Status
	if errors.As(err, &status) {
		return status.Reason
	}
	return ""
}

func IsNotFound(err error) bool      { return ReasonForError(err) == ReasonNotFound }
func IsAlreadyExists(err error) bool { return ReasonForError(err) == ReasonAlreadyExists }
func IsConflict(err error) bool      { return ReasonForError(err) == ReasonConflict }
func IsUnauthorized(err error) bool  { return ReasonForError(err) == ReasonUnauthorized }

// IsTransient reports whether err is one of the injected retry-safe failures.
// Transient errors never carry a state change.
func IsTransient(err error) bool {
	switch ReasonForError(err) {
	case ReasonInternalError, ReasonServiceUnavailable, ReasonGatewayTimeout:
		return true
	}
	return false
}
