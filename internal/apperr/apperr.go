// Package apperr defines the closed set of failures the inventory workflow can
// report. Remote client errors are converted into these kinds where the call
// is made and never leave that package in library-specific shape.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindRemoteUnavailable
	KindRemoteRequest
	KindItemNotFound
	KindMalformedPayload
	KindIncompletePayload
	KindCameraUnavailable
	KindInvalidSheet
)

func (k Kind) String() string {
	switch k {
	case KindRemoteUnavailable:
		return "remote_unavailable"
	case KindRemoteRequest:
		return "remote_request"
	case KindItemNotFound:
		return "item_not_found"
	case KindMalformedPayload:
		return "malformed_payload"
	case KindIncompletePayload:
		return "incomplete_payload"
	case KindCameraUnavailable:
		return "camera_unavailable"
	case KindInvalidSheet:
		return "invalid_sheet"
	default:
		return "unknown"
	}
}

// Error is the concrete error type for every Kind.
type Error struct {
	Kind    Kind
	Message string
	// Status is the upstream HTTP status for KindRemoteRequest, 0 if none.
	Status int
	// Fields lists missing payload fields for KindIncompletePayload.
	Fields []string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so callers can write
// errors.Is(err, apperr.ErrItemNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrRemoteUnavailable = &Error{Kind: KindRemoteUnavailable, Message: "remote unavailable"}
	ErrRemoteRequest     = &Error{Kind: KindRemoteRequest, Message: "remote request failed"}
	ErrItemNotFound      = &Error{Kind: KindItemNotFound, Message: "item not found"}
	ErrMalformedPayload  = &Error{Kind: KindMalformedPayload, Message: "malformed payload"}
	ErrIncompletePayload = &Error{Kind: KindIncompletePayload, Message: "incomplete payload"}
	ErrCameraUnavailable = &Error{Kind: KindCameraUnavailable, Message: "camera unavailable"}
	ErrInvalidSheet      = &Error{Kind: KindInvalidSheet, Message: "invalid sheet"}
)

func RemoteUnavailable(message string) *Error {
	return &Error{Kind: KindRemoteUnavailable, Message: message}
}

func RemoteRequest(status int, message string, cause error) *Error {
	return &Error{Kind: KindRemoteRequest, Status: status, Message: message, Err: cause}
}

func ItemNotFound(id string) *Error {
	return &Error{Kind: KindItemNotFound, Message: fmt.Sprintf("Item with ID %s not found in sheet", id)}
}

func MalformedPayload(message string, cause error) *Error {
	return &Error{Kind: KindMalformedPayload, Message: message, Err: cause}
}

func IncompletePayload(fields []string) *Error {
	return &Error{
		Kind:    KindIncompletePayload,
		Message: "Missing required fields: " + strings.Join(fields, ", "),
		Fields:  fields,
	}
}

func CameraUnavailable(message string) *Error {
	return &Error{Kind: KindCameraUnavailable, Message: message}
}

// InvalidSheet reports a sheet whose layout does not match the item columns.
func InvalidSheet(message string) *Error {
	return &Error{Kind: KindInvalidSheet, Message: message}
}

// KindOf returns the Kind of err, or KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Retryable reports whether the user should be offered a retry.
func Retryable(err error) bool {
	return KindOf(err) == KindRemoteRequest
}

// HTTPStatus maps err to the status code the API responds with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindRemoteUnavailable:
		return http.StatusUnauthorized
	case KindRemoteRequest:
		return http.StatusBadGateway
	case KindItemNotFound:
		return http.StatusNotFound
	case KindMalformedPayload, KindIncompletePayload, KindInvalidSheet:
		return http.StatusUnprocessableEntity
	case KindCameraUnavailable:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// UserMessage converts err into the text shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) {
		return "Something went wrong. Please try again."
	}
	switch e.Kind {
	case KindRemoteUnavailable:
		if e.Message != "" {
			return e.Message
		}
		return "Please sign in again."
	case KindRemoteRequest:
		// Upstream message is surfaced verbatim.
		if e.Message != "" {
			return e.Message
		}
		if e.Status != 0 {
			return fmt.Sprintf("HTTP %d: %s", e.Status, http.StatusText(e.Status))
		}
		return "Request failed"
	default:
		return e.Error()
	}
}

// Response is the JSON body for an error reply.
func Response(err error) map[string]interface{} {
	body := map[string]interface{}{
		"error":     UserMessage(err),
		"kind":      KindOf(err).String(),
		"retryable": Retryable(err),
	}
	var e *Error
	if errors.As(err, &e) && len(e.Fields) > 0 {
		body["fields"] = e.Fields
	}
	return body
}
