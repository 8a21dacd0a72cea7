// Package apierror renders HTTP error responses for the coach server.
package apierror

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vango-go/asana-coach/pkg/coach/catalog"
)

type ErrorType string

const (
	ErrInvalidRequest ErrorType = "invalid_request_error"
	ErrNotFound       ErrorType = "not_found_error"
	ErrUnavailable    ErrorType = "unavailable_error"
	ErrAPI            ErrorType = "api_error"
)

type Error struct {
	Type      ErrorType `json:"type"`
	Message   string    `json:"message"`
	Param     string    `json:"param,omitempty"`
	Code      string    `json:"code,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return string(e.Type) + ": " + e.Message
}

type Envelope struct {
	Error *Error `json:"error"`
}

// FromError maps err to a canonical error and HTTP status.
func FromError(err error, requestID string) (*Error, int) {
	if err == nil {
		return nil, http.StatusOK
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Type: ErrAPI, Message: "request timeout", RequestID: requestID}, http.StatusGatewayTimeout
	}
	if errors.Is(err, context.Canceled) {
		return &Error{Type: ErrAPI, Message: "request cancelled", Code: "cancelled", RequestID: requestID}, http.StatusRequestTimeout
	}

	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr != nil {
		out := *apiErr
		out.RequestID = requestID
		return &out, statusFromType(apiErr.Type)
	}

	var modeErr *catalog.InvalidModeError
	if errors.As(err, &modeErr) {
		return &Error{Type: ErrInvalidRequest, Message: modeErr.Error(), Param: "mode", RequestID: requestID}, http.StatusBadRequest
	}
	var poseErr *catalog.UnknownPoseIDError
	if errors.As(err, &poseErr) {
		return &Error{Type: ErrInvalidRequest, Message: poseErr.Error(), Param: "asana_ids", RequestID: requestID}, http.StatusBadRequest
	}

	return &Error{Type: ErrAPI, Message: "internal error", RequestID: requestID}, http.StatusInternalServerError
}

func statusFromType(t ErrorType) int {
	switch t {
	case ErrInvalidRequest:
		return http.StatusBadRequest
	case ErrNotFound:
		return http.StatusNotFound
	case ErrUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Write encodes e as the response body. A missing request id is filled in.
func Write(w http.ResponseWriter, status int, requestID string, e *Error) {
	if e == nil {
		e = &Error{Type: ErrAPI, Message: "internal error"}
	}
	if e.RequestID == "" {
		e.RequestID = requestID
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{Error: e})
}

// WriteFromError is Write(FromError(err)).
func WriteFromError(w http.ResponseWriter, requestID string, err error) {
	e, status := FromError(err, requestID)
	Write(w, status, requestID, e)
}
