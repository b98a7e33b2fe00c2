package catalog

import (
	"errors"
	"fmt"
	"net/http"

	"catalogadmin/models"
)

// NetworkError is a transport failure: the backend could not be reached or
// the request was cancelled before a response arrived.
type NetworkError struct {
	Resource string
	Op       string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: network error: %v", e.Resource, e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError is a non-2xx response with no more specific meaning, or a
// response body that could not be decoded.
type ServerError struct {
	Resource string
	Op       string
	Status   int
	Message  string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: server returned %d %s", e.Resource, e.Op, e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("%s %s: server returned %d: %s", e.Resource, e.Op, e.Status, e.Message)
}

// NotFoundError reports a 404 for a get, update or delete by id.
type NotFoundError struct {
	Resource string
	Op       string
	ID       string
	Message  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s: %s %q not found", e.Resource, e.Op, e.Resource, e.ID)
}

// ValidationError reports a rejected create or update payload.
type ValidationError struct {
	Resource string
	Op       string
	Status   int
	Message  string
	Fields   []models.FieldError
}

func (e *ValidationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: payload rejected (%d)", e.Resource, e.Op, e.Status)
	}
	return fmt.Sprintf("%s %s: payload rejected: %s", e.Resource, e.Op, e.Message)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsNetwork(err error) bool {
	var target *NetworkError
	return errors.As(err, &target)
}

func IsServer(err error) bool {
	var target *ServerError
	return errors.As(err, &target)
}

// statusError turns a non-2xx response into the matching typed error.
func statusError(resource, op, id string, status int, message string) error {
	switch {
	case status == http.StatusNotFound && (op == OpGet || op == OpUpdate || op == OpDelete):
		return &NotFoundError{Resource: resource, Op: op, ID: id, Message: message}
	case (status == http.StatusBadRequest || status == http.StatusUnprocessableEntity) && (op == OpCreate || op == OpUpdate):
		return &ValidationError{Resource: resource, Op: op, Status: status, Message: message}
	default:
		return &ServerError{Resource: resource, Op: op, Status: status, Message: message}
	}
}
