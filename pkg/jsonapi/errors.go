package jsonapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// ErrorBuilder builds an Error.
type ErrorBuilder struct {
	err Error
}

// NewError starts an error with the given status, code and title.
func NewError(status int, code, title string) *ErrorBuilder {
	return &ErrorBuilder{
		err: Error{
			Status: strconv.Itoa(status),
			Code:   code,
			Title:  title,
		},
	}
}

// Detail sets the detail message.
func (b *ErrorBuilder) Detail(detail string) *ErrorBuilder {
	b.err.Detail = detail
	return b
}

// Detailf sets the detail message with formatting.
func (b *ErrorBuilder) Detailf(format string, args ...any) *ErrorBuilder {
	b.err.Detail = fmt.Sprintf(format, args...)
	return b
}

// ID sets the error ID, typically the request ID.
func (b *ErrorBuilder) ID(id string) *ErrorBuilder {
	b.err.ID = id
	return b
}

// Pointer sets the JSON pointer into the request body, e.g. "/0/add".
func (b *ErrorBuilder) Pointer(pointer string) *ErrorBuilder {
	if b.err.Source == nil {
		b.err.Source = &ErrorSource{}
	}
	b.err.Source.Pointer = pointer
	return b
}

// Parameter sets the query parameter that caused the error.
func (b *ErrorBuilder) Parameter(param string) *ErrorBuilder {
	if b.err.Source == nil {
		b.err.Source = &ErrorSource{}
	}
	b.err.Source.Parameter = param
	return b
}

// Meta adds metadata to the error.
func (b *ErrorBuilder) Meta(key string, value any) *ErrorBuilder {
	if b.err.Meta == nil {
		b.err.Meta = make(Meta)
	}
	b.err.Meta[key] = value
	return b
}

// Build returns the error.
func (b *ErrorBuilder) Build() Error {
	return b.err
}

// StatusCode returns the HTTP status as an int.
func (e Error) StatusCode() int {
	code, _ := strconv.Atoi(e.Status)
	return code
}

// ErrBadRequest is a 400 error.
func ErrBadRequest(detail string) Error {
	return NewError(http.StatusBadRequest, "bad_request", "Bad Request").Detail(detail).Build()
}

// ErrRouteNotFound is a 404 error for a path no operation is bound to.
func ErrRouteNotFound(method, path string) Error {
	return NewError(http.StatusNotFound, "route_not_found", "Not Found").
		Detailf("no operation bound to %s %s", method, path).
		Build()
}

// ErrMethodNotAllowed is a 405 error listing the methods the path accepts.
func ErrMethodNotAllowed(method string, allowed []string) Error {
	b := NewError(http.StatusMethodNotAllowed, "method_not_allowed", "Method Not Allowed").
		Detailf("method %s is not allowed", method)
	if len(allowed) > 0 {
		b.Meta("allowed_methods", allowed)
	}
	return b.Build()
}

// ErrInternal is a 500 error.
func ErrInternal(detail string) Error {
	if detail == "" {
		detail = "An unexpected error occurred"
	}
	return NewError(http.StatusInternalServerError, "internal_error", "Internal Server Error").Detail(detail).Build()
}

// ErrFromStatus builds an error for any status, deriving code and title from
// the standard status text.
func ErrFromStatus(status int, detail string) Error {
	title := http.StatusText(status)
	if title == "" {
		status = http.StatusInternalServerError
		title = http.StatusText(status)
	}
	code := strings.ReplaceAll(strings.ToLower(title), " ", "_")
	return NewError(status, code, title).Detail(detail).Build()
}
