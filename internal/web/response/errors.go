package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorResponse is the body written for request-level failures
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Message string                 `json:"message"`
	Code    string                 `json:"code,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

var statusCodes = map[int]string{
	http.StatusBadRequest:            "bad_request",
	http.StatusNotFound:              "not_found",
	http.StatusMethodNotAllowed:      "method_not_allowed",
	http.StatusConflict:              "conflict",
	http.StatusRequestEntityTooLarge: "request_too_large",
	http.StatusUnsupportedMediaType:  "unsupported_media_type",
	http.StatusUnprocessableEntity:   "unprocessable_entity",
	http.StatusInternalServerError:   "internal_error",
	http.StatusServiceUnavailable:    "service_unavailable",
}

func errorCodeFromStatus(status int) string {
	if code, ok := statusCodes[status]; ok {
		return code
	}
	return "error"
}

// HTTPError is a failure that knows its status and machine-readable code
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
	Details    map[string]interface{}
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError builds an error whose code is derived from the status
func NewHTTPError(statusCode int, message string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       errorCodeFromStatus(statusCode),
	}
}

// Errorf builds a 400 error
func Errorf(format string, args ...interface{}) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, fmt.Sprintf(format, args...))
}

func (e *HTTPError) WithCode(code string) *HTTPError {
	e.Code = code
	return e
}

func (e *HTTPError) WithDetails(details map[string]interface{}) *HTTPError {
	e.Details = details
	return e
}

// Render writes the error as an ErrorResponse
func (e *HTTPError) Render(w http.ResponseWriter) {
	writeJSON(w, e.StatusCode, &ErrorResponse{
		Error:   "error",
		Message: e.Message,
		Code:    e.Code,
		Details: e.Details,
	})
}

func RenderError(w http.ResponseWriter, statusCode int, err error) {
	NewHTTPError(statusCode, err.Error()).Render(w)
}

// RenderErrorWithCode overrides the status-derived code unless code is empty
func RenderErrorWithCode(w http.ResponseWriter, statusCode int, err error, code string) {
	e := NewHTTPError(statusCode, err.Error())
	if code != "" {
		e.Code = code
	}
	e.Render(w)
}

func RenderErrorWithDetails(w http.ResponseWriter, statusCode int, err error, details map[string]interface{}) {
	NewHTTPError(statusCode, err.Error()).WithDetails(details).Render(w)
}

func RenderBadRequest(w http.ResponseWriter, message string) {
	NewHTTPError(http.StatusBadRequest, message).Render(w)
}

// RenderMethodNotAllowed sets Allow before writing the 405
func RenderMethodNotAllowed(w http.ResponseWriter, allowedMethods []string) {
	w.Header().Set("Allow", strings.Join(allowedMethods, ", "))
	NewHTTPError(http.StatusMethodNotAllowed, "method not allowed").Render(w)
}

// RenderInternalError writes a 500 whose body is ErrorPayload(err)
func RenderInternalError(w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("internal server error")
	}
	JSON(w, http.StatusInternalServerError, ErrorPayload(err))
}

// ErrorPayload is the body reported when a store operation fails: the error
// itself when it encodes itself, otherwise {"name", "message"}.
func ErrorPayload(err error) interface{} {
	if m, ok := err.(json.Marshaler); ok {
		return m
	}

	name := "Error"
	if named, ok := err.(interface{ Name() string }); ok {
		name = named.Name()
	}
	return map[string]string{
		"name":    name,
		"message": err.Error(),
	}
}
