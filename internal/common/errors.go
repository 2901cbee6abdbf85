// Package common provides shared utilities used across all features
package common

import (
	"fmt"
	"net/http"
)

// HttpError represents an HTTP error with status code and message
type HttpError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *HttpError) Error() string {
	return fmt.Sprintf("HTTP error: %d %s %s", e.StatusCode, e.Code, e.Message)
}

func messageOrDefault(msg string, defaultMsg string) string {
	if msg != "" {
		return msg
	}
	return defaultMsg
}

func HTTPErrorBadRequest(msg string) *HttpError {
	return &HttpError{
		StatusCode: http.StatusBadRequest,
		Code:       "BAD_REQUEST",
		Message:    messageOrDefault(msg, "Bad request"),
	}
}

func HTTPErrorNotFound(msg string) *HttpError {
	return &HttpError{
		StatusCode: http.StatusNotFound,
		Code:       "NOT_FOUND",
		Message:    messageOrDefault(msg, "Not found"),
	}
}

func HTTPErrorUnprocessable(msg string) *HttpError {
	return &HttpError{
		StatusCode: http.StatusUnprocessableEntity,
		Code:       "UNPROCESSABLE",
		Message:    messageOrDefault(msg, "Unprocessable request"),
	}
}

// HTTPErrorBadGateway reports failures of the upstream network (RPC, cluster).
func HTTPErrorBadGateway(msg string) *HttpError {
	return &HttpError{
		StatusCode: http.StatusBadGateway,
		Code:       "UPSTREAM_FAILURE",
		Message:    messageOrDefault(msg, "Upstream failure"),
	}
}

// HTTPErrorGatewayTimeout is used when a transaction outcome is still unknown.
func HTTPErrorGatewayTimeout(msg string) *HttpError {
	return &HttpError{
		StatusCode: http.StatusGatewayTimeout,
		Code:       "OUTCOME_UNKNOWN",
		Message:    messageOrDefault(msg, "Outcome unknown"),
	}
}

func HTTPErrorInternalError(msg string) *HttpError {
	return &HttpError{
		StatusCode: http.StatusInternalServerError,
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    messageOrDefault(msg, "Internal server error"),
	}
}

func HTTPErrorServiceUnavailable(msg string) *HttpError {
	return &HttpError{
		StatusCode: http.StatusServiceUnavailable,
		Code:       "SERVICE_UNAVAILABLE",
		Message:    messageOrDefault(msg, "Service unavailable"),
	}
}
