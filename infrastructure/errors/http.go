// Package errors provides shared error handling utilities for legal-indexer clients.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// MinErrorStatusCode is the minimum HTTP status code considered an error
const MinErrorStatusCode = 400

// maxBodyBytes bounds how much of an error body is kept on the error value.
const maxBodyBytes = 4096

// HTTPError represents an HTTP API error response
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
	Message    string
	// After is the server-requested wait from Retry-After, zero when absent.
	After time.Duration
}

// Error implements the error interface
func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("HTTP error (%d %s): %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("HTTP error: %d %s", e.StatusCode, e.Status)
}

// RetryAfter returns the server-requested wait.
func (e *HTTPError) RetryAfter() time.Duration {
	return e.After
}

// ParseHTTPError parses an HTTP error response into a structured error.
// It reads the response body and extracts the message from common JSON
// shapes: {"error": ...}, {"message": ...} and JSON:API error arrays.
func ParseHTTPError(resp *http.Response) error {
	if resp.StatusCode < MinErrorStatusCode {
		return nil
	}

	httpErr := &HTTPError{
		StatusCode: resp.StatusCode,
		Status:     http.StatusText(resp.StatusCode),
		After:      parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
	}

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		httpErr.Message = fmt.Sprintf("failed to read error response body: %v", err)
		return httpErr
	}

	httpErr.Body = string(bodyBytes)
	httpErr.Message = messageFromBody(bodyBytes)

	return httpErr
}

func messageFromBody(body []byte) string {
	var jsonErr struct {
		Error   any    `json:"error"`
		Message string `json:"message"`
		Errors  []struct {
			Title  string `json:"title"`
			Detail string `json:"detail"`
		} `json:"errors"`
	}

	if json.Unmarshal(body, &jsonErr) != nil {
		return strings.TrimSpace(string(body))
	}

	switch v := jsonErr.Error.(type) {
	case string:
		if v != "" {
			return v
		}
	case map[string]any:
		if msg, ok := v["message"].(string); ok && msg != "" {
			return msg
		}
	}
	if jsonErr.Message != "" {
		return jsonErr.Message
	}

	if len(jsonErr.Errors) > 0 {
		details := make([]string, len(jsonErr.Errors))
		for i, e := range jsonErr.Errors {
			if e.Detail != "" {
				details[i] = fmt.Sprintf("%s: %s", e.Title, e.Detail)
			} else {
				details[i] = e.Title
			}
		}
		return strings.Join(details, "; ")
	}

	return strings.TrimSpace(string(body))
}

// parseRetryAfter accepts both delta-seconds and HTTP-date forms.
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

// IsHTTPError checks if an error is or wraps an HTTPError
func IsHTTPError(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr)
}

// GetHTTPStatusCode extracts the HTTP status code from an error chain.
func GetHTTPStatusCode(err error) (int, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode, true
	}
	return 0, false
}
