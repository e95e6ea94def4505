package store

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// APIError represents an error response from the store
type APIError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	ErrorCode  string `json:"error"`
}

func (e APIError) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("store error %d: %s - %s", e.StatusCode, e.ErrorCode, e.Message)
	}
	return fmt.Sprintf("store error %d: %s", e.StatusCode, e.Message)
}

// Is reports 404 responses as ErrNotFound
func (e APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Temporary reports whether the request may succeed when repeated
func (e APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// parseAPIError builds an APIError from an error response body.
// Both {"detail": ...} and {"error": ..., "message": ...} shapes are understood.
func parseAPIError(statusCode int, body []byte) APIError {
	apiErr := APIError{StatusCode: statusCode}

	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Error   string          `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		apiErr.Message = strings.TrimSpace(string(body))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(statusCode)
		}
		return apiErr
	}

	apiErr.ErrorCode = payload.Error
	apiErr.Message = payload.Message

	if len(payload.Detail) > 0 {
		var detail string
		if err := json.Unmarshal(payload.Detail, &detail); err == nil {
			apiErr.Message = detail
		} else {
			apiErr.Message = string(payload.Detail)
		}
	}

	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(statusCode)
	}

	return apiErr
}
