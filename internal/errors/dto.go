package errors

import (
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrorResponse is the JSON envelope every failed request returns
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

// ErrorDetail carries the member-facing message and the safe structured
// details attached through the builder
type ErrorDetail struct {
	Display string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// NewErrorResponse renders an error into the response envelope: the innermost
// hint becomes the display message and reportable details are collected from
// the whole chain
func NewErrorResponse(err error) ErrorResponse {
	return ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Display: displayMessage(err),
			Details: safeDetails(err),
		},
	}
}

func displayMessage(err error) string {
	// GetAllHints is a post-order traversal; the first non-empty hint is the
	// innermost, most specific one
	for _, hint := range errors.GetAllHints(err) {
		if hint = strings.TrimSpace(hint); hint != "" {
			return hint
		}
	}
	return "An unexpected error occurred"
}

func safeDetails(err error) map[string]any {
	details := make(map[string]any)
	for _, sdp := range errors.GetAllSafeDetails(err) {
		for _, payload := range sdp.SafeDetails {
			if !strings.HasPrefix(payload, jsonDetailsPrefix) {
				continue
			}
			var decoded map[string]any
			if err := json.Unmarshal([]byte(payload[len(jsonDetailsPrefix):]), &decoded); err != nil {
				continue
			}
			for k, v := range decoded {
				details[k] = v
			}
		}
	}
	return details
}
