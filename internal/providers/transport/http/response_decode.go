package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/crmarques/orgsync/resource"
)

func encodeRequestBody(body resource.Value) ([]byte, error) {
	if body == nil {
		return nil, nil
	}

	normalized, err := resource.Normalize(body)
	if err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(normalized)
	if err != nil {
		return nil, validationError("failed to encode JSON request body", err)
	}
	return encoded, nil
}

func decodeJSONResponse(body []byte) (resource.Value, error) {
	value, err := resource.DecodeJSON(body)
	if err != nil {
		return nil, validationError("response body is not valid JSON", err)
	}
	return value, nil
}

func classifyStatusError(statusCode int, body []byte) error {
	message := fmt.Sprintf("remote request failed with status %d: %s", statusCode, summarizeBody(body))

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return authError(message, nil)
	case http.StatusNotFound:
		return notFoundError(message, nil)
	case http.StatusConflict:
		return conflictError(message, nil)
	case http.StatusTooManyRequests:
		return transportError(message, nil)
	}

	if statusCode >= 400 && statusCode < 500 {
		return validationError(message, nil)
	}
	return transportError(message, nil)
}

func summarizeBody(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return "<empty>"
	}
	if len(trimmed) > 512 {
		return trimmed[:512] + "..."
	}
	return trimmed
}
