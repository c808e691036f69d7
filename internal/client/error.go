package client

import (
	"encoding/json"
	"fmt"
	"strings"
)

// APIError is a server error payload kept structure-preserving so field-level
// messages stay addressable. Raw always holds the untouched body.
type APIError struct {
	Status int
	Detail string
	Fields map[string][]string
	Raw    json.RawMessage
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api error %d: %s", e.Status, e.Detail)
	}
	if len(e.Fields) > 0 {
		var parts []string
		for field, msgs := range e.Fields {
			parts = append(parts, field+": "+strings.Join(msgs, "; "))
		}
		return fmt.Sprintf("api error %d: %s", e.Status, strings.Join(parts, ", "))
	}
	return fmt.Sprintf("api error %d", e.Status)
}

// FieldError returns the first message stored for a field, or "".
func (e *APIError) FieldError(field string) string {
	if msgs := e.Fields[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// decodeAPIError parses a non-2xx body. The backend uses either
// {"detail": "..."} / {"error": "..."} or a field-keyed map of message lists.
func decodeAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status, Raw: append(json.RawMessage(nil), body...)}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		apiErr.Detail = strings.TrimSpace(string(body))
		return apiErr
	}

	for key, raw := range payload {
		var single string
		if err := json.Unmarshal(raw, &single); err == nil {
			if key == "detail" || key == "error" {
				apiErr.Detail = single
				continue
			}
			addField(apiErr, key, single)
			continue
		}
		var many []string
		if err := json.Unmarshal(raw, &many); err == nil {
			for _, msg := range many {
				addField(apiErr, key, msg)
			}
		}
	}
	return apiErr
}

func addField(e *APIError, field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}
