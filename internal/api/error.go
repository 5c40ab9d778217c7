package api

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Error is a non-2xx answer from the diagnosis API.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

// UserMessage is the text worth showing to a doctor, empty when the server
// gave nothing readable.
func (e *Error) UserMessage() string { return e.Message }

// detailMessage pulls a message out of a FastAPI style error body:
// {"detail": [{"msg": "..."}]} or {"detail": "..."}.
func detailMessage(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return ""
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &items); err == nil {
		if len(items) > 0 {
			return strings.TrimSpace(items[0].Msg)
		}
		return ""
	}

	var text string
	if err := json.Unmarshal(envelope.Detail, &text); err == nil {
		return strings.TrimSpace(text)
	}
	return ""
}
