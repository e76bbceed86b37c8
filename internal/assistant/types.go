// Package assistant is the client for the campus assistant backend.
package assistant

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DefaultQuestion is asked by SimpleChat when the question is empty.
const DefaultQuestion = "图书馆在哪里"

// ChatRequest is the body of a stateful chat call.
type ChatRequest struct {
	UserID  string `json:"userId"`
	Message string `json:"message"`
}

// AnswerType categorizes assistant answers.
type AnswerType string

const (
	AnswerWeather AnswerType = "weather"
	AnswerCourse  AnswerType = "course"
	AnswerLibrary AnswerType = "library"
	AnswerGeneral AnswerType = "general"
)

// Known reports whether t is one of the documented answer types. The
// backend owns the enum, so unknown values are kept rather than rejected.
func (t AnswerType) Known() bool {
	switch t {
	case AnswerWeather, AnswerCourse, AnswerLibrary, AnswerGeneral:
		return true
	}
	return false
}

// AssistantResponse is the backend's reply to a stateful chat call.
type AssistantResponse struct {
	UserID           string     `json:"userId,omitempty" yaml:"userId,omitempty"`
	ThreadID         string     `json:"threadId,omitempty" yaml:"threadId,omitempty"`
	Answer           string     `json:"answer" yaml:"answer"`
	Type             AnswerType `json:"type" yaml:"type"`
	Suggestion       string     `json:"suggestion" yaml:"suggestion"`
	NeedsFurtherHelp bool       `json:"needsFurtherHelp" yaml:"needsFurtherHelp"`
}

// HistoryRecord is the success variant of a history lookup.
type HistoryRecord struct {
	UserID   string `json:"userId" yaml:"userId"`
	ThreadID string `json:"threadId" yaml:"threadId"`
	History  string `json:"history" yaml:"history"`
}

// HistoryError is the error variant of a history lookup. The backend uses
// it both for "no history for this user" and for its own failures.
type HistoryError struct {
	Message string `json:"error" yaml:"error"`
}

// HistoryResult is either a record or a backend-reported error. Exactly
// one of Record and Err is set. The variant is chosen by the presence of
// an "error" key in the body, never by the HTTP status.
type HistoryResult struct {
	Record *HistoryRecord
	Err    *HistoryError
}

// IsError reports whether the backend answered with an error body.
func (r *HistoryResult) IsError() bool {
	return r.Err != nil
}

// UnmarshalJSON picks the variant from the body shape.
func (r *HistoryResult) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("decode history body: %w", err)
	}

	if raw, ok := fields["error"]; ok {
		var msg string
		if err := json.Unmarshal(raw, &msg); err != nil {
			msg = string(bytes.TrimSpace(raw))
		}
		*r = HistoryResult{Err: &HistoryError{Message: msg}}
		return nil
	}

	var rec HistoryRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("decode history record: %w", err)
	}
	*r = HistoryResult{Record: &rec}
	return nil
}

// MarshalJSON writes the variant back in the backend's body shape.
func (r HistoryResult) MarshalJSON() ([]byte, error) {
	if r.Err != nil {
		return json.Marshal(r.Err)
	}
	if r.Record != nil {
		return json.Marshal(r.Record)
	}
	return []byte("null"), nil
}
