package recording

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// PatientRef is a patient identifier resolved from whatever shape the caller
// passed. OK is false when no identifier could be extracted.
type PatientRef struct {
	ID string
	OK bool
}

// ParsePatientRef accepts a bare identifier or a JSON object with an "id" field.
func ParsePatientRef(raw string) PatientRef {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" || raw == "undefined" {
		return PatientRef{}
	}

	var v any
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		// not JSON: the raw text is the identifier
		return PatientRef{ID: raw, OK: true}
	}

	switch t := v.(type) {
	case map[string]any:
		return scalarRef(t["id"])
	default:
		return scalarRef(t)
	}
}

func scalarRef(v any) PatientRef {
	switch t := v.(type) {
	case json.Number:
		return PatientRef{ID: t.String(), OK: true}
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return PatientRef{}
		}
		return PatientRef{ID: s, OK: true}
	default:
		return PatientRef{}
	}
}

// ParseRequestRef resolves a recording request reference: a JSON-encoded
// request object or a bare numeric id. Returns nil when absent or unusable.
func ParseRequestRef(raw string) *Request {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil
	}

	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if id <= 0 {
			return nil
		}
		return &Request{ID: id, Status: RequestStatusSent}
	}

	var payload struct {
		ID          json.Number   `json:"id"`
		Title       string        `json:"title"`
		Description string        `json:"description"`
		Status      RequestStatus `json:"status"`
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil
	}

	id, err := payload.ID.Int64()
	if err != nil || id <= 0 {
		return nil
	}

	status := payload.Status
	if status == "" {
		status = RequestStatusSent
	}

	return &Request{
		ID:          id,
		Title:       payload.Title,
		Description: payload.Description,
		Status:      status,
	}
}
