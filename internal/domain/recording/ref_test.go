package recording

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePatientRef(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want PatientRef
	}{
		{name: "empty", raw: "", want: PatientRef{}},
		{name: "blank", raw: "   ", want: PatientRef{}},
		{name: "json null", raw: "null", want: PatientRef{}},
		{name: "undefined", raw: "undefined", want: PatientRef{}},
		{name: "bare number", raw: "12", want: PatientRef{ID: "12", OK: true}},
		{name: "json string", raw: `"12"`, want: PatientRef{ID: "12", OK: true}},
		{name: "json empty string", raw: `""`, want: PatientRef{}},
		{name: "object with numeric id", raw: `{"id": 12, "name": "Ann"}`, want: PatientRef{ID: "12", OK: true}},
		{name: "object with string id", raw: `{"id": "p-7"}`, want: PatientRef{ID: "p-7", OK: true}},
		{name: "object without id", raw: `{"name": "Ann"}`, want: PatientRef{}},
		{name: "object with null id", raw: `{"id": null}`, want: PatientRef{}},
		{name: "plain text", raw: "abc-123", want: PatientRef{ID: "abc-123", OK: true}},
		{name: "json bool", raw: "true", want: PatientRef{}},
		{name: "json array", raw: "[1,2]", want: PatientRef{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePatientRef(tt.raw))
		})
	}
}

func TestParseRequestRef(t *testing.T) {
	t.Run("bare id", func(t *testing.T) {
		req := ParseRequestRef("7")
		require.NotNil(t, req)
		assert.Equal(t, int64(7), req.ID)
		assert.Equal(t, RequestStatusSent, req.Status)
	})

	t.Run("json object", func(t *testing.T) {
		req := ParseRequestRef(`{"id": 7, "title": "Morning cough", "status": "sent"}`)
		require.NotNil(t, req)
		assert.Equal(t, int64(7), req.ID)
		assert.Equal(t, "Morning cough", req.Title)
		assert.False(t, req.Completed())
	})

	t.Run("json object with string id", func(t *testing.T) {
		req := ParseRequestRef(`{"id": "9"}`)
		require.NotNil(t, req)
		assert.Equal(t, int64(9), req.ID)
	})

	for _, raw := range []string{"", "null", "0", "-3", "abc", `{"title": "x"}`, `{"id": "x"}`} {
		t.Run("absent "+raw, func(t *testing.T) {
			assert.Nil(t, ParseRequestRef(raw))
		})
	}
}
