package bodylimit

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const message = "File too large. Max size is 1MB"

// readAll ведет себя как парсер формы: при ошибке чтения отвечает 413.
func readAll(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		if _, err := io.ReadAll(r.Body); err != nil {
			w.Header().Set("Content-Type", "application/problem+json")
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			_, _ = io.WriteString(w, `{"title":"Request Entity Too Large"}`)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":1}`)
	})
}

func form(t *testing.T, size int) (string, []byte) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "a.webm")
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte("x"), size))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	return mw.FormDataContentType(), buf.Bytes()
}

func TestNew(t *testing.T) {
	const limit = 1024

	tests := []struct {
		name        string
		size        int
		chunked     bool
		contentType string
		status      int
		body        string
		reached     bool
	}{
		{name: "small upload passes", size: 10, status: http.StatusCreated, body: `{"id":1}`, reached: true},
		{name: "chunked upload over limit", size: 4096, chunked: true, status: http.StatusBadRequest, body: `{"error":"` + message + `"}`, reached: true},
		{name: "declared length over limit", size: 4096, status: http.StatusBadRequest, body: `{"error":"` + message + `"}`},
		{name: "json over limit keeps 413", size: 4096, contentType: "application/json", status: http.StatusRequestEntityTooLarge, body: `{"title":"Request Entity Too Large"}`, reached: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ct, data := form(t, tt.size)
			if tt.contentType != "" {
				ct = tt.contentType
			}

			var reader io.Reader = bytes.NewReader(data)
			if tt.chunked {
				reader = io.MultiReader(bytes.NewReader(data))
			}
			req := httptest.NewRequest(http.MethodPost, "/api/recordings/upload/", reader)
			req.Header.Set("Content-Type", ct)
			rr := httptest.NewRecorder()

			called := false
			New(limit, message)(readAll(&called)).ServeHTTP(rr, req)

			assert.Equal(t, tt.status, rr.Code)
			assert.JSONEq(t, tt.body, rr.Body.String())
			assert.Equal(t, tt.reached, called)
			if tt.status == http.StatusBadRequest {
				assert.True(t, strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json"))
			}
		})
	}
}
