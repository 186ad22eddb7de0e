// Package bodylimit ограничивает размер тела запроса. Превышение в multipart-загрузке
// отдается как 400 с тем же текстом, что и проверка размера в сервисе.
package bodylimit

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"sync/atomic"

	"hypercase/internal/app/server/api/http/httperr"
)

// New возвращает chi-мидлварь. limit - максимум тела целиком, message - текст ошибки.
func New(limit int64, message string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isMultipart(r) {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength > limit {
				tooLarge(w, message)
				return
			}

			b := &body{rc: http.MaxBytesReader(w, r.Body, limit)}
			r.Body = b
			next.ServeHTTP(&writer{ResponseWriter: w, body: b, message: message}, r)
		})
	}
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

func tooLarge(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(httperr.New(http.StatusBadRequest, message))
}

// body запоминает, что чтение уперлось в лимит.
type body struct {
	rc       io.ReadCloser
	exceeded atomic.Bool
}

func (b *body) Read(p []byte) (int, error) {
	n, err := b.rc.Read(p)
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		b.exceeded.Store(true)
	}
	return n, err
}

func (b *body) Close() error {
	return b.rc.Close()
}

// writer подменяет ответ об ошибке, если тело было обрезано по лимиту.
type writer struct {
	http.ResponseWriter
	body     *body
	message  string
	wrote    bool
	replaced bool
}

func (w *writer) WriteHeader(code int) {
	if w.wrote {
		return
	}
	w.wrote = true

	if code >= http.StatusBadRequest && w.body.exceeded.Load() {
		w.replaced = true
		tooLarge(w.ResponseWriter, w.message)
		return
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *writer) Write(p []byte) (int, error) {
	if !w.wrote {
		w.WriteHeader(http.StatusOK)
	}
	if w.replaced {
		return len(p), nil
	}
	return w.ResponseWriter.Write(p)
}

func (w *writer) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
