package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/exp/slog"

	"hypercase/internal/app/client/auth"
	"hypercase/internal/app/client/capture"
	"hypercase/internal/domain/recording"
	"hypercase/internal/utils/logger"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Uploader отправляет staged-запись на сервер одним multipart POST.
type Uploader struct {
	client  *http.Client
	baseURL string
	tokens  auth.TokenSource
	now     func() time.Time
	log     *slog.Logger
}

func NewUploader(client *http.Client, baseURL string, tokens auth.TokenSource, log *slog.Logger) *Uploader {
	return &Uploader{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		now:     time.Now,
		log:     log.With(slog.String("component", "uploader")),
	}
}

func (u *Uploader) WithNow(now func() time.Time) *Uploader {
	u.now = now
	return u
}

// Upload возвращает серверный id записи. Все локальные проверки
// выполняются до сетевого вызова.
func (u *Uploader) Upload(ctx context.Context, staged *recording.Staged, meta recording.Metadata) (int64, error) {
	cred, err := u.credential(ctx)
	if err != nil {
		return 0, err
	}

	if staged == nil || staged.Artifact.Empty() {
		return 0, recording.NewError(recording.ErrValidation, "No recording to upload.")
	}

	meta.Title = strings.TrimSpace(meta.Title)
	if meta.Title == "" {
		return 0, recording.NewError(recording.ErrValidation, "Please enter a name for the recording")
	}

	part, err := openArtifact(staged.Artifact, meta.Title)
	if err != nil {
		return 0, recording.NewError(recording.ErrCaptureFailure, "Recording file is not available: %v", err)
	}

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeForm(form, part, meta))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.baseURL+uploadPath, pr)
	if err != nil {
		_ = pr.Close()
		return 0, fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	setBearer(req, cred.Token)

	u.log.Debug("uploading recording",
		slog.String("url", req.URL.String()),
		slog.String("file", part.name),
		slog.Int("duration", staged.DurationSeconds),
	)

	resp, err := u.client.Do(req)
	if err != nil {
		_ = pr.Close()
		u.log.Error("upload transport failure", logger.Err(err))
		return 0, recording.NewError(recording.ErrNetwork, "Failed to upload recording. Please check your connection and try again.")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, recording.NewError(recording.ErrNetwork, "Failed to read upload response: %v", err)
	}

	u.log.Debug("upload response", slog.Int("status", resp.StatusCode))

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return 0, recording.NewError(recording.ErrUnauthorized, "Unauthorized: Session expired. Please log in again.")
	case !success(resp.StatusCode):
		return 0, recording.NewError(recording.ErrServer, "%s", errorMessage(body, resp.StatusCode))
	}

	var created struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(body, &created); err != nil || created.ID == 0 {
		return 0, recording.NewError(recording.ErrServer, "Unexpected response from server: %s", errorMessage(body, resp.StatusCode))
	}

	return created.ID, nil
}

func (u *Uploader) credential(ctx context.Context) (auth.Credential, error) {
	cred, err := u.tokens.Credential(ctx)
	if err != nil {
		if !errors.Is(err, auth.ErrNoCredential) {
			u.log.Warn("read credential", logger.Err(err))
		}
		return auth.Credential{}, recording.NewError(recording.ErrAuthRequired, "Please log in to upload recordings.")
	}

	if cred.Expired(u.now()) {
		return auth.Credential{}, recording.SessionExpired()
	}

	return cred, nil
}

type filePart struct {
	name        string
	contentType string
	body        io.ReadCloser
}

// openArtifact: web - {title}.webm с типом блоба, native - расширение исходного
// файла и audio/<ext>, где mp4 становится m4a.
func openArtifact(a recording.Artifact, title string) (filePart, error) {
	if a.Blob != nil && len(a.Blob.Data) > 0 {
		ct := a.Blob.Type
		if ct == "" {
			ct = capture.WebMIME
		}
		return filePart{
			name:        title + ".webm",
			contentType: ct,
			body:        io.NopCloser(bytes.NewReader(a.Blob.Data)),
		}, nil
	}

	path, err := localPath(a.URI)
	if err != nil {
		return filePart{}, err
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "" {
		ext = "m4a"
	}
	subtype := ext
	if subtype == "mp4" {
		subtype = "m4a"
	}

	f, err := os.Open(path)
	if err != nil {
		return filePart{}, err
	}

	return filePart{
		name:        title + "." + ext,
		contentType: "audio/" + subtype,
		body:        f,
	}, nil
}

func localPath(uri string) (string, error) {
	if !strings.Contains(uri, "://") {
		return uri, nil
	}

	parsed, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("parse artifact uri: %w", err)
	}
	if parsed.Scheme != "file" {
		return "", fmt.Errorf("unsupported artifact scheme %q", parsed.Scheme)
	}

	return filepath.FromSlash(parsed.Path), nil
}

func writeForm(form *multipart.Writer, part filePart, meta recording.Metadata) error {
	defer part.body.Close()

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(part.name)))
	header.Set("Content-Type", part.contentType)

	w, err := form.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(w, part.body); err != nil {
		return fmt.Errorf("write file part: %w", err)
	}

	fields := []struct{ name, value string }{
		{"title", meta.Title},
		{"description", meta.Description},
	}
	if meta.PatientID != "" {
		fields = append(fields, struct{ name, value string }{"patient_id", meta.PatientID})
	}

	for _, f := range fields {
		if err := form.WriteField(f.name, f.value); err != nil {
			return fmt.Errorf("write field %s: %w", f.name, err)
		}
	}

	return form.Close()
}
