package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/exp/slog"

	"hypercase/internal/app/client/auth"
	"hypercase/internal/domain/recording"
)

const partialMessage = "The recording was uploaded but the request could not be marked as complete."

// Linker отмечает запрос на запись выполненным. Загруженная запись
// при ошибке не откатывается.
type Linker struct {
	client  *http.Client
	baseURL string
	tokens  auth.TokenSource
	log     *slog.Logger
}

func NewLinker(client *http.Client, baseURL string, tokens auth.TokenSource, log *slog.Logger) *Linker {
	return &Linker{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		log:     log.With(slog.String("component", "request_linker")),
	}
}

// Complete возвращает ErrPartialSuccess на любой ошибке.
func (l *Linker) Complete(ctx context.Context, requestID, recordingID int64) error {
	if err := l.complete(ctx, requestID, recordingID); err != nil {
		l.log.Error("complete request",
			slog.Int64("request_id", requestID),
			slog.Int64("recording_id", recordingID),
			slog.String("error", err.Error()),
		)
		return &recording.DomainError{
			Err:     fmt.Errorf("%w: %v", recording.ErrPartialSuccess, err),
			Message: partialMessage,
			Code:    "partial_success",
		}
	}

	return nil
}

func (l *Linker) complete(ctx context.Context, requestID, recordingID int64) error {
	cred, err := l.tokens.Credential(ctx)
	if err != nil {
		return fmt.Errorf("credential: %w", err)
	}

	payload, err := json.Marshal(struct {
		RequestID int64 `json:"request_id"`
	}{RequestID: requestID})
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}

	url := l.baseURL + fmt.Sprintf(completePath, recordingID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	setBearer(req, cred.Token)

	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !success(resp.StatusCode) {
		return fmt.Errorf("status %d: %s", resp.StatusCode, errorMessage(body, resp.StatusCode))
	}

	return nil
}
