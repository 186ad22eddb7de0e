package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/exp/slog"

	"hypercase/internal/app/client/auth"
	"hypercase/internal/app/client/config"
	"hypercase/internal/domain/recording"
	"hypercase/internal/domain/user"
	"hypercase/internal/utils/logger"
)

const userAgent = "Hypercase-Client/1.0"

type httpClient struct {
	client  *http.Client
	tokens  auth.TokenSource
	log     *slog.Logger
	baseURL string
}

// newTransportClient - общий HTTP-клиент для API и загрузки. Timeout 0 - без ограничения.
func newTransportClient(cfg *config.Config) *http.Client {
	return &http.Client{
		Timeout: cfg.Timeout(),
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			MaxIdleConnsPerHost: 10,
		},
	}
}

func NewHTTPClient(client *http.Client, baseURL string, tokens auth.TokenSource, log *slog.Logger) *httpClient {
	return &httpClient{
		client:  client,
		tokens:  tokens,
		log:     log.With(slog.String("component", "api_client")),
		baseURL: baseURL,
	}
}

// HealthCheck проверяет доступность сервера
func (h *httpClient) HealthCheck(ctx context.Context) error {
	resp, err := h.doRequest(ctx, http.MethodGet, "/api/v1/health", nil)
	if err != nil {
		return fmt.Errorf("сервер недоступен: %w", err)
	}

	return h.parseResponse(resp, nil)
}

func (h *httpClient) Login(ctx context.Context, creds user.Credentials) (user.Session, error) {
	var session user.Session

	resp, err := h.doRequest(ctx, http.MethodPost, "/api/auth/login/", creds)
	if err != nil {
		return session, err
	}

	if err := h.parseResponse(resp, &session); err != nil {
		return session, err
	}
	if session.Token == "" {
		return session, recording.NewError(recording.ErrServer, "Server returned no token")
	}

	return session, nil
}

func (h *httpClient) Register(ctx context.Context, req user.RegisterRequest) (int64, error) {
	resp, err := h.doRequest(ctx, http.MethodPost, "/api/auth/register/", req)
	if err != nil {
		return 0, err
	}

	var out user.RegisterResponse
	if err := h.parseResponse(resp, &out); err != nil {
		return 0, err
	}

	return out.ID, nil
}

// RecordingsByPatient - серверный список записей пациента.
func (h *httpClient) RecordingsByPatient(ctx context.Context, patientID string) ([]recording.Recording, error) {
	q := url.Values{}
	q.Set("patient_id", patientID)

	resp, err := h.doRequest(ctx, http.MethodGet, "/api/recordings/by_patient/?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var recordings []recording.Recording
	if err := h.parseResponse(resp, &recordings); err != nil {
		return nil, err
	}

	return recordings, nil
}

// Requests - запросы на запись; пустой status не фильтрует.
func (h *httpClient) Requests(ctx context.Context, patientID string, status recording.RequestStatus) ([]recording.Request, error) {
	q := url.Values{}
	if patientID != "" {
		q.Set("patient_id", patientID)
	}
	if status != "" {
		q.Set("status", string(status))
	}

	path := "/api/recording-requests/"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	resp, err := h.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var requests []recording.Request
	if err := h.parseResponse(resp, &requests); err != nil {
		return nil, err
	}

	return requests, nil
}

func (h *httpClient) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("ошибка маршалинга тела запроса: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cred, err := h.tokens.Credential(ctx); err == nil && cred.Token != "" {
		req.Header.Set("Authorization", "Bearer "+cred.Token)
	} else if err != nil && !errors.Is(err, auth.ErrNoCredential) {
		h.log.Warn("read credential", logger.Err(err))
	}

	h.log.Debug("Отправка запроса",
		slog.String("method", method),
		slog.String("url", req.URL.String()),
	)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, recording.NewError(recording.ErrNetwork, "Could not reach the server: %v", err)
	}

	return resp, nil
}

func (h *httpClient) parseResponse(resp *http.Response, result any) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	h.log.Debug("Получен ответ",
		slog.Int("status", resp.StatusCode),
		slog.Int("size", len(body)),
	)

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(body, &errResp)

		switch {
		case resp.StatusCode == http.StatusUnauthorized && errResp.Error != "" && errResp.Error != "Unauthorized":
			return recording.NewError(recording.ErrUnauthorized, "%s", errResp.Error)
		case resp.StatusCode == http.StatusUnauthorized:
			return recording.NewError(recording.ErrUnauthorized, "Unauthorized: Session expired. Please log in again.")
		case errResp.Error != "":
			return recording.NewError(recording.ErrServer, "%s", errResp.Error)
		default:
			return recording.NewError(recording.ErrServer, "Server responded with status %d", resp.StatusCode)
		}
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("ошибка парсинга ответа: %w", err)
		}
	}

	return nil
}
