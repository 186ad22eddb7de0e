// Package httperr приводит ошибки API к виду {"error": "..."}.
package httperr

import (
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"hypercase/internal/domain/recording"
	"hypercase/internal/utils/logger"
)

type Error struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) GetStatus() int {
	return e.Status
}

func (e *Error) ContentType(string) string {
	return "application/json"
}

// New заменяет huma.NewError. Первая деталь валидации дописывается к сообщению.
func New(status int, msg string, errs ...error) huma.StatusError {
	if msg == "" {
		msg = http.StatusText(status)
	}
	for _, err := range errs {
		if err != nil {
			msg += ": " + err.Error()
			break
		}
	}
	return &Error{Status: status, Message: msg}
}

// Install подменяет фабрику ошибок huma. Вызывается до регистрации операций.
func Install() {
	huma.NewError = New
}

// FromRecording переводит ошибки домена записей в HTTP-статусы.
func FromRecording(err error, log *slog.Logger) error {
	message := err.Error()
	var de *recording.DomainError
	if errors.As(err, &de) && de.Message != "" {
		message = de.Message
	}

	switch {
	case errors.Is(err, recording.ErrInvalidInput):
		return New(http.StatusBadRequest, message)
	case errors.Is(err, recording.ErrForbidden):
		return New(http.StatusForbidden, message)
	case errors.Is(err, recording.ErrNotFound):
		return New(http.StatusNotFound, message)
	case errors.Is(err, recording.ErrAlreadyCompleted):
		return New(http.StatusConflict, message)
	default:
		log.Error("request failed", logger.Err(err))
		return New(http.StatusInternalServerError, "Internal server error")
	}
}

// Config - настройки huma для API: bearer-схема и ответы без поля $schema.
func Config(title, version string) huma.Config {
	config := huma.DefaultConfig(title, version)
	config.CreateHooks = nil
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {Type: "http", Scheme: "bearer", BearerFormat: "JWT"},
	}
	return config
}
