package types

import (
	"errors"

	"github.com/spf13/cobra"

	"hypercase/internal/app/client"
)

type contextKey string

// ClientAppKey - ключ *client.App в контексте команды.
const ClientAppKey contextKey = "client_app"

// ErrShown - ошибка уже показана пользователю, повторно не печатаем.
var ErrShown = errors.New("error already shown")

// App достает приложение из контекста команды.
func App(cmd *cobra.Command) (*client.App, error) {
	app, ok := cmd.Context().Value(ClientAppKey).(*client.App)
	if !ok || app == nil {
		return nil, errors.New("приложение не инициализировано")
	}
	return app, nil
}
