package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"hypercase/cmd/client/cmd/types"
	clientauth "hypercase/internal/app/client/auth"
	"hypercase/internal/domain/recording"
)

var StatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Проверить сохраненный токен",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		cred, err := app.Status(cmd.Context())
		switch {
		case errors.Is(err, clientauth.ErrNoCredential):
			fmt.Println("Вход не выполнен: hypercase auth login")
			return nil
		case errors.Is(err, recording.ErrAuthRequired):
			_, message := recording.AlertFor(err)
			fmt.Println(message)
			return nil
		case err != nil:
			return err
		}

		if cred.ExpiresAt.IsZero() {
			fmt.Println("✓ Вход выполнен, срок токена не ограничен")
			return nil
		}
		fmt.Printf("✓ Вход выполнен, токен действует до %s\n", cred.ExpiresAt.Local().Format(time.DateTime))
		return nil
	},
}
