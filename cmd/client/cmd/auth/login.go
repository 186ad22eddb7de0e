package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"hypercase/cmd/client/cmd/types"
	"hypercase/internal/domain/user"
)

var loginEmail string

var LoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Войти в систему",
	Long: `Аутентификация на сервере.

После входа токен сохраняется локально и используется для загрузки записей.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		fmt.Println("=== Вход в систему ===")
		fmt.Println()

		email := loginEmail
		if email == "" {
			email = readLine("Email: ")
		}

		password, err := readPassword("Пароль: ")
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		cred, err := app.Login(ctx, user.Credentials{Email: email, Password: password})
		if err != nil {
			return fmt.Errorf("ошибка аутентификации: %w", err)
		}

		fmt.Println()
		fmt.Println("✅ Вход выполнен успешно!")
		if !cred.ExpiresAt.IsZero() {
			fmt.Printf("Токен действует до %s\n", cred.ExpiresAt.Local().Format(time.DateTime))
		}

		return nil
	},
}

func init() {
	LoginCmd.Flags().StringVarP(&loginEmail, "email", "e", "", "email пользователя")
}
