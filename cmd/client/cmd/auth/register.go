package auth

import (
	"fmt"

	"github.com/spf13/cobra"

	"hypercase/cmd/client/cmd/types"
	"hypercase/internal/domain/user"
)

var registerRole string

var RegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Зарегистрировать нового пользователя",
	Long: `Регистрация пациента или провайдера на сервере.

Пациент записывает и загружает аудио, провайдер создает запросы на запись.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		role := user.Role(registerRole)
		if !role.Valid() {
			return fmt.Errorf("роль должна быть patient или provider, получено %q", registerRole)
		}

		fmt.Println("=== Регистрация нового пользователя ===")
		fmt.Println()

		email := readLine("Email: ")

		password, err := readPassword("Пароль: ")
		if err != nil {
			return err
		}
		confirm, err := readPassword("Повторите пароль: ")
		if err != nil {
			return err
		}
		if password != confirm {
			return fmt.Errorf("пароли не совпадают")
		}
		if len(password) < user.MinPasswordLen {
			return fmt.Errorf("пароль должен содержать минимум %d символов", user.MinPasswordLen)
		}

		fmt.Println("Регистрация...")
		id, err := app.Register(cmd.Context(), user.RegisterRequest{
			Email:    email,
			Password: password,
			Role:     role,
		})
		if err != nil {
			return fmt.Errorf("ошибка регистрации: %w", err)
		}

		fmt.Println()
		fmt.Printf("✅ Пользователь %d зарегистрирован\n", id)
		fmt.Println("Теперь вы можете войти в систему: hypercase auth login")

		return nil
	},
}

func init() {
	RegisterCmd.Flags().StringVar(&registerRole, "role", string(user.RolePatient), "роль: patient или provider")
}
