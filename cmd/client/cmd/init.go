package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"hypercase/cmd/client/cmd/auth"
	"hypercase/cmd/client/cmd/record"
	"hypercase/cmd/client/cmd/types"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Проверить настройки клиента",
	Long: `Команда init показывает, куда клиент сохраняет данные,
и проверяет соединение с сервером.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}
		cfg := app.Config()

		fmt.Println("=== Hypercase ===")
		fmt.Printf("Сервер:     %s\n", cfg.BaseURL())
		fmt.Printf("Режим:      %s\n", cfg.Platform)
		fmt.Printf("История:    %s\n", cfg.DataPath)
		fmt.Printf("Записи:     %s\n", cfg.RecordingsDir)
		fmt.Println()

		fmt.Println("Проверка соединения с сервером...")
		if err := app.CheckConnection(cmd.Context()); err != nil {
			fmt.Printf("⚠️  Сервер недоступен: %v\n", err)
			fmt.Println("Записывать можно, но загрузка не пройдет, пока сервер не ответит.")
			return nil
		}
		fmt.Println("✓ Соединение с сервером установлено")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)

	rootCmd.AddCommand(auth.AuthCmd)
	auth.AuthCmd.AddCommand(auth.RegisterCmd)
	auth.AuthCmd.AddCommand(auth.LoginCmd)
	auth.AuthCmd.AddCommand(auth.LogoutCmd)
	auth.AuthCmd.AddCommand(auth.StatusCmd)

	rootCmd.AddCommand(record.RecordCmd)
	rootCmd.AddCommand(record.RecordingsCmd)
	record.RecordingsCmd.AddCommand(record.ListCmd)
	record.RecordingsCmd.AddCommand(record.LinkCmd)
	rootCmd.AddCommand(record.RequestsCmd)
	record.RequestsCmd.AddCommand(record.RequestsListCmd)
}
