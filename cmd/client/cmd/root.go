package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"

	"hypercase/cmd/client/cmd/types"
	"hypercase/internal/app/client"
	"hypercase/internal/app/client/config"
	"hypercase/internal/utils/logger"
)

var (
	cfgFile   string
	debug     bool
	serverURL string
	platform  string
)

var rootCmd = &cobra.Command{
	Use:   "hypercase",
	Short: "Hypercase - запись голосовых заметок для провайдера",
	Long: `Hypercase записывает аудио с микрофона, загружает его на сервер
и при необходимости закрывает запрос провайдера на запись.

Начните с входа: hypercase auth login`,
	PersistentPreRunE:  setupApp,
	PersistentPostRunE: closeApp,
	SilenceUsage:       true,
	SilenceErrors:      true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, types.ErrShown) {
			fmt.Fprintf(os.Stderr, "Ошибка: %v\n", err)
		}
		os.Exit(1)
	}
}

func setupApp(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}

	// Флаги важнее файла и окружения
	if serverURL != "" {
		cfg.ServerAddress = serverURL
	}
	if platform != "" {
		cfg.Platform = platform
	}

	var log *slog.Logger
	if debug {
		log = logger.New(cfg.Env)
	} else {
		log = logger.Discard()
	}

	app, err := client.New(cfg, log)
	if err != nil {
		return fmt.Errorf("ошибка инициализации приложения: %w", err)
	}

	cmd.SetContext(context.WithValue(cmd.Context(), types.ClientAppKey, app))
	return nil
}

func closeApp(cmd *cobra.Command, _ []string) error {
	app, err := types.App(cmd)
	if err != nil {
		return nil
	}
	return app.Close()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "конфигурационный файл (по умолчанию ~/.hypercase/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "писать логи в stderr")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "адрес сервера")
	rootCmd.PersistentFlags().StringVar(&platform, "platform", "", "режим записи: native или web")
}
