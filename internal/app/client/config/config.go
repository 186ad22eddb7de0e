package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultServerAddress = "localhost:8080"
	defaultEnv           = "local"
	defaultConfigDir     = ".hypercase"
	defaultPlatform      = "native"
	defaultFFmpegPath    = "ffmpeg"
)

type Config struct {
	Env               string `mapstructure:"app_env"`
	ServerAddress     string `mapstructure:"server_address"`
	EnableTLS         bool   `mapstructure:"enable_tls"`
	ConfigDir         string `mapstructure:"config_dir"`
	TokenPath         string `mapstructure:"token_path"`
	DataPath          string `mapstructure:"data_path"`
	RecordingsDir     string `mapstructure:"recordings_dir"`
	Platform          string `mapstructure:"platform"`
	FFmpegPath        string `mapstructure:"ffmpeg_path"`
	InputFormat       string `mapstructure:"input_format"`
	InputDevice       string `mapstructure:"input_device"`
	UploadTimeout     int    `mapstructure:"upload_timeout_seconds"`
	ConfirmMicrophone bool   `mapstructure:"confirm_microphone"`
}

// MustLoad загружает конфигурацию клиента: .env, YAML-файл, переменные окружения.
// configFile может быть пустым - тогда ищется ~/.hypercase/config.yaml.
func MustLoad(configFile string) *Config {
	cfg, err := Load(configFile)
	if err != nil {
		panic(fmt.Sprintf("Ошибка конфигурации: %v", err))
	}
	return cfg
}

func Load(configFile string) (*Config, error) {
	loadDotEnv()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", defaultEnv)
	v.SetDefault("SERVER_ADDRESS", defaultServerAddress)
	v.SetDefault("ENABLE_TLS", false)
	v.SetDefault("CONFIG_DIR", defaultConfigDir)
	v.SetDefault("PLATFORM", defaultPlatform)
	v.SetDefault("FFMPEG_PATH", defaultFFmpegPath)
	v.SetDefault("INPUT_FORMAT", defaultInputFormat())
	v.SetDefault("INPUT_DEVICE", defaultInputDevice())
	v.SetDefault("UPLOAD_TIMEOUT_SECONDS", 0)
	v.SetDefault("CONFIRM_MICROPHONE", true)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	if configFile != "" {
		if !fileExists(configFile) {
			return nil, fmt.Errorf("конфигурационный файл не найден: %s", configFile)
		}
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(filepath.Join(homeDir, defaultConfigDir))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("ошибка чтения конфигурационного файла: %w", err)
		}
	}

	configDir := v.GetString("CONFIG_DIR")
	if configDir == defaultConfigDir {
		configDir = filepath.Join(homeDir, configDir)
	}

	cfg := &Config{
		Env:               v.GetString("APP_ENV"),
		ServerAddress:     v.GetString("SERVER_ADDRESS"),
		EnableTLS:         v.GetBool("ENABLE_TLS"),
		ConfigDir:         configDir,
		TokenPath:         filepath.Join(configDir, "token"),
		DataPath:          filepath.Join(configDir, "history.db"),
		RecordingsDir:     filepath.Join(configDir, "recordings"),
		Platform:          v.GetString("PLATFORM"),
		FFmpegPath:        v.GetString("FFMPEG_PATH"),
		InputFormat:       v.GetString("INPUT_FORMAT"),
		InputDevice:       v.GetString("INPUT_DEVICE"),
		UploadTimeout:     v.GetInt("UPLOAD_TIMEOUT_SECONDS"),
		ConfirmMicrophone: v.GetBool("CONFIRM_MICROPHONE"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadDotEnv ищет .env рядом с местом запуска или уровнем выше.
func loadDotEnv() {
	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		envPath = "../.env"
	}

	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			fmt.Printf("Ошибка загрузки .env файла: %v\n", err)
		}
	}
}

func defaultInputFormat() string {
	switch {
	case fileExists("/proc/asound"):
		return "alsa"
	case fileExists("/System/Library"):
		return "avfoundation"
	default:
		return "pulse"
	}
}

func defaultInputDevice() string {
	if fileExists("/System/Library") {
		return ":0"
	}
	return "default"
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (c *Config) validate() error {
	if c.ServerAddress == "" {
		return fmt.Errorf("server_address не может быть пустым")
	}
	if c.Platform != "native" && c.Platform != "web" {
		return fmt.Errorf("platform должна быть native или web, получено %q", c.Platform)
	}
	if c.UploadTimeout < 0 {
		return fmt.Errorf("upload_timeout_seconds не может быть отрицательным")
	}
	return nil
}

// BaseURL - адрес сервера со схемой.
func (c *Config) BaseURL() string {
	if strings.HasPrefix(c.ServerAddress, "http://") || strings.HasPrefix(c.ServerAddress, "https://") {
		return strings.TrimRight(c.ServerAddress, "/")
	}

	scheme := "http://"
	if c.EnableTLS {
		scheme = "https://"
	}
	return scheme + strings.TrimRight(c.ServerAddress, "/")
}

// Timeout - таймаут HTTP-клиента; 0 означает без ограничения.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.UploadTimeout) * time.Second
}

// IsProd проверяет, prod ли окружение
func (c *Config) IsProd() bool {
	return c.Env == "prod"
}

// IsLocal проверяет, local ли окружение
func (c *Config) IsLocal() bool {
	return c.Env == "local" || c.Env == ""
}
