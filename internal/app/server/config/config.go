package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"hypercase/internal/domain/recording"
)

const (
	envPath   = ".env"
	SecretKey = "SecRetKey"
	EnvLocal  = "local"
	EnvDev    = "dev"
	EnvProd   = "prod"
)

type Config struct {
	Env     string `validate:"oneof=local dev prod"`
	DB      DB
	Server  Server
	Auth    Auth
	Upload  Upload
	Storage Storage
}

type DB struct {
	DatabaseURI string `validate:"required"`
	Migrations  string `validate:"required"`
}

type Server struct {
	RunAddress string `validate:"required"`
}

type Auth struct {
	Secret   string        `validate:"required"`
	TokenTTL time.Duration `validate:"gt=0"`
}

type Upload struct {
	MaxBytes       int64 `validate:"gt=0"`
	AllowedFormats []string
}

type Storage struct {
	MediaDir string
	S3       S3
}

type S3 struct {
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
}

// UseS3 - файлы уходят в бакет; иначе складываются в MediaDir.
func (s Storage) UseS3() bool {
	return s.S3.Bucket != ""
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

func Load() (*Config, error) {
	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("read %s: %v", envPath, err)
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("app_env", EnvLocal)
	v.SetDefault("run_address", ":8080")
	v.SetDefault("migrations_path", "migrations")
	v.SetDefault("jwt_secret", SecretKey)
	v.SetDefault("token_ttl_minutes", 24*60)
	v.SetDefault("max_upload_mb", 50)
	v.SetDefault("allowed_audio_formats", strings.Join(recording.DefaultAllowedFormats, ","))
	v.SetDefault("media_dir", "media")
	v.SetDefault("s3_region", "us-east-1")

	cfg := &Config{
		Env: v.GetString("app_env"),
		DB: DB{
			DatabaseURI: v.GetString("database_uri"),
			Migrations:  v.GetString("migrations_path"),
		},
		Server: Server{RunAddress: v.GetString("run_address")},
		Auth: Auth{
			Secret:   v.GetString("jwt_secret"),
			TokenTTL: time.Duration(v.GetInt("token_ttl_minutes")) * time.Minute,
		},
		Upload: Upload{
			MaxBytes:       v.GetInt64("max_upload_mb") << 20,
			AllowedFormats: splitList(v.GetString("allowed_audio_formats")),
		},
		Storage: Storage{
			MediaDir: strings.TrimSpace(v.GetString("media_dir")),
			S3: S3{
				Bucket:          v.GetString("s3_bucket"),
				Region:          v.GetString("s3_region"),
				AccessKeyID:     v.GetString("aws_access_key_id"),
				SecretAccessKey: v.GetString("aws_secret_access_key"),
				Endpoint:        v.GetString("s3_endpoint"),
			},
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Env == EnvProd && c.Auth.Secret == SecretKey {
		return errors.New("invalid config: JWT_SECRET must be set in prod")
	}
	if !c.Storage.UseS3() && c.Storage.MediaDir == "" {
		return errors.New("invalid config: either S3_BUCKET or MEDIA_DIR is required")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
