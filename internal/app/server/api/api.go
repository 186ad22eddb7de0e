// API сервиса записей:
//
//	GET  /api/v1/health                          # Состояние сервиса и БД (публичный)
//	POST /api/auth/register/                     # Регистрация (публичный)
//	POST /api/auth/login/                        # Логин, выдает JWT (публичный)
//	POST /api/recordings/upload/                 # Загрузить аудио, multipart (auth)
//	GET  /api/recordings/by_patient/             # Записи пациента (auth)
//	POST /api/recordings/{id}/complete-request/  # Закрыть запрос записью (auth)
//	POST /api/recording-requests/                # Создать запрос, только провайдер (auth)
//	GET  /api/recording-requests/                # Запросы пациента (auth)
//	GET  /media/*                                # Файлы локального хранилища
package api

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/exp/slog"

	healthAPI "hypercase/internal/app/server/api/http/health"
	"hypercase/internal/app/server/api/http/httperr"
	"hypercase/internal/app/server/api/http/middleware"
	"hypercase/internal/app/server/api/http/middleware/auth"
	"hypercase/internal/app/server/api/http/middleware/bodylimit"
	"hypercase/internal/app/server/api/http/middleware/logger"
	recordingAPI "hypercase/internal/app/server/api/http/recording"
	userAPI "hypercase/internal/app/server/api/http/user"
	"hypercase/internal/app/server/config"
	"hypercase/internal/domain/recording"
	"hypercase/internal/domain/session"
	"hypercase/internal/domain/user"
	"hypercase/internal/infrastructure/objectstore"
	"hypercase/internal/infrastructure/storage/postgres"
)

// запас на поля формы и границы multipart сверх лимита файла
const formOverhead = 1 << 20

type Handlers struct {
	Health    *healthAPI.Handler
	User      *userAPI.Handler
	Recording *recordingAPI.Handler
}

// MediaServer - хранилище, которое само раздает свои файлы (локальный диск).
type MediaServer interface {
	Handler() http.Handler
}

// New создает *chi.Mux со всеми операциями через huma.Register
func New(cfg *config.Config, storage *postgres.Storage, store recording.ObjectStore, log *slog.Logger) *chi.Mux {
	httperr.Install()

	mux := chi.NewMux()
	mux.Use(chimw.Recoverer)
	mux.Use(bodylimit.New(cfg.Upload.MaxBytes+formOverhead, recording.TooLargeMessage(cfg.Upload.MaxBytes)))

	if media, ok := store.(MediaServer); ok {
		mux.Handle(objectstore.MediaPrefix+"*", media.Handler())
	}

	API := humachi.New(mux, httperr.Config("Hypercase API", "1.0.0"))

	h := handlers(cfg, storage, store, log)
	h.Health.SetupRoutes(API)
	h.User.SetupRoutes(API)
	h.Recording.SetupRoutes(API)

	return mux
}

func handlers(cfg *config.Config, storage *postgres.Storage, store recording.ObjectStore, log *slog.Logger) *Handlers {
	loggerMW := logger.New(log)
	middlewares := middleware.NewContainer(loggerMW.Middleware())

	healthHandler := healthAPI.NewHandler(storage, log, middlewares.GetAllAndClear())

	sessionRepo := postgres.NewSessionRepository(storage, log)
	sessionService := session.NewService(sessionRepo, cfg.Auth.Secret, cfg.Auth.TokenTTL, log)
	authMW := auth.New(sessionService, log)

	userRepo := postgres.NewUserRepository(storage.Pool(), log)
	userService := user.NewService(userRepo, user.NewPasswordValidator(), log)
	userHandler := userAPI.NewHandler(userService, sessionService, log, middlewares.GetAllAndClear())

	recordingService := recording.NewService(
		postgres.NewRecordingRepository(storage, log),
		postgres.NewRequestRepository(storage, log),
		store,
		recording.Policy{
			MaxBytes:       cfg.Upload.MaxBytes,
			AllowedFormats: cfg.Upload.AllowedFormats,
		},
		log,
	)
	middlewares.Add(authMW.Middleware())
	recordingHandler := recordingAPI.NewHandler(
		recordingService,
		log,
		middlewares.GetAllAndClear(),
		cfg.Upload.MaxBytes+formOverhead,
	)

	return &Handlers{
		Health:    healthHandler,
		User:      userHandler,
		Recording: recordingHandler,
	}
}
