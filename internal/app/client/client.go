package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/exp/slog"

	"hypercase/internal/app/client/auth"
	"hypercase/internal/app/client/capture"
	"hypercase/internal/app/client/config"
	"hypercase/internal/app/client/pipeline"
	"hypercase/internal/app/client/upload"
	"hypercase/internal/domain/recording"
	"hypercase/internal/domain/user"
	"hypercase/internal/utils/logger"
)

type App struct {
	config     *config.Config
	log        *slog.Logger
	transport  *http.Client
	httpClient *httpClient
	tokens     *auth.FileTokenStore
	storage    *SQLiteStorage
	linker     *upload.Linker
}

func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	if err := setupDirectories(cfg); err != nil {
		return nil, err
	}

	storage, err := NewSQLiteStorage(cfg.DataPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации истории: %w", err)
	}

	tokens := auth.NewFileTokenStore(cfg.TokenPath)
	transport := newTransportClient(cfg)
	baseURL := cfg.BaseURL()

	return &App{
		config:     cfg,
		log:        log,
		transport:  transport,
		httpClient: NewHTTPClient(transport, baseURL, tokens, log),
		tokens:     tokens,
		storage:    storage,
		linker:     upload.NewLinker(transport, baseURL, tokens, log),
	}, nil
}

// setupDirectories создает каталог конфигурации и каталог записей.
func setupDirectories(cfg *config.Config) error {
	for _, dir := range []string{cfg.ConfigDir, cfg.RecordingsDir} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("ошибка создания директории %s: %w", dir, err)
		}
	}
	return nil
}

func (a *App) Config() *config.Config {
	return a.config
}

// CheckConnection проверяет соединение с сервером
func (a *App) CheckConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return a.httpClient.HealthCheck(ctx)
}

// ==================== Auth ====================

func (a *App) Register(ctx context.Context, req user.RegisterRequest) (int64, error) {
	id, err := a.httpClient.Register(ctx, req)
	if err != nil {
		return 0, err
	}

	a.log.Info("Пользователь зарегистрирован", slog.String("email", req.Email), slog.Int64("user_id", id))
	return id, nil
}

// Login получает токен и сохраняет его в файл.
func (a *App) Login(ctx context.Context, creds user.Credentials) (auth.Credential, error) {
	session, err := a.httpClient.Login(ctx, creds)
	if err != nil {
		return auth.Credential{}, err
	}

	cred, err := auth.ParseCredential(session.Token)
	if err != nil {
		return auth.Credential{}, fmt.Errorf("сервер вернул некорректный токен: %w", err)
	}

	if err := a.tokens.Save(session.Token); err != nil {
		return auth.Credential{}, fmt.Errorf("ошибка сохранения токена: %w", err)
	}

	a.log.Info("Вход выполнен успешно", slog.String("email", creds.Email))
	return cred, nil
}

func (a *App) Logout() error {
	return a.tokens.Clear()
}

// Status возвращает сохраненный токен. Истекший токен возвращается вместе с ошибкой.
func (a *App) Status(ctx context.Context) (auth.Credential, error) {
	cred, err := a.tokens.Credential(ctx)
	if err != nil {
		return cred, err
	}
	if cred.Expired(time.Now()) {
		return cred, recording.SessionExpired()
	}
	return cred, nil
}

// ==================== Recording ====================

// Recorder - собранный конвейер записи и его движок.
type Recorder struct {
	Pipeline *pipeline.Pipeline
	Engine   *capture.Engine
}

// RecorderOptions - UI-зависимости конвейера.
type RecorderOptions struct {
	Notifier  pipeline.Notifier
	Navigator pipeline.Navigator
	Confirmer capture.Confirmer
	OnTick    func(elapsed int)
	// Devices подменяют ffmpeg; используется в тестах.
	Devices *capture.Devices
}

func (a *App) NewRecorder(opts RecorderOptions) (*Recorder, error) {
	platform, err := capture.ParsePlatform(a.config.Platform)
	if err != nil {
		return nil, err
	}

	devices := opts.Devices
	if devices == nil {
		ffmpeg := capture.NewFFmpeg(a.config.FFmpegPath, a.config.InputFormat, a.config.InputDevice, a.config.RecordingsDir, a.log)
		d := ffmpeg.Devices()
		devices = &d
	}

	var confirmer capture.Confirmer
	if a.config.ConfirmMicrophone {
		confirmer = opts.Confirmer
	}

	engineOpts := []capture.EngineOption{
		capture.WithFailure(func(err error) {
			if opts.Notifier != nil {
				title, message := recording.AlertFor(err)
				opts.Notifier.Alert(title, message)
			}
		}),
	}
	if opts.OnTick != nil {
		engineOpts = append(engineOpts, capture.WithTick(opts.OnTick))
	}

	engine := capture.NewEngine(platform, *devices, a.log, engineOpts...)
	gate := capture.NewPermissionGate(platform, capture.ExecPermissions{Binary: a.config.FFmpegPath}, confirmer, a.log)

	p := pipeline.New(pipeline.Deps{
		Gate:      gate,
		Engine:    engine,
		Uploader:  upload.NewUploader(a.transport, a.config.BaseURL(), a.tokens, a.log),
		Linker:    a.linker,
		History:   a.storage,
		Notifier:  opts.Notifier,
		Navigator: opts.Navigator,
	}, a.log)

	return &Recorder{Pipeline: p, Engine: engine}, nil
}

// ==================== Listing ====================

// Listing - экран списка записей: локальная история и серверный список пациента.
type Listing struct {
	Local  []recording.Upload
	Remote []recording.Recording
	// RemoteErr - сервер недоступен; локальная история все равно показывается.
	RemoteErr error
}

func (a *App) Recordings(ctx context.Context, patient recording.PatientRef, limit int) (Listing, error) {
	var listing Listing

	filter := UploadFilter{Limit: limit}
	if patient.OK {
		filter.PatientID = patient.ID
	}

	local, err := a.storage.ListUploads(ctx, filter)
	if err != nil {
		return listing, err
	}
	listing.Local = local

	if patient.OK {
		listing.Remote, listing.RemoteErr = a.httpClient.RecordingsByPatient(ctx, patient.ID)
		if listing.RemoteErr != nil {
			a.log.Warn("list recordings by patient", logger.Err(listing.RemoteErr))
		}
	}

	return listing, nil
}

// PendingRequests - невыполненные запросы пациента.
func (a *App) PendingRequests(ctx context.Context, patient recording.PatientRef) ([]recording.Request, error) {
	if !patient.OK {
		return nil, recording.NewError(recording.ErrValidation, "Patient is required")
	}
	return a.httpClient.Requests(ctx, patient.ID, recording.RequestStatusSent)
}

// LinkRequest повторяет привязку запроса после частичного успеха.
func (a *App) LinkRequest(ctx context.Context, recordingID, requestID int64) error {
	if recordingID <= 0 || requestID <= 0 {
		return recording.NewError(recording.ErrValidation, "Recording and request ids must be positive")
	}

	if err := a.linker.Complete(ctx, requestID, recordingID); err != nil {
		return err
	}

	if err := a.storage.MarkLinked(ctx, recordingID, requestID); err != nil && !errors.Is(err, ErrUploadNotFound) {
		a.log.Warn("mark upload linked", logger.Err(err))
	}

	return nil
}

func (a *App) Close() error {
	return a.storage.Close()
}
