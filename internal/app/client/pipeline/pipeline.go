package pipeline

import (
	"context"
	"errors"
	"time"

	"golang.org/x/exp/slog"

	"hypercase/internal/app/client/capture"
	"hypercase/internal/app/client/staging"
	"hypercase/internal/domain/recording"
	"hypercase/internal/utils/logger"
)

const unavailableMessage = "Microphone access is required to record audio. Recording is unavailable until access is granted."

// Notifier показывает пользователю ошибку.
type Notifier interface {
	Alert(title, message string)
}

// Navigator переводит пользователя к списку записей.
type Navigator interface {
	ToRecordings(ctx context.Context) error
}

// NavigatorFunc адаптирует функцию к Navigator.
type NavigatorFunc func(ctx context.Context) error

func (f NavigatorFunc) ToRecordings(ctx context.Context) error {
	return f(ctx)
}

// HistoryStore сохраняет успешные загрузки локально.
type HistoryStore interface {
	SaveUpload(ctx context.Context, u recording.Upload) (int64, error)
}

type Gate interface {
	Check(ctx context.Context) (capture.Permission, error)
	Retry(ctx context.Context) (capture.Permission, error)
}

type Engine interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) (*recording.Staged, error)
	Reset()
	Close(ctx context.Context)
}

type Uploader interface {
	Upload(ctx context.Context, staged *recording.Staged, meta recording.Metadata) (int64, error)
}

type Linker interface {
	Complete(ctx context.Context, requestID, recordingID int64) error
}

// Deps - зависимости конвейера. History и Navigator необязательны.
type Deps struct {
	Gate      Gate
	Engine    Engine
	Uploader  Uploader
	Linker    Linker
	History   HistoryStore
	Notifier  Notifier
	Navigator Navigator
	Now       func() time.Time
}

// Target - куда относится запись: пациент и, возможно, запрос провайдера.
type Target struct {
	Patient recording.PatientRef
	Request *recording.Request
}

type Result struct {
	RecordingID int64
	Linked      bool
	Partial     bool
}

// Pipeline ведет запись от разрешения на микрофон до загрузки и привязки к запросу.
// Все ошибки показываются через Notifier и возвращаются вызывающему уже обработанными.
type Pipeline struct {
	deps Deps
	step *staging.Step
	now  func() time.Time
	log  *slog.Logger
}

func New(deps Deps, log *slog.Logger) *Pipeline {
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return &Pipeline{
		deps: deps,
		step: staging.NewStep(deps.Engine, log).WithNow(now),
		now:  now,
		log:  log.With(slog.String("component", "pipeline")),
	}
}

// Begin проверяет разрешение и запускает запись.
func (p *Pipeline) Begin(ctx context.Context) error {
	perm, err := p.deps.Gate.Check(ctx)
	return p.begin(ctx, perm, err)
}

// RetryPermission - ручной повтор после отказа.
func (p *Pipeline) RetryPermission(ctx context.Context) error {
	perm, err := p.deps.Gate.Retry(ctx)
	return p.begin(ctx, perm, err)
}

func (p *Pipeline) begin(ctx context.Context, perm capture.Permission, err error) error {
	if err != nil {
		return p.alert(recording.NewError(recording.ErrPermissionDenied, "Could not request microphone access: %v", err))
	}
	if perm != capture.PermissionGranted {
		return p.alert(recording.NewError(recording.ErrPermissionDenied, unavailableMessage))
	}

	if err := p.deps.Engine.Start(ctx); err != nil {
		if errors.Is(err, capture.ErrStagePending) {
			err = recording.NewError(recording.ErrValidation, "Save or discard the current recording first.")
		}
		return p.alert(err)
	}

	return nil
}

// Finish останавливает запись и открывает шаг именования.
// Повторный вызов без активной записи возвращает nil, nil.
func (p *Pipeline) Finish(ctx context.Context) (*recording.Staged, error) {
	staged, err := p.deps.Engine.Stop(ctx)
	if err != nil {
		return nil, p.alert(err)
	}
	if staged == nil {
		return nil, nil
	}

	if err := p.step.Open(staged); err != nil {
		p.deps.Engine.Reset()
		return nil, p.alert(err)
	}

	return staged, nil
}

// Save проверяет имя, загружает запись и, если есть запрос, отмечает его выполненным.
// При ошибке загрузки staged-запись сохраняется для повтора.
func (p *Pipeline) Save(ctx context.Context, name string, target Target) (Result, error) {
	meta, err := p.step.Confirm(name)
	if err != nil {
		if errors.Is(err, staging.ErrNotOpen) {
			err = recording.NewError(recording.ErrValidation, "No recording to save.")
		}
		return Result{}, p.alert(err)
	}
	if target.Patient.OK {
		meta.PatientID = target.Patient.ID
	}

	staged := p.step.Staged()

	id, err := p.deps.Uploader.Upload(ctx, staged, meta)
	if err != nil {
		p.log.Warn("upload failed", logger.Err(err))
		return Result{}, p.alert(err)
	}

	res := Result{RecordingID: id}
	entry := recording.Upload{
		RecordingID:     id,
		Title:           meta.Title,
		DurationSeconds: staged.DurationSeconds,
		PatientID:       meta.PatientID,
		CreatedAt:       p.now(),
	}

	if req := target.Request; req != nil {
		entry.RequestID = &req.ID
		if err := p.deps.Linker.Complete(ctx, req.ID, id); err != nil {
			p.alert(err)
			res.Partial = true
		} else {
			res.Linked = true
		}
	}
	entry.Linked = res.Linked

	p.remember(ctx, entry)
	p.step.Complete()

	if p.deps.Navigator != nil {
		if err := p.deps.Navigator.ToRecordings(ctx); err != nil {
			p.log.Warn("navigate to recordings", logger.Err(err))
		}
	}

	p.log.Info("recording saved",
		slog.Int64("recording_id", id),
		slog.Bool("linked", res.Linked),
		slog.Bool("partial", res.Partial),
	)

	return res, nil
}

func (p *Pipeline) remember(ctx context.Context, entry recording.Upload) {
	if p.deps.History == nil {
		return
	}
	if _, err := p.deps.History.SaveUpload(ctx, entry); err != nil {
		p.log.Warn("save upload history", logger.Err(err))
	}
}

// Discard закрывает шаг именования без загрузки.
func (p *Pipeline) Discard() {
	p.step.Cancel()
}

// Staged возвращает запись, ожидающую имени.
func (p *Pipeline) Staged() *recording.Staged {
	return p.step.Staged()
}

// Close освобождает микрофон и таймер. Ошибки только логируются.
func (p *Pipeline) Close(ctx context.Context) {
	p.deps.Engine.Close(ctx)
	p.step.Cancel()
}

func (p *Pipeline) alert(err error) error {
	title, message := recording.AlertFor(err)
	if p.deps.Notifier != nil {
		p.deps.Notifier.Alert(title, message)
	}
	return err
}
