package capture

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/exp/slog"

	"hypercase/internal/domain/recording"
	"hypercase/internal/utils/logger"
)

// ErrStagePending - новая запись запрещена, пока предыдущая не названа или не отброшена.
var ErrStagePending = errors.New("staged recording pending")

type State int

const (
	StateIdle State = iota
	StateRecording
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRecording:
		return "recording"
	case StateStopped:
		return "stopped"
	default:
		return "idle"
	}
}

type EngineOption func(*Engine)

func WithClock(c Clock) EngineOption {
	return func(e *Engine) { e.clock = c }
}

func WithObjectURLs(u *ObjectURLs) EngineOption {
	return func(e *Engine) { e.urls = u }
}

// WithTick вызывается раз в секунду с прошедшим временем.
func WithTick(fn func(elapsed int)) EngineOption {
	return func(e *Engine) { e.onTick = fn }
}

// WithFailure получает ошибку потери устройства во время записи.
func WithFailure(fn func(err error)) EngineOption {
	return func(e *Engine) { e.onFailure = fn }
}

// WithRecorderFactory подменяет NewRecorder.
func WithRecorderFactory(fn func() (Recorder, error)) EngineOption {
	return func(e *Engine) { e.newRecorder = fn }
}

// Engine - машина состояний Idle -> Recording -> Stopped.
// Одновременно активна не больше одной сессии.
type Engine struct {
	newRecorder func() (Recorder, error)
	clock       Clock
	urls        *ObjectURLs
	onTick      func(int)
	onFailure   func(error)
	log         *slog.Logger

	// op сериализует Start/Stop/Reset/Close; mu защищает поля ниже
	op sync.Mutex
	wg sync.WaitGroup

	mu       sync.Mutex
	state    State
	rec      Recorder
	elapsed  int
	staged   *recording.Staged
	done     chan struct{}
	stopping bool
}

func NewEngine(platform Platform, devices Devices, log *slog.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		newRecorder: func() (Recorder, error) { return NewRecorder(platform, devices) },
		clock:       SystemClock{},
		urls:        NewObjectURLs(),
		log: log.With(
			slog.String("component", "capture_engine"),
			slog.String("platform", string(platform)),
		),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Start начинает сессию. Повторный вызов во время записи ничего не делает.
func (e *Engine) Start(ctx context.Context) error {
	e.op.Lock()
	defer e.op.Unlock()

	e.mu.Lock()
	state, staged := e.state, e.staged
	e.mu.Unlock()

	if state == StateRecording {
		return nil
	}
	if staged != nil {
		return ErrStagePending
	}

	rec, err := e.newRecorder()
	if err != nil {
		return recording.NewError(recording.ErrCaptureFailure, "Recording is not available: %v", err)
	}

	if err := rec.Start(ctx); err != nil {
		if rerr := rec.Release(ctx); rerr != nil {
			e.log.Warn("release after failed start", logger.Err(rerr))
		}
		return startError(err)
	}

	done := make(chan struct{})
	ticker := e.clock.NewTicker(time.Second)

	e.mu.Lock()
	e.rec = rec
	e.elapsed = 0
	e.state = StateRecording
	e.done = done
	e.stopping = false
	e.mu.Unlock()

	e.wg.Add(1)
	go e.run(rec, ticker, done)

	e.log.Debug("recording started")

	return nil
}

func startError(err error) error {
	if errors.Is(err, recording.ErrPermissionDenied) {
		return recording.NewError(recording.ErrPermissionDenied, "Microphone access was denied.")
	}
	return recording.NewError(recording.ErrCaptureFailure, "Failed to start recording: %v", err)
}

func (e *Engine) run(rec Recorder, ticker Ticker, done <-chan struct{}) {
	defer e.wg.Done()
	defer ticker.Stop()

	failed := rec.Failed()
	for {
		select {
		case <-done:
			return
		case <-ticker.C():
			e.mu.Lock()
			if e.rec != rec {
				e.mu.Unlock()
				return
			}
			e.elapsed++
			elapsed := e.elapsed
			e.mu.Unlock()

			if e.onTick != nil {
				e.onTick(elapsed)
			}
		case err, ok := <-failed:
			if !ok {
				failed = nil
				continue
			}
			e.fail(rec, err)
			return
		}
	}
}

// fail возвращает движок в Idle без артефакта.
func (e *Engine) fail(rec Recorder, cause error) {
	e.mu.Lock()
	if e.rec != rec || e.stopping {
		e.mu.Unlock()
		return
	}
	e.rec = nil
	e.state = StateIdle
	e.elapsed = 0
	e.mu.Unlock()

	e.log.Error("recording interrupted", logger.Err(cause))

	if err := rec.Release(context.Background()); err != nil {
		e.log.Warn("release after failure", logger.Err(err))
	}

	if e.onFailure != nil {
		e.onFailure(recording.NewError(recording.ErrCaptureFailure, "Recording was interrupted: %v", cause))
	}
}

// Stop завершает сессию и возвращает staged-запись.
// Без активной сессии возвращает nil, nil.
func (e *Engine) Stop(ctx context.Context) (*recording.Staged, error) {
	e.op.Lock()
	defer e.op.Unlock()

	rec, ok := e.beginStop()
	if !ok {
		return nil, nil
	}

	stopErr := rec.Stop(ctx)
	artifact, artErr := rec.Artifact()
	if err := rec.Release(ctx); err != nil {
		e.log.Warn("release recorder", logger.Err(err))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.rec = nil
	e.stopping = false

	if err := errors.Join(stopErr, artErr); err != nil {
		e.state = StateIdle
		e.elapsed = 0
		return nil, recording.NewError(recording.ErrCaptureFailure, "Failed to stop recording: %v", err)
	}

	staged := &recording.Staged{
		Artifact:        artifact,
		DurationSeconds: e.elapsed,
	}
	if artifact.Blob != nil && e.urls != nil {
		staged.PlaybackURL = e.urls.Create(artifact.Blob)
	}

	e.staged = staged
	e.state = StateStopped

	e.log.Debug("recording stopped", slog.Int("duration", staged.DurationSeconds))

	return staged, nil
}

// beginStop останавливает тикер и ждет его горутину.
func (e *Engine) beginStop() (Recorder, bool) {
	e.mu.Lock()
	if e.state != StateRecording || e.rec == nil {
		e.mu.Unlock()
		return nil, false
	}
	rec, done := e.rec, e.done
	e.stopping = true
	e.mu.Unlock()

	close(done)
	e.wg.Wait()

	return rec, true
}

// Reset отбрасывает staged-запись, отзывает ее URL и обнуляет время.
func (e *Engine) Reset() {
	e.op.Lock()
	defer e.op.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	e.dropStagedLocked()
	if e.state != StateRecording {
		e.state = StateIdle
		e.elapsed = 0
	}
}

func (e *Engine) dropStagedLocked() {
	if e.staged != nil && e.staged.PlaybackURL != "" && e.urls != nil {
		e.urls.Revoke(e.staged.PlaybackURL)
	}
	e.staged = nil
}

// Close - очистка при выходе: останавливает таймер и освобождает микрофон.
// Ошибки только логируются, Close всегда завершается.
func (e *Engine) Close(ctx context.Context) {
	e.op.Lock()
	defer e.op.Unlock()

	if rec, ok := e.beginStop(); ok {
		if err := rec.Stop(ctx); err != nil {
			e.log.Warn("teardown: stop recorder", logger.Err(err))
		}
		if err := rec.Release(ctx); err != nil {
			e.log.Warn("teardown: release recorder", logger.Err(err))
		}
	}

	e.mu.Lock()
	e.rec = nil
	e.stopping = false
	e.dropStagedLocked()
	e.state = StateIdle
	e.elapsed = 0
	e.mu.Unlock()
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) Elapsed() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.elapsed
}

func (e *Engine) Staged() *recording.Staged {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.staged
}

func (e *Engine) ObjectURLs() *ObjectURLs {
	return e.urls
}
