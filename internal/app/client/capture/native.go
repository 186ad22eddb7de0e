package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"hypercase/internal/domain/recording"
)

// AudioMode - настройки аудиосессии перед записью.
type AudioMode struct {
	AllowsRecording   bool
	PlaysInSilentMode bool
}

type AudioSession interface {
	SetMode(ctx context.Context, mode AudioMode) error
}

type Quality string

const QualityHigh Quality = "high"

// RecordingHandle - запущенная запись в файл.
type RecordingHandle interface {
	StopAndUnload(ctx context.Context) error
	URI() string
	Failed() <-chan error
}

// HandleFactory создает и сразу запускает запись.
type HandleFactory interface {
	Create(ctx context.Context, quality Quality) (RecordingHandle, error)
}

type NativeRecorder struct {
	session AudioSession
	factory HandleFactory

	mu      sync.Mutex
	handle  RecordingHandle
	stopped bool
	uri     string
}

func NewNativeRecorder(session AudioSession, factory HandleFactory) *NativeRecorder {
	return &NativeRecorder{
		session: session,
		factory: factory,
	}
}

func (r *NativeRecorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.handle != nil {
		return ErrAlreadyStarted
	}

	if err := r.session.SetMode(ctx, AudioMode{AllowsRecording: true, PlaysInSilentMode: true}); err != nil {
		return fmt.Errorf("set audio mode: %w", err)
	}

	handle, err := r.factory.Create(ctx, QualityHigh)
	if err != nil {
		return fmt.Errorf("create recording: %w", err)
	}

	r.handle = handle
	r.stopped = false
	r.uri = ""

	return nil
}

func (r *NativeRecorder) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.handle == nil || r.stopped {
		return nil
	}

	r.stopped = true
	if err := r.handle.StopAndUnload(ctx); err != nil {
		return fmt.Errorf("stop recording: %w", err)
	}
	r.uri = r.handle.URI()

	return nil
}

func (r *NativeRecorder) Artifact() (recording.Artifact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.uri == "" {
		return recording.Artifact{}, ErrNoArtifact
	}
	return recording.Artifact{URI: r.uri}, nil
}

func (r *NativeRecorder) Release(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	if r.handle != nil && !r.stopped {
		r.stopped = true
		if err := r.handle.StopAndUnload(ctx); err != nil {
			errs = append(errs, fmt.Errorf("unload recording: %w", err))
		}
	}
	r.handle = nil

	if err := r.session.SetMode(ctx, AudioMode{AllowsRecording: false, PlaysInSilentMode: true}); err != nil {
		errs = append(errs, fmt.Errorf("reset audio mode: %w", err))
	}

	return errors.Join(errs...)
}

func (r *NativeRecorder) Failed() <-chan error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.handle == nil {
		return nil
	}
	return r.handle.Failed()
}
