package capture

import (
	"context"
	"errors"
	"fmt"

	"hypercase/internal/domain/recording"
)

var (
	ErrNoArtifact     = errors.New("recorder produced no artifact")
	ErrNotConfigured  = errors.New("capture devices not configured")
	ErrAlreadyStarted = errors.New("recorder already started")
)

// Recorder - одна логическая операция записи поверх конкретного устройства.
type Recorder interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Artifact() (recording.Artifact, error)
	// Release освобождает микрофон. Безопасно вызывать повторно.
	Release(ctx context.Context) error
	// Failed сообщает о потере устройства во время записи.
	Failed() <-chan error
}

// Devices - устройства обеих платформ; заполняется то, что нужно выбранной.
type Devices struct {
	Audio   AudioSession
	Handles HandleFactory
	Media   MediaDevices
}

// NewRecorder - единственное место ветвления по платформе.
func NewRecorder(platform Platform, dev Devices) (Recorder, error) {
	switch platform {
	case PlatformNative:
		if dev.Audio == nil || dev.Handles == nil {
			return nil, fmt.Errorf("%w: native", ErrNotConfigured)
		}
		return NewNativeRecorder(dev.Audio, dev.Handles), nil
	case PlatformWeb:
		if dev.Media == nil {
			return nil, fmt.Errorf("%w: web", ErrNotConfigured)
		}
		return NewStreamRecorder(dev.Media), nil
	default:
		return nil, fmt.Errorf("unknown platform %q", platform)
	}
}
