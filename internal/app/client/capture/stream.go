package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"hypercase/internal/domain/recording"
)

// WebMIME - тип блоба, который собирает StreamRecorder.
const WebMIME = "audio/webm"

// MediaStream - захваченный поток микрофона.
type MediaStream interface {
	// Stop останавливает все дорожки потока.
	Stop() error
}

// MediaRecorder кодирует поток и отдает куски через onData.
// Stop возвращается после отдачи последнего куска.
type MediaRecorder interface {
	Start(ctx context.Context, onData func([]byte)) error
	Stop(ctx context.Context) error
	Failed() <-chan error
}

type MediaDevices interface {
	GetUserMedia(ctx context.Context) (MediaStream, error)
	NewMediaRecorder(stream MediaStream) (MediaRecorder, error)
}

type StreamRecorder struct {
	devices MediaDevices

	mu       sync.Mutex
	stream   MediaStream
	recorder MediaRecorder
	chunks   [][]byte
	blob     *recording.Blob
}

func NewStreamRecorder(devices MediaDevices) *StreamRecorder {
	return &StreamRecorder{devices: devices}
}

func (r *StreamRecorder) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.recorder != nil {
		r.mu.Unlock()
		return ErrAlreadyStarted
	}
	r.chunks = nil
	r.blob = nil
	r.mu.Unlock()

	stream, err := r.devices.GetUserMedia(ctx)
	if err != nil {
		return fmt.Errorf("get user media: %w", err)
	}

	rec, err := r.devices.NewMediaRecorder(stream)
	if err != nil {
		return errors.Join(fmt.Errorf("create media recorder: %w", err), stream.Stop())
	}

	if err := rec.Start(ctx, r.onData); err != nil {
		return errors.Join(fmt.Errorf("start media recorder: %w", err), stream.Stop())
	}

	r.mu.Lock()
	r.stream = stream
	r.recorder = rec
	r.mu.Unlock()

	return nil
}

func (r *StreamRecorder) onData(chunk []byte) {
	if len(chunk) == 0 {
		return
	}

	buf := make([]byte, len(chunk))
	copy(buf, chunk)

	r.mu.Lock()
	r.chunks = append(r.chunks, buf)
	r.mu.Unlock()
}

func (r *StreamRecorder) Stop(ctx context.Context) error {
	r.mu.Lock()
	rec, stream := r.recorder, r.stream
	r.recorder, r.stream = nil, nil
	r.mu.Unlock()

	if rec == nil {
		return nil
	}

	// onData берет mu, поэтому останавливаем без блокировки
	stopErr := rec.Stop(ctx)
	trackErr := stream.Stop()

	r.mu.Lock()
	size := 0
	for _, c := range r.chunks {
		size += len(c)
	}
	data := make([]byte, 0, size)
	for _, c := range r.chunks {
		data = append(data, c...)
	}
	r.chunks = nil
	r.blob = &recording.Blob{Data: data, Type: WebMIME}
	r.mu.Unlock()

	if stopErr != nil {
		return fmt.Errorf("stop media recorder: %w", stopErr)
	}
	if trackErr != nil {
		return fmt.Errorf("stop tracks: %w", trackErr)
	}

	return nil
}

func (r *StreamRecorder) Artifact() (recording.Artifact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.blob == nil || len(r.blob.Data) == 0 {
		return recording.Artifact{}, ErrNoArtifact
	}
	return recording.Artifact{Blob: r.blob}, nil
}

func (r *StreamRecorder) Release(ctx context.Context) error {
	r.mu.Lock()
	rec, stream := r.recorder, r.stream
	r.recorder, r.stream = nil, nil
	r.chunks = nil
	r.mu.Unlock()

	var errs []error
	if rec != nil {
		if err := rec.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop media recorder: %w", err))
		}
	}
	if stream != nil {
		if err := stream.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop tracks: %w", err))
		}
	}

	return errors.Join(errs...)
}

func (r *StreamRecorder) Failed() <-chan error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recorder == nil {
		return nil
	}
	return r.recorder.Failed()
}
