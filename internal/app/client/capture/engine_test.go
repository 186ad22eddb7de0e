package capture

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"hypercase/internal/domain/recording"
)

func newWebEngine(media *fakeMedia, clock *fakeClock, opts ...EngineOption) *Engine {
	opts = append([]EngineOption{WithClock(clock)}, opts...)
	return NewEngine(PlatformWeb, Devices{Media: media}, slog.Default(), opts...)
}

func TestEngine_FiveTicksIsFiveSeconds(t *testing.T) {
	media := &fakeMedia{chunks: [][]byte{[]byte("abc"), {}, []byte("def")}}
	clock := &fakeClock{}

	var ticks []int
	engine := newWebEngine(media, clock, WithTick(func(elapsed int) {
		ticks = append(ticks, elapsed)
	}))
	ctx := context.Background()

	require.NoError(t, engine.Start(ctx))
	assert.Equal(t, StateRecording, engine.State())

	clock.tick(5)

	staged, err := engine.Stop(ctx)
	require.NoError(t, err)
	require.NotNil(t, staged)

	assert.Equal(t, 5, staged.DurationSeconds)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, ticks)
	assert.Equal(t, StateStopped, engine.State())
	assert.True(t, clock.last().stopped.Load())

	require.NotNil(t, staged.Artifact.Blob)
	assert.Equal(t, []byte("abcdef"), staged.Artifact.Blob.Data)
	assert.Equal(t, WebMIME, staged.Artifact.Blob.Type)
	assert.Equal(t, 1, media.streams[0].stops)
}

func TestEngine_PlaybackURLRoundTrip(t *testing.T) {
	media := &fakeMedia{chunks: [][]byte{[]byte("voice")}}
	clock := &fakeClock{}
	urls := NewObjectURLs()
	engine := newWebEngine(media, clock, WithObjectURLs(urls))
	ctx := context.Background()

	require.NoError(t, engine.Start(ctx))
	staged, err := engine.Stop(ctx)
	require.NoError(t, err)

	require.NotEmpty(t, staged.PlaybackURL)
	blob, ok := urls.Resolve(staged.PlaybackURL)
	require.True(t, ok)
	assert.Equal(t, staged.Artifact.Blob, blob)

	engine.Reset()

	_, ok = urls.Resolve(staged.PlaybackURL)
	assert.False(t, ok)
	assert.Zero(t, urls.Len())
	assert.Equal(t, StateIdle, engine.State())
	assert.Zero(t, engine.Elapsed())
}

func TestEngine_NoURLLeakAcrossCycles(t *testing.T) {
	media := &fakeMedia{chunks: [][]byte{[]byte("x")}}
	clock := &fakeClock{}
	urls := NewObjectURLs()
	engine := newWebEngine(media, clock, WithObjectURLs(urls))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, engine.Start(ctx))
		clock.tick(1)
		_, err := engine.Stop(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, urls.Len())
		engine.Reset()
		assert.Zero(t, urls.Len())
	}
}

func TestEngine_StartWhileRecordingIsNoop(t *testing.T) {
	media := &fakeMedia{chunks: [][]byte{[]byte("x")}}
	clock := &fakeClock{}
	engine := newWebEngine(media, clock)
	ctx := context.Background()

	require.NoError(t, engine.Start(ctx))
	clock.tick(2)
	require.NoError(t, engine.Start(ctx))

	assert.Len(t, media.recorders, 1)

	staged, err := engine.Stop(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, staged.DurationSeconds)
}

func TestEngine_StartWhileStagedIsRefused(t *testing.T) {
	media := &fakeMedia{chunks: [][]byte{[]byte("x")}}
	engine := newWebEngine(media, &fakeClock{})
	ctx := context.Background()

	require.NoError(t, engine.Start(ctx))
	_, err := engine.Stop(ctx)
	require.NoError(t, err)

	err = engine.Start(ctx)
	assert.ErrorIs(t, err, ErrStagePending)
	assert.Len(t, media.recorders, 1)
}

func TestEngine_DoubleStop(t *testing.T) {
	media := &fakeMedia{chunks: [][]byte{[]byte("x")}}
	engine := newWebEngine(media, &fakeClock{})
	ctx := context.Background()

	staged, err := engine.Stop(ctx)
	assert.NoError(t, err)
	assert.Nil(t, staged)
	assert.Equal(t, StateIdle, engine.State())

	require.NoError(t, engine.Start(ctx))
	first, err := engine.Stop(ctx)
	require.NoError(t, err)

	second, err := engine.Stop(ctx)
	assert.NoError(t, err)
	assert.Nil(t, second)
	assert.Equal(t, StateStopped, engine.State())
	assert.Same(t, first, engine.Staged())
	assert.Equal(t, 1, media.lastRecorder().stops)
}

func TestEngine_NativeStop(t *testing.T) {
	session := &fakeSession{}
	handles := &fakeHandles{}
	clock := &fakeClock{}
	engine := NewEngine(PlatformNative, Devices{Audio: session, Handles: handles}, slog.Default(), WithClock(clock))
	ctx := context.Background()

	require.NoError(t, engine.Start(ctx))
	clock.tick(3)

	staged, err := engine.Stop(ctx)
	require.NoError(t, err)

	assert.Equal(t, "file:///tmp/recording.m4a", staged.Artifact.URI)
	assert.Nil(t, staged.Artifact.Blob)
	assert.Empty(t, staged.PlaybackURL)
	assert.Equal(t, 3, staged.DurationSeconds)
	assert.Equal(t, 1, handles.last().unloadCount())
	assert.Equal(t, []AudioMode{
		{AllowsRecording: true, PlaysInSilentMode: true},
		{AllowsRecording: false, PlaysInSilentMode: true},
	}, session.modes)
}

func TestEngine_StopFailureReturnsToIdle(t *testing.T) {
	handles := &fakeHandles{stopErr: errors.New("disk full")}
	engine := NewEngine(PlatformNative, Devices{Audio: &fakeSession{}, Handles: handles}, slog.Default(), WithClock(&fakeClock{}))
	ctx := context.Background()

	require.NoError(t, engine.Start(ctx))
	staged, err := engine.Stop(ctx)

	assert.Nil(t, staged)
	assert.ErrorIs(t, err, recording.ErrCaptureFailure)
	assert.Equal(t, StateIdle, engine.State())
	assert.Nil(t, engine.Staged())
}

func TestEngine_StartErrors(t *testing.T) {
	tests := []struct {
		name    string
		getErr  error
		wantErr error
	}{
		{
			name:    "permission revoked",
			getErr:  fmt.Errorf("NotAllowedError: %w", recording.ErrPermissionDenied),
			wantErr: recording.ErrPermissionDenied,
		},
		{
			name:    "device missing",
			getErr:  errors.New("no input device"),
			wantErr: recording.ErrCaptureFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			media := &fakeMedia{getErr: tt.getErr}
			engine := newWebEngine(media, &fakeClock{})

			err := engine.Start(context.Background())
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, StateIdle, engine.State())
		})
	}
}

func TestEngine_NotConfigured(t *testing.T) {
	engine := NewEngine(PlatformNative, Devices{}, slog.Default(), WithClock(&fakeClock{}))

	err := engine.Start(context.Background())
	assert.ErrorIs(t, err, recording.ErrCaptureFailure)
}

func TestEngine_DeviceLostMidSession(t *testing.T) {
	handles := &fakeHandles{}
	failures := make(chan error, 1)
	engine := NewEngine(PlatformNative, Devices{Audio: &fakeSession{}, Handles: handles}, slog.Default(),
		WithClock(&fakeClock{}),
		WithFailure(func(err error) { failures <- err }),
	)
	ctx := context.Background()

	require.NoError(t, engine.Start(ctx))
	handles.last().failed <- errors.New("device unplugged")

	select {
	case err := <-failures:
		assert.ErrorIs(t, err, recording.ErrCaptureFailure)
	case <-time.After(2 * time.Second):
		t.Fatal("failure was not reported")
	}

	assert.Equal(t, StateIdle, engine.State())
	assert.Nil(t, engine.Staged())
	assert.Equal(t, 1, handles.last().unloadCount())

	staged, err := engine.Stop(ctx)
	assert.NoError(t, err)
	assert.Nil(t, staged)

	require.NoError(t, engine.Start(ctx))
	assert.Len(t, handles.handles, 2)

	engine.Close(ctx)
}

func TestEngine_CloseReleasesEverything(t *testing.T) {
	t.Run("while recording", func(t *testing.T) {
		handles := &fakeHandles{stopErr: errors.New("already unloaded")}
		clock := &fakeClock{}
		engine := NewEngine(PlatformNative, Devices{Audio: &fakeSession{}, Handles: handles}, slog.Default(), WithClock(clock))
		ctx := context.Background()

		require.NoError(t, engine.Start(ctx))
		clock.tick(1)

		engine.Close(ctx)

		assert.Equal(t, StateIdle, engine.State())
		assert.Zero(t, engine.Elapsed())
		assert.True(t, clock.last().stopped.Load())
		assert.Equal(t, 1, handles.last().unloadCount())
	})

	t.Run("with staged blob", func(t *testing.T) {
		media := &fakeMedia{chunks: [][]byte{[]byte("x")}}
		urls := NewObjectURLs()
		engine := newWebEngine(media, &fakeClock{}, WithObjectURLs(urls))
		ctx := context.Background()

		require.NoError(t, engine.Start(ctx))
		_, err := engine.Stop(ctx)
		require.NoError(t, err)

		engine.Close(ctx)

		assert.Zero(t, urls.Len())
		assert.Nil(t, engine.Staged())
	})

	t.Run("idle", func(t *testing.T) {
		engine := newWebEngine(&fakeMedia{}, &fakeClock{})
		engine.Close(context.Background())
		assert.Equal(t, StateIdle, engine.State())
	})
}

func TestEngine_ResetDuringRecordingKeepsSession(t *testing.T) {
	media := &fakeMedia{chunks: [][]byte{[]byte("x")}}
	clock := &fakeClock{}
	engine := newWebEngine(media, clock)
	ctx := context.Background()

	require.NoError(t, engine.Start(ctx))
	clock.tick(2)
	engine.Reset()

	assert.Equal(t, StateRecording, engine.State())
	require.Eventually(t, func() bool { return engine.Elapsed() == 2 }, time.Second, time.Millisecond)

	engine.Close(ctx)
}
