package capture

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"hypercase/internal/domain/recording"
)

type MockRequester struct {
	mock.Mock
}

func (m *MockRequester) Request(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

type MockConfirmer struct {
	mock.Mock
}

func (m *MockConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	args := m.Called(ctx, prompt)
	return args.Bool(0), args.Error(1)
}

func TestPermissionGate_Web(t *testing.T) {
	requester := new(MockRequester)
	gate := NewPermissionGate(PlatformWeb, requester, nil, slog.Default())

	assert.Equal(t, PermissionUndetermined, gate.State())

	p, err := gate.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PermissionGranted, p)

	requester.AssertNotCalled(t, "Request", mock.Anything)
}

func TestPermissionGate_Native(t *testing.T) {
	tests := []struct {
		name      string
		confirm   *bool
		granted   bool
		reqErr    error
		want      Permission
		wantErr   bool
		requested bool
	}{
		{name: "granted without prompt", granted: true, want: PermissionGranted, requested: true},
		{name: "denied by os", granted: false, want: PermissionDenied, requested: true},
		{name: "prompt accepted", confirm: ptr(true), granted: true, want: PermissionGranted, requested: true},
		{name: "prompt declined", confirm: ptr(false), want: PermissionDenied},
		{name: "requester error", reqErr: errors.New("boom"), want: PermissionUndetermined, wantErr: true, requested: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requester := new(MockRequester)
			if tt.requested {
				requester.On("Request", mock.Anything).Return(tt.granted, tt.reqErr).Once()
			}

			var confirmer Confirmer
			if tt.confirm != nil {
				c := new(MockConfirmer)
				c.On("Confirm", mock.Anything, confirmPrompt).Return(*tt.confirm, nil).Once()
				confirmer = c
			}

			gate := NewPermissionGate(PlatformNative, requester, confirmer, slog.Default())
			p, err := gate.Check(context.Background())

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, p)
			assert.Equal(t, tt.want, gate.State())
			requester.AssertExpectations(t)
		})
	}
}

func TestPermissionGate_RetryAfterDenial(t *testing.T) {
	requester := new(MockRequester)
	requester.On("Request", mock.Anything).Return(false, nil).Once()
	requester.On("Request", mock.Anything).Return(true, nil).Once()

	gate := NewPermissionGate(PlatformNative, requester, nil, slog.Default())
	ctx := context.Background()

	p, err := gate.Check(ctx)
	require.NoError(t, err)
	assert.Equal(t, PermissionDenied, p)

	p, err = gate.Retry(ctx)
	require.NoError(t, err)
	assert.Equal(t, PermissionGranted, p)

	requester.AssertExpectations(t)
}

func TestExecPermissions(t *testing.T) {
	self, err := os.Executable()
	require.NoError(t, err)

	ok, err := ExecPermissions{Binary: self}.Request(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ExecPermissions{Binary: "definitely-not-a-recorder-binary"}.Request(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewRecorder(t *testing.T) {
	rec, err := NewRecorder(PlatformNative, Devices{Audio: &fakeSession{}, Handles: &fakeHandles{}})
	require.NoError(t, err)
	assert.IsType(t, &NativeRecorder{}, rec)

	rec, err = NewRecorder(PlatformWeb, Devices{Media: &fakeMedia{}})
	require.NoError(t, err)
	assert.IsType(t, &StreamRecorder{}, rec)

	_, err = NewRecorder(PlatformWeb, Devices{})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewRecorder(Platform("tv"), Devices{})
	assert.Error(t, err)
}

func TestStreamRecorder_SkipsEmptyChunksAndKeepsOrder(t *testing.T) {
	media := &fakeMedia{chunks: [][]byte{[]byte("1"), nil, []byte("2"), {}, []byte("3")}}
	rec := NewStreamRecorder(media)
	ctx := context.Background()

	require.NoError(t, rec.Start(ctx))
	assert.ErrorIs(t, rec.Start(ctx), ErrAlreadyStarted)
	require.NoError(t, rec.Stop(ctx))
	require.NoError(t, rec.Stop(ctx))

	artifact, err := rec.Artifact()
	require.NoError(t, err)
	assert.Equal(t, &recording.Blob{Data: []byte("123"), Type: WebMIME}, artifact.Blob)
	assert.NoError(t, rec.Release(ctx))
}

func TestStreamRecorder_EmptyRecording(t *testing.T) {
	rec := NewStreamRecorder(&fakeMedia{})
	ctx := context.Background()

	require.NoError(t, rec.Start(ctx))
	require.NoError(t, rec.Stop(ctx))

	_, err := rec.Artifact()
	assert.ErrorIs(t, err, ErrNoArtifact)
}

func TestNativeRecorder_ReleaseWithoutStop(t *testing.T) {
	session := &fakeSession{}
	handles := &fakeHandles{}
	rec := NewNativeRecorder(session, handles)
	ctx := context.Background()

	require.NoError(t, rec.Start(ctx))
	require.NoError(t, rec.Release(ctx))
	require.NoError(t, rec.Release(ctx))

	assert.Equal(t, 1, handles.last().unloadCount())
	_, err := rec.Artifact()
	assert.ErrorIs(t, err, ErrNoArtifact)
	assert.Nil(t, rec.Failed())
}

func TestObjectURLs(t *testing.T) {
	urls := NewObjectURLs()
	blob := &recording.Blob{Data: []byte("a"), Type: WebMIME}

	first := urls.Create(blob)
	second := urls.Create(blob)
	assert.NotEqual(t, first, second)
	assert.Contains(t, first, objectURLPrefix)
	assert.Equal(t, 2, urls.Len())

	got, ok := urls.Resolve(first)
	require.True(t, ok)
	assert.Same(t, blob, got)

	urls.Revoke(first)
	urls.Revoke(first)
	_, ok = urls.Resolve(first)
	assert.False(t, ok)
	assert.Equal(t, 1, urls.Len())
}

func TestParsePlatform(t *testing.T) {
	p, err := ParsePlatform("WEB")
	require.NoError(t, err)
	assert.Equal(t, PlatformWeb, p)

	p, err = ParsePlatform("")
	require.NoError(t, err)
	assert.Equal(t, PlatformNative, p)

	_, err = ParsePlatform("desktop")
	assert.Error(t, err)
}

func TestFormatElapsed(t *testing.T) {
	assert.Equal(t, "0:00", FormatElapsed(0))
	assert.Equal(t, "0:05", FormatElapsed(5))
	assert.Equal(t, "1:05", FormatElapsed(65))
	assert.Equal(t, "12:00", FormatElapsed(720))
	assert.Equal(t, "0:00", FormatElapsed(-3))
}

func ptr[T any](v T) *T {
	return &v
}
