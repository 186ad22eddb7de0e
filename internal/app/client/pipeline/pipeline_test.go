package pipeline

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"hypercase/internal/app/client/auth"
	"hypercase/internal/app/client/capture"
	"hypercase/internal/app/client/upload"
	"hypercase/internal/domain/recording"
)

var now = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

type MockGate struct{ mock.Mock }

func (m *MockGate) Check(ctx context.Context) (capture.Permission, error) {
	args := m.Called(ctx)
	return args.Get(0).(capture.Permission), args.Error(1)
}

func (m *MockGate) Retry(ctx context.Context) (capture.Permission, error) {
	args := m.Called(ctx)
	return args.Get(0).(capture.Permission), args.Error(1)
}

type MockEngine struct{ mock.Mock }

func (m *MockEngine) Start(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockEngine) Stop(ctx context.Context) (*recording.Staged, error) {
	args := m.Called(ctx)
	staged, _ := args.Get(0).(*recording.Staged)
	return staged, args.Error(1)
}

func (m *MockEngine) Reset() {
	m.Called()
}

func (m *MockEngine) Close(ctx context.Context) {
	m.Called(ctx)
}

type MockUploader struct{ mock.Mock }

func (m *MockUploader) Upload(ctx context.Context, staged *recording.Staged, meta recording.Metadata) (int64, error) {
	args := m.Called(ctx, staged, meta)
	return args.Get(0).(int64), args.Error(1)
}

type MockLinker struct{ mock.Mock }

func (m *MockLinker) Complete(ctx context.Context, requestID, recordingID int64) error {
	return m.Called(ctx, requestID, recordingID).Error(0)
}

type MockHistory struct{ mock.Mock }

func (m *MockHistory) SaveUpload(ctx context.Context, u recording.Upload) (int64, error) {
	args := m.Called(ctx, u)
	return args.Get(0).(int64), args.Error(1)
}

type alert struct{ title, message string }

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []alert
}

func (n *recordingNotifier) Alert(title, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alert{title, message})
}

type countingNavigator struct{ calls int }

func (n *countingNavigator) ToRecordings(context.Context) error {
	n.calls++
	return nil
}

type fixture struct {
	gate     *MockGate
	engine   *MockEngine
	uploader *MockUploader
	linker   *MockLinker
	history  *MockHistory
	notifier *recordingNotifier
	nav      *countingNavigator
	p        *Pipeline
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		gate:     &MockGate{},
		engine:   &MockEngine{},
		uploader: &MockUploader{},
		linker:   &MockLinker{},
		history:  &MockHistory{},
		notifier: &recordingNotifier{},
		nav:      &countingNavigator{},
	}
	f.p = New(Deps{
		Gate:      f.gate,
		Engine:    f.engine,
		Uploader:  f.uploader,
		Linker:    f.linker,
		History:   f.history,
		Notifier:  f.notifier,
		Navigator: f.nav,
		Now:       func() time.Time { return now },
	}, slog.Default())

	return f
}

func stagedBlob() *recording.Staged {
	return &recording.Staged{
		Artifact:        recording.Artifact{Blob: &recording.Blob{Data: []byte("audio"), Type: capture.WebMIME}},
		DurationSeconds: 5,
		PlaybackURL:     "blob:hypercase/test",
	}
}

// staged открывает шаг именования через Finish.
func (f *fixture) staged(t *testing.T) *recording.Staged {
	t.Helper()

	s := stagedBlob()
	f.engine.On("Stop", mock.Anything).Return(s, nil).Once()
	got, err := f.p.Finish(context.Background())
	require.NoError(t, err)
	require.Same(t, s, got)

	return s
}

func TestPipeline_BeginDenied(t *testing.T) {
	f := newFixture(t)
	f.gate.On("Check", mock.Anything).Return(capture.PermissionDenied, nil)

	err := f.p.Begin(context.Background())

	assert.ErrorIs(t, err, recording.ErrPermissionDenied)
	require.Len(t, f.notifier.alerts, 1)
	assert.Equal(t, "Permission required", f.notifier.alerts[0].title)
	assert.Equal(t, unavailableMessage, f.notifier.alerts[0].message)
	f.engine.AssertNotCalled(t, "Start", mock.Anything)
}

func TestPipeline_RetryPermission(t *testing.T) {
	f := newFixture(t)
	f.gate.On("Retry", mock.Anything).Return(capture.PermissionGranted, nil)
	f.engine.On("Start", mock.Anything).Return(nil).Once()

	require.NoError(t, f.p.RetryPermission(context.Background()))
	assert.Empty(t, f.notifier.alerts)
	f.engine.AssertExpectations(t)
}

func TestPipeline_BeginFailures(t *testing.T) {
	tests := []struct {
		name      string
		perm      capture.Permission
		gateErr   error
		startErr  error
		wantTitle string
		wantErr   error
	}{
		{
			name:      "gate error",
			perm:      capture.PermissionUndetermined,
			gateErr:   errors.New("no prompt"),
			wantTitle: "Permission required",
			wantErr:   recording.ErrPermissionDenied,
		},
		{
			name:      "staged recording pending",
			perm:      capture.PermissionGranted,
			startErr:  capture.ErrStagePending,
			wantTitle: "Error",
			wantErr:   recording.ErrValidation,
		},
		{
			name:      "device unavailable",
			perm:      capture.PermissionGranted,
			startErr:  recording.NewError(recording.ErrCaptureFailure, "Failed to start recording: busy"),
			wantTitle: "Recording error",
			wantErr:   recording.ErrCaptureFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.gate.On("Check", mock.Anything).Return(tt.perm, tt.gateErr)
			f.engine.On("Start", mock.Anything).Return(tt.startErr).Maybe()

			err := f.p.Begin(context.Background())

			assert.ErrorIs(t, err, tt.wantErr)
			require.Len(t, f.notifier.alerts, 1)
			assert.Equal(t, tt.wantTitle, f.notifier.alerts[0].title)
		})
	}
}

func TestPipeline_FinishTwiceIsSilent(t *testing.T) {
	f := newFixture(t)
	f.staged(t)
	f.engine.On("Stop", mock.Anything).Return(nil, nil).Once()

	got, err := f.p.Finish(context.Background())

	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.Empty(t, f.notifier.alerts)
	assert.NotNil(t, f.p.Staged())
}

func TestPipeline_FinishFailure(t *testing.T) {
	f := newFixture(t)
	f.engine.On("Stop", mock.Anything).Return(nil, recording.NewError(recording.ErrCaptureFailure, "Failed to stop recording: io")).Once()

	_, err := f.p.Finish(context.Background())

	assert.ErrorIs(t, err, recording.ErrCaptureFailure)
	require.Len(t, f.notifier.alerts, 1)
	assert.Equal(t, "Recording error", f.notifier.alerts[0].title)
	assert.Nil(t, f.p.Staged())
}

func TestPipeline_SaveRejectsBlankName(t *testing.T) {
	for _, name := range []string{"", "   ", "\t\n"} {
		f := newFixture(t)
		f.staged(t)

		_, err := f.p.Save(context.Background(), name, Target{})

		assert.ErrorIs(t, err, recording.ErrValidation)
		require.Len(t, f.notifier.alerts, 1)
		assert.Equal(t, "Please enter a name for the recording", f.notifier.alerts[0].message)
		f.uploader.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
		assert.NotNil(t, f.p.Staged())
	}
}

func TestPipeline_SaveWithoutStagedRecording(t *testing.T) {
	f := newFixture(t)

	_, err := f.p.Save(context.Background(), "Note", Target{})

	assert.ErrorIs(t, err, recording.ErrValidation)
	f.uploader.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
}

func TestPipeline_SaveWithoutRequest(t *testing.T) {
	f := newFixture(t)
	s := f.staged(t)

	meta := recording.Metadata{
		Title:       "Morning",
		Description: "Recorded on May 1, 2024, 9:30:00 AM",
		PatientID:   "12",
	}
	f.uploader.On("Upload", mock.Anything, s, meta).Return(int64(42), nil).Once()
	f.history.On("SaveUpload", mock.Anything, recording.Upload{
		RecordingID:     42,
		Title:           "Morning",
		DurationSeconds: 5,
		PatientID:       "12",
		CreatedAt:       now,
	}).Return(int64(1), nil).Once()
	f.engine.On("Reset").Return().Once()

	res, err := f.p.Save(context.Background(), " Morning ", Target{Patient: recording.ParsePatientRef(`{"id": 12}`)})
	require.NoError(t, err)

	assert.Equal(t, Result{RecordingID: 42}, res)
	assert.Equal(t, 1, f.nav.calls)
	assert.Empty(t, f.notifier.alerts)
	assert.Nil(t, f.p.Staged())
	f.linker.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
	mock.AssertExpectationsForObjects(t, f.uploader, f.history, f.engine)
}

func TestPipeline_SaveCompletesRequestOnce(t *testing.T) {
	f := newFixture(t)
	s := f.staged(t)

	f.uploader.On("Upload", mock.Anything, s, mock.Anything).Return(int64(42), nil).Once()
	f.linker.On("Complete", mock.Anything, int64(7), int64(42)).Return(nil).Once()
	f.history.On("SaveUpload", mock.Anything, mock.MatchedBy(func(u recording.Upload) bool {
		return u.Linked && u.RequestID != nil && *u.RequestID == 7
	})).Return(int64(1), nil).Once()
	f.engine.On("Reset").Return()

	res, err := f.p.Save(context.Background(), "Answer", Target{Request: recording.ParseRequestRef("7")})
	require.NoError(t, err)

	assert.Equal(t, Result{RecordingID: 42, Linked: true}, res)
	assert.Equal(t, 1, f.nav.calls)
	f.linker.AssertNumberOfCalls(t, "Complete", 1)
	mock.AssertExpectationsForObjects(t, f.uploader, f.linker, f.history)
}

func TestPipeline_LinkFailureIsPartialSuccess(t *testing.T) {
	f := newFixture(t)
	s := f.staged(t)

	linkErr := &recording.DomainError{
		Err:     recording.ErrPartialSuccess,
		Message: "The recording was uploaded but the request could not be marked as complete.",
		Code:    "partial_success",
	}
	f.uploader.On("Upload", mock.Anything, s, mock.Anything).Return(int64(42), nil).Once()
	f.linker.On("Complete", mock.Anything, int64(7), int64(42)).Return(linkErr).Once()
	f.history.On("SaveUpload", mock.Anything, mock.MatchedBy(func(u recording.Upload) bool {
		return u.PendingLink()
	})).Return(int64(1), nil).Once()
	f.engine.On("Reset").Return()

	res, err := f.p.Save(context.Background(), "Answer", Target{Request: &recording.Request{ID: 7}})
	require.NoError(t, err)

	assert.Equal(t, Result{RecordingID: 42, Partial: true}, res)
	assert.Equal(t, 1, f.nav.calls)
	require.Len(t, f.notifier.alerts, 1)
	assert.Equal(t, "Failed to complete request", f.notifier.alerts[0].title)
	assert.Nil(t, f.p.Staged())
}

func TestPipeline_UploadFailureKeepsStagedRecording(t *testing.T) {
	f := newFixture(t)
	s := f.staged(t)

	f.uploader.On("Upload", mock.Anything, s, mock.Anything).
		Return(int64(0), recording.NewError(recording.ErrNetwork, "Failed to upload recording. Please check your connection and try again.")).Once()

	_, err := f.p.Save(context.Background(), "Note", Target{Request: &recording.Request{ID: 7}})

	assert.ErrorIs(t, err, recording.ErrNetwork)
	require.Len(t, f.notifier.alerts, 1)
	assert.Equal(t, "Upload failed", f.notifier.alerts[0].title)
	assert.Same(t, s, f.p.Staged())
	assert.Zero(t, f.nav.calls)
	f.linker.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
	f.history.AssertNotCalled(t, "SaveUpload", mock.Anything, mock.Anything)

	// повтор без новой записи
	f.uploader.On("Upload", mock.Anything, s, mock.Anything).Return(int64(43), nil).Once()
	f.linker.On("Complete", mock.Anything, int64(7), int64(43)).Return(nil).Once()
	f.history.On("SaveUpload", mock.Anything, mock.Anything).Return(int64(0), errors.New("disk full"))
	f.engine.On("Reset").Return()

	res, err := f.p.Save(context.Background(), "Note", Target{Request: &recording.Request{ID: 7}})
	require.NoError(t, err)
	assert.Equal(t, int64(43), res.RecordingID)
	assert.True(t, res.Linked)
	assert.Equal(t, 1, f.nav.calls)
}

func TestPipeline_Discard(t *testing.T) {
	f := newFixture(t)
	f.staged(t)
	f.engine.On("Reset").Return().Once()

	f.p.Discard()

	assert.Nil(t, f.p.Staged())
	f.engine.AssertExpectations(t)
}

func TestPipeline_Close(t *testing.T) {
	f := newFixture(t)
	f.engine.On("Close", mock.Anything).Return().Once()
	f.engine.On("Reset").Return()

	f.p.Close(context.Background())

	f.engine.AssertCalled(t, "Close", mock.Anything)
}

// Ниже - сквозной сценарий с настоящими движком, загрузчиком и линкером.

type blobRecorder struct {
	data     []byte
	released atomic.Int32
}

func (r *blobRecorder) Start(context.Context) error { return nil }
func (r *blobRecorder) Stop(context.Context) error  { return nil }
func (r *blobRecorder) Artifact() (recording.Artifact, error) {
	return recording.Artifact{Blob: &recording.Blob{Data: r.data, Type: capture.WebMIME}}, nil
}
func (r *blobRecorder) Release(context.Context) error {
	r.released.Add(1)
	return nil
}
func (r *blobRecorder) Failed() <-chan error { return nil }

type silentTicker struct{}

func (silentTicker) C() <-chan time.Time { return nil }
func (silentTicker) Stop()               {}

type silentClock struct{}

func (silentClock) NewTicker(time.Duration) capture.Ticker { return silentTicker{} }

func TestPipeline_EndToEnd(t *testing.T) {
	var uploads, completes int32
	var completeBody string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/recordings/upload/":
			atomic.AddInt32(&uploads, 1)
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			require.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Equal(t, "Cough", r.FormValue("title"))
			assert.Equal(t, "12", r.FormValue("patient_id"))
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"id": 42}`)
		case "/api/recordings/42/complete-request/":
			atomic.AddInt32(&completes, 1)
			data, _ := io.ReadAll(r.Body)
			completeBody = string(data)
			_, _ = io.WriteString(w, `{"status": "completed"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	build := func(cred auth.Credential) (*Pipeline, *capture.Engine, *recordingNotifier, *countingNavigator) {
		rec := &blobRecorder{data: []byte("webm")}
		engine := capture.NewEngine(capture.PlatformWeb, capture.Devices{}, slog.Default(),
			capture.WithClock(silentClock{}),
			capture.WithRecorderFactory(func() (capture.Recorder, error) { return rec, nil }),
		)
		tokens := auth.Static(cred)
		notifier := &recordingNotifier{}
		nav := &countingNavigator{}

		p := New(Deps{
			Gate:      capture.NewPermissionGate(capture.PlatformWeb, nil, nil, slog.Default()),
			Engine:    engine,
			Uploader:  upload.NewUploader(srv.Client(), srv.URL, tokens, slog.Default()),
			Linker:    upload.NewLinker(srv.Client(), srv.URL, tokens, slog.Default()),
			Notifier:  notifier,
			Navigator: nav,
		}, slog.Default())

		return p, engine, notifier, nav
	}

	t.Run("expired credential never reaches the network", func(t *testing.T) {
		p, engine, notifier, nav := build(auth.Credential{Token: "tok", ExpiresAt: time.Now().Add(-time.Minute)})
		ctx := context.Background()

		require.NoError(t, p.Begin(ctx))
		_, err := p.Finish(ctx)
		require.NoError(t, err)

		_, err = p.Save(ctx, "Cough", Target{Request: &recording.Request{ID: 7}})

		assert.ErrorIs(t, err, recording.ErrAuthRequired)
		assert.Equal(t, int32(0), atomic.LoadInt32(&uploads))
		require.Len(t, notifier.alerts, 1)
		assert.Equal(t, "Session expired", notifier.alerts[0].title)
		assert.Zero(t, nav.calls)
		assert.Equal(t, capture.StateStopped, engine.State())
		assert.Equal(t, 1, engine.ObjectURLs().Len())

		p.Discard()
		assert.Equal(t, capture.StateIdle, engine.State())
		assert.Zero(t, engine.ObjectURLs().Len())
	})

	t.Run("upload then complete", func(t *testing.T) {
		p, engine, notifier, nav := build(auth.Credential{Token: "tok", ExpiresAt: time.Now().Add(time.Hour)})
		ctx := context.Background()

		require.NoError(t, p.Begin(ctx))
		staged, err := p.Finish(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, staged.PlaybackURL)

		res, err := p.Save(ctx, "Cough", Target{
			Patient: recording.ParsePatientRef("12"),
			Request: recording.ParseRequestRef(`{"id": 7, "title": "Daily cough"}`),
		})
		require.NoError(t, err)

		assert.Equal(t, Result{RecordingID: 42, Linked: true}, res)
		assert.Equal(t, int32(1), atomic.LoadInt32(&uploads))
		assert.Equal(t, int32(1), atomic.LoadInt32(&completes))
		assert.JSONEq(t, `{"request_id": 7}`, completeBody)
		assert.Empty(t, notifier.alerts)
		assert.Equal(t, 1, nav.calls)
		assert.Equal(t, capture.StateIdle, engine.State())
		assert.Zero(t, engine.ObjectURLs().Len())

		p.Close(ctx)
	})
}
