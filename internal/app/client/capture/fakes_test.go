package capture

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

type fakeTicker struct {
	ch      chan time.Time
	stopped atomic.Bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }
func (t *fakeTicker) Stop()               { t.stopped.Store(true) }

type fakeClock struct {
	mu      sync.Mutex
	tickers []*fakeTicker
}

func (c *fakeClock) NewTicker(time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &fakeTicker{ch: make(chan time.Time)}
	c.tickers = append(c.tickers, t)
	return t
}

func (c *fakeClock) last() *fakeTicker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tickers[len(c.tickers)-1]
}

// tick блокируется, пока горутина движка не примет каждый тик.
func (c *fakeClock) tick(n int) {
	t := c.last()
	for i := 0; i < n; i++ {
		t.ch <- time.Now()
	}
}

type fakeStream struct {
	stops int
}

func (s *fakeStream) Stop() error {
	s.stops++
	return nil
}

type fakeMediaRecorder struct {
	chunks  [][]byte
	onData  func([]byte)
	failed  chan error
	stopErr error
	stops   int
}

func (r *fakeMediaRecorder) Start(_ context.Context, onData func([]byte)) error {
	r.onData = onData
	return nil
}

func (r *fakeMediaRecorder) Stop(context.Context) error {
	r.stops++
	if r.stops == 1 {
		for _, c := range r.chunks {
			r.onData(c)
		}
	}
	return r.stopErr
}

func (r *fakeMediaRecorder) Failed() <-chan error { return r.failed }

type fakeMedia struct {
	mu        sync.Mutex
	chunks    [][]byte
	getErr    error
	streams   []*fakeStream
	recorders []*fakeMediaRecorder
}

func (m *fakeMedia) GetUserMedia(context.Context) (MediaStream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getErr != nil {
		return nil, m.getErr
	}
	s := &fakeStream{}
	m.streams = append(m.streams, s)
	return s, nil
}

func (m *fakeMedia) NewMediaRecorder(MediaStream) (MediaRecorder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := &fakeMediaRecorder{chunks: m.chunks, failed: make(chan error, 1)}
	m.recorders = append(m.recorders, r)
	return r, nil
}

func (m *fakeMedia) lastRecorder() *fakeMediaRecorder {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recorders[len(m.recorders)-1]
}

type fakeSession struct {
	mu    sync.Mutex
	modes []AudioMode
}

func (s *fakeSession) SetMode(_ context.Context, mode AudioMode) error {
	s.mu.Lock()
	s.modes = append(s.modes, mode)
	s.mu.Unlock()
	return nil
}

type fakeHandle struct {
	mu      sync.Mutex
	uri     string
	unloads int
	stopErr error
	failed  chan error
}

func (h *fakeHandle) StopAndUnload(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unloads++
	return h.stopErr
}

func (h *fakeHandle) URI() string          { return h.uri }
func (h *fakeHandle) Failed() <-chan error { return h.failed }

func (h *fakeHandle) unloadCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.unloads
}

type fakeHandles struct {
	mu        sync.Mutex
	createErr error
	stopErr   error
	handles   []*fakeHandle
}

func (f *fakeHandles) Create(context.Context, Quality) (RecordingHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return nil, f.createErr
	}
	h := &fakeHandle{
		uri:     "file:///tmp/recording.m4a",
		stopErr: f.stopErr,
		failed:  make(chan error, 1),
	}
	f.handles = append(f.handles, h)
	return h, nil
}

func (f *fakeHandles) last() *fakeHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handles[len(f.handles)-1]
}
