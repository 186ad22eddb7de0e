package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"hypercase/internal/utils/logger"
)

const (
	defaultBinary   = "ffmpeg"
	stopGracePeriod = 5 * time.Second
	readChunkSize   = 32 * 1024
)

// FFmpeg - устройства записи по умолчанию для обеих платформ.
// native пишет .m4a в Dir, web отдает webm/opus кусками из stdout.
type FFmpeg struct {
	Binary      string
	InputFormat string
	InputDevice string
	Dir         string
	Log         *slog.Logger

	mode atomic.Value
}

func NewFFmpeg(binary, inputFormat, inputDevice, dir string, log *slog.Logger) *FFmpeg {
	if binary == "" {
		binary = defaultBinary
	}
	return &FFmpeg{
		Binary:      binary,
		InputFormat: inputFormat,
		InputDevice: inputDevice,
		Dir:         dir,
		Log:         log.With(slog.String("component", "ffmpeg")),
	}
}

// Devices собирает Devices для NewRecorder.
func (f *FFmpeg) Devices() Devices {
	return Devices{Audio: f, Handles: f, Media: f}
}

func (f *FFmpeg) SetMode(_ context.Context, mode AudioMode) error {
	f.mode.Store(mode)
	return nil
}

func (f *FFmpeg) inputArgs() []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-nostats"}
	if f.InputFormat != "" {
		args = append(args, "-f", f.InputFormat)
	}
	device := f.InputDevice
	if device == "" {
		device = "default"
	}
	return append(args, "-i", device)
}

func (f *FFmpeg) Create(ctx context.Context, _ Quality) (RecordingHandle, error) {
	if mode, ok := f.mode.Load().(AudioMode); ok && !mode.AllowsRecording {
		return nil, errors.New("audio session does not allow recording")
	}

	if err := os.MkdirAll(f.Dir, 0700); err != nil {
		return nil, fmt.Errorf("create recordings dir: %w", err)
	}
	path := filepath.Join(f.Dir, fmt.Sprintf("recording-%s.m4a", uuid.NewString()))

	args := append(f.inputArgs(),
		"-c:a", "aac",
		"-ar", "44100",
		"-ac", "1",
		"-b:a", "128k",
		"-y", path,
	)

	proc, err := startProcess(ctx, f.Binary, args, nil, f.Log)
	if err != nil {
		return nil, err
	}

	return &fileHandle{proc: proc, path: path}, nil
}

func (f *FFmpeg) GetUserMedia(_ context.Context) (MediaStream, error) {
	if _, err := exec.LookPath(f.Binary); err != nil {
		return nil, fmt.Errorf("microphone unavailable: %w", err)
	}
	return &execStream{}, nil
}

func (f *FFmpeg) NewMediaRecorder(stream MediaStream) (MediaRecorder, error) {
	if _, ok := stream.(*execStream); !ok {
		return nil, fmt.Errorf("unsupported stream %T", stream)
	}
	return &execMediaRecorder{ffmpeg: f}, nil
}

type fileHandle struct {
	proc *process
	path string
}

func (h *fileHandle) StopAndUnload(ctx context.Context) error {
	return h.proc.stop(ctx)
}

func (h *fileHandle) URI() string {
	return "file://" + filepath.ToSlash(h.path)
}

func (h *fileHandle) Failed() <-chan error {
	return h.proc.failed
}

type execStream struct {
	stopped atomic.Bool
}

func (s *execStream) Stop() error {
	s.stopped.Store(true)
	return nil
}

type execMediaRecorder struct {
	ffmpeg *FFmpeg
	proc   *process
}

func (r *execMediaRecorder) Start(ctx context.Context, onData func([]byte)) error {
	args := append(r.ffmpeg.inputArgs(),
		"-c:a", "libopus",
		"-b:a", "64k",
		"-f", "webm",
		"pipe:1",
	)

	proc, err := startProcess(ctx, r.ffmpeg.Binary, args, onData, r.ffmpeg.Log)
	if err != nil {
		return err
	}
	r.proc = proc

	return nil
}

func (r *execMediaRecorder) Stop(ctx context.Context) error {
	if r.proc == nil {
		return nil
	}
	return r.proc.stop(ctx)
}

func (r *execMediaRecorder) Failed() <-chan error {
	if r.proc == nil {
		return nil
	}
	return r.proc.failed
}

// process - запущенный ffmpeg. Останавливается отправкой q в stdin.
type process struct {
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	done     chan struct{}
	failed   chan error
	stopping atomic.Bool
	stopOnce sync.Once
	log      *slog.Logger
}

func startProcess(_ context.Context, binary string, args []string, onData func([]byte), log *slog.Logger) (*process, error) {
	// без ctx: запись живет дольше запроса и останавливается явно
	cmd := exec.Command(binary, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}

	var stdout io.ReadCloser
	if onData != nil {
		stdout, err = cmd.StdoutPipe()
		if err != nil {
			return nil, fmt.Errorf("stdout pipe: %w", err)
		}
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", binary, err)
	}

	p := &process{
		cmd:    cmd,
		stdin:  stdin,
		done:   make(chan struct{}),
		failed: make(chan error, 1),
		log:    log,
	}

	go p.wait(stdout, onData)

	log.Debug("recorder process started", slog.Int("pid", cmd.Process.Pid))

	return p, nil
}

func (p *process) wait(stdout io.Reader, onData func([]byte)) {
	defer close(p.done)

	// stdout нужно дочитать до Wait
	if stdout != nil {
		buf := make([]byte, readChunkSize)
		for {
			n, err := stdout.Read(buf)
			if n > 0 {
				onData(buf[:n])
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					p.log.Warn("read recorder output", logger.Err(err))
				}
				break
			}
		}
	}

	err := p.cmd.Wait()
	if p.stopping.Load() {
		return
	}
	if err == nil {
		err = errors.New("recorder exited")
	}
	p.failed <- err
}

func (p *process) stop(ctx context.Context) error {
	var err error

	p.stopOnce.Do(func() {
		p.stopping.Store(true)

		if _, werr := io.WriteString(p.stdin, "q"); werr != nil {
			p.log.Debug("send quit", logger.Err(werr))
		}
		_ = p.stdin.Close()

		timer := time.NewTimer(stopGracePeriod)
		defer timer.Stop()

		select {
		case <-p.done:
		case <-timer.C:
			p.log.Warn("recorder did not stop in time, killing")
			_ = p.cmd.Process.Kill()
			<-p.done
		case <-ctx.Done():
			_ = p.cmd.Process.Kill()
			<-p.done
			err = ctx.Err()
		}
	})

	return err
}
