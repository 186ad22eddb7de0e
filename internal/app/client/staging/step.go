package staging

import (
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/exp/slog"

	"hypercase/internal/domain/recording"
)

const descriptionLayout = "Jan 2, 2006, 3:04:05 PM"

var ErrNotOpen = errors.New("naming step is not open")

// Resetter возвращает движок записи в Idle и отзывает URL воспроизведения.
type Resetter interface {
	Reset()
}

// Step держит staged-запись до подтверждения имени или отмены.
type Step struct {
	engine Resetter
	now    func() time.Time
	log    *slog.Logger

	mu     sync.Mutex
	staged *recording.Staged
}

func NewStep(engine Resetter, log *slog.Logger) *Step {
	return &Step{
		engine: engine,
		now:    time.Now,
		log:    log.With(slog.String("component", "naming_step")),
	}
}

// WithNow подменяет часы для описания записи.
func (s *Step) WithNow(now func() time.Time) *Step {
	s.now = now
	return s
}

func (s *Step) Open(staged *recording.Staged) error {
	if staged == nil || staged.Artifact.Empty() {
		return recording.NewError(recording.ErrCaptureFailure, "No recording to save.")
	}

	s.mu.Lock()
	s.staged = staged
	s.mu.Unlock()

	return nil
}

func (s *Step) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.staged != nil
}

func (s *Step) Staged() *recording.Staged {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.staged
}

// Confirm проверяет имя. Пустое имя отклоняется, состояние не меняется.
// Запись остается в шаге до Complete или Cancel, чтобы можно было повторить загрузку.
func (s *Step) Confirm(name string) (recording.Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.staged == nil {
		return recording.Metadata{}, ErrNotOpen
	}

	title := strings.TrimSpace(name)
	if title == "" {
		return recording.Metadata{}, recording.NewError(recording.ErrValidation, "Please enter a name for the recording")
	}

	return recording.Metadata{
		Title:       title,
		Description: "Recorded on " + s.now().Format(descriptionLayout),
	}, nil
}

// Cancel отбрасывает запись.
func (s *Step) Cancel() {
	s.drop()
	s.log.Debug("staged recording discarded")
}

// Complete закрывает шаг после успешной загрузки.
func (s *Step) Complete() {
	s.drop()
	s.log.Debug("staged recording consumed")
}

func (s *Step) drop() {
	s.mu.Lock()
	s.staged = nil
	s.mu.Unlock()

	s.engine.Reset()
}
