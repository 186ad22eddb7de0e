package recording

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"hypercase/internal/domain/user"
)

// ObjectPrefix - префикс ключей аудиофайлов в хранилище.
const ObjectPrefix = "recordings/"

// Policy - ограничения на загружаемые файлы.
type Policy struct {
	MaxBytes       int64
	AllowedFormats []string
}

func (p Policy) allowed(ct string) bool {
	if len(p.AllowedFormats) == 0 {
		return true
	}
	base := BaseContentType(ct)
	for _, f := range p.AllowedFormats {
		if BaseContentType(f) == base {
			return true
		}
	}
	return false
}

// TooLargeMessage - текст ошибки для файла больше maxBytes.
func TooLargeMessage(maxBytes int64) string {
	return fmt.Sprintf("File too large. Max size is %dMB", maxBytes>>20)
}

// Actor - пользователь, выполняющий операцию.
type Actor struct {
	UserID int64
	Role   user.Role
}

func (a Actor) provider() bool {
	return a.Role == user.RoleProvider
}

// UploadInput - разобранная multipart-форма загрузки.
type UploadInput struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
	Title       string
	Description string
	PatientID   string
}

type NewRequest struct {
	PatientID   int64
	Title       string
	Description string
}

type Servicer interface {
	Upload(ctx context.Context, actor Actor, in UploadInput) (Recording, error)
	ByPatient(ctx context.Context, actor Actor, rawPatientID string) ([]Recording, error)
	CompleteRequest(ctx context.Context, actor Actor, recordingID, requestID int64) error
	CreateRequest(ctx context.Context, actor Actor, in NewRequest) (Request, error)
	ListRequests(ctx context.Context, actor Actor, rawPatientID, status string) ([]Request, error)
}

type Service struct {
	recordings Repository
	requests   RequestRepository
	store      ObjectStore
	policy     Policy
	now        func() time.Time
	log        *slog.Logger
}

func NewService(recordings Repository, requests RequestRepository, store ObjectStore, policy Policy, log *slog.Logger) *Service {
	return &Service{
		recordings: recordings,
		requests:   requests,
		store:      store,
		policy:     policy,
		now:        time.Now,
		log:        log.With(slog.String("component", "recordings")),
	}
}

// WithNow подменяет часы; используется в тестах.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// Upload сохраняет файл и запись. Порядок проверок: файл, размер, тип, пациент.
func (s *Service) Upload(ctx context.Context, actor Actor, in UploadInput) (Recording, error) {
	if in.Body == nil || in.FileName == "" {
		return Recording{}, NewError(ErrInvalidInput, "No file provided")
	}

	if s.policy.MaxBytes > 0 && in.Size > s.policy.MaxBytes {
		return Recording{}, NewError(ErrInvalidInput, "%s", TooLargeMessage(s.policy.MaxBytes))
	}

	if !s.policy.allowed(in.ContentType) {
		return Recording{}, NewError(ErrInvalidInput, "File type %s not allowed", in.ContentType)
	}

	patientID, err := s.resolvePatient(ctx, actor, in.PatientID)
	if err != nil {
		return Recording{}, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = TitleFromFilename(in.FileName)
	}

	key := ObjectPrefix + uuid.NewString() + ExtForContentType(in.ContentType, in.FileName)
	url, err := s.store.Put(ctx, key, in.ContentType, in.Body, in.Size)
	if err != nil {
		return Recording{}, fmt.Errorf("store object: %w", err)
	}

	rec := Recording{
		PatientID:   patientID,
		Title:       title,
		Description: in.Description,
		FileKey:     key,
		FileURL:     url,
		FileSize:    in.Size,
		FileType:    in.ContentType,
		UploadedBy:  actor.UserID,
		CreatedAt:   s.now().UTC(),
	}

	rec.ID, err = s.recordings.Create(ctx, rec)
	if err != nil {
		s.dropObject(ctx, key)
		return Recording{}, fmt.Errorf("save recording: %w", err)
	}

	s.log.Info("recording uploaded",
		slog.Int64("recording_id", rec.ID),
		slog.String("key", key),
		slog.Int64("size", in.Size),
	)

	return rec, nil
}

func (s *Service) resolvePatient(ctx context.Context, actor Actor, raw string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if actor.provider() {
			return nil, nil
		}
		id := actor.UserID
		return &id, nil
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, NewError(ErrInvalidInput, "Invalid patient_id format: %s. Must be an integer.", raw)
	}

	if !actor.provider() && id != actor.UserID {
		return nil, NewError(ErrForbidden, "Patients can only upload their own recordings")
	}

	ok, err := s.recordings.PatientExists(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("check patient: %w", err)
	}
	if !ok {
		return nil, NewError(ErrNotFound, "Patient with id %d does not exist", id)
	}

	return &id, nil
}

func (s *Service) ByPatient(ctx context.Context, actor Actor, rawPatientID string) ([]Recording, error) {
	patientID, err := s.patientQuery(actor, rawPatientID)
	if err != nil {
		return nil, err
	}

	recs, err := s.recordings.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}
	if recs == nil {
		recs = []Recording{}
	}
	return recs, nil
}

func (s *Service) patientQuery(actor Actor, raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, NewError(ErrInvalidInput, "patient_id query parameter is required")
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, NewError(ErrInvalidInput, "Invalid patient_id format: %s. Must be an integer.", raw)
	}

	if !actor.provider() && id != actor.UserID {
		return 0, NewError(ErrForbidden, "Patients can only view their own data")
	}

	return id, nil
}

// dropObject удаляет файл, на который не осталось записи. Ошибка только логируется.
func (s *Service) dropObject(ctx context.Context, key string) {
	if err := s.store.Delete(context.WithoutCancel(ctx), key); err != nil {
		s.log.Error("delete orphaned object", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// CompleteRequest помечает запрос выполненным и связывает его с записью.
// Запись должна принадлежать пациенту запроса, а закрыть запрос может только
// этот пациент или провайдер, который его создал.
func (s *Service) CompleteRequest(ctx context.Context, actor Actor, recordingID, requestID int64) error {
	if requestID <= 0 {
		return NewError(ErrInvalidInput, "request_id is required")
	}

	rec, err := s.recordings.FindByID(ctx, recordingID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return NewError(ErrNotFound, "Recording not found")
		}
		return fmt.Errorf("find recording: %w", err)
	}

	req, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return NewError(ErrNotFound, "Request not found")
		}
		return fmt.Errorf("find request: %w", err)
	}

	if actor.UserID != req.PatientID && actor.UserID != req.ProviderID {
		return NewError(ErrForbidden, "You cannot complete this request")
	}
	if rec.PatientID == nil || *rec.PatientID != req.PatientID {
		return NewError(ErrForbidden, "Recording does not belong to the request's patient")
	}
	if req.Completed() {
		return NewError(ErrAlreadyCompleted, "Request already completed")
	}

	err = s.requests.Complete(ctx, requestID, recordingID, s.now().UTC())
	switch {
	case errors.Is(err, ErrNotFound):
		return NewError(ErrNotFound, "Request not found")
	case errors.Is(err, ErrAlreadyCompleted):
		return NewError(ErrAlreadyCompleted, "Request already completed")
	case err != nil:
		return fmt.Errorf("complete request: %w", err)
	}

	s.log.Info("request completed",
		slog.Int64("request_id", requestID),
		slog.Int64("recording_id", recordingID),
		slog.Int64("user_id", actor.UserID),
	)
	return nil
}

func (s *Service) CreateRequest(ctx context.Context, actor Actor, in NewRequest) (Request, error) {
	if !actor.provider() {
		return Request{}, NewError(ErrForbidden, "Only providers can create recording requests")
	}

	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return Request{}, NewError(ErrInvalidInput, "title is required")
	}
	if in.PatientID <= 0 {
		return Request{}, NewError(ErrInvalidInput, "patient_id is required")
	}

	ok, err := s.recordings.PatientExists(ctx, in.PatientID)
	if err != nil {
		return Request{}, fmt.Errorf("check patient: %w", err)
	}
	if !ok {
		return Request{}, NewError(ErrNotFound, "Patient with id %d does not exist", in.PatientID)
	}

	req := Request{
		Title:       in.Title,
		Description: in.Description,
		PatientID:   in.PatientID,
		ProviderID:  actor.UserID,
		Status:      RequestStatusSent,
		CreatedAt:   s.now().UTC(),
	}

	req.ID, err = s.requests.Create(ctx, req)
	if err != nil {
		return Request{}, fmt.Errorf("save request: %w", err)
	}

	return req, nil
}

func (s *Service) ListRequests(ctx context.Context, actor Actor, rawPatientID, status string) ([]Request, error) {
	patientID, err := s.patientQuery(actor, rawPatientID)
	if err != nil {
		return nil, err
	}

	st := RequestStatus(strings.ToLower(strings.TrimSpace(status)))
	if st != "" && st != RequestStatusSent && st != RequestStatusCompleted {
		return nil, NewError(ErrInvalidInput, "Unknown status: %s", status)
	}

	reqs, err := s.requests.List(ctx, RequestFilter{PatientID: patientID, Status: st})
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	if reqs == nil {
		reqs = []Request{}
	}
	return reqs, nil
}
