package recording

import (
	"context"
	"mime/multipart"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"hypercase/internal/app/server/api/http/httperr"
	"hypercase/internal/app/server/api/http/middleware/auth"
	"hypercase/internal/domain/recording"
	"hypercase/internal/utils/logger"
)

type Handler struct {
	service      recording.Servicer
	log          *slog.Logger
	middleware   huma.Middlewares
	maxBodyBytes int64
}

// NewHandler создает обработчик; maxBodyBytes ограничивает тело загрузки.
func NewHandler(service recording.Servicer, log *slog.Logger, mws huma.Middlewares, maxBodyBytes int64) *Handler {
	return &Handler{
		service:      service,
		log:          log,
		middleware:   mws,
		maxBodyBytes: maxBodyBytes,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.uploadOp(), h.upload)
	huma.Register(api, h.byPatientOp(), h.byPatient)
	huma.Register(api, h.completeOp(), h.complete)
	huma.Register(api, h.createRequestOp(), h.createRequest)
	huma.Register(api, h.listRequestsOp(), h.listRequests)
}

func (h *Handler) upload(ctx context.Context, input *uploadInput) (*recordingOutput, error) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	form := &input.RawBody
	defer func() {
		if err := form.RemoveAll(); err != nil {
			h.log.Warn("remove multipart temp files", logger.Err(err))
		}
	}()

	in := recording.UploadInput{
		Title:       formValue(form, "title"),
		Description: formValue(form, "description"),
		PatientID:   formValue(form, "patient_id"),
	}

	if files := form.File["file"]; len(files) > 0 {
		fh := files[0]
		f, err := fh.Open()
		if err != nil {
			h.log.Error("open uploaded file", logger.Err(err))
			return nil, huma.Error400BadRequest("Could not read uploaded file")
		}
		defer f.Close()

		in.FileName = fh.Filename
		in.ContentType = fh.Header.Get("Content-Type")
		in.Size = fh.Size
		in.Body = f
	}

	rec, err := h.service.Upload(ctx, actor, in)
	if err != nil {
		return nil, httperr.FromRecording(err, h.log)
	}

	return &recordingOutput{Body: rec}, nil
}

func (h *Handler) byPatient(ctx context.Context, input *byPatientInput) (*recordingsOutput, error) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	recs, err := h.service.ByPatient(ctx, actor, input.PatientID)
	if err != nil {
		return nil, httperr.FromRecording(err, h.log)
	}

	return &recordingsOutput{Body: recs}, nil
}

func (h *Handler) complete(ctx context.Context, input *completeInput) (*completeOutput, error) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	if err := h.service.CompleteRequest(ctx, actor, input.ID, input.Body.RequestID); err != nil {
		return nil, httperr.FromRecording(err, h.log)
	}

	return &completeOutput{Body: CompleteResponse{
		Status:      string(recording.RequestStatusCompleted),
		RequestID:   input.Body.RequestID,
		RecordingID: input.ID,
	}}, nil
}

func (h *Handler) createRequest(ctx context.Context, input *createRequestInput) (*requestOutput, error) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	req, err := h.service.CreateRequest(ctx, actor, recording.NewRequest{
		PatientID:   input.Body.PatientID,
		Title:       input.Body.Title,
		Description: input.Body.Description,
	})
	if err != nil {
		return nil, httperr.FromRecording(err, h.log)
	}

	return &requestOutput{Body: req}, nil
}

func (h *Handler) listRequests(ctx context.Context, input *listRequestsInput) (*requestsOutput, error) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	reqs, err := h.service.ListRequests(ctx, actor, input.PatientID, input.Status)
	if err != nil {
		return nil, httperr.FromRecording(err, h.log)
	}

	return &requestsOutput{Body: reqs}, nil
}

// Helper functions

func actorFrom(ctx context.Context) (recording.Actor, bool) {
	p, ok := auth.GetPrincipal(ctx)
	if !ok {
		return recording.Actor{}, false
	}
	return recording.Actor{UserID: p.UserID, Role: p.Role}, true
}

func formValue(form *multipart.Form, key string) string {
	if vals := form.Value[key]; len(vals) > 0 {
		return strings.TrimSpace(vals[0])
	}
	return ""
}
