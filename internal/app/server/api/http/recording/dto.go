package recording

import (
	"mime/multipart"

	"hypercase/internal/domain/recording"
)

// uploadInput - форма file, title, description, patient_id.
type uploadInput struct {
	RawBody multipart.Form
}

type recordingOutput struct {
	Body recording.Recording
}

type byPatientInput struct {
	PatientID string `query:"patient_id" doc:"ID пациента"`
}

type recordingsOutput struct {
	Body []recording.Recording
}

type completeInput struct {
	ID   int64 `path:"id" doc:"ID записи"`
	Body struct {
		RequestID int64 `json:"request_id" doc:"ID запроса на запись"`
	}
}

type CompleteResponse struct {
	Status      string `json:"status" example:"completed"`
	RequestID   int64  `json:"request_id"`
	RecordingID int64  `json:"recording_id"`
}

type completeOutput struct {
	Body CompleteResponse
}

type createRequestInput struct {
	Body struct {
		PatientID   int64  `json:"patient_id"`
		Title       string `json:"title" maxLength:"255"`
		Description string `json:"description,omitempty"`
	}
}

type requestOutput struct {
	Body recording.Request
}

type listRequestsInput struct {
	PatientID string `query:"patient_id" doc:"ID пациента"`
	Status    string `query:"status" enum:"sent,completed" doc:"Фильтр по статусу"`
}

type requestsOutput struct {
	Body []recording.Request
}
