package recording

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

var bearer = []map[string][]string{{"bearer": {}}}

func (h *Handler) uploadOp() huma.Operation {
	return huma.Operation{
		OperationID:   "recordings-upload",
		Method:        http.MethodPost,
		Path:          "/api/recordings/upload/",
		Summary:       "Загрузить аудиозапись",
		Description:   "multipart/form-data: file, title, description, patient_id (необязательно).",
		Tags:          []string{"recordings"},
		DefaultStatus: http.StatusCreated,
		MaxBodyBytes:  h.maxBodyBytes,
		Errors:        []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound},
		Security:      bearer,
		Middlewares:   h.middleware,
	}
}

func (h *Handler) byPatientOp() huma.Operation {
	return huma.Operation{
		OperationID: "recordings-by-patient",
		Method:      http.MethodGet,
		Path:        "/api/recordings/by_patient/",
		Summary:     "Записи пациента",
		Tags:        []string{"recordings"},
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden},
		Security:    bearer,
		Middlewares: h.middleware,
	}
}

func (h *Handler) completeOp() huma.Operation {
	return huma.Operation{
		OperationID: "recordings-complete-request",
		Method:      http.MethodPost,
		Path:        "/api/recordings/{id}/complete-request/",
		Summary:     "Отметить запрос выполненным этой записью",
		Tags:        []string{"recordings"},
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound, http.StatusConflict},
		Security:    bearer,
		Middlewares: h.middleware,
	}
}

func (h *Handler) createRequestOp() huma.Operation {
	return huma.Operation{
		OperationID:   "recording-requests-create",
		Method:        http.MethodPost,
		Path:          "/api/recording-requests/",
		Summary:       "Создать запрос на запись (провайдер)",
		Tags:          []string{"recording-requests"},
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound},
		Security:      bearer,
		Middlewares:   h.middleware,
	}
}

func (h *Handler) listRequestsOp() huma.Operation {
	return huma.Operation{
		OperationID: "recording-requests-list",
		Method:      http.MethodGet,
		Path:        "/api/recording-requests/",
		Summary:     "Запросы пациента",
		Tags:        []string{"recording-requests"},
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden},
		Security:    bearer,
		Middlewares: h.middleware,
	}
}
