package health

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// Публичная операция: клиент `hypercase health` вызывает ее до логина.
func (h *Handler) healthCheckOp() huma.Operation {
	return huma.Operation{
		OperationID: "service-status",
		Method:      http.MethodGet,
		Path:        "/api/v1/health",
		Summary:     "Состояние сервиса и БД",
		Description: "Отвечает 200, пока backend принимает запросы. Если подключена БД, " +
			"она пингуется; недоступная БД дает 503.",
		Tags:        []string{"service"},
		Errors:      []int{http.StatusServiceUnavailable},
		Middlewares: h.middleware,
	}
}
