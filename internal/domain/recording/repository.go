package recording

import (
	"context"
	"io"
	"time"
)

// RequestFilter - параметры выборки запросов на запись.
type RequestFilter struct {
	PatientID int64
	Status    RequestStatus
}

type Repository interface {
	Create(ctx context.Context, rec Recording) (int64, error)
	FindByID(ctx context.Context, id int64) (Recording, error)
	ListByPatient(ctx context.Context, patientID int64) ([]Recording, error)
	PatientExists(ctx context.Context, patientID int64) (bool, error)
}

type RequestRepository interface {
	Create(ctx context.Context, req Request) (int64, error)
	FindByID(ctx context.Context, id int64) (Request, error)
	List(ctx context.Context, filter RequestFilter) ([]Request, error)
	// Complete атомарно переводит запрос в completed. Возвращает ErrNotFound
	// или ErrAlreadyCompleted.
	Complete(ctx context.Context, requestID, recordingID int64, at time.Time) error
}

// ObjectStore хранит аудиофайлы. Put возвращает URL, по которому файл доступен.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
	// Delete удаляет объект; отсутствующий ключ не ошибка.
	Delete(ctx context.Context, key string) error
}
