package recording

import "time"

// RequestStatus - статус запроса на запись
type RequestStatus string

const (
	RequestStatusSent      RequestStatus = "sent"
	RequestStatusCompleted RequestStatus = "completed"
)

// Blob - аудио в памяти (web-вариант записи)
type Blob struct {
	Data []byte
	Type string
}

// Size возвращает размер блоба в байтах
func (b *Blob) Size() int {
	if b == nil {
		return 0
	}
	return len(b.Data)
}

// Artifact - результат записи: путь к файлу (native) или блоб (web)
type Artifact struct {
	URI  string
	Blob *Blob
}

// Empty проверяет, что артефакт ничего не содержит
func (a Artifact) Empty() bool {
	return a.URI == "" && (a.Blob == nil || len(a.Blob.Data) == 0)
}

// Staged - законченная, но еще не названная запись
type Staged struct {
	Artifact        Artifact
	DurationSeconds int
	PlaybackURL     string
}

// Metadata - метаданные загрузки
type Metadata struct {
	Title       string
	Description string
	PatientID   string
}

// Request - запрос провайдера пациенту на запись
type Request struct {
	ID          int64         `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	PatientID   int64         `json:"patient_id,omitempty"`
	ProviderID  int64         `json:"provider_id,omitempty"`
	Status      RequestStatus `json:"status,omitempty"`
	RecordingID *int64        `json:"recording_id,omitempty"`
	CreatedAt   time.Time     `json:"created_at,omitempty"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

// Completed сообщает, выполнен ли запрос
func (r *Request) Completed() bool {
	return r.Status == RequestStatusCompleted
}

// Recording - запись на сервере
type Recording struct {
	ID              int64     `json:"id"`
	PatientID       *int64    `json:"patient_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	FileKey         string    `json:"-"`
	FileURL         string    `json:"file_url"`
	FileSize        int64     `json:"file_size"`
	FileType        string    `json:"file_type"`
	DurationSeconds float64   `json:"duration"`
	UploadedBy      int64     `json:"uploaded_by,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Upload - строка локальной истории загрузок клиента
type Upload struct {
	ID              int64
	RecordingID     int64
	Title           string
	DurationSeconds int
	PatientID       string
	RequestID       *int64
	Linked          bool
	CreatedAt       time.Time
}

// PendingLink сообщает, что запрос остался не привязанным к записи
func (u Upload) PendingLink() bool {
	return u.RequestID != nil && !u.Linked
}
