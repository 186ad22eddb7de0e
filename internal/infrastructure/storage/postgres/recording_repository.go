package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/exp/slog"

	"hypercase/internal/domain/recording"
)

const recordingColumns = `id, patient_id, uploaded_by, title, description, file_key, file_url, file_size, file_type, duration, created_at`

type RecordingRepository struct {
	db  *Storage
	log *slog.Logger
}

func NewRecordingRepository(db *Storage, log *slog.Logger) *RecordingRepository {
	return &RecordingRepository{db: db, log: log}
}

func (r *RecordingRepository) Create(ctx context.Context, rec recording.Recording) (int64, error) {
	var id int64
	err := r.db.Pool().QueryRow(ctx,
		`INSERT INTO recordings (patient_id, uploaded_by, title, description, file_key, file_url, file_size, file_type, duration, created_at)
         VALUES ($1, NULLIF($2::bigint, 0), $3, $4, $5, $6, $7, $8, $9, $10)
         RETURNING id`,
		rec.PatientID, rec.UploadedBy, rec.Title, rec.Description, rec.FileKey, rec.FileURL,
		rec.FileSize, rec.FileType, rec.DurationSeconds, rec.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert recording: %w", err)
	}
	return id, nil
}

func (r *RecordingRepository) FindByID(ctx context.Context, id int64) (recording.Recording, error) {
	row := r.db.Pool().QueryRow(ctx, `SELECT `+recordingColumns+` FROM recordings WHERE id = $1`, id)

	rec, err := scanRecording(row)
	if err != nil {
		if isNoRows(err) {
			return rec, recording.ErrNotFound
		}
		return rec, fmt.Errorf("select recording: %w", err)
	}
	return rec, nil
}

func (r *RecordingRepository) ListByPatient(ctx context.Context, patientID int64) ([]recording.Recording, error) {
	rows, err := r.db.Pool().Query(ctx,
		`SELECT `+recordingColumns+` FROM recordings WHERE patient_id = $1 ORDER BY created_at DESC, id DESC`,
		patientID)
	if err != nil {
		return nil, fmt.Errorf("select recordings: %w", err)
	}
	defer rows.Close()

	var recs []recording.Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recording: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (r *RecordingRepository) PatientExists(ctx context.Context, patientID int64) (bool, error) {
	var ok bool
	err := r.db.Pool().QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1 AND role = 'patient')`, patientID).Scan(&ok)
	return ok, err
}

func scanRecording(row pgx.Row) (recording.Recording, error) {
	var (
		rec        recording.Recording
		uploadedBy *int64
	)
	err := row.Scan(&rec.ID, &rec.PatientID, &uploadedBy, &rec.Title, &rec.Description, &rec.FileKey,
		&rec.FileURL, &rec.FileSize, &rec.FileType, &rec.DurationSeconds, &rec.CreatedAt)
	if uploadedBy != nil {
		rec.UploadedBy = *uploadedBy
	}
	return rec, err
}

// ==================== Requests ====================

const requestColumns = `id, patient_id, provider_id, title, description, status, recording_id, created_at, completed_at`

type RequestRepository struct {
	db  *Storage
	log *slog.Logger
}

func NewRequestRepository(db *Storage, log *slog.Logger) *RequestRepository {
	return &RequestRepository{db: db, log: log}
}

func (r *RequestRepository) Create(ctx context.Context, req recording.Request) (int64, error) {
	var id int64
	err := r.db.Pool().QueryRow(ctx,
		`INSERT INTO recording_requests (patient_id, provider_id, title, description, status, created_at)
         VALUES ($1, $2, $3, $4, $5, $6)
         RETURNING id`,
		req.PatientID, req.ProviderID, req.Title, req.Description, string(req.Status), req.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert request: %w", err)
	}
	return id, nil
}

func (r *RequestRepository) FindByID(ctx context.Context, id int64) (recording.Request, error) {
	req, err := scanRequest(r.db.Pool().QueryRow(ctx,
		`SELECT `+requestColumns+` FROM recording_requests WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return recording.Request{}, recording.ErrNotFound
		}
		return recording.Request{}, fmt.Errorf("select request: %w", err)
	}
	return req, nil
}

func (r *RequestRepository) List(ctx context.Context, filter recording.RequestFilter) ([]recording.Request, error) {
	rows, err := r.db.Pool().Query(ctx,
		`SELECT `+requestColumns+` FROM recording_requests
         WHERE patient_id = $1 AND ($2 = '' OR status = $2)
         ORDER BY created_at DESC, id DESC`,
		filter.PatientID, string(filter.Status))
	if err != nil {
		return nil, fmt.Errorf("select requests: %w", err)
	}
	defer rows.Close()

	var reqs []recording.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

func scanRequest(row pgx.Row) (recording.Request, error) {
	var (
		req    recording.Request
		status string
	)
	err := row.Scan(&req.ID, &req.PatientID, &req.ProviderID, &req.Title, &req.Description,
		&status, &req.RecordingID, &req.CreatedAt, &req.CompletedAt)
	req.Status = recording.RequestStatus(status)
	return req, err
}

// Complete выполняет переход sent -> completed одним UPDATE, поэтому
// параллельные вызовы не могут привязать две записи.
func (r *RequestRepository) Complete(ctx context.Context, requestID, recordingID int64, at time.Time) error {
	tag, err := r.db.Pool().Exec(ctx,
		`UPDATE recording_requests
         SET status = 'completed', recording_id = $2, completed_at = $3
         WHERE id = $1 AND status <> 'completed'`,
		requestID, recordingID, at)
	if err != nil {
		return fmt.Errorf("update request: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var status string
	err = r.db.Pool().QueryRow(ctx, `SELECT status FROM recording_requests WHERE id = $1`, requestID).Scan(&status)
	if err != nil {
		if isNoRows(err) {
			return recording.ErrNotFound
		}
		return fmt.Errorf("select request: %w", err)
	}
	return recording.ErrAlreadyCompleted
}
