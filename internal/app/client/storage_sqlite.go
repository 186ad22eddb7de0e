package client

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"hypercase/internal/domain/recording"
)

var ErrUploadNotFound = errors.New("upload not found")

// SQLiteStorage - локальная история загрузок.
type SQLiteStorage struct {
	db *sql.DB
}

// UploadFilter - фильтр истории. Пустые поля не ограничивают выборку.
type UploadFilter struct {
	PatientID   string
	PendingOnly bool
	Limit       int
}

func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия базы данных: %w", err)
	}

	storage := &SQLiteStorage{db: db}

	if err := storage.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка инициализации таблиц: %w", err)
	}

	return storage, nil
}

func (s *SQLiteStorage) initTables() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS uploads (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			recording_id INTEGER NOT NULL UNIQUE,
			title TEXT NOT NULL,
			duration_seconds INTEGER NOT NULL DEFAULT 0,
			patient_id TEXT NOT NULL DEFAULT '',
			request_id INTEGER,
			linked BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_uploads_patient ON uploads(patient_id);
		CREATE INDEX IF NOT EXISTS idx_uploads_created ON uploads(created_at);
	`)

	return err
}

// SaveUpload добавляет загрузку в историю; повтор по recording_id обновляет строку.
func (s *SQLiteStorage) SaveUpload(ctx context.Context, u recording.Upload) (int64, error) {
	var requestID sql.NullInt64
	if u.RequestID != nil {
		requestID = sql.NullInt64{Int64: *u.RequestID, Valid: true}
	}

	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO uploads (recording_id, title, duration_seconds, patient_id, request_id, linked, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(recording_id) DO UPDATE SET
			title = excluded.title,
			duration_seconds = excluded.duration_seconds,
			patient_id = excluded.patient_id,
			request_id = excluded.request_id,
			linked = excluded.linked
		RETURNING id
	`, u.RecordingID, u.Title, u.DurationSeconds, u.PatientID, requestID, u.Linked, u.CreatedAt.UTC()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ошибка сохранения загрузки: %w", err)
	}

	return id, nil
}

func (s *SQLiteStorage) GetUpload(ctx context.Context, recordingID int64) (recording.Upload, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, recording_id, title, duration_seconds, patient_id, request_id, linked, created_at
		FROM uploads
		WHERE recording_id = ?
	`, recordingID)

	u, err := scanUpload(row)
	if errors.Is(err, sql.ErrNoRows) {
		return recording.Upload{}, fmt.Errorf("%w: %d", ErrUploadNotFound, recordingID)
	}
	if err != nil {
		return recording.Upload{}, fmt.Errorf("ошибка получения загрузки: %w", err)
	}

	return u, nil
}

func (s *SQLiteStorage) ListUploads(ctx context.Context, filter UploadFilter) ([]recording.Upload, error) {
	query := `SELECT id, recording_id, title, duration_seconds, patient_id, request_id, linked, created_at
		FROM uploads WHERE 1=1`
	args := []any{}

	if filter.PatientID != "" {
		query += " AND patient_id = ?"
		args = append(args, filter.PatientID)
	}

	if filter.PendingOnly {
		query += " AND request_id IS NOT NULL AND linked = 0"
	}

	query += " ORDER BY created_at DESC, id DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса: %w", err)
	}
	defer rows.Close()

	var uploads []recording.Upload
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования загрузки: %w", err)
		}
		uploads = append(uploads, u)
	}

	return uploads, rows.Err()
}

// MarkLinked отмечает, что запрос привязан к записи.
func (s *SQLiteStorage) MarkLinked(ctx context.Context, recordingID, requestID int64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE uploads SET request_id = ?, linked = 1 WHERE recording_id = ?",
		requestID, recordingID,
	)
	if err != nil {
		return fmt.Errorf("ошибка обновления загрузки: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка обновления загрузки: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrUploadNotFound, recordingID)
	}

	return nil
}

func (s *SQLiteStorage) CountUploads(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM uploads").Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчета загрузок: %w", err)
	}

	return count, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUpload(row scanner) (recording.Upload, error) {
	var u recording.Upload
	var requestID sql.NullInt64

	if err := row.Scan(&u.ID, &u.RecordingID, &u.Title, &u.DurationSeconds,
		&u.PatientID, &requestID, &u.Linked, &u.CreatedAt); err != nil {
		return recording.Upload{}, err
	}

	if requestID.Valid {
		id := requestID.Int64
		u.RequestID = &id
	}

	return u, nil
}
