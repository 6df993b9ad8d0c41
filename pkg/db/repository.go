// Package db persists the write-session journal.
package db

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/mik-tf/isobootmaker/pkg/errors"
	_ "modernc.org/sqlite"
)

// Repository provides database operations for the session journal.
type Repository struct {
	db *sql.DB
}

// NewRepository opens the journal database, creating the schema if needed.
func NewRepository(dbPath string) (*Repository, error) {
	slog.Info("journal_init", "db_path", dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		slog.Error("journal_open_failed", "db_path", dbPath, "error", err)
		return nil, errors.Wrap(err, "failed to open journal database")
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		slog.Error("journal_schema_failed", "db_path", dbPath, "error", err)
		return nil, errors.Wrap(err, "failed to create journal schema")
	}

	return &Repository{db: db}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Create inserts a new session record.
func (r *Repository) Create(s *Session) error {
	slog.Info("journal_create", "session_key", s.SessionKey, "device", s.DevicePath, "image", s.ImagePath)

	query := `
		INSERT INTO sessions (session_key, device_path, image_path, image_source, sha256, status, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.Exec(query,
		s.SessionKey, s.DevicePath, s.ImagePath, s.ImageSource, s.SHA256, s.Status, s.ErrorMessage)
	if err != nil {
		slog.Error("journal_insert_failed", "session_key", s.SessionKey, "error", err)
		return errors.Wrap(err, "failed to insert session")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "failed to get last insert id")
	}
	s.ID = id
	return nil
}

// UpdateStatus updates the status and error message of a session.
func (r *Repository) UpdateStatus(id int64, status, errorMessage string) error {
	slog.Info("journal_update_status", "session_id", id, "status", status)

	query := `UPDATE sessions SET status = ?, error_message = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	result, err := r.db.Exec(query, status, errorMessage, id)
	if err != nil {
		slog.Error("journal_status_update_failed", "session_id", id, "status", status, "error", err)
		return errors.Wrap(err, "failed to update session status")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return fmt.Errorf("session not found: id=%d", id)
	}
	return nil
}

// GetByKey retrieves a session by its key, or nil when absent.
func (r *Repository) GetByKey(sessionKey string) (*Session, error) {
	query := `
		SELECT id, session_key, device_path, image_path, image_source, sha256, status, error_message, created_at, updated_at
		FROM sessions WHERE session_key = ?
	`
	var s Session
	var sha, errMsg sql.NullString

	err := r.db.QueryRow(query, sessionKey).Scan(
		&s.ID, &s.SessionKey, &s.DevicePath, &s.ImagePath, &s.ImageSource,
		&sha, &s.Status, &errMsg, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("journal_query_failed", "session_key", sessionKey, "error", err)
		return nil, errors.Wrap(err, "failed to query session")
	}

	s.SHA256 = sha.String
	s.ErrorMessage = errMsg.String
	return &s, nil
}

// List returns all journaled sessions, newest first.
func (r *Repository) List() ([]*Session, error) {
	query := `
		SELECT id, session_key, device_path, image_path, image_source, sha256, status, error_message, created_at, updated_at
		FROM sessions ORDER BY created_at DESC
	`
	rows, err := r.db.Query(query)
	if err != nil {
		slog.Error("journal_list_failed", "error", err)
		return nil, errors.Wrap(err, "failed to list sessions")
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		var s Session
		var sha, errMsg sql.NullString

		if err := rows.Scan(
			&s.ID, &s.SessionKey, &s.DevicePath, &s.ImagePath, &s.ImageSource,
			&sha, &s.Status, &errMsg, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan session row")
		}

		s.SHA256 = sha.String
		s.ErrorMessage = errMsg.String
		sessions = append(sessions, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows error")
	}
	return sessions, nil
}
