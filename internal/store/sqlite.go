package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"deepfake-guard/internal/model"
	_ "modernc.org/sqlite"
)

// SQLite is the durable repository backend. Email, federated id and token
// uniqueness are enforced by the schema.
type SQLite struct {
	db     *sql.DB
	logger *slog.Logger
}

func OpenSQLite(path string) (*SQLite, error) {
	logger := slog.Default().With("component", "store")

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// one connection serializes writers and avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	s := &SQLite{db: db, logger: logger}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

func (s *SQLite) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			name          TEXT NOT NULL,
			avatar        TEXT NOT NULL DEFAULT '',
			federated_id  TEXT UNIQUE,
			password_hash TEXT NOT NULL DEFAULT '',
			created_at    INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS tokens (
			user_id TEXT PRIMARY KEY,
			token   TEXT NOT NULL UNIQUE,
			FOREIGN KEY (user_id) REFERENCES users(id)
		);

		CREATE TABLE IF NOT EXISTS scans (
			id                 TEXT PRIMARY KEY,
			user_id            TEXT NOT NULL,
			content_type       TEXT NOT NULL,
			original_content   TEXT NOT NULL,
			scan_date          INTEGER NOT NULL,
			is_deepfake        INTEGER NOT NULL,
			confidence_score   REAL NOT NULL,
			markers_json       TEXT NOT NULL,
			processing_time_ms INTEGER NOT NULL,

			CHECK (content_type IN ('image', 'video', 'audio', 'text'))
		);

		CREATE INDEX IF NOT EXISTS idx_scans_user_date ON scans(user_id, scan_date);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLite) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func nullable(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func (s *SQLite) CreateUser(ctx context.Context, u model.UserRecord) error {
	if u.ID == "" || u.Email == "" {
		return model.ErrMissingInput
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, avatar, federated_id, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, u.ID, u.Email, u.Name, u.Avatar, nullable(u.FederatedID), u.PasswordHash, u.CreatedAt)
	if isUniqueConstraintError(err) {
		return model.ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

func (s *SQLite) UpdateUser(ctx context.Context, u model.UserRecord) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET email = ?, name = ?, avatar = ?, federated_id = ?, password_hash = ?
		WHERE id = ?
	`, u.Email, u.Name, u.Avatar, nullable(u.FederatedID), u.PasswordHash, u.ID)
	if isUniqueConstraintError(err) {
		return model.ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}

const userColumns = `id, email, name, avatar, federated_id, password_hash, created_at`

func (s *SQLite) queryUser(ctx context.Context, where string, arg any) (model.UserRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where+` = ?`, arg)

	var u model.UserRecord
	var federated sql.NullString
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Avatar, &federated, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.UserRecord{}, model.ErrNotFound
	}
	if err != nil {
		return model.UserRecord{}, fmt.Errorf("querying user: %w", err)
	}
	u.FederatedID = federated.String
	return u, nil
}

func (s *SQLite) UserByID(ctx context.Context, id string) (model.UserRecord, error) {
	return s.queryUser(ctx, "id", id)
}

func (s *SQLite) UserByEmail(ctx context.Context, email string) (model.UserRecord, error) {
	return s.queryUser(ctx, "email", email)
}

func (s *SQLite) UserByFederatedID(ctx context.Context, subject string) (model.UserRecord, error) {
	if subject == "" {
		return model.UserRecord{}, model.ErrNotFound
	}
	return s.queryUser(ctx, "federated_id", subject)
}

func (s *SQLite) PutToken(ctx context.Context, userID, token string) error {
	if userID == "" || token == "" {
		return model.ErrMissingInput
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tokens (user_id, token) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET token = excluded.token
	`, userID, token)
	if err != nil {
		return fmt.Errorf("storing token: %w", err)
	}
	return nil
}

func (s *SQLite) UserIDForToken(ctx context.Context, token string) (string, error) {
	var userID string
	err := s.db.QueryRowContext(ctx, `SELECT user_id FROM tokens WHERE token = ?`, token).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", model.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("querying token: %w", err)
	}
	return userID, nil
}

func (s *SQLite) InsertScan(ctx context.Context, scan model.ScanResult) error {
	if scan.ID == "" || scan.UserID == "" {
		return model.ErrMissingInput
	}
	markers, err := json.Marshal(scan.DetectedMarkers)
	if err != nil {
		return fmt.Errorf("encoding markers: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO scans (id, user_id, content_type, original_content, scan_date,
			is_deepfake, confidence_score, markers_json, processing_time_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, scan.ID, scan.UserID, string(scan.ContentType), scan.OriginalContent, scan.ScanDate.UnixNano(),
		scan.IsDeepfake, scan.ConfidenceScore, string(markers), scan.ProcessingTimeMs)
	if err != nil {
		return fmt.Errorf("inserting scan: %w", err)
	}
	return nil
}

func (s *SQLite) CountScans(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scans`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting scans: %w", err)
	}
	return n, nil
}

const scanColumns = `id, user_id, content_type, original_content, scan_date, is_deepfake,
	confidence_score, markers_json, processing_time_ms`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(row rowScanner) (model.ScanResult, error) {
	var (
		r          model.ScanResult
		ct         string
		date       int64
		markerJSON string
	)
	if err := row.Scan(&r.ID, &r.UserID, &ct, &r.OriginalContent, &date, &r.IsDeepfake,
		&r.ConfidenceScore, &markerJSON, &r.ProcessingTimeMs); err != nil {
		return model.ScanResult{}, err
	}
	r.ContentType = model.ContentType(ct)
	r.ScanDate = time.Unix(0, date).UTC()
	if err := json.Unmarshal([]byte(markerJSON), &r.DetectedMarkers); err != nil {
		return model.ScanResult{}, fmt.Errorf("decoding markers: %w", err)
	}
	return r, nil
}

func (s *SQLite) ScanByID(ctx context.Context, id string) (model.ScanResult, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+scanColumns+` FROM scans WHERE id = ?`, id)
	r, err := scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ScanResult{}, model.ErrNotFound
	}
	if err != nil {
		return model.ScanResult{}, fmt.Errorf("querying scan: %w", err)
	}
	return r, nil
}

func (s *SQLite) ScansByUser(ctx context.Context, userID string) ([]model.ScanResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+scanColumns+` FROM scans WHERE user_id = ?
		ORDER BY scan_date DESC, id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying scans: %w", err)
	}
	defer rows.Close()

	result := make([]model.ScanResult, 0)
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("reading scan: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating scans: %w", err)
	}
	return result, nil
}
