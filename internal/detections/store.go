package detections

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/delsi82/color-recognition/internal/services"
)

// Store manages the detection index backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Session is one acquisition run recorded in the index.
type Session struct {
	ID         int64
	UUID       string
	Device     string
	StartedAt  time.Time
	EndedAt    *time.Time
	Frames     int64
	Detections int64
}

// Detection is one persisted cell match.
type Detection struct {
	ID            int64
	SessionID     int64
	SessionUUID   string
	Device        string
	FrameCounter  int64
	FrameName     string
	CellIndex     int
	MatchedPixels int
	FilePath      string
	CreatedAt     time.Time
}

// Open initializes or connects to the detection database and applies
// migrations. The parent directory is created when missing.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, services.Wrap(services.ErrStorage, "detections", "open", "create database directory", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "detections", "open", "open sqlite db", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, services.Wrap(services.ErrStorage, "detections", "open",
				fmt.Sprintf("apply pragma %q", pragma), execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, services.Wrap(services.ErrStorage, "detections", "open", "apply migrations", err)
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// BeginSession records the start of an acquisition run.
func (s *Store) BeginSession(ctx context.Context, uuid, device string) (*Session, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (uuid, device, started_at) VALUES (?, ?, ?)`,
		uuid, device, now.Format(time.RFC3339Nano))
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "detections", "begin_session", "insert session", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "detections", "begin_session", "last insert id", err)
	}
	return &Session{ID: id, UUID: uuid, Device: device, StartedAt: now}, nil
}

// EndSession closes out a session with its final counters.
func (s *Store) EndSession(ctx context.Context, sessionID, frames, detections int64) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET ended_at = ?, frames = ?, detections = ? WHERE id = ?`,
		now.Format(time.RFC3339Nano), frames, detections, sessionID)
	if err != nil {
		return services.Wrap(services.ErrStorage, "detections", "end_session", "update session", err)
	}
	return nil
}

// RecordDetection inserts one persisted cell match. The detection's ID and
// CreatedAt are filled in on success.
func (s *Store) RecordDetection(ctx context.Context, d *Detection) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO detections (
            session_id, frame_counter, frame_name, cell_index,
            matched_pixels, file_path, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.SessionID, d.FrameCounter, d.FrameName, d.CellIndex,
		d.MatchedPixels, d.FilePath, now.Format(time.RFC3339Nano))
	if err != nil {
		return services.Wrap(services.ErrStorage, "detections", "record", "insert detection", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return services.Wrap(services.ErrStorage, "detections", "record", "last insert id", err)
	}
	d.ID = id
	d.CreatedAt = now
	return nil
}

// Recent returns the newest detections, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Detection, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT d.id, d.session_id, s.uuid, s.device, d.frame_counter, d.frame_name,
                d.cell_index, d.matched_pixels, d.file_path, d.created_at
         FROM detections d
         JOIN sessions s ON s.id = d.session_id
         ORDER BY d.id DESC
         LIMIT ?`, limit)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "detections", "recent", "query detections", err)
	}
	defer rows.Close()

	var out []Detection
	for rows.Next() {
		var d Detection
		var createdAt string
		if err := rows.Scan(&d.ID, &d.SessionID, &d.SessionUUID, &d.Device, &d.FrameCounter,
			&d.FrameName, &d.CellIndex, &d.MatchedPixels, &d.FilePath, &createdAt); err != nil {
			return nil, services.Wrap(services.ErrStorage, "detections", "recent", "scan detection", err)
		}
		if ts, perr := time.Parse(time.RFC3339Nano, createdAt); perr == nil {
			d.CreatedAt = ts
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrStorage, "detections", "recent", "iterate detections", err)
	}
	return out, nil
}

// Totals reports the number of recorded sessions and detections.
func (s *Store) Totals(ctx context.Context) (sessions, detections int64, err error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(1) FROM sessions), (SELECT COUNT(1) FROM detections)`)
	if scanErr := row.Scan(&sessions, &detections); scanErr != nil {
		return 0, 0, services.Wrap(services.ErrStorage, "detections", "totals", "scan totals", scanErr)
	}
	return sessions, detections, nil
}
