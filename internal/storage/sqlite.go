// Package storage provides SQLite-based persistence for completed sessions.
// Uses the pure-Go modernc.org/sqlite driver to avoid CGO dependencies.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/vovakirdan/hattown/internal/area"
)

// Store manages the SQLite database connection for session history.
type Store struct {
	db *sql.DB
}

// SessionRecord is one completed session as persisted.
type SessionRecord struct {
	ID        int64
	SessionID string
	AreaID    string
	Kind      string
	Player1   string
	Player2   string // Empty for purchase sessions
	Offers    int
	Purchases int
	CreatedAt time.Time
}

// Open creates or opens a SQLite database at the given path.
// It creates the parent directories if needed and runs migrations.
func Open(dbPath string) (*Store, error) {
	// Expand ~ to home directory
	if dbPath != "" && dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("storage: cannot expand home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	// Create parent directories
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}

	return store, nil
}

// migrate creates the database schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL UNIQUE,
			area_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			player1 TEXT NOT NULL,
			player2 TEXT,
			offers INTEGER NOT NULL DEFAULT 0,
			purchases INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_area_id ON sessions(area_id);
		CREATE INDEX IF NOT EXISTS idx_sessions_player1 ON sessions(player1);
		CREATE INDEX IF NOT EXISTS idx_sessions_player2 ON sessions(player2);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveSession records one completed session.
// Returns the ID of the inserted record.
func (s *Store) SaveSession(rec SessionRecord) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO sessions
		 (session_id, area_id, kind, player1, player2, offers, purchases)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID,
		rec.AreaID,
		rec.Kind,
		rec.Player1,
		rec.Player2,
		rec.Offers,
		rec.Purchases,
	)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot save session: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage: cannot get inserted ID: %w", err)
	}

	return id, nil
}

// SessionByID retrieves a session by its session ID.
// Returns nil without error when no such session was recorded.
func (s *Store) SessionByID(sessionID string) (*SessionRecord, error) {
	var rec SessionRecord
	var player2 sql.NullString
	var createdAt any

	err := s.db.QueryRow(
		`SELECT id, session_id, area_id, kind, player1, player2, offers, purchases, created_at
		 FROM sessions
		 WHERE session_id = ?`,
		sessionID,
	).Scan(
		&rec.ID,
		&rec.SessionID,
		&rec.AreaID,
		&rec.Kind,
		&rec.Player1,
		&player2,
		&rec.Offers,
		&rec.Purchases,
		&createdAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query session: %w", err)
	}

	if player2.Valid {
		rec.Player2 = player2.String
	}
	rec.CreatedAt = parseTimestamp(createdAt)

	return &rec, nil
}

// RecentSessions retrieves the most recently completed sessions.
func (s *Store) RecentSessions(limit int) ([]SessionRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT id, session_id, area_id, kind, player1, player2, offers, purchases, created_at
		 FROM sessions
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query sessions: %w", err)
	}
	defer rows.Close()

	return scanSessions(rows)
}

// PlayerSessions retrieves the session history for one player, as either
// participant slot.
func (s *Store) PlayerSessions(player string, limit int) ([]SessionRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT id, session_id, area_id, kind, player1, player2, offers, purchases, created_at
		 FROM sessions
		 WHERE player1 = ? OR player2 = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		player, player, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query player sessions: %w", err)
	}
	defer rows.Close()

	return scanSessions(rows)
}

// AreaSessions retrieves completed sessions for one area.
func (s *Store) AreaSessions(areaID string, limit int) ([]SessionRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT id, session_id, area_id, kind, player1, player2, offers, purchases, created_at
		 FROM sessions
		 WHERE area_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		areaID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query area sessions: %w", err)
	}
	defer rows.Close()

	return scanSessions(rows)
}

func scanSessions(rows *sql.Rows) ([]SessionRecord, error) {
	var records []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		var player2 sql.NullString
		var createdAt any

		if err := rows.Scan(
			&rec.ID,
			&rec.SessionID,
			&rec.AreaID,
			&rec.Kind,
			&rec.Player1,
			&player2,
			&rec.Offers,
			&rec.Purchases,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}

		if player2.Valid {
			rec.Player2 = player2.String
		}
		rec.CreatedAt = parseTimestamp(createdAt)

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return records, nil
}

// parseTimestamp handles the driver returning DATETIME columns as either
// time.Time or string.
func parseTimestamp(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if parsed, err := time.Parse("2006-01-02 15:04:05", t); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

// SaveSessionResult implements area.ResultSaver.
// This adapter allows areas to persist completed sessions without a direct
// storage dependency.
func (s *Store) SaveSessionResult(data area.ResultData) error {
	rec := SessionRecord{
		SessionID: data.SessionID,
		AreaID:    data.AreaID,
		Kind:      data.Kind,
		Player1:   data.Player1,
		Player2:   data.Player2,
		Offers:    data.Offers,
		Purchases: data.Purchases,
	}
	_, err := s.SaveSession(rec)
	return err
}

// Ensure Store implements ResultSaver
var _ area.ResultSaver = (*Store)(nil)

// AreaStats contains aggregated statistics for one area.
type AreaStats struct {
	AreaID        string
	SessionsCount int
	TotalOffers   int
	TotalBuys     int
	LastSession   time.Time
}

// GetAreaStats retrieves aggregated statistics for a specific area.
func (s *Store) GetAreaStats(areaID string) (*AreaStats, error) {
	stats := &AreaStats{AreaID: areaID}

	err := s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(offers), 0), COALESCE(SUM(purchases), 0)
		 FROM sessions WHERE area_id = ?`,
		areaID,
	).Scan(&stats.SessionsCount, &stats.TotalOffers, &stats.TotalBuys)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot get area stats: %w", err)
	}

	var last any
	err = s.db.QueryRow(
		`SELECT created_at FROM sessions WHERE area_id = ? ORDER BY created_at DESC LIMIT 1`,
		areaID,
	).Scan(&last)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("storage: cannot get last session: %w", err)
	}
	if err == nil {
		stats.LastSession = parseTimestamp(last)
	}

	return stats, nil
}
