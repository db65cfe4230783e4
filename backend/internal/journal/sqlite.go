// Package journal keeps an append-only record of room lifecycle events.
// It is for operators; the signaling hub never reads it back and rooms are
// not restored from it.
package journal

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/BioHazard786/Warpcall/backend/internal/signaling"
)

// SQLiteJournal implements signaling.Journal using SQLite.
type SQLiteJournal struct {
	db *sql.DB
}

// NewSQLite opens or creates a SQLite database at the given path.
// Use ":memory:" for an in-memory database.
func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// A single connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteJournal{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS room_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT NOT NULL,
			room_id TEXT NOT NULL,
			member_id TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_room_events_room ON room_events(room_id, id);
	`)
	return err
}

// Record appends ev.
func (j *SQLiteJournal) Record(ev signaling.Event) error {
	at := ev.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := j.db.Exec(
		"INSERT INTO room_events (kind, room_id, member_id, created_at) VALUES (?, ?, ?, ?)",
		string(ev.Kind), ev.RoomID, ev.MemberID, at,
	)
	return err
}

// Room returns the events recorded for roomID, oldest first.
func (j *SQLiteJournal) Room(roomID string) ([]signaling.Event, error) {
	rows, err := j.db.Query(`
		SELECT kind, room_id, member_id, created_at FROM room_events
		WHERE room_id = ?
		ORDER BY id ASC
	`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []signaling.Event
	for rows.Next() {
		var ev signaling.Event
		var kind string
		if err := rows.Scan(&kind, &ev.RoomID, &ev.MemberID, &ev.At); err != nil {
			return nil, err
		}
		ev.Kind = signaling.EventKind(kind)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Close closes the database connection.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
