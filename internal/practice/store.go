package practice

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// MaxSessions is how many sessions the store keeps; older ones are pruned
// on save.
const MaxSessions = 100

// Store persists practice sessions in SQLite. The database is opened
// lazily on first use.
type Store struct {
	dbPath string

	db     *sql.DB
	dbOnce sync.Once
	dbErr  error

	closeOnce sync.Once
	closeErr  error
}

// NewStore returns a store for dbPath. Use ":memory:" for a throwaway
// database.
func NewStore(dbPath string) *Store {
	return &Store{dbPath: dbPath}
}

func initSchema(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		return fmt.Errorf("setting pragmas: %w", err)
	}
	_, err := db.Exec(schemaSQL)
	return err
}

func (s *Store) getDB() (*sql.DB, error) {
	s.dbOnce.Do(func() {
		db, err := sql.Open("sqlite3", s.dbPath)
		if err != nil {
			s.dbErr = err
			return
		}
		// One connection keeps ":memory:" databases consistent.
		db.SetMaxOpenConns(1)

		if err = initSchema(db); err != nil {
			_ = db.Close()
			s.dbErr = fmt.Errorf("initialising schema: %w", err)
			return
		}
		s.db = db
	})
	return s.db, s.dbErr
}

const insertSessionSQL = `
INSERT INTO sessions (tool, start_ms, end_ms, duration_s)
VALUES (?, ?, ?, ?)`

const pruneSessionsSQL = `
DELETE FROM sessions
WHERE id NOT IN (
    SELECT id FROM sessions ORDER BY start_ms DESC, id DESC LIMIT ?
)`

// Save stores a finished session and prunes all but the newest
// MaxSessions. It returns the new row ID.
func (s *Store) Save(ctx context.Context, sess Session) (id int64, err error) {
	db, err := s.getDB()
	if err != nil {
		return 0, fmt.Errorf("getting connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	result, err := tx.ExecContext(ctx, insertSessionSQL,
		sess.Tool, sess.Start.UnixMilli(), sess.End.UnixMilli(), int64(sess.Duration/time.Second))
	if err != nil {
		return 0, fmt.Errorf("inserting session: %w", err)
	}
	if id, err = result.LastInsertId(); err != nil {
		return 0, fmt.Errorf("reading session id: %w", err)
	}
	if _, err = tx.ExecContext(ctx, pruneSessionsSQL, MaxSessions); err != nil {
		return 0, fmt.Errorf("pruning sessions: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing session: %w", err)
	}
	return id, nil
}

const selectSessionsSQL = `
SELECT id, tool, start_ms, end_ms, duration_s
FROM sessions
WHERE start_ms >= ?
ORDER BY start_ms, id`

// Sessions returns sessions that started at or after since, oldest first.
func (s *Store) Sessions(ctx context.Context, since time.Time) (sessions []Session, err error) {
	db, err := s.getDB()
	if err != nil {
		return nil, fmt.Errorf("getting connection: %w", err)
	}

	rows, err := db.QueryContext(ctx, selectSessionsSQL, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer func() {
		if cErr := rows.Close(); cErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", cErr)
		}
	}()

	for rows.Next() {
		var (
			sess         Session
			start, end   int64
			durationSecs int64
		)
		if err = rows.Scan(&sess.ID, &sess.Tool, &start, &end, &durationSecs); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sess.Start = time.UnixMilli(start)
		sess.End = time.UnixMilli(end)
		sess.Duration = time.Duration(durationSecs) * time.Second
		sessions = append(sessions, sess)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return sessions, nil
}

// Count returns the number of stored sessions.
func (s *Store) Count(ctx context.Context) (n int, err error) {
	db, err := s.getDB()
	if err != nil {
		return 0, fmt.Errorf("getting connection: %w", err)
	}
	if err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting sessions: %w", err)
	}
	return n, nil
}

// Clear deletes every stored session.
func (s *Store) Clear(ctx context.Context) error {
	db, err := s.getDB()
	if err != nil {
		return fmt.Errorf("getting connection: %w", err)
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM sessions"); err != nil {
		return fmt.Errorf("clearing sessions: %w", err)
	}
	return nil
}

// Close closes the database if it was opened.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		if s.db != nil {
			s.closeErr = s.db.Close()
		}
	})
	return s.closeErr
}
