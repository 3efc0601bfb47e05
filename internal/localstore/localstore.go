// Package localstore keeps the terminal client's state between runs: the signed-in
// token pair, the selected team and the last screen.
package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/splax/cornerstone/pkg/api/client"
)

const fileName = "state.db"

const (
	keySession  = "session"
	keyTeam     = "team_id"
	keyLastView = "last_view"
)

// Store is a small key/value table in a local sqlite file.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates dir if needed and opens the state database inside it.
func Open(ctx context.Context, dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	path := filepath.Join(dir, fileName)
	// modernc.org/sqlite registers as "sqlite".
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("state db pragma: %w", err)
		}
	}
	const schema = `CREATE TABLE IF NOT EXISTS kv (
		k TEXT PRIMARY KEY,
		v TEXT NOT NULL,
		updated_at_unixms INTEGER NOT NULL
	);`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate state db: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Path is the database file location.
func (s *Store) Path() string { return s.path }

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) put(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (k, v, updated_at_unixms) VALUES (?, ?, ?)
		 ON CONFLICT(k) DO UPDATE SET v = excluded.v, updated_at_unixms = excluded.updated_at_unixms`,
		key, value, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT v FROM kv WHERE k = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load %s: %w", key, err)
	}
	return value, true, nil
}

func (s *Store) del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE k = ?`, key); err != nil {
			return fmt.Errorf("clear %s: %w", key, err)
		}
	}
	return nil
}

// SaveSession stores the token pair.
func (s *Store) SaveSession(ctx context.Context, sess client.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.put(ctx, keySession, string(raw))
}

// LoadSession returns the stored token pair; ok is false when none is saved.
func (s *Store) LoadSession(ctx context.Context) (client.Session, bool, error) {
	raw, ok, err := s.get(ctx, keySession)
	if err != nil || !ok {
		return client.Session{}, false, err
	}
	var sess client.Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return client.Session{}, false, fmt.Errorf("decode session: %w", err)
	}
	return sess, sess.Valid(), nil
}

// ClearSession forgets the tokens and the selected team.
func (s *Store) ClearSession(ctx context.Context) error {
	return s.del(ctx, keySession, keyTeam)
}

// SetTeam remembers the team the client works in.
func (s *Store) SetTeam(ctx context.Context, teamID string) error {
	if teamID == "" {
		return s.del(ctx, keyTeam)
	}
	return s.put(ctx, keyTeam, teamID)
}

// Team returns the remembered team id, or "".
func (s *Store) Team(ctx context.Context) (string, error) {
	v, _, err := s.get(ctx, keyTeam)
	return v, err
}

// SetLastView remembers the screen to reopen on the next start.
func (s *Store) SetLastView(ctx context.Context, view string) error {
	return s.put(ctx, keyLastView, view)
}

// LastView returns the remembered screen name, or "".
func (s *Store) LastView(ctx context.Context) (string, error) {
	v, _, err := s.get(ctx, keyLastView)
	return v, err
}
