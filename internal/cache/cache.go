// Package cache implements the optional compile cache described in
// SPEC_FULL.md §2.E.1: a content-addressed store of previously compiled
// output, keyed by the source bytes and the requested mode. It is modeled
// on sentra's internal/database.DatabaseModule — a struct holding a live
// *sql.DB across calls — restructured from that module's multi-backend
// connection manager into a single pure-Go SQLite-backed cache, keeping
// only the one driver (modernc.org/sqlite) that fits an embedded,
// dependency-free cache store.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/withRiver/SysY-Compiler/internal/cerrors"
)

// Store is an open handle to the on-disk cache database. The zero value is
// not usable; call Open.
type Store struct {
	db *sql.DB
}

// Open creates dir if absent and opens (or initializes)
// "<dir>/sysyc-cache.db".
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, cerrors.New(cerrors.IOError, "creating compile cache directory: "+err.Error(), cerrors.SourceLocation{})
	}
	path := filepath.Join(dir, "sysyc-cache.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, cerrors.New(cerrors.IOError, "opening compile cache: "+err.Error(), cerrors.SourceLocation{})
	}
	const schema = `CREATE TABLE IF NOT EXISTS entries (
		key TEXT PRIMARY KEY,
		id TEXT NOT NULL,
		mode TEXT NOT NULL,
		output BLOB NOT NULL,
		created_at INTEGER NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, cerrors.New(cerrors.IOError, "initializing compile cache schema: "+err.Error(), cerrors.SourceLocation{})
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Key derives the cache key for a compilation: sha256(source bytes || mode).
func Key(source []byte, mode string) string {
	h := sha256.New()
	h.Write(source)
	h.Write([]byte(mode))
	return hex.EncodeToString(h.Sum(nil))
}

// Lookup returns the cached output for key, or ok == false on a miss.
func (s *Store) Lookup(key string) (output []byte, ok bool, err error) {
	row := s.db.QueryRow(`SELECT output FROM entries WHERE key = ?`, key)
	if err := row.Scan(&output); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, cerrors.New(cerrors.IOError, "querying compile cache: "+err.Error(), cerrors.SourceLocation{})
	}
	return output, true, nil
}

// Insert stores output under key for the given mode, replacing any prior
// entry (a rebuilt source file's cached output is stale, not an accumulating
// history).
func (s *Store) Insert(key, mode string, output []byte) error {
	id := uuid.New().String()
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO entries (key, id, mode, output, created_at) VALUES (?, ?, ?, ?, ?)`,
		key, id, mode, output, time.Now().Unix(),
	)
	if err != nil {
		return cerrors.New(cerrors.IOError, "writing compile cache: "+fmt.Sprint(err), cerrors.SourceLocation{})
	}
	return nil
}
