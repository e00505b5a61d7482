// Package store is the namespaced per-user key-value cache consumed by
// the softphone core. Entries carry an _expiration epoch-millisecond
// stamp; a read past expiration is treated as absent.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps a SQLite database holding the cache.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.RWMutex
}

// envelope is the persisted shape of one entry. Expiration 0 means the
// entry never expires.
type envelope struct {
	Data       json.RawMessage `json:"data"`
	Expiration int64           `json:"_expiration"`
}

// Open opens or creates the cache database in dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	dbPath := filepath.Join(dir, "cache.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA busy_timeout = 5000;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure database: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			ns         TEXT NOT NULL,
			key        TEXT NOT NULL,
			value      TEXT NOT NULL,
			expiration INTEGER DEFAULT 0,
			PRIMARY KEY (ns, key)
		);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create kv table: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Put stores v under ns/key. ttl <= 0 means the entry never expires.
func (s *Store) Put(ns, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", ns, key, err)
	}
	var exp int64
	if ttl > 0 {
		exp = time.Now().Add(ttl).UnixMilli()
	}
	blob, err := json.Marshal(envelope{Data: data, Expiration: exp})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(`
		INSERT INTO kv (ns, key, value, expiration) VALUES (?, ?, ?, ?)
		ON CONFLICT (ns, key) DO UPDATE SET value = excluded.value, expiration = excluded.expiration
	`, ns, key, string(blob), exp)
	return err
}

// Get reads ns/key into v. Returns (false, nil) when the entry is missing
// or its expiration has passed; expired entries are deleted lazily.
func (s *Store) Get(ns, key string, v any) (bool, error) {
	s.mu.RLock()
	var blob string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE ns = ? AND key = ?`, ns, key).Scan(&blob)
	s.mu.RUnlock()
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var env envelope
	if err := json.Unmarshal([]byte(blob), &env); err != nil {
		return false, fmt.Errorf("unmarshal %s/%s: %w", ns, key, err)
	}
	if env.Expiration > 0 && env.Expiration <= time.Now().UnixMilli() {
		if err := s.Delete(ns, key); err != nil {
			log.Printf("STORE: delete expired %s/%s: %v", ns, key, err)
		}
		return false, nil
	}
	if v != nil {
		if err := json.Unmarshal(env.Data, v); err != nil {
			return false, fmt.Errorf("unmarshal %s/%s data: %w", ns, key, err)
		}
	}
	return true, nil
}

// Delete removes ns/key. Missing entries are not an error.
func (s *Store) Delete(ns, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`DELETE FROM kv WHERE ns = ? AND key = ?`, ns, key)
	return err
}

// PurgeExpired removes every entry whose expiration has passed and
// returns how many were dropped.
func (s *Store) PurgeExpired() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(`DELETE FROM kv WHERE expiration > 0 AND expiration <= ?`, time.Now().UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
