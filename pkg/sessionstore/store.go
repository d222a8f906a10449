// Package sessionstore persists dashboard edit sessions in a bbolt file.
package sessionstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/shunichi-ikebuchi/society-dues/pkg/session"
)

// BucketSessions holds one JSON snapshot per session ID.
const BucketSessions = "sessions"

// DefaultTTL is how long an idle session is kept.
const DefaultTTL = 12 * time.Hour

// Store represents the bbolt database wrapper.
type Store struct {
	db  *bolt.DB
	ttl time.Duration
	now func() time.Time
}

// New opens (or creates) the session database and initializes buckets.
func New(dbPath string, ttl time.Duration) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(BucketSessions)); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", BucketSessions, err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{db: db, ttl: ttl, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores a snapshot under its ID.
func (s *Store) Save(snap *session.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketSessions))
		if b == nil {
			return fmt.Errorf("bucket %s not found", BucketSessions)
		}
		return b.Put([]byte(snap.ID), data)
	})
}

// Load retrieves a snapshot. Expired sessions are deleted and reported as
// session.ErrNotFound.
func (s *Store) Load(id string) (*session.Snapshot, error) {
	var snap session.Snapshot
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketSessions))
		if b == nil {
			return fmt.Errorf("bucket %s not found", BucketSessions)
		}

		data := b.Get([]byte(id))
		if data == nil {
			return session.ErrNotFound
		}
		return json.Unmarshal(data, &snap)
	})
	if err != nil {
		return nil, err
	}

	if s.expired(&snap) {
		_ = s.Delete(id)
		return nil, session.ErrNotFound
	}
	return &snap, nil
}

// Delete removes a snapshot.
func (s *Store) Delete(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketSessions))
		if b == nil {
			return fmt.Errorf("bucket %s not found", BucketSessions)
		}
		return b.Delete([]byte(id))
	})
}

// Purge deletes every expired session and returns how many were removed.
func (s *Store) Purge() (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketSessions))
		if b == nil {
			return fmt.Errorf("bucket %s not found", BucketSessions)
		}

		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var snap session.Snapshot
			if err := json.Unmarshal(v, &snap); err != nil || s.expired(&snap) {
				// Keys are only valid during the transaction.
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	return removed, err
}

// Count returns the number of stored sessions.
func (s *Store) Count() (int, error) {
	n := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketSessions))
		if b == nil {
			return fmt.Errorf("bucket %s not found", BucketSessions)
		}
		n = b.Stats().KeyN
		return nil
	})
	return n, err
}

func (s *Store) expired(snap *session.Snapshot) bool {
	return s.now().Sub(snap.UpdatedAt) > s.ttl
}
