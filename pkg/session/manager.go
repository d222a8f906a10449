package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shunichi-ikebuchi/society-dues/pkg/dues"
)

// ErrNotFound is returned by a Repository when no live session has the ID.
var ErrNotFound = errors.New("session not found")

// Repository persists session snapshots.
type Repository interface {
	Load(id string) (*Snapshot, error)
	Save(snap *Snapshot) error
	Delete(id string) error
}

// Store is the record store a session reads from and writes to.
type Store interface {
	CellWriter
	FetchAll(ctx context.Context) (*dues.Table, error)
}

// Manager serialises actions per session and persists the result.
type Manager struct {
	repo    Repository
	store   Store
	columns dues.Columns
	now     func() time.Time

	mu    sync.Mutex
	locks map[string]*sessionLock
}

// NewManager creates a new Manager.
func NewManager(repo Repository, store Store, cols dues.Columns) *Manager {
	return &Manager{
		repo:    repo,
		store:   store,
		columns: cols,
		now:     time.Now,
		locks:   make(map[string]*sessionLock),
	}
}

// Store returns the record store the manager writes through.
func (m *Manager) Store() Store {
	return m.store
}

// sessionLock serialises actions on one session. refs counts the holder and
// waiters; the entry is dropped from the map when it reaches zero.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func (m *Manager) lock(id string) func() {
	m.mu.Lock()
	l, ok := m.locks[id]
	if !ok {
		l = &sessionLock{}
		m.locks[id] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, id)
		}
		m.mu.Unlock()
	}
}

// Do runs fn against the session with the given ID, creating it from a fresh
// fetch when none exists, and persists the session afterwards. Actions on one
// session never overlap. Fetch failures (connection, auth, empty or malformed
// table) are returned unchanged and nothing is persisted.
func (m *Manager) Do(ctx context.Context, id string, fn func(*Session) error) error {
	unlock := m.lock(id)
	defer unlock()

	s, err := m.open(ctx, id)
	if err != nil {
		return err
	}

	fnErr := fn(s)

	s.Touch(m.now())
	if err := m.repo.Save(s.Snapshot()); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	return fnErr
}

// Reset drops the stored session so the next action fetches a new baseline.
func (m *Manager) Reset(id string) error {
	unlock := m.lock(id)
	defer unlock()

	if err := m.repo.Delete(id); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (m *Manager) open(ctx context.Context, id string) (*Session, error) {
	snap, err := m.repo.Load(id)
	if err == nil {
		return Restore(snap, m.columns), nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	table, err := m.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("session started", "session_id", id, "rows", table.Len())
	return New(id, table, m.columns, m.now()), nil
}

// Fetch reads and validates the full table from the record store.
func (m *Manager) Fetch(ctx context.Context) (*dues.Table, error) {
	table, err := m.store.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	if err := table.Validate(m.columns); err != nil {
		return nil, err
	}
	return table, nil
}

// Save writes the session's dirty rows through the record store.
func (m *Manager) Save(ctx context.Context, s *Session) SaveReport {
	report := s.Save(ctx, m.store)
	for _, f := range report.Failures {
		slog.Warn("cell write failed", "session_id", s.ID(), "column", f.Cell.Column, "row", f.Cell.Row, "error", f.Err)
	}
	slog.Info("session saved", "session_id", s.ID(), "attempted", len(report.Attempted), "failed", len(report.Failures))
	return report
}

// Reload refetches the table and replaces the session's baseline and working copy.
func (m *Manager) Reload(ctx context.Context, s *Session) error {
	table, err := m.Fetch(ctx)
	if err != nil {
		return err
	}
	s.Reload(table)
	slog.Info("session reloaded", "session_id", s.ID(), "rows", table.Len())
	return nil
}
