package session

import (
	"time"

	"github.com/shunichi-ikebuchi/society-dues/pkg/dues"
)

// Snapshot is the persisted form of a session.
type Snapshot struct {
	ID        string      `json:"id"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	Baseline  *dues.Table `json:"baseline"`
	Working   *dues.Table `json:"working"`
	Dirty     []int       `json:"dirty"`
}

// Snapshot captures the session for storage.
func (s *Session) Snapshot() *Snapshot {
	return &Snapshot{
		ID:        s.id,
		CreatedAt: s.createdAt,
		UpdatedAt: s.updatedAt,
		Baseline:  s.baseline.Clone(),
		Working:   s.working.Clone(),
		Dirty:     s.Dirty(),
	}
}

// Restore rebuilds a session from a snapshot.
func Restore(snap *Snapshot, cols dues.Columns) *Session {
	s := &Session{
		id:        snap.ID,
		createdAt: snap.CreatedAt,
		updatedAt: snap.UpdatedAt,
		columns:   cols,
		baseline:  snap.Baseline.Clone(),
		working:   snap.Working.Clone(),
		dirty:     make(map[int]struct{}, len(snap.Dirty)),
	}
	for _, p := range snap.Dirty {
		s.dirty[p] = struct{}{}
	}
	return s
}
