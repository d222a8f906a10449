package sessionstore

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shunichi-ikebuchi/society-dues/pkg/dues"
	"github.com/shunichi-ikebuchi/society-dues/pkg/session"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := New(filepath.Join(t.TempDir(), "sessions", "sessions.db"), time.Hour)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func testSnapshot(id string, updated time.Time) *session.Snapshot {
	tbl := dues.NewTable([]string{dues.ColumnBikeCount}, [][]string{{"1"}, {"2"}})
	return &session.Snapshot{
		ID:        id,
		CreatedAt: updated,
		UpdatedAt: updated,
		Baseline:  tbl,
		Working:   tbl.Clone(),
		Dirty:     []int{1},
	}
}

func TestSaveLoad(t *testing.T) {
	st := openTestStore(t)

	if err := st.Save(testSnapshot("a", time.Now())); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	snap, err := st.Load("a")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(snap.Dirty) != 1 || snap.Dirty[0] != 1 {
		t.Errorf("Dirty = %v, expected [1]", snap.Dirty)
	}
	if got, _ := snap.Working.Cell(1, dues.ColumnBikeCount); got != "2" {
		t.Errorf("working cell = %q, expected 2", got)
	}
}

func TestLoadMissing(t *testing.T) {
	st := openTestStore(t)

	if _, err := st.Load("nope"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("Load() error = %v, expected ErrNotFound", err)
	}
}

func TestLoadExpired(t *testing.T) {
	st := openTestStore(t)

	if err := st.Save(testSnapshot("old", time.Now().Add(-2*time.Hour))); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := st.Load("old"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("Load() error = %v, expected ErrNotFound for expired session", err)
	}
	if n, _ := st.Count(); n != 0 {
		t.Errorf("Count() = %d, expected expired session removed", n)
	}
}

func TestPurge(t *testing.T) {
	st := openTestStore(t)

	_ = st.Save(testSnapshot("old", time.Now().Add(-3*time.Hour)))
	_ = st.Save(testSnapshot("new", time.Now()))

	removed, err := st.Purge()
	if err != nil {
		t.Fatalf("Purge() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("Purge() removed %d, expected 1", removed)
	}
	if _, err := st.Load("new"); err != nil {
		t.Errorf("Load(new) error = %v", err)
	}
}

func TestDelete(t *testing.T) {
	st := openTestStore(t)

	_ = st.Save(testSnapshot("a", time.Now()))
	if err := st.Delete("a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := st.Load("a"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("Load() error = %v, expected ErrNotFound", err)
	}
}
