package dashboard

import "sync"

// Level is the severity of a flash message.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Flash is a one-shot message shown on the next page render.
type Flash struct {
	Level   Level
	Message string
}

// flashStore queues flash messages per session until the next page render.
type flashStore struct {
	mu sync.Mutex
	m  map[string][]Flash
}

func newFlashStore() *flashStore {
	return &flashStore{m: make(map[string][]Flash)}
}

func (f *flashStore) add(id string, level Level, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.m[id] = append(f.m[id], Flash{Level: level, Message: message})
}

func (f *flashStore) pop(id string) []Flash {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.m[id]
	delete(f.m, id)
	return msgs
}
