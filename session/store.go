// Package session holds per-session state: the uploaded-file list, cached
// per-file descriptions, and the current storyboard. Sessions are created
// on first reference and only removed by an explicit delete.
package session

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"reelforge/types"
)

var (
	// ErrSessionBusy is returned by Delete when the session has an active
	// analyze run or export; callers must cancel/drain first or force.
	ErrSessionBusy = errors.New("session has an active run")
	// ErrBadSessionID is returned when an id sanitizes to nothing.
	ErrBadSessionID = errors.New("invalid session id")
)

// Store is the session store contract. Get creates an empty session with
// default settings when the id is unknown; Put replaces atomically; Delete
// removes all state, failing with ErrSessionBusy while a run is active
// unless force is set (which aborts the run first).
type Store interface {
	Get(ctx context.Context, id string) (*types.Session, error)
	Put(ctx context.Context, s *types.Session) error
	Delete(ctx context.Context, id string, force bool) error
	List(ctx context.Context) ([]string, error)
}

var sessionIDPattern = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// SanitizeID maps a raw session id onto a filesystem/URL-safe token.
func SanitizeID(id string) (string, error) {
	clean := sessionIDPattern.ReplaceAllString(strings.TrimSpace(id), "-")
	clean = strings.Trim(clean, "-.")
	if clean == "" {
		return "", ErrBadSessionID
	}
	return clean, nil
}

// MemoryStore keeps sessions in process memory. It is the default backend
// and the one used in tests.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*types.Session
	activity *Activity
}

func NewMemoryStore(activity *Activity) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*types.Session),
		activity: activity,
	}
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*types.Session, error) {
	clean, err := SanitizeID(id)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[clean]; ok {
		return copySession(s), nil
	}
	s := types.NewSession(clean)
	m.sessions[clean] = s
	return copySession(s), nil
}

func (m *MemoryStore) Put(ctx context.Context, s *types.Session) error {
	clean, err := SanitizeID(s.ID)
	if err != nil {
		return err
	}
	cp := copySession(s)
	cp.ID = clean
	cp.UpdatedAt = time.Now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[clean] = cp
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string, force bool) error {
	clean, err := SanitizeID(id)
	if err != nil {
		return err
	}
	if m.activity != nil && m.activity.Busy(clean) {
		if !force {
			return fmt.Errorf("delete %s: %w", clean, ErrSessionBusy)
		}
		m.activity.Abort(clean)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, clean)
	return nil
}

func (m *MemoryStore) List(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	return ids, nil
}

// copySession returns a deep enough copy that callers can mutate the result
// without racing the store.
func copySession(s *types.Session) *types.Session {
	cp := *s
	cp.Files = append([]types.FileRef(nil), s.Files...)
	cp.Descriptions = make(map[string]string, len(s.Descriptions))
	for k, v := range s.Descriptions {
		cp.Descriptions[k] = v
	}
	if s.Storyboard != nil {
		sb := *s.Storyboard
		sb.Clips = append([]types.ClipSpec(nil), s.Storyboard.Clips...)
		cp.Storyboard = &sb
	}
	return &cp
}
