// Package statuslog keeps a capped, per-session rolling log of operation
// progress for the UI's side panel. Messages are also written to the
// process log.
package statuslog

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"reelforge/config"
)

// Registry holds one rolling log per session.
type Registry struct {
	mu   sync.Mutex
	logs map[string][]string
}

func NewRegistry() *Registry {
	return &Registry{logs: make(map[string][]string)}
}

// Log appends a formatted line to the session's rolling log.
func (r *Registry) Log(sessionID, format string, args ...interface{}) {
	line := strings.TrimSpace(fmt.Sprintf(format, args...))
	if line == "" {
		return
	}
	log.Printf("[%s] %s", sessionID, line)

	r.mu.Lock()
	defer r.mu.Unlock()
	lines := append(r.logs[sessionID], line)
	if len(lines) > config.StatusLogCap {
		lines = lines[len(lines)-config.StatusLogCap:]
	}
	r.logs[sessionID] = lines
}

// Clear drops the session's log; called at the start of long operations.
func (r *Registry) Clear(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.logs, sessionID)
}

// Lines returns a snapshot of the session's log.
func (r *Registry) Lines(sessionID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.logs[sessionID]))
	copy(out, r.logs[sessionID])
	return out
}

// Drop removes all log state for a session (on session delete).
func (r *Registry) Drop(sessionID string) {
	r.Clear(sessionID)
}
