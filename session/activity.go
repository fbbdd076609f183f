package session

import "sync"

// Activity tracks, per session, whether an analyze run or an export is in
// flight. It is the single-flight gate behind the at-most-one-run and
// at-most-one-export invariants, and it lets a forced delete abort both.
type Activity struct {
	mu      sync.Mutex
	analyze map[string]func() // abort hook for the active analyze run
	export  map[string]func() // cancel hook for the in-flight export
}

func NewActivity() *Activity {
	return &Activity{
		analyze: make(map[string]func()),
		export:  make(map[string]func()),
	}
}

// BeginAnalyze registers an analyze run. Returns false if one is already
// active for the session.
func (a *Activity) BeginAnalyze(sessionID string, abort func()) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.analyze[sessionID]; ok {
		return false
	}
	a.analyze[sessionID] = abort
	return true
}

// EndAnalyze clears the analyze flag once the run reaches a terminal state.
func (a *Activity) EndAnalyze(sessionID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.analyze, sessionID)
}

// BeginExport registers an in-flight export. Returns false if one is
// already active for the session.
func (a *Activity) BeginExport(sessionID string, cancel func()) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.export[sessionID]; ok {
		return false
	}
	a.export[sessionID] = cancel
	return true
}

// EndExport clears the export flag once the task reaches a terminal state.
func (a *Activity) EndExport(sessionID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.export, sessionID)
}

// Busy reports whether the session has any active run.
func (a *Activity) Busy(sessionID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, analyzing := a.analyze[sessionID]
	_, exporting := a.export[sessionID]
	return analyzing || exporting
}

// Abort fires the abort/cancel hooks for the session's active runs and
// clears the flags. Used by forced session deletes.
func (a *Activity) Abort(sessionID string) {
	a.mu.Lock()
	abortAnalyze := a.analyze[sessionID]
	cancelExport := a.export[sessionID]
	delete(a.analyze, sessionID)
	delete(a.export, sessionID)
	a.mu.Unlock()

	if abortAnalyze != nil {
		abortAnalyze()
	}
	if cancelExport != nil {
		cancelExport()
	}
}
