// Package analyze drives the per-session description pass as a resumable
// step queue: start snapshots the pending file list, and each step call
// processes exactly one file, so a slow description service can be paced by
// repeated short client requests instead of one blocking call.
package analyze

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"reelforge/config"
	"reelforge/describe"
	"reelforge/session"
	"reelforge/statuslog"
	"reelforge/storage"
	"reelforge/types"
)

var (
	// ErrAlreadyRunning rejects a start while a queue is active; the
	// existing queue's cursor is left untouched.
	ErrAlreadyRunning = errors.New("analysis already running for session")
	// ErrNoActiveQueue rejects a step with no started queue.
	ErrNoActiveQueue = errors.New("no active analysis queue for session")
)

// run is one analyze pass over a session's pending files. The mutex
// serializes concurrent step calls so no file is processed twice or
// skipped.
type run struct {
	mu     sync.Mutex
	files  []string
	cursor int
	failed int
	status types.AnalyzeStatus
}

func (r *run) snapshot() types.AnalyzeProgress {
	return types.AnalyzeProgress{
		Status:    r.status,
		Processed: r.cursor,
		Total:     len(r.files),
		Failed:    r.failed,
	}
}

// Processor owns the per-session analyze queues.
type Processor struct {
	store     session.Store
	clips     storage.ClipStore
	describer describe.Describer
	activity  *session.Activity
	log       *statuslog.Registry

	mu   sync.Mutex
	runs map[string]*run
}

func NewProcessor(store session.Store, clips storage.ClipStore, describer describe.Describer, activity *session.Activity, log *statuslog.Registry) *Processor {
	return &Processor{
		store:     store,
		clips:     clips,
		describer: describer,
		activity:  activity,
		log:       log,
		runs:      make(map[string]*run),
	}
}

// Start builds an analysis queue from the session's current file list,
// skipping files that already have a cached description. An empty pending
// list goes straight to done. Starting while a queue is running is
// rejected without touching the existing queue.
func (p *Processor) Start(ctx context.Context, sessionID string) (types.AnalyzeProgress, error) {
	s, err := p.store.Get(ctx, sessionID)
	if err != nil {
		return types.AnalyzeProgress{}, err
	}

	p.mu.Lock()
	if prev, ok := p.runs[s.ID]; ok {
		// Step moves a run's status under its own lock, so the check has
		// to take it too.
		prev.mu.Lock()
		running := prev.status == types.AnalyzeRunning
		prev.mu.Unlock()
		if running {
			p.mu.Unlock()
			return types.AnalyzeProgress{}, fmt.Errorf("start %s: %w", s.ID, ErrAlreadyRunning)
		}
	}

	var pending []string
	for _, f := range s.Files {
		if s.Description(f.Name) == "" {
			pending = append(pending, f.Name)
		}
	}

	r := &run{files: pending, status: types.AnalyzeRunning}
	if len(pending) == 0 {
		r.status = types.AnalyzeDone
	} else if !p.activity.BeginAnalyze(s.ID, func() { p.abort(s.ID) }) {
		p.mu.Unlock()
		return types.AnalyzeProgress{}, fmt.Errorf("start %s: %w", s.ID, ErrAlreadyRunning)
	}
	p.runs[s.ID] = r
	p.mu.Unlock()

	p.log.Clear(s.ID)
	if r.status == types.AnalyzeDone {
		p.log.Log(s.ID, "No clips pending analysis.")
		return r.snapshot(), nil
	}

	p.log.Log(s.ID, "Starting analysis of %d clip(s)…", len(pending))
	return r.snapshot(), nil
}

// Step processes exactly the file at the queue's cursor. A per-file
// describer failure records a sentinel description and the run continues;
// only an unreachable describer transitions the whole queue to error. Step
// on a finished queue is a no-op returning done, so clients can safely
// retry after completion.
func (p *Processor) Step(ctx context.Context, sessionID string) (types.AnalyzeProgress, error) {
	clean, err := session.SanitizeID(sessionID)
	if err != nil {
		return types.AnalyzeProgress{}, err
	}

	p.mu.Lock()
	r, ok := p.runs[clean]
	p.mu.Unlock()
	if !ok {
		return types.AnalyzeProgress{}, fmt.Errorf("step %s: %w", clean, ErrNoActiveQueue)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != types.AnalyzeRunning {
		return r.snapshot(), nil
	}

	name := r.files[r.cursor]
	p.log.Log(clean, "Analyzing %s…", name)

	desc, describeErr := p.describeOne(ctx, name)
	if describeErr != nil && errors.Is(describeErr, describe.ErrDescriberDown) {
		r.status = types.AnalyzeError
		p.activity.EndAnalyze(clean)
		p.log.Log(clean, "Analysis stopped: %v", describeErr)
		prog := r.snapshot()
		prog.LastFile = name
		prog.LastError = describeErr.Error()
		return prog, nil
	}

	prog := types.AnalyzeProgress{LastFile: name}
	if describeErr != nil {
		desc = config.AnalysisUnavailable
		r.failed++
		prog.LastError = describeErr.Error()
		p.log.Log(clean, "Analysis failed for %s: %v", name, describeErr)
	} else {
		prog.Description = desc
		p.log.Log(clean, "Analysis complete for %s.", name)
	}

	if err := p.record(ctx, clean, name, desc); err != nil {
		// Store trouble is infrastructure, not a per-file miss.
		r.status = types.AnalyzeError
		p.activity.EndAnalyze(clean)
		return types.AnalyzeProgress{}, err
	}

	r.cursor++
	if r.cursor >= len(r.files) {
		r.status = types.AnalyzeDone
		p.activity.EndAnalyze(clean)
		p.log.Log(clean, "All clips analyzed.")
	}

	prog.Status = r.status
	prog.Processed = r.cursor
	prog.Total = len(r.files)
	prog.Failed = r.failed
	return prog, nil
}

// RunAll loops Step until the queue drains; the one-shot convenience path.
func (p *Processor) RunAll(ctx context.Context, sessionID string) (types.AnalyzeProgress, error) {
	prog, err := p.Start(ctx, sessionID)
	if err != nil {
		return prog, err
	}
	for prog.Status == types.AnalyzeRunning {
		if err := ctx.Err(); err != nil {
			return prog, err
		}
		prog, err = p.Step(ctx, sessionID)
		if err != nil {
			return prog, err
		}
	}
	return prog, nil
}

// Status reports the session's queue state without side effects.
func (p *Processor) Status(sessionID string) types.AnalyzeProgress {
	clean, err := session.SanitizeID(sessionID)
	if err != nil {
		return types.AnalyzeProgress{Status: types.AnalyzeIdle}
	}
	p.mu.Lock()
	r, ok := p.runs[clean]
	p.mu.Unlock()
	if !ok {
		return types.AnalyzeProgress{Status: types.AnalyzeIdle}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot()
}

// Results returns the session's file→description map.
func (p *Processor) Results(ctx context.Context, sessionID string) (map[string]string, error) {
	s, err := p.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(s.Descriptions))
	for k, v := range s.Descriptions {
		out[k] = v
	}
	return out, nil
}

// abort drops the session's queue; used by forced session deletes.
func (p *Processor) abort(sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.runs, sessionID)
}

func (p *Processor) describeOne(ctx context.Context, name string) (string, error) {
	var frames []string
	if url := p.clips.RawURL(name); url != "" {
		frames = []string{url}
	}
	return p.describer.DescribeClip(ctx, name, frames)
}

func (p *Processor) record(ctx context.Context, sessionID, name, desc string) error {
	s, err := p.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if s.Descriptions == nil {
		s.Descriptions = map[string]string{}
	}
	s.Descriptions[name] = desc
	return p.store.Put(ctx, s)
}
