// Package export runs final renders out-of-band: create hands a snapshot of
// the session's storyboard to a bounded worker pool, status serves read-only
// snapshots to polling clients, and cancel sets a flag the worker honors at
// the next stage boundary. No endpoint ever blocks on render progress.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"reelforge/config"
	"reelforge/events"
	"reelforge/publish"
	"reelforge/render"
	"reelforge/session"
	"reelforge/statuslog"
	"reelforge/storage"
	"reelforge/storyboard"
	"reelforge/types"
)

var (
	// ErrNoConfig rejects an export for a session without a storyboard.
	ErrNoConfig = errors.New("session has no storyboard to render")
	// ErrAlreadyExporting enforces at most one in-flight export per session.
	ErrAlreadyExporting = errors.New("an export is already running for session")
	// ErrNotFound is the normal outcome of polling a task after its
	// retention window expired, not a crash condition.
	ErrNotFound = errors.New("export task not found")
	// errStageStalled is the watchdog verdict for a stage making no
	// progress within the bound.
	errStageStalled = errors.New("render stage stalled")
)

// Options tune the scheduler; zero values fall back to the config defaults.
type Options struct {
	PoolSize     int
	StageTimeout time.Duration
	Retention    time.Duration
}

type task struct {
	mu         sync.Mutex
	snap       types.ExportTask
	cancelCh   chan struct{}
	cancelOnce sync.Once
	terminalAt time.Time
}

func (t *task) cancelled() bool {
	select {
	case <-t.cancelCh:
		return true
	default:
		return false
	}
}

func (t *task) snapshot() types.ExportTask {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap
}

// Scheduler owns export task lifecycles and the worker pool.
type Scheduler struct {
	store    session.Store
	clips    storage.ClipStore
	engine   render.Engine
	events   events.Publisher
	youtube  *publish.Uploader
	activity *session.Activity
	log      *statuslog.Registry

	sem          chan struct{}
	stageTimeout time.Duration
	retention    time.Duration

	mu        sync.Mutex
	tasks     map[string]*task
	bySession map[string][]string
}

func NewScheduler(store session.Store, clips storage.ClipStore, engine render.Engine, pub events.Publisher, youtube *publish.Uploader, activity *session.Activity, log *statuslog.Registry, opts Options) *Scheduler {
	if opts.PoolSize <= 0 {
		opts.PoolSize = config.ExportPoolSize
	}
	if opts.StageTimeout <= 0 {
		opts.StageTimeout = config.StageTimeout
	}
	if opts.Retention <= 0 {
		opts.Retention = config.ExportRetention
	}
	return &Scheduler{
		store:        store,
		clips:        clips,
		engine:       engine,
		events:       pub,
		youtube:      youtube,
		activity:     activity,
		log:          log,
		sem:          make(chan struct{}, opts.PoolSize),
		stageTimeout: opts.StageTimeout,
		retention:    opts.Retention,
		tasks:        make(map[string]*task),
		bySession:    make(map[string][]string),
	}
}

// Start snapshots the session's storyboard, allocates a queued task, and
// hands it to the pool. Returns immediately with the task id.
func (s *Scheduler) Start(ctx context.Context, sessionID string, opts types.ExportOptions) (string, error) {
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if sess.Storyboard == nil || len(sess.Storyboard.Clips) == 0 {
		return "", fmt.Errorf("export %s: %w", sess.ID, ErrNoConfig)
	}

	// Deep-copy the storyboard so session edits during the render don't
	// leak into it.
	sb := *sess.Storyboard
	sb.Clips = append([]types.ClipSpec(nil), sess.Storyboard.Clips...)
	if storyboard.ExportMode(&sb) == "optimized" {
		opts.Optimized = true
	}

	t := &task{
		cancelCh: make(chan struct{}),
		snap: types.ExportTask{
			ID:        uuid.NewString(),
			SessionID: sess.ID,
			Status:    types.ExportQueued,
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		},
	}

	if !s.activity.BeginExport(sess.ID, func() { s.requestCancel(t) }) {
		return "", fmt.Errorf("export %s: %w", sess.ID, ErrAlreadyExporting)
	}

	s.mu.Lock()
	// A new task for a session retires that session's terminal tasks
	// immediately; the retention clock only covers the gap in between.
	s.dropTerminalLocked(sess.ID)
	s.tasks[t.snap.ID] = t
	s.bySession[sess.ID] = append(s.bySession[sess.ID], t.snap.ID)
	s.mu.Unlock()

	s.log.Clear(sess.ID)
	s.log.Log(sess.ID, "Export queued (task %s).", t.snap.ID)
	s.emit(t, "")

	go s.run(t, &sb, opts)
	return t.snap.ID, nil
}

// Status returns a read-only snapshot. Terminal tasks past the retention
// window are garbage-collected and report ErrNotFound.
func (s *Scheduler) Status(taskID string) (types.ExportTask, error) {
	s.mu.Lock()
	t, ok := s.tasks[taskID]
	if ok {
		t.mu.Lock()
		expired := t.snap.Status.Terminal() && !t.terminalAt.IsZero() && time.Since(t.terminalAt) > s.retention
		t.mu.Unlock()
		if expired {
			s.deleteLocked(taskID)
			ok = false
		}
	}
	s.mu.Unlock()
	if !ok {
		return types.ExportTask{}, ErrNotFound
	}
	return t.snapshot(), nil
}

// Cancel sets the cancellation flag. The worker notices at its next stage
// boundary; terminal tasks are left untouched and report accepted=false.
func (s *Scheduler) Cancel(taskID string) (bool, error) {
	s.mu.Lock()
	t, ok := s.tasks[taskID]
	s.mu.Unlock()
	if !ok {
		return false, ErrNotFound
	}
	if t.snapshot().Status.Terminal() {
		return false, nil
	}
	s.requestCancel(t)
	return true, nil
}

func (s *Scheduler) requestCancel(t *task) {
	t.cancelOnce.Do(func() { close(t.cancelCh) })
}

// run is the worker loop: one goroutine per task, gated by the pool
// semaphore. Stages are executed in order with a cancellation checkpoint
// and a watchdog around each.
func (s *Scheduler) run(t *task, sb *types.Storyboard, opts types.ExportOptions) {
	sessionID := t.snap.SessionID

	select {
	case s.sem <- struct{}{}:
	case <-t.cancelCh:
		s.finish(t, types.ExportCancelled, "", "cancelled while queued")
		return
	}
	defer func() { <-s.sem }()

	if t.cancelled() {
		s.finish(t, types.ExportCancelled, "", "cancelled while queued")
		return
	}

	workDir, err := os.MkdirTemp("", "reelforge-export-")
	if err != nil {
		s.finish(t, types.ExportError, "", fmt.Sprintf("workdir: %v", err))
		return
	}
	// Partial output is always discarded, whatever the outcome.
	defer os.RemoveAll(workDir)

	totalStages := 1 + len(sb.Clips) + 2 // fetch, per-clip compose, concat, finalize
	completed := 0
	advance := func(stage string) {
		completed++
		s.setProgress(t, stage, float64(completed)/float64(totalStages))
	}

	s.setRunning(t)
	s.log.Log(sessionID, "Export started: %d clip(s), %d stage(s).", len(sb.Clips), totalStages)

	renderOpts := render.Options{Optimized: opts.Optimized}

	// Stage: fetch sources.
	sources := make(map[string]string, len(sb.Clips))
	err = s.stage(t, "fetch", func(ctx context.Context) error {
		for _, clip := range sb.Clips {
			if _, ok := sources[clip.File]; ok {
				continue
			}
			path, cleanup, err := s.clips.Fetch(ctx, clip.File)
			if err != nil {
				return err
			}
			// Move into the workdir so one deferred RemoveAll covers it.
			local := filepath.Join(workDir, filepath.Base(path))
			if err := os.Rename(path, local); err != nil {
				cleanup()
				return err
			}
			sources[clip.File] = local
		}
		return nil
	})
	if s.checkpoint(t, err, "fetch") {
		return
	}
	advance("fetch")

	// Stages: compose each clip.
	parts := make([]string, 0, len(sb.Clips))
	for i, clip := range sb.Clips {
		stageName := fmt.Sprintf("compose %s", clip.File)
		part := filepath.Join(workDir, fmt.Sprintf("part_%03d.mp4", i))
		c := clip
		err = s.stage(t, stageName, func(ctx context.Context) error {
			return s.engine.ComposeClip(ctx, c, sources[c.File], part, renderOpts)
		})
		if s.checkpoint(t, err, stageName) {
			return
		}
		parts = append(parts, part)
		advance(stageName)
	}

	// Stage: concat.
	merged := filepath.Join(workDir, "merged.mp4")
	err = s.stage(t, "concat", func(ctx context.Context) error {
		return s.engine.Concat(ctx, parts, merged, renderOpts)
	})
	if s.checkpoint(t, err, "concat") {
		return
	}
	advance("concat")

	// Stage: finalize and store.
	final := filepath.Join(workDir, "final.mp4")
	var ref string
	err = s.stage(t, "finalize", func(ctx context.Context) error {
		if err := s.engine.Finalize(ctx, merged, final, sb, renderOpts); err != nil {
			return err
		}
		name := opts.Filename
		if name == "" {
			name = fmt.Sprintf("final_%d.mp4", time.Now().Unix())
		}
		var err error
		ref, err = s.clips.PutExport(ctx, final, name)
		return err
	})
	if s.checkpoint(t, err, "finalize") {
		return
	}
	advance("finalize")

	if err := s.clips.MoveRawToProcessed(context.Background()); err != nil {
		// Archival is best-effort; the export itself succeeded.
		s.log.Log(sessionID, "Warning: failed to archive raw clips: %v", err)
	}

	if opts.Publish && s.youtube != nil {
		if id, err := s.youtube.Upload(context.Background(), final, sb); err != nil {
			s.log.Log(sessionID, "Warning: publish failed: %v", err)
		} else {
			s.log.Log(sessionID, "Published as %s.", id)
		}
	}

	s.log.Log(sessionID, "Export complete → %s", ref)
	s.finish(t, types.ExportDone, ref, "")
}

// stage runs one interruptible unit under the watchdog. A stage that makes
// no progress within the bound returns errStageStalled so the task cannot
// sit in running forever.
func (s *Scheduler) stage(t *task, name string, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.stageTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("stage %s: %w", name, errStageStalled)
	}
}

// checkpoint handles the outcome of one stage: cancellation first, then
// failure. Returns true when the task reached a terminal state.
func (s *Scheduler) checkpoint(t *task, err error, stage string) bool {
	if t.cancelled() {
		s.log.Log(t.snap.SessionID, "Export cancelled during %s; partial output discarded.", stage)
		s.finish(t, types.ExportCancelled, "", "")
		return true
	}
	if err != nil {
		s.log.Log(t.snap.SessionID, "Export failed during %s: %v", stage, err)
		s.finish(t, types.ExportError, "", err.Error())
		return true
	}
	return false
}

func (s *Scheduler) setRunning(t *task) {
	t.mu.Lock()
	t.snap.Status = types.ExportRunning
	t.snap.UpdatedAt = time.Now().UTC()
	t.mu.Unlock()
	s.emit(t, "")
}

func (s *Scheduler) setProgress(t *task, stage string, progress float64) {
	t.mu.Lock()
	t.snap.Stage = stage
	t.snap.Progress = progress
	t.snap.UpdatedAt = time.Now().UTC()
	t.mu.Unlock()
}

// finish moves the task to a terminal state exactly once. Terminal states
// are final: no further mutation happens after this.
func (s *Scheduler) finish(t *task, status types.ExportStatus, ref, errMsg string) {
	t.mu.Lock()
	if t.snap.Status.Terminal() {
		t.mu.Unlock()
		return
	}
	t.snap.Status = status
	t.snap.DownloadRef = ref
	t.snap.Error = errMsg
	if status == types.ExportDone {
		t.snap.Progress = 1
	}
	t.snap.UpdatedAt = time.Now().UTC()
	t.terminalAt = time.Now()
	sessionID := t.snap.SessionID
	t.mu.Unlock()

	s.activity.EndExport(sessionID)
	s.emit(t, errMsg)
}

func (s *Scheduler) emit(t *task, errMsg string) {
	snap := t.snapshot()
	ev := events.ExportEvent{
		TaskID:    snap.ID,
		SessionID: snap.SessionID,
		Status:    string(snap.Status),
		Stage:     snap.Stage,
		Ref:       snap.DownloadRef,
		Error:     errMsg,
		At:        time.Now().UTC(),
	}
	if err := s.events.PublishExport(context.Background(), ev); err != nil {
		s.log.Log(snap.SessionID, "Warning: event publish failed: %v", err)
	}
}

// dropTerminalLocked retires a session's terminal tasks; callers hold s.mu.
func (s *Scheduler) dropTerminalLocked(sessionID string) {
	var kept []string
	for _, id := range s.bySession[sessionID] {
		if t, ok := s.tasks[id]; ok && !t.snapshot().Status.Terminal() {
			kept = append(kept, id)
			continue
		}
		delete(s.tasks, id)
	}
	if len(kept) == 0 {
		delete(s.bySession, sessionID)
	} else {
		s.bySession[sessionID] = kept
	}
}

func (s *Scheduler) deleteLocked(taskID string) {
	t, ok := s.tasks[taskID]
	if !ok {
		return
	}
	delete(s.tasks, taskID)
	sid := t.snap.SessionID
	var kept []string
	for _, id := range s.bySession[sid] {
		if id != taskID {
			kept = append(kept, id)
		}
	}
	if len(kept) == 0 {
		delete(s.bySession, sid)
	} else {
		s.bySession[sid] = kept
	}
}
