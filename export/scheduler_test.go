package export

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelforge/events"
	"reelforge/render"
	"reelforge/session"
	"reelforge/statuslog"
	"reelforge/storage"
	"reelforge/storyboard"
	"reelforge/types"
)

type fakeClips struct{}

func (f *fakeClips) ListRaw(ctx context.Context) ([]storage.ClipRef, error) { return nil, nil }

func (f *fakeClips) Fetch(ctx context.Context, name string) (string, func(), error) {
	tmp, err := os.CreateTemp("", "clip-*.mp4")
	if err != nil {
		return "", nil, err
	}
	tmp.Close()
	path := tmp.Name()
	return path, func() { os.Remove(path) }, nil
}

func (f *fakeClips) PutExport(ctx context.Context, localPath, name string) (string, error) {
	return "exports/" + name, nil
}

func (f *fakeClips) MoveRawToProcessed(ctx context.Context) error { return nil }
func (f *fakeClips) RawURL(name string) string                    { return "" }

// fakeEngine counts stage calls and can block composition on a channel or
// simulate a stalled stage that ignores its context.
type fakeEngine struct {
	mu       sync.Mutex
	composed int
	concats  int
	finals   int

	blockCompose chan struct{} // when set, ComposeClip waits for a close
	stall        time.Duration // when set, every stage sleeps this long
	failCompose  error
}

func (e *fakeEngine) ComposeClip(ctx context.Context, clip types.ClipSpec, src, dst string, opts render.Options) error {
	if e.blockCompose != nil {
		<-e.blockCompose
	}
	if e.stall > 0 {
		time.Sleep(e.stall)
	}
	if e.failCompose != nil {
		return e.failCompose
	}
	e.mu.Lock()
	e.composed++
	e.mu.Unlock()
	return nil
}

func (e *fakeEngine) Concat(ctx context.Context, parts []string, dst string, opts render.Options) error {
	if e.stall > 0 {
		time.Sleep(e.stall)
	}
	e.mu.Lock()
	e.concats++
	e.mu.Unlock()
	return nil
}

func (e *fakeEngine) Finalize(ctx context.Context, src, dst string, sb *types.Storyboard, opts render.Options) error {
	if e.stall > 0 {
		time.Sleep(e.stall)
	}
	e.mu.Lock()
	e.finals++
	e.mu.Unlock()
	return nil
}

func (e *fakeEngine) composedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.composed
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.ExportEvent
}

func (p *recordingPublisher) PublishExport(ctx context.Context, ev events.ExportEvent) error {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) statuses() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Status
	}
	return out
}

func newTestScheduler(t *testing.T, engine render.Engine, opts Options) (*Scheduler, session.Store, *recordingPublisher) {
	t.Helper()
	activity := session.NewActivity()
	store := session.NewMemoryStore(activity)
	pub := &recordingPublisher{}
	s := NewScheduler(store, &fakeClips{}, engine, pub, nil, activity, statuslog.NewRegistry(), opts)
	return s, store, pub
}

func seedSession(t *testing.T, store session.Store, id string, clipCount int) {
	t.Helper()
	ctx := context.Background()
	sess, err := store.Get(ctx, id)
	require.NoError(t, err)
	files := make([]types.FileRef, clipCount)
	for i := range files {
		files[i] = types.FileRef{Name: string(rune('a'+i)) + ".mp4", Duration: 10}
	}
	sess.Files = files
	sess.Storyboard = storyboard.BuildFromDescriptions(files, nil)
	require.NoError(t, store.Put(ctx, sess))
}

func waitForTerminal(t *testing.T, s *Scheduler, taskID string) types.ExportTask {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatalf("task %s never reached a terminal state", taskID)
		default:
		}
		task, err := s.Status(taskID)
		require.NoError(t, err)
		if task.Status.Terminal() {
			return task
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestExportLifecycle(t *testing.T) {
	engine := &fakeEngine{}
	s, store, pub := newTestScheduler(t, engine, Options{})
	seedSession(t, store, "trip", 3)

	taskID, err := s.Start(context.Background(), "trip", types.ExportOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, taskID)

	task := waitForTerminal(t, s, taskID)
	assert.Equal(t, types.ExportDone, task.Status)
	assert.Equal(t, 1.0, task.Progress)
	assert.Contains(t, task.DownloadRef, "exports/final_")
	assert.Empty(t, task.Error)
	assert.Equal(t, 3, engine.composedCount())

	statuses := pub.statuses()
	require.NotEmpty(t, statuses)
	assert.Equal(t, "queued", statuses[0])
	assert.Equal(t, "done", statuses[len(statuses)-1])
}

func TestExportFilenameOverride(t *testing.T) {
	s, store, _ := newTestScheduler(t, &fakeEngine{}, Options{})
	seedSession(t, store, "trip", 1)

	taskID, err := s.Start(context.Background(), "trip", types.ExportOptions{Filename: "holiday.mp4"})
	require.NoError(t, err)

	task := waitForTerminal(t, s, taskID)
	assert.Equal(t, "exports/holiday.mp4", task.DownloadRef)
}

func TestStartWithoutStoryboard(t *testing.T) {
	s, _, _ := newTestScheduler(t, &fakeEngine{}, Options{})

	_, err := s.Start(context.Background(), "empty", types.ExportOptions{})
	assert.ErrorIs(t, err, ErrNoConfig)
}

func TestSecondExportRejectedWhileRunning(t *testing.T) {
	engine := &fakeEngine{blockCompose: make(chan struct{})}
	s, store, _ := newTestScheduler(t, engine, Options{})
	seedSession(t, store, "trip", 1)

	first, err := s.Start(context.Background(), "trip", types.ExportOptions{})
	require.NoError(t, err)

	_, err = s.Start(context.Background(), "trip", types.ExportOptions{})
	assert.ErrorIs(t, err, ErrAlreadyExporting)

	close(engine.blockCompose)
	waitForTerminal(t, s, first)

	// A new export is allowed once the previous one is terminal.
	_, err = s.Start(context.Background(), "trip", types.ExportOptions{})
	assert.NoError(t, err)
}

func TestCancelMidRun(t *testing.T) {
	engine := &fakeEngine{blockCompose: make(chan struct{})}
	s, store, _ := newTestScheduler(t, engine, Options{})
	seedSession(t, store, "trip", 2)

	taskID, err := s.Start(context.Background(), "trip", types.ExportOptions{})
	require.NoError(t, err)

	// Give the worker a moment to enter the compose stage, then cancel.
	time.Sleep(20 * time.Millisecond)
	accepted, err := s.Cancel(taskID)
	require.NoError(t, err)
	assert.True(t, accepted)

	close(engine.blockCompose)
	task := waitForTerminal(t, s, taskID)
	assert.Equal(t, types.ExportCancelled, task.Status)
	assert.Empty(t, task.DownloadRef)
}

func TestCancelTerminalTaskIsNoOp(t *testing.T) {
	s, store, _ := newTestScheduler(t, &fakeEngine{}, Options{})
	seedSession(t, store, "trip", 1)

	taskID, err := s.Start(context.Background(), "trip", types.ExportOptions{})
	require.NoError(t, err)
	waitForTerminal(t, s, taskID)

	accepted, err := s.Cancel(taskID)
	require.NoError(t, err)
	assert.False(t, accepted)

	// The task stays done; cancel after completion never rewrites history.
	task, err := s.Status(taskID)
	require.NoError(t, err)
	assert.Equal(t, types.ExportDone, task.Status)
}

func TestStatusUnknownTask(t *testing.T) {
	s, _, _ := newTestScheduler(t, &fakeEngine{}, Options{})

	_, err := s.Status("no-such-task")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Cancel("no-such-task")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStageFailureReportsError(t *testing.T) {
	engine := &fakeEngine{failCompose: errors.New("codec exploded")}
	s, store, _ := newTestScheduler(t, engine, Options{})
	seedSession(t, store, "trip", 1)

	taskID, err := s.Start(context.Background(), "trip", types.ExportOptions{})
	require.NoError(t, err)

	task := waitForTerminal(t, s, taskID)
	assert.Equal(t, types.ExportError, task.Status)
	assert.Contains(t, task.Error, "codec exploded")
}

func TestWatchdogCatchesStalledStage(t *testing.T) {
	engine := &fakeEngine{stall: 300 * time.Millisecond}
	s, store, _ := newTestScheduler(t, engine, Options{StageTimeout: 30 * time.Millisecond})
	seedSession(t, store, "trip", 1)

	taskID, err := s.Start(context.Background(), "trip", types.ExportOptions{})
	require.NoError(t, err)

	task := waitForTerminal(t, s, taskID)
	assert.Equal(t, types.ExportError, task.Status)
	assert.Contains(t, task.Error, "stalled")
}

func TestRetentionExpiresTerminalTasks(t *testing.T) {
	s, store, _ := newTestScheduler(t, &fakeEngine{}, Options{Retention: 200 * time.Millisecond})
	seedSession(t, store, "trip", 1)

	taskID, err := s.Start(context.Background(), "trip", types.ExportOptions{})
	require.NoError(t, err)
	waitForTerminal(t, s, taskID)

	time.Sleep(400 * time.Millisecond)
	_, err = s.Status(taskID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewTaskRetiresPreviousTerminal(t *testing.T) {
	s, store, _ := newTestScheduler(t, &fakeEngine{}, Options{})
	seedSession(t, store, "trip", 1)

	first, err := s.Start(context.Background(), "trip", types.ExportOptions{})
	require.NoError(t, err)
	waitForTerminal(t, s, first)

	second, err := s.Start(context.Background(), "trip", types.ExportOptions{})
	require.NoError(t, err)

	// The new task replaces the finished one immediately, ahead of the
	// retention clock.
	_, err = s.Status(first)
	assert.ErrorIs(t, err, ErrNotFound)

	waitForTerminal(t, s, second)
}

func TestOptimizedExportModeForcesFastPreset(t *testing.T) {
	s, store, _ := newTestScheduler(t, &fakeEngine{}, Options{})
	seedSession(t, store, "trip", 1)

	ctx := context.Background()
	sess, err := store.Get(ctx, "trip")
	require.NoError(t, err)
	storyboard.SetExportMode(sess.Storyboard, "optimized")
	require.NoError(t, store.Put(ctx, sess))

	taskID, err := s.Start(ctx, "trip", types.ExportOptions{})
	require.NoError(t, err)
	task := waitForTerminal(t, s, taskID)
	assert.Equal(t, types.ExportDone, task.Status)
}
