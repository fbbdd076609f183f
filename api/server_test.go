package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelforge/analyze"
	"reelforge/events"
	"reelforge/export"
	"reelforge/render"
	"reelforge/session"
	"reelforge/statuslog"
	"reelforge/storage"
	"reelforge/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubClips struct{}

func (stubClips) ListRaw(ctx context.Context) ([]storage.ClipRef, error) { return nil, nil }
func (stubClips) Fetch(ctx context.Context, name string) (string, func(), error) {
	return "", func() {}, fmt.Errorf("fetch %s: not stored", name)
}
func (stubClips) PutExport(ctx context.Context, localPath, name string) (string, error) {
	return "", fmt.Errorf("not stored")
}
func (stubClips) MoveRawToProcessed(ctx context.Context) error { return nil }
func (stubClips) RawURL(name string) string                    { return "" }

type stubDescriber struct{}

func (stubDescriber) DescribeClip(ctx context.Context, name string, frameURLs []string) (string, error) {
	return "A scene from " + name + ".", nil
}
func (stubDescriber) ModelName() string { return "stub" }

type stubRewriter struct{}

func (stubRewriter) Rewrite(ctx context.Context, caption, style string) (string, error) {
	return "[" + style + "] " + caption, nil
}

type stubEngine struct{}

func (stubEngine) ComposeClip(ctx context.Context, clip types.ClipSpec, src, dst string, opts render.Options) error {
	return nil
}
func (stubEngine) Concat(ctx context.Context, parts []string, dst string, opts render.Options) error {
	return nil
}
func (stubEngine) Finalize(ctx context.Context, src, dst string, sb *types.Storyboard, opts render.Options) error {
	return nil
}

func newTestRouter(t *testing.T) (*gin.Engine, session.Store) {
	t.Helper()
	activity := session.NewActivity()
	store := session.NewMemoryStore(activity)
	statusLog := statuslog.NewRegistry()
	processor := analyze.NewProcessor(store, stubClips{}, stubDescriber{}, activity, statusLog)
	scheduler := export.NewScheduler(store, stubClips{}, stubEngine{}, events.Nop{}, nil, activity, statusLog, export.Options{})
	r := NewRouter(Deps{
		Store:     store,
		Processor: processor,
		Scheduler: scheduler,
		Rewriter:  stubRewriter{},
		Log:       statusLog,
	})
	return r, store
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func TestHealthEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(t, r, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestRegisterFilesAndGetSession(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/sessions/trip/files", map[string]interface{}{
		"files": []map[string]interface{}{
			{"name": "Beach.MP4", "duration": 8.5},
			{"name": "pool.mp4", "duration": 12},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/sessions/trip", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var sess types.Session
	decodeJSON(t, w, &sess)
	require.Len(t, sess.Files, 2)
	assert.Equal(t, "beach.mp4", sess.Files[0].Name)
	assert.Equal(t, 8.5, sess.Files[0].Duration)
}

func TestRegisterFilesUpdatesDuration(t *testing.T) {
	r, _ := newTestRouter(t)

	doJSON(t, r, http.MethodPost, "/api/sessions/trip/files", map[string]interface{}{
		"files": []map[string]interface{}{{"name": "a.mp4", "duration": 5}},
	})
	w := doJSON(t, r, http.MethodPost, "/api/sessions/trip/files", map[string]interface{}{
		"files": []map[string]interface{}{{"name": "a.mp4", "duration": 9}},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var sess types.Session
	decodeJSON(t, doJSON(t, r, http.MethodGet, "/api/sessions/trip", nil), &sess)
	require.Len(t, sess.Files, 1)
	assert.Equal(t, 9.0, sess.Files[0].Duration)
}

func TestAnalyzeStepFlow(t *testing.T) {
	r, _ := newTestRouter(t)
	doJSON(t, r, http.MethodPost, "/api/sessions/trip/files", map[string]interface{}{
		"files": []map[string]interface{}{
			{"name": "a.mp4", "duration": 5},
			{"name": "b.mp4", "duration": 5},
		},
	})

	w := doJSON(t, r, http.MethodPost, "/api/sessions/trip/analyze/start", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var prog types.AnalyzeProgress
	decodeJSON(t, w, &prog)
	assert.Equal(t, 2, prog.Total)

	// Starting again while running conflicts.
	w = doJSON(t, r, http.MethodPost, "/api/sessions/trip/analyze/start", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	for i := 0; i < 2; i++ {
		w = doJSON(t, r, http.MethodPost, "/api/sessions/trip/analyze/step", nil)
		require.Equal(t, http.StatusOK, w.Code)
	}
	decodeJSON(t, w, &prog)
	assert.Equal(t, types.AnalyzeDone, prog.Status)

	w = doJSON(t, r, http.MethodGet, "/api/sessions/trip/analyze/results", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var results struct {
		Descriptions map[string]string `json:"descriptions"`
	}
	decodeJSON(t, w, &results)
	assert.Len(t, results.Descriptions, 2)
}

func TestStepWithoutStartConflicts(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(t, r, http.MethodPost, "/api/sessions/trip/analyze/step", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestTimingsEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)
	doJSON(t, r, http.MethodPost, "/api/sessions/trip/files", map[string]interface{}{
		"files": []map[string]interface{}{
			{"name": "a.mp4", "duration": 8},
			{"name": "b.mp4", "duration": 5},
			{"name": "c.mp4", "duration": 10},
		},
	})

	w := doJSON(t, r, http.MethodPost, "/api/sessions/trip/timings", map[string]interface{}{
		"target_total": 15,
		"mode":         "standard",
		"weights":      map[string]float64{"a.mp4": 1, "b.mp4": 1, "c.mp4": 1},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var plan types.TimingPlan
	decodeJSON(t, w, &plan)
	require.Len(t, plan.Entries, 3)
	assert.Equal(t, 15.0, plan.Achieved)
	for _, e := range plan.Entries {
		assert.Equal(t, 5.0, e.Duration)
	}
}

func TestConfigYAMLRoundTrip(t *testing.T) {
	r, _ := newTestRouter(t)
	doJSON(t, r, http.MethodPost, "/api/sessions/trip/files", map[string]interface{}{
		"files": []map[string]interface{}{{"name": "a.mp4", "duration": 6}},
	})

	w := doJSON(t, r, http.MethodGet, "/api/sessions/trip/config", nil)
	require.Equal(t, http.StatusOK, w.Code)
	yamlDoc := w.Body.String()
	assert.Contains(t, yamlDoc, "a.mp4")

	edited := strings.Replace(yamlDoc, "a.mp4", "b.mp4", 1)
	req := httptest.NewRequest(http.MethodPut, "/api/sessions/trip/config", strings.NewReader(edited))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	w = doJSON(t, r, http.MethodGet, "/api/sessions/trip/config", nil)
	assert.Contains(t, w.Body.String(), "b.mp4")
}

func TestCaptionsAndOverlay(t *testing.T) {
	r, _ := newTestRouter(t)
	doJSON(t, r, http.MethodPost, "/api/sessions/trip/files", map[string]interface{}{
		"files": []map[string]interface{}{
			{"name": "a.mp4", "duration": 5},
			{"name": "b.mp4", "duration": 5},
		},
	})

	w := doJSON(t, r, http.MethodPost, "/api/sessions/trip/captions", map[string]interface{}{
		"captions": "First caption\nSecond caption",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/sessions/trip/overlay", map[string]interface{}{
		"style": "punchy",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var out struct {
		Rewritten int    `json:"rewritten"`
		Captions  string `json:"captions"`
	}
	decodeJSON(t, w, &out)
	assert.Equal(t, 2, out.Rewritten)
	assert.Contains(t, out.Captions, "[punchy] First caption")
}

func TestExportModeEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)
	doJSON(t, r, http.MethodPost, "/api/sessions/trip/files", map[string]interface{}{
		"files": []map[string]interface{}{{"name": "a.mp4", "duration": 5}},
	})

	w := doJSON(t, r, http.MethodGet, "/api/sessions/trip/export_mode", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "standard")

	w = doJSON(t, r, http.MethodPost, "/api/sessions/trip/export_mode", map[string]interface{}{
		"mode": "optimized",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/sessions/trip/export_mode", nil)
	assert.Contains(t, w.Body.String(), "optimized")
}

func TestExportWithoutStoryboardConflicts(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(t, r, http.MethodPost, "/api/sessions/empty/export", map[string]interface{}{})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestExportStatusUnknownTask(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(t, r, http.MethodGet, "/api/exports/no-such-task", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/exports/no-such-task/cancel", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBadSessionIDRejected(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(t, r, http.MethodGet, "/api/sessions/---/status", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteSession(t *testing.T) {
	r, store := newTestRouter(t)
	doJSON(t, r, http.MethodPost, "/api/sessions/trip/files", map[string]interface{}{
		"files": []map[string]interface{}{{"name": "a.mp4", "duration": 5}},
	})

	w := doJSON(t, r, http.MethodDelete, "/api/sessions/trip", nil)
	require.Equal(t, http.StatusOK, w.Code)

	sess, err := store.Get(context.Background(), "trip")
	require.NoError(t, err)
	assert.Empty(t, sess.Files)
}
