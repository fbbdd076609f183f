package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"reelforge/analyze"
	"reelforge/describe"
	"reelforge/export"
	"reelforge/session"
	"reelforge/statuslog"
)

// Deps carries the wired components the controllers need.
type Deps struct {
	Store     session.Store
	Processor *analyze.Processor
	Scheduler *export.Scheduler
	Rewriter  describe.Rewriter
	Log       *statuslog.Registry
}

// NewRouter constructs a Gin engine with registered routes.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	// Minimal middleware: recovery; logger optional to reduce verbosity
	r.Use(gin.Recovery())

	RegisterHealthRoutes(r)
	RegisterSessionRoutes(r, d)
	RegisterAnalyzeRoutes(r, d)
	RegisterTimingRoutes(r, d)
	RegisterConfigRoutes(r, d)
	RegisterExportRoutes(r, d)
	return r
}

// statusFor maps component errors onto HTTP statuses: preconditions are
// 409, lookups 404, bad ids 400, the rest 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, analyze.ErrAlreadyRunning),
		errors.Is(err, analyze.ErrNoActiveQueue),
		errors.Is(err, export.ErrAlreadyExporting),
		errors.Is(err, export.ErrNoConfig),
		errors.Is(err, session.ErrSessionBusy):
		return http.StatusConflict
	case errors.Is(err, export.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrBadSessionID):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}
