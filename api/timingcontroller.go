package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"reelforge/pacing"
	"reelforge/storyboard"
)

// RegisterTimingRoutes registers the smart-pacing and storyboard
// generation endpoints.
func RegisterTimingRoutes(r *gin.Engine, d Deps) {
	g := r.Group("/api/sessions/:id")
	g.POST("/timings", func(c *gin.Context) { handleApplyTimings(c, d) })
	g.POST("/storyboard/generate", func(c *gin.Context) { handleGenerateStoryboard(c, d) })
}

// ApplyTimingsRequest tunes one balancing pass. A zero or absent
// target_total falls back to the summed raw durations; weights override
// the caption-length default per file name.
type ApplyTimingsRequest struct {
	TargetTotal float64            `json:"target_total"`
	Mode        string             `json:"mode"`
	Weights     map[string]float64 `json:"weights"`
}

func handleApplyTimings(c *gin.Context, d Deps) {
	var req ApplyTimingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s, err := d.Store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	if s.Storyboard == nil {
		s.Storyboard = storyboard.BuildFromDescriptions(s.Files, s.Descriptions)
	}

	clips := pacing.FromStoryboard(s.Storyboard)
	for i := range clips {
		if w, ok := req.Weights[clips[i].File]; ok && w > 0 {
			clips[i].Weight = w
		}
	}

	target := req.TargetTotal
	if target <= 0 {
		for _, cl := range clips {
			target += cl.Raw
		}
	}

	plan := pacing.Balance(clips, target, pacing.ParseMode(req.Mode))
	storyboard.ApplyPlan(s.Storyboard, plan)

	if err := d.Store.Put(c.Request.Context(), s); err != nil {
		abortWithError(c, err)
		return
	}

	d.Log.Log(s.ID, "Applied %s pacing: %.2fs over %d clip(s).",
		pacing.ParseMode(req.Mode), plan.Achieved, len(plan.Entries))
	c.JSON(http.StatusOK, plan)
}

func handleGenerateStoryboard(c *gin.Context, d Deps) {
	s, err := d.Store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	if len(s.Files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files registered for session"})
		return
	}

	s.Storyboard = storyboard.BuildFromDescriptions(s.Files, s.Descriptions)
	if err := d.Store.Put(c.Request.Context(), s); err != nil {
		abortWithError(c, err)
		return
	}

	d.Log.Log(s.ID, "Storyboard generated with %d clip(s).", len(s.Storyboard.Clips))
	c.JSON(http.StatusOK, s.Storyboard)
}
