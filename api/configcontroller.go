package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"reelforge/storyboard"
	"reelforge/types"
)

// RegisterConfigRoutes registers the storyboard document and overlay
// settings endpoints.
func RegisterConfigRoutes(r *gin.Engine, d Deps) {
	g := r.Group("/api/sessions/:id")
	g.GET("/config", func(c *gin.Context) { handleGetConfig(c, d) })
	g.PUT("/config", func(c *gin.Context) { handlePutConfig(c, d) })
	g.GET("/captions", func(c *gin.Context) { handleGetCaptions(c, d) })
	g.POST("/captions", func(c *gin.Context) { handleSetCaptions(c, d) })
	g.POST("/overlay", func(c *gin.Context) { handleOverlayStyle(c, d) })
	g.POST("/tts", func(c *gin.Context) { handleSetTTS(c, d) })
	g.POST("/cta", func(c *gin.Context) { handleSetCTA(c, d) })
	g.POST("/fgscale", func(c *gin.Context) { handleSetFgScale(c, d) })
	g.GET("/export_mode", func(c *gin.Context) { handleGetExportMode(c, d) })
	g.POST("/export_mode", func(c *gin.Context) { handleSetExportMode(c, d) })
}

// withStoryboard loads the session and ensures it carries a storyboard,
// building a skeleton from the analyze results when absent.
func withStoryboard(c *gin.Context, d Deps) (*types.Session, bool) {
	s, err := d.Store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return nil, false
	}
	if s.Storyboard == nil {
		s.Storyboard = storyboard.BuildFromDescriptions(s.Files, s.Descriptions)
	}
	return s, true
}

func saveSession(c *gin.Context, d Deps, s *types.Session) bool {
	if err := d.Store.Put(c.Request.Context(), s); err != nil {
		abortWithError(c, err)
		return false
	}
	return true
}

// The config document travels as YAML text, not JSON, so users can edit
// it verbatim in a textarea and round-trip comments-free formatting.
func handleGetConfig(c *gin.Context, d Deps) {
	s, ok := withStoryboard(c, d)
	if !ok {
		return
	}
	text, err := storyboard.Marshal(s.Storyboard)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/x-yaml", []byte(text))
}

func handlePutConfig(c *gin.Context, d Deps) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sb, err := storyboard.Unmarshal(string(body))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s, err := d.Store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	s.Storyboard = sb
	if !saveSession(c, d, s) {
		return
	}
	d.Log.Log(s.ID, "Config updated: %d clip(s).", len(sb.Clips))
	c.JSON(http.StatusOK, gin.H{"clips": len(sb.Clips)})
}

func handleGetCaptions(c *gin.Context, d Deps) {
	s, ok := withStoryboard(c, d)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"captions": storyboard.Captions(s.Storyboard)})
}

// SetCaptionsRequest carries one caption per line, applied to clips in
// storyboard order.
type SetCaptionsRequest struct {
	Captions string `json:"captions"`
}

func handleSetCaptions(c *gin.Context, d Deps) {
	var req SetCaptionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s, ok := withStoryboard(c, d)
	if !ok {
		return
	}
	n := storyboard.SetCaptions(s.Storyboard, req.Captions)
	if !saveSession(c, d, s) {
		return
	}
	d.Log.Log(s.ID, "Captions updated for %d clip(s).", n)
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

// OverlayStyleRequest selects a rewrite style for all captions.
type OverlayStyleRequest struct {
	Style string `json:"style" binding:"required"`
}

func handleOverlayStyle(c *gin.Context, d Deps) {
	var req OverlayStyleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s, ok := withStoryboard(c, d)
	if !ok {
		return
	}

	// Rewrites are best effort per caption: a failed rewrite keeps the
	// original text rather than aborting the whole pass.
	rewritten := 0
	for i := range s.Storyboard.Clips {
		clip := &s.Storyboard.Clips[i]
		if clip.Text == "" {
			continue
		}
		out, err := d.Rewriter.Rewrite(c.Request.Context(), clip.Text, req.Style)
		if err != nil {
			d.Log.Log(s.ID, "Caption rewrite failed for %s: %v", clip.File, err)
			continue
		}
		clip.Text = out
		rewritten++
	}

	if !saveSession(c, d, s) {
		return
	}
	d.Log.Log(s.ID, "Overlay style %q applied to %d caption(s).", req.Style, rewritten)
	c.JSON(http.StatusOK, gin.H{"rewritten": rewritten, "captions": storyboard.Captions(s.Storyboard)})
}

type SetTTSRequest struct {
	Enabled bool   `json:"enabled"`
	Voice   string `json:"voice"`
}

func handleSetTTS(c *gin.Context, d Deps) {
	var req SetTTSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s, ok := withStoryboard(c, d)
	if !ok {
		return
	}
	storyboard.SetTTS(s.Storyboard, req.Enabled, req.Voice)
	if !saveSession(c, d, s) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"tts_enabled": s.Storyboard.Render.TTSEnabled, "tts_voice": s.Storyboard.Render.TTSVoice})
}

type SetCTARequest struct {
	Enabled   bool    `json:"enabled"`
	Text      *string `json:"text"`
	Voiceover *bool   `json:"voiceover"`
}

func handleSetCTA(c *gin.Context, d Deps) {
	var req SetCTARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s, ok := withStoryboard(c, d)
	if !ok {
		return
	}
	storyboard.SetCTA(s.Storyboard, req.Enabled, req.Text, req.Voiceover)
	if !saveSession(c, d, s) {
		return
	}
	c.JSON(http.StatusOK, s.Storyboard.CTA)
}

type SetFgScaleRequest struct {
	Scale float64 `json:"scale" binding:"required"`
}

func handleSetFgScale(c *gin.Context, d Deps) {
	var req SetFgScaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Scale <= 0 || req.Scale > 2.0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "scale must be in (0, 2]"})
		return
	}
	s, ok := withStoryboard(c, d)
	if !ok {
		return
	}
	storyboard.SetForegroundScale(s.Storyboard, req.Scale)
	if !saveSession(c, d, s) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"fg_scale": s.Storyboard.Render.FgScaleDefault})
}

func handleGetExportMode(c *gin.Context, d Deps) {
	s, err := d.Store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"export_mode": storyboard.ExportMode(s.Storyboard)})
}

type SetExportModeRequest struct {
	Mode string `json:"mode" binding:"required"`
}

func handleSetExportMode(c *gin.Context, d Deps) {
	var req SetExportModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s, ok := withStoryboard(c, d)
	if !ok {
		return
	}
	mode := storyboard.SetExportMode(s.Storyboard, req.Mode)
	if !saveSession(c, d, s) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"export_mode": mode})
}
