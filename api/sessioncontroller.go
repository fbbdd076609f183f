package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"reelforge/session"
	"reelforge/types"
)

// RegisterSessionRoutes registers session lifecycle endpoints.
func RegisterSessionRoutes(r *gin.Engine, d Deps) {
	g := r.Group("/api/sessions/:id")
	g.GET("", func(c *gin.Context) { handleGetSession(c, d) })
	g.DELETE("", func(c *gin.Context) { handleDeleteSession(c, d) })
	g.POST("/files", func(c *gin.Context) { handleRegisterFiles(c, d) })
	g.GET("/status", func(c *gin.Context) { handleStatusLog(c, d) })
}

// RegisterFilesRequest registers uploaded clips with their raw durations.
type RegisterFilesRequest struct {
	Files []types.FileRef `json:"files" binding:"required"`
}

func handleGetSession(c *gin.Context, d Deps) {
	s, err := d.Store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func handleRegisterFiles(c *gin.Context, d Deps) {
	var req RegisterFilesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s, err := d.Store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	// Re-registering a file updates its duration; new files append in
	// request order. File names are lowercased like the upload pipeline.
	for _, f := range req.Files {
		f.Name = strings.ToLower(strings.TrimSpace(f.Name))
		if f.Name == "" {
			continue
		}
		updated := false
		for i := range s.Files {
			if s.Files[i].Name == f.Name {
				s.Files[i].Duration = f.Duration
				updated = true
				break
			}
		}
		if !updated {
			s.Files = append(s.Files, f)
		}
	}

	if err := d.Store.Put(c.Request.Context(), s); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": s.Files})
}

func handleDeleteSession(c *gin.Context, d Deps) {
	force := strings.EqualFold(c.Query("force"), "true")
	if err := d.Store.Delete(c.Request.Context(), c.Param("id"), force); err != nil {
		abortWithError(c, err)
		return
	}
	if clean, err := session.SanitizeID(c.Param("id")); err == nil {
		d.Log.Drop(clean)
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func handleStatusLog(c *gin.Context, d Deps) {
	clean, err := session.SanitizeID(c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"log": d.Log.Lines(clean)})
}
