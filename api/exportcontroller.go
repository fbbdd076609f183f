package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"reelforge/types"
)

// RegisterExportRoutes registers export task submission and polling.
func RegisterExportRoutes(r *gin.Engine, d Deps) {
	r.POST("/api/sessions/:id/export", func(c *gin.Context) { handleStartExport(c, d) })
	r.GET("/api/exports/:task_id", func(c *gin.Context) { handleExportStatus(c, d) })
	r.POST("/api/exports/:task_id/cancel", func(c *gin.Context) { handleCancelExport(c, d) })
}

// StartExportRequest tunes one export run. Optimized trades quality for
// encode speed; Publish pushes the finished video to YouTube when an
// uploader is configured.
type StartExportRequest struct {
	Optimized bool   `json:"optimized"`
	Publish   bool   `json:"publish"`
	Filename  string `json:"filename"`
}

func handleStartExport(c *gin.Context, d Deps) {
	var req StartExportRequest
	// An empty body means default options.
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	taskID, err := d.Scheduler.Start(c.Request.Context(), c.Param("id"), types.ExportOptions{
		Optimized: req.Optimized,
		Publish:   req.Publish,
		Filename:  req.Filename,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"task_id": taskID})
}

func handleExportStatus(c *gin.Context, d Deps) {
	task, err := d.Scheduler.Status(c.Param("task_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func handleCancelExport(c *gin.Context, d Deps) {
	accepted, err := d.Scheduler.Cancel(c.Param("task_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accepted": accepted})
}
