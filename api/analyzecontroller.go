package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterAnalyzeRoutes registers the stepwise analysis endpoints.
func RegisterAnalyzeRoutes(r *gin.Engine, d Deps) {
	g := r.Group("/api/sessions/:id/analyze")
	g.POST("/start", func(c *gin.Context) { handleAnalyzeStart(c, d) })
	g.POST("/step", func(c *gin.Context) { handleAnalyzeStep(c, d) })
	g.POST("/run", func(c *gin.Context) { handleAnalyzeRun(c, d) })
	g.GET("/status", func(c *gin.Context) { handleAnalyzeStatus(c, d) })
	g.GET("/results", func(c *gin.Context) { handleAnalyzeResults(c, d) })
}

func handleAnalyzeStart(c *gin.Context, d Deps) {
	prog, err := d.Processor.Start(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, prog)
}

func handleAnalyzeStep(c *gin.Context, d Deps) {
	prog, err := d.Processor.Step(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, prog)
}

// handleAnalyzeRun drains the whole queue in one request. Handy for small
// sessions and the demo client; big sessions should step instead.
func handleAnalyzeRun(c *gin.Context, d Deps) {
	prog, err := d.Processor.RunAll(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, prog)
}

func handleAnalyzeStatus(c *gin.Context, d Deps) {
	c.JSON(http.StatusOK, d.Processor.Status(c.Param("id")))
}

func handleAnalyzeResults(c *gin.Context, d Deps) {
	results, err := d.Processor.Results(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"descriptions": results})
}
