package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/linskybing/zeera/pkg/response"
)

var startedAt = time.Now()

// Health godoc
// @Summary Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} map[string]any
// @Router /health [get]
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"uptime":    time.Since(startedAt).Round(time.Second).String(),
		"timestamp": time.Now().UTC(),
	})
}

// NotFound answers unknown routes with the error envelope.
func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, response.ErrorResponse{
		StatusCode: http.StatusNotFound,
		Error:      "route " + c.Request.Method + " " + c.Request.URL.Path + " not found",
	})
}
