package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ideaforge/internal/buildmachine"
)

// BuildHandler serves the build-machine endpoints.
type BuildHandler struct {
	orchestrator *buildmachine.Orchestrator
	runner       buildmachine.Runner
}

// NewBuildHandler wires the build endpoints.
func NewBuildHandler(orch *buildmachine.Orchestrator, runner buildmachine.Runner) *BuildHandler {
	return &BuildHandler{orchestrator: orch, runner: runner}
}

// Build serves POST /project-build: it runs the full pipeline
// synchronously and returns the deploy outcome. Failures come back as
// {"status": "error", "message": ...} so callers never have to parse
// CLI noise.
func (h *BuildHandler) Build(c *gin.Context) {
	var job buildmachine.Job
	if err := c.ShouldBindJSON(&job); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}
	job.BearerToken = bearerToken(c)

	out, err := h.orchestrator.Run(c.Request.Context(), &job)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":         "success",
		"deployment_url": out.DeploymentURL,
		"database_uri":   out.DatabaseURI,
	})
}

// Login serves POST /genezio-login: a cheap probe that the configured
// infra token still works, run before accepting build traffic.
func (h *BuildHandler) Login(c *gin.Context) {
	stdout, stderr, err := h.runner.Run(c.Request.Context(), "/tmp", "account")
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "message": strings.TrimSpace(stderr)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "account": strings.TrimSpace(stdout)})
}

func bearerToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	return strings.TrimPrefix(auth, "Bearer ")
}
