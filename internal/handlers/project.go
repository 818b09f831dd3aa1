package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"ideaforge/internal/models"
	"ideaforge/internal/namegen"
	"ideaforge/internal/repository"
)

// CreateProjectRequest is the body of POST /v1/project.
type CreateProjectRequest struct {
	Idea     string `json:"idea" binding:"required"`
	Name     string `json:"name"`
	IsPublic bool   `json:"is_public"`
}

// ProjectHandler serves project record CRUD and deployment updates.
type ProjectHandler struct {
	repo  *repository.ProjectRepository
	names *namegen.Generator
}

// NewProjectHandler wires the project endpoints.
func NewProjectHandler(repo *repository.ProjectRepository, names *namegen.Generator) *ProjectHandler {
	return &ProjectHandler{repo: repo, names: names}
}

// Create serves POST /v1/project.
func (h *ProjectHandler) Create(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Name != "" && !namegen.Valid(req.Name) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "project name must be lowercase words joined by hyphens"})
		return
	}
	if req.Name == "" {
		req.Name = h.names.Next()
	}

	p := &models.Project{
		UserID:       callerID(c),
		Idea:         req.Idea,
		Name:         req.Name,
		IsPublic:     req.IsPublic,
		DatabaseName: req.Name + "-db",
	}
	if err := h.repo.Create(c.Request.Context(), p); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, p)
}

// Get serves GET /v1/project/:id.
func (h *ProjectHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	p, err := h.repo.Get(c.Request.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !p.IsPublic && p.UserID != callerID(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

// List serves GET /v1/projects.
func (h *ProjectHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	projects, err := h.repo.List(c.Request.Context(), callerID(c), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

// Delete serves DELETE /v1/project/:id.
func (h *ProjectHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	err = h.repo.SoftDelete(c.Request.Context(), id, callerID(c))
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdateDeployment serves PUT /v1/project/update/:id/deployment-url,
// the callback the build machine hits after a deploy.
func (h *ProjectHandler) UpdateDeployment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	var upd models.DeploymentUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if upd.DeploymentURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "deployment_url is required"})
		return
	}

	err = h.repo.UpdateDeployment(c.Request.Context(), id, &upd)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

// callerID identifies the requesting user. Identity arrives from the
// fronting gateway in X-User-ID; anonymous callers share one bucket.
func callerID(c *gin.Context) string {
	if id := c.GetHeader("X-User-ID"); id != "" {
		return id
	}
	return "anonymous"
}
