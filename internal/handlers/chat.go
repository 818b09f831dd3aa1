// Package handlers exposes the HTTP surface of the service.
package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"ideaforge/internal/agents"
	"ideaforge/internal/ai"
	"ideaforge/internal/extract"
	"ideaforge/internal/logging"
	"ideaforge/internal/metrics"
	"ideaforge/internal/project"
	"ideaforge/internal/repository"
)

// ChatRequest is the body of POST /v1/chat.
type ChatRequest struct {
	AgentType string                `json:"agent_type" binding:"required"`
	Message   string                `json:"message" binding:"required"`
	History   []agents.HistoryEntry `json:"history"`
	Model     string                `json:"model"`
	Streaming bool                  `json:"streaming"`
	ProjectID string                `json:"project_id"`
}

// ChatHandler dispatches chat requests to the registered stages and
// runs the per-stage persistence that follows a completed reply.
type ChatHandler struct {
	registry     *agents.Registry
	repo         *repository.ProjectRepository
	materializer *project.Materializer
}

// NewChatHandler wires the chat endpoint.
func NewChatHandler(registry *agents.Registry, repo *repository.ProjectRepository, m *project.Materializer) *ChatHandler {
	return &ChatHandler{registry: registry, repo: repo, materializer: m}
}

// Handle serves POST /v1/chat. Streaming replies go out as SSE data
// events; blocking replies as one JSON document.
func (h *ChatHandler) Handle(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	agent, err := h.registry.Get(req.AgentType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var projectID uuid.UUID
	if req.ProjectID != "" {
		projectID, err = uuid.Parse(req.ProjectID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project_id"})
			return
		}
	}

	in := &agents.ChatInput{
		Message:     req.Message,
		History:     req.History,
		Model:       req.Model,
		ProjectID:   req.ProjectID,
		BearerToken: bearerToken(c),
		Options: agents.Options{
			Streaming: req.Streaming,
			MaxTokens: agents.MaxOutputTokens,
		},
		OnComplete: h.completionHook(agent.Name(), projectID),
	}

	model := req.Model
	if model == "" {
		model = ai.DefaultModel
	}

	started := time.Now()
	reply, err := agent.Chat(c.Request.Context(), in)
	if err != nil {
		h.writeChatError(c, err)
		metrics.StageRequests.WithLabelValues(agent.Name(), model, "error").Inc()
		return
	}
	metrics.StageRequests.WithLabelValues(agent.Name(), model, "ok").Inc()
	defer metrics.StageDuration.WithLabelValues(agent.Name()).Observe(time.Since(started).Seconds())

	if reply.Streaming() {
		h.streamReply(c, reply)
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": reply.Text})
}

// streamReply forwards stream chunks as SSE until the stream ends or
// the client goes away. Closing the stream on disconnect lets the
// producer stop early while the teardown hook still runs.
func (h *ChatHandler) streamReply(c *gin.Context, reply *agents.Reply) {
	defer reply.Stream.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		chunk, err := reply.Stream.Recv()
		if errors.Is(err, io.EOF) {
			c.SSEvent("done", "")
			return false
		}
		if err != nil {
			c.SSEvent("error", err.Error())
			return false
		}
		c.SSEvent("message", chunk)
		return true
	})
}

// completionHook returns the persistence that runs when a stage's full
// reply is known: requirements are stored on the project record, and
// generator output is extracted and materialized into the archive. It
// runs on stream teardown as well, so an aborted consumer still
// persists, and uses a fresh context because the request's is gone by
// then.
func (h *ChatHandler) completionHook(stage string, projectID uuid.UUID) func(string) {
	if projectID == uuid.Nil || h.repo == nil {
		return nil
	}

	switch stage {
	case agents.StageBackendRequirements:
		return func(doc string) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := h.repo.SetRequirements(ctx, projectID, doc); err != nil {
				logging.L().Error("failed to persist requirements",
					zap.String("project_id", projectID.String()), zap.Error(err))
			}
		}
	case agents.StageProjectGenerator:
		return func(raw string) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			if err := h.materializeGenerated(ctx, projectID, raw); err != nil {
				logging.L().Error("failed to materialize generated project",
					zap.String("project_id", projectID.String()), zap.Error(err))
			}
		}
	default:
		return nil
	}
}

// materializeGenerated parses generator output and merges it into the
// project archive.
func (h *ChatHandler) materializeGenerated(ctx context.Context, projectID uuid.UUID, raw string) error {
	tree, err := extract.FileTree(raw)
	if err != nil {
		return err
	}

	p, err := h.repo.Get(ctx, projectID)
	if err != nil {
		return err
	}

	res, err := h.materializer.Materialize(ctx, p.S3Folder, tree)
	if err != nil {
		return err
	}
	return h.repo.SetArchive(ctx, projectID, res.PresignedURL)
}

// writeChatError maps stage errors to HTTP statuses.
func (h *ChatHandler) writeChatError(c *gin.Context, err error) {
	var (
		validation    *agents.ValidationError
		notRegistered *agents.NotRegisteredError
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &notRegistered):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
