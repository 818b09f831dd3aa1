// Package agents implements the LLM pipeline stages that turn a project
// idea into a generated codebase: prompt enhancement, requirements
// building, and project generation.
package agents

import (
	"context"

	"ideaforge/internal/ai"
)

// Stage identifiers, used for registry lookup and on the chat endpoint.
const (
	StagePromptEnhancer      = "prompt_enhancer"
	StageBackendRequirements = "backend_requirements"
	StageProjectGenerator    = "project_generator"
)

// HistoryEntry is one prior turn of the conversation.
type HistoryEntry struct {
	Role    string `json:"role"` // "user" or "agent"
	Content string `json:"content"`
}

// Options carries per-request agent options.
type Options struct {
	Streaming bool `json:"streaming"`
	MaxTokens int  `json:"max_tokens,omitempty"`
}

// ChatInput is the common request shape every stage accepts.
type ChatInput struct {
	Message string
	History []HistoryEntry
	Model   string
	Options Options

	// ProjectID ties the conversation to a project record; forwarded to
	// stages that persist output.
	ProjectID string

	// BearerToken is the caller's credential, forwarded untouched.
	BearerToken string

	// OnComplete, when set on a streaming call, receives the full
	// concatenated response in a stream-teardown hook. It runs after the
	// provider stream ends, even if the consumer stopped reading.
	OnComplete func(full string)
}

// Reply is either one full text (blocking) or a fragment stream.
type Reply struct {
	Text   string
	Stream *ai.Stream
}

// Streaming reports which flavor this reply carries.
func (r *Reply) Streaming() bool {
	return r.Stream != nil
}

// Agent is one pipeline stage. Stages are stateless request/response
// specializations; retry policy, if any, belongs to the caller.
type Agent interface {
	Name() string
	Chat(ctx context.Context, in *ChatInput) (*Reply, error)
}
