package agents

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideaforge/internal/ai"
)

// recordingClient captures the last request so prompt assembly can be
// asserted.
type recordingClient struct {
	mu   sync.Mutex
	last *ai.Request
	text string
}

func (r *recordingClient) Provider() ai.Provider { return ai.ProviderOpenAI }

func (r *recordingClient) Complete(ctx context.Context, req *ai.Request) (string, error) {
	r.mu.Lock()
	r.last = req
	r.mu.Unlock()
	return r.text, nil
}

func (r *recordingClient) Stream(ctx context.Context, req *ai.Request) (*ai.Stream, error) {
	r.mu.Lock()
	r.last = req
	r.mu.Unlock()
	s := ai.NewStream()
	go func() {
		s.Send(r.text)
		s.Finish(nil)
	}()
	return s, nil
}

func (r *recordingClient) lastRequest() *ai.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func TestRequirementsBuilderPromptDefaults(t *testing.T) {
	t.Parallel()

	client := &recordingClient{text: "## Stack\nNode.js with Express"}
	stage := NewRequirementsBuilder(NewAsker(ai.NewClientPoolFromClients(client)))

	reply, err := stage.Chat(context.Background(), &ChatInput{Message: "a todo list backend"})
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "## Stack")

	req := client.lastRequest()
	require.NotNil(t, req)
	assert.False(t, req.JSONMode, "requirements output is structured text, never JSON")
	assert.Contains(t, req.System, "MongoDB")
	assert.Contains(t, req.System, "20 items")
	assert.Contains(t, req.System, "createdAt descending")
	assert.Contains(t, req.Prompt, "a todo list backend")
}

func TestGeneratorForcesJSONMode(t *testing.T) {
	t.Parallel()

	client := &recordingClient{text: `{"structure":[]}`}
	stage := NewProjectGenerator(NewAsker(ai.NewClientPoolFromClients(client)))

	_, err := stage.Chat(context.Background(), &ChatInput{Message: "## Stack\nExpress"})
	require.NoError(t, err)

	req := client.lastRequest()
	require.NotNil(t, req)
	assert.True(t, req.JSONMode)
	assert.Contains(t, req.System, "MongoDB is the DEFAULT choice")
	assert.Contains(t, req.System, `"structure"`)
}

func TestPromptEnhancerWrapsUserMessage(t *testing.T) {
	t.Parallel()

	client := &recordingClient{text: "An enhanced, specific prompt."}
	stage := NewPromptEnhancer(NewAsker(ai.NewClientPoolFromClients(client)))

	reply, err := stage.Chat(context.Background(), &ChatInput{
		Message: "make me an api",
		Options: Options{MaxTokens: 256},
	})
	require.NoError(t, err)
	assert.Equal(t, "An enhanced, specific prompt.", reply.Text)

	req := client.lastRequest()
	require.NotNil(t, req)
	assert.Contains(t, req.Prompt, "make me an api")
	assert.NotContains(t, req.System, "{{max_tokens}}", "placeholder must be substituted")
}

func TestStageNames(t *testing.T) {
	t.Parallel()

	asker := NewAsker(ai.NewClientPoolFromClients(&recordingClient{}))
	assert.Equal(t, "prompt_enhancer", NewPromptEnhancer(asker).Name())
	assert.Equal(t, "backend_requirements", NewRequirementsBuilder(asker).Name())
	assert.Equal(t, "project_generator", NewProjectGenerator(asker).Name())
}
