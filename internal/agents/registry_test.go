package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAgent struct{ name string }

func (s *stubAgent) Name() string { return s.name }

func (s *stubAgent) Chat(ctx context.Context, in *ChatInput) (*Reply, error) {
	return &Reply{Text: "stub"}, nil
}

func TestRegistryGet(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register(&stubAgent{name: StagePromptEnhancer})
	r.Register(&stubAgent{name: StageProjectGenerator})

	agent, err := r.Get(StagePromptEnhancer)
	require.NoError(t, err)
	assert.Equal(t, StagePromptEnhancer, agent.Name())
}

func TestRegistryGetUnknownListsAvailable(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register(&stubAgent{name: StageBackendRequirements})
	r.Register(&stubAgent{name: StagePromptEnhancer})

	_, err := r.Get("code_reviewer")
	require.Error(t, err)

	var notRegistered *NotRegisteredError
	require.ErrorAs(t, err, &notRegistered)
	assert.Equal(t, "code_reviewer", notRegistered.Name)
	// Sorted, so error text is stable across runs.
	assert.Equal(t, []string{StageBackendRequirements, StagePromptEnhancer}, notRegistered.Available)
	assert.Equal(t,
		"invalid agent type: code_reviewer. Available types: [backend_requirements, prompt_enhancer]",
		err.Error())
}

func TestRegistryRegisterReplaces(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register(&stubAgent{name: StagePromptEnhancer})
	replacement := &stubAgent{name: StagePromptEnhancer}
	r.Register(replacement)

	agent, err := r.Get(StagePromptEnhancer)
	require.NoError(t, err)
	assert.Same(t, replacement, agent)
	assert.Len(t, r.Available(), 1)
}
