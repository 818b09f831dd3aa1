package ai

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientPoolBuildsConfiguredProviders(t *testing.T) {
	t.Parallel()

	pool := NewClientPool(PoolConfig{
		OpenAIKey: "sk-test",
		GeminiKey: "g-test",
	})

	_, err := pool.Get(ProviderOpenAI)
	assert.NoError(t, err)
	_, err = pool.Get(ProviderGemini)
	assert.NoError(t, err)
	_, err = pool.Get(ProviderAnthropic)
	assert.Error(t, err, "providers without a key are absent")
}

func TestNewClientPoolStreamClientHasNoBodyDeadline(t *testing.T) {
	t.Parallel()

	pool := NewClientPool(PoolConfig{OpenAIKey: "sk-test", Timeout: 30 * time.Second})

	client, err := pool.Get(ProviderOpenAI)
	require.NoError(t, err)
	oa, ok := client.(*OpenAIClient)
	require.True(t, ok)

	// Blocking calls are bounded end to end; streams are bounded only up
	// to the response headers, never across the body read.
	assert.Equal(t, 30*time.Second, oa.httpClient.Timeout)
	assert.Zero(t, oa.streamClient.Timeout)

	transport, ok := oa.streamClient.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, 30*time.Second, transport.ResponseHeaderTimeout)
}
