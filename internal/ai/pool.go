package ai

import (
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// PoolConfig configures the client pool. A provider with an empty key is
// simply absent from the pool.
type PoolConfig struct {
	OpenAIKey    string
	AnthropicKey string
	GeminiKey    string

	// Timeout bounds blocking calls end to end, and streaming calls only
	// up to the first response headers.
	Timeout time.Duration

	// RateLimits holds requests-per-minute caps per provider. Zero means
	// the built-in default for that provider.
	RateLimits map[Provider]int
}

// defaultRateLimits are requests per minute per provider.
var defaultRateLimits = map[Provider]int{
	ProviderOpenAI:    80,
	ProviderAnthropic: 100,
	ProviderGemini:    120,
}

// ClientPool holds one configured client per provider. Built once at
// startup; handles are reusable across concurrent calls with no per-call
// mutation.
type ClientPool struct {
	clients map[Provider]Client
}

// NewClientPool builds clients for every provider with a configured key.
func NewClientPool(cfg PoolConfig) *ClientPool {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}

	// Streams must not carry a whole-body deadline: http.Client.Timeout
	// covers the entire body read and would cut long generations off
	// mid-stream. The stream client bounds only the time to first
	// response headers; body lifetime is the caller's context.
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = timeout
	streamClient := &http.Client{Transport: transport}

	limiter := func(p Provider) *rate.Limiter {
		rpm := cfg.RateLimits[p]
		if rpm == 0 {
			rpm = defaultRateLimits[p]
		}
		return rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm)
	}

	clients := make(map[Provider]Client)
	if cfg.OpenAIKey != "" {
		clients[ProviderOpenAI] = NewOpenAIClient(cfg.OpenAIKey, httpClient, streamClient, limiter(ProviderOpenAI))
	}
	if cfg.AnthropicKey != "" {
		clients[ProviderAnthropic] = NewAnthropicClient(cfg.AnthropicKey, httpClient, streamClient, limiter(ProviderAnthropic))
	}
	if cfg.GeminiKey != "" {
		clients[ProviderGemini] = NewGeminiClient(cfg.GeminiKey, httpClient, streamClient, limiter(ProviderGemini))
	}

	return &ClientPool{clients: clients}
}

// NewClientPoolFromClients builds a pool over pre-built clients. Used by
// tests to inject fakes.
func NewClientPoolFromClients(clients ...Client) *ClientPool {
	m := make(map[Provider]Client, len(clients))
	for _, c := range clients {
		m[c.Provider()] = c
	}
	return &ClientPool{clients: m}
}

// Get returns the configured client for a provider.
func (p *ClientPool) Get(provider Provider) (Client, error) {
	client, ok := p.clients[provider]
	if !ok {
		return nil, fmt.Errorf("no client configured for provider: %s", provider)
	}
	return client, nil
}

// Providers lists the providers the pool was configured with.
func (p *ClientPool) Providers() []Provider {
	out := make([]Provider, 0, len(p.clients))
	for provider := range p.clients {
		out = append(out, provider)
	}
	return out
}
