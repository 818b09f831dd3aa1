package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/time/rate"
)

// anthropicDefaultMaxTokens is used when a request does not bound its
// output; the messages API requires an explicit cap.
const anthropicDefaultMaxTokens = 2048

// AnthropicClient talks to the Anthropic messages API. Streaming calls
// go through streamClient, which carries no whole-body timeout.
type AnthropicClient struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	streamClient *http.Client
	limiter      *rate.Limiter
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
	Stream    bool               `json:"stream,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type anthropicStreamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
}

// NewAnthropicClient creates an Anthropic client.
func NewAnthropicClient(apiKey string, httpClient, streamClient *http.Client, limiter *rate.Limiter) *AnthropicClient {
	return &AnthropicClient{
		apiKey:       apiKey,
		baseURL:      "https://api.anthropic.com/v1/messages",
		httpClient:   httpClient,
		streamClient: streamClient,
		limiter:      limiter,
	}
}

// Provider returns the provider identifier.
func (c *AnthropicClient) Provider() Provider {
	return ProviderAnthropic
}

// Complete implements the blocking call flavor.
func (c *AnthropicClient) Complete(ctx context.Context, req *Request) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}

	resp, err := c.do(ctx, c.httpClient, c.buildRequest(req, false))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("anthropic request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("anthropic api error: %s", parsed.Error.Message)
	}
	if len(parsed.Content) == 0 || parsed.Content[0].Type != "text" {
		return "", fmt.Errorf("anthropic response contained no text content")
	}
	return parsed.Content[0].Text, nil
}

// Stream implements the streaming call flavor over SSE.
func (c *AnthropicClient) Stream(ctx context.Context, req *Request) (*Stream, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, c.streamClient, c.buildRequest(req, true))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("anthropic stream failed with status %d: %s", resp.StatusCode, string(body))
	}

	stream := newStream()
	go func() {
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var event anthropicStreamEvent
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
				continue
			}
			switch event.Type {
			case "content_block_delta":
				if event.Delta.Text != "" {
					if !stream.send(event.Delta.Text) {
						return
					}
				}
			case "message_stop":
				stream.finish(nil)
				return
			}
		}
		stream.finish(scanner.Err())
	}()
	return stream, nil
}

func (c *AnthropicClient) buildRequest(req *Request, streaming bool) *anthropicRequest {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = anthropicDefaultMaxTokens
	}
	// No forced-JSON flag on this API; JSONMode requests rely on the
	// system prompt alone.
	return &anthropicRequest{
		Model:     req.Model,
		MaxTokens: maxTokens,
		System:    req.System,
		Messages: []anthropicMessage{
			{Role: "user", Content: req.Prompt},
		},
		Stream: streaming,
	}
}

func (c *AnthropicClient) do(ctx context.Context, client *http.Client, req *anthropicRequest) (*http.Response, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	return resp, nil
}

func (c *AnthropicClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}
