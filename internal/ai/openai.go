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

// OpenAIClient talks to the OpenAI chat completions API. Streaming
// calls go through streamClient, which carries no whole-body timeout.
type OpenAIClient struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	streamClient *http.Client
	limiter      *rate.Limiter
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponseFormat struct {
	Type string `json:"type"`
}

type openAIRequest struct {
	Model          string                `json:"model"`
	Messages       []openAIMessage       `json:"messages"`
	MaxTokens      int                   `json:"max_tokens,omitempty"`
	Stream         bool                  `json:"stream,omitempty"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type openAIStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// NewOpenAIClient creates an OpenAI client.
func NewOpenAIClient(apiKey string, httpClient, streamClient *http.Client, limiter *rate.Limiter) *OpenAIClient {
	return &OpenAIClient{
		apiKey:       apiKey,
		baseURL:      "https://api.openai.com/v1/chat/completions",
		httpClient:   httpClient,
		streamClient: streamClient,
		limiter:      limiter,
	}
}

// Provider returns the provider identifier.
func (c *OpenAIClient) Provider() Provider {
	return ProviderOpenAI
}

// Complete implements the blocking call flavor.
func (c *OpenAIClient) Complete(ctx context.Context, req *Request) (string, error) {
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
		return "", fmt.Errorf("openai request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var parsed openAIResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("openai api error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("openai response contained no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// Stream implements the streaming call flavor over SSE.
func (c *OpenAIClient) Stream(ctx context.Context, req *Request) (*Stream, error) {
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
		return nil, fmt.Errorf("openai stream failed with status %d: %s", resp.StatusCode, string(body))
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
			payload := strings.TrimPrefix(line, "data: ")
			if payload == "[DONE]" {
				break
			}
			var chunk openAIStreamChunk
			if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
				continue
			}
			if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
				if !stream.send(chunk.Choices[0].Delta.Content) {
					return
				}
			}
		}
		stream.finish(scanner.Err())
	}()
	return stream, nil
}

func (c *OpenAIClient) buildRequest(req *Request, streaming bool) *openAIRequest {
	out := &openAIRequest{
		Model: req.Model,
		Messages: []openAIMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.Prompt},
		},
		MaxTokens: req.MaxTokens,
		Stream:    streaming,
	}
	if req.JSONMode {
		out.ResponseFormat = &openAIResponseFormat{Type: "json_object"}
	}
	return out
}

func (c *OpenAIClient) do(ctx context.Context, client *http.Client, req *openAIRequest) (*http.Response, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	return resp, nil
}

func (c *OpenAIClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}
