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

// GeminiClient talks to the Google generative language API. Streaming
// calls go through streamClient, which carries no whole-body timeout.
type GeminiClient struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	streamClient *http.Client
	limiter      *rate.Limiter
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens  int    `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string `json:"responseMimeType,omitempty"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent          `json:"system_instruction,omitempty"`
	Contents          []geminiContent         `json:"contents"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewGeminiClient creates a Gemini client.
func NewGeminiClient(apiKey string, httpClient, streamClient *http.Client, limiter *rate.Limiter) *GeminiClient {
	return &GeminiClient{
		apiKey:       apiKey,
		baseURL:      "https://generativelanguage.googleapis.com/v1beta/models",
		httpClient:   httpClient,
		streamClient: streamClient,
		limiter:      limiter,
	}
}

// Provider returns the provider identifier.
func (c *GeminiClient) Provider() Provider {
	return ProviderGemini
}

// Complete implements the blocking call flavor.
func (c *GeminiClient) Complete(ctx context.Context, req *Request) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", c.baseURL, req.Model, c.apiKey)
	resp, err := c.do(ctx, c.httpClient, url, c.buildRequest(req))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("gemini api error: %s", parsed.Error.Message)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini response contained no candidates")
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

// Stream implements the streaming call flavor over SSE.
func (c *GeminiClient) Stream(ctx context.Context, req *Request) (*Stream, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s:streamGenerateContent?alt=sse&key=%s", c.baseURL, req.Model, c.apiKey)
	resp, err := c.do(ctx, c.streamClient, url, c.buildRequest(req))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("gemini stream failed with status %d: %s", resp.StatusCode, string(body))
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
			var chunk geminiResponse
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &chunk); err != nil {
				continue
			}
			if len(chunk.Candidates) > 0 {
				for _, part := range chunk.Candidates[0].Content.Parts {
					if part.Text != "" {
						if !stream.send(part.Text) {
							return
						}
					}
				}
			}
		}
		stream.finish(scanner.Err())
	}()
	return stream, nil
}

func (c *GeminiClient) buildRequest(req *Request) *geminiRequest {
	out := &geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: req.Prompt}}},
		},
	}
	if req.System != "" {
		out.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}
	if req.MaxTokens > 0 || req.JSONMode {
		out.GenerationConfig = &geminiGenerationConfig{MaxOutputTokens: req.MaxTokens}
		if req.JSONMode {
			out.GenerationConfig.ResponseMimeType = "application/json"
		}
	}
	return out
}

func (c *GeminiClient) do(ctx context.Context, client *http.Client, url string, req *geminiRequest) (*http.Response, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	return resp, nil
}

func (c *GeminiClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}
