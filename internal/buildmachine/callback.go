package buildmachine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
)

// CoreAPIClient reports finished deployments back to the core service.
type CoreAPIClient struct {
	baseURL string
	client  *http.Client
}

// NewCoreAPIClient builds a callback client for the core API base URL.
func NewCoreAPIClient(baseURL string, client *http.Client) *CoreAPIClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &CoreAPIClient{baseURL: baseURL, client: client}
}

// ReportDeployment PUTs the deploy outcome to the project update
// endpoint, authenticated with the job's bearer token.
func (c *CoreAPIClient) ReportDeployment(ctx context.Context, projectID uuid.UUID, bearer string, out *Outcome) error {
	body, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to encode deployment report: %w", err)
	}

	url := fmt.Sprintf("%s/v1/project/update/%s/deployment-url", c.baseURL, projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("deployment callback failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("deployment callback returned %d: %s", resp.StatusCode, msg)
	}
	return nil
}
