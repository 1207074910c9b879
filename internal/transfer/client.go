package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/skylift/uploader/internal/upload"
)

// Client talks to the planning/completion API over HTTP+JSON. It satisfies
// Completer and Aborter, so an Orchestrator can finalize uploads through it.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an API client for the server at baseURL. A nil httpClient
// falls back to http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Plan requests an upload plan for the described file.
func (c *Client) Plan(ctx context.Context, req *upload.UploadRequest) (*upload.UploadPlan, error) {
	var plan upload.UploadPlan
	if err := c.post(ctx, "/upload/plan", req, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// Complete submits the part receipts and returns the finalized object.
func (c *Client) Complete(ctx context.Context, req *upload.CompleteRequest) (*upload.CompleteResult, error) {
	var result upload.CompleteResult
	if err := c.post(ctx, "/upload/complete", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Abort releases an unfinished multipart session.
func (c *Client) Abort(ctx context.Context, req *upload.AbortRequest) error {
	return c.post(ctx, "/upload/abort", req, nil)
}

// post sends one JSON request and decodes the response into out (skipped when
// out is nil). Non-2xx responses are reported with the server's error message
// when one is present.
func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("server returned %s: %s", resp.Status, apiErr.Error)
		}
		return fmt.Errorf("server returned %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
