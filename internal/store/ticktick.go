package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/quadtask/quadtask/internal/models"
	"golang.org/x/oauth2"
)

// Client talks to the TickTick-backed task service over HTTP. Authentication
// uses the OAuth2 token negotiated during TickTick account linking; the
// oauth2 transport refreshes it transparently.
type Client struct {
	baseURL string
	http    *http.Client
}

// OAuthEndpoint returns the TickTick OAuth2 endpoint configuration.
func OAuthEndpoint() oauth2.Endpoint {
	return oauth2.Endpoint{
		AuthURL:  "https://ticktick.com/oauth/authorize",
		TokenURL: "https://ticktick.com/oauth/token",
	}
}

// NewClient creates a task service client. token carries the stored OAuth2
// credentials; oauthCfg is used to refresh it when expired.
func NewClient(baseURL string, oauthCfg *oauth2.Config, token *oauth2.Token) *Client {
	httpClient := oauthCfg.Client(context.Background(), token)
	httpClient.Timeout = 30 * time.Second
	return &Client{baseURL: baseURL, http: httpClient}
}

// NewClientWithHTTP creates a client over a caller-supplied HTTP client.
// Tests use this to point the store at an httptest server.
func NewClientWithHTTP(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

type setQuadrantRequest struct {
	Quadrant  *models.Quadrant `json:"quadrant,omitempty"`
	Reason    string           `json:"reason,omitempty"`
	Source    string           `json:"source,omitempty"`
	ResetToAI bool             `json:"reset_to_ai,omitempty"`
}

type reorderRequest struct {
	TaskIDs []string `json:"task_ids"`
}

type taskListResponse struct {
	Tasks []*models.Task `json:"tasks"`
}

// Fetch returns the user's open tasks.
func (c *Client) Fetch(ctx context.Context, userID uuid.UUID) ([]*models.Task, error) {
	path := fmt.Sprintf("/api/v1/users/%s/tasks?status=open", url.PathEscape(userID.String()))
	var resp taskListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch tasks: %w", err)
	}
	return resp.Tasks, nil
}

// FetchTask returns a single task by id.
func (c *Client) FetchTask(ctx context.Context, userID uuid.UUID, taskID string) (*models.Task, error) {
	path := fmt.Sprintf("/api/v1/users/%s/tasks/%s",
		url.PathEscape(userID.String()), url.PathEscape(taskID))
	var task models.Task
	if err := c.do(ctx, http.MethodGet, path, nil, &task); err != nil {
		return nil, fmt.Errorf("failed to fetch task: %w", err)
	}
	return &task, nil
}

// SetAIQuadrant records the AI-suggested quadrant on a task. Classification
// never touches the user's override; precedence is resolved at read time.
func (c *Client) SetAIQuadrant(ctx context.Context, userID uuid.UUID, taskID string, q models.Quadrant) (*models.Task, error) {
	path := fmt.Sprintf("/api/v1/users/%s/tasks/%s/ai-quadrant",
		url.PathEscape(userID.String()), url.PathEscape(taskID))
	req := setQuadrantRequest{Quadrant: &q}
	var task models.Task
	if err := c.do(ctx, http.MethodPatch, path, req, &task); err != nil {
		return nil, fmt.Errorf("failed to set ai quadrant: %w", err)
	}
	return &task, nil
}

// SetQuadrant sets the manual override quadrant on a task.
func (c *Client) SetQuadrant(ctx context.Context, userID uuid.UUID, taskID string, q models.Quadrant, reason, source string) (*models.Task, error) {
	path := fmt.Sprintf("/api/v1/users/%s/tasks/%s/quadrant",
		url.PathEscape(userID.String()), url.PathEscape(taskID))
	req := setQuadrantRequest{Quadrant: &q, Reason: reason, Source: source}
	var task models.Task
	if err := c.do(ctx, http.MethodPatch, path, req, &task); err != nil {
		return nil, fmt.Errorf("failed to set quadrant: %w", err)
	}
	return &task, nil
}

// ResetQuadrant clears the manual override and returns the updated task.
func (c *Client) ResetQuadrant(ctx context.Context, userID uuid.UUID, taskID string) (*models.Task, error) {
	path := fmt.Sprintf("/api/v1/users/%s/tasks/%s/quadrant",
		url.PathEscape(userID.String()), url.PathEscape(taskID))
	req := setQuadrantRequest{ResetToAI: true}
	var task models.Task
	if err := c.do(ctx, http.MethodPatch, path, req, &task); err != nil {
		return nil, fmt.Errorf("failed to reset quadrant: %w", err)
	}
	return &task, nil
}

// Reorder persists the full ordered id list for one bucket.
func (c *Client) Reorder(ctx context.Context, userID uuid.UUID, q models.Quadrant, orderedIDs []string) error {
	path := fmt.Sprintf("/api/v1/users/%s/quadrants/%s/order",
		url.PathEscape(userID.String()), url.PathEscape(q.String()))
	if err := c.do(ctx, http.MethodPut, path, reorderRequest{TaskIDs: orderedIDs}, nil); err != nil {
		return fmt.Errorf("failed to reorder quadrant %s: %w", q, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &HTTPError{StatusCode: resp.StatusCode, Message: string(bytes.TrimSpace(msg))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
