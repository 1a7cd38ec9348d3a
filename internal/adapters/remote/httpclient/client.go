// Package httpclient implements the engine task store over the REST API.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hylla/stageboard/internal/adapters/server/common"
	"github.com/hylla/stageboard/internal/app"
	"github.com/hylla/stageboard/internal/domain"
)

// DefaultTimeout bounds one request when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// ErrRemote reports a non-success response without a more specific mapping.
var ErrRemote = errors.New("remote store error")

// Config captures remote store connection settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the default client; tests pass the httptest client.
	HTTPClient *http.Client
}

// Client talks to a stageboard REST API mounted at BaseURL.
type Client struct {
	base *url.URL
	http *http.Client
}

// New validates cfg and constructs a client.
func New(cfg Config) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, fmt.Errorf("base url is required")
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", raw, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url %q must use http or https", raw)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	copied := *client
	copied.Timeout = timeout
	return &Client{base: base, http: &copied}, nil
}

// ListTasks returns every task on one board in display order.
func (c *Client) ListTasks(ctx context.Context, scope string) ([]domain.TaskRecord, error) {
	var out struct {
		Tasks []domain.TaskRecord `json:"tasks"`
	}
	if err := c.do(ctx, http.MethodGet, "boards/"+url.PathEscape(scope)+"/tasks", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("list tasks %q: %w", scope, err)
	}
	if out.Tasks == nil {
		out.Tasks = []domain.TaskRecord{}
	}
	return out.Tasks, nil
}

// UpdateStatus moves one task to the given status label.
func (c *Client) UpdateStatus(ctx context.Context, itemID, status string) error {
	body := common.UpdateStatusRequest{Status: status}
	if err := c.do(ctx, http.MethodPost, "tasks/"+url.PathEscape(itemID)+"/status", nil, body, nil); err != nil {
		return fmt.Errorf("update status %q: %w", itemID, err)
	}
	return nil
}

// CreateTask creates one task on a board.
func (c *Client) CreateTask(ctx context.Context, scope string, in common.CreateTaskRequest) (domain.TaskRecord, error) {
	var out domain.TaskRecord
	if err := c.do(ctx, http.MethodPost, "boards/"+url.PathEscape(scope)+"/tasks", nil, in, &out); err != nil {
		return domain.TaskRecord{}, fmt.Errorf("create task: %w", err)
	}
	return out, nil
}

// ListStages returns the server's configured stages.
func (c *Client) ListStages(ctx context.Context) ([]common.StageInfo, error) {
	var out struct {
		Stages []common.StageInfo `json:"stages"`
	}
	if err := c.do(ctx, http.MethodGet, "stages", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	return out.Stages, nil
}

// ListStatusEvents returns status history for one task, newest first.
func (c *Client) ListStatusEvents(ctx context.Context, taskID string, limit int) ([]common.StatusEvent, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var out struct {
		Events []common.StatusEvent `json:"events"`
	}
	if err := c.do(ctx, http.MethodGet, "tasks/"+url.PathEscape(taskID)+"/events", query, nil, &out); err != nil {
		return nil, fmt.Errorf("list status events %q: %w", taskID, err)
	}
	return out.Events, nil
}

// do performs one JSON round trip and maps error envelopes onto app errors.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	target := *c.base
	target.Path = strings.TrimRight(c.base.Path, "/") + "/" + path
	target.RawPath = ""
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeError turns one structured error envelope into a wrapped sentinel.
func decodeError(resp *http.Response) error {
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	message := strings.TrimSpace(string(raw))
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Code != "" {
		message = envelope.Error.Code + ": " + envelope.Error.Message
	}
	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", message, app.ErrNotFound)
	case http.StatusUnprocessableEntity, http.StatusBadRequest:
		return fmt.Errorf("%s: %w", message, app.ErrInvalidStatus)
	default:
		return fmt.Errorf("status %d: %s: %w", resp.StatusCode, message, ErrRemote)
	}
}
