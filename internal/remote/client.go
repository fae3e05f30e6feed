package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"taskdeck/internal/auth"
	"taskdeck/internal/task"
)

// Client talks to the taskdeck HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the API rooted at baseURL. A nil
// httpClient means a client without a request timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

func (c *Client) List(ctx context.Context, credential string) ([]task.Task, error) {
	var tasks []task.Task
	if err := c.do(ctx, http.MethodGet, "/api/tasks", credential, nil, &tasks); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (c *Client) Create(ctx context.Context, credential string, in task.CreateInput) (task.Task, error) {
	var resp struct {
		Message string     `json:"message"`
		Task    *task.Task `json:"task"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/tasks", credential, in, &resp); err != nil {
		return task.Task{}, fmt.Errorf("create task: %w", err)
	}
	if resp.Task == nil {
		return task.Task{}, fmt.Errorf("create task: %w: response carried no task", task.ErrStore)
	}
	return *resp.Task, nil
}

func (c *Client) Update(ctx context.Context, credential string, id int64, p task.Patch) error {
	if err := c.do(ctx, http.MethodPatch, taskPath(id), credential, p, nil); err != nil {
		return fmt.Errorf("update task %d: %w", id, err)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, credential string, id int64) error {
	if err := c.do(ctx, http.MethodDelete, taskPath(id), credential, nil, nil); err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	return nil
}

func (c *Client) Register(ctx context.Context, email, password string) (auth.Identity, error) {
	var id auth.Identity
	body := map[string]string{"email": email, "password": password}
	if err := c.send(ctx, http.MethodPost, "/api/auth/register", "", body, &id); err != nil {
		return auth.Identity{}, fmt.Errorf("register: %w", err)
	}
	return id, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (auth.TokenPair, error) {
	var pair auth.TokenPair
	body := map[string]string{"email": email, "password": password}
	if err := c.send(ctx, http.MethodPost, "/api/auth/login", "", body, &pair); err != nil {
		return auth.TokenPair{}, fmt.Errorf("login: %w", err)
	}
	return pair, nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error) {
	var pair auth.TokenPair
	body := map[string]string{"refresh_token": refreshToken}
	if err := c.send(ctx, http.MethodPost, "/api/auth/refresh", "", body, &pair); err != nil {
		return auth.TokenPair{}, fmt.Errorf("refresh: %w", err)
	}
	return pair, nil
}

func (c *Client) CurrentUser(ctx context.Context, credential string) (auth.Identity, error) {
	var id auth.Identity
	if err := c.do(ctx, http.MethodGet, "/api/me", credential, nil, &id); err != nil {
		return auth.Identity{}, fmt.Errorf("current user: %w", err)
	}
	return id, nil
}

// do sends an authenticated request. An empty credential fails without
// touching the network.
func (c *Client) do(ctx context.Context, method, path, credential string, body, out any) error {
	if credential == "" {
		return fmt.Errorf("%w: missing credential", task.ErrAuth)
	}
	return c.send(ctx, method, path, credential, body, out)
}

func (c *Client) send(ctx context.Context, method, path, credential string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: encode request: %w", task.ErrStore, err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: %w", task.ErrStore, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", task.ErrStore, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return statusError(resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %w", task.ErrStore, err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &payload); err != nil || payload.Error == "" {
		payload.Error = http.StatusText(resp.StatusCode)
	}
	msg := errors.New(payload.Error)

	switch resp.StatusCode {
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %w", task.ErrValidation, msg)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %w", task.ErrAuth, msg)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", task.ErrNotFound, msg)
	default:
		return fmt.Errorf("%w: status %d: %w", task.ErrStore, resp.StatusCode, msg)
	}
}

func taskPath(id int64) string {
	return "/api/tasks/" + strconv.FormatInt(id, 10)
}
