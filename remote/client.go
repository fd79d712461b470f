// Package remote is the board's sync adapter. It talks to the kanban
// server over HTTP, maps tasks to and from the server's row shape and
// keeps track of the signed-in session.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/CrowderSoup/kanban/board"
)

// ErrNotAuthenticated is returned by owner-scoped calls without a session.
var ErrNotAuthenticated = errors.New("not authenticated")

// ErrSessionExpired is returned when sign in yields a session that is
// already past its expiry on this machine.
var ErrSessionExpired = errors.New("session expired")

// Config points the adapter at a server. Both URL and Key are needed;
// without them the board runs local-only.
type Config struct {
	URL        string
	Key        string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Enabled reports whether the remote is configured.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.URL) != "" && strings.TrimSpace(c.Key) != ""
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("remote: %d: %s", e.Status, e.Message)
}

// UserMessage is the text suitable for showing to a user.
func (e *APIError) UserMessage() string {
	return e.Message
}

// transport carries the shared HTTP plumbing of Client and Auth.
type transport struct {
	base string
	key  string
	http *http.Client
	log  zerolog.Logger
}

func newTransport(cfg Config) *transport {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	return &transport{
		base: strings.TrimRight(cfg.URL, "/"),
		key:  cfg.Key,
		http: hc,
		log:  cfg.Logger,
	}
}

// do sends body as JSON and decodes the response into out when non-nil.
func (t *transport) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.base+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("apikey", t.key)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := t.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	t.log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Msg("remote call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var payload struct {
		Message string `json:"message"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &payload); err != nil || payload.Message == "" {
		payload.Message = strings.TrimSpace(string(data))
	}
	if payload.Message == "" {
		payload.Message = http.StatusText(resp.StatusCode)
	}
	return &APIError{Status: resp.StatusCode, Message: payload.Message}
}

// wsURL turns the base URL into the websocket endpoint.
func (t *transport) wsURL(path string, query url.Values) (string, error) {
	u, err := url.Parse(t.base + path)
	if err != nil {
		return "", fmt.Errorf("invalid remote url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.RawQuery = query.Encode()
	return u.String(), nil
}

// Client implements board.Remote against the kanban server. Every call
// is scoped to the user of the current session.
type Client struct {
	t    *transport
	auth *Auth
}

var _ board.Remote = (*Client)(nil)

// New creates a Client that authenticates through auth.
func New(cfg Config, auth *Auth) *Client {
	return &Client{t: newTransport(cfg), auth: auth}
}

func (c *Client) session() (*Session, error) {
	s := c.auth.Current()
	if s == nil {
		return nil, ErrNotAuthenticated
	}
	return s, nil
}

// GetTasks returns the user's tasks ordered by order.
func (c *Client) GetTasks(ctx context.Context) ([]board.Task, error) {
	s, err := c.session()
	if err != nil {
		return nil, err
	}
	var rows []Row
	if err := c.t.do(ctx, http.MethodGet, "/api/tasks", s.AccessToken, nil, &rows); err != nil {
		return nil, err
	}
	tasks := make([]board.Task, 0, len(rows))
	for _, r := range rows {
		tasks = append(tasks, FromRow(r))
	}
	return tasks, nil
}

// CreateTask inserts task stamped with the current user and returns the
// persisted version. A task without an id gets a fresh one from the server.
func (c *Client) CreateTask(ctx context.Context, task board.Task) (board.Task, error) {
	s, err := c.session()
	if err != nil {
		return board.Task{}, err
	}
	row := ToRow(task)
	row.UserID = s.User.ID
	row.CreatedAt, row.UpdatedAt = nil, nil

	var created Row
	if err := c.t.do(ctx, http.MethodPost, "/api/tasks", s.AccessToken, row, &created); err != nil {
		return board.Task{}, err
	}
	return FromRow(created), nil
}

// UpdateTask applies a partial update and returns the updated task.
func (c *Client) UpdateTask(ctx context.Context, id string, patch board.TaskPatch) (board.Task, error) {
	s, err := c.session()
	if err != nil {
		return board.Task{}, err
	}
	var updated Row
	path := "/api/tasks/" + url.PathEscape(id)
	if err := c.t.do(ctx, http.MethodPatch, path, s.AccessToken, PatchToRow(patch), &updated); err != nil {
		return board.Task{}, err
	}
	return FromRow(updated), nil
}

// DeleteTask deletes a task by id.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	s, err := c.session()
	if err != nil {
		return err
	}
	return c.t.do(ctx, http.MethodDelete, "/api/tasks/"+url.PathEscape(id), s.AccessToken, nil, nil)
}

// UpdateTaskOrder upserts the status and order of every task given.
func (c *Client) UpdateTaskOrder(ctx context.Context, tasks []board.Task) error {
	s, err := c.session()
	if err != nil {
		return err
	}
	return c.t.do(ctx, http.MethodPut, "/api/tasks/order", s.AccessToken, OrderRows(tasks, s.User.ID), nil)
}
