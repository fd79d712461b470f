package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrowderSoup/kanban/board"
)

type recordedRequest struct {
	Method string
	Path   string
	APIKey string
	Auth   string
	Body   string
}

// fakeServer records requests and answers with a fixed response.
type fakeServer struct {
	mu       sync.Mutex
	requests []recordedRequest
	status   int
	body     string
}

func newFakeServer(t *testing.T) (*fakeServer, *httptest.Server) {
	f := &fakeServer{status: http.StatusOK, body: "[]"}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body json.RawMessage
		_ = json.NewDecoder(r.Body).Decode(&body)

		f.mu.Lock()
		f.requests = append(f.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			APIKey: r.Header.Get("apikey"),
			Auth:   r.Header.Get("Authorization"),
			Body:   string(body),
		})
		status, payload := f.status, f.body
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(payload))
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeServer) respond(status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status, f.body = status, body
}

func (f *fakeServer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeServer) last() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func signedIn(cfg Config) (*Auth, *Client) {
	auth := NewAuth(cfg)
	auth.Restore(&Session{
		AccessToken: "tok",
		ExpiresAt:   time.Now().Add(time.Hour),
		User:        User{ID: "u1", Email: "ana@example.com"},
	})
	return auth, New(cfg, auth)
}

func TestConfigEnabled(t *testing.T) {
	assert.True(t, Config{URL: "http://x", Key: "k"}.Enabled())
	assert.False(t, Config{URL: "http://x"}.Enabled())
	assert.False(t, Config{Key: "k"}.Enabled())
	assert.False(t, Config{URL: " ", Key: "k"}.Enabled())
}

func TestCallsRequireSession(t *testing.T) {
	f, srv := newFakeServer(t)
	cfg := Config{URL: srv.URL, Key: "anon"}
	client := New(cfg, NewAuth(cfg))
	ctx := context.Background()

	_, err := client.GetTasks(ctx)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	_, err = client.CreateTask(ctx, board.Task{Title: "a"})
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	_, err = client.UpdateTask(ctx, "t1", board.TaskPatch{})
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.ErrorIs(t, client.DeleteTask(ctx, "t1"), ErrNotAuthenticated)
	assert.ErrorIs(t, client.UpdateTaskOrder(ctx, nil), ErrNotAuthenticated)

	assert.Zero(t, f.count())
}

func TestClientSendsHeadersAndRemoteNames(t *testing.T) {
	f, srv := newFakeServer(t)
	_, client := signedIn(Config{URL: srv.URL + "/", Key: "anon"})
	ctx := context.Background()

	f.respond(http.StatusOK, `{"id":"t1","user_id":"u1","title":"Ship","status":"todo","priority":"medium","order":0,"due_date":"2026-10-19","subtasks":[]}`)
	created, err := client.CreateTask(ctx, board.Task{ID: "t1", Title: "Ship", Status: board.StatusTodo, Priority: board.PriorityMedium, DueDate: "2026-10-19"})
	require.NoError(t, err)
	assert.Equal(t, "2026-10-19", created.DueDate)

	req := f.last()
	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, "/api/tasks", req.Path)
	assert.Equal(t, "anon", req.APIKey)
	assert.Equal(t, "Bearer tok", req.Auth)
	assert.Contains(t, req.Body, `"due_date":"2026-10-19"`)
	assert.Contains(t, req.Body, `"user_id":"u1"`)

	_, err = client.UpdateTask(ctx, "t1", board.TaskPatch{DueDate: board.Ptr("")})
	require.NoError(t, err)
	req = f.last()
	assert.Equal(t, "PATCH", req.Method)
	assert.Equal(t, "/api/tasks/t1", req.Path)
	assert.JSONEq(t, `{"due_date":null}`, req.Body)

	f.respond(http.StatusNoContent, "")
	require.NoError(t, client.UpdateTaskOrder(ctx, []board.Task{{ID: "t1", Status: board.StatusDone, Order: 0}}))
	req = f.last()
	assert.Equal(t, "PUT", req.Method)
	assert.Equal(t, "/api/tasks/order", req.Path)
	assert.JSONEq(t, `[{"id":"t1","status":"done","order":0,"user_id":"u1"}]`, req.Body)

	require.NoError(t, client.DeleteTask(ctx, "t1"))
	assert.Equal(t, "DELETE", f.last().Method)
}

func TestAPIError(t *testing.T) {
	f, srv := newFakeServer(t)
	_, client := signedIn(Config{URL: srv.URL, Key: "anon"})

	f.respond(http.StatusInternalServerError, `{"status":"error","message":"failed to save task"}`)
	_, err := client.GetTasks(context.Background())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "failed to save task", apiErr.UserMessage())
	assert.Equal(t, "remote: 500: failed to save task", err.Error())

	f.respond(http.StatusBadGateway, "upstream down")
	err = client.DeleteTask(context.Background(), "t1")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "upstream down", apiErr.Message)

	f.respond(http.StatusServiceUnavailable, "")
	err = client.DeleteTask(context.Background(), "t1")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Service Unavailable", apiErr.Message)
}

func TestStoreShowsRemoteMessage(t *testing.T) {
	f, srv := newFakeServer(t)
	_, client := signedIn(Config{URL: srv.URL, Key: "anon"})
	store := board.NewStore(board.WithRemote(client))

	f.respond(http.StatusBadRequest, `{"status":"error","message":"title is required"}`)
	task, err := store.Add(board.TaskInput{Title: "Kept locally"})
	require.NoError(t, err)
	store.Wait()

	assert.Equal(t, "create task: title is required", store.Err())
	_, ok := store.Task(task.ID)
	assert.True(t, ok)
}

func TestAuthSubscription(t *testing.T) {
	f, srv := newFakeServer(t)
	cfg := Config{URL: srv.URL, Key: "anon"}
	auth := NewAuth(cfg)

	var (
		mu     sync.Mutex
		events []string
	)
	unsubscribe := auth.OnAuthStateChange(func(s *Session) {
		mu.Lock()
		defer mu.Unlock()
		if s == nil {
			events = append(events, "signed out")
			return
		}
		events = append(events, s.User.Email)
	})

	f.respond(http.StatusOK, `{"session":{"access_token":"tok","expires_at":"2099-01-01T00:00:00Z","user":{"id":"u1","email":"ana@example.com"}}}`)
	s, err := auth.SignIn(context.Background(), " ana@example.com ", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "u1", s.User.ID)
	assert.JSONEq(t, `{"email":"ana@example.com","password":"hunter22"}`, f.last().Body)
	assert.Empty(t, f.last().Auth)

	f.respond(http.StatusNoContent, "")
	require.NoError(t, auth.SignOut(context.Background()))
	assert.Nil(t, auth.Current())
	assert.Equal(t, "Bearer tok", f.last().Auth)

	unsubscribe()
	auth.Restore(&Session{AccessToken: "x", ExpiresAt: time.Now().Add(time.Hour)})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"ana@example.com", "signed out"}, events)
}

func TestSignOutClearsSessionOnFailure(t *testing.T) {
	f, srv := newFakeServer(t)
	auth, _ := signedIn(Config{URL: srv.URL, Key: "anon"})

	f.respond(http.StatusInternalServerError, `{"message":"boom"}`)
	assert.Error(t, auth.SignOut(context.Background()))
	assert.Nil(t, auth.Current())
}

func TestGetSession(t *testing.T) {
	f, srv := newFakeServer(t)
	auth, _ := signedIn(Config{URL: srv.URL, Key: "anon"})

	f.respond(http.StatusOK, `{"session":{"access_token":"tok","expires_at":"2099-01-01T00:00:00Z","user":{"id":"u1","email":"ana@example.com"}}}`)
	s, err := auth.GetSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "u1", s.User.ID)

	f.respond(http.StatusUnauthorized, `{"message":"invalid token"}`)
	s, err = auth.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, s)
	assert.Nil(t, auth.Current())

	// without a session nothing is sent
	n := f.count()
	s, err = auth.GetSession(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, s)
	assert.Equal(t, n, f.count())
}

func TestExpiredSessionIsDropped(t *testing.T) {
	auth := NewAuth(Config{URL: "http://localhost", Key: "anon"})
	now := time.Now()
	auth.now = func() time.Time { return now }

	auth.Restore(&Session{AccessToken: "tok", ExpiresAt: now.Add(time.Minute)})
	require.NotNil(t, auth.Current())

	auth.now = func() time.Time { return now.Add(2 * time.Minute) }
	assert.Nil(t, auth.Current())

	auth.Restore(&Session{AccessToken: "tok", ExpiresAt: now})
	assert.Nil(t, auth.Current())
}

func TestSignInRejectsSessionExpiredOnArrival(t *testing.T) {
	f, srv := newFakeServer(t)
	auth := NewAuth(Config{URL: srv.URL, Key: "anon"})
	var calls int
	auth.OnAuthStateChange(func(*Session) { calls++ })

	f.respond(http.StatusOK, `{"session":{"access_token":"tok","expires_at":"2001-01-01T00:00:00Z","user":{"id":"u1","email":"ana@example.com"}}}`)
	s, err := auth.SignIn(context.Background(), "ana@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Nil(t, s)
	assert.Nil(t, auth.Current())
	assert.Zero(t, calls)

	f.respond(http.StatusOK, `{"session":{"access_token":"tok","expires_at":"2099-01-01T00:00:00Z","user":{"id":"u1","email":"ana@example.com"}}}`)
	s, err = auth.SignUp(context.Background(), "ana@example.com", "hunter22")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "ana@example.com", s.User.Email)
	assert.Equal(t, 1, calls)
}

func TestParseChange(t *testing.T) {
	change, err := parseChange([]byte(`{"type":"tasks_changed","data":{"op":"update","id":"t1"}}`))
	require.NoError(t, err)
	assert.Equal(t, &Change{Op: "update", ID: "t1"}, change)

	change, err = parseChange([]byte(`{"type":"pong","data":{"timestamp":"now"}}`))
	assert.NoError(t, err)
	assert.Nil(t, change)

	_, err = parseChange([]byte("  "))
	assert.ErrorIs(t, err, errEmptyMessage)

	_, err = parseChange([]byte("{"))
	assert.Error(t, err)
}

func TestWSURL(t *testing.T) {
	tr := newTransport(Config{URL: "https://board.example.com/base/", Key: "anon"})
	u, err := tr.wsURL("/api/ws", map[string][]string{"apikey": {"anon"}})
	require.NoError(t, err)
	assert.Equal(t, "wss://board.example.com/base/api/ws?apikey=anon", u)

	tr = newTransport(Config{URL: "http://localhost:3001", Key: "anon"})
	u, err = tr.wsURL("/api/ws", nil)
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:3001/api/ws", u)
}
