package solver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/93bx/vidsrc-stremio-addon/internal/config"
)

type fakeService struct {
	createCalls atomic.Int32
	pollCalls   atomic.Int32
	create      func(req createTaskRequest) createTaskResponse
	poll        func(n int32) getTaskResultResponse
}

func (f *fakeService) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/createTask", func(w http.ResponseWriter, r *http.Request) {
		f.createCalls.Add(1)
		var req createTaskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode createTask: %v", err)
		}
		_ = json.NewEncoder(w).Encode(f.create(req))
	})
	mux.HandleFunc("/getTaskResult", func(w http.ResponseWriter, r *http.Request) {
		n := f.pollCalls.Add(1)
		var req getTaskResultRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.TaskID != "task-1" {
			t.Errorf("taskId = %q, want task-1", req.TaskID)
		}
		_ = json.NewEncoder(w).Encode(f.poll(n))
	})
	return mux
}

func newTestClient(t *testing.T, baseURL string) (*Client, *[]time.Duration) {
	t.Helper()
	c := NewClient(config.SolverConfig{
		APIKey:       "key",
		BaseURL:      baseURL,
		TaskType:     "AntiTurnstileTaskProxyLess",
		PollInterval: 3 * time.Second,
		MaxAttempts:  20,
	}, zerolog.Nop())

	var sleeps []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return ctx.Err()
	}
	return c, &sleeps
}

func okCreate(req createTaskRequest) createTaskResponse {
	return createTaskResponse{TaskID: "task-1"}
}

func TestSolve_Ready(t *testing.T) {
	fs := &fakeService{
		create: func(req createTaskRequest) createTaskResponse {
			if req.ClientKey != "key" || req.Task.WebsiteKey != "0x123" || req.Task.WebsiteURL != "https://frame.example/rcp" {
				t.Errorf("unexpected createTask body: %+v", req)
			}
			if req.Task.Type != "AntiTurnstileTaskProxyLess" {
				t.Errorf("task type = %q", req.Task.Type)
			}
			return createTaskResponse{TaskID: "task-1"}
		},
		poll: func(n int32) getTaskResultResponse {
			if n < 3 {
				return getTaskResultResponse{Status: "processing"}
			}
			return getTaskResultResponse{Status: "ready", Solution: solution{Token: "tok-1"}}
		},
	}
	srv := httptest.NewServer(fs.handler(t))
	defer srv.Close()

	c, sleeps := newTestClient(t, srv.URL)
	token, err := c.Solve(context.Background(), "https://frame.example/rcp", "0x123")
	if err != nil {
		t.Fatalf("Solve() error = %v", err)
	}
	if token != "tok-1" {
		t.Errorf("token = %q, want tok-1", token)
	}
	if got := fs.pollCalls.Load(); got != 3 {
		t.Errorf("poll calls = %d, want 3", got)
	}
	if len(*sleeps) != 3 {
		t.Errorf("sleeps = %d, want 3", len(*sleeps))
	}
}

func TestSolve_TimeoutAfterExactlyTwentyPolls(t *testing.T) {
	fs := &fakeService{
		create: okCreate,
		poll: func(int32) getTaskResultResponse {
			return getTaskResultResponse{Status: "processing"}
		},
	}
	srv := httptest.NewServer(fs.handler(t))
	defer srv.Close()

	c, sleeps := newTestClient(t, srv.URL)
	_, err := c.Solve(context.Background(), "https://frame.example", "0x123")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Solve() error = %v, want ErrTimeout", err)
	}
	if got := fs.pollCalls.Load(); got != 20 {
		t.Errorf("poll calls = %d, want 20", got)
	}
	if len(*sleeps) != 20 {
		t.Fatalf("sleeps = %d, want 20", len(*sleeps))
	}
	for i, d := range *sleeps {
		if d != 3*time.Second {
			t.Errorf("sleep[%d] = %v, want 3s", i, d)
		}
	}
	if fs.createCalls.Load() != 1 {
		t.Errorf("createTask called %d times, want 1", fs.createCalls.Load())
	}
}

func TestSolve_ErrorIDIsTerminal(t *testing.T) {
	fs := &fakeService{
		create: okCreate,
		poll: func(int32) getTaskResultResponse {
			return getTaskResultResponse{ErrorID: 1, ErrorCode: "ERROR_CAPTCHA_UNSOLVABLE", ErrorDescription: "unsolvable"}
		},
	}
	srv := httptest.NewServer(fs.handler(t))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL)
	_, err := c.Solve(context.Background(), "https://frame.example", "0x123")
	if !errors.Is(err, ErrRequest) {
		t.Fatalf("Solve() error = %v, want ErrRequest", err)
	}
	var reqErr *RequestError
	if !errors.As(err, &reqErr) || reqErr.Code != "ERROR_CAPTCHA_UNSOLVABLE" {
		t.Errorf("unexpected error detail: %v", err)
	}
	if got := fs.pollCalls.Load(); got != 1 {
		t.Errorf("poll calls = %d, want 1", got)
	}
}

func TestSubmit_ErrorIDIsNotRetried(t *testing.T) {
	fs := &fakeService{
		create: func(createTaskRequest) createTaskResponse {
			return createTaskResponse{ErrorID: 1, ErrorCode: "ERROR_KEY_DENIED_ACCESS"}
		},
		poll: func(int32) getTaskResultResponse { return getTaskResultResponse{} },
	}
	srv := httptest.NewServer(fs.handler(t))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL)
	_, err := c.Solve(context.Background(), "https://frame.example", "0x123")
	if !errors.Is(err, ErrRequest) {
		t.Fatalf("Solve() error = %v, want ErrRequest", err)
	}
	if fs.createCalls.Load() != 1 || fs.pollCalls.Load() != 0 {
		t.Errorf("calls create=%d poll=%d, want 1/0", fs.createCalls.Load(), fs.pollCalls.Load())
	}
}

func TestSubmit_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, _ := newTestClient(t, url)
	_, err := c.Submit(context.Background(), "https://frame.example", "0x123")
	if !errors.Is(err, ErrRequest) {
		t.Fatalf("Submit() error = %v, want ErrRequest", err)
	}
}

func TestSolve_MissingKey(t *testing.T) {
	c := NewClient(config.SolverConfig{}, zerolog.Nop())
	if c.IsConfigured() {
		t.Fatal("IsConfigured() = true without key")
	}
	if _, err := c.Solve(context.Background(), "u", "k"); !errors.Is(err, ErrAPIKeyMissing) {
		t.Errorf("Solve() error = %v, want ErrAPIKeyMissing", err)
	}
}

func TestPoll_ContextCancelled(t *testing.T) {
	c, _ := newTestClient(t, "http://127.0.0.1:1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Poll(ctx, "task-1"); !errors.Is(err, context.Canceled) {
		t.Errorf("Poll() error = %v, want context.Canceled", err)
	}
}
