package fal

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testModelPath = "/fal-ai/recraft-v3"

// fakeQueue mimics the queue endpoints: submit, status and result.
type fakeQueue struct {
	mu sync.Mutex

	submitStatus int
	submitBody   string
	statuses     []string
	failMessage  string
	statusCode   int
	resultStatus int
	resultBody   string

	submits      int
	statusChecks int
	fetches      int
	checkTimes   []time.Time
	authHeaders  []string
	lastSubmit   []byte
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{
		submitStatus: http.StatusOK,
		submitBody:   `{"request_id":"req-123","status_url":"x","response_url":"y"}`,
		statuses:     []string{"COMPLETED"},
		statusCode:   http.StatusOK,
		resultStatus: http.StatusOK,
		resultBody:   `{"images":[{"url":"https://cdn.example.com/u1.webp","content_type":"image/webp"}],"seed":7}`,
	}
}

func (f *fakeQueue) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authHeaders = append(f.authHeaders, r.Header.Get("Authorization"))

	switch {
	case r.Method == http.MethodPost && r.URL.Path == testModelPath:
		f.submits++
		f.lastSubmit, _ = io.ReadAll(r.Body)
		w.WriteHeader(f.submitStatus)
		_, _ = io.WriteString(w, f.submitBody)
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/status"):
		f.statusChecks++
		f.checkTimes = append(f.checkTimes, time.Now())
		if f.statusCode != http.StatusOK {
			w.WriteHeader(f.statusCode)
			_, _ = io.WriteString(w, "status unavailable")
			return
		}
		idx := f.statusChecks - 1
		if idx >= len(f.statuses) {
			idx = len(f.statuses) - 1
		}
		payload := map[string]any{"status": f.statuses[idx]}
		if f.statuses[idx] == "FAILED" {
			payload["error"] = f.failMessage
		}
		_ = json.NewEncoder(w).Encode(payload)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, testModelPath+"/requests/"):
		f.fetches++
		w.WriteHeader(f.resultStatus)
		_, _ = io.WriteString(w, f.resultBody)
	default:
		http.NotFound(w, r)
	}
}

type queueCounts struct {
	submits      int
	statusChecks int
	fetches      int
	checkTimes   []time.Time
	authHeaders  []string
	lastSubmit   []byte
}

func (f *fakeQueue) counts() queueCounts {
	f.mu.Lock()
	defer f.mu.Unlock()
	return queueCounts{
		submits:      f.submits,
		statusChecks: f.statusChecks,
		fetches:      f.fetches,
		checkTimes:   append([]time.Time(nil), f.checkTimes...),
		authHeaders:  append([]string(nil), f.authHeaders...),
		lastSubmit:   append([]byte(nil), f.lastSubmit...),
	}
}

func newTestClient(t *testing.T, queue *fakeQueue, interval time.Duration) *Client {
	t.Helper()
	ts := httptest.NewServer(queue)
	t.Cleanup(ts.Close)
	return NewClient(Options{
		APIKey:       "test-key",
		BaseURL:      ts.URL,
		PollInterval: interval,
	})
}

func TestSubmitSendsPayloadWithKeyAuthorization(t *testing.T) {
	queue := newFakeQueue()
	client := newTestClient(t, queue, time.Millisecond)

	handle, err := client.Submit(context.Background(), map[string]any{"prompt": "A cat", "style": "realistic_image"})
	require.NoError(t, err)
	assert.Equal(t, "req-123", handle.RequestID)
	assert.Equal(t, 1, queue.counts().submits)
	assert.Equal(t, []string{"Key test-key"}, queue.counts().authHeaders)

	var sent map[string]any
	require.NoError(t, json.Unmarshal(queue.counts().lastSubmit, &sent))
	assert.Equal(t, "A cat", sent["prompt"])
	assert.Equal(t, "realistic_image", sent["style"])
}

func TestRunStopsWhenSubmissionRejected(t *testing.T) {
	queue := newFakeQueue()
	queue.submitStatus = http.StatusUnprocessableEntity
	queue.submitBody = `{"detail":"prompt is required"}`
	client := newTestClient(t, queue, time.Millisecond)

	result, err := client.Run(context.Background(), map[string]any{"prompt": ""})
	require.Error(t, err)
	assert.Nil(t, result)

	var subErr *SubmissionError
	require.True(t, errors.As(err, &subErr), "want SubmissionError, got %T", err)
	assert.Equal(t, http.StatusUnprocessableEntity, subErr.StatusCode)
	assert.Contains(t, err.Error(), "422")
	assert.Contains(t, err.Error(), "prompt is required")
	assert.Zero(t, queue.counts().statusChecks, "poll loop must not start")
}

func TestSubmitMissingRequestID(t *testing.T) {
	queue := newFakeQueue()
	queue.submitBody = `{"status":"IN_QUEUE"}`
	client := newTestClient(t, queue, time.Millisecond)

	_, err := client.Run(context.Background(), map[string]any{"prompt": "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingRequestID)
	assert.Equal(t, "Did not receive a request_id from Fal.ai API.", err.Error())
	assert.Zero(t, queue.counts().statusChecks)
}

func TestPollReturnsResultAfterPendingChecks(t *testing.T) {
	queue := newFakeQueue()
	queue.statuses = []string{"IN_QUEUE", "IN_PROGRESS", "COMPLETED"}
	queue.resultBody = `{"images":[{"url":"u1"},{"url":"u2"}]}`
	client := newTestClient(t, queue, time.Millisecond)

	result, err := client.Run(context.Background(), map[string]any{"prompt": "A cat"})
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Len(t, result.Images, 2)
	assert.Equal(t, "u1", result.Images[0].URL)
	assert.Equal(t, "u2", result.Images[1].URL)
	assert.JSONEq(t, queue.resultBody, string(result.Raw))
	assert.Equal(t, 3, queue.counts().statusChecks)
	assert.Equal(t, 1, queue.counts().fetches)
	for _, header := range queue.counts().authHeaders {
		assert.Equal(t, "Key test-key", header)
	}
}

func TestPollFailedJobSkipsResultFetch(t *testing.T) {
	queue := newFakeQueue()
	queue.statuses = []string{"IN_PROGRESS", "FAILED"}
	queue.failMessage = "content policy violation"
	client := newTestClient(t, queue, time.Millisecond)

	_, err := client.Poll(context.Background(), Handle{RequestID: "req-123"})
	require.Error(t, err)

	var failed *JobFailedError
	require.True(t, errors.As(err, &failed), "want JobFailedError, got %T", err)
	assert.Equal(t, "content policy violation", failed.Message)
	assert.Equal(t, "Fal.ai request failed: content policy violation", err.Error())
	assert.Equal(t, 2, queue.counts().statusChecks)
	assert.Zero(t, queue.counts().fetches)
}

func TestPollTimesOutAfterMaxAttempts(t *testing.T) {
	queue := newFakeQueue()
	queue.statuses = []string{"IN_PROGRESS"}
	interval := 2 * time.Millisecond
	client := newTestClient(t, queue, interval)

	_, err := client.Poll(context.Background(), Handle{RequestID: "req-123"})
	require.Error(t, err)

	var timeout *TimeoutError
	require.True(t, errors.As(err, &timeout), "want TimeoutError, got %T", err)
	assert.Equal(t, DefaultMaxAttempts, timeout.Attempts)
	assert.Equal(t, "Fal.ai request timed out after 60 attempts.", err.Error())
	assert.Equal(t, 60, queue.counts().statusChecks)
	assert.Zero(t, queue.counts().fetches)
	times := queue.counts().checkTimes
	for i := 1; i < len(times); i++ {
		gap := times[i].Sub(times[i-1])
		assert.GreaterOrEqual(t, gap, interval, "check %d followed check %d too quickly", i, i-1)
	}
}

func TestPollStatusCheckFailure(t *testing.T) {
	queue := newFakeQueue()
	queue.statusCode = http.StatusInternalServerError
	client := newTestClient(t, queue, time.Millisecond)

	_, err := client.Poll(context.Background(), Handle{RequestID: "req-123"})
	require.Error(t, err)

	var pollErr *PollError
	require.True(t, errors.As(err, &pollErr), "want PollError, got %T", err)
	assert.Equal(t, http.StatusInternalServerError, pollErr.StatusCode)
	assert.Equal(t, 1, pollErr.Attempt)
	assert.Equal(t, "Fal.ai status check failed: 500 - status unavailable", err.Error())
	assert.Equal(t, 1, queue.counts().statusChecks)
}

func TestPollResultFetchFailure(t *testing.T) {
	queue := newFakeQueue()
	queue.resultStatus = http.StatusBadGateway
	queue.resultBody = "upstream error"
	client := newTestClient(t, queue, time.Millisecond)

	_, err := client.Poll(context.Background(), Handle{RequestID: "req-123"})
	require.Error(t, err)

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr), "want FetchError, got %T", err)
	assert.Equal(t, http.StatusBadGateway, fetchErr.StatusCode)
	assert.Contains(t, err.Error(), "502 - upstream error")
	assert.Equal(t, 1, queue.counts().fetches)
}

func TestPollStopsWhenContextEnds(t *testing.T) {
	queue := newFakeQueue()
	queue.statuses = []string{"IN_QUEUE"}
	client := newTestClient(t, queue, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Poll(ctx, Handle{RequestID: "req-123"})
	require.Error(t, err)

	var pollErr *PollError
	require.True(t, errors.As(err, &pollErr), "want PollError, got %T", err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, queue.counts().statusChecks)
}

func TestWithLoggerRoutesClientLogs(t *testing.T) {
	queue := newFakeQueue()
	client := newTestClient(t, queue, time.Millisecond)

	var buf strings.Builder
	logger := zerolog.New(&buf).With().Str("request_id", "rid-1").Logger()
	scoped := client.WithLogger(&logger)

	_, err := scoped.Run(context.Background(), map[string]any{"prompt": "x"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"message":"fal: job submitted"`)
	assert.Contains(t, buf.String(), `"request_id":"rid-1"`)

	buf.Reset()
	_, err = client.Run(context.Background(), map[string]any{"prompt": "x"})
	require.NoError(t, err)
	assert.Empty(t, buf.String(), "WithLogger must not mutate the original")
}

func TestPollRejectsEmptyHandle(t *testing.T) {
	client := NewClient(Options{APIKey: "k"})
	_, err := client.Poll(context.Background(), Handle{})
	assert.ErrorIs(t, err, ErrMissingRequestID)
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want Status
	}{
		{"COMPLETED", StatusCompleted},
		{"completed", StatusCompleted},
		{"FAILED", StatusFailed},
		{"IN_QUEUE", StatusPending},
		{"IN_PROGRESS", StatusPending},
		{"", StatusPending},
		{"SOMETHING_NEW", StatusPending},
	}
	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			got := ParseStatus(tc.raw)
			if got != tc.want {
				t.Fatalf("ParseStatus(%q) = %q, want %q", tc.raw, got, tc.want)
			}
			if terminal := tc.want != StatusPending; got.Terminal() != terminal {
				t.Fatalf("%q Terminal() = %v, want %v", tc.raw, got.Terminal(), terminal)
			}
		})
	}
}

func TestNewClientDefaults(t *testing.T) {
	client := NewClient(Options{APIKey: "  key  ", BaseURL: "https://queue.example.com/", Model: "/fal-ai/recraft-v3/"})
	assert.True(t, client.HasCredentials())
	assert.Equal(t, "fal-ai/recraft-v3", client.Model())
	assert.Equal(t, DefaultMaxAttempts, client.maxAttempts)
	assert.Equal(t, DefaultPollInterval, client.pollInterval)
	assert.Equal(t, "https://queue.example.com/fal-ai/recraft-v3", client.submitURL())
	assert.Equal(t, "https://queue.example.com/fal-ai/recraft-v3/requests/abc/status", client.statusURL(Handle{RequestID: "abc"}))

	keyless := client.WithAPIKey("")
	assert.False(t, keyless.HasCredentials())
	assert.True(t, client.HasCredentials(), "WithAPIKey must not mutate the original")
}
