package http_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	httpAdapter "github.com/picloud/picloud/pkg/adapters/http"
	"github.com/picloud/picloud/pkg/devtools"
	"github.com/picloud/picloud/pkg/domain"
	"github.com/picloud/picloud/pkg/middleware"
	"github.com/picloud/picloud/pkg/progress"
	"github.com/picloud/picloud/pkg/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(obs ...store.Observer) *store.Store {
	reg := store.NewRegistry().MustRegister(domain.SliceCallsInProgress, progress.Slice())
	return store.New(reg.Reducer(), nil, store.WithName("test"), store.WithObserver(obs...))
}

func newServer(t *testing.T, st *store.Store, opts ...httpAdapter.Option) http.Handler {
	t.Helper()
	srv := httpAdapter.NewServer(st, opts...)
	t.Cleanup(srv.Close)
	return srv.Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestHealthAndInfo(t *testing.T) {
	h := newServer(t, newStore(), httpAdapter.WithVersion("1.2.3"))

	rr := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rr)["status"])

	info := decode[map[string]any](t, do(t, h, http.MethodGet, "/info", ""))
	assert.Equal(t, "1.2.3", info["version"])
	assert.Equal(t, "test", info["store"])
	assert.Equal(t, false, info["devtools"])
}

func TestDispatchAndStatus(t *testing.T) {
	h := newServer(t, newStore())

	steps := []struct {
		kind string
		want httpAdapter.Status
	}{
		{"CALL_STARTED", httpAdapter.Status{CallsInProgress: 1, Loading: true}},
		{"CALL_STARTED", httpAdapter.Status{CallsInProgress: 2, Loading: true}},
		{"CALL_FAILED", httpAdapter.Status{CallsInProgress: 1, Loading: true}},
		{"LOGIN_SUCCESS", httpAdapter.Status{CallsInProgress: 0, Loading: false}},
		{"SOME_OTHER_ACTION", httpAdapter.Status{CallsInProgress: 0, Loading: false}},
		{"CALL_FAILED", httpAdapter.Status{CallsInProgress: -1, Loading: false}},
	}
	for _, step := range steps {
		rr := do(t, h, http.MethodPost, "/dispatch", `{"type":"`+step.kind+`"}`)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.Equal(t, step.want, decode[httpAdapter.Status](t, rr), step.kind)
	}

	assert.Equal(t, steps[len(steps)-1].want, decode[httpAdapter.Status](t, do(t, h, http.MethodGet, "/status", "")))
	state := decode[map[string]any](t, do(t, h, http.MethodGet, "/state", ""))
	assert.EqualValues(t, -1, state[domain.SliceCallsInProgress])
}

func TestDispatch_BadRequests(t *testing.T) {
	h := newServer(t, newStore())

	rr := do(t, h, http.MethodPost, "/dispatch", "{")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodPost, "/dispatch", `{"payload":1}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.EqualValues(t, http.StatusBadRequest, decode[map[string]any](t, rr)["status"])
}

func TestDispatch_MutationConflict(t *testing.T) {
	mutating := func(state domain.State, sig domain.Signal) domain.State {
		state["mutated"] = sig.Kind
		return state
	}
	st := store.New(mutating, domain.State{}, store.WithMiddleware(middleware.ImmutableInvariant(nil)))
	h := newServer(t, st)

	rr := do(t, h, http.MethodPost, "/dispatch", `{"type":"ANY"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	h := newServer(t, newStore())

	rr := do(t, h, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	rr = do(t, h, http.MethodGet, "/dispatch", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	// Optional routes are absent unless configured.
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/metrics", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/debug/history", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/media", "").Code)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collectors, err := middleware.NewCollectors(reg)
	require.NoError(t, err)
	h := newServer(t, newStore(middleware.Metrics(collectors)), httpAdapter.WithGatherer(reg))

	do(t, h, http.MethodPost, "/dispatch", `{"type":"CALL_STARTED"}`)
	rr := do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "picloud_calls_in_progress 1")
}

func TestDebugRoutes(t *testing.T) {
	rec := devtools.NewRecorder(10)
	st := newStore(rec.Observer())
	h := newServer(t, st, httpAdapter.WithRecorder(rec))

	do(t, h, http.MethodPost, "/dispatch", `{"type":"CALL_STARTED"}`)
	do(t, h, http.MethodPost, "/dispatch", `{"type":"CALL_STARTED"}`)

	history := decode[[]map[string]any](t, do(t, h, http.MethodGet, "/debug/history", ""))
	assert.Len(t, history, 2)

	rr := do(t, h, http.MethodPost, "/debug/jump/0", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, 1, st.CallsInProgress())

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/debug/jump/7", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/debug/jump/x", "").Code)
}

func TestMedia(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "usb0", "photos"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "usb0", "notes.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "usb0", ".hidden"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "stray.txt"), []byte("x"), 0o644))

	st := newStore()
	h := newServer(t, st, httpAdapter.WithMediaRoot(root))

	drives := decode[httpAdapter.MediaListing](t, do(t, h, http.MethodGet, "/media", ""))
	require.Len(t, drives.Entries, 1)
	assert.Equal(t, "usb0", drives.Entries[0].Name)
	assert.True(t, drives.Entries[0].Dir)

	listing := decode[httpAdapter.MediaListing](t, do(t, h, http.MethodGet, "/media/usb0", ""))
	assert.Equal(t, "usb0", listing.Path)
	require.Len(t, listing.Entries, 2)
	assert.Equal(t, "photos", listing.Entries[0].Name, "directories first")
	assert.Equal(t, "usb0/notes.txt", listing.Entries[1].Path)
	assert.EqualValues(t, 5, listing.Entries[1].Size)

	rr := do(t, h, http.MethodGet, "/media/usb0/notes.txt", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "hello", rr.Body.String())

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/media/usb1", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/media/usb0/missing", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/media/usb0/../stray.txt", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/media/../etc", "").Code)

	// Every served media request started and ended a call.
	assert.Equal(t, 0, st.CallsInProgress())
}

func TestSubscribeEvents(t *testing.T) {
	st := newStore()
	srv := httptest.NewServer(newServer(t, st))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events?watch=loading", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	require.True(t, lines.Scan())
	assert.Equal(t, "event: ping", lines.Text())

	// Subscribed once the ping arrived.
	require.NoError(t, st.Dispatch(context.Background(), domain.NewSignal("SOME_OTHER_ACTION")))
	require.NoError(t, st.Dispatch(context.Background(), domain.BeginCall()))

	var data string
	for lines.Scan() {
		if strings.HasPrefix(lines.Text(), "data: {") {
			data = strings.TrimPrefix(lines.Text(), "data: ")
			break
		}
	}
	var diff domain.StateDiff
	require.NoError(t, json.Unmarshal([]byte(data), &diff))
	require.NotNil(t, diff.Loading)
	assert.True(t, *diff.Loading)
	assert.EqualValues(t, 1, diff.Changed[domain.SliceCallsInProgress])
}

func TestAuthSecret(t *testing.T) {
	secret := []byte("s3cret")
	rec := devtools.NewRecorder(10)
	st := newStore(rec.Observer())
	h := newServer(t, st, httpAdapter.WithAuthSecret(secret), httpAdapter.WithRecorder(rec))

	send := func(method, path, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(`{"type":"CALL_STARTED"}`))
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	rr := send(http.MethodPost, "/dispatch", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("WWW-Authenticate"))
	assert.Equal(t, 0, st.CallsInProgress())

	forged, err := httpAdapter.IssueToken([]byte("other"), "mallory", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, send(http.MethodPost, "/dispatch", forged).Code)

	expired, err := httpAdapter.IssueToken(secret, "alice", -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, send(http.MethodPost, "/dispatch", expired).Code)

	token, err := httpAdapter.IssueToken(secret, "alice", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, send(http.MethodPost, "/dispatch", token).Code)
	assert.Equal(t, 1, st.CallsInProgress())

	assert.Equal(t, http.StatusUnauthorized, send(http.MethodGet, "/debug/history", "").Code)
	assert.Equal(t, http.StatusOK, send(http.MethodGet, "/debug/history", token).Code)

	// Reads stay open.
	assert.Equal(t, http.StatusOK, send(http.MethodGet, "/status", "").Code)
}

func TestVerifyToken(t *testing.T) {
	secret := []byte("s3cret")
	token, err := httpAdapter.IssueToken(secret, "alice", time.Minute)
	require.NoError(t, err)

	subject, err := httpAdapter.VerifyToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, "alice", subject)

	_, err = httpAdapter.VerifyToken(secret, token+"x")
	assert.Error(t, err)
	_, err = httpAdapter.IssueToken(nil, "alice", time.Minute)
	assert.Error(t, err)
}
