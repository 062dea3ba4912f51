package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asklly/asklly/browser"
	"github.com/asklly/asklly/config"
	"github.com/asklly/asklly/internal/profile"
	"github.com/asklly/asklly/metrics"
	"github.com/asklly/asklly/session"
)

type stubDriver struct {
	mu         sync.Mutex
	port       int
	closeCalls int
}

func (d *stubDriver) Port() int { return d.port }

func (d *stubDriver) PageText(ctx context.Context, url string) (string, error) {
	return "stub page", nil
}

func (d *stubDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closeCalls++
	return nil
}

type stubFleet struct {
	mu       sync.Mutex
	spawned  []*stubDriver
	failNext bool
}

func (f *stubFleet) factory(cfg browser.Config) (browser.Driver, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		f.failNext = false
		return nil, errors.New("no chromium on this host")
	}
	d := &stubDriver{port: 20000 + len(f.spawned)}
	f.spawned = append(f.spawned, d)
	return d, nil
}

func newTestServer(t *testing.T) (*Server, *stubFleet) {
	t.Helper()

	cfg := &config.Config{
		AgentName:       "Jarvis",
		ProviderName:    "test",
		ProviderModel:   "test-7b",
		IsLocal:         true,
		Languages:       []string{"en"},
		HeadlessBrowser: true,
	}
	exporter := metrics.NewExporter(metrics.DefaultConfig())
	fleet := &stubFleet{}
	manager := session.NewManager(session.ManagerConfig{
		Config:     cfg,
		Metrics:    exporter,
		NewBrowser: fleet.factory,
	})

	e := echo.New()
	e.HideBanner = true
	s := &Server{
		Profile:    &profile.Profile{Mode: "dev", Version: "0.1.0"},
		Manager:    manager,
		Metrics:    exporter,
		echoServer: e,
		baseCtx:    context.Background(),
	}
	s.registerRoutes(e)

	t.Cleanup(func() {
		_ = manager.Shutdown(context.Background())
	})
	return s, fleet
}

func (s *Server) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		payload = bytes.NewBuffer(raw)
	} else {
		payload = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, payload)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.echoServer.ServeHTTP(rec, req)
	return rec
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON[map[string]string](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "0.1.0", body["version"])
}

func TestCreateSessionEndpoint(t *testing.T) {
	s, fleet := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/sessions", map[string]string{})
	require.Equal(t, http.StatusCreated, rec.Code)
	state := decodeJSON[sessionStateResponse](t, rec)
	assert.NotEmpty(t, state.CID)
	assert.Len(t, state.Agents, 6)
	assert.False(t, state.Generating)
	require.Len(t, fleet.spawned, 1)
	assert.Equal(t, fleet.spawned[0].port, state.BrowserPort)
}

func TestCreateSessionFailsWithoutBrowser(t *testing.T) {
	s, fleet := newTestServer(t)
	fleet.failNext = true

	rec := s.do(t, http.MethodPost, "/api/v1/sessions", map[string]string{})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, 0, s.Manager.SessionCount())
}

func TestGetSessionNotFound(t *testing.T) {
	s, _ := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/v1/sessions/no-such-cid", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQueryValidation(t *testing.T) {
	s, _ := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/sessions/no-such-cid/query", map[string]string{"query": "hi"})
	require.Equal(t, http.StatusNotFound, rec.Code)

	created := decodeJSON[sessionStateResponse](t, s.do(t, http.MethodPost, "/api/v1/sessions", map[string]string{}))
	rec = s.do(t, http.MethodPost, "/api/v1/sessions/"+created.CID+"/query", map[string]string{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryLifecycle(t *testing.T) {
	s, _ := newTestServer(t)

	created := decodeJSON[sessionStateResponse](t, s.do(t, http.MethodPost, "/api/v1/sessions", map[string]string{}))
	require.NotEmpty(t, created.CID)

	rec := s.do(t, http.MethodPost, "/api/v1/sessions/"+created.CID+"/query", map[string]string{
		"query": "hi there, nice talking with you",
		"org":   "asklly",
		"uid":   "uid-1",
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	deadline := time.Now().Add(5 * time.Second)
	var answer answerResponse
	for {
		answer = decodeJSON[answerResponse](t, s.do(t, http.MethodGet, "/api/v1/sessions/"+created.CID+"/answer", nil))
		if !answer.Generating && answer.Answer != "" {
			break
		}
		require.True(t, time.Now().Before(deadline), "answer never arrived")
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, created.CID, answer.CID)
	assert.Equal(t, "casual", answer.Agent)
	assert.NotEmpty(t, answer.Answer)

	state := decodeJSON[sessionStateResponse](t, s.do(t, http.MethodGet, "/api/v1/sessions/"+created.CID, nil))
	assert.Equal(t, "casual", state.Agent)
}

func TestDeleteSessionIsIdempotent(t *testing.T) {
	s, fleet := newTestServer(t)

	created := decodeJSON[sessionStateResponse](t, s.do(t, http.MethodPost, "/api/v1/sessions", map[string]string{}))

	rec := s.do(t, http.MethodDelete, "/api/v1/sessions/"+created.CID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodDelete, "/api/v1/sessions/"+created.CID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	require.Len(t, fleet.spawned, 1)
	assert.Equal(t, 1, func() int {
		fleet.spawned[0].mu.Lock()
		defer fleet.spawned[0].mu.Unlock()
		return fleet.spawned[0].closeCalls
	}())
	assert.Equal(t, 0, s.Manager.SessionCount())
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	_ = decodeJSON[sessionStateResponse](t, s.do(t, http.MethodPost, "/api/v1/sessions", map[string]string{}))

	rec := s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "asklly_sessions_created_total 1")
}
