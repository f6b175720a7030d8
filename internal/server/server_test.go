package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/onsi/gomega"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fanin/internal/config"
	"fanin/internal/engine"
	"fanin/internal/logger"
	"fanin/internal/output"
	"fanin/internal/service"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newTestServer(t *testing.T, srvCfg config.Server, raw ...string) *Server {
	t.Helper()
	cfg := config.New()
	specs, err := config.ParseServiceSpecs(raw)
	require.NoError(t, err)
	cfg.Services = specs
	cfg.Server = srvCfg
	cfg.Runtime.Timeout = 2 * time.Second
	require.NoError(t, cfg.Validate())

	eng, err := engine.FromConfig(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	return New(eng, cfg.Server, logger.Nop())
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) service.APIError {
	t.Helper()
	var env service.ErrorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env.Error
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, config.Server{}, "A", "B")
	w := do(t, s.Handler(), http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","services":2}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(headerRequestID))
}

func TestRequestID_KeepsCallerValue(t *testing.T) {
	s := newTestServer(t, config.Server{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(headerRequestID, "abc-123")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(headerRequestID))
}

func TestListPolicies(t *testing.T) {
	s := newTestServer(t, config.Server{})
	w := do(t, s.Handler(), http.MethodGet, "/v1/policies", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got []policyView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	ids := make([]string, len(got))
	for i, p := range got {
		ids[i] = p.ID
	}
	assert.Equal(t, []string{"completion-order", "fail-fast", "fail-soft", "join", "partial"}, ids)
	assert.True(t, got[0].SharedInput)
	assert.False(t, got[4].SharedInput)
}

func TestListServices(t *testing.T) {
	s := newTestServer(t, config.Server{}, "B", "A")
	w := do(t, s.Handler(), http.MethodGet, "/v1/services", nil)
	assert.JSONEq(t, `{"services":["B","A"]}`, w.Body.String())
}

func TestRetrieve(t *testing.T) {
	s := newTestServer(t, config.Server{}, "Hello", "Bad:fail:down")

	w := do(t, s.Handler(), http.MethodGet, "/v1/services/Hello/retrieve?input=msg", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got service.RetrieveResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, service.RetrieveResponse{Service: "Hello", Input: "msg", Value: "Hello:MSG"}, got)

	w = do(t, s.Handler(), http.MethodGet, "/v1/services/Bad/retrieve?input=msg", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, service.APIError{Message: "down", Code: service.CodeRetrieveFailed}, decodeError(t, w))

	w = do(t, s.Handler(), http.MethodGet, "/v1/services/Nope/retrieve?input=msg", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, service.CodeServiceNotFound, decodeError(t, w).Code)
}

func TestAggregate(t *testing.T) {
	s := newTestServer(t, config.Server{}, "A", "B", "BAD:fail")

	tests := []struct {
		name   string
		req    engine.Request
		status output.Status
		value  any
		errSub string
	}{
		{
			name:   "join all services",
			req:    engine.Request{Policy: "join", Services: []string{"A", "B"}, Inputs: []string{"msg"}},
			status: output.StatusResolved,
			value:  "A:MSG B:MSG",
		},
		{
			name:   "fail-soft",
			req:    engine.Request{Policy: "fail-soft", Services: []string{"A", "BAD"}, Inputs: []string{"x", "y"}, Fallback: "FallBack"},
			status: output.StatusResolved,
			value:  "A:X FallBack",
		},
		{
			name:   "partial",
			req:    engine.Request{Policy: "partial", Inputs: []string{"x", "y", "z"}},
			status: output.StatusResolved,
			value:  []any{"A:X", "B:Y"},
		},
		{
			name:   "fail-fast rejected",
			req:    engine.Request{Policy: "fail-fast", Services: []string{"A", "BAD"}, Inputs: []string{"x", "y"}},
			status: output.StatusRejected,
			errSub: "call 1 to BAD failed: boom",
		},
		{
			name:   "length mismatch rejected",
			req:    engine.Request{Policy: "partial", Services: []string{"A", "B"}, Inputs: []string{"x", "y", "z"}},
			status: output.StatusRejected,
			errSub: "length",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s.Handler(), http.MethodPost, "/v1/aggregate", tt.req)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var rec map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
			assert.Equal(t, string(tt.status), rec["status"])
			assert.Equal(t, w.Header().Get(headerRequestID), rec["run_id"])
			if tt.errSub != "" {
				assert.Contains(t, rec["error"], tt.errSub)
				return
			}
			assert.Equal(t, tt.value, rec["value"])
		})
	}
}

func TestAggregate_BadRequests(t *testing.T) {
	s := newTestServer(t, config.Server{}, "A")

	req := httptest.NewRequest(http.MethodPost, "/v1/aggregate", strings.NewReader("{"))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, service.CodeBadRequest, decodeError(t, w).Code)

	w = do(t, s.Handler(), http.MethodPost, "/v1/aggregate", engine.Request{Policy: "majority", Inputs: []string{"x"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w).Message, "policy not found")

	w = do(t, s.Handler(), http.MethodPost, "/v1/aggregate", engine.Request{Policy: "join", Services: []string{"Z"}, Inputs: []string{"x"}})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, service.CodeServiceNotFound, decodeError(t, w).Code)
}

func TestAggregate_RateLimited(t *testing.T) {
	s := newTestServer(t, config.Server{RateLimit: 0.001, RateBurst: 1}, "A")
	body := engine.Request{Policy: "join", Inputs: []string{"x"}}

	first := do(t, s.Handler(), http.MethodPost, "/v1/aggregate", body)
	assert.Equal(t, http.StatusOK, first.Code)

	second := do(t, s.Handler(), http.MethodPost, "/v1/aggregate", body)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, service.CodeRateLimited, decodeError(t, second).Code)

	// Other routes are not limited.
	assert.Equal(t, http.StatusOK, do(t, s.Handler(), http.MethodGet, "/healthz", nil).Code)
}

// A second process aggregates over services hosted by the first.
func TestRemoteServicesAcrossServers(t *testing.T) {
	upstream := newTestServer(t, config.Server{}, "Hello", "World", "Broken:fail:offline")
	ts := httptest.NewServer(upstream.Handler())
	t.Cleanup(ts.Close)

	cfg := config.New()
	cfg.Services = []config.ServiceSpec{
		{ID: "hello", Kind: config.KindHTTP, Arg: ts.URL, Remote: "Hello"},
		{ID: "world", Kind: config.KindHTTP, Arg: ts.URL, Remote: "World"},
		{ID: "broken", Kind: config.KindHTTP, Arg: ts.URL, Remote: "Broken"},
	}
	require.NoError(t, cfg.Validate())
	eng, err := engine.FromConfig(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)

	rec, err := eng.Execute(context.Background(), engine.Request{Policy: "fail-soft", Inputs: []string{"msg"}, Fallback: "n/a"})
	require.NoError(t, err)
	assert.Equal(t, "Hello:MSG World:MSG n/a", rec.Value)

	rec, err = eng.Execute(context.Background(), engine.Request{Policy: "join", Inputs: []string{"msg"}})
	require.NoError(t, err)
	assert.Equal(t, output.StatusRejected, rec.Status)
	assert.Contains(t, rec.Error, "offline")
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	g := gomega.NewWithT(t)
	s := newTestServer(t, config.Server{}, "A")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/healthz"
	g.Eventually(func() int {
		resp, err := http.Get(url)
		if err != nil {
			return 0
		}
		_ = resp.Body.Close()
		return resp.StatusCode
	}).WithTimeout(2 * time.Second).Should(gomega.Equal(http.StatusOK))

	cancel()
	g.Eventually(done).WithTimeout(2 * time.Second).Should(gomega.Receive(gomega.BeNil()))
}
