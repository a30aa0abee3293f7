package httpadapter_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-alert-delays/internal/adapter/httpadapter"
	"github.com/couchcryptid/storm-alert-delays/internal/pipeline"
)

const testKey = "s3cret"

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockRunner struct {
	res   pipeline.Result
	err   error
	calls int
}

func (m *mockRunner) Run(_ context.Context) (pipeline.Result, error) {
	m.calls++
	return m.res, m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(readyErr error, runner httpadapter.Runner, key string) *httpadapter.Server {
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, runner, key, discardLogger())
}

func do(srv http.Handler, method, path string, header map[string]string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := do(newTestServer(nil, nil, ""), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := do(newTestServer(nil, nil, ""), http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := do(newTestServer(fmt.Errorf("no report run has completed yet"), nil, ""), http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := do(newTestServer(nil, nil, ""), http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestBanner(t *testing.T) {
	srv := newTestServer(nil, nil, "")

	rec := do(srv, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, httpadapter.Banner, rec.Body.String())

	rec = do(srv, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckOrders(t *testing.T) {
	okRunner := func() *mockRunner {
		return &mockRunner{res: pipeline.Result{Alerts: 4, Orders: 10, MatchedOrders: 3, ReportPath: "reports/r.xlsx"}}
	}

	tests := []struct {
		name       string
		runner     *mockRunner
		key        string
		path       string
		wantStatus int
		wantCalls  int
		wantBody   string
	}{
		{
			name:       "valid key runs pipeline",
			runner:     okRunner(),
			key:        testKey,
			path:       "/check-orders",
			wantStatus: http.StatusOK,
			wantCalls:  1,
			wantBody:   `{"alerts":4,"orders":10,"matched_orders":3,"report_path":"reports/r.xlsx"}`,
		},
		{
			name:       "underscore alias",
			runner:     okRunner(),
			key:        testKey,
			path:       "/check_orders",
			wantStatus: http.StatusOK,
			wantCalls:  1,
		},
		{
			name:       "wrong key",
			runner:     okRunner(),
			key:        "guess",
			path:       "/check-orders",
			wantStatus: http.StatusForbidden,
			wantBody:   `{"error":"Unauthorized"}`,
		},
		{
			name:       "missing key",
			runner:     okRunner(),
			path:       "/check-orders",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "run in progress",
			runner:     &mockRunner{err: pipeline.ErrRunInProgress},
			key:        testKey,
			path:       "/check-orders",
			wantStatus: http.StatusConflict,
			wantCalls:  1,
		},
		{
			name:       "run failure",
			runner:     &mockRunner{err: errors.New("load orders: file not found")},
			key:        testKey,
			path:       "/check-orders",
			wantStatus: http.StatusInternalServerError,
			wantCalls:  1,
			wantBody:   `{"error":"load orders: file not found"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(nil, tt.runner, testKey)
			header := map[string]string{}
			if tt.key != "" {
				header[httpadapter.APIKeyHeader] = tt.key
			}

			rec := do(srv, http.MethodPost, tt.path, header)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCalls, tt.runner.calls)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestCheckOrders_DisabledWithoutKey(t *testing.T) {
	runner := &mockRunner{}
	srv := newTestServer(nil, runner, "")

	rec := do(srv, http.MethodPost, "/check-orders", map[string]string{httpadapter.APIKeyHeader: ""})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Zero(t, runner.calls)
}

func TestCheckOrders_RejectsGet(t *testing.T) {
	srv := newTestServer(nil, &mockRunner{}, testKey)

	rec := do(srv, http.MethodGet, "/check-orders", map[string]string{httpadapter.APIKeyHeader: testKey})
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCheckOrders_ResponseDecodesToResult(t *testing.T) {
	want := pipeline.Result{Alerts: 2, Orders: 5, MatchedOrders: 1, ReportPath: "reports/r.xlsx"}
	srv := newTestServer(nil, &mockRunner{res: want}, testKey)

	rec := do(srv, http.MethodPost, "/check-orders", map[string]string{httpadapter.APIKeyHeader: testKey})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got pipeline.Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, want, got)
}
