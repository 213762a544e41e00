package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tomasbasham/storage-smoke/internal/operation"
	"github.com/tomasbasham/storage-smoke/internal/smoke"
	"github.com/tomasbasham/storage-smoke/internal/storage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	local, err := storage.NewLocalStore(t.TempDir(), "smoke")
	require.NoError(t, err)
	tester, err := smoke.New(smoke.Options{Store: local})
	require.NoError(t, err)

	srv := httptest.NewServer(New(operation.NewMemoryStore(), tester, zap.NewNop()).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func postRun(t *testing.T, srv *httptest.Server, body string) (*http.Response, createRunResponse) {
	t.Helper()

	resp, err := http.Post(srv.URL+"/checks", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out createRunResponse
	if resp.StatusCode == http.StatusAccepted {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func getRun(t *testing.T, srv *httptest.Server, id string) (int, operation.Operation) {
	t.Helper()

	resp, err := http.Get(srv.URL + "/checks/" + id)
	require.NoError(t, err)
	defer resp.Body.Close()

	var op operation.Operation
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&op))
	}
	return resp.StatusCode, op
}

func TestServer_RunLifecycle(t *testing.T) {
	srv := newTestServer(t)

	resp, created := postRun(t, srv, `{"cleanup": true}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.NotEmpty(t, created.OperationID)
	assert.Equal(t, string(operation.StatusPending), created.Status)

	var op operation.Operation
	require.Eventually(t, func() bool {
		var code int
		code, op = getRun(t, srv, created.OperationID)
		return code == http.StatusOK && op.Status.Done()
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, operation.StatusPassed, op.Status)
	assert.True(t, op.Cleanup)
	require.NotNil(t, op.Report)
	require.NotNil(t, op.Report.Upload)
	assert.True(t, op.Report.Upload.ContentMatch)
	require.NotNil(t, op.Report.List)
	assert.Empty(t, op.Report.List.Names)

	metrics, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer metrics.Body.Close()
	body, err := io.ReadAll(metrics.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `smoke_checks_total{check="upload",outcome="pass"} 1`)
	assert.Contains(t, string(body), `smoke_checks_total{check="list",outcome="pass"} 1`)
	assert.Contains(t, string(body), `smoke_check_duration_seconds_count{check="upload"} 1`)
}

func TestServer_SelectedChecks(t *testing.T) {
	srv := newTestServer(t)

	resp, created := postRun(t, srv, `{"checks": ["list"]}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var op operation.Operation
	require.Eventually(t, func() bool {
		_, op = getRun(t, srv, created.OperationID)
		return op.Status.Done()
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, []smoke.Check{smoke.CheckList}, op.Checks)
	assert.Nil(t, op.Report.Upload)
	assert.NotNil(t, op.Report.List)
}

func TestServer_EmptyBody(t *testing.T) {
	srv := newTestServer(t)

	resp, created := postRun(t, srv, ``)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var op operation.Operation
	require.Eventually(t, func() bool {
		_, op = getRun(t, srv, created.OperationID)
		return op.Status.Done()
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, smoke.AllChecks, op.Checks)
	assert.False(t, op.Cleanup)
}

func TestServer_BadRequests(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"invalid JSON", `{"checks":`},
		{"unknown check", `{"checks": ["download"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := postRun(t, srv, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestServer_NotFound(t *testing.T) {
	srv := newTestServer(t)

	code, _ := getRun(t, srv, "does-not-exist")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestMetrics_ObserveFailure(t *testing.T) {
	m := NewMetrics()
	m.Observe(&smoke.Report{
		Upload: &smoke.UploadResult{Upload: smoke.Step{Failure: &smoke.Failure{Kind: smoke.KindProtocol}}},
		List:   &smoke.ListResult{Failure: &smoke.Failure{Kind: smoke.KindDecode}},
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Contains(t, rec.Body.String(), `smoke_checks_total{check="upload",outcome="protocol"} 1`)
	assert.Contains(t, rec.Body.String(), `smoke_checks_total{check="list",outcome="decode"} 1`)
}
