package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fyrsmithlabs/repolens/internal/collections"
	"github.com/fyrsmithlabs/repolens/internal/embeddings/embeddingstest"
	"github.com/fyrsmithlabs/repolens/internal/logging"
	"github.com/fyrsmithlabs/repolens/internal/repository"
	"github.com/fyrsmithlabs/repolens/internal/vectorstore"
	"github.com/fyrsmithlabs/repolens/internal/walker/walkertest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type testServer struct {
	*Server
	embedder *embeddingstest.Words
	reader   *sdkmetric.ManualReader
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	vs, err := vectorstore.NewChromemStore(vectorstore.ChromemConfig{Path: t.TempDir()}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = vs.Close() })

	resolver := repository.StaticResolver{
		"demo": walkertest.New(
			walkertest.Text("a.py", "hello world"),
			walkertest.Text("c.md", "hello moon"),
		),
		"octo/tools": walkertest.New(walkertest.Text("cli.go", "package cli")),
		"empty":      walkertest.New(walkertest.File{Path: "x.png", Content: []byte{1}}),
	}
	emb := &embeddingstest.Words{}
	svc := repository.NewService(resolver, collections.New(vs, emb, nil), repository.WithLister(resolver))

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "repolens_test_total", Help: "test"}))

	reader := sdkmetric.NewManualReader()
	metrics := NewHTTPMetricsWithMeter(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test"), nil)

	srv, err := New(svc, logging.NewNop(), Config{Gatherer: reg, Metrics: metrics})
	require.NoError(t, err)
	return &testServer{Server: srv, embedder: emb, reader: reader}
}

func (s *testServer) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestNew_RequiresService(t *testing.T) {
	_, err := New(nil, nil, Config{})
	assert.ErrorContains(t, err, "repository service cannot be nil")
}

func TestNew_Defaults(t *testing.T) {
	srv := setupTestServer(t)
	assert.Equal(t, "127.0.0.1:8086", srv.config.Addr)
	assert.Equal(t, 10*time.Second, srv.config.ShutdownTimeout)
}

func TestHandleHealth(t *testing.T) {
	rec := setupTestServer(t).do(t, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[HealthResponse](t, rec).Status)
}

func TestIndexThenSearch(t *testing.T) {
	srv := setupTestServer(t)

	rec := srv.do(t, http.MethodPost, "/v1/index/demo")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[repository.IndexResult](t, rec)
	assert.Equal(t, 2, res.Documents)

	rec = srv.do(t, http.MethodPost, "/v1/index/octo/tools")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = srv.do(t, http.MethodGet, "/v1/indexed")
	require.Equal(t, http.StatusOK, rec.Code)
	indexed := decode[IndexedResponse](t, rec)
	assert.ElementsMatch(t, []repository.IndexedRepo{
		{Name: "demo", Documents: 2},
		{Name: "tools", Documents: 1},
	}, indexed.Repositories)

	rec = srv.do(t, http.MethodGet, "/v1/search?q=hello&repo=demo&n=1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	one := decode[SearchResponse](t, rec)
	require.Len(t, one.Rows, 1)
	assert.Equal(t, "demo", one.Rows[0].Repo)

	rec = srv.do(t, http.MethodGet, "/v1/search?q=hello&global_rank=true")
	require.Equal(t, http.StatusOK, rec.Code)
	all := decode[SearchResponse](t, rec)
	assert.Len(t, all.Rows, 3)
	assert.Equal(t, 2, srv.embedder.QueryCalls, "one embedding per search request")
}

func TestSearch_NotIndexedRepo(t *testing.T) {
	rec := setupTestServer(t).do(t, http.MethodGet, "/v1/search?q=hello&repo=ghost")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"query":"hello","rows":[]}`, rec.Body.String())
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		status int
		msg    string
	}{
		{"empty query", http.MethodGet, "/v1/search", http.StatusBadRequest, "empty search query"},
		{"bad n", http.MethodGet, "/v1/search?q=x&n=-2", http.StatusBadRequest, "n must be a positive integer"},
		{"zero preview", http.MethodGet, "/v1/search?q=x&preview=0", http.StatusBadRequest, "preview must be a positive integer"},
		{"bad global rank", http.MethodGet, "/v1/search?q=x&global_rank=maybe", http.StatusBadRequest, "global_rank must be a boolean"},
		{"unknown repository", http.MethodPost, "/v1/index/ghost", http.StatusNotFound, "unknown repository"},
		{"nothing to index", http.MethodPost, "/v1/index/empty", http.StatusUnprocessableEntity, "no indexable files"},
		{"no route", http.MethodGet, "/v2/nothing", http.StatusNotFound, "Not Found"},
	}

	srv := setupTestServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(t, tt.method, tt.target)
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, decode[ErrorResponse](t, rec).Error, tt.msg)
		})
	}
}

func TestSearch_StorageFailure(t *testing.T) {
	srv := setupTestServer(t)
	require.Equal(t, http.StatusOK, srv.do(t, http.MethodPost, "/v1/index/demo").Code)

	srv.embedder.Fail = embeddingstest.ErrInjected
	rec := srv.do(t, http.MethodGet, "/v1/search?q=hello")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestGrep(t *testing.T) {
	rec := setupTestServer(t).do(t, http.MethodGet, "/v1/grep?q=hello&repo=demo&repo=ghost")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[GrepResponse](t, rec)
	require.Len(t, resp.Repositories, 2)
	assert.Equal(t, "demo", resp.Repositories[0].Repo)
	assert.Len(t, resp.Repositories[0].Matches, 2)
	assert.Empty(t, resp.Repositories[0].Error)
	assert.Contains(t, resp.Repositories[1].Error, "unknown repository")
}

func TestMetricsEndpoint(t *testing.T) {
	rec := setupTestServer(t).do(t, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "repolens_test_total")
}

func TestMetricsMiddleware(t *testing.T) {
	srv := setupTestServer(t)
	srv.do(t, http.MethodGet, "/health")
	srv.do(t, http.MethodGet, "/v1/search")

	var rm metricdata.ResourceMetrics
	require.NoError(t, srv.reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	var statuses []int64
	for _, m := range rm.ScopeMetrics[0].Metrics {
		if m.Name != "repolens.http.requests_total" {
			continue
		}
		sum, ok := m.Data.(metricdata.Sum[int64])
		require.True(t, ok)
		for _, dp := range sum.DataPoints {
			v, _ := dp.Attributes.Value("status")
			statuses = append(statuses, v.AsInt64())
		}
	}
	assert.ElementsMatch(t, []int64{200, 400}, statuses)
}

func TestRun_StopsOnCancel(t *testing.T) {
	srv := setupTestServer(t)
	srv.config.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
