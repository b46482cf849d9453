package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/fyrsmithlabs/repolens/internal/collections"
	"github.com/fyrsmithlabs/repolens/internal/embeddings/embeddingstest"
	"github.com/fyrsmithlabs/repolens/internal/logging"
	"github.com/fyrsmithlabs/repolens/internal/repository"
	"github.com/fyrsmithlabs/repolens/internal/search"
	"github.com/fyrsmithlabs/repolens/internal/vectorstore"
	"github.com/fyrsmithlabs/repolens/internal/walker/walkertest"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type harness struct {
	session  *mcp.ClientSession
	embedder *embeddingstest.Words
	reader   *sdkmetric.ManualReader
}

func setup(t *testing.T) *harness {
	t.Helper()
	vs, err := vectorstore.NewChromemStore(vectorstore.ChromemConfig{Path: t.TempDir()}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = vs.Close() })

	resolver := repository.StaticResolver{
		"demo": walkertest.New(
			walkertest.Text("a.py", "hello world"),
			walkertest.Text("c.md", "hello moon"),
		),
		"empty": walkertest.New(walkertest.File{Path: "x.png", Content: []byte{1}}),
	}
	emb := &embeddingstest.Words{}
	svc := repository.NewService(resolver, collections.New(vs, emb, nil))

	reader := sdkmetric.NewManualReader()
	metrics := NewMetricsWithMeter(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test"), nil)

	srv, err := NewServer(&Config{Name: "repolens", Version: "test", Logger: logging.NewNop(), Metrics: metrics}, svc)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	go func() { _ = srv.RunTransport(ctx, serverTransport) }()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = session.Close()
		cancel()
	})

	return &harness{session: session, embedder: emb, reader: reader}
}

func call[T any](t *testing.T, h *harness, name string, args map[string]any) T {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res, err := h.session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.False(t, res.IsError, "tool %s returned an error: %v", name, res.Content)

	raw, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func callError(t *testing.T, h *harness, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	res, err := h.session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.True(t, res.IsError)
	return res
}

func TestNewServer_RequiresService(t *testing.T) {
	_, err := NewServer(nil, nil)
	assert.ErrorContains(t, err, "repository service is required")
}

func TestListTools(t *testing.T) {
	h := setup(t)

	res, err := h.session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"search_indexed", "search_repository", "list_indexed", "index_repository"}, names)
}

func TestIndexThenSearch(t *testing.T) {
	h := setup(t)

	idx := call[indexRepositoryOutput](t, h, "index_repository", map[string]any{"repo": "demo"})
	assert.Equal(t, "demo", idx.Repo)
	assert.Equal(t, 2, idx.Documents)
	assert.Equal(t, "created", idx.State)

	listed := call[listIndexedOutput](t, h, "list_indexed", map[string]any{})
	assert.Equal(t, 1, listed.Count)
	assert.Equal(t, []repository.IndexedRepo{{Name: "demo", Documents: 2}}, listed.Repositories)

	found := call[searchOutput](t, h, "search_indexed", map[string]any{"query": "hello", "n": 2})
	require.Equal(t, 2, found.Count)
	paths := []string{found.Rows[0].Path, found.Rows[1].Path}
	assert.ElementsMatch(t, []string{"a.py", "c.md"}, paths)
	for _, row := range found.Rows {
		assert.Equal(t, "demo", row.Repo)
	}

	one := call[searchOutput](t, h, "search_repository", map[string]any{"repo": "demo", "query": "moon", "n": 1})
	require.Len(t, one.Rows, 1)
	assert.Equal(t, "c.md", one.Rows[0].Path)
}

func TestSearchRepository_NotIndexed(t *testing.T) {
	h := setup(t)

	out := call[searchOutput](t, h, "search_repository", map[string]any{"repo": "demo", "query": "hello"})
	assert.Equal(t, 0, out.Count)
	assert.Empty(t, out.Rows)
}

func TestToolErrors(t *testing.T) {
	h := setup(t)

	callError(t, h, "index_repository", map[string]any{"repo": ""})
	callError(t, h, "index_repository", map[string]any{"repo": "missing"})
	callError(t, h, "index_repository", map[string]any{"repo": "empty"})
	callError(t, h, "search_indexed", map[string]any{"query": ""})
}

func TestMetrics_RecordsInvocationsAndErrors(t *testing.T) {
	h := setup(t)

	call[listIndexedOutput](t, h, "list_indexed", map[string]any{})
	callError(t, h, "search_indexed", map[string]any{"query": ""})

	var rm metricdata.ResourceMetrics
	require.NoError(t, h.reader.Collect(context.Background(), &rm))

	counts := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				counts[m.Name] += dp.Value
			}
		}
	}
	assert.Equal(t, int64(2), counts["repolens.mcp.tool.invocations_total"])
	assert.Equal(t, int64(1), counts["repolens.mcp.tool.errors_total"])
	assert.Equal(t, int64(0), counts["repolens.mcp.tool.active_requests"])
}

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{search.ErrEmptyQuery, "validation_error"},
		{repository.ErrUnknownRepository, "not_found"},
		{repository.ErrNothingToIndex, "empty_repository"},
		{collections.ErrStorage, "storage_error"},
		{context.DeadlineExceeded, "timeout"},
		{errors.New("boom"), "internal_error"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, categorizeError(tt.err), "%v", tt.err)
	}
}
