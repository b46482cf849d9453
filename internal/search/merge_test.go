package search_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/fyrsmithlabs/repolens/internal/collections"
	"github.com/fyrsmithlabs/repolens/internal/search"
	"github.com/fyrsmithlabs/repolens/internal/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hit(path string, distance float32) vectorstore.Hit {
	return vectorstore.Hit{
		ID:       "x_" + path,
		Content:  "content of " + path,
		Metadata: map[string]string{"path": path},
		Distance: distance,
	}
}

func TestPreview(t *testing.T) {
	tests := []struct {
		name    string
		content string
		n       int
		want    string
	}{
		{"shorter than limit", "hello", 10, "hello"},
		{"exactly the limit", "hello", 5, "hello"},
		{"longer than limit", "hello world", 5, "hello..."},
		{"multibyte runes", "héllo wörld", 4, "héll..."},
		{"empty", "", 3, ""},
		{"zero limit", "abc", 0, "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, search.Preview(tt.content, tt.n))
		})
	}
}

func TestPreview_TruncationLaw(t *testing.T) {
	for _, n := range []int{1, 7, 50, 500} {
		for _, length := range []int{0, 1, n - 1, n, n + 1, 3 * n} {
			if length < 0 {
				continue
			}
			content := strings.Repeat("ü", length)
			got := search.Preview(content, n)
			if length <= n {
				assert.Equal(t, content, got)
				continue
			}
			assert.Equal(t, n+utf8.RuneCountInString(search.Ellipsis), utf8.RuneCountInString(got))
			assert.True(t, strings.HasSuffix(got, search.Ellipsis))
		}
	}
}

func TestMerge_KeepsCollectionOrder(t *testing.T) {
	results := []collections.QueryResult{
		{Collection: "alpha", Hits: []vectorstore.Hit{hit("a1.go", 0.4), hit("a2.go", 0.5)}},
		{Collection: "beta", Hits: []vectorstore.Hit{hit("b1.go", 0.1)}},
	}

	rows := search.Merge(results, search.MergeOptions{})
	require.Len(t, rows, 3)
	assert.Equal(t, "alpha", rows[0].Repo)
	assert.Equal(t, "a1.go", rows[0].Path)
	assert.Equal(t, "a2.go", rows[1].Path)
	// a closer hit in a later collection is not promoted
	assert.Equal(t, "b1.go", rows[2].Path)
	assert.Equal(t, "content of a1.go", rows[0].Preview)
}

func TestMerge_GlobalRank(t *testing.T) {
	results := []collections.QueryResult{
		{Collection: "alpha", Hits: []vectorstore.Hit{hit("a1.go", 0.4), hit("a2.go", 0.5)}},
		{Collection: "beta", Hits: []vectorstore.Hit{hit("b1.go", 0.1)}},
	}

	rows := search.Merge(results, search.MergeOptions{GlobalRank: true})
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"b1.go", "a1.go", "a2.go"}, []string{rows[0].Path, rows[1].Path, rows[2].Path})
}

func TestMerge_CapsBeforeConcatenation(t *testing.T) {
	var many []vectorstore.Hit
	for i := 0; i < 8; i++ {
		many = append(many, hit(strings.Repeat("x", i+1)+".go", float32(i)/10))
	}
	results := []collections.QueryResult{
		{Collection: "big", Hits: many},
		{Collection: "small", Hits: []vectorstore.Hit{hit("s.go", 0)}},
	}

	rows := search.Merge(results, search.MergeOptions{PerCollection: 3})
	require.Len(t, rows, 4)
	assert.Equal(t, "small", rows[3].Repo)

	rows = search.Merge(results, search.MergeOptions{})
	assert.Len(t, rows, search.DefaultPerCollection+1)
}

func TestMerge_PreviewLength(t *testing.T) {
	long := vectorstore.Hit{ID: "r_big.md", Content: strings.Repeat("a", 600)}
	rows := search.Merge([]collections.QueryResult{{Collection: "r", Hits: []vectorstore.Hit{long}}}, search.MergeOptions{})
	require.Len(t, rows, 1)
	assert.Equal(t, search.DefaultPreviewLength+len(search.Ellipsis), len(rows[0].Preview))
	// path falls back to the id when metadata is missing
	assert.Equal(t, "r_big.md", rows[0].Path)

	rows = search.Merge([]collections.QueryResult{{Collection: "r", Hits: []vectorstore.Hit{long}}}, search.MergeOptions{PreviewLength: 10})
	assert.Equal(t, strings.Repeat("a", 10)+"...", rows[0].Preview)
}

func TestMerge_Empty(t *testing.T) {
	rows := search.Merge(nil, search.MergeOptions{})
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}
