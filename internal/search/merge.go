package search

import (
	"sort"

	"github.com/fyrsmithlabs/repolens/internal/collections"
)

const (
	// DefaultPreviewLength is the rune budget for a semantic result preview.
	DefaultPreviewLength = 500

	// DefaultPerCollection caps the hits taken from each collection.
	DefaultPerCollection = 5

	// Ellipsis marks a truncated preview.
	Ellipsis = "..."
)

// Row is one line of an aggregated result table.
type Row struct {
	Repo     string  `json:"repo"`
	Path     string  `json:"path"`
	Preview  string  `json:"preview"`
	Distance float32 `json:"distance"`
}

// MergeOptions controls Merge.
type MergeOptions struct {
	PreviewLength int
	PerCollection int
	// GlobalRank sorts the merged rows by distance. When false, rows keep
	// collection enumeration order and a close hit in a later collection
	// still appears after every hit of earlier collections.
	GlobalRank bool
}

func (o MergeOptions) withDefaults() MergeOptions {
	if o.PreviewLength <= 0 {
		o.PreviewLength = DefaultPreviewLength
	}
	if o.PerCollection <= 0 {
		o.PerCollection = DefaultPerCollection
	}
	return o
}

// Merge concatenates per-collection hits in the order given. Each collection
// contributes at most PerCollection rows, applied before concatenation.
func Merge(results []collections.QueryResult, opts MergeOptions) []Row {
	opts = opts.withDefaults()

	rows := make([]Row, 0)
	for _, r := range results {
		hits := r.Hits
		if len(hits) > opts.PerCollection {
			hits = hits[:opts.PerCollection]
		}
		for _, h := range hits {
			path := h.Metadata["path"]
			if path == "" {
				path = h.ID
			}
			rows = append(rows, Row{
				Repo:     r.Collection,
				Path:     path,
				Preview:  Preview(h.Content, opts.PreviewLength),
				Distance: h.Distance,
			})
		}
	}

	if opts.GlobalRank {
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Distance < rows[j].Distance })
	}
	return rows
}

// Preview returns content when it is at most n runes long, otherwise its
// first n runes followed by Ellipsis.
func Preview(content string, n int) string {
	if n < 0 {
		n = 0
	}
	count := 0
	for i := range content {
		if count == n {
			return content[:i] + Ellipsis
		}
		count++
	}
	return content
}
