package search

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/repolens/internal/walker"
)

// MaxPreviewLines is the number of matching lines kept per file.
const MaxPreviewLines = 3

// ErrEmptyQuery is returned for a blank query.
var ErrEmptyQuery = errors.New("empty search query")

// MatchLine is a matching line with its 1-based number.
type MatchLine struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// BasicMatch is a file containing the query.
type BasicMatch struct {
	Path  string      `json:"path"`
	Lines []MatchLine `json:"lines"`
}

// Preview renders the kept lines as "<n>: <line>", one per line.
func (m BasicMatch) Preview() string {
	var b strings.Builder
	for i, l := range m.Lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d: %s", l.Number, l.Text)
	}
	return b.String()
}

// Basic walks src afresh and returns every text file containing query,
// case-insensitively, in traversal order. Unreadable directories and files
// are skipped and counted in the returned stats.
func Basic(ctx context.Context, src walker.Source, query string, opts ...walker.Option) ([]BasicMatch, walker.Stats, error) {
	if strings.TrimSpace(query) == "" {
		return nil, walker.Stats{}, ErrEmptyQuery
	}
	needle := strings.ToLower(query)
	matches := make([]BasicMatch, 0)

	visit := func(ctx context.Context, e walker.Entry) error {
		if !walker.IsTextPath(e.Path) {
			return nil
		}
		content, err := src.ReadFile(ctx, e.Path)
		if err != nil {
			if walker.IsAccessError(err) || ctx.Err() != nil {
				return err
			}
			return &walker.AccessError{Op: "read", Path: e.Path, Err: err}
		}
		if !walker.Admit(e.Path, content) {
			return walker.ErrUndecodable
		}
		if lines := matchLines(string(content), needle); len(lines) > 0 {
			matches = append(matches, BasicMatch{Path: e.Path, Lines: lines})
		}
		return nil
	}

	stats, err := walker.Walk(ctx, src, visit, opts...)
	if err != nil {
		return nil, stats, err
	}
	return matches, stats, nil
}

// matchLines returns up to MaxPreviewLines lines containing needle, which
// must already be lower-cased.
func matchLines(content, needle string) []MatchLine {
	var out []MatchLine
	sc := bufio.NewScanner(strings.NewReader(content))
	sc.Buffer(make([]byte, 0, 64*1024), len(content)+1)
	for n := 1; sc.Scan(); n++ {
		line := sc.Text()
		if strings.Contains(strings.ToLower(line), needle) {
			out = append(out, MatchLine{Number: n, Text: strings.TrimRight(line, "\r")})
			if len(out) == MaxPreviewLines {
				break
			}
		}
	}
	return out
}
