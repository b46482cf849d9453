// Package render formats CLI output with lipgloss.
package render

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/lipgloss/tree"
	"github.com/fyrsmithlabs/repolens/internal/ghclient"
	"github.com/fyrsmithlabs/repolens/internal/repository"
	"github.com/fyrsmithlabs/repolens/internal/search"
	"github.com/fyrsmithlabs/repolens/internal/walker"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("45"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("51")).Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	dirStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("45")).Bold(true)
)

// Success renders a "✓ msg" line.
func Success(format string, args ...any) string {
	return successStyle.Render("✓") + " " + fmt.Sprintf(format, args...)
}

// Info renders a "ℹ msg" line.
func Info(format string, args ...any) string {
	return infoStyle.Render("ℹ") + " " + fmt.Sprintf(format, args...)
}

// Warning renders a "⚠ msg" line.
func Warning(format string, args ...any) string {
	return warningStyle.Render("⚠") + " " + fmt.Sprintf(format, args...)
}

// Error renders a "✗ msg" line.
func Error(format string, args ...any) string {
	return errorStyle.Render("✗") + " " + fmt.Sprintf(format, args...)
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...)
}

// Repositories renders the repository listing.
func Repositories(repos []ghclient.Repository) string {
	if len(repos) == 0 {
		return Info("no repositories found")
	}
	t := newTable("NAME", "VISIBILITY", "DESCRIPTION")
	for _, r := range repos {
		t.Row(r.FullName, r.Visibility(), search.Preview(r.Description, 60))
	}
	return t.String()
}

// Indexed renders indexed repositories with their document counts. A count
// of -1 means it could not be read.
func Indexed(repos []repository.IndexedRepo) string {
	if len(repos) == 0 {
		return Info("no repositories indexed yet")
	}
	t := newTable("REPOSITORY", "DOCUMENTS")
	for _, r := range repos {
		count := strconv.Itoa(r.Documents)
		if r.Documents < 0 {
			count = "?"
		}
		t.Row(r.Name, count)
	}
	return t.String()
}

// Rows renders semantic search rows in the order given.
func Rows(rows []search.Row) string {
	if len(rows) == 0 {
		return Info("no results")
	}
	t := newTable("REPOSITORY", "PATH", "DISTANCE", "PREVIEW")
	for _, r := range rows {
		t.Row(r.Repo, r.Path, strconv.FormatFloat(float64(r.Distance), 'f', 4, 32), r.Preview)
	}
	return t.String()
}

// BasicResults renders grep results with previews cut to previewLength
// runes. Repositories that failed get an error row.
func BasicResults(results []repository.BasicRepoResult, previewLength int) string {
	t := newTable("REPOSITORY", "PATH", "MATCHES")
	rows := 0
	for _, r := range results {
		if r.Err != nil {
			t.Row(r.Repo, "", errorStyle.Render(r.Err.Error()))
			rows++
			continue
		}
		for _, m := range r.Matches {
			t.Row(r.Repo, m.Path, search.Preview(m.Preview(), previewLength))
			rows++
		}
	}
	if rows == 0 {
		return Info("no matches")
	}
	return t.String()
}

// Tree renders a repository structure. Directories that could not be listed
// show their error.
func Tree(root *walker.Node) string {
	t := tree.Root(dirStyle.Render(root.Name)).Enumerator(tree.RoundedEnumerator).EnumeratorStyle(borderStyle)
	addChildren(t, root)
	return t.String()
}

func addChildren(t *tree.Tree, n *walker.Node) {
	if n.Err != nil {
		t.Child(errorStyle.Render("error: " + n.Err.Error()))
		return
	}
	for _, c := range n.Children {
		if c.Type != walker.EntryDir {
			t.Child(c.Name)
			continue
		}
		sub := tree.Root(dirStyle.Render(c.Name + "/"))
		addChildren(sub, c)
		t.Child(sub)
	}
}

// IndexSummary renders the outcome of one index attempt.
func IndexSummary(repo string, res *repository.IndexResult, err error) string {
	if err != nil {
		return Error("%s: %v", repo, err)
	}
	line := fmt.Sprintf("%s: indexed %d files, %d errors", res.Repo, res.Documents, res.Stats.Errors)
	var extra []string
	if res.Stats.Undecodable > 0 {
		extra = append(extra, fmt.Sprintf("%d undecodable", res.Stats.Undecodable))
	}
	if res.Redacted > 0 {
		extra = append(extra, fmt.Sprintf("%d redacted", res.Redacted))
	}
	extra = append(extra, res.State.String())
	for _, e := range extra {
		line += dimStyle.Render(" · " + e)
	}
	if res.Stats.Errors > 0 {
		return Warning("%s", line)
	}
	return Success("%s", line)
}
