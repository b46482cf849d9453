package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fyrsmithlabs/repolens/internal/repository"
	"github.com/fyrsmithlabs/repolens/internal/walker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func TestNewModel(t *testing.T) {
	m := NewModel([]string{"a", "b"})
	assert.Equal(t, []string{"a", "b"}, m.repos)
	assert.False(t, m.quitting)
	assert.Equal(t, 0.0, m.Ratio())
	assert.NotNil(t, m.Init())
}

func TestModel_QuitKey(t *testing.T) {
	m, cmd := update(t, NewModel(nil), tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	assert.True(t, m.quitting)
	assert.NotNil(t, cmd)
	assert.Empty(t, m.View())
}

func TestModel_ProgressHistoryIsPerDirectory(t *testing.T) {
	m := NewModel([]string{"demo"})

	m, _ = update(t, m, ProgressMsg{Repo: "demo", Progress: walker.Progress{Path: "", Dirs: 1, Files: 3}})
	m, _ = update(t, m, ProgressMsg{Repo: "demo", Progress: walker.Progress{Path: "src", Dirs: 2, Files: 5}})
	m, _ = update(t, m, ProgressMsg{Repo: "demo", Progress: walker.Progress{Path: "src/pkg", Dirs: 3, Files: 5}})

	assert.Equal(t, []float64{3, 2, 0}, m.history)
	assert.Equal(t, "src/pkg", m.progress.Path)

	// a new repository restarts the running totals
	m, _ = update(t, m, ProgressMsg{Repo: "other", Progress: walker.Progress{Dirs: 1, Files: 4}})
	assert.Equal(t, []float64{3, 2, 0, 4}, m.history)
	assert.Equal(t, "other", m.current)
}

func TestModel_HistoryIsBounded(t *testing.T) {
	m := NewModel([]string{"demo"})
	for i := 1; i <= historySize+5; i++ {
		m, _ = update(t, m, ProgressMsg{Repo: "demo", Progress: walker.Progress{Dirs: i, Files: i}})
	}
	assert.Len(t, m.history, historySize)
}

func TestModel_OutcomesAndDone(t *testing.T) {
	m := NewModel([]string{"a", "b"})

	m, _ = update(t, m, RepoDoneMsg{Repo: "a", Result: &repository.IndexResult{Repo: "a", Documents: 4}})
	assert.Equal(t, 0.5, m.Ratio())

	m, _ = update(t, m, RepoDoneMsg{Repo: "b", Err: errors.New("boom")})
	assert.Equal(t, 1.0, m.Ratio())
	require.Len(t, m.Outcomes(), 2)

	view := m.View()
	assert.Contains(t, view, "4 documents")
	assert.Contains(t, view, "boom")
	assert.Contains(t, view, "2/2")

	m, cmd := update(t, m, DoneMsg{})
	assert.True(t, m.finished)
	assert.NotNil(t, cmd)

	_, cmd = update(t, m, tickMsg(time.Now()))
	assert.Nil(t, cmd)
}

func TestModel_ViewShowsCurrentWalk(t *testing.T) {
	m := NewModel([]string{"demo"})
	m, _ = update(t, m, ProgressMsg{Repo: "demo", Progress: walker.Progress{Path: "docs", Dirs: 2, Files: 7}})

	view := m.View()
	assert.Contains(t, view, "Walking demo")
	assert.Contains(t, view, "docs")
	assert.Contains(t, view, "0/1")
}

func TestModel_RatioWithNoRepos(t *testing.T) {
	assert.Equal(t, 1.0, NewModel(nil).Ratio())
}

type recorder struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (r *recorder) Send(msg tea.Msg) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func TestIndex_ReportsProgressAndOutcomes(t *testing.T) {
	rec := &recorder{}
	index := func(ctx context.Context, repo string, _ walker.Option) (*repository.IndexResult, error) {
		if repo == "bad" {
			return nil, errors.New("unreachable")
		}
		return &repository.IndexResult{Repo: repo, Documents: 1}, nil
	}

	outcomes := Index(context.Background(), rec, []string{"good", "bad", "also"}, index)

	require.Len(t, outcomes, 3)
	assert.NoError(t, outcomes[0].Err)
	assert.Error(t, outcomes[1].Err)
	assert.Equal(t, "also", outcomes[2].Repo)

	require.Len(t, rec.msgs, 4)
	assert.Equal(t, RepoDoneMsg(outcomes[0]), rec.msgs[0])
	assert.IsType(t, DoneMsg{}, rec.msgs[3])
}

func TestIndex_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	index := func(ctx context.Context, repo string, _ walker.Option) (*repository.IndexResult, error) {
		calls++
		cancel()
		return nil, ctx.Err()
	}

	outcomes := Index(ctx, &recorder{}, []string{"a", "b"}, index)
	assert.Equal(t, 1, calls)
	assert.Len(t, outcomes, 1)
}
