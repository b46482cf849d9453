package monitor

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fyrsmithlabs/repolens/internal/repository"
	"github.com/fyrsmithlabs/repolens/internal/walker"
)

// IndexFunc indexes one repository, reporting each visited directory to
// progress.
type IndexFunc func(ctx context.Context, repo string, progress walker.Option) (*repository.IndexResult, error)

// Sender is the part of *tea.Program the indexing loop needs.
type Sender interface {
	Send(msg tea.Msg)
}

// Index calls index for each repo in order and reports progress and
// outcomes to s. It returns the outcomes in repos order. A failing repository
// never stops the others; a canceled context does.
func Index(ctx context.Context, s Sender, repos []string, index IndexFunc) []Outcome {
	outcomes := make([]Outcome, 0, len(repos))
	for _, repo := range repos {
		if ctx.Err() != nil {
			break
		}
		opt := walker.WithProgress(func(p walker.Progress) {
			s.Send(ProgressMsg{Repo: repo, Progress: p})
		})
		res, err := index(ctx, repo, opt)
		o := Outcome{Repo: repo, Result: res, Err: err}
		outcomes = append(outcomes, o)
		s.Send(RepoDoneMsg(o))
	}
	s.Send(DoneMsg{})
	return outcomes
}

// Run shows the dashboard on out while indexing repos. It returns when the
// last repository finished or the user quit.
func Run(ctx context.Context, out io.Writer, repos []string, index IndexFunc) ([]Outcome, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewModel(repos), tea.WithContext(ctx), tea.WithOutput(out))

	done := make(chan []Outcome, 1)
	go func() {
		done <- Index(ctx, p, repos, index)
	}()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		cancel()
		<-done
		return nil, err
	}
	// quitting early cancels the remaining repositories
	cancel()
	return <-done, nil
}
