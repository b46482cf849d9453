// Package monitor renders live indexing progress in the terminal.
package monitor

import (
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/sparkline"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fyrsmithlabs/repolens/internal/repository"
	"github.com/fyrsmithlabs/repolens/internal/walker"
)

const (
	sparklineWidth  = 30
	sparklineHeight = 3
	historySize     = 30
	maxPathWidth    = 60
)

// Model is the bubbletea model for `repolens index --tui`.
type Model struct {
	repos    []string
	started  time.Time
	now      func() time.Time
	current  string
	progress walker.Progress
	// files discovered per directory, newest last
	history  []float64
	outcomes []Outcome
	quitting bool
	finished bool

	bar progress.Model
}

// Outcome is the result of indexing one repository.
type Outcome struct {
	Repo   string
	Result *repository.IndexResult
	Err    error
}

// ProgressMsg reports one directory visited in Repo.
type ProgressMsg struct {
	Repo string
	walker.Progress
}

// RepoDoneMsg reports that one repository finished.
type RepoDoneMsg Outcome

// DoneMsg reports that every requested repository was attempted.
type DoneMsg struct{}

type tickMsg time.Time

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("51")).
			Bold(true).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true).
			MarginTop(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	healthyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	containerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(1, 2)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			MarginTop(1)

	footerKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true)

	sparklineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51"))
)

// NewModel creates a model tracking repos.
func NewModel(repos []string) Model {
	return Model{
		repos:   repos,
		started: time.Now(),
		now:     time.Now,
		history: make([]float64, 0, historySize),
		bar: progress.New(
			progress.WithGradient("#00ffff", "#00ff00"),
			progress.WithWidth(40),
		),
	}
}

// Outcomes returns the repositories finished so far, in completion order.
func (m Model) Outcomes() []Outcome {
	return m.outcomes
}

// Ratio is the fraction of requested repositories finished.
func (m Model) Ratio() float64 {
	if len(m.repos) == 0 {
		return 1
	}
	r := float64(len(m.outcomes)) / float64(len(m.repos))
	if r > 1 {
		r = 1
	}
	return r
}

// appendToHistory appends a value to history, maintaining max size
func appendToHistory(history []float64, value float64) []float64 {
	history = append(history, value)
	if len(history) > historySize {
		history = history[1:]
	}
	return history
}

func createSparkline(data []float64) string {
	if len(data) == 0 {
		return dimStyle.Render(fmt.Sprintf("%*s", sparklineWidth, "no data"))
	}

	spark := sparkline.New(sparklineWidth, sparklineHeight)
	for _, v := range data {
		spark.Push(v)
	}
	spark.Draw()

	return sparklineStyle.Render(spark.View())
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init starts the elapsed-time ticker.
func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		if m.finished {
			return m, nil
		}
		return m, tick()

	case ProgressMsg:
		if msg.Repo != m.current {
			m.current = msg.Repo
			m.progress = walker.Progress{}
		}
		discovered := msg.Files - m.progress.Files
		if discovered < 0 {
			discovered = 0
		}
		m.history = appendToHistory(m.history, float64(discovered))
		m.progress = msg.Progress
		return m, nil

	case RepoDoneMsg:
		m.outcomes = append(m.outcomes, Outcome(msg))
		return m, nil

	case DoneMsg:
		m.finished = true
		return m, tea.Quit
	}

	return m, nil
}

// View renders the dashboard
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	elapsed := FormatElapsed(m.now().Sub(m.started))
	b.WriteString(headerStyle.Render(" repolens index ") + "   " +
		dimStyle.Render("Elapsed: ") + valueStyle.Render(elapsed) + "\n")

	b.WriteString(sectionStyle.Render("┃ Repositories") + "\n")
	ratio := m.Ratio()
	b.WriteString(labelStyle.Render("  Done: ") +
		m.bar.ViewAs(ratio) + " " +
		dimStyle.Render(fmt.Sprintf("%d/%d (%s)", len(m.outcomes), len(m.repos), FormatPercentage(ratio))) + "\n")

	if !m.finished && m.current != "" {
		b.WriteString(sectionStyle.Render("┃ Walking "+m.current) + "\n")
		b.WriteString(labelStyle.Render("  Path: ") + valueStyle.Render(TruncatePath(displayPath(m.progress.Path), maxPathWidth)) + "\n")
		b.WriteString(labelStyle.Render("  Dirs: ") + valueStyle.Render(fmt.Sprintf("%d", m.progress.Dirs)) +
			labelStyle.Render("  Files: ") + valueStyle.Render(fmt.Sprintf("%d", m.progress.Files)) + "\n")
		b.WriteString(labelStyle.Render("  Files/dir: ") + createSparkline(m.history) + "\n")
	}

	if len(m.outcomes) > 0 {
		b.WriteString(sectionStyle.Render("┃ Results") + "\n")
		for _, o := range m.outcomes {
			b.WriteString("  " + outcomeBadge(o) + " " + valueStyle.Render(o.Repo) + " " + dimStyle.Render(outcomeSummary(o)) + "\n")
		}
	}

	b.WriteString(footerKeyStyle.Render("[q]") + footerStyle.Render(" quit"))

	return containerStyle.Render(b.String())
}

func displayPath(p string) string {
	if p == "" {
		return "/"
	}
	return p
}

func outcomeBadge(o Outcome) string {
	switch {
	case o.Err != nil:
		return errorStyle.Render("[✗]")
	case o.Result != nil && o.Result.Stats.Errors > 0:
		return warningStyle.Render("[⚠]")
	default:
		return healthyStyle.Render("[✓]")
	}
}

func outcomeSummary(o Outcome) string {
	if o.Err != nil {
		return o.Err.Error()
	}
	if o.Result == nil {
		return ""
	}
	return fmt.Sprintf("%d documents, %d errors, %s", o.Result.Documents, o.Result.Stats.Errors, FormatElapsed(o.Result.Duration))
}
