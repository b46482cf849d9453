package main

import (
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fyrsmithlabs/repolens/internal/monitor"
	"github.com/fyrsmithlabs/repolens/internal/render"
)

// printer receives index messages without a terminal UI and prints one
// summary line per finished repository.
type printer struct {
	w io.Writer
}

func (p printer) Send(msg tea.Msg) {
	if done, ok := msg.(monitor.RepoDoneMsg); ok {
		fmt.Fprintln(p.w, render.IndexSummary(done.Repo, done.Result, done.Err))
	}
}
