package search_test

import (
	"context"
	"testing"

	"github.com/fyrsmithlabs/repolens/internal/logging"
	"github.com/fyrsmithlabs/repolens/internal/search"
	"github.com/fyrsmithlabs/repolens/internal/walker"
	"github.com/fyrsmithlabs/repolens/internal/walker/walkertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestBasic_MatchesCaseInsensitively(t *testing.T) {
	src := walkertest.New(
		walkertest.Text("a.py", "import os\nprint('Hello')\n"),
		walkertest.Text("b.png", "hello"),
		walkertest.Text("docs/c.md", "# Title\nnothing here\n"),
		walkertest.Text("docs/d.txt", "HELLO there"),
	)

	matches, stats, err := search.Basic(context.Background(), src, "hello")
	require.NoError(t, err)

	require.Len(t, matches, 2)
	assert.Equal(t, "a.py", matches[0].Path)
	assert.Equal(t, []search.MatchLine{{Number: 2, Text: "print('Hello')"}}, matches[0].Lines)
	assert.Equal(t, "docs/d.txt", matches[1].Path)
	assert.Equal(t, 0, stats.Errors)
	assert.NotContains(t, src.ReadCalls, "b.png")
}

func TestBasic_KeepsFirstThreeLines(t *testing.T) {
	src := walkertest.New(walkertest.Text("log.txt", "x1\ny\nx2\nx3\nz\nx4\n"))

	matches, _, err := search.Basic(context.Background(), src, "X")
	require.NoError(t, err)
	require.Len(t, matches, 1)

	assert.Len(t, matches[0].Lines, search.MaxPreviewLines)
	assert.Equal(t, "1: x1\n3: x2\n4: x3", matches[0].Preview())
}

func TestBasic_CRLF(t *testing.T) {
	src := walkertest.New(walkertest.Text("win.txt", "first\r\nneedle line\r\n"))

	matches, _, err := search.Basic(context.Background(), src, "needle")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "needle line", matches[0].Lines[0].Text)
}

func TestBasic_NoMatches(t *testing.T) {
	src := walkertest.New(walkertest.Text("a.go", "package a"))

	matches, _, err := search.Basic(context.Background(), src, "zebra")
	require.NoError(t, err)
	assert.NotNil(t, matches)
	assert.Empty(t, matches)
}

func TestBasic_EmptyQuery(t *testing.T) {
	_, _, err := search.Basic(context.Background(), walkertest.New(), "   ")
	assert.ErrorIs(t, err, search.ErrEmptyQuery)
}

func TestBasic_RecoversDirectoryErrors(t *testing.T) {
	src := walkertest.New(
		walkertest.Text("private/a.md", "needle"),
		walkertest.Text("public/b.md", "needle"),
		walkertest.File{Path: "raw.txt", Content: []byte{0xff, 'n', 'e', 'e', 'd', 'l', 'e'}},
	).FailDir("private")

	logger := logging.NewTestLogger()
	matches, stats, err := search.Basic(context.Background(), src, "needle", walker.WithLogger(logger.Logger))
	require.NoError(t, err)

	require.Len(t, matches, 1)
	assert.Equal(t, "public/b.md", matches[0].Path)
	assert.Equal(t, 1, stats.Errors)
	assert.Equal(t, 1, stats.Undecodable)
	logger.AssertLogged(t, zapcore.WarnLevel, "error accessing directory")
}

func TestBasic_RootFailure(t *testing.T) {
	src := walkertest.New(walkertest.Text("a.md", "x")).FailDir("")

	_, _, err := search.Basic(context.Background(), src, "x")
	assert.ErrorIs(t, err, walker.ErrRootUnavailable)
}
