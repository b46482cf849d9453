// Package walkertest provides an in-memory walker.Source for tests.
package walkertest

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/fyrsmithlabs/repolens/internal/walker"
)

// ErrForbidden is the cause attached to injected access failures.
var ErrForbidden = errors.New("403 forbidden")

// File is one file of an in-memory repository.
type File struct {
	Path    string
	Content []byte
}

// Text returns a File with string content.
func Text(p, content string) File {
	return File{Path: p, Content: []byte(content)}
}

// Source is an in-memory repository. Directory listings follow the order in
// which paths were first seen.
type Source struct {
	dirs      map[string][]walker.Entry
	files     map[string][]byte
	failDirs  map[string]bool
	failFiles map[string]bool

	// ListCalls records every ListDir path in call order.
	ListCalls []string
	// ReadCalls records every ReadFile path in call order.
	ReadCalls []string
}

// New builds a Source from files.
func New(files ...File) *Source {
	s := &Source{
		dirs:      map[string][]walker.Entry{"": nil},
		files:     make(map[string][]byte),
		failDirs:  make(map[string]bool),
		failFiles: make(map[string]bool),
	}
	for _, f := range files {
		s.add(f)
	}
	return s
}

func (s *Source) add(f File) {
	s.files[f.Path] = f.Content
	parts := strings.Split(f.Path, "/")
	parent := ""
	for i, name := range parts {
		p := strings.Join(parts[:i+1], "/")
		typ := walker.EntryDir
		if i == len(parts)-1 {
			typ = walker.EntryFile
		}
		if !s.has(parent, p) {
			s.dirs[parent] = append(s.dirs[parent], walker.Entry{Path: p, Name: name, Type: typ})
		}
		if typ == walker.EntryDir {
			if _, ok := s.dirs[p]; !ok {
				s.dirs[p] = nil
			}
		}
		parent = p
	}
}

func (s *Source) has(dir, p string) bool {
	for _, e := range s.dirs[dir] {
		if e.Path == p {
			return true
		}
	}
	return false
}

// FailDir makes listing p return an access error.
func (s *Source) FailDir(p string) *Source {
	s.failDirs[p] = true
	return s
}

// FailFile makes reading p return an access error.
func (s *Source) FailFile(p string) *Source {
	s.failFiles[p] = true
	return s
}

// ListDir implements walker.Source.
func (s *Source) ListDir(_ context.Context, p string) ([]walker.Entry, error) {
	s.ListCalls = append(s.ListCalls, p)
	if s.failDirs[p] {
		return nil, &walker.AccessError{Op: "list", Path: p, Err: ErrForbidden}
	}
	entries, ok := s.dirs[p]
	if !ok {
		return nil, &walker.AccessError{Op: "list", Path: p, Err: errors.New("404 not found")}
	}
	out := make([]walker.Entry, len(entries))
	copy(out, entries)
	return out, nil
}

// ReadFile implements walker.Source.
func (s *Source) ReadFile(_ context.Context, p string) ([]byte, error) {
	s.ReadCalls = append(s.ReadCalls, p)
	if s.failFiles[p] || s.failDirs[path.Dir(p)] {
		return nil, &walker.AccessError{Op: "read", Path: p, Err: ErrForbidden}
	}
	content, ok := s.files[p]
	if !ok {
		return nil, &walker.AccessError{Op: "read", Path: p, Err: errors.New("404 not found")}
	}
	return content, nil
}

var _ walker.Source = (*Source)(nil)
