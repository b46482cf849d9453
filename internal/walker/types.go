package walker

import (
	"context"
	"errors"
	"fmt"
)

// ErrUndecodable is returned by Admit-style checks when file bytes are not
// valid UTF-8 text.
var ErrUndecodable = errors.New("content is not valid UTF-8")

// EntryType classifies a node of a repository tree.
type EntryType string

const (
	// EntryDir is a directory that can be listed.
	EntryDir EntryType = "dir"
	// EntryFile is a regular file whose bytes can be read.
	EntryFile EntryType = "file"
)

// Entry is one node of a repository tree as returned by a listing call.
type Entry struct {
	// Path is relative to the repository root and unique within it.
	Path string
	// Name is the last path element.
	Name string
	Type EntryType
}

// Source is the repository content API the walker consumes.
//
// ListDir returns the entries of the directory at path (root is "") in the
// order the backend produces them. Both methods must return an *AccessError
// for permission, rate-limit, not-found or transport failures.
type Source interface {
	ListDir(ctx context.Context, path string) ([]Entry, error)
	ReadFile(ctx context.Context, path string) ([]byte, error)
}

// AccessError reports a failed remote listing or content fetch.
type AccessError struct {
	Op   string // "list" or "read"
	Path string
	Err  error
}

func (e *AccessError) Error() string {
	path := e.Path
	if path == "" {
		path = "/"
	}
	return fmt.Sprintf("%s %s: %v", e.Op, path, e.Err)
}

func (e *AccessError) Unwrap() error { return e.Err }

// IsAccessError reports whether err is or wraps an *AccessError.
func IsAccessError(err error) bool {
	var ae *AccessError
	return errors.As(err, &ae)
}

// Metadata describes an indexed file.
type Metadata struct {
	Path      string
	Repo      string
	Type      string
	Extension string
}

// Map returns the metadata as the flat string map stored next to vectors.
func (m Metadata) Map() map[string]string {
	return map[string]string{
		"path":      m.Path,
		"repo":      m.Repo,
		"type":      m.Type,
		"extension": m.Extension,
	}
}

// Document is a file admitted into the index.
type Document struct {
	ID       string
	Content  string
	Metadata Metadata
}

// DocumentID returns the deterministic identifier of path within repo.
func DocumentID(repo, path string) string {
	return repo + "_" + path
}

// Batch is the ordered, index-aligned set of documents produced for one
// repository.
type Batch struct {
	Repo      string
	Documents []string
	Metadatas []map[string]string
	IDs       []string
}

// NewBatch builds a batch from documents, preserving their order.
func NewBatch(repo string, docs []Document) *Batch {
	b := &Batch{
		Repo:      repo,
		Documents: make([]string, 0, len(docs)),
		Metadatas: make([]map[string]string, 0, len(docs)),
		IDs:       make([]string, 0, len(docs)),
	}
	for _, d := range docs {
		b.Add(d)
	}
	return b
}

// Add appends a document to all three columns.
func (b *Batch) Add(d Document) {
	b.Documents = append(b.Documents, d.Content)
	b.Metadatas = append(b.Metadatas, d.Metadata.Map())
	b.IDs = append(b.IDs, d.ID)
}

// Len returns the number of documents.
func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.IDs)
}

// Validate checks that the three columns are index-aligned.
func (b *Batch) Validate() error {
	if b == nil {
		return errors.New("nil batch")
	}
	if len(b.Documents) != len(b.IDs) || len(b.Metadatas) != len(b.IDs) {
		return fmt.Errorf("misaligned batch: %d documents, %d metadatas, %d ids",
			len(b.Documents), len(b.Metadatas), len(b.IDs))
	}
	return nil
}
