// Package embeddingstest provides a deterministic embedder for tests.
package embeddingstest

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
)

// Dim is the vector size produced by Words.
const Dim = 256

// Words embeds text as a bag of hashed, lower-cased words, so texts sharing
// words are close under cosine distance. It counts calls and can be told to
// fail.
type Words struct {
	mu            sync.Mutex
	DocumentCalls int
	QueryCalls    int
	Fail          error
}

// ErrInjected is a convenience failure for Words.Fail.
var ErrInjected = errors.New("injected embedding failure")

func (w *Words) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.DocumentCalls++
	if w.Fail != nil {
		return nil, w.Fail
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = Vector(t)
	}
	return out, nil
}

func (w *Words) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.QueryCalls++
	if w.Fail != nil {
		return nil, w.Fail
	}
	return Vector(text), nil
}

// Vector is the embedding Words returns for text. It is never the zero
// vector.
func Vector(text string) []float32 {
	v := make([]float32, Dim)
	v[0] = 0.01
	for _, word := range strings.FieldsFunc(strings.ToLower(text), isSeparator) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(word))
		v[1+int(h.Sum32()%uint32(Dim-1))]++
	}
	return v
}

func isSeparator(r rune) bool {
	return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
}
