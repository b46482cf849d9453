package vectorstore_test

import (
	"hash/fnv"
	"strings"
)

// wordVector embeds text as a bag of hashed, lower-cased words. Texts that
// share words are close; it never returns the zero vector.
func wordVector(text string, dim int) []float32 {
	v := make([]float32, dim)
	v[0] = 0.01
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[1+int(h.Sum32())%(dim-1)]++
	}
	return v
}
