package walker

import (
	"path"
	"strings"
	"unicode/utf8"
)

// TextExtensions is the set of file suffixes treated as text. Keys are
// lower-case and include the leading dot.
var TextExtensions = map[string]bool{
	".py":   true,
	".md":   true,
	".txt":  true,
	".rst":  true,
	".json": true,
	".yaml": true,
	".yml":  true,
	".html": true,
	".css":  true,
	".js":   true,
	".java": true,
	".c":    true,
	".cpp":  true,
	".h":    true,
	".sh":   true,
	".go":   true,
}

// Extension returns the suffix of p as written, including the dot.
func Extension(p string) string {
	return path.Ext(p)
}

// IsTextPath reports whether p carries a recognized text extension,
// compared case-insensitively.
func IsTextPath(p string) bool {
	return TextExtensions[strings.ToLower(Extension(p))]
}

// Admit reports whether a file belongs in the index: its extension is in
// TextExtensions and its content decodes as UTF-8.
func Admit(p string, content []byte) bool {
	return IsTextPath(p) && utf8.Valid(content)
}
