// Package search turns raw query results into display rows.
//
// Merge flattens semantic hits from many collections into a single table.
// Basic is the literal-substring complement that scans a repository live,
// without the index.
package search
