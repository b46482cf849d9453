// Package collections keeps one vector collection per repository.
//
// Indexing embeds a walker.Batch and upserts it into the collection named
// after the repository. Searching embeds the query once and queries either a
// single collection or every collection in the store.
package collections
