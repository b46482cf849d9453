// Package vectorstore persists embedded documents in named collections.
//
// Two backends implement Store:
//   - ChromemStore: embedded chromem-go database persisted under a local
//     directory (default, no external service)
//   - QdrantStore: external Qdrant server over gRPC
//
// Stores never compute embeddings. Callers embed content with an Embedder
// and hand precomputed vectors to Upsert and Query, so a query embedded once
// can be reused across every collection.
//
// Distances are cosine distances (1 - cosine similarity); lower is closer.
package vectorstore
