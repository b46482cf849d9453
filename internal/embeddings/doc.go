// Package embeddings turns file content and queries into vectors.
//
// Providers:
//   - fastembed: local ONNX models through fastembed-go (requires cgo)
//   - tei: a HuggingFace text-embeddings-inference server
//   - openai: any OpenAI-compatible /embeddings endpoint via langchaingo
//
// The default model is sentence-transformers/all-MiniLM-L6-v2 (384
// dimensions). Every provider records OpenTelemetry duration, batch size and
// error metrics.
package embeddings
