// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - VectorIndex: Dual-collection persistent index (course catalog +
//     content chunks) with similarity search and fuzzy title resolution
//   - EmbeddingService: Generates vector embeddings for catalog records,
//     content chunks, and queries
//   - ChatService: Tool-calling language model used by the assistant
//   - SessionStore: Bounded per-session conversation history
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
