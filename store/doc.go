// Package store provides the durable document store the coordination engine
// persists into: transition logs, checkpoints, inter-agent messages, agent
// registrations, and entity links.
//
// The engine only depends on the DocumentStore interface. Supported backends:
//   - Memory: for development and testing (default)
//   - File: for single-node deployments
//   - Redis: for distributed deployments
//   - SQLite: for single-node deployments that need queryable history
//   - Mongo: for distributed deployments with rich document queries
//
// All failures surface as errors to the caller; the engine converts them to
// best-effort false/partial results and never escalates storage failures as
// panics.
package store
