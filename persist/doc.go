// Package persist serializes component state snapshots to durable storage.
//
// Blobs are JSON wrapped in a schema-versioned envelope. Loading fails
// closed: a missing key, an unreadable backend, a malformed payload, or an
// envelope with the wrong schema version all yield "no value" so the owning
// component falls back to its default state. Corrupt blobs are discarded
// wholesale, never repaired field by field.
//
// Backends implement the byte-level [Backend] interface. The package ships
// an in-memory backend for tests and single-run processes, a file backend,
// and a Redis backend.
//
// Storage is treated as single-writer-per-process. Concurrent writers in
// other processes cannot corrupt in-memory state because every load goes
// through the fail-closed decode path.
package persist
