// Package hashing provides the per-file content hash the snapshotter folds
// into its combined digest.
//
// A Hasher maps a file path to a strong digest of the file's bytes and
// nothing else: names, timestamps, and permissions never contribute. The
// algorithm is selected by name (sha256, xxh3, blake3) so a deployment can
// trade collision resistance for throughput without touching callers.
package hashing
