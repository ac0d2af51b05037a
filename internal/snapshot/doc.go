// Package snapshot computes content-derived fingerprints of classpaths.
//
// A Snapshotter walks an ordered list of roots depth-first, canonicalizing
// every entry, guarding against directory cycles with a set of canonical
// directory paths, and folding each regular file's content hash into one
// SHA-256 accumulator in visit order. The result is a Snapshot: the
// finalized digest plus the ordered list of canonical file paths that
// produced it.
//
// Directory children are visited in ascending byte-wise name order whatever
// order the underlying listing returns, so equal trees give equal snapshots
// on every platform. The digest depends only on file contents and visit
// order; paths, timestamps, and permissions never reach the accumulator.
//
// Snapshots are immutable values. Equal compares digests and file lists
// (order-sensitive); Key and HashCode are consistent with Equal so a
// Snapshot can key a map directly. Compare explains why two snapshots differ
// for diagnostics without being a second definition of equality.
package snapshot
