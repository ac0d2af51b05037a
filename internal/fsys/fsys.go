// Package fsys abstracts the read-only file-system capabilities the
// snapshotter depends on: probing an entry, resolving its canonical path,
// listing a directory, and reading file bytes.
//
// OSFS is the production implementation. MemoryFS is an in-memory tree with
// symbolic links, used by tests that need cycles or a listing order the
// operating system would never produce.
package fsys

import (
	"errors"
	"io"
	"io/fs"
)

// FS is the capability set a snapshot walk reads through.
type FS interface {
	// Stat describes path, following symbolic links.
	Stat(path string) (fs.FileInfo, error)
	// Canonicalize returns the absolute, symlink-resolved form of path.
	// A missing path or a dangling link yields an error matching fs.ErrNotExist.
	Canonicalize(path string) (string, error)
	// ReadDir lists the directly contained entries of a directory.
	// Callers must not rely on the order of the result.
	ReadDir(path string) ([]fs.DirEntry, error)
	// Open opens a regular file for reading.
	Open(path string) (io.ReadCloser, error)
}

// IsNotExist reports whether err means the entry does not exist.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
