// Package classpath models an ordered collection of file-system roots.
//
// Order and duplicates are preserved exactly as supplied: both matter to the
// snapshot digest, and deduplication of directories happens later on
// canonical paths, not here.
package classpath

import (
	"os"
	"strings"
)

// ClassPath is an immutable ordered list of root entries.
type ClassPath struct {
	entries []string
}

// Of builds a ClassPath from paths, dropping blank entries.
func Of(paths ...string) ClassPath {
	entries := make([]string, 0, len(paths))
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		entries = append(entries, p)
	}
	return ClassPath{entries: entries}
}

// Parse splits a list joined with the OS path-list separator.
func Parse(list string) ClassPath {
	return ParseWith(list, os.PathListSeparator)
}

// ParseWith splits list on sep.
func ParseWith(list string, sep rune) ClassPath {
	if list == "" {
		return ClassPath{}
	}
	return Of(strings.Split(list, string(sep))...)
}

// Append returns a new ClassPath with paths added after the existing entries.
func (c ClassPath) Append(paths ...string) ClassPath {
	return Of(append(c.Files(), paths...)...)
}

// Files returns a copy of the root entries.
func (c ClassPath) Files() []string {
	return append([]string(nil), c.entries...)
}

func (c ClassPath) Len() int { return len(c.entries) }

func (c ClassPath) IsEmpty() bool { return len(c.entries) == 0 }

// String joins the entries with the OS path-list separator.
func (c ClassPath) String() string {
	return strings.Join(c.entries, string(os.PathListSeparator))
}
