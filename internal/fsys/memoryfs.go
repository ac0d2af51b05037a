package fsys

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"
	"sync"
	"time"
)

const maxLinkHops = 40

var errTooManyLinks = errors.New("too many levels of symbolic links")

type nodeKind int

const (
	kindDir nodeKind = iota
	kindFile
	kindLink
)

type memNode struct {
	kind   nodeKind
	data   []byte
	target string
	mode   fs.FileMode
}

// MemoryFS is a pure in-memory file system that understands symbolic links.
// All paths are slash-separated; relative paths are taken relative to "/".
// ReadDir returns entries in map order, so callers that need a stable order
// have to sort.
type MemoryFS struct {
	mu    sync.RWMutex
	nodes map[string]*memNode
}

func NewMemoryFS() *MemoryFS {
	return &MemoryFS{nodes: map[string]*memNode{"/": {kind: kindDir, mode: fs.ModeDir | 0o755}}}
}

func clean(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// MkdirAll creates p and any missing parents. Existing links along the way
// are not followed.
func (m *MemoryFS) MkdirAll(p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mkdirAllLocked(clean(p))
}

func (m *MemoryFS) mkdirAllLocked(p string) error {
	cur := "/"
	for _, seg := range strings.Split(strings.TrimPrefix(p, "/"), "/") {
		if seg == "" {
			continue
		}
		cur = path.Join(cur, seg)
		n, ok := m.nodes[cur]
		if !ok {
			m.nodes[cur] = &memNode{kind: kindDir, mode: fs.ModeDir | 0o755}
			continue
		}
		if n.kind != kindDir {
			return &fs.PathError{Op: "mkdir", Path: cur, Err: fs.ErrExist}
		}
	}
	return nil
}

// WriteFile stores data at p, creating parent directories as needed.
func (m *MemoryFS) WriteFile(p string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p = clean(p)
	if err := m.mkdirAllLocked(path.Dir(p)); err != nil {
		return err
	}
	if n, ok := m.nodes[p]; ok && n.kind == kindDir {
		return &fs.PathError{Op: "write", Path: p, Err: errors.New("is a directory")}
	}
	m.nodes[p] = &memNode{kind: kindFile, data: append([]byte(nil), data...), mode: 0o644}
	return nil
}

// Symlink creates link pointing at target. Relative targets resolve against
// the directory holding link, as on POSIX systems.
func (m *MemoryFS) Symlink(target, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	link = clean(link)
	if err := m.mkdirAllLocked(path.Dir(link)); err != nil {
		return err
	}
	if _, ok := m.nodes[link]; ok {
		return &fs.PathError{Op: "symlink", Path: link, Err: fs.ErrExist}
	}
	m.nodes[link] = &memNode{kind: kindLink, target: target, mode: fs.ModeSymlink | 0o777}
	return nil
}

// Remove deletes p and, for directories, everything beneath it.
func (m *MemoryFS) Remove(p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p = clean(p)
	if _, ok := m.nodes[p]; !ok || p == "/" {
		return &fs.PathError{Op: "remove", Path: p, Err: fs.ErrNotExist}
	}
	prefix := p + "/"
	for key := range m.nodes {
		if key == p || strings.HasPrefix(key, prefix) {
			delete(m.nodes, key)
		}
	}
	return nil
}

func (m *MemoryFS) Canonicalize(p string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.resolveLocked(p)
}

// resolveLocked walks p one component at a time, substituting link targets.
func (m *MemoryFS) resolveLocked(p string) (string, error) {
	original := p
	pending := strings.Split(strings.TrimPrefix(clean(p), "/"), "/")
	cur := "/"
	hops := 0
	for len(pending) > 0 {
		seg := pending[0]
		pending = pending[1:]
		if seg == "" || seg == "." {
			continue
		}
		if seg == ".." {
			cur = path.Dir(cur)
			continue
		}
		next := path.Join(cur, seg)
		n, ok := m.nodes[next]
		if !ok {
			return "", &fs.PathError{Op: "lstat", Path: original, Err: fs.ErrNotExist}
		}
		if n.kind != kindLink {
			if n.kind == kindFile && len(pending) > 0 {
				return "", &fs.PathError{Op: "lstat", Path: original, Err: fs.ErrNotExist}
			}
			cur = next
			continue
		}
		hops++
		if hops > maxLinkHops {
			return "", &fs.PathError{Op: "lstat", Path: original, Err: errTooManyLinks}
		}
		target := n.target
		if strings.HasPrefix(target, "/") {
			cur = "/"
		}
		expanded := strings.Split(strings.Trim(target, "/"), "/")
		pending = append(expanded, pending...)
	}
	return cur, nil
}

func (m *MemoryFS) Stat(p string) (fs.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	resolved, err := m.resolveLocked(p)
	if err != nil {
		return nil, err
	}
	n := m.nodes[resolved]
	return memInfo{name: path.Base(resolved), node: n}, nil
}

func (m *MemoryFS) ReadDir(p string) ([]fs.DirEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	resolved, err := m.resolveLocked(p)
	if err != nil {
		return nil, err
	}
	if m.nodes[resolved].kind != kindDir {
		return nil, &fs.PathError{Op: "readdir", Path: p, Err: errors.New("not a directory")}
	}

	prefix := resolved + "/"
	if resolved == "/" {
		prefix = "/"
	}
	var out []fs.DirEntry
	for key, n := range m.nodes {
		if key == resolved || !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := strings.TrimPrefix(key, prefix)
		if strings.Contains(rest, "/") {
			continue
		}
		out = append(out, fs.FileInfoToDirEntry(memInfo{name: rest, node: n}))
	}
	return out, nil
}

func (m *MemoryFS) Open(p string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	resolved, err := m.resolveLocked(p)
	if err != nil {
		return nil, err
	}
	n := m.nodes[resolved]
	if n.kind != kindFile {
		return nil, &fs.PathError{Op: "open", Path: p, Err: fmt.Errorf("not a regular file")}
	}
	return io.NopCloser(bytes.NewReader(n.data)), nil
}

type memInfo struct {
	name string
	node *memNode
}

func (i memInfo) Name() string { return i.name }
func (i memInfo) Size() int64  { return int64(len(i.node.data)) }
func (i memInfo) Mode() fs.FileMode {
	return i.node.mode
}
func (i memInfo) ModTime() time.Time { return time.Time{} }
func (i memInfo) IsDir() bool        { return i.node.kind == kindDir }
func (i memInfo) Sys() any           { return nil }
