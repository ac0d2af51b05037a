package fsys

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Hooks used for testing.
var (
	stat         = os.Stat
	readDir      = os.ReadDir
	open         = os.Open
	absPath      = filepath.Abs
	evalSymlinks = filepath.EvalSymlinks
)

// OSFS is a production implementation of FS using the standard library.
type OSFS struct{}

func NewOSFS() *OSFS {
	return &OSFS{}
}

func (OSFS) Stat(path string) (fs.FileInfo, error) {
	return stat(path)
}

func (OSFS) Canonicalize(path string) (string, error) {
	abs, err := absPath(path)
	if err != nil {
		return "", err
	}
	resolved, err := evalSymlinks(abs)
	if err != nil {
		return "", err
	}
	return filepath.Clean(resolved), nil
}

func (OSFS) ReadDir(path string) ([]fs.DirEntry, error) {
	return readDir(path)
}

func (OSFS) Open(path string) (io.ReadCloser, error) {
	f, err := open(path)
	if err != nil {
		return nil, err
	}
	return f, nil
}
