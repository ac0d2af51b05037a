package hashing

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/zeebo/blake3"
	"github.com/zeebo/xxh3"

	"cpsnap/internal/fsys"
)

// Algorithm names a per-file content hash.
type Algorithm string

const (
	SHA256 Algorithm = "sha256"
	XXH3   Algorithm = "xxh3"
	BLAKE3 Algorithm = "blake3"
)

// ErrUnknownAlgorithm is returned by ParseAlgorithm for unsupported names.
var ErrUnknownAlgorithm = errors.New("unknown hash algorithm")

// ParseAlgorithm validates name and returns the matching Algorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch a := Algorithm(strings.ToLower(strings.TrimSpace(name))); a {
	case SHA256, XXH3, BLAKE3:
		return a, nil
	case "":
		return SHA256, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
}

// Size returns the digest length in bytes.
func (a Algorithm) Size() int {
	switch a {
	case XXH3:
		return 16
	default:
		return 32
	}
}

// Sum reads r to EOF and returns its digest.
func (a Algorithm) Sum(r io.Reader) ([]byte, error) {
	switch a {
	case XXH3:
		h := xxh3.New()
		if _, err := io.Copy(h, r); err != nil {
			return nil, err
		}
		sum := h.Sum128().Bytes()
		return sum[:], nil
	case BLAKE3:
		h := blake3.New()
		if _, err := io.Copy(h, r); err != nil {
			return nil, err
		}
		return h.Sum(nil), nil
	case SHA256:
		h := sha256.New()
		if _, err := io.Copy(h, r); err != nil {
			return nil, err
		}
		return h.Sum(nil), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, string(a))
	}
}

// Hasher returns a strong digest of a file's contents.
type Hasher interface {
	Hash(path string) ([]byte, error)
}

// HasherFunc adapts a plain function to Hasher.
type HasherFunc func(path string) ([]byte, error)

func (f HasherFunc) Hash(path string) ([]byte, error) { return f(path) }

// FileHasher streams files from an FS through an Algorithm.
type FileHasher struct {
	fs        fsys.FS
	algorithm Algorithm
}

// NewFileHasher returns a FileHasher reading through fs. A nil fs means the
// operating system.
func NewFileHasher(fs fsys.FS, algorithm Algorithm) *FileHasher {
	if fs == nil {
		fs = fsys.NewOSFS()
	}
	if algorithm == "" {
		algorithm = SHA256
	}
	return &FileHasher{fs: fs, algorithm: algorithm}
}

// New parses name and returns a FileHasher for it.
func New(fs fsys.FS, name string) (*FileHasher, error) {
	algorithm, err := ParseAlgorithm(name)
	if err != nil {
		return nil, err
	}
	return NewFileHasher(fs, algorithm), nil
}

// Algorithm reports the configured algorithm.
func (h *FileHasher) Algorithm() Algorithm {
	return h.algorithm
}

func (h *FileHasher) Hash(path string) ([]byte, error) {
	f, err := h.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	sum, err := h.algorithm.Sum(f)
	if err != nil {
		return nil, fmt.Errorf("hash %s: %w", path, err)
	}
	return sum, nil
}
