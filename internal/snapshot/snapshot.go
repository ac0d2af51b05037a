package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"

	"github.com/zeebo/xxh3"
)

// Digest is the finalized combined hash of a snapshot.
type Digest [sha256.Size]byte

// EmptyDigest is the digest of a snapshot that folded no files.
var EmptyDigest = Digest(sha256.Sum256(nil))

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Bytes returns a copy of the digest bytes.
func (d Digest) Bytes() []byte {
	return append([]byte(nil), d[:]...)
}

// ParseDigest decodes the hex form produced by Digest.String.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	decoded, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return d, fmt.Errorf("parse digest: %w", err)
	}
	if len(decoded) != len(d) {
		return d, fmt.Errorf("parse digest: got %d bytes, want %d", len(decoded), len(d))
	}
	copy(d[:], decoded)
	return d, nil
}

// Snapshot is an immutable fingerprint of a classpath.
type Snapshot struct {
	files  []string
	digest Digest
}

// Of assembles a Snapshot from previously recorded parts.
func Of(files []string, digest Digest) Snapshot {
	return Snapshot{files: slices.Clone(files), digest: digest}
}

// Digest returns the combined content hash.
func (s Snapshot) Digest() Digest {
	return s.digest
}

// Files returns the canonical paths of the hashed files in visit order.
func (s Snapshot) Files() []string {
	return slices.Clone(s.files)
}

// Len returns the number of files that contributed to the digest.
func (s Snapshot) Len() int {
	return len(s.files)
}

// Equal reports whether both digests match and both file lists hold the
// same paths in the same order.
func (s Snapshot) Equal(other Snapshot) bool {
	return s.digest == other.digest && slices.Equal(s.files, other.files)
}

// HashCode combines the structural hash of the file list with the hash of
// the digest. Equal snapshots always return the same value.
func (s Snapshot) HashCode() uint64 {
	var files uint64 = 1
	for _, f := range s.files {
		files = 31*files + xxh3.HashString(f)
	}
	return 31*files + xxh3.Hash(s.digest[:])
}

// Key is a comparable form of a Snapshot for use as a map key. Two keys are
// == exactly when their snapshots are Equal.
type Key struct {
	digest Digest
	files  string
}

// Key returns the comparable form of s. File paths never contain NUL, so
// joining on it keeps distinct lists distinct.
func (s Snapshot) Key() Key {
	return Key{digest: s.digest, files: strings.Join(s.files, "\x00")}
}

// String renders the digest followed by the parenthesized file list. It is
// meant for diagnostics only.
func (s Snapshot) String() string {
	var b strings.Builder
	b.WriteString(s.digest.String())
	b.WriteByte('(')
	b.WriteString(strings.Join(s.files, ", "))
	b.WriteByte(')')
	return b.String()
}
