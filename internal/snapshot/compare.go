package snapshot

import (
	"fmt"

	"cpsnap/internal/logging"
)

// Difference explains how two snapshots relate.
type Difference struct {
	DigestDiffers bool
	LeftFiles     int
	RightFiles    int
	// FirstMismatch is the first index where the file lists disagree,
	// including the index one past the shorter list when one list is a
	// prefix of the other. It is -1 when the lists are equal.
	FirstMismatch int
	// Left and Right are the paths at FirstMismatch, empty past the end.
	Left  string
	Right string
}

// Compare reports which parts of a and b differ.
func Compare(a, b Snapshot) Difference {
	d := Difference{
		DigestDiffers: a.digest != b.digest,
		LeftFiles:     len(a.files),
		RightFiles:    len(b.files),
		FirstMismatch: -1,
	}
	n := min(len(a.files), len(b.files))
	for i := 0; i < n; i++ {
		if a.files[i] != b.files[i] {
			d.FirstMismatch = i
			d.Left, d.Right = a.files[i], b.files[i]
			return d
		}
	}
	if len(a.files) != len(b.files) {
		d.FirstMismatch = n
		if n < len(a.files) {
			d.Left = a.files[n]
		}
		if n < len(b.files) {
			d.Right = b.files[n]
		}
	}
	return d
}

// Equal agrees with Snapshot.Equal for the compared pair.
func (d Difference) Equal() bool {
	return !d.DigestDiffers && d.FirstMismatch < 0
}

// FilesDiffer reports whether the file lists disagree.
func (d Difference) FilesDiffer() bool {
	return d.FirstMismatch >= 0
}

func (d Difference) String() string {
	switch {
	case d.Equal():
		return "snapshots are equal"
	case !d.FilesDiffer():
		return fmt.Sprintf("content changed in %d files (file list unchanged)", d.LeftFiles)
	case d.LeftFiles != d.RightFiles && d.Left == "":
		return fmt.Sprintf("file count %d -> %d, first added: %s", d.LeftFiles, d.RightFiles, d.Right)
	case d.LeftFiles != d.RightFiles && d.Right == "":
		return fmt.Sprintf("file count %d -> %d, first removed: %s", d.LeftFiles, d.RightFiles, d.Left)
	default:
		return fmt.Sprintf("file list differs at index %d: %s -> %s (count %d -> %d)",
			d.FirstMismatch, d.Left, d.Right, d.LeftFiles, d.RightFiles)
	}
}

// Attrs renders the difference as structured log fields.
func (d Difference) Attrs() []logging.Attr {
	attrs := []logging.Attr{
		logging.Bool("digest_differs", d.DigestDiffers),
		logging.Bool("files_differ", d.FilesDiffer()),
		logging.Int("previous_file_count", d.LeftFiles),
		logging.Int("current_file_count", d.RightFiles),
	}
	if d.FilesDiffer() {
		attrs = append(attrs,
			logging.Int("first_mismatch", d.FirstMismatch),
			logging.String("previous_path", d.Left),
			logging.String("current_path", d.Right))
	}
	return attrs
}
