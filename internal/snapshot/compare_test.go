package snapshot

import (
	"crypto/sha256"
	"strings"
	"testing"
)

func TestCompareAgreesWithEqual(t *testing.T) {
	d1 := Digest(sha256.Sum256([]byte("1")))
	d2 := Digest(sha256.Sum256([]byte("2")))
	snaps := []Snapshot{
		Of(nil, EmptyDigest),
		Of([]string{"/a"}, d1),
		Of([]string{"/a"}, d2),
		Of([]string{"/a", "/b"}, d1),
		Of([]string{"/b", "/a"}, d1),
	}
	for i, a := range snaps {
		for j, b := range snaps {
			if Compare(a, b).Equal() != a.Equal(b) {
				t.Fatalf("Compare(%d,%d).Equal disagrees with Equal", i, j)
			}
		}
	}
}

func TestCompareReportsFirstMismatch(t *testing.T) {
	a := Of([]string{"/a", "/b", "/c"}, EmptyDigest)
	b := Of([]string{"/a", "/x", "/c"}, EmptyDigest)
	d := Compare(a, b)
	if d.DigestDiffers {
		t.Fatal("digests are identical")
	}
	if d.FirstMismatch != 1 || d.Left != "/b" || d.Right != "/x" {
		t.Fatalf("unexpected difference %+v", d)
	}
	if !strings.Contains(d.String(), "index 1") {
		t.Fatalf("String = %q", d.String())
	}
}

func TestComparePrefixLists(t *testing.T) {
	short := Of([]string{"/a"}, EmptyDigest)
	long := Of([]string{"/a", "/b"}, EmptyDigest)

	added := Compare(short, long)
	if added.FirstMismatch != 1 || added.Left != "" || added.Right != "/b" {
		t.Fatalf("unexpected added difference %+v", added)
	}
	if !strings.Contains(added.String(), "added: /b") {
		t.Fatalf("String = %q", added.String())
	}

	removed := Compare(long, short)
	if !strings.Contains(removed.String(), "removed: /b") {
		t.Fatalf("String = %q", removed.String())
	}
}

func TestCompareContentOnly(t *testing.T) {
	a := Of([]string{"/a"}, Digest(sha256.Sum256([]byte("old"))))
	b := Of([]string{"/a"}, Digest(sha256.Sum256([]byte("new"))))
	d := Compare(a, b)
	if !d.DigestDiffers || d.FilesDiffer() {
		t.Fatalf("unexpected difference %+v", d)
	}
	if !strings.Contains(d.String(), "content changed") {
		t.Fatalf("String = %q", d.String())
	}
	if len(d.Attrs()) != 4 {
		t.Fatalf("expected 4 attrs for content-only change, got %d", len(d.Attrs()))
	}
}
