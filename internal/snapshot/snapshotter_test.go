package snapshot

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"cpsnap/internal/classpath"
	"cpsnap/internal/config"
	"cpsnap/internal/fsys"
	"cpsnap/internal/hashing"
	"cpsnap/internal/logging"
	"cpsnap/internal/testsupport"
)

func mustSnapshot(t *testing.T, s *Snapshotter, roots ...string) Snapshot {
	t.Helper()
	snap, err := s.Snapshot(context.Background(), roots)
	if err != nil {
		t.Fatalf("Snapshot(%v): %v", roots, err)
	}
	return snap
}

func combine(parts ...string) Digest {
	h := sha256.New()
	for _, p := range parts {
		sum := sha256.Sum256([]byte(p))
		h.Write(sum[:])
	}
	var d Digest
	h.Sum(d[:0])
	return d
}

func TestEqualityContractOnDisk(t *testing.T) {
	dir := testsupport.CanonicalTempDir(t)
	testsupport.WriteFile(t, filepath.Join(dir, "a.txt"), "hello")
	testsupport.WriteFile(t, filepath.Join(dir, "b.txt"), "world")

	s := NewSnapshotter(Options{})
	first := mustSnapshot(t, s, dir)
	second := mustSnapshot(t, s, dir)

	if !first.Equal(second) {
		t.Fatalf("snapshots differ: %s vs %s", first, second)
	}
	if first.HashCode() != second.HashCode() || first.Key() != second.Key() {
		t.Fatal("equal snapshots disagree on HashCode or Key")
	}
	want := []string{filepath.Join(dir, "a.txt"), filepath.Join(dir, "b.txt")}
	if !slices.Equal(first.Files(), want) {
		t.Fatalf("Files = %v, want %v", first.Files(), want)
	}
	if first.Digest() != combine("hello", "world") {
		t.Fatalf("Digest = %s, want %s", first.Digest(), combine("hello", "world"))
	}
}

func TestEmptyInput(t *testing.T) {
	s := NewSnapshotter(Options{FS: fsys.NewMemoryFS()})
	snap := mustSnapshot(t, s)
	if snap.Len() != 0 || snap.Digest() != EmptyDigest {
		t.Fatalf("empty snapshot = %s", snap)
	}
}

func TestEmptyDirectoryContributesNothing(t *testing.T) {
	dir := testsupport.CanonicalTempDir(t)
	if err := os.Mkdir(filepath.Join(dir, "empty"), 0o755); err != nil {
		t.Fatal(err)
	}
	snap := mustSnapshot(t, NewSnapshotter(Options{}), filepath.Join(dir, "empty"))
	if !snap.Equal(Of(nil, EmptyDigest)) {
		t.Fatalf("empty dir snapshot = %s", snap)
	}
}

func TestOrderSensitivity(t *testing.T) {
	dir := testsupport.CanonicalTempDir(t)
	a := filepath.Join(dir, "a.jar")
	b := filepath.Join(dir, "b.jar")
	testsupport.WriteFile(t, a, "alpha")
	testsupport.WriteFile(t, b, "beta")

	s := NewSnapshotter(Options{})
	ab := mustSnapshot(t, s, a, b)
	ba := mustSnapshot(t, s, b, a)
	if ab.Digest() == ba.Digest() {
		t.Fatal("reordering roots did not change the digest")
	}
	if !slices.Equal(ab.Files(), []string{a, b}) || !slices.Equal(ba.Files(), []string{b, a}) {
		t.Fatalf("file lists do not follow root order: %v / %v", ab.Files(), ba.Files())
	}
}

func TestContentSensitivity(t *testing.T) {
	dir := testsupport.CanonicalTempDir(t)
	path := filepath.Join(dir, "lib", "Foo.class")
	testsupport.WriteFile(t, path, "v1")

	s := NewSnapshotter(Options{})
	before := mustSnapshot(t, s, dir)
	testsupport.WriteFile(t, path, "v2")
	after := mustSnapshot(t, s, dir)

	if before.Equal(after) {
		t.Fatal("content change not detected")
	}
	d := Compare(before, after)
	if !d.DigestDiffers || d.FilesDiffer() {
		t.Fatalf("expected content-only difference, got %+v", d)
	}
}

func TestMetadataDoesNotAffectDigest(t *testing.T) {
	dir := testsupport.CanonicalTempDir(t)
	path := filepath.Join(dir, "Foo.class")
	testsupport.WriteFile(t, path, "same")

	s := NewSnapshotter(Options{})
	before := mustSnapshot(t, s, dir)
	if err := os.Chmod(path, 0o600); err != nil {
		t.Fatal(err)
	}
	after := mustSnapshot(t, s, dir)
	if !before.Equal(after) {
		t.Fatal("permission change altered the snapshot")
	}
}

func TestSymlinkCycleTerminates(t *testing.T) {
	dir := testsupport.CanonicalTempDir(t)
	testsupport.WriteFile(t, filepath.Join(dir, "a.txt"), "hello")
	if err := os.Symlink(dir, filepath.Join(dir, "loop")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	snap := mustSnapshot(t, NewSnapshotter(Options{}), dir)
	if !slices.Equal(snap.Files(), []string{filepath.Join(dir, "a.txt")}) {
		t.Fatalf("Files = %v", snap.Files())
	}
}

func TestSymlinkedRootIsCanonicalized(t *testing.T) {
	dir := testsupport.CanonicalTempDir(t)
	realDir := filepath.Join(dir, "real")
	testsupport.WriteFile(t, filepath.Join(realDir, "a.txt"), "hello")
	link := filepath.Join(dir, "link")
	if err := os.Symlink(realDir, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	s := NewSnapshotter(Options{})
	viaLink := mustSnapshot(t, s, link)
	direct := mustSnapshot(t, s, realDir)
	if !viaLink.Equal(direct) {
		t.Fatalf("link root %s != real root %s", viaLink, direct)
	}
	both := mustSnapshot(t, s, realDir, link)
	if !both.Equal(direct) {
		t.Fatalf("link to visited directory was walked twice: %s", both)
	}
}

func TestDuplicateRoots(t *testing.T) {
	dir := testsupport.CanonicalTempDir(t)
	file := filepath.Join(dir, "lib.jar")
	testsupport.WriteFile(t, file, "jar")
	testsupport.WriteFile(t, filepath.Join(dir, "classes", "A.class"), "A")

	s := NewSnapshotter(Options{})
	classes := filepath.Join(dir, "classes")
	once := mustSnapshot(t, s, classes)
	twice := mustSnapshot(t, s, classes, classes)
	if !once.Equal(twice) {
		t.Fatalf("duplicate directory root hashed twice: %s", twice)
	}

	// Files carry no visited guard, so a repeated file root counts twice.
	files := mustSnapshot(t, s, file, file)
	if !slices.Equal(files.Files(), []string{file, file}) {
		t.Fatalf("Files = %v", files.Files())
	}
	if files.Digest() != combine("jar", "jar") {
		t.Fatal("repeated file root not folded twice")
	}
}

func TestMissingAndDanglingEntriesContributeNothing(t *testing.T) {
	mem := fsys.NewMemoryFS()
	if err := mem.WriteFile("/cp/A.class", []byte("A")); err != nil {
		t.Fatal(err)
	}
	if err := mem.Symlink("/nowhere", "/cp/dangling"); err != nil {
		t.Fatal(err)
	}

	snap := mustSnapshot(t, NewSnapshotter(Options{FS: mem}), "/missing", "/cp")
	if !slices.Equal(snap.Files(), []string{"/cp/A.class"}) {
		t.Fatalf("Files = %v", snap.Files())
	}
	if snap.Digest() != combine("A") {
		t.Fatalf("Digest = %s", snap.Digest())
	}
}

// reversedFS lists directories in descending name order.
type reversedFS struct {
	*fsys.MemoryFS
}

func (r reversedFS) ReadDir(path string) ([]fs.DirEntry, error) {
	entries, err := r.MemoryFS.ReadDir(path)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(entries, func(a, b fs.DirEntry) int {
		return strings.Compare(b.Name(), a.Name())
	})
	return entries, nil
}

func TestChildrenVisitedInSortedOrder(t *testing.T) {
	mem := fsys.NewMemoryFS()
	names := []string{"b.class", "A.class", "a.class", "sub/z.class", "sub/c.class", "_.class"}
	for _, name := range names {
		if err := mem.WriteFile("/cp/"+name, []byte(name)); err != nil {
			t.Fatal(err)
		}
	}

	want := []string{"/cp/A.class", "/cp/_.class", "/cp/a.class", "/cp/b.class", "/cp/sub/c.class", "/cp/sub/z.class"}
	for _, fsImpl := range []fsys.FS{mem, reversedFS{mem}} {
		snap := mustSnapshot(t, NewSnapshotter(Options{FS: fsImpl}), "/cp")
		if !slices.Equal(snap.Files(), want) {
			t.Fatalf("Files = %v, want %v", snap.Files(), want)
		}
	}
}

func TestMemoryCycleThroughRelativeLink(t *testing.T) {
	mem := fsys.NewMemoryFS()
	if err := mem.WriteFile("/cp/a/A.class", []byte("A")); err != nil {
		t.Fatal(err)
	}
	if err := mem.Symlink("..", "/cp/a/up"); err != nil {
		t.Fatal(err)
	}
	if err := mem.Symlink("/cp/a", "/cp/b"); err != nil {
		t.Fatal(err)
	}

	snap := mustSnapshot(t, NewSnapshotter(Options{FS: mem}), "/cp")
	if !slices.Equal(snap.Files(), []string{"/cp/a/A.class"}) {
		t.Fatalf("Files = %v", snap.Files())
	}
}

func TestDepthGuard(t *testing.T) {
	mem := fsys.NewMemoryFS()
	if err := mem.WriteFile("/r/d1/d2/d3/A.class", []byte("A")); err != nil {
		t.Fatal(err)
	}

	_, err := NewSnapshotter(Options{FS: mem, MaxDepth: 2}).Snapshot(context.Background(), []string{"/r"})
	if !errors.Is(err, ErrDepthExceeded) {
		t.Fatalf("expected ErrDepthExceeded, got %v", err)
	}
	if !strings.Contains(err.Error(), "/r/d1/d2/d3") {
		t.Fatalf("error does not name the directory: %v", err)
	}

	snap := mustSnapshot(t, NewSnapshotter(Options{FS: mem, MaxDepth: 3}), "/r")
	if snap.Len() != 1 {
		t.Fatalf("MaxDepth 3 should reach the file, got %v", snap.Files())
	}
}

func TestCancelledContextAborts(t *testing.T) {
	mem := fsys.NewMemoryFS()
	if err := mem.WriteFile("/cp/A.class", []byte("A")); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewSnapshotter(Options{FS: mem, OnError: Skip})
	if _, err := s.Snapshot(ctx, []string{"/cp"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

// faultFS fails ReadDir for one directory.
type faultFS struct {
	*fsys.MemoryFS
	failDir string
}

var errInjected = errors.New("injected failure")

func (f faultFS) ReadDir(path string) ([]fs.DirEntry, error) {
	if path == f.failDir {
		return nil, errInjected
	}
	return f.MemoryFS.ReadDir(path)
}

func failureFixture(t *testing.T) (faultFS, hashing.Hasher) {
	t.Helper()
	mem := fsys.NewMemoryFS()
	for _, p := range []string{"/cp/ok/A.class", "/cp/locked/B.class", "/cp/unreadable.class", "/cp/z.class"} {
		if err := mem.WriteFile(p, []byte(p)); err != nil {
			t.Fatal(err)
		}
	}
	base := hashing.NewFileHasher(mem, hashing.SHA256)
	hasher := hashing.HasherFunc(func(path string) ([]byte, error) {
		if path == "/cp/unreadable.class" {
			return nil, errInjected
		}
		return base.Hash(path)
	})
	return faultFS{MemoryFS: mem, failDir: "/cp/locked"}, hasher
}

func TestAbortPolicyWrapsPath(t *testing.T) {
	fsImpl, hasher := failureFixture(t)
	s := NewSnapshotter(Options{FS: fsImpl, Hasher: hasher})

	_, err := s.Snapshot(context.Background(), []string{"/cp"})
	if !errors.Is(err, errInjected) {
		t.Fatalf("expected injected error, got %v", err)
	}
	if !strings.Contains(err.Error(), "/cp/locked") {
		t.Fatalf("error does not carry the path: %v", err)
	}
}

func TestSkipPolicyExcludesAndWarns(t *testing.T) {
	fsImpl, hasher := failureFixture(t)
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s := NewSnapshotter(Options{FS: fsImpl, Hasher: hasher, Logger: logger, OnError: Skip})

	ctx := logging.WithCorrelationID(context.Background(), "run-1")
	snap, err := s.Snapshot(ctx, []string{"/cp"})
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	want := []string{"/cp/ok/A.class", "/cp/z.class"}
	if !slices.Equal(snap.Files(), want) {
		t.Fatalf("Files = %v, want %v", snap.Files(), want)
	}
	if snap.Digest() != combine("/cp/ok/A.class", "/cp/z.class") {
		t.Fatal("skipped entries leaked into the digest")
	}

	out := buf.String()
	if got := strings.Count(out, `"event_type":"snapshot_entry_skipped"`); got != 2 {
		t.Fatalf("expected 2 skip warnings, got %d in %s", got, out)
	}
	for _, path := range []string{"/cp/locked", "/cp/unreadable.class"} {
		if !strings.Contains(out, `"path":"`+path+`"`) {
			t.Fatalf("warning for %s missing: %s", path, out)
		}
	}
	if !strings.Contains(out, `"skipped_count":2`) || !strings.Contains(out, `"correlation_id":"run-1"`) {
		t.Fatalf("summary line missing fields: %s", out)
	}
}

func TestConcurrentSnapshots(t *testing.T) {
	mem := fsys.NewMemoryFS()
	for _, p := range []string{"/cp/a/A.class", "/cp/b/B.class", "/lib.jar"} {
		if err := mem.WriteFile(p, []byte(p)); err != nil {
			t.Fatal(err)
		}
	}
	s := NewSnapshotter(Options{FS: mem})
	want := mustSnapshot(t, s, "/cp", "/lib.jar")

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, err := s.Snapshot(context.Background(), []string{"/cp", "/lib.jar"})
			if err != nil {
				errs <- err
				return
			}
			if !snap.Equal(want) {
				errs <- errors.New("concurrent snapshot differs")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}

func TestSnapshotClassPath(t *testing.T) {
	mem := fsys.NewMemoryFS()
	if err := mem.WriteFile("/a.jar", []byte("a")); err != nil {
		t.Fatal(err)
	}
	if err := mem.WriteFile("/b.jar", []byte("b")); err != nil {
		t.Fatal(err)
	}
	s := NewSnapshotter(Options{FS: mem})
	snap, err := s.SnapshotClassPath(context.Background(), classpath.ParseWith("/b.jar:/a.jar", ':'))
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(snap.Files(), []string{"/b.jar", "/a.jar"}) {
		t.Fatalf("Files = %v", snap.Files())
	}
}

func TestAlgorithmChangesFileDigests(t *testing.T) {
	mem := fsys.NewMemoryFS()
	if err := mem.WriteFile("/a.jar", []byte("a")); err != nil {
		t.Fatal(err)
	}
	sha := mustSnapshot(t, NewSnapshotter(Options{FS: mem}), "/a.jar")
	xxh := mustSnapshot(t, NewSnapshotter(Options{FS: mem, Hasher: hashing.NewFileHasher(mem, hashing.XXH3)}), "/a.jar")
	if sha.Digest() == xxh.Digest() {
		t.Fatal("different per-file algorithms produced the same combined digest")
	}
	if !slices.Equal(sha.Files(), xxh.Files()) {
		t.Fatal("algorithm changed the file list")
	}
}

func TestParseFailurePolicy(t *testing.T) {
	tests := map[string]FailurePolicy{"": Abort, "abort": Abort, " SKIP ": Skip}
	for input, want := range tests {
		got, err := ParseFailurePolicy(input)
		if err != nil || got != want {
			t.Fatalf("ParseFailurePolicy(%q) = %q, %v", input, got, err)
		}
	}
	if _, err := ParseFailurePolicy("ignore"); err == nil {
		t.Fatal("expected error for unknown policy")
	}
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Snapshot.OnError = config.OnErrorSkip
	cfg.Snapshot.MaxDepth = 7
	s, err := NewFromConfig(&cfg, fsys.NewMemoryFS(), logging.NewNop())
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	if s.onError != Skip || s.maxDepth != 7 {
		t.Fatalf("unexpected snapshotter %+v", s)
	}

	cfg.Snapshot.Algorithm = "md4"
	if _, err := NewFromConfig(&cfg, nil, nil); !errors.Is(err, hashing.ErrUnknownAlgorithm) {
		t.Fatalf("expected ErrUnknownAlgorithm, got %v", err)
	}
}
