package loadercache

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"cpsnap/internal/logging"
	"cpsnap/internal/snapshot"
)

func snap(content string, files ...string) snapshot.Snapshot {
	return snapshot.Of(files, snapshot.Digest(sha256.Sum256([]byte(content))))
}

func TestGetCachesWhileSnapshotEqual(t *testing.T) {
	c := New[string](logging.NewNop())
	builds := 0
	build := func() (string, error) {
		builds++
		return "loader", nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.Get("app", snap("v1", "/cp/A.class"), build)
		if err != nil || v != "loader" {
			t.Fatalf("Get = %q, %v", v, err)
		}
	}
	if builds != 1 {
		t.Fatalf("expected 1 build, got %d", builds)
	}
	if got := c.Stats(); got != (Stats{Hits: 2, Misses: 1}) {
		t.Fatalf("Stats = %+v", got)
	}
}

func TestGetRebuildsOnChangeAndLogsDifference(t *testing.T) {
	var buf bytes.Buffer
	c := New[int](slog.New(slog.NewJSONHandler(&buf, nil)))
	n := 0
	build := func() (int, error) {
		n++
		return n, nil
	}

	if v, _ := c.Get("app", snap("v1", "/cp/A.class"), build); v != 1 {
		t.Fatalf("first Get = %d", v)
	}
	v, err := c.Get("app", snap("v1", "/cp/A.class", "/cp/B.class"), build)
	if err != nil || v != 2 {
		t.Fatalf("second Get = %d, %v", v, err)
	}
	if c.Stats().Rebuilds != 1 || c.Len() != 1 {
		t.Fatalf("Stats = %+v, Len = %d", c.Stats(), c.Len())
	}

	out := buf.String()
	for _, want := range []string{`"event_type":"loader_cache_rebuild"`, `"files_differ":true`, `"current_path":"/cp/B.class"`, `"component":"loadercache"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("log missing %s: %s", want, out)
		}
	}
}

func TestDistinctIDsAreIndependent(t *testing.T) {
	c := New[string](nil)
	s := snap("v1", "/cp/A.class")
	a, _ := c.Get("a", s, func() (string, error) { return "A", nil })
	b, _ := c.Get("b", s, func() (string, error) { return "B", nil })
	if a != "A" || b != "B" || c.Len() != 2 {
		t.Fatalf("a=%q b=%q len=%d", a, b, c.Len())
	}
}

func TestBuildErrorDropsStaleEntry(t *testing.T) {
	c := New[string](nil)
	if _, err := c.Get("app", snap("v1"), func() (string, error) { return "old", nil }); err != nil {
		t.Fatal(err)
	}
	boom := errors.New("boom")
	if _, err := c.Get("app", snap("v2"), func() (string, error) { return "", boom }); !errors.Is(err, boom) {
		t.Fatalf("expected build error, got %v", err)
	}
	if _, _, ok := c.Peek("app"); ok {
		t.Fatal("stale entry survived a failed rebuild")
	}
	if c.Stats().BuildErrors != 1 {
		t.Fatalf("Stats = %+v", c.Stats())
	}
}

func TestGetValidatesArguments(t *testing.T) {
	c := New[string](nil)
	if _, err := c.Get(" ", snap("v1"), func() (string, error) { return "", nil }); err == nil {
		t.Fatal("expected error for blank id")
	}
	if _, err := c.Get("app", snap("v1"), nil); err == nil {
		t.Fatal("expected error for nil build")
	}
}

func TestRemoveAndClear(t *testing.T) {
	c := New[string](nil)
	build := func() (string, error) { return "x", nil }
	_, _ = c.Get("a", snap("v1"), build)
	_, _ = c.Get("b", snap("v1"), build)

	if !c.Remove("a") || c.Remove("a") {
		t.Fatal("Remove reported wrong presence")
	}
	c.Clear()
	if c.Len() != 0 || c.Stats() != (Stats{}) {
		t.Fatalf("Clear left Len=%d Stats=%+v", c.Len(), c.Stats())
	}
}

func TestConcurrentGetBuildsOnce(t *testing.T) {
	c := New[int](nil)
	var builds atomic.Int32
	s := snap("v1", "/cp/A.class")

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Get("app", s, func() (int, error) {
				builds.Add(1)
				return 1, nil
			})
		}()
	}
	wg.Wait()
	if builds.Load() != 1 {
		t.Fatalf("expected a single build, got %d", builds.Load())
	}
}
