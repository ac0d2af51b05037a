package classpath

import (
	"os"
	"reflect"
	"testing"
)

func TestParseWithPreservesOrderAndDuplicates(t *testing.T) {
	cp := ParseWith("b.jar:a.jar::b.jar: ", ':')
	want := []string{"b.jar", "a.jar", "b.jar"}
	if got := cp.Files(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Files() = %v, want %v", got, want)
	}
	if cp.Len() != 3 {
		t.Fatalf("Len() = %d", cp.Len())
	}
}

func TestParseEmpty(t *testing.T) {
	if cp := Parse(""); !cp.IsEmpty() {
		t.Fatalf("expected empty classpath, got %v", cp.Files())
	}
}

func TestParseUsesOSSeparator(t *testing.T) {
	list := "x" + string(os.PathListSeparator) + "y"
	cp := Parse(list)
	if !reflect.DeepEqual(cp.Files(), []string{"x", "y"}) {
		t.Fatalf("unexpected entries %v", cp.Files())
	}
	if cp.String() != list {
		t.Fatalf("String() = %q, want %q", cp.String(), list)
	}
}

func TestFilesReturnsCopy(t *testing.T) {
	cp := Of("a", "b")
	files := cp.Files()
	files[0] = "mutated"
	if cp.Files()[0] != "a" {
		t.Fatal("ClassPath must not expose its backing slice")
	}
}

func TestAppendDoesNotMutateReceiver(t *testing.T) {
	base := Of("a")
	next := base.Append("b", "")
	if base.Len() != 1 {
		t.Fatalf("receiver mutated: %v", base.Files())
	}
	if !reflect.DeepEqual(next.Files(), []string{"a", "b"}) {
		t.Fatalf("unexpected appended entries %v", next.Files())
	}
}
