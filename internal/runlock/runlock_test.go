package runlock

import (
	"path/filepath"
	"testing"
)

func TestAcquireExclusive(t *testing.T) {
	dir := t.TempDir()
	root := t.TempDir()

	first, err := Acquire(dir, root)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	if _, err := Acquire(dir, root); err == nil {
		t.Fatal("second Acquire() on the same root succeeded")
	}

	// A different tree is independent.
	other, err := Acquire(dir, t.TempDir())
	if err != nil {
		t.Fatalf("Acquire() on another root error = %v", err)
	}
	defer other.Release()

	if err := first.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	again, err := Acquire(dir, root)
	if err != nil {
		t.Fatalf("Acquire() after release error = %v", err)
	}
	_ = again.Release()
}

func TestPathForStable(t *testing.T) {
	dir := t.TempDir()
	a, err := PathFor(dir, "/data/export")
	if err != nil {
		t.Fatal(err)
	}
	b, err := PathFor(dir, "/data/export/../export")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("PathFor differs for equivalent roots: %s vs %s", a, b)
	}
	if filepath.Dir(a) != dir {
		t.Errorf("lock outside dir: %s", a)
	}
}

func TestReleaseNil(t *testing.T) {
	var l *Lock
	if err := l.Release(); err != nil {
		t.Errorf("nil Release() = %v", err)
	}
}
