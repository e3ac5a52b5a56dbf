package lockfile

import (
	"path/filepath"
	"testing"
)

func TestAcquire_SecondCallFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.lock")

	first, err := Acquire(path)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	defer first.Release()

	if _, err := Acquire(path); err == nil {
		t.Fatal("expected second acquire on the same path to fail")
	}
}

func TestAcquire_ReleaseThenReacquireSucceeds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.lock")

	first, err := Acquire(path)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}

	second, err := Acquire(path)
	if err != nil {
		t.Fatalf("reacquire after release: %v", err)
	}
	defer second.Release()
}
