package shared

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestAcquireStateLock(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "freshlist.db")

	first, err := AcquireStateLock(dbPath)
	if err != nil {
		t.Fatalf("AcquireStateLock() error = %v", err)
	}

	if _, err := AcquireStateLock(dbPath); !errors.Is(err, ErrStateLocked) {
		t.Fatalf("expected ErrStateLocked while held, got %v", err)
	}

	if err := first.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}

	again, err := AcquireStateLock(dbPath)
	if err != nil {
		t.Fatalf("expected lock after release, got %v", err)
	}
	defer again.Release()
}

func TestAcquireStateLockMemory(t *testing.T) {
	lock, err := AcquireStateLock(":memory:")
	if err != nil {
		t.Fatalf("AcquireStateLock() error = %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Errorf("Release() error = %v", err)
	}
}
