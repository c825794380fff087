package lock

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestAcquireIsExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "pinger.lock")

	first, err := Acquire(path, 0)
	if err != nil {
		t.Fatalf("First Acquire failed: %v", err)
	}

	if _, err := Acquire(path, 50*time.Millisecond); !errors.Is(err, ErrLocked) {
		t.Fatalf("Expected ErrLocked while held, got %v", err)
	}

	if err := first.Unlock(); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}

	second, err := Acquire(path, 0)
	if err != nil {
		t.Fatalf("Acquire after unlock failed: %v", err)
	}
	second.Unlock()
}
