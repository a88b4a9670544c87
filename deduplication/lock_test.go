package deduplication

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestFileLockerIsExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warn_state.json.lock")
	locker := NewFileLocker(path)

	unlock, err := locker.Lock(context.Background())
	if err != nil {
		t.Fatalf("first Lock: %v", err)
	}

	if _, err := NewFileLocker(path).Lock(context.Background()); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked while held, got %v", err)
	}

	if err := unlock(); err != nil {
		t.Fatalf("unlock: %v", err)
	}

	unlock2, err := locker.Lock(context.Background())
	if err != nil {
		t.Fatalf("Lock after release: %v", err)
	}
	_ = unlock2()
}

func TestNoopLockerAlwaysAcquires(t *testing.T) {
	var l NoopLocker
	for i := 0; i < 2; i++ {
		unlock, err := l.Lock(context.Background())
		if err != nil {
			t.Fatalf("Lock: %v", err)
		}
		if err := unlock(); err != nil {
			t.Fatalf("unlock: %v", err)
		}
	}
}
