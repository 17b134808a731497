package storage

import (
	"errors"
	"testing"
)

func TestNewStoreMemory(t *testing.T) {
	store, err := NewStore(KindMemory, "")
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	if store == nil {
		t.Fatal("expected non-nil store")
	}
	if err := CloseIfSupported(store); err != nil {
		t.Fatalf("close memory store: %v", err)
	}
}

func TestNewStoreUnsupported(t *testing.T) {
	_, err := NewStore("unknown", "")
	if err == nil {
		t.Fatal("expected unsupported store error")
	}
}

func TestDefaultStoreKindIsBuildable(t *testing.T) {
	if _, err := NewStore(DefaultStoreKind(), t.TempDir()+"/sailbench.db"); err != nil {
		t.Fatalf("default store kind %s: %v", DefaultStoreKind(), err)
	}
}

type closingStore struct {
	*MemoryStore
	closed int
	err    error
}

func (s *closingStore) Close() error {
	s.closed++
	return s.err
}

func TestCloseIfSupportedWrapsCloseError(t *testing.T) {
	store := &closingStore{MemoryStore: NewMemoryStore()}
	if err := CloseIfSupported(store); err != nil || store.closed != 1 {
		t.Fatalf("close: err=%v closed=%d", err, store.closed)
	}

	errLocked := errors.New("database is locked")
	store.err = errLocked
	if err := CloseIfSupported(store); !errors.Is(err, errLocked) {
		t.Fatalf("expected wrapped close error, got %v", err)
	}
}
