package deduplication

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/smithy-go"

	"github.com/lgadye/warn-monitor/types"
)

type failingBackend struct {
	readErr  error
	writeErr error
	writes   int
}

func (f *failingBackend) Read(context.Context) (*StateRecord, error) { return nil, f.readErr }

func (f *failingBackend) Write(context.Context, *StateRecord) error {
	f.writes++
	return f.writeErr
}

func (f *failingBackend) Name() string { return "failing" }

type fakeObjectStore struct {
	objects map[string][]byte
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: make(map[string][]byte)}
}

type notFoundError struct{}

func (notFoundError) Error() string     { return "NoSuchKey: not found" }
func (notFoundError) ErrorCode() string { return "NoSuchKey" }
func (notFoundError) ErrorMessage() string {
	return "The specified key does not exist."
}
func (notFoundError) ErrorFault() smithy.ErrorFault { return smithy.FaultUnknown }

func (f *fakeObjectStore) Get(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	data, ok := f.objects[bucket+"/"+key]
	if !ok {
		return nil, notFoundError{}
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeObjectStore) Put(_ context.Context, bucket, key string, body io.Reader, _ string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.objects[bucket+"/"+key] = data
	return nil
}

func fixedClock() func() time.Time {
	return func() time.Time { return time.Date(2025, 1, 20, 9, 30, 0, 0, time.UTC) }
}

func TestStoreLoadWithoutPriorStateIsEmpty(t *testing.T) {
	store := NewStore(NewFileBackend(filepath.Join(t.TempDir(), "warn_state.json")))

	state, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if state.LastFingerprint != nil || state.Len() != 0 || state.LastChecked != nil {
		t.Fatalf("expected empty state, got %+v", state)
	}
}

func TestStoreCommitRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warn_state.json")
	store := NewStore(NewFileBackend(path))
	store.now = fixedClock()
	ctx := context.Background()

	state, _ := store.Load(ctx)
	fp := types.FingerprintOf([]byte("doc"))
	keys := []types.NoticeKey{"anthropic pbc|2025-01-10", "anthropic inc|2025-01-17"}

	committed, err := store.Commit(ctx, state, keys, fp)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if state.Len() != 0 {
		t.Fatal("Commit must not mutate the input state")
	}

	loaded, err := NewStore(NewFileBackend(path)).Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for _, k := range keys {
		if !loaded.Has(k) {
			t.Fatalf("expected key %q after reload", k)
		}
	}
	if loaded.LastFingerprint.Hex() != fp.Hex() {
		t.Fatalf("fingerprint mismatch: %s vs %s", loaded.LastFingerprint.Hex(), fp.Hex())
	}
	if loaded.LastChecked == nil || !loaded.LastChecked.Equal(*committed.LastChecked) {
		t.Fatalf("expected last check %v, got %v", committed.LastChecked, loaded.LastChecked)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read state file: %v", err)
	}
	for _, field := range []string{`"last_file_hash"`, `"last_check"`, `"seen_notices"`, `"anthropic pbc|2025-01-10"`} {
		if !strings.Contains(string(raw), field) {
			t.Fatalf("state file missing %s:\n%s", field, raw)
		}
	}
}

func TestStoreCommitIsIdempotent(t *testing.T) {
	store := NewStore(NewFileBackend(filepath.Join(t.TempDir(), "warn_state.json")))
	ctx := context.Background()
	fp := types.FingerprintOf([]byte("doc"))
	keys := []types.NoticeKey{"acme|2025-01-15"}

	first, err := store.Commit(ctx, types.NewDedupState(), keys, fp)
	if err != nil {
		t.Fatalf("first commit: %v", err)
	}
	second, err := store.Commit(ctx, first, keys, fp)
	if err != nil {
		t.Fatalf("second commit: %v", err)
	}
	if first.Len() != 1 || second.Len() != 1 || len(second.Order) != 1 {
		t.Fatalf("expected exactly one key after repeated commit, got %d", second.Len())
	}
	if !store.IsSeen(second, "acme|2025-01-15") {
		t.Fatal("expected key to be seen")
	}
}

func TestStoreCommitFailureLeavesPriorState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warn_state.json")
	good := NewStore(NewFileBackend(path))
	ctx := context.Background()

	prior, err := good.Commit(ctx, types.NewDedupState(), []types.NoticeKey{"a|2025-01-01"}, types.FingerprintOf([]byte("v1")))
	if err != nil {
		t.Fatalf("seed commit: %v", err)
	}
	before, _ := os.ReadFile(path)

	bad := NewStore(&failingBackend{writeErr: errors.New("disk full")})
	returned, err := bad.Commit(ctx, prior, []types.NoticeKey{"b|2025-01-02"}, types.FingerprintOf([]byte("v2")))
	var serr *types.StorageError
	if !errors.As(err, &serr) || serr.Op != "commit" {
		t.Fatalf("expected commit StorageError, got %v", err)
	}
	if returned.Has("b|2025-01-02") {
		t.Fatal("failed commit must return the prior state")
	}

	after, _ := os.ReadFile(path)
	if !bytes.Equal(before, after) {
		t.Fatal("state file changed although nothing was committed to it")
	}
}

func TestStoreLoadCorruptStateDegradesToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warn_state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	state, err := NewStore(NewFileBackend(path)).Load(context.Background())
	var serr *types.StorageError
	if !errors.As(err, &serr) || serr.Op != "load" {
		t.Fatalf("expected load StorageError, got %v", err)
	}
	if state.Len() != 0 || state.LastFingerprint != nil {
		t.Fatal("expected empty state alongside the error")
	}
}

func TestStoreLoadReadsOlderFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warn_state.json")
	legacy := `{"last_file_hash": null, "seen_notices": ["Anthropic|2024-11-01 00:00:00"], "last_check": "2024-11-02T08:00:00.123456"}`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	state, err := NewStore(NewFileBackend(path)).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if state.LastFingerprint != nil {
		t.Fatal("null hash should load as absent")
	}
	if !state.Has("Anthropic|2024-11-01 00:00:00") {
		t.Fatal("legacy key should be preserved verbatim")
	}
	if state.LastChecked == nil {
		t.Fatal("naive ISO timestamp should parse")
	}

	if err := os.WriteFile(path, []byte(`{"seen_notices": ["x|2025-01-01"]}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	state, err = NewStore(NewFileBackend(path)).Load(context.Background())
	if err != nil {
		t.Fatalf("Load with missing fields: %v", err)
	}
	if state.Len() != 1 || state.LastChecked != nil {
		t.Fatalf("unexpected state %+v", state)
	}
}

func TestS3BackendRoundTrip(t *testing.T) {
	objects := newFakeObjectStore()
	store := NewStore(NewS3Backend(objects, "bucket", "state/warn_state.json"))
	ctx := context.Background()

	state, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load on missing object: %v", err)
	}

	fp := types.FingerprintOf([]byte("doc"))
	if _, err := store.Commit(ctx, state, []types.NoticeKey{"acme|2025-01-15"}, fp); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if _, ok := objects.objects["bucket/state/warn_state.json"]; !ok {
		t.Fatal("expected state object to be written")
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !loaded.Has("acme|2025-01-15") || loaded.LastFingerprint.Hex() != fp.Hex() {
		t.Fatalf("unexpected state after reload: %+v", loaded)
	}
}

func TestTouchKeepsKeysAndFingerprint(t *testing.T) {
	store := NewStore(NewFileBackend(filepath.Join(t.TempDir(), "warn_state.json")))
	ctx := context.Background()
	fp := types.FingerprintOf([]byte("doc"))

	state, err := store.Commit(ctx, types.NewDedupState(), []types.NoticeKey{"a|2025-01-01"}, fp)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	later := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return later }

	touched, err := store.Touch(ctx, state)
	if err != nil {
		t.Fatalf("Touch: %v", err)
	}
	if touched.Len() != 1 || touched.LastFingerprint.Hex() != fp.Hex() {
		t.Fatal("Touch must not change keys or fingerprint")
	}
	if !touched.LastChecked.Equal(later) {
		t.Fatalf("expected last check %v, got %v", later, touched.LastChecked)
	}
}
