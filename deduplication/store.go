package deduplication

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/lgadye/warn-monitor/types"
)

// StateRecord is the persisted form of DedupState. Field names match the
// state file the monitor has always written, so older files stay readable;
// missing fields decode as absent/empty.
type StateRecord struct {
	LastFileHash *string  `json:"last_file_hash" bson:"last_file_hash"`
	LastCheck    *string  `json:"last_check" bson:"last_check"`
	SeenNotices  []string `json:"seen_notices" bson:"seen_notices"`
}

// Backend persists a StateRecord. Read returns (nil, nil) when no state has
// been written yet. Write must replace the previous record atomically: a
// failed Write leaves the prior record intact.
type Backend interface {
	Read(ctx context.Context) (*StateRecord, error)
	Write(ctx context.Context, rec *StateRecord) error
	Name() string
}

// Store is the only path through which dedup state is read or changed.
type Store struct {
	backend Backend
	now     func() time.Time
}

// NewStore wraps a backend.
func NewStore(backend Backend) *Store {
	return &Store{backend: backend, now: time.Now}
}

// BackendName identifies the persistence backend in logs.
func (s *Store) BackendName() string {
	return s.backend.Name()
}

// Load reads the persisted state. No prior state yields a fresh empty state
// and a nil error. Unreadable or corrupt state yields a fresh empty state
// together with a *types.StorageError so the caller can decide to continue.
func (s *Store) Load(ctx context.Context) (types.DedupState, error) {
	rec, err := s.backend.Read(ctx)
	if err != nil {
		return types.NewDedupState(), &types.StorageError{Op: "load", Backend: s.backend.Name(), Err: err}
	}
	if rec == nil {
		return types.NewDedupState(), nil
	}

	state, err := fromRecord(rec)
	if err != nil {
		return types.NewDedupState(), &types.StorageError{Op: "load", Backend: s.backend.Name(), Err: err}
	}
	return state, nil
}

// IsSeen is a pure membership query.
func (s *Store) IsSeen(state types.DedupState, key types.NoticeKey) bool {
	return state.Has(key)
}

// Commit persists seenKeys ∪ newKeys, the new fingerprint and the current
// time, then returns the new state. The input state is not modified.
// Committing the same keys again leaves seenKeys unchanged.
func (s *Store) Commit(ctx context.Context, state types.DedupState, newKeys []types.NoticeKey, fingerprint types.DocumentFingerprint) (types.DedupState, error) {
	next := state.Clone()
	for _, k := range newKeys {
		if _, ok := next.SeenKeys[k]; ok {
			continue
		}
		next.SeenKeys[k] = struct{}{}
		next.Order = append(next.Order, k)
	}
	next.LastFingerprint = append(types.DocumentFingerprint(nil), fingerprint...)
	now := s.now().UTC()
	next.LastChecked = &now

	if err := s.backend.Write(ctx, RecordOf(next)); err != nil {
		return state, &types.StorageError{Op: "commit", Backend: s.backend.Name(), Err: err}
	}
	return next, nil
}

// Touch records that the source was checked without changing keys or
// fingerprint.
func (s *Store) Touch(ctx context.Context, state types.DedupState) (types.DedupState, error) {
	return s.Commit(ctx, state, nil, state.LastFingerprint)
}

// RecordOf converts state to its persisted form.
func RecordOf(state types.DedupState) *StateRecord {
	rec := &StateRecord{SeenNotices: make([]string, 0, len(state.Order))}
	if h := state.LastFingerprint.Hex(); h != "" {
		rec.LastFileHash = &h
	}
	if state.LastChecked != nil {
		ts := state.LastChecked.Format(time.RFC3339Nano)
		rec.LastCheck = &ts
	}
	for _, k := range state.Order {
		rec.SeenNotices = append(rec.SeenNotices, string(k))
	}
	return rec
}

func fromRecord(rec *StateRecord) (types.DedupState, error) {
	state := types.NewDedupState()

	if rec.LastFileHash != nil {
		fp, err := types.ParseFingerprint(strings.TrimSpace(*rec.LastFileHash))
		if err != nil {
			return state, fmt.Errorf("decode last_file_hash: %w", err)
		}
		state.LastFingerprint = fp
	}

	if rec.LastCheck != nil && *rec.LastCheck != "" {
		if ts, ok := parseCheckTime(*rec.LastCheck); ok {
			state.LastChecked = &ts
		} else {
			log.Printf("Warning: ignoring unparseable last_check %q", *rec.LastCheck)
		}
	}

	for _, k := range rec.SeenNotices {
		key := types.NoticeKey(k)
		if _, ok := state.SeenKeys[key]; ok {
			continue
		}
		state.SeenKeys[key] = struct{}{}
		state.Order = append(state.Order, key)
	}
	return state, nil
}

// parseCheckTime accepts RFC 3339 and the naive ISO timestamps older state
// files carry.
func parseCheckTime(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
