// Package deduplication decides which matched WARN notices have not been
// reported yet and owns the persisted record of what has been.
package deduplication

import (
	"github.com/lgadye/warn-monitor/types"
)

// SkippedRecord is a match that could not be keyed.
type SkippedRecord struct {
	Record types.ObservedRecord
	Err    error
}

// Detection is the outcome of Store.DetectNew.
type Detection struct {
	NewNotices []types.ObservedRecord
	NewKeys    []types.NoticeKey
	// Seen counts matches whose key was already reported in an earlier run
	// or earlier in this batch.
	Seen    int
	Skipped []SkippedRecord
}

// DetectNew keys every match and keeps those not in state and not already
// emitted earlier in the same batch. Matches with an unparseable date are
// neither new nor seen; they are returned in Skipped for the caller to log.
//
// Nothing is persisted. The caller commits NewKeys with Commit only after
// the notification for NewNotices was delivered.
func (s *Store) DetectNew(matches []types.MatchResult, state types.DedupState) Detection {
	det := Detection{
		NewNotices: make([]types.ObservedRecord, 0),
		NewKeys:    make([]types.NoticeKey, 0),
	}
	batch := make(map[types.NoticeKey]struct{}, len(matches))

	for _, m := range matches {
		key, err := KeyFor(m.Record)
		if err != nil {
			det.Skipped = append(det.Skipped, SkippedRecord{Record: m.Record, Err: err})
			continue
		}
		if _, dup := batch[key]; dup || s.IsSeen(state, key) {
			det.Seen++
			continue
		}
		batch[key] = struct{}{}
		det.NewNotices = append(det.NewNotices, m.Record)
		det.NewKeys = append(det.NewKeys, key)
	}
	return det
}
