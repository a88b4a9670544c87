package types

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"time"
)

// NoticeKey identifies one (organization, notice date) observation.
// Format: "<normalized organization name>|<YYYY-MM-DD>".
type NoticeKey string

// KeySeparator joins the organization and date parts of a NoticeKey. The
// date part never contains it, so the last occurrence always splits the key.
const KeySeparator = "|"

// ObservedRecord is a single row from the WARN report.
type ObservedRecord struct {
	OrganizationName string            `json:"organization_name"`
	NoticeDate       string            `json:"notice_date"`
	RawRow           map[string]string `json:"raw_row,omitempty"`
	// Columns preserves the header order of RawRow for display.
	Columns []string `json:"-"`
}

// Fields returns the raw row as ordered (column, value) pairs, falling back
// to the two core fields when no raw row was captured.
func (r ObservedRecord) Fields() [][2]string {
	if len(r.RawRow) == 0 {
		return [][2]string{
			{"Company", r.OrganizationName},
			{"Notice Date", r.NoticeDate},
		}
	}

	cols := r.Columns
	if len(cols) == 0 {
		cols = make([]string, 0, len(r.RawRow))
		for k := range r.RawRow {
			cols = append(cols, k)
		}
		sort.Strings(cols)
	}

	out := make([][2]string, 0, len(cols))
	for _, c := range cols {
		out = append(out, [2]string{c, r.RawRow[c]})
	}
	return out
}

// MatchResult pairs a record with its similarity to the target name.
type MatchResult struct {
	Record ObservedRecord `json:"record"`
	Score  float64        `json:"score"`
}

// DocumentFingerprint is the SHA-256 digest of a source document.
type DocumentFingerprint []byte

// FingerprintOf hashes document bytes.
func FingerprintOf(document []byte) DocumentFingerprint {
	sum := sha256.Sum256(document)
	return DocumentFingerprint(sum[:])
}

// Hex returns the lowercase hex encoding, or "" for an absent fingerprint.
func (f DocumentFingerprint) Hex() string {
	if len(f) == 0 {
		return ""
	}
	return hex.EncodeToString(f)
}

// Short returns the first 16 hex characters for log lines.
func (f DocumentFingerprint) Short() string {
	h := f.Hex()
	if len(h) > 16 {
		return h[:16]
	}
	return h
}

// ParseFingerprint decodes a hex digest. Empty input yields an absent fingerprint.
func ParseFingerprint(s string) (DocumentFingerprint, error) {
	if s == "" {
		return nil, nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return DocumentFingerprint(b), nil
}

// DedupState is the persisted aggregate owned by the dedup store.
type DedupState struct {
	LastFingerprint DocumentFingerprint
	SeenKeys        map[NoticeKey]struct{}
	// Order keeps first-seen order so the persisted list is stable.
	Order       []NoticeKey
	LastChecked *time.Time
}

// NewDedupState returns the empty first-run state.
func NewDedupState() DedupState {
	return DedupState{SeenKeys: make(map[NoticeKey]struct{})}
}

// Has reports whether key has already been reported.
func (s DedupState) Has(key NoticeKey) bool {
	_, ok := s.SeenKeys[key]
	return ok
}

// Len returns the number of seen keys.
func (s DedupState) Len() int {
	return len(s.SeenKeys)
}

// Clone returns a deep copy so callers can derive a new state without
// touching the one they were given.
func (s DedupState) Clone() DedupState {
	out := DedupState{
		SeenKeys: make(map[NoticeKey]struct{}, len(s.SeenKeys)),
		Order:    append([]NoticeKey(nil), s.Order...),
	}
	for k := range s.SeenKeys {
		out.SeenKeys[k] = struct{}{}
	}
	if s.LastFingerprint != nil {
		out.LastFingerprint = append(DocumentFingerprint(nil), s.LastFingerprint...)
	}
	if s.LastChecked != nil {
		t := *s.LastChecked
		out.LastChecked = &t
	}
	return out
}
