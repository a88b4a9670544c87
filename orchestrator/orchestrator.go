package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/lgadye/warn-monitor/config"
	"github.com/lgadye/warn-monitor/deduplication"
	"github.com/lgadye/warn-monitor/matching"
	"github.com/lgadye/warn-monitor/notify"
	"github.com/lgadye/warn-monitor/types"
	"github.com/lgadye/warn-monitor/warnfeed"
)

// Source produces the current WARN report and decodes it.
type Source interface {
	FetchDocument(ctx context.Context) (warnfeed.Document, error)
	Parse(data []byte) ([]types.ObservedRecord, error)
}

// StateStore is satisfied by *deduplication.Store.
type StateStore interface {
	Load(ctx context.Context) (types.DedupState, error)
	Commit(ctx context.Context, state types.DedupState, newKeys []types.NoticeKey, fingerprint types.DocumentFingerprint) (types.DedupState, error)
	Touch(ctx context.Context, state types.DedupState) (types.DedupState, error)
	DetectNew(matches []types.MatchResult, state types.DedupState) deduplication.Detection
	BackendName() string
}

// Monitor runs monitoring cycles against one configured target.
type Monitor struct {
	cfg      config.Config
	source   Source
	store    StateStore
	locker   deduplication.Locker
	notifier notify.Notifier
	now      func() time.Time
}

// NewMonitor assembles a monitor from its collaborators. A nil locker
// becomes a no-op lock and a nil notifier logs alerts.
func NewMonitor(cfg config.Config, source Source, store StateStore, locker deduplication.Locker, notifier notify.Notifier) *Monitor {
	if locker == nil {
		locker = deduplication.NoopLocker{}
	}
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	return &Monitor{
		cfg:      cfg,
		source:   source,
		store:    store,
		locker:   locker,
		notifier: notifier,
		now:      time.Now,
	}
}

// State loads the persisted dedup state without taking the run lock.
func (m *Monitor) State(ctx context.Context) (types.DedupState, error) {
	return m.store.Load(ctx)
}

// RunOnce executes a single cycle: fetch the report, skip it if unchanged,
// match the target, alert on unseen notices and record them as seen.
//
// Notices are committed only after the notifier accepted them. A failed
// notification returns an error and leaves state untouched, so the same
// notices are reported again on the next run.
func (m *Monitor) RunOnce(ctx context.Context) (sum Summary, err error) {
	start := m.now()
	sum = Summary{
		RunID:      uuid.NewString(),
		Target:     m.cfg.TargetCompany,
		StartedAt:  start,
		Backend:    m.store.BackendName(),
		NewNotices: []types.ObservedRecord{},
	}
	defer func() { sum.Elapsed = m.now().Sub(start) }()

	log.Printf("=== WARN Monitor run %s ===", sum.RunID)
	log.Printf("Target company: %s (threshold %.0f)", m.cfg.TargetCompany, m.cfg.FuzzyMatchThreshold)

	if err := m.cfg.Validate(); err != nil {
		return sum, err
	}

	unlock, err := m.locker.Lock(ctx)
	if err != nil {
		if errors.Is(err, deduplication.ErrLocked) {
			return sum, err
		}
		return sum, &types.StorageError{Op: "lock", Backend: m.store.BackendName(), Err: err}
	}
	defer func() {
		if uerr := unlock(); uerr != nil {
			log.Printf("Warning: failed to release run lock: %v", uerr)
		}
	}()

	state, err := m.store.Load(ctx)
	if err != nil {
		log.Printf("Warning: %v; continuing with empty state", err)
	}
	if state.LastChecked != nil {
		log.Printf("Last check: %s", state.LastChecked.Format(time.RFC3339))
	} else {
		log.Printf("Last check: Never")
	}

	doc, err := m.source.FetchDocument(ctx)
	if err != nil {
		return sum, fmt.Errorf("failed to fetch WARN report: %w", err)
	}
	sum.DocumentURL = doc.URL

	changed, fp := deduplication.HasChanged(doc.Data, state.LastFingerprint)
	sum.Fingerprint = fp.Short()
	sum.Changed = changed
	if !changed {
		log.Printf("File unchanged since last check (hash: %s...)", fp.Short())
		if _, terr := m.store.Touch(ctx, state); terr != nil {
			log.Printf("Warning: failed to record check time: %v", terr)
		}
		return sum, nil
	}
	log.Printf("File has changed (new hash: %s...)", fp.Short())

	records, err := m.source.Parse(doc.Data)
	if err != nil {
		return sum, fmt.Errorf("failed to parse WARN report: %w", err)
	}
	sum.TotalRecords = len(records)

	matches := matching.FilterForTarget(records, m.cfg.TargetCompany, m.cfg.FuzzyMatchThreshold)
	sum.Matched = len(matches)
	log.Printf("Found %d matching records", len(matches))

	det := m.store.DetectNew(matches, state)
	for _, s := range det.Skipped {
		log.Printf("Warning: skipping %q: %v", s.Record.OrganizationName, s.Err)
	}
	sum.Skipped = len(det.Skipped)
	sum.AlreadySeen = det.Seen
	sum.NewNotices = det.NewNotices

	if len(det.NewNotices) > 0 {
		log.Printf("🚨 ALERT: %d NEW notice(s) found!", len(det.NewNotices))
		alert := notify.Alert{
			Target:     m.cfg.TargetCompany,
			Notices:    det.NewNotices,
			Keys:       det.NewKeys,
			DetectedAt: m.now(),
		}
		if err := m.notifier.Notify(ctx, alert); err != nil {
			return sum, fmt.Errorf("notification via %s failed, state not committed: %w", m.notifier.Name(), err)
		}
		sum.Notified = true
	} else {
		log.Printf("No new notices for %s", m.cfg.TargetCompany)
	}

	if _, err := m.store.Commit(ctx, state, det.NewKeys, fp); err != nil {
		return sum, err
	}

	log.Println("=== Monitor run completed successfully ===")
	return sum, nil
}
