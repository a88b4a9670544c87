// Package notify delivers alerts about newly detected WARN notices.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/lgadye/warn-monitor/types"
)

// Alert is one batch of new notices for a target organization. Keys[i]
// identifies Notices[i].
type Alert struct {
	Target     string
	Notices    []types.ObservedRecord
	Keys       []types.NoticeKey
	DetectedAt time.Time
}

// Notifier delivers an alert. A nil error means the alert was accepted by
// the sink; callers persist the notices as seen only after that.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
	Name() string
}

// LogNotifier writes the alert to the process log. It is used when no
// delivery channel is configured.
type LogNotifier struct{}

func (LogNotifier) Name() string { return "log" }

func (LogNotifier) Notify(_ context.Context, alert Alert) error {
	log.Printf("🚨 ALERT: %d new WARN notice(s) for %s", len(alert.Notices), alert.Target)
	for i, n := range alert.Notices {
		log.Printf("  Notice #%d:", i+1)
		for _, f := range n.Fields() {
			log.Printf("    %s: %s", f[0], f[1])
		}
	}
	return nil
}

// Multi fans an alert out to every notifier. Every sink is attempted; the
// alert counts as delivered only if all of them succeed.
type Multi []Notifier

func (m Multi) Name() string {
	if len(m) == 0 {
		return "none"
	}
	name := m[0].Name()
	for _, n := range m[1:] {
		name += "+" + n.Name()
	}
	return name
}

func (m Multi) Notify(ctx context.Context, alert Alert) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, alert); err != nil {
			log.Printf("❌ %s notification failed: %v", n.Name(), err)
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
			continue
		}
		log.Printf("✅ %s notification delivered", n.Name())
	}
	return errors.Join(errs...)
}
