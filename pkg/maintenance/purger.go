// Package maintenance runs the scheduled delivery log purge.
package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"github.com/AllWayChat/chat-plugin/pkg/logger"
	"github.com/AllWayChat/chat-plugin/pkg/logsink"
)

const component = "maintenance"

// DefaultSchedule purges nightly at 03:00.
const DefaultSchedule = "0 3 * * *"

// Purger deletes delivery log entries older than the retention window on a
// cron schedule.
type Purger struct {
	sink      logsink.Sink
	schedule  string
	retention time.Duration
	gron      *gronx.Gronx
}

// NewPurger creates a purger. retentionDays <= 0 defaults to 7; an empty or
// invalid schedule is rejected.
func NewPurger(sink logsink.Sink, schedule string, retentionDays int) (*Purger, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	gron := gronx.New()
	if !gron.IsValid(schedule) {
		return nil, fmt.Errorf("invalid purge schedule %q", schedule)
	}
	if retentionDays <= 0 {
		retentionDays = 7
	}
	return &Purger{
		sink:      sink,
		schedule:  schedule,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		gron:      gron,
	}, nil
}

// Run blocks, firing the purge whenever the schedule is due, until the
// context is cancelled. The schedule is checked once per minute.
func (p *Purger) Run(ctx context.Context) {
	logger.InfoCF(component, "Purge scheduler started", map[string]interface{}{
		"schedule":  p.schedule,
		"retention": p.retention.String(),
	})

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.InfoC(component, "Purge scheduler stopped")
			return
		case now := <-ticker.C:
			due, err := p.gron.IsDue(p.schedule, now)
			if err != nil || !due {
				continue
			}
			p.PurgeOnce(ctx)
		}
	}
}

// PurgeOnce runs one purge pass immediately.
func (p *Purger) PurgeOnce(ctx context.Context) {
	cutoff := time.Now().Add(-p.retention)
	removed, err := p.sink.Purge(ctx, cutoff)
	if err != nil {
		logger.ErrorCF(component, "Delivery log purge failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	logger.InfoCF(component, "Delivery log purged", map[string]interface{}{
		"removed": removed,
		"cutoff":  cutoff.Format(time.RFC3339),
	})
}
