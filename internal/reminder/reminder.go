// Package reminder runs a periodic loop agent that scans assessment
// history and nudges users whose medication safety checks have gone
// stale.
package reminder

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/linnemanlabs/go-core/log"

	"github.com/Chethan-Regala/MedAssist/internal/history"
)

var tracer = otel.Tracer("github.com/Chethan-Regala/MedAssist/internal/reminder")

const (
	// DefaultInterval is how often the loop scans for stale checks.
	DefaultInterval = time.Hour

	// followupWindow is how long a medication check stays fresh.
	followupWindow = 7 * 24 * time.Hour

	// dedupWindow suppresses repeat reminders for the same user.
	dedupWindow = 24 * time.Hour
)

// Notifier delivers reminders to an external channel.
type Notifier interface {
	SendReminder(ctx context.Context, userID, message string) error
}

// Loop periodically scans users and emits medication follow-up
// reminders. Reminders already sent within the dedup window are
// suppressed in memory; a restart may re-send at most one per user.
type Loop struct {
	store    history.Store
	notifier Notifier
	logger   log.Logger
	interval time.Duration

	mu       sync.Mutex
	lastSent map[string]time.Time

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// New builds a reminder loop. A zero interval selects the default.
func New(store history.Store, notifier Notifier, logger log.Logger, interval time.Duration) *Loop {
	if logger == nil {
		logger = log.Nop()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Loop{
		store:    store,
		notifier: notifier,
		logger:   logger,
		interval: interval,
		lastSent: make(map[string]time.Time),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the background loop. The first scan happens after one
// full interval.
func (l *Loop) Start(ctx context.Context) {
	go func() {
		defer close(l.done)

		ticker := time.NewTicker(l.interval)
		defer ticker.Stop()

		l.logger.Info(ctx, "reminder loop started", "interval", l.interval.String())
		for {
			select {
			case <-ticker.C:
				l.RunOnce(ctx)
			case <-l.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the loop and waits for the current cycle to finish.
func (l *Loop) Stop() {
	l.once.Do(func() { close(l.stop) })
	<-l.done
}

// RunOnce performs a single scan cycle. Exposed for manual triggering.
func (l *Loop) RunOnce(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "reminder.scan")
	defer span.End()

	users, err := l.store.Users(ctx)
	if err != nil {
		l.logger.Error(ctx, err, "reminder scan failed to list users")
		return
	}

	now := time.Now().UTC()
	cutoff := now.Add(-followupWindow)
	sent := 0

	for _, userID := range users {
		needs, err := l.needsFollowup(ctx, userID, cutoff)
		if err != nil {
			l.logger.Error(ctx, err, "reminder scan failed", "user_id", userID)
			continue
		}
		if !needs || l.recentlySent(userID, now) {
			continue
		}

		message := "User " + userID + " has no medication safety check in the last 7 days."
		if l.notifier != nil {
			if err := l.notifier.SendReminder(ctx, userID, message); err != nil {
				l.logger.Warn(ctx, "reminder delivery failed", "user_id", userID, "error", err)
				continue
			}
		}

		l.markSent(userID, now)
		sent++
		l.logger.Info(ctx, "reminder generated", "user_id", userID, "message", message)
	}

	span.SetAttributes(
		attribute.Int("medassist.reminder.users", len(users)),
		attribute.Int("medassist.reminder.sent", sent),
	)
}

// needsFollowup reports whether the user's latest medication check is
// stale. Users with no medication checks fall back to their latest
// triage; users with no activity at all are skipped.
func (l *Loop) needsFollowup(ctx context.Context, userID string, cutoff time.Time) (bool, error) {
	checks, err := l.store.MedicationsByUser(ctx, userID, time.Time{}, 1)
	if err != nil {
		return false, err
	}
	if len(checks) > 0 {
		return checks[0].CreatedAt.Before(cutoff), nil
	}

	triages, err := l.store.TriagesByUser(ctx, userID, time.Time{}, 1)
	if err != nil {
		return false, err
	}
	if len(triages) > 0 {
		return triages[0].CreatedAt.Before(cutoff), nil
	}
	return false, nil
}

func (l *Loop) recentlySent(userID string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	last, ok := l.lastSent[userID]
	return ok && now.Sub(last) < dedupWindow
}

func (l *Loop) markSent(userID string, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastSent[userID] = now
}
