/*
dispatcher.go - Scheduled report delivery

PURPOSE:
  On a cron schedule, sends every active subscriber the report of the cycle
  containing "now" and records one run per subscription for audit.

DESIGN:
  - robfig/cron drives the schedule (default: Mondays 08:00)
  - One failing subscription never stops the others
  - Each attempt is recorded through RunRecorder, sent or failed

USAGE:
  d := report.NewDispatcher(builder, subs, runs, notifier, logger)
  if err := d.Start(); err != nil { ... }
  defer d.Stop()
  // or, on demand
  sent, err := d.RunNow(ctx)
*/
package report

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/warp/budget-engine/budget"
)

const DefaultSchedule = "0 8 * * 1"

// Subscription asks for a user's report to be delivered to Email.
type Subscription struct {
	ID        string
	UserID    budget.UserID
	Email     string
	Active    bool
	CreatedAt time.Time
}

type RunStatus string

const (
	RunSent   RunStatus = "sent"
	RunFailed RunStatus = "failed"
)

// Run is one delivery attempt.
type Run struct {
	ID             string
	SubscriptionID string
	UserID         budget.UserID
	Cycle          string // budget.CycleKey
	RanAt          time.Time
	Status         RunStatus
	Error          string
}

// SubscriptionSource lists active subscriptions.
type SubscriptionSource interface {
	ActiveSubscriptions(ctx context.Context) ([]Subscription, error)
}

// RunRecorder persists delivery attempts.
type RunRecorder interface {
	RecordRun(ctx context.Context, run Run) error
}

// Dispatcher sends scheduled reports.
type Dispatcher struct {
	Schedule string
	Now      func() time.Time
	NewID    func() string

	builder  *Builder
	subs     SubscriptionSource
	runs     RunRecorder
	notifier Notifier
	logger   logrus.FieldLogger

	mu   sync.Mutex
	cron *cron.Cron
}

func NewDispatcher(builder *Builder, subs SubscriptionSource, runs RunRecorder, notifier Notifier, logger logrus.FieldLogger) *Dispatcher {
	return &Dispatcher{
		Schedule: DefaultSchedule,
		Now:      time.Now,
		NewID:    uuid.NewString,
		builder:  builder,
		subs:     subs,
		runs:     runs,
		notifier: notifier,
		logger:   logger.WithField("component", "report-dispatcher"),
	}
}

// Start schedules the dispatcher. It fails on an invalid cron expression.
func (d *Dispatcher) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cron != nil {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(d.Schedule, d.tick); err != nil {
		return fmt.Errorf("invalid report schedule %q: %w", d.Schedule, err)
	}
	c.Start()
	d.cron = c

	d.logger.WithField("schedule", d.Schedule).Info("report dispatcher started")
	return nil
}

// Stop halts the schedule and waits for a running dispatch to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cron == nil {
		return
	}
	<-d.cron.Stop().Done()
	d.cron = nil
	d.logger.Info("report dispatcher stopped")
}

func (d *Dispatcher) tick() {
	sent, err := d.RunNow(context.Background())
	if err != nil {
		d.logger.WithError(err).Error("report dispatch failed")
		return
	}
	d.logger.WithField("sent", sent).Info("report dispatch finished")
}

// RunNow delivers the current report to every active subscription and
// returns how many were sent. Per-subscription failures are recorded and
// joined into the returned error.
func (d *Dispatcher) RunNow(ctx context.Context) (int, error) {
	subs, err := d.subs.ActiveSubscriptions(ctx)
	if err != nil {
		return 0, fmt.Errorf("list subscriptions: %w", err)
	}

	now := d.Now()
	ref := budget.FromTime(now)
	sent := 0
	var errs []error

	for _, sub := range subs {
		run := Run{
			ID:             d.NewID(),
			SubscriptionID: sub.ID,
			UserID:         sub.UserID,
			RanAt:          now,
			Status:         RunSent,
		}

		cycle, err := d.deliver(ctx, sub, ref)
		run.Cycle = cycle
		if err != nil {
			run.Status = RunFailed
			run.Error = err.Error()
			errs = append(errs, fmt.Errorf("subscription %s: %w", sub.ID, err))
			d.logger.WithError(err).WithFields(logrus.Fields{
				"subscription_id": sub.ID,
				"user_id":         sub.UserID,
			}).Warn("report not delivered")
		} else {
			sent++
		}

		if err := d.runs.RecordRun(ctx, run); err != nil {
			errs = append(errs, fmt.Errorf("record run of %s: %w", sub.ID, err))
		}
	}
	return sent, errors.Join(errs...)
}

func (d *Dispatcher) deliver(ctx context.Context, sub Subscription, ref budget.TimePoint) (string, error) {
	body, snap, err := d.builder.Report(ctx, sub.UserID, ref)
	if err != nil {
		return "", err
	}
	cycle := snap.Cycle.Key().String()
	msg := Message{
		To:      []string{sub.Email},
		Subject: fmt.Sprintf("📊 %s", snap.Cycle.Label),
		Body:    body,
	}
	return cycle, d.notifier.Notify(ctx, msg)
}
