package classroom

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/robfig/cron/v3"
)

const defaultSweepGrace = 10 * time.Minute

// SweepResult counts documents removed by one sweep.
type SweepResult struct {
	Tests    int
	Comments int
}

// Sweeper deletes tests and comments that no topic or course references.
// Documents younger than the grace window are skipped so that a concurrent
// dual write still in flight is never collected.
type Sweeper struct {
	store Store
	grace time.Duration
	now   func() time.Time
}

// NewSweeper creates a sweeper over store.
func NewSweeper(store Store, grace time.Duration) *Sweeper {
	if grace <= 0 {
		grace = defaultSweepGrace
	}
	return &Sweeper{store: store, grace: grace, now: time.Now}
}

// Start schedules Sweep on a cron expression and starts the scheduler.
func (w *Sweeper) Start(schedule string) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := w.Sweep(ctx); err != nil {
			slog.Error("orphan sweep failed", "error", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("schedule sweep %q: %w", schedule, err)
	}
	c.Start()
	slog.Info("orphan sweep scheduled", "schedule", schedule, "grace", w.grace)
	return c, nil
}

// Sweep runs one reconciliation pass.
func (w *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	cutoff := w.now().Add(-w.grace)

	topics := map[string]*Topic{}
	topic := func(id string) (*Topic, error) {
		if t, ok := topics[id]; ok {
			return t, nil
		}
		t, err := w.store.GetTopic(ctx, id)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		topics[id] = t
		return t, nil
	}

	tests, err := w.store.ListTestsBefore(ctx, cutoff)
	if err != nil {
		return res, fmt.Errorf("list tests: %w", err)
	}
	for _, t := range tests {
		owner, err := topic(t.Topic)
		if err != nil {
			return res, fmt.Errorf("load topic %s: %w", t.Topic, err)
		}
		if owner != nil && slices.ContainsFunc(owner.CoreResources, func(r ResourceItem) bool { return r.TestID() == t.ID }) {
			continue
		}
		if err := w.store.DeleteTest(ctx, t.ID); err != nil && !errors.Is(err, ErrNotFound) {
			return res, fmt.Errorf("delete test %s: %w", t.ID, err)
		}
		res.Tests++
	}

	comments, err := w.store.ListCommentsBefore(ctx, cutoff)
	if err != nil {
		return res, fmt.Errorf("list comments: %w", err)
	}
	courses := map[string]*Course{}
	for _, c := range comments {
		referenced := false
		if c.Topic != "" {
			owner, err := topic(c.Topic)
			if err != nil {
				return res, fmt.Errorf("load topic %s: %w", c.Topic, err)
			}
			referenced = owner != nil && (slices.Contains(owner.Doubt, c.ID) || slices.Contains(owner.ResourceDump, c.ID))
		} else {
			owner, ok := courses[c.Course]
			if !ok {
				owner, err = w.store.GetCourse(ctx, c.Course)
				if err != nil && !errors.Is(err, ErrNotFound) {
					return res, fmt.Errorf("load course %s: %w", c.Course, err)
				}
				courses[c.Course] = owner
			}
			referenced = owner != nil && slices.Contains(owner.Discussion, c.ID)
		}
		if referenced {
			continue
		}
		if err := w.store.DeleteComment(ctx, c.ID); err != nil && !errors.Is(err, ErrNotFound) {
			return res, fmt.Errorf("delete comment %s: %w", c.ID, err)
		}
		res.Comments++
	}

	if res.Tests > 0 || res.Comments > 0 {
		slog.Info("orphan sweep removed documents", "tests", res.Tests, "comments", res.Comments)
	}
	return res, nil
}
