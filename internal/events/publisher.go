// Package events records account lifecycle transitions to the analytics
// and audit pipelines. Publishing is best-effort: sink failures are logged
// and never surface to the caller.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"vsgifts-api/internal/models"
	"vsgifts-api/internal/util"
)

// Publisher accepts lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, event models.SecurityEvent)
}

// Sink is one destination for events.
type Sink interface {
	Name() string
	Write(ctx context.Context, event models.SecurityEvent) error
}

// Dispatcher fans each event out to every sink concurrently and waits
// for all of them, bounded by timeout.
type Dispatcher struct {
	sinks   []Sink
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

func NewDispatcher(logger *zap.Logger, timeout time.Duration, sinks ...Sink) *Dispatcher {
	return &Dispatcher{
		sinks:   sinks,
		timeout: timeout,
		logger:  logger.Named("events"),
		now:     time.Now,
	}
}

func (d *Dispatcher) Publish(ctx context.Context, event models.SecurityEvent) {
	if len(d.sinks) == 0 {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = d.now().UTC()
	}

	// Detached from request cancellation so a client hang-up does not drop the audit trail.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	var g errgroup.Group
	for _, sink := range d.sinks {
		g.Go(func() error {
			if err := sink.Write(ctx, event); err != nil {
				d.logger.Warn("Failed to publish event",
					util.String("sink", sink.Name()),
					util.String("event_type", string(event.Type)),
					util.String("account_id", event.AccountID),
					util.ErrorField(err),
				)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, models.SecurityEvent) {}
