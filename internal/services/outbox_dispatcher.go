package services

import (
	"context"
	"log/slog"

	"qyzmetBack/internal/models"
)

// OutboxDispatcher drains pending outbox events into the notifier. Delivery is
// at-least-once: an event is only marked processed after the durable writes
// succeed, and a crash in between re-delivers it on the next sweep.
type OutboxDispatcher struct {
	Outbox   OutboxStore
	Notifier *Notifier
	Logger   *slog.Logger
}

// DispatchPending delivers up to limit events and reports how many went out.
func (d *OutboxDispatcher) DispatchPending(ctx context.Context, limit int) (int, error) {
	events, err := d.Outbox.ListPending(ctx, limit)
	if err != nil {
		return 0, err
	}
	delivered := 0
	for _, ev := range events {
		if err := d.deliver(ctx, ev); err != nil {
			d.logger().Error("outbox delivery failed", "event_id", ev.ID, "kind", ev.Kind, "err", err)
			if err := d.Outbox.BumpAttempts(ctx, ev.ID); err != nil {
				d.logger().Error("failed to bump outbox attempts", "event_id", ev.ID, "err", err)
			}
			continue
		}
		if err := d.Outbox.MarkProcessed(ctx, ev.ID); err != nil {
			d.logger().Error("failed to mark outbox event processed", "event_id", ev.ID, "err", err)
			continue
		}
		delivered++
	}
	return delivered, nil
}

func (d *OutboxDispatcher) deliver(ctx context.Context, ev models.OutboxEvent) error {
	if d.Notifier == nil {
		return nil
	}
	return d.Notifier.Deliver(ctx, ev)
}

func (d *OutboxDispatcher) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}
