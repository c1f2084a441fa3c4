// internal/service/outbox.go
package service

import (
	"log/slog"

	"driverpay/internal/domain"
)

// EventPublisher delivers post-commit events to interested consumers.
// Delivery is fire-and-forget: a publish error must never affect the
// financial state it describes.
type EventPublisher interface {
	Publish(event domain.Event) error
}

// outbox accumulates events during a transactional scope. Events are flushed
// only after the scope commits; a rolled-back scope simply drops them.
type outbox struct {
	events []domain.Event
}

func newOutbox() *outbox {
	return &outbox{}
}

func (o *outbox) add(event domain.Event) {
	o.events = append(o.events, event)
}

// flush hands every accumulated event to the publisher. Failures are logged
// and swallowed; the financial state already committed.
func (o *outbox) flush(pub EventPublisher, logger *slog.Logger) {
	for _, event := range o.events {
		if err := pub.Publish(event); err != nil {
			logger.Error("failed to publish event", "event", event.Name, "driver_id", event.DriverID, "error", err)
		}
	}
	o.events = nil
}

// ChannelPublisher is an in-process EventPublisher backed by a buffered
// channel. A full channel drops the event rather than block a request.
type ChannelPublisher struct {
	ch     chan domain.Event
	logger *slog.Logger
}

// NewChannelPublisher creates a publisher with the given buffer size.
func NewChannelPublisher(buffer int, logger *slog.Logger) *ChannelPublisher {
	return &ChannelPublisher{
		ch:     make(chan domain.Event, buffer),
		logger: logger,
	}
}

// Publish enqueues the event without blocking.
func (p *ChannelPublisher) Publish(event domain.Event) error {
	select {
	case p.ch <- event:
		return nil
	default:
		p.logger.Warn("event channel full, dropping event", "event", event.Name, "driver_id", event.DriverID)
		return nil
	}
}

// Events exposes the delivery channel for consumers.
func (p *ChannelPublisher) Events() <-chan domain.Event {
	return p.ch
}
