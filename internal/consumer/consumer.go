// Package consumer subscribes to module build state-change events on
// the message bus and feeds ready builds to the event handler. It owns
// no matching logic; transport stays thin.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/modtag/modtag/internal/errs"
	"github.com/modtag/modtag/internal/handler"
	"github.com/modtag/modtag/internal/telemetry"
)

// StateReady is the build state that triggers tagging. Other
// state-change events are ignored.
const StateReady = "ready"

// EventHandler processes one build event to completion.
type EventHandler interface {
	Handle(ctx context.Context, event handler.BuildEvent) error
}

// Consumer is a queue subscriber for build state-change events.
// Events are processed one at a time; a subscription callback returns
// before the next delivery is handled.
type Consumer struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	handler EventHandler
	subject string
	queue   string
	logger  zerolog.Logger
}

// New creates a consumer on the given subject and queue group.
func New(nc *nats.Conn, subject, queue string, h EventHandler, logger zerolog.Logger) *Consumer {
	return &Consumer{
		nc:      nc,
		handler: h,
		subject: subject,
		queue:   queue,
		logger:  logger,
	}
}

// Start subscribes and begins processing deliveries. The given context
// is passed through to the handler.
func (c *Consumer) Start(ctx context.Context) error {
	sub, err := c.nc.QueueSubscribe(c.subject, c.queue, func(msg *nats.Msg) {
		c.process(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", c.subject, err)
	}
	c.sub = sub
	c.logger.Info().Str("subject", c.subject).Str("queue", c.queue).Msg("consuming build events")
	return nil
}

func (c *Consumer) process(ctx context.Context, msg *nats.Msg) {
	var event handler.BuildEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		c.logger.Error().Err(err).Str("subject", msg.Subject).Msg("discarding malformed event")
		telemetry.EventsTotal.WithLabelValues("skipped").Inc()
		return
	}
	if event.State != StateReady {
		c.logger.Debug().Str("state", event.State).Str("nsvc", event.NSVC()).
			Msg("ignoring build event, not ready")
		telemetry.EventsTotal.WithLabelValues("skipped").Inc()
		return
	}

	c.logger.Info().Str("nsvc", event.NSVC()).Msg("handling module build event")
	if err := c.handler.Handle(ctx, event); err != nil {
		// No retry or requeue here: redelivery is the bus's business.
		switch errs.ClassOf(err) {
		case errs.Invalid:
			c.logger.Error().Err(err).Str("nsvc", event.NSVC()).Msg("event failed with invalid data")
		default:
			c.logger.Warn().Err(err).Str("nsvc", event.NSVC()).Msg("event failed")
		}
	}
}

// Close drains the subscription so in-flight deliveries finish.
func (c *Consumer) Close() error {
	if c.sub == nil {
		return nil
	}
	return c.sub.Drain()
}
