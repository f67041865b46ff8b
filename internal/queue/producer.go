// Package queue publishes ticket lifecycle events to a Redis stream for
// downstream consumers (maintenance dashboards, escalation workers).
package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"fieldops.app/incidentbot/internal/model"
)

type TicketEvent struct {
	TicketID int64
	Code     string
	Category model.Category
	Severity model.Severity
	Identity string
}

type Producer interface {
	TicketSaved(ctx context.Context, event TicketEvent) error
	Close() error
}

type redisProducer struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisProducer(client *redis.Client, stream string, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{
		client: client,
		stream: stream,
		logger: logger,
	}
}

func (p *redisProducer) TicketSaved(ctx context.Context, event TicketEvent) error {
	fields := map[string]any{
		"event_type": "ticket.saved",
		"ticket_id":  event.TicketID,
		"code":       event.Code,
		"category":   string(event.Category),
		"severity":   string(event.Severity),
		"identity":   event.Identity,
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: fields,
	}).Err(); err != nil {
		return fmt.Errorf("publishing ticket event: %w", err)
	}

	p.logger.InfoContext(ctx, "published ticket event", "ticket_id", event.TicketID, "code", event.Code, "severity", event.Severity)
	return nil
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}
