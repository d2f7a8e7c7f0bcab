package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-evaluation-api/internal/observability"
)

// Publisher delivers integration events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NATSPublisher publishes events on `<base>.<event type>` subjects.
type NATSPublisher struct {
	conn        *nats.Conn
	subjectBase string
	logger      zerolog.Logger
}

// NewNATSPublisher wraps an established NATS connection.
func NewNATSPublisher(conn *nats.Conn, subjectBase string, logger zerolog.Logger) *NATSPublisher {
	return &NATSPublisher{
		conn:        conn,
		subjectBase: strings.Trim(strings.ReplaceAll(subjectBase, ":", "."), "."),
		logger:      logger.With().Str("component", "nats_publisher").Logger(),
	}
}

// Subject returns the NATS subject an event type is published on.
func (p *NATSPublisher) Subject(eventType Type) string {
	if p.subjectBase == "" {
		return string(eventType)
	}
	return p.subjectBase + "." + string(eventType)
}

// Publish marshals the event and hands it to NATS.
func (p *NATSPublisher) Publish(ctx context.Context, event Event) error {
	if p.conn == nil {
		return fmt.Errorf("nats connection not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := p.message(ctx, event)
	if err != nil {
		return err
	}
	subject := msg.Subject

	if err := p.conn.PublishMsg(msg); err != nil {
		p.logger.Error().Err(err).Str("event_id", event.ID).Str("subject", subject).Msg("failed to publish event")
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug().Str("event_id", event.ID).Str("subject", subject).Msg("event published")
	return nil
}

func (p *NATSPublisher) message(ctx context.Context, event Event) (*nats.Msg, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := nats.NewMsg(p.Subject(event.Type))
	msg.Data = payload
	msg.Header.Set("event_id", event.ID)
	msg.Header.Set("event_type", string(event.Type))
	msg.Header.Set("version", event.Version)
	if correlationID := observability.CorrelationID(ctx); correlationID != "" {
		msg.Header.Set("correlation_id", correlationID)
	}
	return msg, nil
}

// Close drains the underlying connection.
func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}

// NoopPublisher discards events. Used when NATS is not configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }

func (NoopPublisher) Close() error { return nil }

// MemoryPublisher records events in memory for tests and local tooling.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
	Err    error
}

func (m *MemoryPublisher) Publish(_ context.Context, event Event) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *MemoryPublisher) Close() error { return nil }

// Events returns a copy of everything published so far.
func (m *MemoryPublisher) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}
