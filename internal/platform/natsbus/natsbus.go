// Package natsbus publishes task lifecycle events to NATS so other services
// can follow task progress without polling the HTTP API.
package natsbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/phrazzld/mediaflow-api/internal/events"
)

// Config holds the NATS connection settings.
type Config struct {
	URL           string
	Name          string
	MaxReconnects int
}

// Connect opens a connection to the NATS server.
func Connect(cfg Config) (*nats.Conn, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("empty NATS url")
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return nc, nil
}

// MsgPublisher is the subset of *nats.Conn used by Publisher.
type MsgPublisher interface {
	PublishMsg(m *nats.Msg) error
}

// Header keys set on every published event.
const (
	HeaderEventType = "Mediaflow-Event-Type"
	HeaderTaskID    = "Mediaflow-Task-Id"
)

// Publisher forwards task events to NATS subjects of the form
// <prefix>.<kind>.
type Publisher struct {
	conn   MsgPublisher
	prefix string
	logger *slog.Logger
}

// NewPublisher creates a publisher writing under the subject prefix.
func NewPublisher(conn MsgPublisher, prefix string, logger *slog.Logger) *Publisher {
	if prefix == "" {
		prefix = "mediaflow.tasks"
	}
	return &Publisher{
		conn:   conn,
		prefix: prefix,
		logger: logger.With("component", "nats_publisher"),
	}
}

// Subject returns the subject events for kind are published to.
func (p *Publisher) Subject(kind string) string {
	return p.prefix + "." + kind
}

// HandleEvent implements events.EventHandler.
func (p *Publisher) HandleEvent(ctx context.Context, event *events.TaskEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.ID, err)
	}

	msg := &nats.Msg{
		Subject: p.Subject(string(event.Kind)),
		Data:    data,
		Header:  nats.Header{},
	}
	msg.Header.Set(nats.MsgIdHdr, event.ID.String())
	msg.Header.Set(HeaderEventType, string(event.Type))
	msg.Header.Set(HeaderTaskID, event.TaskID)

	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish event %s for task %s: %w", event.Type, event.TaskID, err)
	}

	p.logger.Debug("event published",
		slog.String("subject", msg.Subject),
		slog.String("event_type", string(event.Type)),
		slog.String("task_id", event.TaskID))
	return nil
}

var _ events.EventHandler = (*Publisher)(nil)
