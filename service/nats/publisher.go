package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/solquiz/service/metrics"
	"github.com/nats-io/nats.go"
)

// Publisher defines the interface for publishing report events to NATS.
type Publisher interface {
	// PublishReport publishes a report event to "solquiz.reports.{account}".
	PublishReport(ctx context.Context, event *ReportEvent) error

	// Close closes the connection to NATS.
	Close() error
}

// CorePublisher publishes report events with core NATS. Reports are
// fire-and-forget and are not persisted.
type CorePublisher struct {
	nc      *nats.Conn
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewPublisher connects to NATS. If metrics is nil, no metrics are recorded.
func NewPublisher(natsURL string, m *metrics.Metrics, logger *slog.Logger) (*CorePublisher, error) {
	nc, err := Connect(natsURL, "solquiz-publisher")
	if err != nil {
		return nil, err
	}

	logger.Info("NATS publisher initialized", "url", natsURL)

	return &CorePublisher{
		nc:      nc,
		logger:  logger,
		metrics: m,
	}, nil
}

// Connect opens a NATS connection that reconnects forever.
func Connect(natsURL, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name(name),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(1*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return nc, nil
}

// PublishReport publishes a single report event.
func (p *CorePublisher) PublishReport(ctx context.Context, event *ReportEvent) error {
	subject := Subject(event.Account)
	start := time.Now()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal report event: %w", err)
	}

	msg := nats.NewMsg(subject)
	msg.Data = data
	if event.ID != "" {
		msg.Header.Set(nats.MsgIdHdr, event.ID)
	}

	if err := p.nc.PublishMsg(msg); err != nil {
		p.record("error", start)
		return fmt.Errorf("failed to publish report: %w", err)
	}
	p.record("success", start)

	p.logger.DebugContext(ctx, "published report event",
		"subject", subject,
		"command", event.Command,
		"id", event.ID,
		"bytes", len(data),
	)
	return nil
}

func (p *CorePublisher) record(status string, start time.Time) {
	if p.metrics == nil {
		return
	}
	p.metrics.RecordNATSPublish(SubjectPrefix, status, time.Since(start).Seconds())
}

// Close drains pending messages and closes the connection.
func (p *CorePublisher) Close() error {
	if p.nc == nil {
		return nil
	}
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
		return fmt.Errorf("failed to drain NATS connection: %w", err)
	}
	p.logger.Info("NATS publisher closed")
	return nil
}

// Subscribe delivers decoded report events for subject to handler until ctx
// is cancelled. Messages that fail to decode are passed to onError.
func Subscribe(ctx context.Context, nc *nats.Conn, subject string, handler func(*ReportEvent), onError func(error)) error {
	ch := make(chan *nats.Msg, 64)
	sub, err := nc.ChanSubscribe(subject, ch)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-ch:
			var event ReportEvent
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				if onError != nil {
					onError(fmt.Errorf("failed to decode message on %s: %w", msg.Subject, err))
				}
				continue
			}
			handler(&event)
		}
	}
}
