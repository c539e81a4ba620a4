// Package events carries the signal lifecycle over NATS: enrichment dispatch
// plus best-effort terminal-state announcements.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	// SubjectEnrichRequested dispatches a capture to the enrichment worker.
	SubjectEnrichRequested = "signal.enrich.requested"

	// SubjectEnriched and SubjectParked announce terminal transitions.
	SubjectEnriched = "signal.enriched"
	SubjectParked   = "signal.parked"
)

// EnrichRequested is the detached unit of work produced by a capture.
type EnrichRequested struct {
	SignalID string `json:"signal_id"`
	Intent   string `json:"intent"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Content  string `json:"content"`
}

type Client struct {
	conn   *nats.Conn
	subs   []*nats.Subscription
	logger *slog.Logger
}

func NewClient(url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

func (c *Client) Subscribe(subject string, handler func(subject string, data []byte)) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	c.subs = append(c.subs, sub)
	c.logger.Info("subscribed", "subject", subject)
	return nil
}

func (c *Client) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.conn.Close()
}

// Dispatcher queues enrichment work on the bus.
type Dispatcher struct {
	client *Client
}

func NewDispatcher(client *Client) *Dispatcher {
	return &Dispatcher{client: client}
}

func (d *Dispatcher) Dispatch(job EnrichRequested) error {
	if err := d.client.Publish(SubjectEnrichRequested, job); err != nil {
		return fmt.Errorf("dispatch enrichment for %s: %w", job.SignalID, err)
	}
	return nil
}
