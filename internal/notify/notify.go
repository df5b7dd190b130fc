// Package notify publishes appended alerts to caregiver-facing subscribers.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/pbaille/neuroassist/internal/domain"
)

// Publisher delivers an alert after it has been stored.
type Publisher interface {
	Publish(ctx context.Context, alert domain.Alert) error
	Close() error
}

// Nop discards alerts. It is used when no NATS URL is configured.
type Nop struct{}

func (Nop) Publish(context.Context, domain.Alert) error { return nil }
func (Nop) Close() error                                { return nil }

// NATSPublisher publishes each alert as JSON to <prefix>.<userId>.<type>.
type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
	owned  bool
}

// Connect dials url and returns a publisher that owns the connection.
func Connect(url, prefix string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("neuroassist"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(1*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}
	p := NewNATSPublisher(nc, prefix)
	p.owned = true
	return p, nil
}

// NewNATSPublisher wraps an existing connection. Close leaves nc open.
func NewNATSPublisher(nc *nats.Conn, prefix string) *NATSPublisher {
	if prefix == "" {
		prefix = "alerts"
	}
	return &NATSPublisher{nc: nc, prefix: prefix}
}

// Subject returns the subject an alert is published on.
func (p *NATSPublisher) Subject(a domain.Alert) string {
	return strings.Join([]string{p.prefix, token(a.UserID), token(string(a.Type))}, ".")
}

func (p *NATSPublisher) Publish(ctx context.Context, a domain.Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	if err := p.nc.Publish(p.Subject(a), data); err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}
	return nil
}

func (p *NATSPublisher) Close() error {
	if !p.owned {
		return nil
	}
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
		return fmt.Errorf("drain NATS connection: %w", err)
	}
	return nil
}

// token strips characters with special meaning in NATS subjects.
func token(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, s)
}
