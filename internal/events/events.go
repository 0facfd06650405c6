// Package events publishes run lifecycle events.
//
// Events are published to NATS subjects of the form:
//   - seoflow.runs.{run_id}.started
//   - seoflow.runs.{run_id}.step
//   - seoflow.runs.{run_id}.completed
//   - seoflow.runs.{run_id}.failed
//   - seoflow.runs.{run_id}.cancelled
//
// Publishing is best effort. Callers log failures and carry on; a broker
// outage never fails a run.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// Type is the event kind, also the last subject token.
type Type string

const (
	RunStarted   Type = "started"
	StepFinished Type = "step"
	RunCompleted Type = "completed"
	RunFailed    Type = "failed"
	RunCancelled Type = "cancelled"
)

// DefaultSubjectPrefix is used when none is configured.
const DefaultSubjectPrefix = "seoflow.runs"

// Event is the JSON body of a lifecycle message.
type Event struct {
	Type         Type      `json:"type"`
	RunID        string    `json:"run_id"`
	WorkflowType string    `json:"workflow_type"`
	Agent        string    `json:"agent,omitempty"`
	StepIndex    int       `json:"step_index,omitempty"`
	StepStatus   string    `json:"step_status,omitempty"`
	Mode         string    `json:"mode,omitempty"`
	ResultID     string    `json:"result_id,omitempty"`
	Error        string    `json:"error,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Publisher emits lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// NATSPublisher publishes events as JSON on a NATS connection.
type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
	owned  bool
}

// NewNATSPublisher wraps an existing connection. The caller keeps
// ownership of nc.
func NewNATSPublisher(nc *nats.Conn, prefix string) *NATSPublisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATSPublisher{nc: nc, prefix: strings.TrimSuffix(prefix, ".")}
}

// Connect dials url and returns a publisher that closes the connection on
// Close.
func Connect(url, prefix string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("seoflow"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}
	p := NewNATSPublisher(nc, prefix)
	p.owned = true
	return p, nil
}

// Subject returns the subject an event is published on.
func (p *NATSPublisher) Subject(ev Event) string {
	return fmt.Sprintf("%s.%s.%s", p.prefix, ev.RunID, ev.Type)
}

// Publish sends ev. A zero timestamp is filled in.
func (p *NATSPublisher) Publish(ctx context.Context, ev Event) error {
	if ev.RunID == "" {
		return errors.New("event requires a run id")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.nc.Publish(p.Subject(ev), data); err != nil {
		return fmt.Errorf("publish %s event: %w", ev.Type, err)
	}
	return nil
}

// Close drains the connection if this publisher opened it.
func (p *NATSPublisher) Close() error {
	if !p.owned {
		return nil
	}
	return p.nc.Drain()
}

var (
	_ Publisher = Nop{}
	_ Publisher = (*NATSPublisher)(nil)
)
