package jobs

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// Event is published for every job change.
type Event struct {
	Type string    `json:"type"` // created | status | progress | error | stats | output
	Job  Job       `json:"job"`
	At   time.Time `json:"at"`
}

// MessageWriter is the subset of *kafka.Writer used by Publishing.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaWriter returns a writer for topic on brokers, keyed by job id so
// events of one job stay ordered within a partition.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
}

// Publishing decorates a Tracker and publishes an Event after every
// successful change. Publish failures are logged and never fail the change.
type Publishing struct {
	Tracker
	w MessageWriter
}

// NewPublishing wraps t.
func NewPublishing(t Tracker, w MessageWriter) *Publishing {
	return &Publishing{Tracker: t, w: w}
}

// Unwrap returns the decorated tracker.
func (p *Publishing) Unwrap() Tracker { return p.Tracker }

func (p *Publishing) publish(ctx context.Context, typ, id string) {
	j, err := p.Tracker.Get(ctx, id)
	if err != nil {
		log.Printf("jobs: publish %s %s: %v", typ, id, err)
		return
	}
	b, err := json.Marshal(Event{Type: typ, Job: j, At: time.Now().UTC()})
	if err != nil {
		log.Printf("jobs: publish %s %s: %v", typ, id, err)
		return
	}
	if err := p.w.WriteMessages(ctx, kafka.Message{Key: []byte(id), Value: b}); err != nil {
		log.Printf("jobs: publish %s %s: %v", typ, id, err)
	}
}

func (p *Publishing) after(ctx context.Context, typ, id string, err error) error {
	if err == nil {
		p.publish(ctx, typ, id)
	}
	return err
}

func (p *Publishing) Create(ctx context.Context, id, kind string) (Job, error) {
	j, err := p.Tracker.Create(ctx, id, kind)
	return j, p.after(ctx, "created", id, err)
}

func (p *Publishing) SetStatus(ctx context.Context, id string, s Status) error {
	return p.after(ctx, "status", id, p.Tracker.SetStatus(ctx, id, s))
}

func (p *Publishing) SetProgress(ctx context.Context, id string, pct int) error {
	return p.after(ctx, "progress", id, p.Tracker.SetProgress(ctx, id, pct))
}

func (p *Publishing) AppendError(ctx context.Context, id, msg string) error {
	return p.after(ctx, "error", id, p.Tracker.AppendError(ctx, id, msg))
}

func (p *Publishing) SetStats(ctx context.Context, id string, v any) error {
	return p.after(ctx, "stats", id, p.Tracker.SetStats(ctx, id, v))
}

func (p *Publishing) SetOutput(ctx context.Context, id, path string) error {
	return p.after(ctx, "output", id, p.Tracker.SetOutput(ctx, id, path))
}

// Close closes the writer, then the wrapped tracker.
func (p *Publishing) Close() error {
	werr := p.w.Close()
	if err := p.Tracker.Close(); err != nil {
		return err
	}
	return werr
}
