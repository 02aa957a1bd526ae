package audit

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
)

// Event is one session lifecycle record. It never carries token values.
type Event struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	RequestID string            `json:"request_id,omitempty"`
	Method    string            `json:"method,omitempty"`
	Path      string            `json:"path,omitempty"`
	Status    int               `json:"status,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Fields flattens the event for structured loggers. Metadata keys get a meta_ prefix.
func (e Event) Fields() logrus.Fields {
	f := logrus.Fields{
		"component":  "audit",
		"event_id":   e.ID,
		"event_type": e.EventType,
		"success":    e.Success,
	}
	optional := map[string]string{"request_id": e.RequestID, "method": e.Method, "path": e.Path}
	for k, v := range optional {
		if v != "" {
			f[k] = v
		}
	}
	if e.Status != 0 {
		f["status"] = e.Status
	}
	for k, v := range e.Metadata {
		f["meta_"+k] = v
	}
	return f
}

// Sink receives events from the Dispatcher goroutine.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink hands events to a reader over a buffered channel.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{events: make(chan Event, max(buffer, 1))}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event { return s.events }

// JSONWriterSink writes newline-delimited JSON.
type JSONWriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{w: w}
}

func (s *JSONWriterSink) Emit(_ context.Context, event Event) {
	if s == nil || s.w == nil {
		return
	}
	line, err := json.Marshal(event)
	if err != nil {
		return
	}
	s.mu.Lock()
	_, _ = s.w.Write(append(line, '\n'))
	s.mu.Unlock()
}

// LogrusSink logs successes at Info and failures at Warn.
type LogrusSink struct {
	log logrus.FieldLogger
}

func NewLogrusSink(l logrus.FieldLogger) *LogrusSink {
	return &LogrusSink{log: l}
}

func (s *LogrusSink) Emit(_ context.Context, event Event) {
	if s == nil || s.log == nil {
		return
	}
	entry := s.log.WithFields(event.Fields())
	if event.Success {
		entry.Info("audit event")
		return
	}
	entry.WithField("error", event.Error).Warn("audit event")
}
