package authclient

import (
	"context"
	"io"

	internalaudit "github.com/MrEthical07/authclient/internal/audit"
	"github.com/sirupsen/logrus"
)

// Audit event types emitted by the Client.
const (
	AuditLoginSuccess   = "login_success"
	AuditLoginFailure   = "login_failure"
	AuditLogout         = "logout"
	AuditRefreshSuccess = "refresh_success"
	AuditRefreshFailure = "refresh_failure"
	AuditTeardown       = "session_teardown"
	AuditReplayRejected = "replay_rejected"
	AuditExportRejected = "export_rejected"
)

// AuditEvent is a structured audit record emitted by the client.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the client's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// LogrusSink is an [AuditSink] that writes events as log entries.
type LogrusSink = internalaudit.LogrusSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewLogrusSink creates a [LogrusSink] that writes to l.
func NewLogrusSink(l logrus.FieldLogger) *LogrusSink {
	return internalaudit.NewLogrusSink(l)
}

func (c *Client) emitAudit(ctx context.Context, event AuditEvent) {
	if c == nil || c.audit == nil {
		return
	}
	if event.RequestID == "" {
		event.RequestID = RequestIDFromContext(ctx)
	}
	c.audit.Emit(ctx, event)
}
