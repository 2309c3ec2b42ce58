package glazeAuth

import (
	"context"
	"io"

	"github.com/MrEthical07/glazeAuth/internal/audit"
	"github.com/MrEthical07/glazeAuth/internal/flows"
	"go.uber.org/zap"
)

// AuditEvent is one audit record. ID and Timestamp are stamped on emit.
type AuditEvent = audit.Event

// AuditSink receives audit events from the client's dispatcher goroutine.
type AuditSink = audit.Sink

// NoOpSink discards audit events.
type NoOpSink = audit.NoOpSink

// ChannelSink forwards audit events to a buffered channel.
type ChannelSink = audit.ChannelSink

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink = audit.JSONWriterSink

// ZapSink logs audit events.
type ZapSink = audit.ZapSink

// NewChannelSink returns a [ChannelSink] with the given buffer.
func NewChannelSink(buffer int) *ChannelSink { return audit.NewChannelSink(buffer) }

// NewJSONWriterSink returns a [JSONWriterSink] writing to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink { return audit.NewJSONWriterSink(w) }

// NewZapSink returns a [ZapSink] logging through logger.
func NewZapSink(logger *zap.Logger) *ZapSink { return audit.NewZapSink(logger) }

// Audit event types.
const (
	AuditLoginSuccess   = "login_success"
	AuditLoginFailure   = "login_failure"
	AuditLogout         = "logout"
	AuditSessionExpired = "session_expired"
	AuditRequestFailure = "request_failure"
	AuditRefresh        = "token_refresh"
	AuditBind           = "bind"
	AuditUnbind         = "unbind"
)

func (c *Client) emitAudit(ctx context.Context, event AuditEvent) {
	if c == nil {
		return
	}
	c.audit.Emit(ctx, event)
}

func (c *Client) emitFlowRecord(ctx context.Context, rec flows.AuditRecord) {
	event := AuditEvent{
		EventType: rec.EventType,
		UserID:    rec.UserID,
		Success:   rec.Success,
		Metadata:  rec.Metadata,
	}
	if rec.Err != nil {
		event.Error = rec.Err.Error()
	}
	c.emitAudit(ctx, event)
}
