package observability

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"visitgate/internal/audit"
	auditdomain "visitgate/internal/audit/domain"
)

// recordLogger is the subset of otellog.Logger the emitter needs; split out so
// tests can capture emitted records.
type recordLogger interface {
	Emit(ctx context.Context, rec otellog.Record)
}

// NewAuditEmitter returns an audit.Emitter that ships events as OTel log
// records via the given LoggerProvider. A nil provider yields a no-op emitter.
func NewAuditEmitter(provider *sdklog.LoggerProvider) audit.Emitter {
	if provider == nil {
		return noopEmitter{}
	}
	return &otelEmitter{logger: provider.Logger("visitgate.audit")}
}

// NewAuditEmitterWithLogger builds an emitter over an explicit record logger.
func NewAuditEmitterWithLogger(logger recordLogger) audit.Emitter {
	return &otelEmitter{logger: logger}
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, *auditdomain.AuditLog) error { return nil }

type otelEmitter struct {
	logger recordLogger
}

// Emit converts the audit event to an OTel log record and emits it.
func (e *otelEmitter) Emit(ctx context.Context, event *auditdomain.AuditLog) error {
	if event == nil {
		return nil
	}
	rec := otellog.Record{}
	if !event.CreatedAt.IsZero() {
		rec.SetTimestamp(event.CreatedAt)
	} else {
		rec.SetTimestamp(time.Now().UTC())
	}
	if event.Metadata != "" {
		rec.SetBody(otellog.StringValue(event.Metadata))
	}
	if event.TenantID != "" {
		rec.AddAttributes(otellog.String("tenant_id", event.TenantID))
	}
	if event.IdentityID != "" {
		rec.AddAttributes(otellog.String("identity_id", event.IdentityID))
	}
	if event.Action != "" {
		rec.AddAttributes(otellog.String("action", event.Action))
	}
	if event.Resource != "" {
		rec.AddAttributes(otellog.String("resource", event.Resource))
	}
	if event.IP != "" {
		rec.AddAttributes(otellog.String("ip", event.IP))
	}
	e.logger.Emit(ctx, rec)
	return nil
}
