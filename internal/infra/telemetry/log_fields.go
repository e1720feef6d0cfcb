package telemetry

import (
	"time"

	"go.uber.org/zap"
)

const (
	FieldEvent      = "event"
	FieldTool       = "tool"
	FieldURI        = "uri"
	FieldFileKey    = "fileKey"
	FieldEndpoint   = "endpoint"
	FieldStatus     = "status"
	FieldDurationMs = "duration_ms"
	FieldRequestID  = "request_id"
	FieldTraceID    = "trace_id"
	FieldSpanID     = "span_id"
)

const (
	EventToolCall      = "tool_call"
	EventToolError     = "tool_error"
	EventExport        = "export"
	EventResourceRead  = "resource_read"
	EventConfigReload  = "config_reload"
	EventClientSwapped = "client_swapped"
)

func EventField(event string) zap.Field {
	return zap.String(FieldEvent, event)
}

func ToolField(name string) zap.Field {
	return zap.String(FieldTool, name)
}

func URIField(uri string) zap.Field {
	return zap.String(FieldURI, uri)
}

func FileKeyField(fileKey string) zap.Field {
	return zap.String(FieldFileKey, fileKey)
}

func EndpointField(endpoint string) zap.Field {
	return zap.String(FieldEndpoint, endpoint)
}

func StatusField(status int) zap.Field {
	return zap.Int(FieldStatus, status)
}

func DurationField(duration time.Duration) zap.Field {
	return zap.Int64(FieldDurationMs, duration.Milliseconds())
}

func RequestIDField(value string) zap.Field {
	return zap.String(FieldRequestID, value)
}

func TraceIDField(value string) zap.Field {
	return zap.String(FieldTraceID, value)
}

func SpanIDField(value string) zap.Field {
	return zap.String(FieldSpanID, value)
}
