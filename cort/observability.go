package cort

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// ObservabilityConfig configures tracing and debug logging for a session.
type ObservabilityConfig struct {
	// Debug enables verbose logging of all internal operations
	Debug bool `json:"debug"`

	// TraceEnabled enables OpenTelemetry tracing
	TraceEnabled bool `json:"trace_enabled"`

	// ServiceName is the service name for traces (default: "cort")
	ServiceName string `json:"service_name,omitempty"`

	// LogOutput controls where debug logs are written ("stderr", "stdout",
	// or a file path)
	LogOutput string `json:"log_output,omitempty"`

	// OnEvent is a callback for observability events (for custom integrations)
	OnEvent func(event ObservabilityEvent) `json:"-"`
}

// ObservabilityEvent represents a single observability event.
type ObservabilityEvent struct {
	Timestamp  time.Time         `json:"timestamp"`
	Type       string            `json:"type"` // "trace_start", "span_start", "model_call", "error", "event"
	Name       string            `json:"name"`
	Attributes map[string]string `json:"attributes"`
	Duration   time.Duration     `json:"duration,omitempty"`
	TraceID    string            `json:"trace_id,omitempty"`
	SpanID     string            `json:"span_id,omitempty"`
}

// Observer manages observability for a Session.
type Observer struct {
	config   ObservabilityConfig
	tracer   trace.Tracer
	logger   *log.Logger
	events   []ObservabilityEvent
	mu       sync.Mutex
	provider *sdktrace.TracerProvider
	rootCtx  context.Context
	rootSpan trace.Span
}

// NewObserver creates a new Observer with the given configuration. The
// CORT_DEBUG and OTEL_EXPORTER_OTLP_ENDPOINT environment variables override
// the corresponding fields.
func NewObserver(config ObservabilityConfig) *Observer {
	if v := os.Getenv("CORT_DEBUG"); v == "1" || v == "true" {
		config.Debug = true
	}
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" {
		config.TraceEnabled = true
	}

	obs := &Observer{
		config: config,
		events: make([]ObservabilityEvent, 0),
	}

	obs.setupLogger()
	if config.TraceEnabled {
		obs.setupTracer()
	}

	return obs
}

// NewNoopObserver creates an observer that does nothing (for when
// observability is disabled).
func NewNoopObserver() *Observer {
	return &Observer{
		config: ObservabilityConfig{},
		events: make([]ObservabilityEvent, 0),
		logger: log.New(io.Discard, "", 0),
	}
}

func (o *Observer) setupLogger() {
	if !o.config.Debug {
		o.logger = log.New(io.Discard, "", 0)
		return
	}

	var output io.Writer
	switch o.config.LogOutput {
	case "stdout":
		output = os.Stdout
	case "", "stderr":
		output = os.Stderr
	default:
		f, err := os.OpenFile(o.config.LogOutput, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			output = os.Stderr
		} else {
			output = f
		}
	}

	o.logger = log.New(output, "[CORT] ", log.LstdFlags|log.Lmicroseconds)
}

func (o *Observer) setupTracer() {
	exporter, err := stdouttrace.New(
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		o.logger.Printf("Failed to create trace exporter: %v", err)
		return
	}

	serviceName := o.config.ServiceName
	if serviceName == "" {
		serviceName = "cort"
	}

	o.provider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
	)

	otel.SetTracerProvider(o.provider)
	o.tracer = o.provider.Tracer(serviceName)
}

// StartTrace begins a new root trace for one thinking turn.
func (o *Observer) StartTrace(name string, attrs map[string]string) context.Context {
	if o.tracer == nil {
		o.rootCtx = context.Background()
		return o.rootCtx
	}

	ctx, span := o.tracer.Start(context.Background(), name,
		trace.WithAttributes(mapToAttributes(attrs)...),
	)
	o.rootCtx = ctx
	o.rootSpan = span

	o.recordEvent(ObservabilityEvent{
		Timestamp:  time.Now(),
		Type:       "trace_start",
		Name:       name,
		Attributes: attrs,
		TraceID:    span.SpanContext().TraceID().String(),
		SpanID:     span.SpanContext().SpanID().String(),
	})

	return ctx
}

// EndTrace ends the root trace.
func (o *Observer) EndTrace(ctx context.Context) {
	if o.rootSpan != nil {
		o.rootSpan.End()
	}
	if o.provider != nil {
		_ = o.provider.ForceFlush(context.Background())
	}
}

// StartSpan begins a new child span under the current turn's trace.
func (o *Observer) StartSpan(name string, attrs map[string]string) context.Context {
	if o.tracer == nil {
		if o.rootCtx == nil {
			o.rootCtx = context.Background()
		}
		return o.rootCtx
	}

	parentCtx := o.rootCtx
	if parentCtx == nil {
		parentCtx = context.Background()
	}

	ctx, span := o.tracer.Start(parentCtx, name,
		trace.WithAttributes(mapToAttributes(attrs)...),
	)

	o.recordEvent(ObservabilityEvent{
		Timestamp:  time.Now(),
		Type:       "span_start",
		Name:       name,
		Attributes: attrs,
		TraceID:    span.SpanContext().TraceID().String(),
		SpanID:     span.SpanContext().SpanID().String(),
	})

	return ctx
}

// EndSpan ends a child span.
func (o *Observer) EndSpan(ctx context.Context) {
	span := trace.SpanFromContext(ctx)
	if span != nil {
		span.End()
	}
}

// ModelCall records one chat-completion call against the backend.
func (o *Observer) ModelCall(backend string, messageCount int, estimatedTokens int, duration time.Duration, err error) {
	attrs := map[string]string{
		"backend":          backend,
		"message_count":    fmt.Sprintf("%d", messageCount),
		"estimated_tokens": fmt.Sprintf("%d", estimatedTokens),
		"duration_ms":      fmt.Sprintf("%d", duration.Milliseconds()),
	}
	if err != nil {
		attrs["error"] = err.Error()
	}

	o.Debug("model_call", "backend=%s messages=%d tokens~%d duration=%s", backend, messageCount, estimatedTokens, duration)

	if o.tracer != nil && o.rootCtx != nil {
		_, span := o.tracer.Start(o.rootCtx, "model.call",
			trace.WithAttributes(mapToAttributes(attrs)...),
		)
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	}

	o.recordEvent(ObservabilityEvent{
		Timestamp:  time.Now(),
		Type:       "model_call",
		Name:       fmt.Sprintf("model.%s", backend),
		Attributes: attrs,
		Duration:   duration,
	})
}

// Debug logs a debug message if debug mode is enabled.
func (o *Observer) Debug(component string, format string, args ...interface{}) {
	if !o.config.Debug {
		return
	}
	msg := fmt.Sprintf(format, args...)
	o.logger.Printf("[%s] %s", component, msg)
}

// Error logs an error message and records it as an event.
func (o *Observer) Error(component string, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if o.config.Debug {
		o.logger.Printf("[ERROR][%s] %s", component, msg)
	}

	o.recordEvent(ObservabilityEvent{
		Timestamp: time.Now(),
		Type:      "error",
		Name:      component,
		Attributes: map[string]string{
			"message": msg,
		},
	})
}

// Event records a named event with attributes.
func (o *Observer) Event(name string, attrs map[string]string) {
	o.Debug("event", "%s: %v", name, attrs)

	if o.tracer != nil && o.rootCtx != nil {
		span := trace.SpanFromContext(o.rootCtx)
		if span != nil {
			span.AddEvent(name, trace.WithAttributes(mapToAttributes(attrs)...))
		}
	}

	o.recordEvent(ObservabilityEvent{
		Timestamp:  time.Now(),
		Type:       "event",
		Name:       name,
		Attributes: attrs,
	})
}

// GetEvents returns all recorded observability events.
func (o *Observer) GetEvents() []ObservabilityEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	events := make([]ObservabilityEvent, len(o.events))
	copy(events, o.events)
	return events
}

// GetEventsJSON returns all events as a JSON string.
func (o *Observer) GetEventsJSON() (string, error) {
	events := o.GetEvents()
	data, err := json.Marshal(events)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Shutdown gracefully shuts down the observer and flushes any pending data.
func (o *Observer) Shutdown() {
	if o.provider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = o.provider.Shutdown(ctx)
	}
}

func (o *Observer) recordEvent(event ObservabilityEvent) {
	o.mu.Lock()
	o.events = append(o.events, event)
	o.mu.Unlock()

	if o.config.OnEvent != nil {
		o.config.OnEvent(event)
	}
}

// mapToAttributes converts a map to OTEL attributes.
func mapToAttributes(attrs map[string]string) []attribute.KeyValue {
	result := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		result = append(result, attribute.String(k, v))
	}
	return result
}
