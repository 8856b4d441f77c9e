package api

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	notesSpanName    = "notes.fetch"
	notesEventName   = "notes.request"
	notesEventDomain = "notekeep"
	notesRoute       = "/notes/fetch"
	tracerName       = "notekeep-api/api"
)

type noteRequestMetrics struct {
	logger         *log.Logger
	span           trace.Span
	start          time.Time
	authDuration   time.Duration
	fetchDuration  time.Duration
	encodeDuration time.Duration
	notesReturned  int
	errorStage     string
}

func newNoteRequestMetrics(ctx context.Context, logger *log.Logger) (*noteRequestMetrics, context.Context) {
	spanCtx, span := otel.Tracer(tracerName).Start(ctx, notesSpanName)
	m := &noteRequestMetrics{
		logger: logger,
		span:   span,
		start:  time.Now(),
	}
	return m, spanCtx
}

func (m *noteRequestMetrics) ObserveAuth(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.authDuration = duration
}

func (m *noteRequestMetrics) ObserveFetch(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.fetchDuration = duration
}

func (m *noteRequestMetrics) ObserveEncode(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.encodeDuration = duration
}

func (m *noteRequestMetrics) SetNotesReturned(count int) {
	if count < 0 {
		count = 0
	}
	m.notesReturned = count
}

func (m *noteRequestMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

// Log finishes the request span and emits one observability event carrying
// the per-stage timings, both as a span event and as a structured log line.
func (m *noteRequestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}

	totalMillis := durationToMillis(time.Since(m.start))
	severityText, severityNumber := severityForStatus(status, err)

	attrs := map[string]any{
		"http.route":                    notesRoute,
		"http.status_code":              status,
		"notekeep.notes.total_ms":       totalMillis,
		"notekeep.notes.notes_returned": m.notesReturned,
	}
	if m.authDuration > 0 {
		attrs["notekeep.notes.auth_ms"] = durationToMillis(m.authDuration)
	}
	if m.fetchDuration > 0 {
		attrs["notekeep.notes.fetch_ms"] = durationToMillis(m.fetchDuration)
	}
	if m.encodeDuration > 0 {
		attrs["notekeep.notes.encode_ms"] = durationToMillis(m.encodeDuration)
	}
	if m.errorStage != "" {
		attrs["notekeep.notes.error_stage"] = m.errorStage
	}
	if err != nil {
		attrs["error.message"] = err.Error()
	}

	traceID := ""
	if m.span != nil {
		spanAttrs := []attribute.KeyValue{
			attribute.String("http.route", notesRoute),
			attribute.Int64("http.status_code", int64(status)),
		}
		if m.errorStage != "" {
			spanAttrs = append(spanAttrs, attribute.String("notekeep.notes.error_stage", m.errorStage))
		}
		m.span.SetAttributes(spanAttrs...)

		eventAttrs := []attribute.KeyValue{
			attribute.String("event.name", notesEventName),
			attribute.String("event.domain", notesEventDomain),
			attribute.String("severity_text", severityText),
			attribute.Int("severity_number", severityNumber),
			attribute.Float64("notekeep.notes.total_ms", totalMillis),
			attribute.Int("notekeep.notes.notes_returned", m.notesReturned),
		}
		if m.errorStage != "" {
			eventAttrs = append(eventAttrs, attribute.String("notekeep.notes.error_stage", m.errorStage))
		}
		if err != nil {
			eventAttrs = append(eventAttrs, attribute.String("error.message", err.Error()))
		}
		m.span.AddEvent("observability.event", trace.WithAttributes(eventAttrs...))

		if err != nil || status >= http.StatusInternalServerError {
			description := "request failed"
			if err != nil {
				description = err.Error()
			}
			m.span.SetStatus(codes.Error, description)
		} else {
			m.span.SetStatus(codes.Ok, "")
		}
		if sc := m.span.SpanContext(); sc.HasTraceID() {
			traceID = sc.TraceID().String()
		}
		m.span.End()
	}

	if m.logger == nil {
		return
	}
	fields := log.Fields{
		"event.name":      notesEventName,
		"event.domain":    notesEventDomain,
		"attributes":      attrs,
		"severity_text":   severityText,
		"severity_number": severityNumber,
	}
	if traceID != "" {
		fields["trace_id"] = traceID
	}
	m.logger.WithFields(fields).Info("observability.event")
}

func severityForStatus(status int, err error) (string, int) {
	switch {
	case err != nil || status >= http.StatusInternalServerError:
		return "ERROR", 17
	case status >= http.StatusBadRequest:
		return "WARN", 13
	default:
		return "INFO", 9
	}
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
