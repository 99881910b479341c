package lmstfy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

type telemetryHarness struct {
	client   *Client
	stub     *stubTransport
	exporter *tracetest.InMemoryExporter
	reader   *sdkmetric.ManualReader
	logs     *bytes.Buffer
}

func newTelemetryHarness(t *testing.T, stub *stubTransport) *telemetryHarness {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { tp.Shutdown(context.Background()) })

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { mp.Shutdown(context.Background()) })

	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	client, err := NewClient("127.0.0.1:7777", "test-ns", "test-token",
		WithTransport(stub),
		WithTracerProvider(tp),
		WithMeterProvider(mp),
		WithLogger(logger),
		WithRequestIDFunc(func() string { return "req-1" }),
	)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return &telemetryHarness{client: client, stub: stub, exporter: exporter, reader: reader, logs: logs}
}

func TestTelemetrySuccessfulRequest(t *testing.T) {
	h := newTelemetryHarness(t, &stubTransport{response: &Response{
		StatusCode: http.StatusCreated,
		Body:       []byte(`{"job_id":"j-1"}`),
	}})

	if _, err := h.client.Publish(context.Background(), "emails", []byte("hi"), 0, 1, 0); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	spans := h.exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name != "lmstfy publish" {
		t.Errorf("span name = %q, want %q", span.Name, "lmstfy publish")
	}
	if span.SpanKind != trace.SpanKindClient {
		t.Errorf("span kind = %v, want client", span.SpanKind)
	}
	if span.Status.Code != codes.Ok {
		t.Errorf("span status = %v, want Ok", span.Status.Code)
	}
	attrs := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes {
		attrs[kv.Key] = kv.Value
	}
	if attrs["lmstfy.queue"].AsString() != "emails" {
		t.Errorf("lmstfy.queue = %q", attrs["lmstfy.queue"].AsString())
	}
	if attrs["lmstfy.namespace"].AsString() != "test-ns" {
		t.Errorf("lmstfy.namespace = %q", attrs["lmstfy.namespace"].AsString())
	}
	if attrs["http.response.status_code"].AsInt64() != http.StatusCreated {
		t.Errorf("status attr = %d", attrs["http.response.status_code"].AsInt64())
	}
	if attrs["lmstfy.outcome"].AsString() != "success" {
		t.Errorf("lmstfy.outcome = %q", attrs["lmstfy.outcome"].AsString())
	}

	var rm metricdata.ResourceMetrics
	if err := h.reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	found := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			found[m.Name] = true
			if m.Name != "lmstfy.client.requests" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok || len(sum.DataPoints) != 1 || sum.DataPoints[0].Value != 1 {
				t.Errorf("unexpected requests data %+v", m.Data)
			}
		}
	}
	for _, name := range []string{"lmstfy.client.requests", "lmstfy.client.duration"} {
		if !found[name] {
			t.Errorf("metric %q not recorded", name)
		}
	}

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(h.logs.Bytes()), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, h.logs.String())
	}
	if entry["msg"] != "request completed" || entry["lmstfy.op"] != "publish" {
		t.Errorf("unexpected log entry %v", entry)
	}
}

func TestTelemetryEmptyConsumeIsNotAnError(t *testing.T) {
	h := newTelemetryHarness(t, &stubTransport{response: &Response{StatusCode: http.StatusNotFound}})

	job, err := h.client.Consume(context.Background(), "emails", 30, 1)
	if err != nil || job != nil {
		t.Fatalf("Consume() = %v, %v; want absent", job, err)
	}
	span := h.exporter.GetSpans()[0]
	if span.Status.Code == codes.Error {
		t.Error("empty consume should not mark the span as failed")
	}
}

func TestTelemetryTransportFailure(t *testing.T) {
	h := newTelemetryHarness(t, &stubTransport{err: errors.New("connection refused")})

	if _, err := h.client.QueueSize(context.Background(), "emails"); !IsTransportError(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
	spans := h.exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("span status = %v, want Error", spans[0].Status.Code)
	}
	if !bytes.Contains(h.logs.Bytes(), []byte(`"msg":"request failed"`)) {
		t.Errorf("expected failure log, got %q", h.logs.String())
	}
}

func TestParameterErrorsAreNotTraced(t *testing.T) {
	h := newTelemetryHarness(t, &stubTransport{})

	if _, err := h.client.Publish(context.Background(), "", nil, 0, 1, 0); !IsParameterError(err) {
		t.Fatalf("expected parameter error, got %v", err)
	}
	if n := len(h.exporter.GetSpans()); n != 0 {
		t.Errorf("expected no spans, got %d", n)
	}
}
