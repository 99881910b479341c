package lmstfy

import (
	"bytes"
	"log/slog"
	"net/http"
	"testing"
	"time"
)

// --- Client options ---

func TestResolveClientConfigDefaults(t *testing.T) {
	cfg := resolveClientConfig(nil)
	if cfg.connectTimeout != 1500*time.Millisecond {
		t.Errorf("expected connectTimeout=1.5s, got %v", cfg.connectTimeout)
	}
	if cfg.requestTimeout != 630*time.Second {
		t.Errorf("expected requestTimeout=630s, got %v", cfg.requestTimeout)
	}
	if cfg.requestTimeout <= MaxConsumeTimeout*time.Second {
		t.Error("request timeout must outlast the longest blocking consume")
	}
	if cfg.logger != nil || cfg.transport != nil || cfg.httpClient != nil {
		t.Error("expected no logger, transport or http client by default")
	}
}

func TestClientOptions(t *testing.T) {
	httpClient := &http.Client{Timeout: 30 * time.Second}
	logger := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
	stub := &stubTransport{}

	cfg := resolveClientConfig([]ClientOption{
		WithHTTPClient(httpClient),
		WithTransport(stub),
		WithConnectTimeout(time.Second),
		WithRequestTimeout(time.Minute),
		WithLogger(logger),
		WithRequestIDFunc(func() string { return "fixed" }),
	})
	if cfg.httpClient != httpClient {
		t.Error("expected custom HTTP client")
	}
	if cfg.transport != stub {
		t.Error("expected custom transport")
	}
	if cfg.connectTimeout != time.Second || cfg.requestTimeout != time.Minute {
		t.Errorf("timeouts = %v/%v", cfg.connectTimeout, cfg.requestTimeout)
	}
	if cfg.logger != logger {
		t.Error("expected logger to be set")
	}
	if cfg.requestID() != "fixed" {
		t.Error("expected request id func to be set")
	}
}

func TestWithHTTPClientIsUsedAsHandle(t *testing.T) {
	httpClient := &http.Client{Timeout: 30 * time.Second}
	client, err := NewClient("127.0.0.1:7777", "ns", "token", WithHTTPClient(httpClient))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	transport := client.transport.(*httpTransport)
	if transport.handle() != httpClient {
		t.Error("expected custom HTTP client as transport handle")
	}
}

func TestDefaultHandleTimeouts(t *testing.T) {
	client, err := NewClient("127.0.0.1:7777", "ns", "token", WithRequestTimeout(time.Minute))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	h := client.transport.(*httpTransport).handle()
	if h.Timeout != time.Minute {
		t.Errorf("handle timeout = %v, want 1m", h.Timeout)
	}
}

// --- Worker options ---

func TestResolveWorkerConfigDefaults(t *testing.T) {
	cfg := resolveWorkerConfig(nil)
	if cfg.concurrency != 1 {
		t.Errorf("expected concurrency=1, got %d", cfg.concurrency)
	}
	if cfg.ttr != 120 {
		t.Errorf("expected ttr=120, got %d", cfg.ttr)
	}
	if cfg.consumeTimeout != 5 {
		t.Errorf("expected consumeTimeout=5, got %d", cfg.consumeTimeout)
	}
	if cfg.gracePeriod != 25*time.Second {
		t.Errorf("expected gracePeriod=25s, got %v", cfg.gracePeriod)
	}
	if cfg.backoff != DefaultBackoffPolicy() {
		t.Errorf("expected default backoff, got %+v", cfg.backoff)
	}
	if len(cfg.queues) != 0 {
		t.Errorf("expected no explicit queues, got %v", cfg.queues)
	}
	if cfg.logger != nil {
		t.Error("expected logger=nil by default")
	}
}

func TestWorkerOptions(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
	cfg := resolveWorkerConfig([]WorkerOption{
		WithQueues("urgent", "normal"),
		WithConcurrency(8),
		WithTTR(30),
		WithConsumeTimeout(0),
		WithGracePeriod(time.Second),
		WithPollInterval(250 * time.Millisecond),
		WithWorkerLogger(logger),
	})
	if len(cfg.queues) != 2 || cfg.queues[0] != "urgent" {
		t.Errorf("expected queues [urgent normal], got %v", cfg.queues)
	}
	if cfg.concurrency != 8 || cfg.ttr != 30 || cfg.consumeTimeout != 0 {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.gracePeriod != time.Second {
		t.Errorf("expected gracePeriod=1s, got %v", cfg.gracePeriod)
	}
	if cfg.backoff.InitialInterval != 250*time.Millisecond {
		t.Errorf("expected poll interval to set the initial backoff, got %v", cfg.backoff.InitialInterval)
	}
	if cfg.backoff.MaxInterval != DefaultBackoffPolicy().MaxInterval {
		t.Error("WithPollInterval should keep the rest of the policy")
	}
	if cfg.logger != logger {
		t.Error("expected logger to be set")
	}
}

func TestWithBackoff(t *testing.T) {
	p := BackoffPolicy{InitialInterval: time.Millisecond, Coefficient: 3, MaxInterval: time.Second}
	cfg := resolveWorkerConfig([]WorkerOption{WithBackoff(p)})
	if cfg.backoff != p {
		t.Errorf("backoff = %+v, want %+v", cfg.backoff, p)
	}
}
