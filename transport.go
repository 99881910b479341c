package lmstfy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Headers sent on every request.
const (
	HeaderToken     = "X-Token"
	HeaderRequestID = "X-Request-ID"
)

const (
	apiSegment = "api"

	defaultConnectTimeout = 1500 * time.Millisecond

	// Long enough for the longest blocking consume plus a margin for the
	// server to answer after its own wait expires.
	defaultRequestTimeout = MaxConsumeTimeout*time.Second + 30*time.Second
)

// Request is one protocol-level call. Path is relative to the namespace
// base URL, e.g. "emails/job/J1".
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// Response is the raw result of a round trip.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport performs a single synchronous round trip. Implementations
// own their connection handle: Close releases it and a later Do must
// re-open it.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
	Close() error
}

// httpTransport is the default Transport over net/http. The *http.Client
// is opened lazily, dropped on any transport failure and re-created on
// the next call.
type httpTransport struct {
	baseURL        string
	connectTimeout time.Duration
	requestTimeout time.Duration
	custom         *http.Client

	mu     sync.Mutex
	client *http.Client
}

func newHTTPTransport(baseURL string, cfg clientConfig) *httpTransport {
	return &httpTransport{
		baseURL:        baseURL,
		connectTimeout: cfg.connectTimeout,
		requestTimeout: cfg.requestTimeout,
		custom:         cfg.httpClient,
	}
}

// buildBaseURL joins the server address, the API segment and the namespace.
func buildBaseURL(addr, namespace string) string {
	addr = strings.Trim(addr, "/")
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return strings.Join([]string{addr, apiSegment, url.PathEscape(namespace)}, "/")
}

func (t *httpTransport) handle() *http.Client {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client == nil {
		t.client = t.open()
	}
	return t.client
}

func (t *httpTransport) open() *http.Client {
	if t.custom != nil {
		return t.custom
	}
	dialer := &net.Dialer{
		Timeout:   t.connectTimeout,
		KeepAlive: 30 * time.Second,
	}
	return &http.Client{
		Timeout: t.requestTimeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         dialer.DialContext,
			TLSHandshakeTimeout: t.connectTimeout,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// invalidate drops the current handle. It reports whether one was held.
func (t *httpTransport) invalidate() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client == nil {
		return false
	}
	t.client.CloseIdleConnections()
	t.client = nil
	return true
}

// Close releases the connection handle.
func (t *httpTransport) Close() error {
	t.invalidate()
	return nil
}

// Do executes req against the namespace base URL.
func (t *httpTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	u := t.baseURL + "/" + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := t.handle().Do(httpReq)
	if err != nil {
		t.invalidate()
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.invalidate()
		return nil, fmt.Errorf("read response: %w", err)
	}
	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}
