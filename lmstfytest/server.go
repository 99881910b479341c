// Package lmstfytest provides an in-memory lmstfy server for tests.
//
// The server speaks the same HTTP protocol as a real lmstfy deployment,
// so tests exercise the real [lmstfy.Client] end to end:
//
//	func TestSignup(t *testing.T) {
//	    srv := lmstfytest.NewServer(t)
//	    client := lmstfytest.NewClient(t, srv)
//	    signupService(client, "user@example.com")
//	    if n := srv.QueueSize(srv.Namespace(), "emails"); n != 1 {
//	        t.Fatalf("expected one queued email, got %d", n)
//	    }
//	}
//
// Jobs go through the full lifecycle: delay, TTR leases, tries, dead
// letter and TTL expiry. Expiry is applied lazily whenever the store is
// touched; [Server.ExpireLeases] forces every outstanding lease to lapse
// so tests need not sleep through a TTR.
package lmstfytest

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	lmstfy "github.com/lmstfy/lmstfy-go"
)

const (
	// DefaultNamespace and DefaultToken are served when no WithNamespace
	// option is given.
	DefaultNamespace = "test-ns"
	DefaultToken     = "test-token"

	defaultPollInterval = 20 * time.Millisecond
)

// Option configures a Server.
type Option func(*Server)

// WithNamespace serves namespace, accepting only token. It may be given
// more than once.
func WithNamespace(namespace, token string) Option {
	return func(s *Server) {
		if _, ok := s.tokens[namespace]; !ok {
			s.namespaces = append(s.namespaces, namespace)
		}
		s.tokens[namespace] = token
	}
}

// WithPollInterval sets how often a blocked consume re-checks delayed
// jobs and leases. Defaults to 20ms.
func WithPollInterval(d time.Duration) Option {
	return func(s *Server) { s.pollInterval = d }
}

// WithClock replaces the server's time source.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// Request is a request received by the server.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// Server is a fake lmstfy server backed by an in-memory store.
type Server struct {
	// URL is the base address, suitable for lmstfy.NewClient.
	URL string

	httpServer   *httptest.Server
	store        *store
	tokens       map[string]string
	namespaces   []string
	pollInterval time.Duration
	now          func() time.Time

	mu       sync.Mutex
	requests []Request
}

// NewServer starts a fake server that is closed when the test ends.
func NewServer(t testing.TB, opts ...Option) *Server {
	t.Helper()
	s := &Server{
		tokens:       make(map[string]string),
		pollInterval: defaultPollInterval,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if len(s.namespaces) == 0 {
		WithNamespace(DefaultNamespace, DefaultToken)(s)
	}
	s.store = newStore(s.now)

	s.httpServer = httptest.NewServer(s.router())
	s.URL = s.httpServer.URL
	t.Cleanup(s.Close)
	return s
}

// Close shuts the server down. Blocked consumers are released.
func (s *Server) Close() {
	s.httpServer.CloseClientConnections()
	s.httpServer.Close()
}

// Namespace returns the first configured namespace.
func (s *Server) Namespace() string {
	return s.namespaces[0]
}

// Token returns the token accepted for namespace.
func (s *Server) Token(namespace string) string {
	return s.tokens[namespace]
}

// ExpireLeases ends every outstanding reservation now. Jobs with tries
// left become ready again; the rest move to their dead letter.
func (s *Server) ExpireLeases() {
	s.store.expireLeases()
}

// QueueSize returns the number of ready and delayed jobs in queue.
func (s *Server) QueueSize(namespace, queue string) int {
	return s.store.size(queueKey{namespace, queue})
}

// DeadLetterSize returns the number of jobs in queue's dead letter.
func (s *Server) DeadLetterSize(namespace, queue string) int {
	return s.store.deadSize(queueKey{namespace, queue})
}

// Requests returns every request received so far, in arrival order.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

func (s *Server) router() http.Handler {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.record)

	api := r.Group("/api/:namespace", s.authenticate)
	api.PUT("/:queue", s.publish)
	api.GET("/:queue", s.consume)
	api.GET("/:queue/size", s.size)
	api.GET("/:queue/peek", s.peek)
	api.GET("/:queue/job/:job_id", s.getJob)
	api.DELETE("/:queue/job/:job_id", s.ack)
	api.GET("/:queue/deadletter", s.peekDeadLetter)
	api.PUT("/:queue/deadletter", s.respawn)
	return r
}

func (s *Server) record(c *gin.Context) {
	var body []byte
	if c.Request.Body != nil {
		body, _ = io.ReadAll(c.Request.Body)
		c.Request.Body = io.NopCloser(strings.NewReader(string(body)))
	}
	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Method: c.Request.Method,
		Path:   c.Request.URL.Path,
		Query:  c.Request.URL.Query(),
		Header: c.Request.Header.Clone(),
		Body:   body,
	})
	s.mu.Unlock()
	c.Next()
}

func (s *Server) authenticate(c *gin.Context) {
	token, ok := s.tokens[c.Param("namespace")]
	if !ok || c.GetHeader(lmstfy.HeaderToken) != token {
		s.fail(c, http.StatusUnauthorized, "invalid token")
		return
	}
	c.Next()
}

// fail aborts with the lmstfy error body shape.
func (s *Server) fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":      msg,
		"request_id": c.GetHeader(lmstfy.HeaderRequestID),
	})
}

func (s *Server) key(c *gin.Context) queueKey {
	return queueKey{namespace: c.Param("namespace"), queue: c.Param("queue")}
}

// intParam reads a non-negative integer query parameter.
func intParam(c *gin.Context, name string, def int) (int, bool) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

func (s *Server) publish(c *gin.Context) {
	ttl, ok1 := intParam(c, "ttl", 0)
	tries, ok2 := intParam(c, "tries", 1)
	delay, ok3 := intParam(c, "delay", 0)
	if !ok1 || !ok2 || !ok3 || tries == 0 {
		s.fail(c, http.StatusBadRequest, "invalid ttl, tries or delay")
		return
	}
	if ttl > 0 && delay > 0 && ttl <= delay {
		s.fail(c, http.StatusBadRequest, "ttl must be greater than delay")
		return
	}
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		s.fail(c, http.StatusBadRequest, "read body: "+err.Error())
		return
	}
	id := s.store.publish(s.key(c), data, ttl, tries, delay)
	c.JSON(http.StatusCreated, gin.H{"msg": "published", "job_id": id})
}

func (s *Server) consume(c *gin.Context) {
	ttr, ok1 := intParam(c, "ttr", 0)
	timeout, ok2 := intParam(c, "timeout", 0)
	if !ok1 || !ok2 || ttr == 0 || timeout > lmstfy.MaxConsumeTimeout {
		s.fail(c, http.StatusBadRequest, "invalid ttr or timeout")
		return
	}
	namespace := c.Param("namespace")
	queues := strings.Split(c.Param("queue"), ",")

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(time.Duration(timeout) * time.Second)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		changed := s.store.wait()
		if job, ok := s.store.reserve(namespace, queues, ttr); ok {
			c.JSON(http.StatusOK, job)
			return
		}

		poll := s.pollInterval
		if d, ok := s.store.nextReadyIn(namespace, queues); ok && d < poll {
			poll = max(d, time.Millisecond)
		}

		select {
		case <-changed:
		case <-time.After(poll):
		case <-deadline:
			c.JSON(http.StatusNotFound, gin.H{"msg": "no job available"})
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}

func (s *Server) getJob(c *gin.Context) {
	job, ok := s.store.get(s.key(c), c.Param("job_id"))
	if !ok {
		s.fail(c, http.StatusNotFound, "job not found")
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Server) ack(c *gin.Context) {
	if !s.store.ack(s.key(c), c.Param("job_id")) {
		s.fail(c, http.StatusNotFound, "job not found")
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) size(c *gin.Context) {
	key := s.key(c)
	c.JSON(http.StatusOK, gin.H{
		"namespace": key.namespace,
		"queue":     key.queue,
		"size":      s.store.size(key),
	})
}

func (s *Server) peek(c *gin.Context) {
	job, ok := s.store.peek(s.key(c))
	if !ok {
		s.fail(c, http.StatusNotFound, "the queue is empty")
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Server) peekDeadLetter(c *gin.Context) {
	job, ok := s.store.peekDead(s.key(c))
	if !ok {
		s.fail(c, http.StatusNotFound, "the deadletter is empty")
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Server) respawn(c *gin.Context) {
	limit, ok1 := intParam(c, "limit", 1)
	ttl, ok2 := intParam(c, "ttl", 0)
	if !ok1 || !ok2 {
		s.fail(c, http.StatusBadRequest, "invalid limit or ttl")
		return
	}
	count := s.store.respawn(s.key(c), limit, ttl)
	c.JSON(http.StatusOK, gin.H{"msg": "respawned", "count": count})
}
