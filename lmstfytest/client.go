package lmstfytest

import (
	"testing"

	lmstfy "github.com/lmstfy/lmstfy-go"
)

// NewClient creates an [lmstfy.Client] for the server's first namespace.
// The client is closed when the test ends.
//
//	func TestOrderFlow(t *testing.T) {
//	    srv := lmstfytest.NewServer(t)
//	    client := lmstfytest.NewClient(t, srv)
//	    // use client.Publish() in production code under test
//	}
func NewClient(t testing.TB, srv *Server, opts ...lmstfy.ClientOption) *lmstfy.Client {
	t.Helper()
	return NewNamespaceClient(t, srv, srv.Namespace(), opts...)
}

// NewNamespaceClient creates a client for namespace using the token the
// server accepts for it.
func NewNamespaceClient(t testing.TB, srv *Server, namespace string, opts ...lmstfy.ClientOption) *lmstfy.Client {
	t.Helper()
	client, err := lmstfy.NewClient(srv.URL, namespace, srv.Token(namespace), opts...)
	if err != nil {
		t.Fatalf("lmstfytest: NewClient: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}
