package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	lmstfy "github.com/lmstfy/lmstfy-go"
	"github.com/lmstfy/lmstfy-go/lmstfytest"
)

func run(t *testing.T, srv *lmstfytest.Server, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRoot()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	base := []string{
		"--addr", srv.URL,
		"--namespace", srv.Namespace(),
		"--token", srv.Token(srv.Namespace()),
	}
	cmd.SetArgs(append(base, args...))
	err := cmd.Execute()
	return out.String(), err
}

func decodeView(t *testing.T, out string) jobView {
	t.Helper()
	var v jobView
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("decode job output %q: %v", out, err)
	}
	return v
}

func TestPublishConsumeAck(t *testing.T) {
	srv := lmstfytest.NewServer(t)

	out, err := run(t, srv, "", "publish", "emails", "hello", "--tries", "3")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	id := strings.TrimSpace(out)
	if id == "" {
		t.Fatal("publish printed no job id")
	}

	out, err = run(t, srv, "", "size", "emails")
	if err != nil {
		t.Fatalf("size: %v", err)
	}
	if strings.TrimSpace(out) != "1" {
		t.Fatalf("size = %q, want 1", out)
	}

	out, err = run(t, srv, "", "consume", "emails", "--timeout", "1", "--ack")
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	v := decodeView(t, out)
	if v.JobID != id || v.Data != "hello" || v.RemainTries != 2 {
		t.Fatalf("consumed %+v", v)
	}

	if _, err := run(t, srv, "", "get", "emails", id); err == nil {
		t.Fatal("get after ack should fail")
	}
}

func TestPublishFromStdin(t *testing.T) {
	srv := lmstfytest.NewServer(t)

	out, err := run(t, srv, "from stdin", "publish", "q")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	id := strings.TrimSpace(out)

	out, err = run(t, srv, "", "get", "q", id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v := decodeView(t, out); v.Data != "from stdin" {
		t.Fatalf("data = %q", v.Data)
	}
}

func TestConsumeEmptyQueue(t *testing.T) {
	srv := lmstfytest.NewServer(t)

	out, err := run(t, srv, "", "consume", "q", "--timeout", "1")
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if !strings.Contains(out, "no job available") {
		t.Fatalf("output = %q", out)
	}
}

func TestConsumeMultipleQueuesHonoursOrder(t *testing.T) {
	srv := lmstfytest.NewServer(t)

	if _, err := run(t, srv, "", "publish", "low", "l"); err != nil {
		t.Fatalf("publish low: %v", err)
	}
	if _, err := run(t, srv, "", "publish", "high", "h"); err != nil {
		t.Fatalf("publish high: %v", err)
	}

	out, err := run(t, srv, "", "consume", "high", "low", "--timeout", "1")
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if v := decodeView(t, out); v.Queue != "high" || v.Data != "h" {
		t.Fatalf("consumed %+v, want job from high", v)
	}
}

func TestPeekAndDeadLetter(t *testing.T) {
	srv := lmstfytest.NewServer(t)

	out, err := run(t, srv, "", "publish", "q", "doomed")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	id := strings.TrimSpace(out)

	out, err = run(t, srv, "", "peek", "q")
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	if v := decodeView(t, out); v.JobID != id {
		t.Fatalf("peek = %+v", v)
	}

	if _, err := run(t, srv, "", "consume", "q", "--timeout", "1"); err != nil {
		t.Fatalf("consume: %v", err)
	}
	srv.ExpireLeases()

	out, err = run(t, srv, "", "deadletter", "peek", "q")
	if err != nil {
		t.Fatalf("deadletter peek: %v", err)
	}
	if v := decodeView(t, out); v.JobID != id {
		t.Fatalf("deadletter peek = %+v", v)
	}

	out, err = run(t, srv, "", "deadletter", "respawn", "q", "--limit", "5")
	if err != nil {
		t.Fatalf("respawn: %v", err)
	}
	if strings.TrimSpace(out) != "respawned: 1" {
		t.Fatalf("respawn output = %q", out)
	}
	if n := srv.QueueSize(srv.Namespace(), "q"); n != 1 {
		t.Fatalf("queue size after respawn = %d", n)
	}
}

func TestParameterErrorSurfaces(t *testing.T) {
	srv := lmstfytest.NewServer(t)

	_, err := run(t, srv, "", "publish", "q", "x", "--tries", "0")
	if !lmstfy.IsParameterError(err) {
		t.Fatalf("err = %v, want parameter error", err)
	}
	if len(srv.Requests()) != 0 {
		t.Fatalf("parameter error sent %d requests", len(srv.Requests()))
	}
}

func TestConfigFromEnv(t *testing.T) {
	srv := lmstfytest.NewServer(t)
	t.Setenv("LMSTFY_ADDR", srv.URL)
	t.Setenv("LMSTFY_NAMESPACE", srv.Namespace())
	t.Setenv("LMSTFY_TOKEN", srv.Token(srv.Namespace()))

	cmd := NewRoot()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"size", "q"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if strings.TrimSpace(out.String()) != "0" {
		t.Fatalf("size = %q", out.String())
	}
}

func TestMissingTokenFails(t *testing.T) {
	t.Setenv("LMSTFY_TOKEN", "")
	cmd := NewRoot()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--addr", "127.0.0.1:1", "--namespace", "ns", "size", "q"})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "token") {
		t.Fatalf("err = %v, want missing token error", err)
	}
}

func TestPrintJobBinaryData(t *testing.T) {
	var buf bytes.Buffer
	job := &lmstfy.Job{ID: "j", Data: []byte{0xff, 0x00, 0xfe}}
	if err := printJob(&buf, job); err != nil {
		t.Fatalf("printJob: %v", err)
	}
	v := decodeView(t, buf.String())
	if v.Data != "" || !bytes.Equal(v.DataBase64, job.Data) {
		t.Fatalf("binary data printed as %+v", v)
	}
}

func TestConsumeAckRefusesQueuelessJob(t *testing.T) {
	var deletes atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			deletes.Add(1)
		}
		w.Write([]byte(`{"job_id":"J1","data":"YmFy"}`))
	}))
	defer srv.Close()

	cmd := NewRoot()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{
		"--addr", srv.URL, "--namespace", "ns", "--token", "token",
		"consume", "high", "low", "--timeout", "1", "--ack",
	})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "without a queue name") {
		t.Fatalf("expected a missing queue name error, got %v", err)
	}
	if v := decodeView(t, out.String()); v.JobID != "J1" {
		t.Errorf("printed %+v, want job J1", v)
	}
	if n := deletes.Load(); n != 0 {
		t.Errorf("sent %d ack requests, want 0", n)
	}
}
