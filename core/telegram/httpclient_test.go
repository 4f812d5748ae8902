package telegram

import (
	"bytes"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type scriptedTransport struct {
	errs   []error
	calls  int
	bodies []string
}

func (s *scriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	s.calls++
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		s.bodies = append(s.bodies, string(b))
	}
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
}

func post(t *testing.T) *http.Request {
	t.Helper()
	return httptest.NewRequest(http.MethodPost, "https://api.telegram.org/botX/sendMessage", bytes.NewBufferString(`{"chat_id":"1"}`))
}

func TestRetryTransportRetriesDialFailures(t *testing.T) {
	dial := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("refused")}
	next := &scriptedTransport{errs: []error{dial, dial}}
	rt := &retryTransport{next: next, retries: 2, backoff: time.Millisecond}

	req := post(t)
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewBufferString(`{"chat_id":"1"}`)), nil
	}
	resp, err := rt.RoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("RoundTrip = %v, %v", resp, err)
	}
	if next.calls != 3 {
		t.Fatalf("calls = %d, want 3", next.calls)
	}
	for i, b := range next.bodies {
		if b != `{"chat_id":"1"}` {
			t.Fatalf("attempt %d body = %q", i+1, b)
		}
	}
}

func TestRetryTransportDoesNotRetryAfterSend(t *testing.T) {
	readTimeout := &net.OpError{Op: "read", Net: "tcp", Err: errors.New("i/o timeout")}
	next := &scriptedTransport{errs: []error{readTimeout}}
	rt := &retryTransport{next: next, retries: 2, backoff: time.Millisecond}

	if _, err := rt.RoundTrip(post(t)); err == nil {
		t.Fatal("expected the read error")
	}
	if next.calls != 1 {
		t.Fatalf("calls = %d, want 1", next.calls)
	}
}

func TestRetryTransportGivesUp(t *testing.T) {
	dial := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("refused")}
	next := &scriptedTransport{errs: []error{dial, dial, dial, dial}}
	rt := &retryTransport{next: next, retries: 1, backoff: time.Millisecond}

	req := post(t)
	req.GetBody = func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewBufferString("x")), nil }
	if _, err := rt.RoundTrip(req); !errors.As(err, new(*net.OpError)) {
		t.Fatalf("err = %v", err)
	}
	if next.calls != 2 {
		t.Fatalf("calls = %d, want 2", next.calls)
	}
}
