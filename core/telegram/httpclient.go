package telegram

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/m3rciful/qarelay/core/logger"
)

// ClientOptions tunes the Bot API HTTP client.
type ClientOptions struct {
	// Timeout bounds one whole call, retries included.
	Timeout time.Duration
	// Retries is how many extra attempts a request gets after a dial failure.
	Retries int
	// Backoff is the first pause between attempts; it doubles each time.
	Backoff time.Duration
}

// DefaultClientOptions suit webhook handling, where a reply must not stall the update.
func DefaultClientOptions() ClientOptions {
	return ClientOptions{Timeout: 20 * time.Second, Retries: 2, Backoff: 300 * time.Millisecond}
}

// BuildHTTPClient returns a client with DefaultClientOptions.
func BuildHTTPClient() *http.Client {
	return NewHTTPClient(DefaultClientOptions())
}

// NewHTTPClient returns an HTTP client for Bot API calls. Only requests that
// never reached the server are retried, so a send is not duplicated when a
// response is lost.
func NewHTTPClient(opts ClientOptions) *http.Client {
	dialer := &net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          32,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
	}
	return &http.Client{
		Timeout: opts.Timeout,
		Transport: &retryTransport{
			next:    transport,
			retries: max(0, opts.Retries),
			backoff: opts.Backoff,
		},
	}
}

type retryTransport struct {
	next    http.RoundTripper
	retries int
	backoff time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	pause := t.backoff
	for attempt := 0; ; attempt++ {
		r := req
		if attempt > 0 {
			replay, ok := rewind(req)
			if !ok {
				return nil, errors.New("telegram: request body cannot be replayed")
			}
			r = replay
		}

		resp, err := t.next.RoundTrip(r)
		if err == nil || attempt >= t.retries || !shouldRetry(err) {
			return resp, err
		}

		logger.LogEvent(ctx, logger.TG, slog.LevelWarn, "tg.retry",
			slog.Int("attempts", attempt+1),
			slog.Duration("backoff", pause),
			slog.String("cause", ClassifyError(err)),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pause):
		}
		pause *= 2
	}
}

func rewind(req *http.Request) (*http.Request, bool) {
	clone := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return clone, true
	}
	if req.GetBody == nil {
		return nil, false
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, false
	}
	clone.Body = body
	return clone, true
}

// shouldRetry reports whether err happened before the request left this host:
// a failed dial or a failed name lookup.
func shouldRetry(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTimeout || dnsErr.IsTemporary
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}
