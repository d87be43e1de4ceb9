package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rekat/price-server/models"
	"github.com/rekat/price-server/target"
)

// maxBody caps the upstream reply. A larger body is a TRANSPORT_ERROR,
// never a truncated reply.
const maxBody = 10 << 20

// Fetcher is the interface that all upstream fetchers must implement.
type Fetcher interface {
	// Name returns the target identifier (e.g. "marketplace").
	Name() string

	// Fetch performs exactly one outbound call for code.
	Fetch(ctx context.Context, code string) (*RawResponse, error)
}

// RawResponse is the untouched upstream reply. Any status is returned
// here; interpreting it is the extractor's job.
type RawResponse struct {
	StatusCode int
	Body       string
	Duration   time.Duration
}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithChromeTLS dials HTTPS targets with a Chrome TLS fingerprint.
func WithChromeTLS() Option {
	return func(f *HTTPFetcher) {
		f.client.Transport = newChromeTransport()
	}
}

// WithHTTPClient replaces the underlying client. The target timeout
// still applies through the request context.
func WithHTTPClient(c *http.Client) Option {
	return func(f *HTTPFetcher) {
		f.client = c
	}
}

// HTTPFetcher sends one browser-like request per lookup to a fixed target.
// It is safe for concurrent use.
type HTTPFetcher struct {
	target target.Target
	client *http.Client
}

// New creates an HTTPFetcher for t. The target is copied, so later changes
// by the caller have no effect.
func New(t target.Target, opts ...Option) (*HTTPFetcher, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	f := &HTTPFetcher{
		target: t.Clone(),
		client: &http.Client{Timeout: t.Timeout},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

func (f *HTTPFetcher) Name() string { return f.target.Name }

// Fetch sends the lookup request for code and returns the raw reply.
//
// A timeout yields an UPSTREAM_TIMEOUT error. Any other failure to get a
// complete reply, including one over maxBody, is a TRANSPORT_ERROR.
// Non-2xx statuses are not errors here.
func (f *HTTPFetcher) Fetch(ctx context.Context, code string) (*RawResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, f.target.Timeout)
	defer cancel()

	req, err := f.newRequest(ctx, code)
	if err != nil {
		return nil, models.NewPriceError(models.ErrCodeInternal, err.Error(), err)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, f.classify(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody+1))
	if err != nil {
		return nil, f.classify(ctx, fmt.Errorf("read body: %w", err))
	}
	if len(body) > maxBody {
		slog.Warn("upstream body too large", "target", f.target.Name, "limit", maxBody)
		return nil, models.NewPriceError(models.ErrCodeTransport,
			fmt.Sprintf("upstream body exceeds %d bytes", maxBody), nil)
	}

	elapsed := time.Since(start)
	slog.Debug("upstream replied",
		"target", f.target.Name,
		"status", resp.StatusCode,
		"bytes", len(body),
		"elapsed", elapsed,
	)

	return &RawResponse{
		StatusCode: resp.StatusCode,
		Body:       string(body),
		Duration:   elapsed,
	}, nil
}

// newRequest builds the outbound request: code in the query for GET
// targets, in a form body for POST targets.
func (f *HTTPFetcher) newRequest(ctx context.Context, code string) (*http.Request, error) {
	values := url.Values{}
	for k, v := range f.target.Params {
		values.Set(k, v)
	}
	values.Set(f.target.CodeParam, code)

	var req *http.Request
	switch f.target.Method {
	case http.MethodGet:
		u, err := url.Parse(f.target.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("fetcher: parse endpoint: %w", err)
		}
		q := u.Query()
		for k, vs := range values {
			q[k] = vs
		}
		u.RawQuery = q.Encode()
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, fmt.Errorf("fetcher: build request: %w", err)
		}
	case http.MethodPost:
		var err error
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, f.target.Endpoint, strings.NewReader(values.Encode()))
		if err != nil {
			return nil, fmt.Errorf("fetcher: build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	default:
		return nil, fmt.Errorf("fetcher: unsupported method %q", f.target.Method)
	}

	for k, v := range f.target.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// classify maps a client error onto the timeout/transport taxonomy.
func (f *HTTPFetcher) classify(ctx context.Context, err error) error {
	if isTimeout(ctx, err) {
		slog.Warn("upstream timed out", "target", f.target.Name, "timeout", f.target.Timeout)
		return models.NewPriceError(models.ErrCodeUpstreamTimeout, "upstream request timed out", err)
	}
	slog.Warn("upstream request failed", "target", f.target.Name, "error", err)
	return models.NewPriceError(models.ErrCodeTransport, err.Error(), err)
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
