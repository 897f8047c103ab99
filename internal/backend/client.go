package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
)

// ErrUnreachable reports that the command server returned no response.
var ErrUnreachable = errors.New("backend unreachable")

// strippedHeaders are never copied onto the outbound request.
// Content-Length is recomputed from the forwarded body.
var strippedHeaders = []string{
	"Host",
	"Origin",
	"Referer",
	"Content-Length",
	"X-Request-ID",
}

// Config defines the fixed backend target.
type Config struct {
	Addr    string        // host:port of the command server
	Timeout time.Duration // zero disables the client timeout
}

// Request is a validated request ready to be relayed.
type Request struct {
	Method string
	Path   string // request URI, appended to the backend base URL
	Header http.Header
	Body   []byte
}

// Response is the backend's answer. Body is unbuffered and must be closed.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}

// Client relays requests to the command server.
type Client struct {
	resty   *resty.Client
	baseURL string
	addr    string
}

// NewClient creates a forwarder for the configured backend. It never retries
// and never follows redirects: the backend's answer is relayed as-is.
func NewClient(cfg Config) *Client {
	// Pooled transport from retryablehttp; its retry loop is not used
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 0
	retryClient.Logger = nil // Disable logging

	transport := retryClient.HTTPClient.Transport
	if t, ok := transport.(*http.Transport); ok {
		// Pass the backend's Content-Encoding through untouched
		t.DisableCompression = true
	}

	restyClient := resty.New()
	restyClient.
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetCookieJar(nil).
		SetTransport(transport)
	restyClient.GetClient().CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return &Client{
		resty:   restyClient,
		baseURL: "http://" + cfg.Addr,
		addr:    cfg.Addr,
	}
}

// Addr returns the backend host:port.
func (c *Client) Addr() string {
	return c.addr
}

// Forward sends req to the backend and returns its response once headers
// arrive. Canceling ctx aborts the backend connection, including an
// in-progress body stream. Errors wrap ErrUnreachable.
func (c *Client) Forward(ctx context.Context, req *Request) (*Response, error) {
	r := c.resty.R().
		SetContext(ctx).
		SetDoNotParseResponse(true)
	r.Header = outboundHeader(req.Header)
	if len(req.Body) > 0 {
		r.SetBody(req.Body)
	}

	resp, err := r.Execute(req.Method, c.baseURL+req.Path)
	if err != nil {
		if resp != nil && resp.RawBody() != nil {
			resp.RawBody().Close()
		}
		return nil, fmt.Errorf("%w: %w", ErrUnreachable, err)
	}

	return &Response{
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Body:       resp.RawBody(),
	}, nil
}

func outboundHeader(in http.Header) http.Header {
	out := in.Clone()
	if out == nil {
		out = http.Header{}
	}
	for _, key := range strippedHeaders {
		out.Del(key)
	}
	return out
}
