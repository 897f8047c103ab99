// Package backend relays validated requests to the local command server.
//
// The forwarder is built on go-resty/resty with a pooled transport from
// hashicorp/go-retryablehttp. It is configured for a transparent relay:
//   - no retries and no redirect following
//   - transport compression disabled, so Content-Encoding passes through
//   - Host, Origin, Referer and X-Request-ID stripped from the request
//   - Content-Length recomputed from the forwarded body
//   - the response body returned unbuffered for streaming
//
// Any failure to obtain a response wraps ErrUnreachable.
//
// Example Usage:
//
//	client := backend.NewClient(backend.Config{Addr: "localhost:3000"})
//	resp, err := client.Forward(ctx, &backend.Request{
//		Method: http.MethodPost,
//		Path:   "/execute",
//		Header: r.Header,
//		Body:   body,
//	})
//	if errors.Is(err, backend.ErrUnreachable) {
//		// 502
//	}
//	defer resp.Body.Close()
package backend
