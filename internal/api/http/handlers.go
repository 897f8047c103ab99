package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chipflow/command-proxy/internal/api/middleware"
	"github.com/chipflow/command-proxy/internal/backend"
	"github.com/chipflow/command-proxy/internal/domain/policy"
	"github.com/chipflow/command-proxy/internal/infrastructure/logging"
	"github.com/chipflow/command-proxy/internal/infrastructure/monitoring"
)

// ExecutePath is the only request URI the proxy forwards.
const ExecutePath = "/execute"

// streamBufferSize bounds how much of a backend response is held at once.
const streamBufferSize = 32 * 1024

// Forwarder relays a validated request to the command server.
type Forwarder interface {
	Forward(ctx context.Context, req *backend.Request) (*backend.Response, error)
}

// Options tune request handling.
type Options struct {
	MaxBodyBytes int64 // zero means unbounded
}

// Handlers contains the proxy HTTP handlers
type Handlers struct {
	validator *policy.Validator
	forwarder Forwarder
	logger    *logging.Logger
	metrics   *monitoring.Metrics
	opts      Options
}

// NewHandlers creates a new handler set
func NewHandlers(
	validator *policy.Validator,
	forwarder Forwarder,
	logger *logging.Logger,
	metrics *monitoring.Metrics,
	opts Options,
) *Handlers {
	return &Handlers{
		validator: validator,
		forwarder: forwarder,
		logger:    logger,
		metrics:   metrics,
		opts:      opts,
	}
}

// Execute validates a command request and relays it to the backend.
func (h *Handlers) Execute(c *gin.Context) {
	// The route matches /execute?x too; only the bare URI is accepted
	if c.Request.RequestURI != ExecutePath {
		h.MethodNotAllowed(c)
		return
	}

	origin, allowed := middleware.Origin(c)
	requestID := c.GetString(logging.RequestIDKey)

	body, err := h.readBody(c)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.logger.Warn("Request body too large",
				zap.Int64("limit", tooLarge.Limit),
				zap.String("origin", origin),
				zap.String("request_id", requestID),
			)
			allowOrigin(c, origin, allowed)
			c.JSON(http.StatusRequestEntityTooLarge, failure("Request body too large"))
			return
		}
		h.logger.Info("Failed to read request body",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		_ = c.Error(err)
		allowOrigin(c, origin, allowed)
		c.JSON(http.StatusBadRequest, failure("Failed to read request body"))
		return
	}

	result := h.validator.Validate(body, origin)
	if !result.Valid() {
		h.metrics.RecordRejection(string(result.Reason))
		h.logger.SecurityViolation(string(result.Reason), origin, requestID)
		allowOrigin(c, origin, allowed)
		c.JSON(http.StatusForbidden, failure(string(result.Reason)))
		return
	}

	h.logger.Debug("Forwarding command",
		zap.String("command", result.Payload.Command),
		zap.String("origin", origin),
		zap.String("request_id", requestID),
	)

	ctx := c.Request.Context()
	timer := monitoring.NewTimer(h.metrics)
	resp, err := h.forwarder.Forward(ctx, &backend.Request{
		Method: c.Request.Method,
		Path:   c.Request.RequestURI,
		Header: c.Request.Header,
		Body:   body,
	})
	elapsed := timer.Stop()
	if err != nil {
		if ctx.Err() != nil {
			// Caller hung up; nobody is left to answer
			h.logger.Info("Client disconnected before backend responded",
				zap.Duration("elapsed", elapsed),
				zap.String("request_id", requestID),
			)
			c.Abort()
			return
		}
		h.metrics.RecordBackendError("connect")
		h.logger.Error("Backend request failed",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		_ = c.Error(err)
		c.Header("Access-Control-Allow-Origin", origin)
		c.Data(http.StatusBadGateway, "text/plain", []byte("Bad Gateway"))
		return
	}
	defer resp.Body.Close()

	h.relay(c, resp, origin, requestID)
}

// MethodNotAllowed answers every request that is not POST /execute.
func (h *Handlers) MethodNotAllowed(c *gin.Context) {
	origin, allowed := middleware.Origin(c)
	allowOrigin(c, origin, allowed)
	c.JSON(http.StatusMethodNotAllowed, failure("Method not allowed"))
}

func (h *Handlers) readBody(c *gin.Context) ([]byte, error) {
	body := c.Request.Body
	if h.opts.MaxBodyBytes > 0 {
		body = http.MaxBytesReader(c.Writer, body, h.opts.MaxBodyBytes)
	}
	return io.ReadAll(body)
}

// relay copies the backend response to the caller, flushing after every
// chunk so slow consumers hold back the backend instead of growing a buffer.
func (h *Handlers) relay(c *gin.Context, resp *backend.Response, origin, requestID string) {
	header := c.Writer.Header()
	ownID := header.Get(middleware.RequestIDHeader)
	for key, values := range resp.Header {
		header[key] = append([]string(nil), values...)
	}
	header.Set("Access-Control-Allow-Origin", origin)
	if ownID != "" {
		header.Set(middleware.RequestIDHeader, ownID)
	}

	c.Status(resp.StatusCode)
	c.Writer.WriteHeaderNow()

	buf := make([]byte, streamBufferSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := c.Writer.Write(buf[:n]); err != nil {
				h.logger.Info("Client write failed during stream",
					zap.Error(err),
					zap.String("request_id", requestID),
				)
				return
			}
			c.Writer.Flush()
		}
		if readErr != nil {
			if !errors.Is(readErr, io.EOF) && c.Request.Context().Err() == nil {
				h.metrics.RecordBackendError("stream")
				h.logger.Error("Backend stream failed",
					zap.Error(readErr),
					zap.String("request_id", requestID),
				)
			}
			return
		}
	}
}

func allowOrigin(c *gin.Context, origin string, allowed bool) {
	if allowed {
		c.Header("Access-Control-Allow-Origin", origin)
	}
}

func failure(message string) gin.H {
	return gin.H{
		"success": false,
		"error":   message,
	}
}
