// Package web provides the per-request context handed to route handlers.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"kestrel/container"
)

// RequestIDHeader carries request ids in and out.
const RequestIDHeader = "X-Request-ID"

// contextKey is a private type so only this package can store a Context.
type contextKey string

const ctxKeyContext contextKey = "kestrel.web.context"

// Context carries request-scoped state.
type Context struct {
	Request   *http.Request
	Writer    http.ResponseWriter
	RequestID string
	Start     time.Time
	Logger    *zap.SugaredLogger
}

// Elapsed returns the time since the request started.
func (c *Context) Elapsed() time.Duration {
	return time.Since(c.Start)
}

// ContextFactory creates the Context for an inbound request.
type ContextFactory interface {
	NewContext(w http.ResponseWriter, r *http.Request) *Context
}

// DefaultContextFactory uses the inbound request id when it is safe to log,
// and a random UUID otherwise.
type DefaultContextFactory struct {
	Logger *zap.SugaredLogger
	Now    func() time.Time
}

// NewContext implements ContextFactory.
func (f *DefaultContextFactory) NewContext(w http.ResponseWriter, r *http.Request) *Context {
	id := sanitizeRequestID(r.Header.Get(RequestIDHeader))
	if id == "" {
		id = uuid.NewString()
	}

	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	logger := f.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &Context{
		Request:   r,
		Writer:    w,
		RequestID: id,
		Start:     now(),
		Logger: logger.With(
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path),
	}
}

// sanitizeRequestID keeps at most 64 characters from [A-Za-z0-9_-].
func sanitizeRequestID(id string) string {
	const maxLen = 64

	if len(id) > maxLen {
		id = id[:maxLen]
	}
	result := make([]byte, 0, len(id))
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c >= 'a' && c <= 'z') ||
			(c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9') ||
			c == '-' || c == '_' {
			result = append(result, c)
		}
	}
	return string(result)
}

// WithContext returns a copy of r carrying c.
func WithContext(r *http.Request, c *Context) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), ctxKeyContext, c))
}

// FromRequest returns the Context stored by WithContext.
func FromRequest(r *http.Request) (*Context, bool) {
	c, ok := r.Context().Value(ctxKeyContext).(*Context)
	return c, ok
}

// ContextModule binds the default ContextFactory. It is composed after the
// base configuration so application modules can override it.
func ContextModule() container.Module {
	return container.ModuleFunc("web.context", func(b *container.Binder) error {
		container.Provide(b, func(r container.Resolver) (ContextFactory, error) {
			logger, err := container.Resolve[*zap.SugaredLogger](r)
			if err != nil {
				return nil, err
			}
			return &DefaultContextFactory{Logger: logger.Named("http")}, nil
		})
		return nil
	})
}
