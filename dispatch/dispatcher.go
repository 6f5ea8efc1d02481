package dispatch

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"kestrel/metrics"
	"kestrel/web"
)

// Dispatcher hands requests to the routing table with a web.Context attached.
type Dispatcher struct {
	handler  http.Handler
	contexts web.ContextFactory
	logger   *zap.SugaredLogger
}

// NewDispatcher creates a dispatcher in front of h, normally the compiled
// *router.Router.
func NewDispatcher(h http.Handler, contexts web.ContextFactory, logger *zap.SugaredLogger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Dispatcher{handler: h, contexts: contexts, logger: logger}
}

type statusWriter struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wrote {
		w.status = code
		w.wrote = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wrote {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// ServeHTTP implements http.Handler. Handler panics become 500 responses.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
	c := d.contexts.NewContext(sw, r)
	sw.Header().Set(web.RequestIDHeader, c.RequestID)

	defer func() {
		if p := recover(); p != nil {
			if p == http.ErrAbortHandler {
				panic(p)
			}
			c.Logger.Errorw("Handler panic recovered", "panic", p)
			if !sw.wrote {
				http.Error(sw, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
			sw.status = http.StatusInternalServerError
		}

		metrics.RequestsTotal.WithLabelValues(r.Method, metrics.StatusClass(sw.status)).Inc()
		metrics.RequestDuration.Observe(time.Since(c.Start).Seconds())
		c.Logger.Debugw("Request handled", "status", sw.status, "duration", c.Elapsed())
	}()

	d.handler.ServeHTTP(sw, web.WithContext(r, c))
}
