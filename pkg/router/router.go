package router

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
)

// --- ANSI color codes ---
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
)

const shutdownTimeout = 10 * time.Second

type HandlerFunc = http.HandlerFunc

// Router wraps a chi mux with a colored access log line per request.
type Router struct {
	mux *chi.Mux
	out io.Writer
}

// New returns a router that writes its access log to out, or stdout when
// out is nil.
func New(out io.Writer) *Router {
	if out == nil {
		out = os.Stdout
	}
	r := &Router{mux: chi.NewRouter(), out: out}
	r.mux.Use(r.logRequests)
	r.mux.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "Not Found", http.StatusNotFound)
	})
	r.mux.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	})
	return r
}

func (r *Router) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(lrw, req)

		duration := time.Since(start)
		fmt.Fprintf(r.out, "%s[%s]%s %s%s%s %s %s%d%s %s(%v)%s\n",
			colorCyan, start.Format("2006-01-02 15:04:05"), colorReset,
			methodColor(req.Method), req.Method, colorReset,
			req.URL.Path,
			statusColor(lrw.statusCode), lrw.statusCode, colorReset,
			colorBlue, duration, colorReset,
		)
	})
}

// --- Register paths ---
// Paths use chi patterns: {id} for a segment, /* for the remainder.

func (r *Router) GET(path string, handler HandlerFunc)    { r.mux.Get(path, handler) }
func (r *Router) POST(path string, handler HandlerFunc)   { r.mux.Post(path, handler) }
func (r *Router) PUT(path string, handler HandlerFunc)    { r.mux.Put(path, handler) }
func (r *Router) PATCH(path string, handler HandlerFunc)  { r.mux.Patch(path, handler) }
func (r *Router) DELETE(path string, handler HandlerFunc) { r.mux.Delete(path, handler) }

// Handle mounts h for every method on path.
func (r *Router) Handle(path string, h http.Handler) { r.mux.Handle(path, h) }

// Param returns a URL parameter of the matched route.
func Param(req *http.Request, name string) string {
	return chi.URLParam(req, name)
}

// Routes lists registered routes as "METHOD path", for tests and startup logs.
func (r *Router) Routes() []string {
	var out []string
	_ = chi.Walk(r.mux, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		out = append(out, method+" "+route)
		return nil
	})
	return out
}

// ServeHTTP lets the router be used directly as a handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// --- Start server ---

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (r *Router) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           r.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(r.out, "🚀 Server started on %shttp://localhost%s%s\n", colorGreen, addr, colorReset)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		fmt.Fprintf(r.out, "🛑 Shutting down server\n")
		return srv.Shutdown(shutdownCtx)
	}
}

// --- Logging response writer to capture status codes ---
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

// --- Color helpers ---
func statusColor(code int) string {
	switch {
	case code >= 200 && code < 300:
		return colorGreen
	case code >= 300 && code < 400:
		return colorCyan
	case code >= 400 && code < 500:
		return colorYellow
	default:
		return colorRed
	}
}

func methodColor(method string) string {
	switch method {
	case http.MethodGet:
		return colorGreen
	case http.MethodPost:
		return colorBlue
	case http.MethodPut:
		return colorYellow
	case http.MethodPatch:
		return colorYellow
	case http.MethodDelete:
		return colorRed
	default:
		return colorCyan
	}
}
