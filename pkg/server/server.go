package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	ferrors "github.com/vango-dev/firebolt/internal/errors"
	"github.com/vango-dev/firebolt/pkg/runtime"
)

// MetricsPath is where Prometheus metrics are served.
const MetricsPath = "/metrics"

// SessionFactory creates a server-render session for a request URL.
type SessionFactory func(url string) *runtime.Session

// Server hosts a firebolt application over HTTP.
type Server struct {
	config   Config
	sessions SessionFactory
	router   chi.Router
	reload   *ReloadHub
	logger   *slog.Logger
}

// New creates a server. sessions is called once per page request.
func New(sessions SessionFactory, config Config) *Server {
	config.applyDefaults()
	s := &Server{
		config:   config,
		sessions: sessions,
		logger:   config.Logger.With("component", "server"),
	}
	if config.Dev {
		s.reload = NewReloadHub(s.logger)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(s.tracing)
	r.Use(middleware.Recoverer)

	r.Get(MetricsPath, promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}).ServeHTTP)
	r.Get(runtime.MetaPath, s.handleMeta)
	if s.reload != nil {
		r.Handle(ReloadPath, s.reload)
	}
	r.Get("/*", s.handlePage)
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Reload returns the live-reload hub, or nil outside development.
func (s *Server) Reload() *ReloadHub { return s.reload }

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if s.servePublic(w, r) {
		return
	}

	start := time.Now()
	session := s.sessions(r.URL.RequestURI())

	var buf bytes.Buffer
	err := session.RenderDocument(r.Context(), &buf)
	code := http.StatusOK
	if err != nil {
		code = statusFor(err)
	}
	s.config.Metrics.RecordRender(code, time.Since(start))

	if err != nil {
		if code >= http.StatusInternalServerError {
			s.logger.Error("render failed", append([]any{"url", r.URL.RequestURI()}, logAttrs(err)...)...)
		}
		http.Error(w, http.StatusText(code), code)
		return
	}

	body := buf.Bytes()
	if s.reload != nil {
		body = injectReloadScript(body)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	w.Write(body)
}

func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		http.Error(w, "missing url", http.StatusBadRequest)
		return
	}

	session := s.sessions(url)
	md, err := session.FetchMetadata(r.Context(), url)
	if err != nil {
		code := statusFor(err)
		if code >= http.StatusInternalServerError {
			s.logger.Warn("metadata failed", append([]any{"url", url}, logAttrs(err)...)...)
		}
		http.Error(w, http.StatusText(code), code)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	json.NewEncoder(w).Encode(md)
}

// servePublic serves r from the public directory when a file matches.
func (s *Server) servePublic(w http.ResponseWriter, r *http.Request) bool {
	if s.config.Public == "" || r.URL.Path == "/" {
		return false
	}
	name := filepath.Join(s.config.Public, filepath.FromSlash(filepath.Clean("/"+r.URL.Path)))
	info, err := os.Stat(name)
	if err != nil || info.IsDir() {
		return false
	}
	http.ServeFile(w, r, name)
	return true
}

// ListenAndServe serves until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Address,
		Handler:           s.router,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       s.config.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", s.config.Address, "dev", s.config.Dev)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("server shutting down")
	if s.reload != nil {
		s.reload.Close()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

// statusFor maps a render error to an HTTP status.
func statusFor(err error) int {
	switch ferrors.Code(err) {
	case "E001":
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func logAttrs(err error) []any {
	var fe *ferrors.FireboltError
	if errors.As(err, &fe) {
		return fe.LogAttrs()
	}
	return []any{"error", err}
}

func injectReloadScript(body []byte) []byte {
	i := bytes.LastIndex(body, []byte("</body>"))
	if i < 0 {
		return append(body, ReloadScript...)
	}
	out := make([]byte, 0, len(body)+len(ReloadScript))
	out = append(out, body[:i]...)
	out = append(out, ReloadScript...)
	return append(out, body[i:]...)
}
