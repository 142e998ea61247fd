// Package http serves the savings tracker page, its HTMX partials and the
// history endpoints.
package http

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"savetrack/internal/cache"
	"savetrack/internal/core"
	applog "savetrack/internal/log"
	"savetrack/internal/middleware/ratelimit"
	"savetrack/internal/middleware/security"
	"savetrack/internal/middleware/trace"
	"savetrack/internal/ports"
	"savetrack/internal/services"
	appweb "savetrack/web"
)

// Options configures NewServer. Zero values fall back to defaults.
type Options struct {
	Logger             *applog.Logger
	SessionCookieName  string
	SessionSecure      bool
	SessionMaxAge      time.Duration
	RateLimitPerMinute int
	MaxUploadBytes     int64
	// Ready reports whether the history store is reachable.
	Ready func(ctx context.Context) error
	// Cache is reported on /metrics when set.
	Cache *cache.HistoryStore
}

type Server struct {
	http.Server
	templates  *template.Template
	svc        *services.SavingsService
	logger     *applog.Logger
	structured *applog.StructuredLogger
	sessions   *SessionManager
	limiter    *ratelimit.Limiter
	detector   *security.Detector
	tracer     *trace.Middleware
	ready      func(ctx context.Context) error
	cache      *cache.HistoryStore
	maxUpload  int64
	started    time.Time

	entriesSaved   atomic.Int64
	historyMerges  atomic.Int64
	validationFail atomic.Int64

	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates.
func NewServer(addr string, svc *services.SavingsService, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 1 << 20
	}
	if opts.Ready == nil {
		opts.Ready = func(context.Context) error { return nil }
	}

	s := &Server{
		svc:        svc,
		logger:     logger,
		structured: applog.NewStructuredLogger(logger),
		sessions:   NewSessionManager(opts.SessionCookieName, opts.SessionSecure, opts.SessionMaxAge),
		limiter:    ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector:   security.NewDetector(),
		ready:      opts.Ready,
		cache:      opts.Cache,
		maxUpload:  opts.MaxUploadBytes,
		started:    time.Now(),
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ClientIP)

	t, err := parseTemplates(svc.Currency())
	if err != nil {
		return nil, err
	}
	s.templates = t

	app := http.NewServeMux()
	app.HandleFunc("GET /{$}", s.handleIndex)
	app.HandleFunc("GET /ui/history", s.handleHistoryPartial)
	app.HandleFunc("POST /entries", s.handleSaveEntry)
	app.HandleFunc("PUT /entries/{id}", s.handleUpdateEntry)
	app.HandleFunc("POST /entries/{id}", s.handleUpdateEntry)
	app.HandleFunc("DELETE /entries/{id}", s.handleDeleteEntry)
	app.HandleFunc("POST /history/upload", s.handleUpload)
	app.HandleFunc("GET /history/export.csv", s.handleExportCSV)
	app.HandleFunc("GET /history/export.xlsx", s.handleExportXLSX)

	root := http.NewServeMux()
	root.HandleFunc("GET /healthz", s.handleHealth)
	root.HandleFunc("GET /readyz", s.handleReady)
	root.HandleFunc("GET /metrics", s.handleMetrics)

	sub, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, err
	}
	root.Handle("GET /static/", security.StaticAssetMiddleware(3600)(
		http.StripPrefix("/static/", http.FileServerFS(sub))))

	limit := s.limiter.Middleware(s.detector.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, s.detector.ClientIP(r), applog.FieldPath, r.URL.Path)
		TooManyRequestsError("Too many requests. Please try again in a minute.").Write(w)
	})
	root.Handle("/", limit(s.sessions.Middleware(app)))
	// Live previews fire on every keystroke and write nothing.
	root.Handle("POST /ui/evaluate", s.sessions.Middleware(http.HandlerFunc(s.handleEvaluate)))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.tracer.Middleware(headers.Middleware(s.detector.BlockProbes(root))),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

func parseTemplates(currency string) (*template.Template, error) {
	funcs := template.FuncMap{
		"money": func(m core.Money) string { return m.Format(currency) },
		"pct":   percent,
	}
	return template.New("").Funcs(funcs).ParseFS(appweb.TemplatesFS, "templates/*.html")
}

// Shutdown stops background work and drains connections.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// render executes name into a buffer so a template error never leaves a
// half-written response.
func (s *Server) render(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.structured.LogError(r.Context(), "Template execution failed", err, applog.ComponentTemplate, applog.OpRender,
			applog.NewFields().WithSession(SessionID(r.Context())))
		InternalServerError("Something went wrong rendering the page.").Write(w)
		return
	}
	b.BodyHTML(buf.String()).Write(w)
}

// writeError maps service errors onto responses: invalid input is 422,
// a missing entry 404, anything else 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	ctx := r.Context()
	switch {
	case core.IsValidationError(err):
		s.validationFail.Add(1)
		applog.FromContext(ctx).InfoContext(ctx, "Rejected input", applog.FieldOperation, op, applog.FieldError, err.Error())
		UnprocessableEntityError(validationMessage(err)).Write(w)
	case errors.Is(err, ports.ErrNotFound):
		NotFoundError("That entry no longer exists.").Write(w)
	case errors.Is(err, core.ErrEmptySession):
		BadRequestError("Missing session.").Write(w)
	default:
		s.structured.LogError(ctx, "Request failed", err, applog.ComponentHTTP, op,
			applog.NewFields().WithSession(SessionID(ctx)))
		InternalServerError("Something went wrong. Please try again.").Write(w)
	}
}
