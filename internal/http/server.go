// Package http serves the ledger API with a chi router.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"financas/internal/core"
	applog "financas/internal/log"
	"financas/internal/metrics"
	"financas/internal/middleware/ratelimit"
	"financas/internal/middleware/security"
	"financas/internal/middleware/trace"
	"financas/internal/services"
)

// Services are the use cases behind the routes. All four are required.
type Services struct {
	Ledger      *services.LedgerService
	Attachments *services.AttachmentService
	Payslips    *services.PayslipService
	Chat        *services.ChatService
}

// Options tune the server. Zero values fall back to defaults.
type Options struct {
	RateLimitPerMinute int
	MaxUploadBytes     int
	Logger             *applog.Logger
	Metrics            *metrics.Metrics
	ClientIP           *security.ClientIP
	// Ready reports whether dependencies such as the database answer.
	Ready func(ctx context.Context) error
}

type Server struct {
	http.Server
	svc            Services
	logger         *applog.Logger
	metrics        *metrics.Metrics
	clientIP       *security.ClientIP
	ready          func(ctx context.Context) error
	limiter        *ratelimit.Limiter
	maxUploadBytes int

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
// Call Shutdown to stop it and its background goroutines.
func NewServer(addr string, svc Services, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	if opts.MaxUploadBytes <= 0 || opts.MaxUploadBytes > core.MaxUploadBytes {
		opts.MaxUploadBytes = core.MaxUploadBytes
	}
	if opts.ClientIP == nil {
		opts.ClientIP, _ = security.NewClientIP()
	}

	s := &Server{
		svc:            svc,
		logger:         opts.Logger.WithComponent(applog.ComponentHTTP),
		metrics:        opts.Metrics,
		clientIP:       opts.ClientIP,
		ready:          opts.Ready,
		limiter:        ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		maxUploadBytes: opts.MaxUploadBytes,
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	var observe trace.Observer
	if s.metrics != nil {
		observe = s.metrics.ObserveRequest
	}

	r.Use(middleware.RequestID)
	r.Use(applog.Middleware(s.logger))
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(trace.NewMiddleware(s.clientIP.Extract, observe).Middleware)
	r.Use(middleware.Recoverer)
	r.Use(s.limitWrites)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "rota não encontrada")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "método não permitido")
	})

	// operational
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	// ledger
	r.Get("/list_all", s.handleListAll)
	r.Get("/consultar", s.handleSummary)
	r.Get("/grafico_dados", s.handleChart)
	r.Get("/relatorio.pdf", s.handleReportPDF)
	r.Post("/add_entrada", s.handleAddIncome)
	r.Post("/add_gasto", s.handleAddExpense)
	r.Post("/add_divida", s.handleAddDebt)
	r.Delete("/lancamentos/{id}", s.handleDeleteEntry)
	r.Delete("/dividas/{id}", s.handleDeleteDebt)

	r.Get("/fixas", s.handleListFixed)
	r.Post("/fixas", s.handleSaveFixed)
	r.Post("/fixas/lote", s.handleSaveFixedBatch)

	// receipts
	r.Post("/upload_comprovante", s.handleUploadAttachment)
	r.Get("/listar_comprovantes/*", s.handleListAttachments)
	r.Get("/download_comprovante/{id}", s.handleDownloadAttachment)

	// payslips
	r.Post("/upload_contracheque", s.handleUploadPayslip)
	r.Get("/listar_contracheques/todos", s.handleListPayslips)
	r.Get("/download_contracheque/{id}", s.handleDownloadPayslip)
	r.Get("/visualizar_contracheque/{id}", s.handleViewPayslip)
	r.Post("/reanalisar_contracheque/{id}", s.handleReanalyzePayslip)
	r.Delete("/deletar_contracheque/{id}", s.handleDeletePayslip)

	r.Post("/chat", s.handleChat)

	return r
}

// limitWrites rate limits everything except reads.
func (s *Server) limitWrites(next http.Handler) http.Handler {
	limited := s.limiter.Middleware(s.clientIP.Extract, func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, s.clientIP.Extract(r),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		writeError(w, http.StatusTooManyRequests, "muitas requisições, tente novamente em instantes")
	})(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}
		limited.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
