// Package http exposes the JSON API: transaction CRUD, CSV upload, the
// dashboard summary and the category breakdown that feeds the chart
// boundary.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"findash/internal/cache"
	"findash/internal/core"
	"findash/internal/importer"
	"findash/internal/ledger"
	"findash/internal/log"

	"log/slog"
)

// Options configures the presentation surface.
type Options struct {
	CurrencySymbol     string
	MaxUploadSizeBytes int64
	SummaryCacheTTL    time.Duration
	RateLimitPerMinute int
}

func (o Options) withDefaults() Options {
	if o.CurrencySymbol == "" {
		o.CurrencySymbol = "$"
	}
	if o.MaxUploadSizeBytes <= 0 {
		o.MaxUploadSizeBytes = 5 * 1024 * 1024
	}
	if o.SummaryCacheTTL <= 0 {
		o.SummaryCacheTTL = 30 * time.Second
	}
	if o.RateLimitPerMinute <= 0 {
		o.RateLimitPerMinute = 60
	}
	return o
}

type Server struct {
	http.Server

	store    ledger.Store
	importer *importer.Importer
	opts     Options

	rateLimiter *rateLimiter

	// Derived data caches, cleared on every mutation so summaries are
	// never stale. derivedGen guards the miss-recompute path: a recompute
	// that started before a mutation must not re-cache its snapshot.
	summaryCache   *cache.LRU[summarySnapshot]
	breakdownCache *cache.LRU[map[string]core.Money]
	cacheManager   *cache.Manager
	derivedMu      sync.Mutex
	derivedGen     uint64

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server.
func NewServer(addr string, store ledger.Store, opts Options) *Server {
	opts = opts.withDefaults()
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		store:          store,
		importer:       importer.New(store),
		opts:           opts,
		rateLimiter:    newRateLimiter(opts.RateLimitPerMinute),
		summaryCache:   cache.NewLRU[summarySnapshot](16, opts.SummaryCacheTTL),
		breakdownCache: cache.NewLRU[map[string]core.Money](16, opts.SummaryCacheTTL),
		cacheManager:   cache.NewManager(),
	}

	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.Register(s.breakdownCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /{$}", s.withMiddleware(s.handleRoot))
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", handleReadyz)

	mux.HandleFunc("POST /transactions", s.withMiddleware(s.handleCreateTransaction))
	mux.HandleFunc("GET /transactions", s.withMiddleware(s.handleListTransactions))
	mux.HandleFunc("GET /transactions/{id}", s.withMiddleware(s.handleGetTransaction))
	mux.HandleFunc("DELETE /transactions/{id}", s.withMiddleware(s.handleDeleteTransaction))
	mux.HandleFunc("POST /transactions/upload-csv", s.withMiddleware(s.handleUploadCSV))

	mux.HandleFunc("GET /dashboard/summary", s.withMiddleware(s.handleDashboardSummary))
	mux.HandleFunc("GET /dashboard/breakdown", s.withMiddleware(s.handleCategoryBreakdown))
	mux.HandleFunc("GET /categories", s.withMiddleware(s.handleListCategories))

	mux.HandleFunc("POST /accounts", s.withMiddleware(s.handleCreateAccount))
	mux.HandleFunc("GET /accounts", s.withMiddleware(s.handleListAccounts))

	return s
}

// withMiddleware adds request tracing, rate limiting on mutating methods and
// security headers.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ip := clientIP(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldClientIP, ip,
			log.FieldUserAgent, r.UserAgent())

		if (r.Method == http.MethodPost || r.Method == http.MethodDelete) && !s.rateLimiter.allow(ip) {
			slog.WarnContext(ctx, "Rate limit exceeded", log.FieldClientIP, ip, log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, time.Since(start).Milliseconds())
	}
}

type contextKey string

const requestIDKey contextKey = "request_id"

// responseWriter captures the status code for request logging.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// invalidateDerived clears the summary and breakdown caches. Called after
// every mutation so derived views are recomputed from live data. The
// generation bump makes any in-flight recompute drop its cache write.
func (s *Server) invalidateDerived() {
	s.derivedMu.Lock()
	defer s.derivedMu.Unlock()
	s.derivedGen++
	s.summaryCache.Clear()
	s.breakdownCache.Clear()
}

// derivedGeneration is observed before a recompute reads the store.
func (s *Server) derivedGeneration() uint64 {
	s.derivedMu.Lock()
	defer s.derivedMu.Unlock()
	return s.derivedGen
}

// storeSummary caches a recomputed snapshot unless a mutation invalidated
// the derived caches after gen was observed. A dropped write just means the
// next read recomputes from live data.
func (s *Server) storeSummary(gen uint64, snap summarySnapshot) {
	s.derivedMu.Lock()
	defer s.derivedMu.Unlock()
	if s.derivedGen == gen {
		s.summaryCache.Set("summary", snap)
	}
}

// storeBreakdown is the breakdown counterpart of storeSummary.
func (s *Server) storeBreakdown(gen uint64, breakdown map[string]core.Money) {
	s.derivedMu.Lock()
	defer s.derivedMu.Unlock()
	if s.derivedGen == gen {
		s.breakdownCache.Set("breakdown", breakdown)
	}
}

// Shutdown stops the server and its background goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "Personal Finance Dashboard",
	})
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReadyz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
