// Package http provides the HTTP server and handler implementations.
//
// This file wires routes, middleware and the report caches into a
// ready-to-run server.

package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"contas/internal/cache"
	"contas/internal/core"
	"contas/internal/log"
	"contas/internal/middleware/ratelimit"
	"contas/internal/middleware/security"
	"contas/internal/middleware/trace"
	"contas/internal/services"
)

// LedgerWriter covers the write side of the ledger: account and
// transaction mutations with status resolution and sync notification.
type LedgerWriter interface {
	CreateAccount(ctx context.Context, name string) (core.Account, error)
	DeactivateAccount(ctx context.Context, id uuid.UUID) error
	DeleteAccount(ctx context.Context, id uuid.UUID) error
	CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	SettleTransaction(ctx context.Context, id uuid.UUID, paymentDate time.Time) (core.Transaction, error)
	ReopenTransaction(ctx context.Context, id uuid.UUID) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id uuid.UUID) error
}

// LedgerReader covers the read side used by balances and reports.
type LedgerReader interface {
	GetAccount(ctx context.Context, id uuid.UUID) (core.Account, error)
	ListAccounts(ctx context.Context) ([]core.Account, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (core.Transaction, error)
	ListTransactions(ctx context.Context) ([]core.Transaction, error)
	ListTransactionsByAccount(ctx context.Context, accountID uuid.UUID) ([]core.Transaction, error)
	ListRecurringTransactions(ctx context.Context) ([]core.Transaction, error)
}

type Server struct {
	http.Server

	ledger           LedgerWriter
	store            LedgerReader
	projectionMonths int

	logger        *log.Logger
	structuredLog *log.StructuredLogger

	detector *security.Detector
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware

	// Report caches, cleared wholesale on every write. Windows overlap,
	// so per-key invalidation cannot be precise.
	statsCache *cache.LRUCache[services.PeriodStats]
	flowCache  *cache.LRUCache[[]core.MonthBucket]
	cacheMgr   *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures middleware and routes, returning a ready-to-run
// server. projectionMonths bounds the default report window.
func NewServer(addr string, ledger LedgerWriter, store LedgerReader, projectionMonths int) *Server {
	logger := log.New(log.Config{Component: log.ComponentHTTP})

	s := &Server{
		ledger:           ledger,
		store:            store,
		projectionMonths: projectionMonths,
		logger:           logger,
		structuredLog:    log.NewStructuredLogger(logger),
		detector:         security.NewDetector(),
		limiter:          ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		statsCache:       cache.NewLRUCache[services.PeriodStats](100, 5*time.Minute),
		flowCache:        cache.NewLRUCache[[]core.MonthBucket](200, 5*time.Minute),
		cacheMgr:         cache.NewManager(),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP)

	s.cacheMgr.Register(s.statsCache)
	s.cacheMgr.Register(s.flowCache)
	s.cacheMgr.StartCleanup(10 * time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /accounts", s.handleCreateAccount)
	mux.HandleFunc("GET /accounts", s.handleListAccounts)
	mux.HandleFunc("POST /accounts/{id}/deactivate", s.handleDeactivateAccount)
	mux.HandleFunc("DELETE /accounts/{id}", s.handleDeleteAccount)
	mux.HandleFunc("GET /accounts/{id}/balance", s.handleAccountBalance)

	mux.HandleFunc("POST /transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /transactions", s.handleListTransactions)
	mux.HandleFunc("GET /transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("PUT /transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("POST /transactions/{id}/settle", s.handleSettleTransaction)
	mux.HandleFunc("POST /transactions/{id}/reopen", s.handleReopenTransaction)
	mux.HandleFunc("DELETE /transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("GET /transactions/{id}/occurrences", s.handleTransactionOccurrences)

	mux.HandleFunc("GET /reports/cash-flow", s.handleCashFlow)
	mux.HandleFunc("GET /reports/period-stats", s.handlePeriodStats)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	handler := s.rejectSuspicious(s.limitWrites(mux))
	handler = log.RequestIDMiddleware(func(r *http.Request) string {
		return trace.GetRequestID(r.Context())
	})(handler)
	handler = log.Middleware(logger)(handler)
	handler = s.tracer.Middleware(handler)
	handler = headers.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// limitWrites applies per-client rate limiting to mutating requests.
// Reads stay unthrottled since they are cheap and cacheable.
func (s *Server) limitWrites(next http.Handler) http.Handler {
	limited := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.detector.ExtractClientIP(r),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		w.Header().Set("Retry-After", "60")
		respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
	})(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}
		limited.ServeHTTP(w, r)
	})
}

// rejectSuspicious drops requests matching scanner probe patterns.
func (s *Server) rejectSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			s.logger.WarnContext(r.Context(), "Suspicious request rejected",
				log.FieldClientIP, s.detector.ExtractClientIP(r),
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			respondError(w, http.StatusBadRequest, "bad request")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// invalidateReports clears both report caches after a write.
func (s *Server) invalidateReports() {
	s.statsCache.Clear()
	s.flowCache.Clear()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.ListAccounts(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "storage not ready")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Shutdown stops the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		s.cacheMgr.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
