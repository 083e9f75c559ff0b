package http

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"riparto/internal/calculator"
	"riparto/internal/core"
	"riparto/internal/middleware/ratelimit"
	"riparto/internal/middleware/security"
	"riparto/internal/middleware/trace"
	"riparto/internal/storage"
)

// Repository is the slice of the storage layer the handlers need.
type Repository interface {
	ListUnits(ctx context.Context) ([]core.Unit, error)
	CreateUnit(ctx context.Context, u core.Unit) (string, error)
	UpdateUnit(ctx context.Context, u core.Unit) error
	DeleteUnit(ctx context.Context, id string) error

	ListCategories(ctx context.Context) ([]core.Category, error)
	CreateCategory(ctx context.Context, c core.Category) (string, error)
	UpdateCategory(ctx context.Context, c core.Category) error
	DeleteCategory(ctx context.Context, id string) error

	ListTables(ctx context.Context) ([]core.MillesimalTable, error)
	CreateTable(ctx context.Context, t core.MillesimalTable) (string, error)
	UpdateTable(ctx context.Context, t core.MillesimalTable) error
	DeleteTable(ctx context.Context, id string) error

	ListTransactionsByYear(ctx context.Context, year int) ([]core.Transaction, error)
	GetTransaction(ctx context.Context, id string) (*core.Transaction, error)
	CreateTransaction(ctx context.Context, t core.Transaction) (string, error)
	UpdateTransaction(ctx context.Context, t core.Transaction) error
	DeleteTransaction(ctx context.Context, id string) error
	ListTransactionYears(ctx context.Context) ([]int, error)

	ListWaterMeters(ctx context.Context) ([]core.WaterMeter, error)
	CreateWaterMeter(ctx context.Context, m core.WaterMeter) (string, error)
	DeleteWaterMeter(ctx context.Context, id string) error
	ListWaterReadingsByYear(ctx context.Context, year int) ([]core.WaterReading, error)
	CreateWaterReading(ctx context.Context, wr core.WaterReading) (string, error)
	DeleteWaterReading(ctx context.Context, id string) error
}

// Distribution is the slice of the distribution service the handlers need.
type Distribution interface {
	GetDistribution(ctx context.Context, year int) (map[string]*calculator.UnitResult, error)
	RequestRecompute(ctx context.Context, year int, reason string) error
	LatestSnapshot(ctx context.Context, year int) (*storage.Snapshot, error)
	AllYears(ctx context.Context) ([]int, error)
	ExportYear(ctx context.Context, year int) (string, error)
	InvalidateAll()
}

// CacheCleaner is implemented by the result cache; expired entries are swept
// on a ticker instead of lazily on reads only.
type CacheCleaner interface {
	CleanExpired() int
}

type ServerConfig struct {
	Port              string
	RequestsPerMinute int
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	CacheSweepEvery   time.Duration
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:              "8081",
		RequestsPerMinute: 60,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		CacheSweepEvery:   time.Minute,
	}
}

// Server is the riparto HTTP API server.
type Server struct {
	httpServer *http.Server
	repo       Repository
	dist       Distribution
	limiter    *ratelimit.Limiter
	cleaner    CacheCleaner

	stopSweep    chan struct{}
	shutdownOnce sync.Once
}

func NewServer(cfg ServerConfig, repo Repository, dist Distribution, cleaner CacheCleaner) *Server {
	if cfg.Port == "" {
		cfg = DefaultServerConfig()
	}

	s := &Server{
		repo:      repo,
		dist:      dist,
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RequestsPerMinute}),
		cleaner:   cleaner,
		stopSweep: make(chan struct{}),
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	traced := trace.NewMiddleware(extractClientIP)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limited := s.limiter.Middleware(extractClientIP, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "60")
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
	})

	handler := traced.Middleware(headers.Middleware(limited(mux)))

	s.httpServer = &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	if cleaner != nil {
		sweepEvery := cfg.CacheSweepEvery
		if sweepEvery <= 0 {
			sweepEvery = time.Minute
		}
		go s.sweepCache(sweepEvery)
	}

	return s
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/v1/distribution", s.handleGetDistribution)
	mux.HandleFunc("POST /api/v1/distribution/recompute", s.handleRecompute)
	mux.HandleFunc("GET /api/v1/distribution/snapshot", s.handleGetSnapshot)
	mux.HandleFunc("POST /api/v1/distribution/export", s.handleExport)
	mux.HandleFunc("GET /api/v1/years", s.handleListYears)

	mux.HandleFunc("GET /api/v1/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/v1/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /api/v1/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("PUT /api/v1/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/v1/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/v1/units", s.handleListUnits)
	mux.HandleFunc("POST /api/v1/units", s.handleCreateUnit)
	mux.HandleFunc("PUT /api/v1/units/{id}", s.handleUpdateUnit)
	mux.HandleFunc("DELETE /api/v1/units/{id}", s.handleDeleteUnit)

	mux.HandleFunc("GET /api/v1/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/v1/categories", s.handleCreateCategory)
	mux.HandleFunc("PUT /api/v1/categories/{id}", s.handleUpdateCategory)
	mux.HandleFunc("DELETE /api/v1/categories/{id}", s.handleDeleteCategory)

	mux.HandleFunc("GET /api/v1/tables", s.handleListTables)
	mux.HandleFunc("POST /api/v1/tables", s.handleCreateTable)
	mux.HandleFunc("PUT /api/v1/tables/{id}", s.handleUpdateTable)
	mux.HandleFunc("DELETE /api/v1/tables/{id}", s.handleDeleteTable)

	mux.HandleFunc("GET /api/v1/water/meters", s.handleListWaterMeters)
	mux.HandleFunc("POST /api/v1/water/meters", s.handleCreateWaterMeter)
	mux.HandleFunc("DELETE /api/v1/water/meters/{id}", s.handleDeleteWaterMeter)

	mux.HandleFunc("GET /api/v1/water/readings", s.handleListWaterReadings)
	mux.HandleFunc("POST /api/v1/water/readings", s.handleCreateWaterReading)
	mux.HandleFunc("DELETE /api/v1/water/readings/{id}", s.handleDeleteWaterReading)
}

// Handler exposes the full middleware chain, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	slog.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		close(s.stopSweep)
		s.limiter.Stop()
		err = s.httpServer.Shutdown(ctx)
	})
	return err
}

func (s *Server) sweepCache(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.cleaner.CleanExpired(); n > 0 {
				slog.Debug("Swept expired cache entries", "count", n)
			}
		case <-s.stopSweep:
			return
		}
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if _, err := s.repo.ListTransactionYears(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database not reachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// extractClientIP prefers proxy headers over the socket address.
func extractClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.Index(fwd, ","); idx > 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return real
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
