package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"tendies/internal/cache"
	"tendies/internal/log"
	"tendies/internal/middleware/ratelimit"
	"tendies/internal/middleware/security"
	"tendies/internal/middleware/trace"
	"tendies/internal/reports"
	"tendies/internal/services"
)

// Services are the operations the API exposes.
type Services struct {
	Categories *services.CategoryRegistry
	Budgets    *services.BudgetAllocator
	Payers     *services.PayerService
	Expenses   *services.ExpenseService
	Account    *services.AccountService
	Exports    *services.ExportService
	Reports    *reports.Composer

	// Clock pins "now" for budget year validation. Defaults to time.Now.
	Clock services.Clock
}

type Options struct {
	RateLimitPerMinute int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration

	// ReportCacheTTL bounds how stale a cached report or dashboard may be.
	// Writes by the same user drop their entries immediately.
	ReportCacheTTL time.Duration
}

type Server struct {
	http.Server
	svc     Services
	limiter *ratelimit.Limiter
	logger  *log.Logger

	reportCache *cache.LRUCache[any]
	caches      *cache.Manager

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc Services, opts Options, logger *log.Logger) *Server {
	if svc.Clock == nil {
		svc.Clock = time.Now
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 15 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 30 * time.Second
	}
	if opts.ReportCacheTTL <= 0 {
		opts.ReportCacheTTL = time.Minute
	}

	s := &Server{
		svc:     svc,
		limiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		logger:  logger.WithComponent(log.ComponentHTTP),

		reportCache: cache.NewLRUCache[any](500, opts.ReportCacheTTL),
		caches:      cache.NewManager(logger.WithComponent(log.ComponentHTTP)),
	}
	s.caches.Register(s.reportCache)
	s.caches.Start(5 * time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)
	s.routes(mux)

	clientIP := security.NewClientIP()
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(logger, clientIP.Extract)

	var h http.Handler = mux
	h = s.limiter.Middleware(clientIP.Extract, s.onRateLimited)(h)
	h = headers.Middleware(h)
	h = tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadTimeout:       opts.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      opts.WriteTimeout,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	api := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, requireUser(h))
	}
	// write routes drop the caller's cached reports once they succeed.
	write := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, requireUser(s.invalidating(h)))
	}

	api("GET /api/categories", s.handleListCategories)
	api("GET /api/categories/library", s.handleListLibrary)
	write("POST /api/categories", s.handleAddCategory)
	write("PUT /api/categories/{name}", s.handleRenameCategory)
	write("DELETE /api/categories/{name}", s.handleDeleteCategory)

	api("GET /api/budgets", s.handleListBudgets)
	api("GET /api/budgets/total", s.handleTotalBudgeted)
	write("POST /api/budgets", s.handleCreateBudget)
	api("GET /api/budgets/{name}", s.handleGetBudget)
	write("PUT /api/budgets/{name}", s.handleUpdateBudget)
	write("DELETE /api/budgets/{name}", s.handleDeleteBudget)

	write("POST /api/expenses", s.handleAddExpenses)
	api("GET /api/expenses/{id}", s.handleGetExpense)
	write("PUT /api/expenses/{id}", s.handleUpdateExpense)
	write("DELETE /api/expenses/{id}", s.handleDeleteExpense)

	api("GET /api/payers", s.handleListPayers)
	write("POST /api/payers", s.handleAddPayer)
	write("PUT /api/payers/{name}", s.handleRenamePayer)
	write("DELETE /api/payers/{name}", s.handleDeletePayer)

	api("GET /api/account/stats", s.handleAccountStats)
	api("GET /api/dashboard", s.handleDashboard)
	api("GET /api/reports/{kind}", s.handleReport)
	api("POST /api/exports", s.handleRequestExport)
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
	writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded"})
}

// Shutdown stops the HTTP server and the background sweepers, logging how
// well the report cache did.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		s.caches.Stop()
		hits, misses := s.reportCache.Stats()
		s.logger.Info("Report cache stats", "hits", hits, "misses", misses, "entries", s.reportCache.Size())
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
