package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"wealthtrack/internal/cache"
	"wealthtrack/internal/core"
	"wealthtrack/internal/export"
	"wealthtrack/internal/ledger"
	"wealthtrack/internal/log"
	"wealthtrack/internal/middleware/ratelimit"
	"wealthtrack/internal/middleware/security"
	"wealthtrack/internal/middleware/trace"
	"wealthtrack/internal/services"
)

// SheetWriter receives exported tables. *sheets.Client implements it.
type SheetWriter interface {
	WriteTable(ctx context.Context, t export.Table) (int, error)
}

// Deps are the services behind the API. Ledger and Reports are required;
// Snapshots and Sheets may be nil.
type Deps struct {
	Ledger    *services.LedgerService
	Reports   *services.ReportService
	Snapshots *services.SnapshotService
	Sheets    SheetWriter
	Logger    *log.Logger
}

// Options tune caching and throttling; zero values take defaults.
type Options struct {
	CacheSize          int
	CacheTTL           time.Duration
	RateLimitPerMinute int
}

// cachedResponse is a rendered report body.
type cachedResponse struct {
	contentType string
	body        []byte
}

type Server struct {
	http.Server

	ledger    *services.LedgerService
	reports   *services.ReportService
	snapshots *services.SnapshotService
	sheets    SheetWriter
	logger    *log.Logger

	reportCache  *cache.LRUCache[cachedResponse]
	cacheManager *cache.Manager
	cacheMu      sync.Mutex
	cacheGen     uint64 // bumped on every invalidation, guarded by cacheMu

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	headers          *security.HeadersMiddleware

	started      time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps, opts Options) *Server {
	if opts.CacheSize <= 0 {
		opts.CacheSize = 100
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	detector := security.NewDetector()
	s := &Server{
		ledger:           deps.Ledger,
		reports:          deps.Reports,
		snapshots:        deps.Snapshots,
		sheets:           deps.Sheets,
		logger:           logger,
		reportCache:      cache.NewLRUCache[cachedResponse](opts.CacheSize, opts.CacheTTL),
		cacheManager:     cache.NewManager(),
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(detector.ExtractClientIP, logger),
		headers:          security.NewHeadersMiddleware(security.DefaultHeadersConfig()),
		started:          time.Now(),
	}

	s.cacheManager.Register(s.reportCache)
	s.cacheManager.StartCleanup(time.Minute)
	s.ledger.OnChange(func(entity, op, id string) {
		s.invalidateReports()
	})

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(detector.ExtractClientIP, ratelimit.WritesOnly, s.handleRateLimited)(handler)
	handler = detector.Middleware(handler)
	handler = s.headers.Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	// Reports
	mux.HandleFunc("GET /api/dashboard", s.cached(s.handleDashboard))
	mux.HandleFunc("GET /api/reports", s.cached(s.handleReport))
	mux.HandleFunc("GET /api/analytics", s.cached(s.handleAnalytics))
	mux.HandleFunc("GET /api/export", s.handleExport)
	mux.HandleFunc("POST /api/export/sheets", s.handleExportSheets)
	mux.HandleFunc("GET /api/snapshots", s.handleListSnapshots)
	mux.HandleFunc("POST /api/snapshots", s.handleTakeSnapshot)

	// Properties and their records
	mux.HandleFunc("GET /api/properties", s.handleListProperties)
	mux.HandleFunc("POST /api/properties", handleCreate(s.ledger.CreateProperty, nil))
	mux.HandleFunc("GET /api/properties/{id}", handleGet(s.store().GetProperty))
	mux.HandleFunc("PUT /api/properties/{id}", handleUpdate(s.ledger.UpdateProperty, func(p *core.Property, id string) { p.ID = id }))
	mux.HandleFunc("DELETE /api/properties/{id}", handleDelete(s.ledger.DeleteProperty))

	mux.HandleFunc("GET /api/properties/{id}/rentals", s.handleListRentals)
	mux.HandleFunc("POST /api/properties/{id}/rentals", s.withProperty(handleCreate(s.ledger.AddRentalIncome, func(r *core.RentalIncome, id string) { r.PropertyID = id })))
	mux.HandleFunc("DELETE /api/rentals/{id}", handleDelete(s.ledger.DeleteRentalIncome))

	mux.HandleFunc("GET /api/properties/{id}/expenses", s.handleListPropertyExpenses)
	mux.HandleFunc("POST /api/properties/{id}/expenses", s.withProperty(handleCreate(s.ledger.AddPropertyExpense, func(e *core.PropertyExpense, id string) { e.PropertyID = id })))
	mux.HandleFunc("DELETE /api/property-expenses/{id}", handleDelete(s.ledger.DeletePropertyExpense))

	mux.HandleFunc("GET /api/properties/{id}/mortgages", s.handleListMortgages)
	mux.HandleFunc("POST /api/properties/{id}/mortgages", s.withProperty(handleCreate(s.ledger.AddMortgage, func(m *core.Mortgage, id string) { m.PropertyID = id })))
	mux.HandleFunc("GET /api/mortgages/{id}", handleGet(s.store().GetMortgage))
	mux.HandleFunc("PUT /api/mortgages/{id}", handleUpdate(s.ledger.UpdateMortgage, func(m *core.Mortgage, id string) { m.ID = id }))
	mux.HandleFunc("DELETE /api/mortgages/{id}", handleDelete(s.ledger.DeleteMortgage))

	// Investments, incomes and expenses
	mux.HandleFunc("GET /api/investments", s.handleListInvestments)
	mux.HandleFunc("POST /api/investments", handleCreate(s.ledger.CreateInvestment, nil))
	mux.HandleFunc("GET /api/investments/{id}", handleGet(s.store().GetInvestment))
	mux.HandleFunc("PUT /api/investments/{id}", handleUpdate(s.ledger.UpdateInvestment, func(v *core.Investment, id string) { v.ID = id }))
	mux.HandleFunc("DELETE /api/investments/{id}", handleDelete(s.ledger.DeleteInvestment))

	mux.HandleFunc("GET /api/incomes", s.handleListIncomes)
	mux.HandleFunc("POST /api/incomes", handleCreate(s.ledger.CreateIncome, nil))
	mux.HandleFunc("GET /api/incomes/{id}", handleGet(s.store().GetIncome))
	mux.HandleFunc("PUT /api/incomes/{id}", handleUpdate(s.ledger.UpdateIncome, func(v *core.Income, id string) { v.ID = id }))
	mux.HandleFunc("DELETE /api/incomes/{id}", handleDelete(s.ledger.DeleteIncome))

	mux.HandleFunc("GET /api/expenses", s.handleListExpenses)
	mux.HandleFunc("POST /api/expenses", handleCreate(s.ledger.CreateExpense, nil))
	mux.HandleFunc("GET /api/expenses/{id}", handleGet(s.store().GetExpense))
	mux.HandleFunc("PUT /api/expenses/{id}", handleUpdate(s.ledger.UpdateExpense, func(v *core.Expense, id string) { v.ID = id }))
	mux.HandleFunc("DELETE /api/expenses/{id}", handleDelete(s.ledger.DeleteExpense))

	// Calculators
	mux.HandleFunc("GET /api/tools/mortgage", s.handleMortgageTool)
	mux.HandleFunc("GET /api/tools/tax", s.handleTaxTool)
	mux.HandleFunc("GET /api/tools/convert", s.handleConvertTool)
	mux.HandleFunc("GET /api/tools/projection", s.handleProjectionTool)
}

func (s *Server) store() ledger.Store {
	return s.ledger.Store()
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(r, http.StatusTooManyRequests, "rate limit exceeded, please try again later").Write(w)
}

// invalidateReports drops every cached report and starts a new generation.
func (s *Server) invalidateReports() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.cacheGen++
	s.reportCache.Clear()
}

func (s *Server) reportGeneration() uint64 {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.cacheGen
}

// storeReport caches a response computed during generation gen. A response
// that raced with a write is dropped.
func (s *Server) storeReport(gen uint64, key string, resp cachedResponse) bool {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if gen != s.cacheGen {
		return false
	}
	s.reportCache.Set(key, resp)
	return true
}

// cached serves GET responses from the report cache. Only 200 responses are
// stored; any ledger write clears the cache.
func (s *Server) cached(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path + "?" + r.URL.Query().Encode()
		if hit, ok := s.reportCache.Get(key); ok {
			w.Header().Set("X-Cache", "HIT")
			NewResponse().Raw(hit.contentType, hit.body).Write(w)
			return
		}

		gen := s.reportGeneration()
		rec := &bufferedWriter{header: make(http.Header), status: http.StatusOK}
		next(rec, r)
		if rec.status == http.StatusOK {
			s.storeReport(gen, key, cachedResponse{contentType: rec.header.Get("Content-Type"), body: rec.body})
		}
		for k, v := range rec.header {
			w.Header()[k] = v
		}
		w.Header().Set("X-Cache", "MISS")
		w.WriteHeader(rec.status)
		_, _ = w.Write(rec.body)
	}
}

// bufferedWriter holds a response until it can be cached.
type bufferedWriter struct {
	header http.Header
	status int
	body   []byte
}

func (b *bufferedWriter) Header() http.Header { return b.header }

func (b *bufferedWriter) WriteHeader(code int) { b.status = code }

func (b *bufferedWriter) Write(p []byte) (int, error) {
	b.body = append(b.body, p...)
	return len(p), nil
}

// Shutdown stops background work and drains the HTTP server. It does not
// close the ledger; the caller owns it.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
