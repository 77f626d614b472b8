package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"cloud.google.com/go/civil"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
)

type Accounts interface {
	Register(ctx context.Context, email, password string) (core.User, error)
	Login(ctx context.Context, email, password string) (core.User, error)
	User(ctx context.Context, id int64) (core.User, error)
}

type Ledger interface {
	AddTransaction(ctx context.Context, in services.NewTransaction) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, id int64) error
}

type Reader interface {
	TransactionsForUser(ctx context.Context, userID int64) ([]core.Transaction, error)
	TransactionsBetween(ctx context.Context, userID int64, from, to civil.Date) ([]core.Transaction, error)
	CategoriesForUser(ctx context.Context, userID int64) ([]core.Category, error)
}

type Insights interface {
	Current(ctx context.Context, userID int64) ([]core.Insight, error)
}

type Dashboards interface {
	Load(ctx context.Context, userID int64) (services.Dashboard, error)
}

// Pinger reports whether the store can serve requests.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the handlers call into.
type Deps struct {
	Accounts   Accounts
	Ledger     Ledger
	Reader     Reader
	Insights   Insights
	Dashboards Dashboards
	Store      Pinger
	Logger     *log.Logger
	// AuthRequestsPerMinute limits register and login per client.
	AuthRequestsPerMinute int
}

type Server struct {
	http.Server
	deps        Deps
	clientIP    *security.ClientIP
	tracer      *trace.Middleware
	authLimiter *ratelimit.Limiter

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = log.New(log.DefaultConfig())
	}

	s := &Server{
		deps:     deps,
		clientIP: security.NewClientIP(),
		authLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: deps.AuthRequestsPerMinute,
		}),
	}
	s.tracer = trace.NewMiddleware(s.clientIP.Extract)

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("not found").Write(w)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	auth := api.NewRoute().Subrouter()
	auth.Use(s.authLimiter.Middleware(s.clientIP.Extract, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded").Write(w)
	}))
	auth.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	auth.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)

	user := api.PathPrefix("/users/{userID:[0-9]+}").Subrouter()
	user.Use(s.requireUser)
	user.HandleFunc("/dashboard", s.handleDashboard).Methods(http.MethodGet)
	user.HandleFunc("/transactions", s.handleListTransactions).Methods(http.MethodGet)
	user.HandleFunc("/transactions", s.handleCreateTransaction).Methods(http.MethodPost)
	user.HandleFunc("/transactions/{id:[0-9]+}", s.handleDeleteTransaction).Methods(http.MethodDelete)
	user.HandleFunc("/categories", s.handleCategories).Methods(http.MethodGet)
	user.HandleFunc("/insights", s.handleInsights).Methods(http.MethodGet)

	// outermost first: request id, then the logger that reads it
	var h http.Handler = r
	h = security.Headers(security.DefaultHeadersConfig())(h)
	h = log.RequestIDMiddleware(trace.RequestIDFromRequest)(h)
	h = s.tracer.Middleware(h)
	h = log.Middleware(deps.Logger.WithComponent(log.ComponentHTTP))(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown stops accepting requests, waits for in-flight ones and stops the
// rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.authLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// Metrics reports request counters for health output.
func (s *Server) Metrics() trace.Metrics {
	return s.tracer.GetMetrics()
}
