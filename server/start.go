package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	cachepackage "session-auth-demo/cache"
	"session-auth-demo/config"
	"session-auth-demo/database"
	"session-auth-demo/gate"
	"session-auth-demo/handlers"
	"session-auth-demo/logger"
	"session-auth-demo/models"
	"session-auth-demo/registry"
	"session-auth-demo/session"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Route is one application endpoint. Gate is nil for public routes.
type Route struct {
	Name    string
	Methods []string
	Path    string
	Gate    *gate.Gate
	Handler handlers.HandlerFunc
}

// Dependencies are the collaborators the router is built from.
type Dependencies struct {
	Sessions      *session.Manager
	Users         registry.Registry
	LookupTimeout time.Duration
	Metrics       *gate.Metrics
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

func gateRef(g gate.Gate) *gate.Gate { return &g }

// Routes lists the application endpoints and their gates.
func Routes(auth *handlers.AuthHandler) []Route {
	redirectHome := gateRef(gate.RequireUnauthenticated("/home"))
	requireLogin := gateRef(gate.RequireAuthenticated("/login"))

	return []Route{
		{Name: "Index", Methods: []string{http.MethodGet}, Path: "/", Handler: auth.Index},
		{Name: "Home", Methods: []string{http.MethodGet}, Path: "/home", Gate: requireLogin, Handler: auth.Home},
		{Name: "LoginForm", Methods: []string{http.MethodGet}, Path: "/login", Gate: redirectHome, Handler: auth.LoginForm},
		{Name: "Login", Methods: []string{http.MethodPost}, Path: "/login", Gate: redirectHome, Handler: auth.Login},
		{Name: "RegisterForm", Methods: []string{http.MethodGet}, Path: "/register", Gate: redirectHome, Handler: auth.RegisterForm},
		{Name: "Register", Methods: []string{http.MethodPost}, Path: "/register", Gate: redirectHome, Handler: auth.Register},
		{Name: "Logout", Methods: []string{http.MethodPost}, Path: "/logout", Gate: requireLogin, Handler: auth.Logout},
		{Name: "TestData", Methods: []string{http.MethodGet}, Path: "/api/test-data", Gate: gateRef(gate.RequireAuthenticatedOrFail()), Handler: handlers.TestData},
	}
}

// NewRouter wires the routes. /healthz and /metrics sit outside the session
// middleware so they keep answering when the session store is down.
func NewRouter(deps Dependencies) *mux.Router {
	r := mux.NewRouter()

	register(r, nil, Route{Name: "HealthCheck", Methods: []string{http.MethodGet}, Path: "/healthz", Handler: handlers.Health})
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})).
			Methods(http.MethodGet).Name("Metrics")
	}

	mw := gate.NewMiddleware(deps.Sessions, deps.Users, deps.LookupTimeout, deps.Metrics)
	auth := handlers.NewAuthHandler(deps.Sessions, deps.Users, deps.LookupTimeout)

	app := r.PathPrefix("/").Subrouter()
	app.Use(mw.LoadSession, mw.ResolveCurrentUser)
	for _, route := range Routes(auth) {
		register(app, mw, route)
	}

	return r
}

// Handler wraps router with panic recovery and request logging so that every
// request is logged, matched or not.
func Handler(router *mux.Router) http.Handler {
	return loggingMiddleware(router, recoveryMiddleware(router))
}

func register(r *mux.Router, mw *gate.Middleware, route Route) {
	var h http.Handler = route.Handler
	if route.Gate != nil {
		h = mw.Guard(*route.Gate, h)
	}

	info := handlers.RouteInfo{Name: route.Name, Path: route.Path}
	withInfo := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		info := info
		info.Method = req.Method
		h.ServeHTTP(w, req.WithContext(handlers.WithRouteInfo(req.Context(), info)))
	})

	r.Handle(route.Path, withInfo).Methods(route.Methods...).Name(route.Name)
}

// App holds the opened backends. Close releases them.
type App struct {
	Handler http.Handler
	closers []func() error
}

// Close releases backends in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("Error while closing resource", zap.Error(err))
		}
	}
}

// NewApp opens the session store and user registry named by cfg and builds
// the router on top of them.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{}

	store, err := cachepackage.InitializeCache(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize session store: %w", err)
	}
	app.closers = append(app.closers, store.Close)

	users, err := initializeRegistry(ctx, cfg, app)
	if err != nil {
		app.Close()
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	app.Handler = Handler(NewRouter(Dependencies{
		Sessions: session.NewManager(store, session.Options{
			CookieName: cfg.SessionName,
			Secure:     cfg.SecureCookies(),
			Secret:     cfg.SessionSecret,
			TTL:        cfg.SessionTTL,
		}),
		Users:         users,
		LookupTimeout: cfg.LookupTimeout,
		Metrics:       gate.NewMetrics(reg),
		Gatherer:      reg,
	}))
	return app, nil
}

func initializeRegistry(ctx context.Context, cfg *config.Config, app *App) (registry.Registry, error) {
	if !cfg.UsesSQLRegistry() {
		logger.Info("Using in-memory user registry")
		return registry.NewMemoryRegistry(models.DefaultUsers()...), nil
	}

	db, err := database.InitializeDatabase(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}
	app.closers = append(app.closers, db.Close)

	users := registry.NewSQLRegistry(db)
	if err := users.Seed(ctx, models.DefaultUsers()); err != nil {
		return nil, fmt.Errorf("seed users: %w", err)
	}
	return users, nil
}

// StartServer runs the HTTP server until SIGINT or SIGTERM.
func StartServer(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting session auth demo...", zap.String("env", cfg.Env))

	app, err := NewApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           app.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("Listening on http://localhost:%s", cfg.Port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
