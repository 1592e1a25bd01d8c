package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"hostwatch/internal/audit"
	"hostwatch/internal/config"
	"hostwatch/internal/handlers"
	"hostwatch/internal/hostproc"
	"hostwatch/internal/middleware"
	"hostwatch/internal/utils"
	"hostwatch/internal/version"
	"hostwatch/internal/ws"
)

type App struct {
	cfg         *config.Config
	logger      *utils.Logger
	authService *middleware.AuthService
	rateLimiter *middleware.RateLimiter
	registry    *ws.Registry
	wsHub       *middleware.Hub
	hostService *hostproc.Service
	metricsLoop *ws.MetricsLoop
	auditStore  audit.Store
	adminHash   string
}

var app *App

func newApp(cfg *config.Config, source hostproc.Source) (*App, error) {
	logger := utils.NewLogger(cfg.LogFile)
	logger.SetLevel(utils.ParseLevel(cfg.LogLevel))

	store, err := audit.Open(cfg.AuditDBPath, logger)
	if err != nil {
		logger.Close()
		return nil, fmt.Errorf("open audit store: %w", err)
	}

	adminHash := cfg.AdminPasswordHash
	if adminHash == "" && cfg.AdminPassword != "" {
		adminHash, err = middleware.HashPassword(cfg.AdminPassword)
		if err != nil {
			store.Close()
			logger.Close()
			return nil, fmt.Errorf("hash admin password: %w", err)
		}
	}

	inspector := hostproc.NewInspector(source, logger)
	controller := hostproc.NewController(source, logger,
		hostproc.WithAudit(store),
		hostproc.WithTerminatedHook(inspector.Invalidate),
	)
	service := hostproc.NewService(inspector, controller, hostproc.NewPool(cfg.Workers))

	registry := ws.NewRegistry(logger)
	auth := middleware.NewAuthService(cfg.JWTSecret, cfg.TokenExpiry)

	return &App{
		cfg:         cfg,
		logger:      logger,
		authService: auth,
		rateLimiter: middleware.NewRateLimiter(rate.Every(time.Minute/120), 20),
		registry:    registry,
		wsHub:       middleware.NewHub(registry, auth, logger, cfg.CORSOrigins),
		hostService: service,
		metricsLoop: ws.NewMetricsLoop(registry, service, logger, cfg.BroadcastInterval),
		auditStore:  store,
		adminHash:   adminHash,
	}, nil
}

// Close tears the app down in dependency order. The broadcast loop is stopped
// and awaited before anything it uses goes away.
func (a *App) Close() {
	a.metricsLoop.Stop()
	a.hostService.Close()
	a.rateLimiter.Stop()
	if err := a.auditStore.Close(); err != nil {
		a.logger.Errorf("Audit store close failed: %v", err)
	}
	a.logger.Close()
}

func main() {
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	cfg := config.Load()
	var err error
	app, err = newApp(cfg, hostproc.NewGopsutilSource())
	if err != nil {
		log.Fatalf("Startup failed: %v", err)
	}

	app.logger.Infof("hostwatch %s starting", version.String())
	if cfg.UsingDefaultSecret() {
		app.logger.Warnf("HOSTWATCH_JWT_SECRET is not set; tokens are signed with the development secret")
	}
	if app.adminHash == "" {
		app.logger.Warnf("No admin password configured; /api/auth/login is disabled")
	}

	r := setupRouter()

	srv := &http.Server{
		Addr:           ":" + strconv.Itoa(cfg.Port),
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   15 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app.metricsLoop.Start(ctx)

	serveErr := make(chan error, 1)
	go func() {
		if cfg.TLSEnabled {
			if cfg.TLSCertPath == "" || cfg.TLSKeyPath == "" {
				serveErr <- errors.New("HOSTWATCH_USE_TLS is enabled but HOSTWATCH_TLS_CERT or HOSTWATCH_TLS_KEY not provided")
				return
			}
			app.logger.Infof("Starting HTTPS server on port %d", cfg.Port)
			serveErr <- srv.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
			return
		}
		app.logger.Infof("Starting server on port %d", cfg.Port)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		app.logger.Infof("Shutting down server...")
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Errorf("Server failed: %v", err)
		}
	}

	// Stop pushes before connections are torn down.
	app.metricsLoop.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.logger.Errorf("Server forced to shutdown: %v", err)
	}

	app.logger.Infof("Server exited")
	app.Close()
}

func setupRouter() *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Output: app.logger.Writer(),
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC1123),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
		SkipPaths: []string{"/healthz"},
	}))
	r.Use(middleware.SlowRequests(app.logger, app.cfg.SlowRequest))

	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(app.cfg.CORSOrigins))

	r.GET("/health", handlers.Health)
	r.GET("/healthz", handlers.Healthz)
	r.GET("/version", handlers.Version)

	authHandlers := handlers.NewAuthHandlers(app.authService, app.cfg.AdminUser, app.adminHash, app.logger)
	hprocHandlers := handlers.NewHostProcessHandlers(app.hostService, app.logger)
	auditHandlers := handlers.NewAuditHandlers(app.auditStore, app.logger)

	limited := r.Group("/api")
	limited.Use(app.rateLimiter.Middleware())
	limited.POST("/auth/login", authHandlers.APILogin)

	api := limited.Group("")
	api.Use(app.authService.RequireAPIAuth())
	{
		api.GET("/auth/me", authHandlers.Me)
		api.GET("/hproc/list", hprocHandlers.List)
		api.GET("/hproc/metrics", hprocHandlers.Metrics)
		api.GET("/hproc/details/:pid", hprocHandlers.Details)
	}

	admin := api.Group("")
	admin.Use(middleware.RequireAdmin())
	{
		admin.POST("/hproc/terminate/:pid", hprocHandlers.Terminate)
		admin.GET("/audit", auditHandlers.Recent)
	}

	r.GET("/ws", app.wsHub.HandleWebSocket())

	return r
}
