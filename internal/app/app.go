package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vadim/postpilot/internal/config"
	httpcontroller "github.com/vadim/postpilot/internal/controller/http"
	"github.com/vadim/postpilot/internal/database"
	"github.com/vadim/postpilot/internal/domain/post/dao"
	"github.com/vadim/postpilot/internal/domain/post/entity"
	"github.com/vadim/postpilot/internal/domain/post/policy"
	"github.com/vadim/postpilot/internal/domain/post/scheduler"
	"github.com/vadim/postpilot/internal/domain/post/service"
	"github.com/vadim/postpilot/internal/httpx/upstream/facebook"
	"github.com/vadim/postpilot/internal/httpx/upstream/instagram"
	"github.com/vadim/postpilot/internal/publish"
	"github.com/vadim/postpilot/internal/ratelimit"
	"github.com/vadim/postpilot/internal/storage"
)

// App is the main application container
type App struct {
	cfg        config.Config
	httpServer *http.Server
	router     *chi.Mux
	logger     *slog.Logger

	pg *pgxpool.Pool

	postService *service.Service
	processor   *policy.Processor
	gate        *ratelimit.Gate
	media       *storage.S3Storage

	scheduler *scheduler.Scheduler
}

// NewApp creates and initializes the application
func NewApp(ctx context.Context, cfg config.Config) (*App, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.Timeout(30 * time.Second))

	app := &App{
		cfg:    cfg,
		router: r,
		logger: logger,
	}

	if err := app.initInfrastructure(ctx); err != nil {
		return nil, fmt.Errorf("initializing infrastructure: %w", err)
	}

	if err := app.initDomains(ctx); err != nil {
		return nil, fmt.Errorf("initializing domains: %w", err)
	}

	app.registerRoutes()

	app.httpServer = &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      app.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	if cfg.Queue.Enabled {
		app.scheduler = scheduler.New(app.processor, cfg.Queue.Interval, logger)
	}

	return app, nil
}

// initInfrastructure initializes infrastructure components
func (a *App) initInfrastructure(ctx context.Context) error {
	pool, err := database.NewPostgresPool(ctx, a.cfg.Database.PostgresDSN, database.PoolSettings{
		MaxConns: a.cfg.Database.MaxConns,
		MinConns: a.cfg.Database.MinConns,
		Lifetime: a.cfg.Database.Lifetime,
	})
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	a.pg = pool

	media, err := storage.NewS3Storage(storage.S3Config{
		Endpoint:        a.cfg.S3.Endpoint,
		AccessKeyID:     a.cfg.S3.AccessKeyID,
		SecretAccessKey: a.cfg.S3.SecretAccessKey,
		Bucket:          a.cfg.S3.Bucket,
		Region:          a.cfg.S3.Region,
		PublicURL:       a.cfg.S3.PublicURL,
	})
	if err != nil {
		return fmt.Errorf("initializing media storage: %w", err)
	}
	a.media = media

	a.gate = ratelimit.New(map[string]ratelimit.Config{
		string(entity.PlatformFacebook): {
			MaxRequests: a.cfg.RateLimit.FacebookMaxRequests,
			Window:      a.cfg.RateLimit.FacebookWindow,
		},
		string(entity.PlatformInstagram): {
			MaxRequests: a.cfg.RateLimit.InstagramMaxRequests,
			Window:      a.cfg.RateLimit.InstagramWindow,
		},
	})

	return nil
}

// initDomains initializes domain layers
func (a *App) initDomains(ctx context.Context) error {
	posts := dao.NewPostPostgres(a.pg)
	accounts := dao.NewAccountPostgres(a.pg)

	a.postService = service.New(posts, accounts)

	fbClient := facebook.New(
		facebook.WithBaseURL(a.cfg.Facebook.BaseURL),
		facebook.WithAPIVersion(a.cfg.Facebook.APIVersion),
	)
	igClient := instagram.New(
		instagram.WithBaseURL(a.cfg.Instagram.BaseURL),
		instagram.WithAPIVersion(a.cfg.Instagram.APIVersion),
	)

	publishers := publish.NewRegistry()
	publishers.Register(entity.PlatformFacebook, publish.NewFacebookPublisher(fbClient, a.gate))
	publishers.Register(entity.PlatformInstagram, publish.NewInstagramPublisher(igClient, a.gate))

	a.processor = policy.NewProcessor(
		posts,
		publishers,
		service.NewRetryPolicy(),
		a.logger,
		policy.WithBatchSize(a.cfg.Queue.BatchSize),
		policy.WithStaleAfter(a.cfg.Queue.StaleAfter),
	)

	return nil
}

// registerRoutes registers all HTTP routes
func (a *App) registerRoutes() {
	a.router.Get("/healthz", a.healthHandler)
	a.router.Get("/readyz", a.readyHandler)

	a.router.Route("/api/v1", func(r chi.Router) {
		postHandler := httpcontroller.NewPostHandler(a.postService)
		postHandler.RegisterRoutes(r)

		queueHandler := httpcontroller.NewQueueHandler(a.postService, a.processor, a.gate)
		queueHandler.RegisterRoutes(r)

		mediaHandler := httpcontroller.NewMediaHandler(&mediaUploaderAdapter{a.media})
		mediaHandler.RegisterRoutes(r)
	})
}

// healthHandler handles health check requests
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// readyHandler handles readiness check requests
func (a *App) readyHandler(w http.ResponseWriter, r *http.Request) {
	if err := a.pg.Ping(r.Context()); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"database unavailable"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

// Run starts the application and blocks until shutdown signal
func (a *App) Run(ctx context.Context) error {
	if a.scheduler != nil {
		a.scheduler.Start(ctx)
	}

	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server", "addr", a.cfg.Server.Address())
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		a.logger.Info("context cancelled")
	}

	return a.Shutdown(context.Background())
}

// Shutdown gracefully shuts down the application. The scheduler stops
// first so an in-flight pass can finish; due posts stay in the database
// and resume on next start.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down...")

	if a.scheduler != nil {
		a.scheduler.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down HTTP server: %w", err)
	}

	if a.pg != nil {
		a.pg.Close()
	}

	a.logger.Info("shutdown complete")
	return nil
}

// mediaUploaderAdapter adapts storage.S3Storage to the controller's
// MediaUploader interface
type mediaUploaderAdapter struct {
	storage *storage.S3Storage
}

func (a *mediaUploaderAdapter) Upload(ctx context.Context, in httpcontroller.MediaUploadInput) (*httpcontroller.MediaUploadOutput, error) {
	out, err := a.storage.Upload(ctx, storage.UploadInput{
		Reader:      in.Reader,
		ContentType: in.ContentType,
		Size:        in.Size,
		Filename:    in.Filename,
	})
	if err != nil {
		return nil, err
	}
	return &httpcontroller.MediaUploadOutput{
		URL:  out.URL,
		Key:  out.Key,
		Size: out.Size,
	}, nil
}
