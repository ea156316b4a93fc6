package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"paycalc/internal/domain/audit"
	"paycalc/internal/domain/auth"
	"paycalc/internal/domain/holiday"
	"paycalc/internal/domain/payroll"
	"paycalc/internal/platform/config"
	"paycalc/internal/platform/db"
	"paycalc/internal/platform/email"
	"paycalc/internal/platform/jobs"
	"paycalc/internal/platform/logging"
	"paycalc/internal/platform/metrics"
	"paycalc/internal/transport/http/api"
	audithandler "paycalc/internal/transport/http/handlers/audit"
	authhandler "paycalc/internal/transport/http/handlers/auth"
	holidayhandler "paycalc/internal/transport/http/handlers/holiday"
	payrollhandler "paycalc/internal/transport/http/handlers/payroll"
	"paycalc/internal/transport/http/middleware"
)

const rateLimitWindow = time.Minute

type App struct {
	Config   config.Config
	Logger   *zap.Logger
	DB       *pgxpool.Pool
	Calendar *holiday.Calendar
	Jobs     *jobs.Service
	Metrics  *metrics.Collector
	Router   http.Handler
}

// New wires the application. Without DATABASE_URL every store is kept in
// memory and the holiday calendar is read only.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	base, err := loadHolidays(cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(),
	}

	var (
		payslips     payroll.StoreAPI
		auditLog     audit.Log
		idempotency  middleware.IdempotencyKeys
		holidayStore holiday.StoreAPI
		userStore    auth.StoreAPI
	)

	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		app.DB = pool
		if cfg.RunMigrations {
			if err := db.Migrate(ctx, pool, cfg.MigrationsDir, logger); err != nil {
				pool.Close()
				return nil, fmt.Errorf("migrations: %w", err)
			}
		}
		if cfg.RunSeed {
			if err := db.Seed(ctx, pool, cfg, base); err != nil {
				pool.Close()
				return nil, fmt.Errorf("seed: %w", err)
			}
		}
		payslips = payroll.NewStore(pool)
		auditLog = audit.New(pool)
		idempotency = middleware.NewIdempotencyStore(pool)
		holidayStore = holiday.NewStore(pool)
		userStore = auth.NewStore(pool)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory stores")
		payslips = payroll.NewMemoryStore()
		auditLog = audit.NewMemoryLog()
		idempotency = middleware.NewMemoryIdempotencyStore()
	}

	app.Calendar = holiday.NewCalendar(base, holidayStore, logger.Named("holidays"))
	if err := app.Calendar.Reload(ctx); err != nil {
		logger.Warn("holiday reload failed, using bundled table", zap.Error(err))
	}

	app.Jobs = jobs.New(logger.Named("jobs"), app.Metrics)
	if app.Calendar.Writable() {
		app.Jobs.Every(jobs.JobHolidayReload, cfg.HolidayRefreshInterval, func(ctx context.Context) error {
			err := app.Calendar.Reload(ctx)
			app.Metrics.RecordHolidayReload(err != nil)
			return err
		})
	}

	perms := auth.StaticPermissions{}
	mailer := email.New(cfg, logger.Named("email"))
	payrollService := payroll.NewService(payslips, app.Calendar, mailer, logger.Named("payroll"))
	authService := auth.NewService(userStore, cfg.JWTSecret, logger.Named("auth"))

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger, app.Metrics))
	router.Use(chimw.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	router.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID", middleware.IdempotencyHeader},
		ExposedHeaders:   []string{"X-Request-ID", "X-Total-Count", "Idempotent-Replay"},
		AllowCredentials: true,
	}).Handler)
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.RateLimit(cfg.RateLimitPerMinute, rateLimitWindow))
	router.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, rateLimitWindow))
	router.Use(middleware.Auth(cfg.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Get("/readyz", app.handleReady)
	if cfg.MetricsEnabled {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, app.Metrics.Snapshot(), middleware.GetRequestID(r.Context()))
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		authhandler.NewHandler(authService).RegisterRoutes(r)
		payrollhandler.NewHandler(payrollService, perms, app.Jobs, auditLog, idempotency, app.Metrics).RegisterRoutes(r)
		holidayhandler.NewHandler(app.Calendar, perms, auditLog, app.Metrics).RegisterRoutes(r)
		audithandler.NewHandler(auditLog, perms).RegisterRoutes(r)
	})

	app.Router = router
	return app, nil
}

func loadHolidays(cfg config.Config) (*holiday.Table, error) {
	if cfg.HolidaysFile == "" {
		return holiday.Default()
	}
	table, err := holiday.LoadFile(cfg.HolidaysFile)
	if err != nil {
		return nil, fmt.Errorf("load holidays file: %w", err)
	}
	return table, nil
}

func (a *App) handleReady(w http.ResponseWriter, r *http.Request) {
	if a.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.DB.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}

// Serve runs the HTTP server and background jobs until ctx is cancelled,
// then drains both within the configured shutdown timeout.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	a.Jobs.Start(gctx)

	g.Go(func() error {
		a.Logger.Info("paycalc server listening", zap.String("addr", a.Config.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.ShutdownTimeout)
		defer cancel()
		a.Logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	a.Jobs.Wait()
	return err
}

// Run loads configuration from the environment and serves until ctx ends.
func Run(ctx context.Context) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFile)
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	app, err := New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", zap.Error(err))
		return err
	}
	defer app.Close()

	return app.Serve(ctx)
}
