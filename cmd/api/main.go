package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"menudocs/docs"
	"menudocs/internal/config"
	"menudocs/internal/database"
	"menudocs/internal/database/migration"
	handlers "menudocs/internal/http/handler"
	"menudocs/internal/http/middleware"
	"menudocs/internal/logger"
	"menudocs/internal/otel"
	"menudocs/internal/repository/postgres"
	"menudocs/internal/service"
	"menudocs/internal/storage"
)

// @title Menu Documents API
// @version 1.0
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	log := logger.NewWithSentry(os.Stdout,
		logger.Options{Level: logger.ParseLevel(cfg.Log.Level), Location: cfg.Log.Location()},
		logger.SentryConfig{DSN: cfg.Log.SentryDSN, Environment: cfg.Log.SentryEnvironment},
		middleware.RequestIDExtractor,
		logger.TraceIDExtractor,
	)
	slog.SetDefault(log)
	defer sentry.Flush(2 * time.Second)

	if err := run(cfg, log); err != nil {
		log.Error("server_exited", logger.Err(err))
		sentry.Flush(2 * time.Second)
		os.Exit(1)
	}
}

func run(cfg *config.AppConfig, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, log)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Error("tracing_shutdown_failed", logger.Err(err))
		}
	}()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := migration.EnsureMigrated(ctx, db, log, cfg.Database.Host); err != nil {
			return err
		}
	}

	var blobs storage.Storage
	if cfg.Blob.Backend == config.BlobBackendMinIO {
		if blobs, err = storage.NewMinIO(ctx, cfg.MinIO); err != nil {
			return err
		}
	}
	log.Info("blob_backend_selected", slog.String("backend", cfg.Blob.Backend))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := database.RegisterPoolMetrics(reg, db, cfg.Database.Name); err != nil {
		return err
	}
	metrics, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return err
	}

	svc := service.NewLibraryService(
		postgres.NewDocumentPostgres(db),
		postgres.NewFolderPostgres(db),
		blobs,
		log,
	)

	app := fiber.New(fiber.Config{
		ErrorHandler:          handlers.ErrorHandler(log),
		BodyLimit:             cfg.HTTP.MaxUploadBytes,
		DisableStartupMessage: true,
	})

	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(otelfiber.Middleware())
	app.Use(middleware.RequestID())
	app.Use(middleware.Timeout(cfg.HTTP.RequestTimeout()))
	app.Use(middleware.Logger(log))
	app.Use(metrics.Handler())
	app.Use(cors.New(cors.Config{AllowOrigins: cfg.HTTP.CORSAllowOrigins}))

	handlers.RegisterRoutes(app, db, svc, log)
	handlers.RegisterMetrics(app, reg)

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info("server_listening", slog.String("addr", addr))
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("server_shutting_down")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout())
	defer cancel()
	if err := app.ShutdownWithContext(sctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
