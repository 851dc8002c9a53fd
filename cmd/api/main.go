package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/bryanwahyu/verdant-vision/internal/application"
	appdiag "github.com/bryanwahyu/verdant-vision/internal/application/diagnosis"
	"github.com/bryanwahyu/verdant-vision/internal/config"
	"github.com/bryanwahyu/verdant-vision/internal/domain/detection"
	domain "github.com/bryanwahyu/verdant-vision/internal/domain/diagnosis"
	"github.com/bryanwahyu/verdant-vision/internal/infra/ai/gemini"
	"github.com/bryanwahyu/verdant-vision/internal/infra/ai/openai"
	firestorep "github.com/bryanwahyu/verdant-vision/internal/infra/db/firestore"
	"github.com/bryanwahyu/verdant-vision/internal/infra/db/memory"
	mysqlp "github.com/bryanwahyu/verdant-vision/internal/infra/db/mysql"
	postgresp "github.com/bryanwahyu/verdant-vision/internal/infra/db/postgres"
	"github.com/bryanwahyu/verdant-vision/internal/infra/httpserver"
	photostore "github.com/bryanwahyu/verdant-vision/internal/infra/storage"
	"github.com/bryanwahyu/verdant-vision/internal/logging"
	"github.com/bryanwahyu/verdant-vision/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()
	checkers := map[string]middleware.HealthChecker{}

	// init detector
	detector, err := newDetector(ctx, cfg)
	if err != nil {
		logger.Fatal("detector init error", zap.Error(err))
	}

	// init history repo
	repo, closeRepo, err := newRepository(ctx, cfg, checkers)
	if err != nil {
		logger.Fatal("history init error", zap.Error(err), zap.String("backend", cfg.History.Backend))
	}
	defer closeRepo()

	metrics := middleware.NewMetrics()

	// init service
	svc := &appdiag.Service{
		Detector:   detector,
		Repo:       repo,
		Clock:      application.SystemClock{},
		Sleeper:    application.SystemSleeper{},
		Logger:     logger.Named("diagnosis"),
		Metrics:    metrics,
		MaxRetries: cfg.Detection.MaxRetries,
		RetryDelay: cfg.Detection.RetryDelay,
	}

	// init photo store (optional)
	if cfg.Minio.Enabled {
		store, err := photostore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
			cfg.Minio.PresignTTL,
		)
		if err != nil {
			logger.Fatal("minio init error", zap.Error(err))
		}
		svc.Images = store
		checkers["minio"] = middleware.PingChecker{Target: store}
	}
	if cfg.GCS.Enabled {
		store, err := photostore.NewGCS(ctx, cfg.GCS.BucketName)
		if err != nil {
			logger.Fatal("gcs init error", zap.Error(err))
		}
		defer store.Close()
		svc.Images = store
		checkers["gcs"] = middleware.PingChecker{Target: store}
	}

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimit.PerSecond, cfg.Server.RateLimit.Burst)
	defer limiter.Stop()

	// init router
	handler := httpserver.NewRouter(svc, httpserver.Options{
		Logger:         logger.Named("http"),
		Metrics:        metrics,
		RateLimiter:    limiter,
		APIKeys:        cfg.Server.APIKeys,
		CORSOrigins:    cfg.Server.CORSOrigins,
		HealthCheckers: checkers,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute, // beberapa panggilan model + backoff
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		logger.Info("server listening",
			zap.String("addr", addr),
			zap.String("provider", cfg.Detection.Provider),
			zap.String("history", cfg.History.Backend),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}

func newDetector(ctx context.Context, cfg *config.Config) (detection.Detector, error) {
	switch cfg.Detection.Provider {
	case "openai":
		oc := goopenai.DefaultConfig(cfg.Detection.APIKey)
		if cfg.Detection.BaseURL != "" {
			oc.BaseURL = cfg.Detection.BaseURL
		}
		return openai.NewClientWithConfig(oc, cfg.Detection.Model), nil
	case "gemini":
		return gemini.NewClient(ctx, gemini.Config{
			APIKey:   cfg.Detection.APIKey,
			Project:  cfg.Detection.Project,
			Location: cfg.Detection.Location,
			Model:    cfg.Detection.Model,
			BaseURL:  cfg.Detection.BaseURL,
		})
	default:
		return nil, fmt.Errorf("unknown detection provider %q", cfg.Detection.Provider)
	}
}

// newRepository picks the history backend and registers its health check
func newRepository(ctx context.Context, cfg *config.Config, checkers map[string]middleware.HealthChecker) (domain.Repository, func(), error) {
	noop := func() {}
	switch cfg.History.Backend {
	case "memory":
		return memory.NewDiagnosisRepository(), noop, nil

	case "mysql":
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN(), mysqlp.Pool{})
		if err != nil {
			return nil, noop, err
		}
		repo := mysqlp.NewDiagnosisRepository(db)
		if cfg.History.Migrate {
			if err := repo.Migrate(ctx); err != nil {
				db.Close()
				return nil, noop, err
			}
		}
		checkers["mysql"] = middleware.PingChecker{Target: repo}
		return repo, closeDB(db), nil

	case "postgres":
		db, err := postgresp.Connect(ctx, cfg.PostgresDSN(), 0)
		if err != nil {
			return nil, noop, err
		}
		repo := postgresp.NewDiagnosisRepository(db)
		if cfg.History.Migrate {
			if err := repo.Migrate(ctx); err != nil {
				db.Close()
				return nil, noop, err
			}
		}
		checkers["postgres"] = middleware.PingChecker{Target: repo}
		return repo, closeDB(db), nil

	case "firestore":
		repo, err := firestorep.New(ctx, cfg.Firestore.ProjectID, cfg.Firestore.DatabaseID, cfg.Firestore.Collection)
		if err != nil {
			return nil, noop, err
		}
		checkers["firestore"] = middleware.PingChecker{Target: repo}
		return repo, func() { repo.Close() }, nil

	default:
		return nil, noop, fmt.Errorf("unknown history backend %q", cfg.History.Backend)
	}
}

func closeDB(db *sql.DB) func() {
	return func() { db.Close() }
}
