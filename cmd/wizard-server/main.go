// cmd/wizard-server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"admissions-wizard/internal/admissions/api"
	"admissions-wizard/internal/catalog"
	"admissions-wizard/internal/common/aws"
	"admissions-wizard/internal/common/camunda"
	"admissions-wizard/internal/common/config"
	"admissions-wizard/internal/common/database"
	"admissions-wizard/internal/common/logger"
	"admissions-wizard/internal/common/observability"
	"admissions-wizard/internal/common/startup"
	"admissions-wizard/internal/common/validation"
	"admissions-wizard/internal/draftstore"
	"admissions-wizard/internal/notify"
	"admissions-wizard/internal/server"
	"admissions-wizard/internal/wizard"

	"github.com/spf13/afero"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting wizard server...",
		zap.String("environment", cfg.App.Environment),
		zap.String("draftBackend", cfg.Drafts.Backend),
	)

	obs := observability.New("wizard-server")
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	readiness := map[string]server.ReadinessCheck{}

	// --- Redis: draft store and programme cache ---
	var redis *database.RedisClient
	if cfg.Database.Redis.Address != "" {
		err = startup.RetryWithBackoff(ctx, "Redis connection", 10, 2*time.Second, log, func() error {
			var err error
			redis, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redis.Ping(ctx)
		})
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redis.Close()
		readiness["redis"] = redis.Ping
		zapLog.Info("Redis connected successfully")
	}

	// --- PostgreSQL: draft store ---
	var pg *database.PostgresClient
	if cfg.Drafts.Backend == config.DraftBackendPostgres {
		err = startup.RetryWithBackoff(ctx, "PostgreSQL connection", 15, 2*time.Second, log, func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		})
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		readiness["postgres"] = pg.Ping
		zapLog.Info("PostgreSQL connected successfully")
	}

	// --- Draft store ---
	clients := draftstore.Clients{Fs: afero.NewOsFs()}
	if redis != nil {
		clients.Redis = redis.Client
	}
	if pg != nil {
		clients.Postgres = pg.DB
	}
	drafts, err := draftstore.New(cfg.Drafts, clients)
	if err != nil {
		zapLog.Fatal("draft store init failed", zap.Error(err))
	}
	if store, ok := drafts.Backend().(*draftstore.Postgres); ok {
		if err := store.EnsureSchema(ctx); err != nil {
			zapLog.Fatal("draft table migration failed", zap.Error(err))
		}
	}

	// --- Admissions backend ---
	admissions := api.NewClient(cfg.Admissions, log)

	// --- Programme catalogue ---
	var source catalog.Source = admissions
	if cfg.Catalog.CacheEnabled && redis != nil {
		source = catalog.NewCached(admissions, redis.Client, time.Duration(cfg.Catalog.CacheTTL)*time.Second, log)
		zapLog.Info("Programme cache enabled", zap.Int("ttlSeconds", cfg.Catalog.CacheTTL))
	}
	var searcher catalog.Searcher
	if cfg.Database.Elasticsearch.Enabled() {
		var es *database.ElasticsearchClient
		err = startup.RetryWithBackoff(ctx, "Elasticsearch connection", 15, 2*time.Second, log, func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return es.Ping(ctx)
		})
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		readiness["elasticsearch"] = es.Ping
		searcher = catalog.NewSearch(es.Client, cfg.Catalog.SearchIndex, cfg.Catalog.SearchSize)
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Submission listeners ---
	var listeners []wizard.SubmissionListener
	var zeebe *camunda.Client
	if cfg.Camunda.Enabled {
		err = startup.RetryWithBackoff(ctx, "Zeebe client initialization", 10, 2*time.Second, log, func() error {
			var err error
			zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
				GatewayAddress:         cfg.Camunda.BrokerAddress,
				UsePlaintextConnection: true,
				RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
			})
			return err
		})
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		readiness["zeebe"] = zeebe.HealthCheck
		listeners = append(listeners, camunda.NewProcessStarter(zeebe, cfg.Camunda.ProcessID, log))
		zapLog.Info("Zeebe client connected successfully", zap.String("processId", cfg.Camunda.ProcessID))
	} else if cfg.Notifications.Enabled() {
		confirmation, err := newConfirmation(ctx, cfg, obs, log)
		if err != nil {
			zapLog.Fatal("notification clients failed", zap.Error(err))
		}
		listeners = append(listeners, confirmation)
		zapLog.Info("Sending confirmations in process")
	}

	srv := server.New(server.Dependencies{
		Drafts:           drafts,
		Uploader:         admissions,
		Payments:         admissions,
		Submitter:        admissions,
		PayloadValidator: validation.NewApplicationSchema(),
		Listeners:        listeners,
		Catalog:          catalog.New(source, searcher),
		Readiness:        readiness,
		Logger:           log,
	}, server.Settings{
		Institutions:            cfg.Wizard.Institutions,
		ApplicationFee:          cfg.Wizard.ApplicationFee,
		RequirePaymentReference: cfg.Wizard.RequirePaymentReference,
		MaxUploadBytes:          cfg.Server.MaxUploadBytes,
		SessionIdleTTL:          time.Duration(cfg.Server.SessionIdleTTL) * time.Second,
		RequestTimeout:          config.GetDuration(cfg.Admissions.Timeout) + 5*time.Second,
	})

	if cfg.Server.SessionIdleTTL > 0 {
		go srv.Registry().Run(ctx, time.Minute)
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: config.GetDuration(cfg.Server.ReadHeaderTimeout),
	}

	go func() {
		zapLog.Info("Wizard server listening", zap.String("address", cfg.Server.Address))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Wizard server failed", zap.Error(err))
			stop()
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	zapLog.Info("Shutdown signal received, draining requests...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}
	srv.Registry().CloseAll()

	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}

	zapLog.Info("Wizard server stopped gracefully")
}

func newConfirmation(ctx context.Context, cfg *config.Config, obs *observability.Observability, log logger.Logger) (*notify.Confirmation, error) {
	sesClient, snsClient, err := aws.NewConfirmationClients(ctx, aws.Options{
		Region:   cfg.Notifications.AWS.Region,
		Endpoint: cfg.Notifications.AWS.Endpoint,
	})
	if err != nil {
		return nil, err
	}
	return notify.NewConfirmation(notify.Config{
		EmailEnabled: cfg.Notifications.Email.Enabled,
		SMSEnabled:   cfg.Notifications.SMS.Enabled,
		FromEmail:    cfg.Notifications.Email.FromEmail,
		SenderID:     cfg.Notifications.SMS.SenderID,
	}, sesClient, snsClient, obs, log), nil
}
