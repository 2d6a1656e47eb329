// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"admissions-wizard/internal/common/aws"
	"admissions-wizard/internal/common/camunda"
	"admissions-wizard/internal/common/config"
	"admissions-wizard/internal/common/database"
	"admissions-wizard/internal/common/logger"
	"admissions-wizard/internal/common/observability"
	"admissions-wizard/internal/common/startup"
	"admissions-wizard/internal/notify"
	"admissions-wizard/pkg/registry"

	ra "admissions-wizard/internal/workers/admissions/record-application"
	sc "admissions-wizard/internal/workers/admissions/send-confirmation"
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

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...")

	obs := observability.New("worker-manager")
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Init Zeebe Client with retry ---
	var zeebe *camunda.Client
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
	zeebeClient := zeebe.GetClient()
	zapLog.Info("Zeebe client connected successfully")

	// --- Init AWS notification clients ---
	sesClient, snsClient, err := aws.NewConfirmationClients(ctx, aws.Options{
		Region:   cfg.Notifications.AWS.Region,
		Endpoint: cfg.Notifications.AWS.Endpoint,
	})
	if err != nil {
		zapLog.Fatal("failed to create AWS notification clients", zap.Error(err))
	}

	confirmation := notify.NewConfirmation(notify.Config{
		EmailEnabled: cfg.Notifications.Email.Enabled,
		SMSEnabled:   cfg.Notifications.SMS.Enabled,
		FromEmail:    cfg.Notifications.Email.FromEmail,
		SenderID:     cfg.Notifications.SMS.SenderID,
	}, sesClient, snsClient, obs, log)

	// --- Register Workers ---
	var workers []worker.JobWorker
	activities := &registry.ActivityRegistry{Version: "1", LastUpdated: time.Now().UTC().Format(time.RFC3339)}

	wcfg := config.GetWorkerConfig(cfg, "send-confirmation")
	handler := sc.NewHandler(sc.LoadConfig(), confirmation, obs, log)
	w := camunda.StartWorker(zeebeClient, sc.TaskType, wcfg, handler, log)
	if w != nil {
		workers = append(workers, w)
	}
	activities.Activities = append(activities.Activities, registry.Activity{
		ID:          "send-confirmation",
		DisplayName: "Send application confirmation",
		Description: "Emails and texts the applicant their application reference",
		Category:    "notification",
		TaskType:    sc.TaskType,
		InputSchema: "confirmation_input",
		ErrorCodes:  []string{"SCHEMA_VIOLATION", "NOTIFICATION_SEND_FAILED"},
		Timeout:     config.GetDuration(wcfg.Timeout).String(),
		Retries:     wcfg.MaxRetries,
		Enabled:     w != nil,
	})

	if config.IsWorkerEnabled(cfg, "record-application") && cfg.Database.Postgres.Host != "" {
		var pg *database.PostgresClient
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
		if err := ra.EnsureTables(ctx, pg.DB); err != nil {
			zapLog.Fatal("admission table migration failed", zap.Error(err))
		}

		wcfg := config.GetWorkerConfig(cfg, "record-application")
		recordHandler := ra.NewHandler(ra.LoadConfig(), pg.DB, obs, log)
		w := camunda.StartWorker(zeebeClient, ra.TaskType, wcfg, recordHandler, log)
		if w != nil {
			workers = append(workers, w)
		}
		activities.Activities = append(activities.Activities, registry.Activity{
			ID:          "record-application",
			DisplayName: "Record admission application",
			Description: "Writes the submitted application into the review database",
			Category:    "persistence",
			TaskType:    ra.TaskType,
			InputSchema: "record_input",
			ErrorCodes:  []string{"SCHEMA_VIOLATION", "APPLICATION_RECORD_FAILED"},
			Timeout:     config.GetDuration(wcfg.Timeout).String(),
			Retries:     wcfg.MaxRetries,
			Enabled:     w != nil,
		})
	}
	if err := activities.Validate(); err != nil {
		zapLog.Fatal("invalid activity registry", zap.Error(err))
	}

	zapLog.Info("Workers registered", zap.Int("active", len(workers)))

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status, code := "ready", http.StatusOK
		if err := zeebe.HealthCheck(checkCtx); err != nil {
			status, code = "not ready", http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  status,
			"workers": len(workers),
			"time":    time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/activities", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(activities)
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/debug/pprof/", http.DefaultServeMux)

	metricsServer := &http.Server{
		Addr:              ":8081",
		Handler:           mux,
		ReadHeaderTimeout: config.GetDuration(cfg.Server.ReadHeaderTimeout),
	}
	go func() {
		zapLog.Info("Health/Metrics server listening on :8081")
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Close()
		w.AwaitClose()
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down metrics server", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}
