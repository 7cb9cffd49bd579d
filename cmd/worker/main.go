package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gorm.io/driver/clickhouse"
	"gorm.io/gorm"

	"github.com/navid-fn/pulse/configs"
	"github.com/navid-fn/pulse/internal/activities"
	"github.com/navid-fn/pulse/internal/handler"
	"github.com/navid-fn/pulse/internal/inference"
	"github.com/navid-fn/pulse/internal/notifier"
	"github.com/navid-fn/pulse/internal/repository"
	"github.com/navid-fn/pulse/internal/router"
	"github.com/navid-fn/pulse/internal/service"
	"github.com/navid-fn/pulse/internal/storage"
	"github.com/navid-fn/pulse/internal/workflow"
	"github.com/navid-fn/pulse/internal/workflows"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	appConfig := configs.AppLoad()

	db, err := gorm.Open(clickhouse.Open(appConfig.DBDSN), &gorm.Config{})
	if err != nil {
		logger.Error("Failed to connect to DB", "error", err)
		os.Exit(1)
	}

	store, err := storage.NewClickHouseStorage(appConfig.DBDSN)
	if err != nil {
		logger.Error("Failed to open batch storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	notifyWriter := notifier.NewWriter(appConfig.KafkaNotify.Broker, appConfig.KafkaNotify.Topic, logger)
	defer notifyWriter.Close()
	auditWriter := notifier.NewWriter(appConfig.KafkaAudit.Broker, appConfig.KafkaAudit.Topic, logger)
	defer auditWriter.Close()

	inferenceClient := inference.NewClient(
		appConfig.Inference.BaseURL,
		time.Duration(appConfig.Inference.RequestTimeoutSeconds)*time.Second,
		appConfig.Inference.RequestsPerSecond,
	)

	auditRepo := repository.NewGormAuditRepository(db)

	acts := activities.New(activities.Config{
		Markets:      repository.NewGormMarketRepository(db),
		Traders:      repository.NewGormTraderRepository(db),
		Signals:      repository.NewGormSignalRepository(db),
		Leaderboards: repository.NewGormLeaderboardRepository(db),
		Audits:       auditRepo,
		Store:        store,
		Inference:    inferenceClient,
		Notifier:     notifier.NewNotifier(notifyWriter, logger),
		AuditStream:  notifier.NewAuditStream(auditWriter, logger),
		Logger:       logger,
	})

	pairs := make([]workflows.MarketPair, 0, len(appConfig.Worker.InsightPairs))
	for _, p := range appConfig.Worker.InsightPairs {
		pairs = append(pairs, workflows.MarketPair{A: p[0], B: p[1]})
	}

	worker := workflows.NewWorker(acts, workflows.Config{
		MonitorInterval: time.Duration(appConfig.Worker.MonitorIntervalSeconds) * time.Second,
		SignalTTL:       appConfig.Worker.SignalTTL,
		InsightHour:     appConfig.Worker.InsightHour,
		InsightPairs:    pairs,
	}, logger)

	runtime := workflow.NewRuntime(logger, appConfig.Worker.MaxConcurrentInstances)

	// The two long-running workflows start with the worker; everything else
	// is triggered through the API.
	if _, err := runtime.Start(workflows.WorkflowMarketMonitor, worker.MarketMonitor, workflows.MonitorInput{}); err != nil {
		logger.Error("Failed to start market monitor", "error", err)
		os.Exit(1)
	}
	if _, err := runtime.Start(workflows.WorkflowDailyInsight, worker.DailyInsight, workflows.InsightInput{}); err != nil {
		logger.Error("Failed to start daily insight", "error", err)
		os.Exit(1)
	}

	// The control API runs in the same process since the runtime is
	// in-memory.
	workflowService := service.NewWorkflowService(runtime, worker, auditRepo)
	engine := router.NewRouter(&router.Config{
		WorkflowHandler: handler.NewWorkflowHandler(workflowService),
	})
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", appConfig.ServerPort),
		Handler: engine,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("API server stopped with error", "error", err)
		}
	}()

	logger.Info("Worker started successfully", "port", appConfig.ServerPort)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("Shutting down worker...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("API server shutdown failed", "error", err)
	}
	if err := runtime.Shutdown(shutdownCtx); err != nil {
		logger.Error("Worker shutdown timed out", "error", err)
		os.Exit(1)
	}

	logger.Info("Worker shutdown complete")
}
