package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quadflow-labs/quadflow-go/internal/api"
	"github.com/quadflow-labs/quadflow-go/internal/execution"
	"github.com/quadflow-labs/quadflow-go/internal/execution/operation"
	"github.com/quadflow-labs/quadflow-go/internal/platform/audit"
	"github.com/quadflow-labs/quadflow-go/internal/platform/env"
	"github.com/quadflow-labs/quadflow-go/internal/platform/httpserver"
	"github.com/quadflow-labs/quadflow-go/internal/platform/objectstore"
	"github.com/quadflow-labs/quadflow-go/internal/platform/postgres"
	repopg "github.com/quadflow-labs/quadflow-go/internal/repo/postgres"
	"github.com/quadflow-labs/quadflow-go/internal/scheduler"
	connectionsvc "github.com/quadflow-labs/quadflow-go/internal/service/connections"
	datasourcesvc "github.com/quadflow-labs/quadflow-go/internal/service/datasources"
	jobsvc "github.com/quadflow-labs/quadflow-go/internal/service/jobs"
	pipelinesvc "github.com/quadflow-labs/quadflow-go/internal/service/pipelines"
	schedulesvc "github.com/quadflow-labs/quadflow-go/internal/service/schedules"
	shapesvc "github.com/quadflow-labs/quadflow-go/internal/service/shapes"
	validationsvc "github.com/quadflow-labs/quadflow-go/internal/service/validation"
)

const serviceName = "quadflowd"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx := context.Background()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := env.String("QUADFLOW_HTTP_ADDR", ":8080")
	shutdownTimeout, err := env.Duration("QUADFLOW_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}
	workers, err := env.Int("QUADFLOW_WORKERS", 4)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}
	queueCapacity, err := env.Int("QUADFLOW_QUEUE_CAPACITY", 256)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}
	cronTick, err := env.Duration("QUADFLOW_CRON_TICK", time.Minute)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}
	stepTimeout, err := env.Duration("QUADFLOW_STEP_TIMEOUT", 10*time.Minute)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}

	dbCfg, err := postgres.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid database config", "error", err)
		os.Exit(2)
	}
	db, err := postgres.Open(ctx, dbCfg)
	if err != nil {
		logger.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	schemaCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	if err := repopg.EnsureSchema(schemaCtx, db); err != nil {
		cancel()
		logger.Error("schema init failed", "error", err)
		os.Exit(1)
	}
	cancel()

	storeCfg, err := objectstore.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid object store config", "error", err)
		os.Exit(2)
	}
	storeClient, err := objectstore.NewMinIOClient(storeCfg)
	if err != nil {
		logger.Error("object store client init failed", "error", err)
		os.Exit(2)
	}
	startupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := objectstore.EnsureBuckets(startupCtx, storeClient, storeCfg); err != nil {
		cancel()
		logger.Error("object store unavailable", "error", err)
		os.Exit(1)
	}
	cancel()
	payloads := objectstore.NewStore(storeClient, storeCfg)

	pipelineStore := repopg.NewPipelineStore(db)
	jobStore := repopg.NewJobStore(db)
	scheduleStore := repopg.NewScheduleStore(db)
	shapeStore := repopg.NewShapeStore(db)
	dataSourceStore := repopg.NewDataSourceStore(db)
	connectionStore := repopg.NewConnectionStore(db)

	catalog := operation.Builtin()
	connSvc := connectionsvc.New(connectionStore)
	executor := execution.NewStepExecutor(catalog, dataSourceStore, payloads, shapeStore, connSvc)
	runner := execution.NewRunner(executor, jobStore, logger, stepTimeout)

	sched := scheduler.New(
		scheduler.Config{
			Workers:       workers,
			QueueCapacity: queueCapacity,
			CronTick:      cronTick,
		},
		jobStore,
		pipelineStore,
		scheduleStore,
		runner,
		logger,
	)
	sched.Start(ctx)

	services := api.Services{
		Pipelines:   pipelinesvc.New(pipelineStore, catalog, sched),
		Jobs:        jobsvc.New(jobStore, pipelineStore, sched),
		Schedules:   schedulesvc.New(scheduleStore, pipelineStore),
		Shapes:      shapesvc.New(shapeStore, connSvc),
		Validation:  validationsvc.New(shapeStore, connSvc),
		DataSources: datasourcesvc.New(dataSourceStore, payloads),
		Connections: connSvc,
		Audit:       audit.NewRecorder(db, logger),
	}

	handler := api.Handler(
		logger,
		serviceName,
		services,
		httpserver.ReadinessCheck{
			Name: "postgres",
			Check: func(ctx context.Context) error {
				checkCtx, cancel := context.WithTimeout(ctx, 750*time.Millisecond)
				defer cancel()
				return db.PingContext(checkCtx)
			},
		},
		httpserver.ReadinessCheck{
			Name: "objectstore",
			Check: func(ctx context.Context) error {
				checkCtx, cancel := context.WithTimeout(ctx, 750*time.Millisecond)
				defer cancel()
				return objectstore.CheckBuckets(checkCtx, storeClient, storeCfg)
			},
		},
	)

	err = httpserver.Run(ctx, logger, httpserver.Config{
		Service:         serviceName,
		Addr:            addr,
		ShutdownTimeout: shutdownTimeout,
	}, handler)
	if err != nil {
		logger.Error("http server failed", "error", err)
		sched.Wait()
		os.Exit(1)
	}

	// In-flight jobs commit their terminal status before exit.
	sched.Wait()
	logger.Info("shutdown complete", "service", serviceName)
}
