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

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/mshelf/internal/config"
	"github.com/xxxsen/mshelf/internal/filestore"
	"github.com/xxxsen/mshelf/internal/handler"
	"github.com/xxxsen/mshelf/internal/job"
	"github.com/xxxsen/mshelf/internal/metrics"
	"github.com/xxxsen/mshelf/internal/middleware"
	"github.com/xxxsen/mshelf/internal/repo"
	"github.com/xxxsen/mshelf/internal/schedule"
)

const metricsNamespace = "mshelf"

func runServer(parent context.Context, cfg *config.Config, db *sql.DB) error {
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("file_store", cfg.FileStore.Type),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	observer, err := metrics.NewPrometheusObserver(metricsNamespace, reg)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	orphans, err := metrics.NewGauge(metricsNamespace, "orphaned_file_rows",
		"File rows whose stored object was missing at the last audit.", reg)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	store, err := filestore.New(cfg.FileStore, filestore.Env{SigningKey: []byte(cfg.JWTSecret)})
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}
	store = filestore.Observed(store, observer)

	noteRepo := repo.NewNoteRepo(db)
	linkRepo := repo.NewLinkRepo(db)
	todoRepo := repo.NewTodoRepo(db)
	fileRepo := repo.NewFileRepo(db)

	deps := handler.RouterDeps{
		Notes:        handler.NewNoteHandler(noteRepo),
		Links:        handler.NewLinkHandler(linkRepo),
		Todos:        handler.NewTodoHandler(todoRepo),
		Files:        handler.NewFileHandler(fileRepo),
		Objects:      handler.NewObjectHandler(store, cfg.UploadMaxBytes, time.Duration(cfg.SignedURLMaxTTLSeconds)*time.Second),
		Metrics:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		JWTSecret:    []byte(cfg.JWTSecret),
		UploadWindow: time.Duration(max(cfg.UploadRateWindowMillis, 0)) * time.Millisecond,
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewOrphanAuditJob(fileRepo, store, orphans), cfg.OrphanAuditCron); err != nil {
		return fmt.Errorf("schedule orphan audit: %w", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	engine, err := webapi.NewEngine(
		"/api/v1",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.CORSOrigins),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", addr))

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
