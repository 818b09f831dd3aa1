// Command buildmachine runs the deploy worker: it pulls packaged
// project archives and drives the infra CLI to get them live.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"ideaforge/internal/buildmachine"
	"ideaforge/internal/config"
	"ideaforge/internal/handlers"
	"ideaforge/internal/logging"
	"ideaforge/internal/storage"
)

func main() {
	cfg := config.Load()
	logging.Init()
	defer logging.Sync()
	log := logging.L()

	if err := cfg.Validate("AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY", "AWS_BUCKET_NAME", "GENEZIO_TOKEN"); err != nil {
		log.Fatal("configuration invalid", zap.Error(err))
	}

	ctx := context.Background()

	store, err := storage.NewS3Store(ctx, storage.S3Config{
		Region:          cfg.AWSRegion,
		Bucket:          cfg.AWSBucketName,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
	})
	if err != nil {
		log.Fatal("failed to init artifact store", zap.Error(err))
	}

	runner := buildmachine.NewGenezioRunner(cfg.GenezioToken)
	core := buildmachine.NewCoreAPIClient(cfg.CoreAPIURL, &http.Client{Timeout: 30 * time.Second})
	orchestrator := buildmachine.NewOrchestrator(store, runner, core, cfg.BuildStepTimeout)

	buildHandler := handlers.NewBuildHandler(orchestrator, runner)
	healthHandler := handlers.NewHealthHandler(nil)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", healthHandler.Handle)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/genezio-login", buildHandler.Login)
	router.POST("/project-build", buildHandler.Build)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("build machine listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}
}
