// Command server runs the generation API: the staged LLM pipeline,
// project records, and archive materialization.
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

	"ideaforge/internal/agents"
	"ideaforge/internal/ai"
	"ideaforge/internal/cache"
	"ideaforge/internal/config"
	"ideaforge/internal/db"
	"ideaforge/internal/handlers"
	"ideaforge/internal/logging"
	"ideaforge/internal/namegen"
	"ideaforge/internal/project"
	"ideaforge/internal/repository"
	"ideaforge/internal/storage"
)

func main() {
	cfg := config.Load()
	logging.Init()
	defer logging.Sync()
	log := logging.L()

	if err := cfg.Validate("AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY", "AWS_BUCKET_NAME"); err != nil {
		log.Fatal("configuration invalid", zap.Error(err))
	}

	ctx := context.Background()

	database, err := db.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}
	defer database.Close()

	presignCache, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer presignCache.Close()

	store, err := storage.NewS3Store(ctx, storage.S3Config{
		Region:          cfg.AWSRegion,
		Bucket:          cfg.AWSBucketName,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
	})
	if err != nil {
		log.Fatal("failed to init artifact store", zap.Error(err))
	}

	pool := ai.NewClientPool(ai.PoolConfig{
		OpenAIKey:    cfg.OpenAIKey,
		AnthropicKey: cfg.AnthropicKey,
		GeminiKey:    cfg.GeminiKey,
		Timeout:      cfg.LLMTimeout,
	})
	asker := agents.NewAsker(pool)

	registry := agents.NewRegistry()
	registry.Register(agents.NewPromptEnhancer(asker))
	registry.Register(agents.NewRequirementsBuilder(asker))
	registry.Register(agents.NewProjectGenerator(asker))

	repo := repository.NewProjectRepository(database.DB, store, presignCache)
	materializer := project.NewMaterializer(store)

	chatHandler := handlers.NewChatHandler(registry, repo, materializer)
	projectHandler := handlers.NewProjectHandler(repo, namegen.New())
	healthHandler := handlers.NewHealthHandler(database)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", healthHandler.Handle)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	{
		v1.POST("/chat", chatHandler.Handle)
		v1.POST("/project", projectHandler.Create)
		v1.GET("/project/:id", projectHandler.Get)
		v1.GET("/projects", projectHandler.List)
		v1.DELETE("/project/:id", projectHandler.Delete)
		v1.PUT("/project/update/:id/deployment-url", projectHandler.UpdateDeployment)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.Port))
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
