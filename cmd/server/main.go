package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"jobchat/internal/config"
	"jobchat/internal/handler"
	"jobchat/internal/repository"
	"jobchat/internal/service"
	"jobchat/internal/session"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := cfg.Logging.BuildLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("jobchat search assistant starting",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit))

	gin.SetMode(cfg.Server.GinMode)

	ctx := context.Background()

	// Search backend
	var (
		searcher  service.Searcher
		turnLog   service.TurnLogger
		embedding handler.EmbeddingUpdater
	)
	switch cfg.Search.Backend {
	case "memory":
		logger.Warn("using in-memory search backend; collections start empty")
		searcher = repository.NewMemorySearcher()
	default:
		repo, err := repository.NewPostgresRepository(
			cfg.GetPostgreSQLDSN(),
			cfg.PostgreSQL.MaxConnections,
			cfg.PostgreSQL.MaxIdleConnections,
		)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer repo.Close()
		logger.Info("connected to PostgreSQL")
		searcher = repo
		turnLog = repo
		embedding = repo
	}

	// Session store
	var sessions session.Store
	sweeper := cron.New()
	switch cfg.Chat.SessionBackend {
	case "redis":
		client, err := session.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer client.Close()
		logger.Info("connected to Redis session store")
		sessions = session.NewRedisStore(client, cfg.Chat.HistoryLimit,
			time.Duration(cfg.Chat.SessionTTLMinutes)*time.Minute)
	default:
		store := session.NewMemoryStore(cfg.Chat.HistoryLimit)
		sessions = store

		maxIdle := time.Duration(cfg.Chat.SessionTTLMinutes) * time.Minute
		if _, err := sweeper.AddFunc(cfg.Chat.SweepSchedule, func() {
			if n := store.EvictIdle(maxIdle); n > 0 {
				logger.Info("evicted idle sessions", zap.Int("count", n))
			}
		}); err != nil {
			logger.Fatal("invalid session sweep schedule",
				zap.String("schedule", cfg.Chat.SweepSchedule),
				zap.Error(err))
		}
		sweeper.Start()
		defer sweeper.Stop()
	}

	// Language model collaborator
	aiClient := service.NewOpenAIClient(&cfg.OpenAI, logger)
	if cfg.OpenAI.Enabled {
		logger.Info("OpenAI client initialized",
			zap.String("api_base", cfg.OpenAI.APIBase),
			zap.String("chat_model", cfg.OpenAI.ChatModel),
			zap.String("embedding_model", cfg.OpenAI.EmbeddingModel))
	} else {
		logger.Warn("OpenAI is disabled - set OPENAI_API_KEY to enable intent classification")
	}

	// Core services
	classifier := service.NewClassifier(aiClient,
		time.Duration(cfg.OpenAI.Timeout)*time.Second, logger)
	dispatcher := service.NewDispatcher(searcher,
		cfg.Search.DefaultPageSize, cfg.Search.MaxPageSize)
	chatService := service.NewChatService(classifier, dispatcher, aiClient,
		sessions, turnLog, cfg.Chat.ConfidenceThreshold, logger)

	// Handlers and routes
	chatHandler := handler.NewChatHandler(chatService)
	embeddingHandler := handler.NewEmbeddingHandler(embedding)

	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Server.AllowedOrigins}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "jobchat-search-assistant",
			"version": Version,
		})
	})
	router.GET("/version", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/chat", chatHandler.HandleTurn)
		apiV1.GET("/sessions/:id/history", chatHandler.History)
		apiV1.POST("/embeddings/batch", embeddingHandler.BatchUpdate)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: router}

	go func() {
		logger.Info("server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}
