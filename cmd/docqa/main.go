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
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/docuseek/docqa/internal/ai"
	"github.com/docuseek/docqa/internal/answer"
	"github.com/docuseek/docqa/internal/config"
	"github.com/docuseek/docqa/internal/db"
	"github.com/docuseek/docqa/internal/filestore"
	"github.com/docuseek/docqa/internal/handler"
	"github.com/docuseek/docqa/internal/job"
	"github.com/docuseek/docqa/internal/middleware"
	"github.com/docuseek/docqa/internal/repo"
	"github.com/docuseek/docqa/internal/schedule"
	"github.com/docuseek/docqa/internal/search"
	"github.com/docuseek/docqa/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "docqa",
		Short: "document question answering server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run docqa server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			database, err := db.Open(cfg.DB)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := db.ApplyMigrations(database); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, database)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config, database *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("file_store", cfg.FileStore.Type),
		zap.String("search_index", cfg.Search.Index),
	)

	docRepo := repo.NewDocumentRepo(database)
	answerCacheRepo := repo.NewAnswerCacheRepo(database)

	store, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}

	searchClient := search.NewClient(search.Config{
		Endpoint:   cfg.Search.Endpoint,
		APIKey:     cfg.Search.APIKey,
		Index:      cfg.Search.Index,
		Indexer:    cfg.Search.Indexer,
		APIVersion: cfg.Search.APIVersion,
	})
	retriever := search.NewRetriever(searchClient, search.RetrieverConfig{
		TopK:             cfg.QA.TopK,
		ProbePageSize:    cfg.QA.ProbePageSize,
		WildcardPageSize: cfg.QA.WildcardPageSize,
	})

	aiProvider, err := ai.NewProvider(cfg.AI.Provider, cfg.AI.Data)
	if err != nil {
		return fmt.Errorf("init ai provider: %w", err)
	}
	embeddingResolver := ai.NewEmbeddingResolver(aiProvider, cfg.AI.EmbeddingDeployment, cfg.AI.EmbeddingFallbacks...)
	synthesizer := answer.NewSynthesizer(aiProvider, answer.Config{
		Deployment:     cfg.AI.CompletionDeployment,
		Attempts:       cfg.QA.RetryAttempts,
		RetryDelay:     time.Duration(cfg.QA.RetryDelaySeconds) * time.Second,
		RequestTimeout: time.Duration(cfg.QA.RequestTimeoutSeconds) * time.Second,
	})

	documentService := service.NewDocumentService(docRepo, store, retriever, searchClient, cfg.Upload, cfg.QA)
	qaService := service.NewQAService(retriever, synthesizer, embeddingResolver, answerCacheRepo, cfg.QA)

	deps := handler.RouterDeps{
		Documents: handler.NewDocumentHandler(documentService, store),
		QA:        handler.NewQAHandler(qaService),
		RateLimit: middleware.RateLimit(time.Duration(cfg.RateLimitSeconds) * time.Second),
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.CORSOrigins),
			middleware.RequestID(),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.ReconcileCron != "" {
		scheduler := schedule.NewCronScheduler()
		if err := scheduler.AddJob(job.NewReconcileJob(documentService), cfg.ReconcileCron); err != nil {
			return fmt.Errorf("schedule reconcile job: %w", err)
		}
		if err := scheduler.AddJob(job.NewAnswerCacheCleanupJob(answerCacheRepo, 30), "0 3 * * *"); err != nil {
			return fmt.Errorf("schedule cache cleanup job: %w", err)
		}
		scheduler.Start(ctx)
		defer scheduler.Stop()
	}

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
