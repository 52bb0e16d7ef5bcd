package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/docchat-ai/docchat/internal/api/handlers"
	"github.com/docchat-ai/docchat/internal/config"
	"github.com/docchat-ai/docchat/internal/database"
	"github.com/docchat-ai/docchat/internal/jobs"
	"github.com/docchat-ai/docchat/internal/openai"
	"github.com/docchat-ai/docchat/internal/pdf"
	"github.com/docchat-ai/docchat/internal/repository"
	"github.com/docchat-ai/docchat/internal/server"
	"github.com/docchat-ai/docchat/internal/service"
	"github.com/docchat-ai/docchat/internal/storage"
	"github.com/docchat-ai/docchat/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the docchat API server and the background ingestion worker",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

// resolvePort prefers an explicitly set --port flag over the configured
// port, even when the flag value equals the flag default.
func resolvePort(cmd *cobra.Command, configured string) string {
	if cmd.Flags().Changed("port") {
		port, _ := cmd.Flags().GetString("port")
		return port
	}
	return configured
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.HasDatabase() {
		return fmt.Errorf("DOCCHAT_DATABASE_URL is required")
	}
	if !cfg.HasOpenAI() {
		return fmt.Errorf("DOCCHAT_OPENAI_API_KEY is required")
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	cfg.Port = resolvePort(cmd, cfg.Port)

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := database.Migrate(cfg.DatabaseURL, "file://"+cfg.MigrationsDir); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	jobRepo := repository.NewIngestJobRepository(pool)
	indexRepo := repository.NewVectorIndexRepository(pool)

	var blobStore storage.BlobStore
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		blobStore = s3Client
	} else {
		spool, err := storage.NewSpoolStore(cfg.SpoolDir)
		if err != nil {
			return fmt.Errorf("failed to create spool store: %w", err)
		}
		log.Printf("staging uploads in %s", cfg.SpoolDir)
		blobStore = spool
	}

	embeddingClient := openai.NewClientWithConfig(openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		BaseURL:             cfg.OpenAIBaseURL,
		EmbeddingModel:      cfg.EmbeddingModel,
		EmbeddingDimensions: cfg.EmbeddingDimension,
	})
	chatModel := openai.NewChatModel(openai.ChatConfig{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.ChatModel,
	})

	chunkCfg := service.ChunkConfig{MaxChars: cfg.ChunkSize, Overlap: cfg.ChunkOverlap}
	ingestionSvc := service.NewIngestionService(pdf.New(), embeddingClient, indexRepo, cfg.IndexName, chunkCfg)
	retrievalSvc := service.NewRetrievalService(embeddingClient, indexRepo, cfg.IndexName, cfg.RetrieveTopK)
	agent := service.NewAgent(chatModel, retrievalSvc, service.AgentConfig{MaxToolRounds: cfg.MaxToolRounds})
	sessions := service.NewSessionManager(agent)

	ingestProcessor := jobs.NewIngestWorker(jobRepo, blobStore, ingestionSvc, "")
	ingestWorker := jobs.NewWorker(ingestProcessor, 5*time.Second)
	go ingestWorker.Start(ctx)

	routerCfg := server.RouterConfig{
		DocumentHandler: handlers.NewDocumentHandler(jobRepo, blobStore),
		ChatHandler:     handlers.NewChatHandler(sessions),
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.NewRouter(routerCfg),
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	ingestWorker.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}
