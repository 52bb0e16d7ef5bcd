package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docchat-ai/docchat/internal/config"
	"github.com/docchat-ai/docchat/internal/database"
	"github.com/docchat-ai/docchat/internal/openai"
	"github.com/docchat-ai/docchat/internal/pdf"
	"github.com/docchat-ai/docchat/internal/repository"
	"github.com/docchat-ai/docchat/internal/service"
)

// IngestCmd returns the ingest command
func IngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file.pdf> [file.pdf...]",
		Short: "Ingest PDF documents into the vector index",
		Long:  "Load each PDF, split it into chunks, embed the chunks and write them to the vector index",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runIngest,
	}
}

func runIngest(cmd *cobra.Command, args []string) error {
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

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	embeddingClient := openai.NewClientWithConfig(openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		BaseURL:             cfg.OpenAIBaseURL,
		EmbeddingModel:      cfg.EmbeddingModel,
		EmbeddingDimensions: cfg.EmbeddingDimension,
	})

	indexRepo := repository.NewVectorIndexRepository(pool)
	chunkCfg := service.ChunkConfig{MaxChars: cfg.ChunkSize, Overlap: cfg.ChunkOverlap}
	ingestionSvc := service.NewIngestionService(pdf.New(), embeddingClient, indexRepo, cfg.IndexName, chunkCfg)

	for _, path := range args {
		report, err := ingestionSvc.Ingest(ctx, path)
		if err != nil {
			return fmt.Errorf("failed to ingest %s: %w", path, err)
		}
		fmt.Printf("ingested %s: %d chunks\n", report.Source, report.ChunkCount)
	}

	return nil
}
