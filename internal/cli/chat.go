package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/docchat-ai/docchat/internal/config"
	"github.com/docchat-ai/docchat/internal/database"
	"github.com/docchat-ai/docchat/internal/openai"
	"github.com/docchat-ai/docchat/internal/repository"
	"github.com/docchat-ai/docchat/internal/service"
)

// ChatCmd returns the chat command
func ChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat with your documents",
		Long:  "Start an interactive conversation that answers questions from the indexed documents. Type 'exit' or 'quit' to leave.",
		RunE:  runChat,
	}
}

func runChat(cmd *cobra.Command, args []string) error {
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
	chatModel := openai.NewChatModel(openai.ChatConfig{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.ChatModel,
	})

	indexRepo := repository.NewVectorIndexRepository(pool)
	retrievalSvc := service.NewRetrievalService(embeddingClient, indexRepo, cfg.IndexName, cfg.RetrieveTopK)
	agent := service.NewAgent(chatModel, retrievalSvc, service.AgentConfig{MaxToolRounds: cfg.MaxToolRounds})
	sessions := service.NewSessionManager(agent)
	sessionID := uuid.NewString()

	fmt.Println("docchat ready. Ask about your documents; type 'exit' or 'quit' to leave.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		answer, err := sessions.Send(ctx, sessionID, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		fmt.Println(answer)
	}

	return scanner.Err()
}
