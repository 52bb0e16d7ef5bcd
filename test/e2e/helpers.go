//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docchat-ai/docchat/internal/api"
	"github.com/docchat-ai/docchat/internal/api/handlers"
	"github.com/docchat-ai/docchat/internal/domain"
	"github.com/docchat-ai/docchat/internal/jobs"
	"github.com/docchat-ai/docchat/internal/repository"
	"github.com/docchat-ai/docchat/internal/server"
	"github.com/docchat-ai/docchat/internal/service"
	"github.com/docchat-ai/docchat/internal/storage"
	"github.com/docchat-ai/docchat/internal/testutil"
)

const (
	testIndexName = "docchat_e2e"
	testDimension = 16
)

// TestEnv holds all resources for one end to end run: a pgvector
// container, a spool directory for staged uploads, the HTTP server and
// the background worker.
type TestEnv struct {
	T          *testing.T
	Ctx        context.Context
	Pool       *pgxpool.Pool
	Server     *httptest.Server
	Worker     *jobs.Worker
	HTTPClient *http.Client
	cleanup    []func()
}

// hashEmbedder produces deterministic unit vectors from text content so
// similarity search behaves consistently without a real provider.
type hashEmbedder struct{}

func (hashEmbedder) Dimensions() int { return testDimension }

func (e hashEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	sum := sha256.Sum256([]byte(strings.ToLower(text)))
	vec := make([]float32, testDimension)
	var norm float64
	for i := 0; i < testDimension; i++ {
		bits := binary.BigEndian.Uint16(sum[i*2 : i*2+2])
		vec[i] = float32(bits)/math.MaxUint16 - 0.5
		norm += float64(vec[i]) * float64(vec[i])
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec, nil
}

func (e hashEmbedder) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.GenerateEmbedding(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// textSource loads staged files as plain text documents, standing in
// for the PDF extractor so the suite does not depend on pdftotext.
type textSource struct{}

func (textSource) Load(ctx context.Context, identifier string) (*domain.Document, error) {
	data, err := os.ReadFile(identifier)
	if err != nil {
		return nil, domain.NewDocumentLoadError(identifier, err)
	}
	return &domain.Document{Source: identifier, Content: string(data)}, nil
}

// scriptedModel requests one retrieval for every user question and then
// answers with the evidence it was handed.
type scriptedModel struct{}

func (m *scriptedModel) Generate(ctx context.Context, conversation []domain.Message, tools []domain.ToolDefinition) (*domain.ModelOutput, error) {
	last := conversation[len(conversation)-1]
	if last.Role == domain.RoleTool {
		return &domain.ModelOutput{
			Kind: domain.ModelOutputFinal,
			Text: "Based on the documents: " + last.Content,
		}, nil
	}

	query, _ := json.Marshal(map[string]string{"query": last.Content})
	return &domain.ModelOutput{
		Kind: domain.ModelOutputToolCalls,
		ToolCalls: []domain.ToolCallRequest{
			{ID: "call_1", Name: service.RetrieveToolName, Arguments: string(query)},
		},
	}, nil
}

// Setup builds the full stack against a fresh pgvector container.
func Setup(t *testing.T) *TestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	spool, err := storage.NewSpoolStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create spool store: %v", err)
	}

	jobRepo := repository.NewIngestJobRepository(pool)
	indexRepo := repository.NewVectorIndexRepository(pool)

	embedder := hashEmbedder{}
	ingestionSvc := service.NewIngestionService(textSource{}, embedder, indexRepo, testIndexName,
		service.ChunkConfig{MaxChars: 200, Overlap: 40})
	retrievalSvc := service.NewRetrievalService(embedder, indexRepo, testIndexName, 2)

	agent := service.NewAgent(&scriptedModel{}, retrievalSvc, service.AgentConfig{})
	sessions := service.NewSessionManager(agent)

	processor := jobs.NewIngestWorker(jobRepo, spool, ingestionSvc, t.TempDir())
	worker := jobs.NewWorker(processor, 100*time.Millisecond)
	go worker.Start(ctx)

	router := server.NewRouter(server.RouterConfig{
		DocumentHandler: handlers.NewDocumentHandler(jobRepo, spool),
		ChatHandler:     handlers.NewChatHandler(sessions),
	})
	srv := httptest.NewServer(router)

	env := &TestEnv{
		T:          t,
		Ctx:        ctx,
		Pool:       pool,
		Server:     srv,
		Worker:     worker,
		HTTPClient: srv.Client(),
	}
	env.cleanup = append(env.cleanup, srv.Close, worker.Stop)
	return env
}

// Cleanup tears the environment down in reverse order.
func (env *TestEnv) Cleanup() {
	for i := len(env.cleanup) - 1; i >= 0; i-- {
		env.cleanup[i]()
	}
}

// UploadDocument posts content as a PDF-named multipart upload and
// returns the queued job id.
func (env *TestEnv) UploadDocument(filename, content string) string {
	env.T.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		env.T.Fatalf("failed to build multipart body: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		env.T.Fatalf("failed to write multipart body: %v", err)
	}
	if err := writer.Close(); err != nil {
		env.T.Fatalf("failed to close multipart writer: %v", err)
	}

	resp, err := env.HTTPClient.Post(env.Server.URL+"/documents", writer.FormDataContentType(), &buf)
	if err != nil {
		env.T.Fatalf("upload failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		env.T.Fatalf("upload returned %d: %s", resp.StatusCode, body)
	}

	var envelope struct {
		Data handlers.IngestJobResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		env.T.Fatalf("failed to decode upload response: %v", err)
	}
	return envelope.Data.ID
}

// JobStatus fetches the current job state.
func (env *TestEnv) JobStatus(jobID string) handlers.IngestJobResponse {
	env.T.Helper()

	resp, err := env.HTTPClient.Get(env.Server.URL + "/documents/" + jobID)
	if err != nil {
		env.T.Fatalf("status request failed: %v", err)
	}
	defer resp.Body.Close()

	var envelope struct {
		Data handlers.IngestJobResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		env.T.Fatalf("failed to decode status response: %v", err)
	}
	return envelope.Data
}

// WaitForJob polls until the job reaches a terminal status.
func (env *TestEnv) WaitForJob(jobID string, timeout time.Duration) handlers.IngestJobResponse {
	env.T.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		status := env.JobStatus(jobID)
		if status.Status == string(domain.IngestJobStatusCompleted) || status.Status == string(domain.IngestJobStatusFailed) {
			return status
		}
		time.Sleep(100 * time.Millisecond)
	}
	env.T.Fatalf("job %s did not finish within %v", jobID, timeout)
	return handlers.IngestJobResponse{}
}

// Chat sends one message and returns either the decoded response or the
// API error envelope.
func (env *TestEnv) Chat(sessionID, message string) (handlers.ChatResponse, *api.ErrorResponse) {
	env.T.Helper()

	payload, _ := json.Marshal(handlers.ChatRequest{SessionID: sessionID, Message: message})
	resp, err := env.HTTPClient.Post(env.Server.URL+"/chat", "application/json", bytes.NewReader(payload))
	if err != nil {
		env.T.Fatalf("chat request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		env.T.Fatalf("failed to read chat response: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr api.ErrorResponse
		if err := json.Unmarshal(body, &apiErr); err != nil {
			env.T.Fatalf("chat returned %d with unparseable body: %s", resp.StatusCode, body)
		}
		return handlers.ChatResponse{}, &apiErr
	}

	var envelope struct {
		Data handlers.ChatResponse `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		env.T.Fatalf("failed to decode chat response: %v", err)
	}
	return envelope.Data, nil
}
