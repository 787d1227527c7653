//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloo-solutions/docinsight/internal/api/handlers"
	"github.com/cloo-solutions/docinsight/internal/cache"
	"github.com/cloo-solutions/docinsight/internal/chunking"
	"github.com/cloo-solutions/docinsight/internal/jobs"
	"github.com/cloo-solutions/docinsight/internal/openai"
	"github.com/cloo-solutions/docinsight/internal/repository"
	"github.com/cloo-solutions/docinsight/internal/server"
	"github.com/cloo-solutions/docinsight/internal/service"
	"github.com/cloo-solutions/docinsight/internal/storage"
	"github.com/cloo-solutions/docinsight/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
)

const embeddingDimensions = 1536

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T          *testing.T
	Ctx        context.Context
	Pool       *pgxpool.Pool
	S3Client   *storage.S3Client
	Cache      *cache.Manager
	Worker     *jobs.IndexingWorker
	Model      *FakeModel
	ServerURL  string
	HTTPClient *http.Client
	closers    []func()
}

// SetupE2EEnv starts Postgres, DynamoDB Local and RustFS, wires the real
// services against them plus a fake model server, and serves the router.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	dynamoC := testutil.NewDynamoDBContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)

	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	s3Cfg, err := storage.LoadAWSConfig(ctx, storage.AWSConfig{
		Region:          "us-east-1",
		AccessKeyID:     testutil.RustFSAccessKey,
		SecretAccessKey: testutil.RustFSSecretKey,
	})
	if err != nil {
		t.Fatalf("failed to load S3 config: %v", err)
	}
	s3Client := storage.NewS3Client(s3Cfg, storage.S3ClientConfig{
		Endpoint:     s3C.Endpoint(),
		Bucket:       "e2e-documents",
		UsePathStyle: true,
	})
	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	dynamoCfg, err := storage.LoadAWSConfig(ctx, storage.AWSConfig{
		Region:          "us-east-1",
		AccessKeyID:     "local",
		SecretAccessKey: "local",
	})
	if err != nil {
		t.Fatalf("failed to load DynamoDB config: %v", err)
	}
	store := storage.NewDynamoDBStore(storage.NewDynamoDBClient(dynamoCfg, dynamoC.Endpoint()), "e2e-insights")
	if err := store.EnsureTable(ctx); err != nil {
		t.Fatalf("failed to create cache table: %v", err)
	}

	model := NewFakeModel()
	modelSrv := httptest.NewServer(model)

	client := openai.NewClientWithConfig(openai.Config{
		APIKey:    "test",
		BaseURL:   modelSrv.URL + "/v1",
		ChatModel: "fake-chat",
	})

	insightCache := cache.NewManager(store, cache.Config{TTL: time.Hour})
	chunkRepo := repository.NewChunkRepository(pool)
	jobRepo := repository.NewIndexingJobRepository(pool)

	documents := service.NewDocumentService(s3Client, jobRepo, chunkRepo, client, insightCache,
		service.DocumentServiceConfig{
			Chunking:      chunking.Config{MaxUnitsPerChunk: 50, OverlapUnits: 10, CharsPerUnit: 4},
			PagesPerBatch: 10,
		})
	insights := service.NewInsightService(insightCache, client, chunkRepo, service.NewInsightGenerator(client), 3)

	router := server.NewRouter(server.RouterConfig{
		HealthHandler: handlers.NewHealthHandler(map[string]handlers.HealthCheck{
			"postgres": pool.Ping,
			"dynamodb": store.Ping,
			"s3":       s3Client.Ping,
		}),
		ChunkHandler:    handlers.NewChunkHandler(documents),
		DocumentHandler: handlers.NewDocumentHandler(documents),
		InsightHandler:  handlers.NewInsightHandler(insights),
	})
	apiSrv := httptest.NewServer(router)

	return &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		Pool:       pool,
		S3Client:   s3Client,
		Cache:      insightCache,
		Worker:     jobs.NewIndexingWorker(jobRepo, documents),
		Model:      model,
		ServerURL:  apiSrv.URL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		closers:    []func(){modelSrv.Close, apiSrv.Close, pool.Close},
	}
}

// Cleanup releases all resources. Containers are terminated by t.Cleanup.
func (e *E2ETestEnv) Cleanup() {
	for _, c := range e.closers {
		c()
	}
}

// APIResponse is the response envelope.
type APIResponse struct {
	Status int             `json:"-"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path string) (*APIResponse, error) {
	return e.doRequest(http.MethodGet, path, nil)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}) (*APIResponse, error) {
	return e.doRequest(http.MethodPost, path, body)
}

// Delete performs a DELETE request
func (e *E2ETestEnv) Delete(path string) (*APIResponse, error) {
	return e.doRequest(http.MethodDelete, path, nil)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}) (*APIResponse, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(e.Ctx, method, e.ServerURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, err
	}
	apiResp.Status = resp.StatusCode

	if resp.StatusCode >= 400 {
		return &apiResp, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}

	return &apiResp, nil
}

// UploadFile uploads a file to the presigned URL
func (e *E2ETestEnv) UploadFile(uploadURL string, content []byte, contentType string) error {
	req, err := http.NewRequestWithContext(e.Ctx, http.MethodPut, uploadURL, bytes.NewReader(content))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, body)
	}

	return nil
}

// UploadAndIndex uploads content as filename, queues it and runs the
// indexing worker once. It returns the document and job ids.
func (e *E2ETestEnv) UploadAndIndex(filename string, content []byte) (string, string) {
	e.T.Helper()

	resp, err := e.Post("/documents/uploads", map[string]string{
		"filename":     filename,
		"content_type": "text/plain",
	})
	if err != nil {
		e.T.Fatalf("failed to init upload: %v", err)
	}
	var upload struct {
		DocumentID string `json:"document_id"`
		StorageKey string `json:"storage_key"`
		UploadURL  string `json:"upload_url"`
	}
	if err := json.Unmarshal(resp.Data, &upload); err != nil {
		e.T.Fatalf("failed to parse upload response: %v", err)
	}

	if err := e.UploadFile(upload.UploadURL, content, "text/plain"); err != nil {
		e.T.Fatalf("failed to upload document: %v", err)
	}

	resp, err = e.Post("/documents/"+upload.DocumentID+"/process", map[string]string{
		"storage_key": upload.StorageKey,
	})
	if err != nil {
		e.T.Fatalf("failed to queue document: %v", err)
	}
	var queued struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal(resp.Data, &queued); err != nil {
		e.T.Fatalf("failed to parse process response: %v", err)
	}

	if err := e.Worker.ProcessJobs(e.Ctx); err != nil {
		e.T.Fatalf("failed to process jobs: %v", err)
	}

	return upload.DocumentID, queued.JobID
}

// FakeModel serves the two OpenAI endpoints the client calls. Embeddings are
// deterministic per text; chat completions return Reply.
type FakeModel struct {
	Reply           string
	embeddingCalls  atomic.Int64
	completionCalls atomic.Int64
}

func NewFakeModel() *FakeModel {
	return &FakeModel{
		Reply: `Here you go: {"summary":"Quarterly invoice summary","keyPoints":["total is 1200 EUR"],` +
			`"entities":[{"name":"ACME","type":"organization","context":"issuer"}],` +
			`"answer":"The total is 1200 EUR","confidence":0.9,"metadata":{"currency":"EUR"}}`,
	}
}

func (m *FakeModel) CompletionCalls() int64 {
	return m.completionCalls.Load()
}

func (m *FakeModel) EmbeddingCalls() int64 {
	return m.embeddingCalls.Load()
}

func (m *FakeModel) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasSuffix(r.URL.Path, "/embeddings"):
		m.embeddingCalls.Add(1)
		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data := make([]map[string]any, len(req.Input))
		for i, text := range req.Input {
			data[i] = map[string]any{
				"object":    "embedding",
				"index":     i,
				"embedding": fakeEmbedding(text),
			}
		}
		writeJSON(w, map[string]any{"object": "list", "model": "fake-embedding", "data": data})

	case strings.HasSuffix(r.URL.Path, "/chat/completions"):
		m.completionCalls.Add(1)
		writeJSON(w, map[string]any{
			"id":      "chatcmpl-e2e",
			"object":  "chat.completion",
			"created": time.Now().Unix(),
			"model":   "fake-chat",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": m.Reply},
			}},
		})

	default:
		http.NotFound(w, r)
	}
}

// fakeEmbedding spreads a small baseline over every dimension and puts a
// spike at a position derived from the text.
func fakeEmbedding(text string) []float32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	v := make([]float32, embeddingDimensions)
	for i := range v {
		v[i] = 0.01
	}
	v[h.Sum32()%embeddingDimensions] = 1
	return v
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
