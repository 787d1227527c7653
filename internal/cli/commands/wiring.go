package commands

import (
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/cloo-solutions/docinsight/internal/api/handlers"
	"github.com/cloo-solutions/docinsight/internal/cache"
	"github.com/cloo-solutions/docinsight/internal/chunking"
	"github.com/cloo-solutions/docinsight/internal/config"
	"github.com/cloo-solutions/docinsight/internal/database"
	"github.com/cloo-solutions/docinsight/internal/jobs"
	"github.com/cloo-solutions/docinsight/internal/openai"
	"github.com/cloo-solutions/docinsight/internal/repository"
	"github.com/cloo-solutions/docinsight/internal/service"
	"github.com/cloo-solutions/docinsight/internal/storage"
)

// app is the set of services behind one server process.
type app struct {
	cache     *cache.Manager
	documents *service.DocumentService
	insights  *service.InsightService
	worker    *jobs.Worker
	health    map[string]handlers.HealthCheck
	closers   []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

type buildOptions struct {
	migrate bool
}

func chunkingConfig(cfg *config.Config) chunking.Config {
	return chunking.Config{
		MaxUnitsPerChunk: cfg.ChunkMaxUnits,
		OverlapUnits:     cfg.ChunkOverlapUnits,
		CharsPerUnit:     cfg.ChunkCharsPerUnit,
	}
}

func loadAWS(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return storage.LoadAWSConfig(ctx, storage.AWSConfig{
		Region:          cfg.AWSRegion,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
	})
}

// openDynamoDBStore connects to the cache table, creating it when missing.
func openDynamoDBStore(ctx context.Context, cfg *config.Config) (*storage.DynamoDBStore, error) {
	awsCfg, err := loadAWS(ctx, cfg)
	if err != nil {
		return nil, err
	}
	store := storage.NewDynamoDBStore(storage.NewDynamoDBClient(awsCfg, cfg.DynamoDBEndpoint), cfg.DynamoDBTable)
	if err := store.EnsureTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure cache table: %w", err)
	}
	return store, nil
}

// buildApp wires every configured subsystem and substitutes the NoOp
// implementations for the rest.
func buildApp(ctx context.Context, cfg *config.Config, opts buildOptions) (*app, error) {
	a := &app{health: map[string]handlers.HealthCheck{}}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	var store cache.Store
	if cfg.HasDynamoDB() {
		dynamo, err := openDynamoDBStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		log.Printf("cache: using DynamoDB table '%s'", cfg.DynamoDBTable)
		a.health["dynamodb"] = dynamo.Ping
		store = dynamo
	} else {
		log.Println("cache: DynamoDB not configured, using in-memory store")
		store = cache.NewMemoryStore()
	}
	a.cache = cache.NewManager(store, cache.Config{TTL: cfg.CacheTTL})

	var (
		docStorage    service.DocumentStorage       = NoOpDocumentStorage{}
		jobRepo       service.IndexingJobRepository = NoOpIndexingJobs{}
		chunkWriter   service.ChunkWriter           = NoOpChunkIndex{}
		chunkSearcher service.ChunkSearcher         = NoOpChunkIndex{}
		embedder      service.EmbeddingClient       = NoOpModel{}
		generator     service.Generator             = NoOpModel{}
		claimRepo     jobs.IndexingJobRepository
	)

	if cfg.HasDatabase() {
		pool, err := database.NewPool(ctx, database.Config{
			URL:      cfg.DatabaseURL,
			MaxConns: cfg.DatabaseMaxConns,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		a.health["postgres"] = pool.Ping
		log.Println("connected to database")

		if opts.migrate {
			if err := database.Migrate(cfg.DatabaseURL, database.DefaultMigrationsSource); err != nil {
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}

		chunkRepo := repository.NewChunkRepository(pool)
		indexingRepo := repository.NewIndexingJobRepository(pool)
		chunkWriter, chunkSearcher = chunkRepo, chunkRepo
		jobRepo, claimRepo = indexingRepo, indexingRepo
	} else {
		log.Println("database not configured: indexing and retrieval disabled")
	}

	if cfg.HasS3() {
		awsCfg, err := loadAWS(ctx, cfg)
		if err != nil {
			return nil, err
		}
		s3Client := storage.NewS3Client(awsCfg, storage.S3ClientConfig{
			Endpoint:     cfg.S3Endpoint,
			Bucket:       cfg.S3Bucket,
			UsePathStyle: cfg.S3Endpoint != "",
		})
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		a.health["s3"] = s3Client.Ping
		docStorage = s3Client
	} else {
		log.Println("S3 not configured: document uploads disabled")
	}

	if cfg.HasOpenAI() {
		client := openai.NewClientWithConfig(openai.Config{
			APIKey:    cfg.OpenAIAPIKey,
			BaseURL:   cfg.OpenAIBaseURL,
			ChatModel: cfg.OpenAIChatModel,
		})
		embedder = client
		generator = service.NewInsightGenerator(client)
		log.Printf("openai: chat model %s", client.ModelID())
	} else {
		log.Println("OpenAI not configured: embeddings and insight generation disabled")
	}

	a.documents = service.NewDocumentService(docStorage, jobRepo, chunkWriter, embedder, a.cache,
		service.DocumentServiceConfig{
			Chunking:      chunkingConfig(cfg),
			PagesPerBatch: cfg.PagesPerBatch,
		})
	a.insights = service.NewInsightService(a.cache, embedder, chunkSearcher, generator, cfg.RetrievalTopK)

	if claimRepo != nil && cfg.HasS3() && cfg.HasOpenAI() {
		a.worker = jobs.NewWorker("indexing", jobs.NewIndexingWorker(claimRepo, a.documents), cfg.WorkerInterval)
		a.documents.OnEnqueue(a.worker.Wake)
	} else {
		log.Println("indexing worker disabled: needs database, S3 and OpenAI")
	}

	ok = true
	return a, nil
}
