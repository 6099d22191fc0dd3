package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/viant/afsc/gs"
	_ "github.com/viant/afsc/s3"
	_ "modernc.org/sqlite"

	"github.com/viant/docrag/db/sqliteutil"
	"github.com/viant/docrag/embeddings"
	"github.com/viant/docrag/embeddings/batch"
	"github.com/viant/docrag/embeddings/ollama"
	"github.com/viant/docrag/embeddings/openai"
	"github.com/viant/docrag/embeddings/simple"
	"github.com/viant/docrag/embeddings/vertexai"
	"github.com/viant/docrag/indexer/fs"
	"github.com/viant/docrag/llm"
	llmanthropic "github.com/viant/docrag/llm/anthropic"
	llmollama "github.com/viant/docrag/llm/ollama"
	llmopenai "github.com/viant/docrag/llm/openai"
	"github.com/viant/docrag/matching/option"
	"github.com/viant/docrag/service"
	"github.com/viant/docrag/vectordb"
	"github.com/viant/docrag/vectordb/mem"
	"github.com/viant/docrag/vectordb/sqlitevec"
	"github.com/viant/docrag/vectordb/sqlstore"
)

// newService builds the process-wide service from configuration.
func newService(ctx context.Context, cfg *service.Config) (*service.Service, error) {
	emb, err := selectEmbedder(cfg.Embedder)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}
	gen, err := selectGenerator(cfg.Generator)
	if err != nil {
		return nil, fmt.Errorf("generator: %w", err)
	}
	index, err := openIndex(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	svc, err := service.New(
		service.WithIndex(index),
		service.WithEmbedder(emb),
		service.WithBatchOptions(batchOptions(cfg.Embedder)...),
		service.WithGenerator(gen),
		service.WithLoader(newLoader(cfg.Corpus)),
		service.WithChunking(cfg.Chunking.Length, cfg.Chunking.Overlap),
		service.WithTopK(cfg.Retrieval.TopK),
		service.WithEmbeddingModel(cfg.Embedder.Tag()),
		service.WithLogf(log.Printf),
	)
	if err != nil {
		if closer, ok := index.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
		return nil, err
	}
	return svc, nil
}

func newLoader(corpus service.CorpusConfig) *fs.Loader {
	matchOpts := option.Corpus(corpus.Include, corpus.Exclude, corpus.MaxSizeBytes)
	return fs.NewLoader(corpus.Root, fs.WithMatchOptions(matchOpts...), fs.WithLogf(log.Printf))
}

func selectEmbedder(cfg service.EmbedderConfig) (embeddings.Embedder, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Name)) {
	case "simple":
		dim := cfg.Dimension
		if dim <= 0 {
			dim = 64
		}
		return simple.New(dim), nil
	case "ollama":
		return &ollama.Embedder{C: ollama.NewClient(cfg.Model, ollama.WithBaseURL(cfg.BaseURL))}, nil
	case "vertexai":
		if strings.TrimSpace(cfg.Project) == "" {
			return nil, fmt.Errorf("vertexai: project is required (embedder.project or VERTEXAI_PROJECT_ID)")
		}
		var opts []vertexai.ClientOption
		if cfg.Location != "" {
			opts = append(opts, vertexai.WithLocation(cfg.Location))
		}
		if len(cfg.Scopes) > 0 {
			opts = append(opts, vertexai.WithScopes(cfg.Scopes...))
		}
		if cfg.Dimension > 0 {
			opts = append(opts, vertexai.WithDimensions(cfg.Dimension))
		}
		return vertexai.NewEmbedder(cfg.Project, cfg.Model, opts...), nil
	case "", "openai":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, fmt.Errorf("openai: api key is required (embedder.apiKey or OPENAI_API_KEY)")
		}
		var opts []openai.ClientOption
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		if cfg.Dimension > 0 {
			opts = append(opts, openai.WithDimensions(cfg.Dimension))
		}
		return &openai.Embedder{C: openai.NewClient(cfg.APIKey, cfg.Model, opts...)}, nil
	default:
		return nil, fmt.Errorf("unsupported embedder %q", cfg.Name)
	}
}

func batchOptions(cfg service.EmbedderConfig) []batch.Option {
	var opts []batch.Option
	if cfg.BatchSize > 0 {
		opts = append(opts, batch.WithBatchSize(cfg.BatchSize))
	}
	if cfg.Dimension > 0 {
		opts = append(opts, batch.WithDimension(cfg.Dimension))
	}
	if cfg.Concurrency > 0 {
		opts = append(opts, batch.WithConcurrency(cfg.Concurrency))
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Concurrency
		if burst <= 0 {
			burst = 1
		}
		opts = append(opts, batch.WithRateLimit(cfg.RateLimit, burst))
	}
	if cfg.Normalize != nil {
		opts = append(opts, batch.WithNormalize(*cfg.Normalize))
	}
	return opts
}

// selectGenerator returns nil for name "none"; every answer is then the fallback sentence.
func selectGenerator(cfg service.GeneratorConfig) (llm.Generator, error) {
	llmCfg := llm.Config{
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.BaseURL,
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
		Timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Name)) {
	case "none":
		return nil, nil
	case "", "openai":
		return llmopenai.New(llmCfg)
	case "anthropic":
		return llmanthropic.New(llmCfg)
	case "ollama":
		return llmollama.New(llmCfg)
	default:
		return nil, fmt.Errorf("unsupported generator %q", cfg.Name)
	}
}

func openIndex(ctx context.Context, cfg service.StoreConfig) (vectordb.Index, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "sqlitevec":
		if strings.TrimSpace(cfg.DSN) == "" {
			return nil, fmt.Errorf("sqlitevec: store.dsn is required")
		}
		return sqlitevec.NewStore(
			sqlitevec.WithDSN(cfg.DSN),
			sqlitevec.WithDataset(cfg.Dataset),
			sqlitevec.WithPragmas(sqliteutil.DefaultPragmas),
			sqlitevec.WithLogf(log.Printf),
		)
	case "sqlite", "mysql", "postgres":
		dsn := cfg.DSN
		if driver == "sqlite" {
			dsn = sqliteutil.DefaultPragmas.Apply(dsn)
		}
		return sqlstore.Open(ctx, driver, dsn, sqlstore.WithDataset(cfg.Dataset))
	case "memory":
		var opts []mem.Option
		if cfg.Snapshot != "" {
			opts = append(opts, mem.WithSnapshot(cfg.Snapshot))
		}
		return mem.New(append(opts, mem.WithLogf(log.Printf))...)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}
