package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/spf13/cobra"

	"github.com/primedata-ai/aird/engine/catalog"
	"github.com/primedata-ai/aird/engine/domain"
	"github.com/primedata-ai/aird/engine/embedding"
	"github.com/primedata-ai/aird/engine/objectstore"
	"github.com/primedata-ai/aird/engine/pipeline"
	"github.com/primedata-ai/aird/engine/playbook"
	"github.com/primedata-ai/aird/engine/registry"
	"github.com/primedata-ai/aird/engine/tracker"
	"github.com/primedata-ai/aird/engine/vectorstore"
	"github.com/primedata-ai/aird/pkg/metrics"
)

// Config holds all environment-based configuration.
type Config struct {
	StorageBackend string // "local" or "s3"
	LocalRoot      string
	Bucket         string
	S3Region       string
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
	S3PathStyle    bool

	CatalogPath string
	QdrantURL   string
	Neo4jURL    string
	Neo4jUser   string
	Neo4jPass   string
	NATSURL     string

	PlaybookDir     string
	DefaultPlaybook string
	EmbeddingAPIKey string

	ScoreThreshold      float64
	MinTrustScore       float64
	MinSecure           float64
	MinMetadataPresence float64
	MinKBReady          float64
	EnableDeduplication bool
	EnableValidation    bool
	EnablePDFReports    bool

	MetricsPort int
}

func loadConfig() Config {
	return Config{
		StorageBackend: envOr("AIRD_STORAGE_BACKEND", "local"),
		LocalRoot:      envOr("AIRD_LOCAL_ROOT", "/tmp/aird-data"),
		Bucket:         envOr("AIRD_BUCKET", "aird"),
		S3Region:       envOr("AIRD_S3_REGION", ""),
		S3Endpoint:     envOr("AIRD_S3_ENDPOINT", ""),
		S3AccessKey:    envOr("AIRD_S3_ACCESS_KEY", ""),
		S3SecretKey:    envOr("AIRD_S3_SECRET_KEY", ""),
		S3PathStyle:    envOrBool("AIRD_S3_PATH_STYLE", true),

		CatalogPath: envOr("AIRD_CATALOG_PATH", "/tmp/aird-data/catalog.db"),
		QdrantURL:   envOr("AIRD_QDRANT_URL", "localhost:6334"),
		Neo4jURL:    envOr("AIRD_NEO4J_URL", ""),
		Neo4jUser:   envOr("AIRD_NEO4J_USER", "neo4j"),
		Neo4jPass:   envOr("AIRD_NEO4J_PASS", "password"),
		NATSURL:     envOr("AIRD_NATS_URL", ""),

		PlaybookDir:     envOr("AIRD_PLAYBOOK_DIR", ""),
		DefaultPlaybook: envOr("AIRD_DEFAULT_PLAYBOOK", domain.PlaybookTech),
		EmbeddingAPIKey: envOr("AIRD_EMBEDDING_API_KEY", ""),

		ScoreThreshold:      envOrFloat("AIRD_SCORE_THRESHOLD", 50),
		MinTrustScore:       envOrFloat("AIRD_MIN_TRUST_SCORE", 50),
		MinSecure:           envOrFloat("AIRD_MIN_SECURE", 90),
		MinMetadataPresence: envOrFloat("AIRD_MIN_METADATA_PRESENCE", 80),
		MinKBReady:          envOrFloat("AIRD_MIN_KB_READY", 50),
		EnableDeduplication: envOrBool("AIRD_ENABLE_DEDUPLICATION", false),
		EnableValidation:    envOrBool("AIRD_ENABLE_VALIDATION", true),
		EnablePDFReports:    envOrBool("AIRD_ENABLE_PDF_REPORTS", true),

		MetricsPort: envOrInt("AIRD_METRICS_PORT", 9090),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOrFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envOrBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func (c Config) thresholds() domain.PolicyThresholds {
	return domain.PolicyThresholds{
		MinTrustScore:       c.MinTrustScore,
		MinSecure:           c.MinSecure,
		MinMetadataPresence: c.MinMetadataPresence,
		MinKBReady:          c.MinKBReady,
	}
}

// envKeySource resolves embedding API keys. Workspace-level settings
// belong to the out-of-scope workspace service; the process environment
// is the only source here.
type envKeySource struct {
	apiKey string
}

func (s envKeySource) WorkspaceAPIKey(_, _ string) (string, bool) { return "", false }

func (s envKeySource) ProcessAPIKey(_ string) (string, bool) {
	return s.apiKey, s.apiKey != ""
}

// runtime bundles every constructor-injected collaborator a command
// needs, replacing the source's module-level singletons.
type runtime struct {
	cfg     Config
	logger  *slog.Logger
	store   objectstore.Store
	catalog *catalog.Catalog
	vectors *vectorstore.Store
	runner  *pipeline.Runner
	metrics *metrics.Registry
	nats    *nats.Conn

	closers []func()
}

func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}

func buildRuntime(ctx context.Context, cfg Config, logger *slog.Logger) (*runtime, error) {
	rt := &runtime{cfg: cfg, logger: logger, metrics: metrics.New()}

	switch cfg.StorageBackend {
	case "local":
		store, err := objectstore.NewLocalStore(cfg.LocalRoot)
		if err != nil {
			return nil, err
		}
		rt.store = store
	case "s3":
		store, err := objectstore.NewS3Store(ctx, objectstore.S3Config{
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			UsePathStyle:    cfg.S3PathStyle,
		})
		if err != nil {
			return nil, err
		}
		rt.store = store
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedSource, cfg.StorageBackend)
	}

	cat, err := catalog.Open(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}
	rt.catalog = cat
	rt.closers = append(rt.closers, func() { _ = cat.Close() })

	vectors, err := vectorstore.New(cfg.QdrantURL)
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}
	rt.vectors = vectors
	rt.closers = append(rt.closers, func() { _ = vectors.Close() })

	var registrar pipeline.ArtifactRegistrar
	if cfg.Neo4jURL != "" {
		driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURL, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPass, ""))
		if err != nil {
			return nil, fmt.Errorf("neo4j driver: %w", err)
		}
		rt.closers = append(rt.closers, func() { _ = driver.Close(context.Background()) })
		registrar = registry.New(driver)
	} else {
		logger.Warn("no AIRD_NEO4J_URL set; artifact registry disabled")
	}

	var publisher tracker.Publisher
	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL, nats.Timeout(10*time.Second))
		if err != nil {
			return nil, fmt.Errorf("nats connect: %w", err)
		}
		rt.nats = nc
		rt.closers = append(rt.closers, nc.Close)
		publisher = &tracker.NATSPublisher{Conn: nc}
	}

	models := embedding.NewRegistry(envKeySource{apiKey: cfg.EmbeddingAPIKey}, embedding.DefaultModels()...)
	playbooks := playbook.NewRouter(cfg.PlaybookDir)

	rt.runner = pipeline.NewRunner(logger, rt.store, cat, registrar, vectors, models, playbooks, publisher, pipeline.Config{
		Bucket:              cfg.Bucket,
		Thresholds:          cfg.thresholds(),
		ScoreThreshold:      cfg.ScoreThreshold,
		EnableDeduplication: cfg.EnableDeduplication,
		EnableValidation:    cfg.EnableValidation,
		EnablePDFReports:    cfg.EnablePDFReports,
	})
	return rt, nil
}

func newRootCmd(logger *slog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:           "aird",
		Short:         "AI-Ready Dataset pipeline worker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newIngestCmd(logger),
		newRunCmd(logger),
		newPromoteCmd(logger),
		newQueryCmd(logger),
		newServeCmd(logger),
	)
	return root
}
