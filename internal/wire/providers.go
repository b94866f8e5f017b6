package wire

import (
	"context"
	"fmt"
	"strings"

	"mam-search-api/internal/application/assetsearch"
	"mam-search-api/internal/application/faceindex"
	"mam-search-api/internal/application/search"
	"mam-search-api/internal/config"
	"mam-search-api/internal/domain/repository"
	"mam-search-api/internal/infrastructure/embedding"
	"mam-search-api/internal/infrastructure/messaging"
	"mam-search-api/internal/infrastructure/persistence/milvus"
	"mam-search-api/internal/infrastructure/persistence/postgres"
	"mam-search-api/internal/infrastructure/persistence/redis"
	"mam-search-api/internal/interfaces/http/handler"
	"mam-search-api/internal/interfaces/http/middleware"
	"mam-search-api/internal/interfaces/http/router"
	"mam-search-api/pkg/logger"
)

const (
	faceBackendPgvector = "pgvector"
	faceBackendMilvus   = "milvus"
	rateLimitLocal      = "local"
)

// Worker job-worker 依赖容器
type Worker struct {
	RedisClient *redis.Client
	Indexer     *faceindex.Indexer
}

// Bootstrap 初始化命令依赖容器
type Bootstrap struct {
	TenantRepo *postgres.TenantRepository
	VectorRepo *milvus.Repository
}

// ProvidePostgresClient 提供 PostgreSQL 客户端
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideSearchRepository 提供多模态文本检索仓储
func ProvideSearchRepository(client *postgres.Client, cfg *config.Config) (*postgres.SearchRepository, error) {
	return postgres.NewSearchRepository(client, &cfg.Search)
}

// ProvideAssetRepository 提供资产检索仓储
func ProvideAssetRepository(client *postgres.Client, cfg *config.Config) (*postgres.AssetRepository, error) {
	return postgres.NewAssetRepository(client, &cfg.Search)
}

// ProvideRedisClient 提供 Redis 客户端
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideMessagingProducer 提供消息生产者
func ProvideMessagingProducer(redisClient *redis.Client, cfg *config.Config) *messaging.Producer {
	maxLen := cfg.Messaging.RedisStream.MaxLen
	if maxLen <= 0 {
		maxLen = 100000
	}
	return messaging.NewProducer(redisClient.Redis(), int64(maxLen))
}

// ProvideJobPublisher 任务发布端口
func ProvideJobPublisher(p *messaging.Producer) faceindex.JobPublisher {
	return p
}

// ProvideMilvusClient 提供 Milvus 客户端（job-worker 必需）
func ProvideMilvusClient(ctx context.Context, cfg *config.Config) (*milvus.Client, func(), error) {
	if !cfg.Vector.Milvus.Enabled {
		return nil, nil, fmt.Errorf("vector.milvus.enabled must be true for face indexing")
	}
	client, err := milvus.NewClient(ctx, &cfg.Vector.Milvus)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideMilvusRepository 提供 Milvus 仓储
func ProvideMilvusRepository(client *milvus.Client) *milvus.Repository {
	return milvus.NewRepository(client)
}

// ProvideMilvusClientOptional 未启用或不可达时返回 nil
func ProvideMilvusClientOptional(ctx context.Context, cfg *config.Config) (*milvus.Client, func(), error) {
	if !cfg.Vector.Milvus.Enabled {
		return nil, func() {}, nil
	}
	client, err := milvus.NewClient(ctx, &cfg.Vector.Milvus)
	if err != nil {
		logger.Warn(ctx, "milvus not available, vector features disabled", "error", err.Error())
		return nil, func() {}, nil
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideMilvusRepositoryOptional Milvus 仓储，客户端缺失时为 nil
func ProvideMilvusRepositoryOptional(client *milvus.Client) *milvus.Repository {
	if client == nil {
		return nil
	}
	return milvus.NewRepository(client)
}

// ProvideFaceEmbedderOptional Embedding 服务未配置时禁用人脸检索
func ProvideFaceEmbedderOptional(ctx context.Context, cfg *config.Config) search.FaceEmbedder {
	client, err := embedding.NewClient(&cfg.Embedding)
	if err != nil {
		logger.Warn(ctx, "face embedding not available, face search disabled", "error", err.Error())
		return nil
	}
	return client
}

// ProvideFaceIndex 按 search.face.backend 选择人脸索引
func ProvideFaceIndex(ctx context.Context, cfg *config.Config, pg *postgres.Client, searchRepo *postgres.SearchRepository, vectorRepo *milvus.Repository) (search.FaceIndex, error) {
	backend := strings.ToLower(cfg.Search.Face.Backend)
	switch backend {
	case "", faceBackendPgvector:
		return postgres.NewFaceIndex(pg, &cfg.Search), nil
	case faceBackendMilvus:
		if vectorRepo == nil {
			logger.Warn(ctx, "milvus face backend unavailable, falling back to pgvector")
			return postgres.NewFaceIndex(pg, &cfg.Search), nil
		}
		return milvus.NewFaceIndex(vectorRepo, searchRepo), nil
	default:
		return nil, fmt.Errorf("unknown face backend %q", cfg.Search.Face.Backend)
	}
}

// ProvideSearchService 组装多模态检索服务
func ProvideSearchService(cfg *config.Config, store *postgres.SearchRepository, embedder search.FaceEmbedder, index search.FaceIndex) (*search.Service, error) {
	limits := cfg.Search.Limits
	sources := []search.Source{
		search.NewTranscriptionSource(store, limits.Transcription),
		search.NewSceneSource(store, limits.Scene),
		search.NewKeywordSource(store, limits.Keyword),
		search.NewMetadataSource(store, limits.Metadata),
	}
	if embedder != nil {
		face, err := search.NewFaceSource(embedder, index, search.FaceSourceConfig{
			Limit:         limits.Face,
			MinSimilarity: cfg.Search.Face.MinSimilarity,
			CacheSize:     cfg.Search.Face.EmbeddingCacheSize,
			MaxImageBytes: cfg.Search.Face.MaxImageBytes,
		})
		if err != nil {
			return nil, err
		}
		sources = append(sources, face)
	}

	ranker := search.NewRanker(cfg.Search.RRF.K, cfg.Search.RRF.MultiMatchBoost)
	return search.NewService(sources, ranker, search.WithAdapterTimeout(cfg.Search.AdapterTimeout)), nil
}

// ProvideSuggestionService 关键词与人物建议
func ProvideSuggestionService(cfg *config.Config, store *postgres.SearchRepository, cache *redis.Cache) *search.SuggestionService {
	return search.NewSuggestionService(store, cache, cfg.Search.Suggestions.CacheTTL)
}

// ProvideAssetSearchHandler 资产检索处理器
func ProvideAssetSearchHandler(cfg *config.Config, svc *assetsearch.Service) *handler.AssetSearchHandler {
	return handler.NewAssetSearchHandler(svc, cfg.Search.ThumbnailBaseURL)
}

// ProvideHealthHandler postgres/redis 必需，milvus 可选
func ProvideHealthHandler(cfg *config.Config, pg *postgres.Client, redisClient *redis.Client, milvusClient *milvus.Client) *handler.HealthHandler {
	deps := []handler.Dependency{
		{Name: "postgres", Checker: pg, Required: true},
		{Name: "redis", Checker: redisClient, Required: true},
	}
	optional := handler.Dependency{Name: "milvus"}
	if milvusClient != nil {
		optional.Checker = milvusClient
	}
	deps = append(deps, optional)
	return handler.NewHealthHandler(cfg.App.Version, deps...)
}

// ProvideRouterDeps 中间件依赖，限流后端按配置选择
func ProvideRouterDeps(
	cfg *config.Config,
	limiter *redis.RateLimiter,
	tenants *postgres.TenantRepository,
	tx repository.Transactor,
	tenantCtx repository.TenantContextManager,
) router.RouterDeps {
	deps := router.RouterDeps{
		RateLimiter: limiter,
		Tenants:     tenants,
		Tx:          tx,
		TenantCtx:   tenantCtx,
	}
	if strings.EqualFold(cfg.Security.RateLimit.Backend, rateLimitLocal) {
		deps.RateLimiter = middleware.NewLocalRateLimiter(cfg.Security.RateLimit.Burst)
	}
	return deps
}

// ProvideIndexer job-worker 的人脸索引执行器
func ProvideIndexer(
	jobs repository.JobRepository,
	faces repository.FaceRepository,
	vectorRepo *milvus.Repository,
	tenantCtx repository.TenantContextManager,
	cache *redis.Cache,
) *faceindex.Indexer {
	return faceindex.NewIndexer(jobs, faces, vectorRepo, tenantCtx, faceindex.WithSuggestionInvalidator(cache))
}
