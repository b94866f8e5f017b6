// Package config 提供配置加载功能
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// Load 加载配置文件
// 按优先级加载：默认配置 -> 环境配置 -> 环境变量
func Load() (*Config, error) {
	dir := os.Getenv("CONFIG_DIR")
	if dir == "" {
		dir = "configs"
	}
	return LoadFrom(dir)
}

// LoadFrom 从指定目录加载配置
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// 1. 加载默认配置
	if err := loadConfigFile(v, filepath.Join(dir, "config.yaml"), false); err != nil {
		return nil, err
	}

	// 2. 加载环境特定配置
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	envFile := filepath.Join(dir, fmt.Sprintf("config.%s.yaml", env))
	if err := loadConfigFile(v, envFile, true); err != nil {
		return nil, err
	}

	// 3. 绑定环境变量 (直接覆盖)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 设置默认值 (兜底)
	setDefaults(v)

	// 解析配置
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// loadConfigFile 读取文件，执行环境变量替换，并加载到 viper
func loadConfigFile(v *viper.Viper, path string, optional bool) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// 执行环境变量替换
	expanded := expandEnv(string(content))

	// 加载到 viper
	reader := strings.NewReader(expanded)
	if v.ConfigFileUsed() == "" {
		if err := v.ReadConfig(reader); err != nil {
			return fmt.Errorf("failed to read processed config %s: %w", path, err)
		}
		// 手动标记已加载文件，防止后续 ReadInConfig 报错
		v.SetConfigFile(path)
	} else {
		if err := v.MergeConfig(reader); err != nil {
			return fmt.Errorf("failed to merge processed config %s: %w", path, err)
		}
	}

	return nil
}

// expandEnv 替换字符串中的 ${VAR:default} 占位符
func expandEnv(s string) string {
	// g1: 变量名, g2: 默认值部分（含冒号）, g3: 默认值内容
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		submatch := envPattern.FindStringSubmatch(match)
		key := submatch[1]
		hasDefault := submatch[2] != ""
		defVal := submatch[3]

		val, ok := os.LookupEnv(key)
		if ok {
			return val
		}
		if hasDefault {
			return defVal
		}
		// 未定义且无默认值时保留原样，便于排查
		return match
	})
}

// envPattern 匹配 ${VAR} 或 ${VAR:default}
var envPattern = regexp.MustCompile(`\${(\w+)(:([^}]*))?}`)

// MustLoad 加载配置，失败时 panic
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// setDefaults 设置配置默认值
func setDefaults(v *viper.Viper) {
	// 应用默认值
	v.SetDefault("app.name", "mam-search-api")
	v.SetDefault("app.version", "v0.0.0")
	v.SetDefault("app.env", "development")

	// HTTP 服务器默认值
	v.SetDefault("server.http.host", "0.0.0.0")
	v.SetDefault("server.http.port", 8080)
	v.SetDefault("server.http.read_timeout", "30s")
	v.SetDefault("server.http.write_timeout", "60s")
	v.SetDefault("server.http.idle_timeout", "120s")
	v.SetDefault("server.http.shutdown_timeout", "30s")
	v.SetDefault("server.http.max_body_bytes", 16<<20)

	// 数据库默认值
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.database", "akashi_mam")
	v.SetDefault("database.postgres.ssl_mode", "disable")
	v.SetDefault("database.postgres.max_open_conns", 50)
	v.SetDefault("database.postgres.max_idle_conns", 10)
	v.SetDefault("database.postgres.conn_max_lifetime", "30m")
	v.SetDefault("database.postgres.conn_max_idle_time", "5m")
	v.SetDefault("database.postgres.slow_threshold", "500ms")

	// Redis 默认值
	v.SetDefault("cache.redis.host", "localhost")
	v.SetDefault("cache.redis.port", 6379)
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.pool_size", 100)
	v.SetDefault("cache.redis.min_idle_conns", 10)
	v.SetDefault("cache.redis.dial_timeout", "5s")
	v.SetDefault("cache.redis.read_timeout", "3s")
	v.SetDefault("cache.redis.write_timeout", "3s")
	v.SetDefault("cache.redis.key_prefix", "mam")

	// Milvus 默认值
	v.SetDefault("vector.milvus.enabled", false)
	v.SetDefault("vector.milvus.host", "localhost")
	v.SetDefault("vector.milvus.port", 19530)
	v.SetDefault("vector.milvus.collection_prefix", "mam")
	v.SetDefault("vector.milvus.dimension", 512)
	v.SetDefault("vector.milvus.metric_type", "COSINE")
	v.SetDefault("vector.milvus.hnsw_m", 16)
	v.SetDefault("vector.milvus.hnsw_ef_construction", 200)
	v.SetDefault("vector.milvus.search_ef", 128)

	// 人脸 Embedding 服务默认值（InsightFace buffalo_l，512 维）
	v.SetDefault("embedding.endpoint", "http://localhost:8001")
	v.SetDefault("embedding.model", "buffalo_l")
	v.SetDefault("embedding.dimension", 512)
	v.SetDefault("embedding.timeout", "30s")
	v.SetDefault("embedding.min_confidence", 0.5)

	// 多模态检索默认值
	v.SetDefault("search.text_search_config", "portuguese")
	v.SetDefault("search.adapter_timeout", "0s")
	v.SetDefault("search.rrf.k", 60)
	v.SetDefault("search.rrf.multi_match_boost", 0.2)
	v.SetDefault("search.limits.transcription", 100)
	v.SetDefault("search.limits.scene", 100)
	v.SetDefault("search.limits.keyword", 50)
	v.SetDefault("search.limits.metadata", 100)
	v.SetDefault("search.limits.face", 50)
	v.SetDefault("search.face.backend", "pgvector")
	v.SetDefault("search.face.min_similarity", 0.5)
	v.SetDefault("search.face.embedding_cache_size", 256)
	v.SetDefault("search.face.max_image_bytes", 10<<20)
	v.SetDefault("search.suggestions.cache_ttl", "60s")

	// 消息队列默认值
	v.SetDefault("messaging.redis_stream.max_len", 100000)
	v.SetDefault("messaging.redis_stream.consumer_group_prefix", "mam")
	v.SetDefault("messaging.redis_stream.block_timeout", "5s")
	v.SetDefault("messaging.redis_stream.claim_interval", "30s")
	v.SetDefault("messaging.redis_stream.retry_limit", 3)
	v.SetDefault("messaging.redis_stream.retry_backoff.initial", "1s")
	v.SetDefault("messaging.redis_stream.retry_backoff.max", "30s")
	v.SetDefault("messaging.redis_stream.retry_backoff.multiplier", 2.0)

	// 可观测性默认值
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "json")
	v.SetDefault("observability.tracing.enabled", false)
	v.SetDefault("observability.tracing.endpoint", "localhost:4317")
	v.SetDefault("observability.tracing.sample_rate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.path", "/metrics")

	// 安全默认值
	v.SetDefault("security.jwt.enabled", true)
	v.SetDefault("security.jwt.issuer", "akashi-mam")
	v.SetDefault("security.jwt.expiration", "30m")
	v.SetDefault("security.rate_limit.enabled", true)
	v.SetDefault("security.rate_limit.backend", "redis")
	v.SetDefault("security.rate_limit.requests", 100)
	v.SetDefault("security.rate_limit.window", "60s")
	v.SetDefault("security.rate_limit.burst", 20)
	v.SetDefault("security.cors.allowed_origins", []string{"http://localhost:3000"})

	// 租户默认值
	v.SetDefault("tenancy.header", "X-Tenant-ID")
	v.SetDefault("tenancy.default_code", "dev")
}

// Validate 校验配置中会影响检索正确性的字段
func (c *Config) Validate() error {
	if c.Search.RRF.K <= 0 {
		return fmt.Errorf("search.rrf.k must be positive, got %v", c.Search.RRF.K)
	}
	if c.Search.RRF.MultiMatchBoost < 0 {
		return fmt.Errorf("search.rrf.multi_match_boost must not be negative, got %v", c.Search.RRF.MultiMatchBoost)
	}
	if c.Search.Face.MinSimilarity < 0 || c.Search.Face.MinSimilarity > 1 {
		return fmt.Errorf("search.face.min_similarity must be within [0,1], got %v", c.Search.Face.MinSimilarity)
	}
	switch c.Search.Face.Backend {
	case "pgvector", "milvus":
	default:
		return fmt.Errorf("search.face.backend must be pgvector or milvus, got %q", c.Search.Face.Backend)
	}
	if !regconfigPattern.MatchString(c.Search.TextSearchConfig) {
		return fmt.Errorf("search.text_search_config %q is not a valid identifier", c.Search.TextSearchConfig)
	}
	switch c.Security.RateLimit.Backend {
	case "redis", "local":
	default:
		return fmt.Errorf("security.rate_limit.backend must be redis or local, got %q", c.Security.RateLimit.Backend)
	}
	if c.Security.JWT.Enabled && c.Security.JWT.Secret == "" {
		return fmt.Errorf("security.jwt.secret is required when jwt is enabled")
	}
	return nil
}

// regconfigPattern 全文检索配置名只允许小写标识符
var regconfigPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
