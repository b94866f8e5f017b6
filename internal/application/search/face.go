package search

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/h2non/filetype"
	lru "github.com/hashicorp/golang-lru/v2"

	"mam-search-api/pkg/metrics"
)

const (
	defaultFaceLimit         = 50
	defaultFaceMinSimilarity = 0.5
	defaultFaceCacheSize     = 256
	defaultMaxImageBytes     = 5 << 20
)

// FaceSourceConfig 人脸数据源配置
type FaceSourceConfig struct {
	Limit         int
	MinSimilarity float64
	CacheSize     int
	MaxImageBytes int
}

// FaceSource 以图搜人脸
type FaceSource struct {
	embedder      FaceEmbedder
	index         FaceIndex
	cache         *lru.Cache[string, []float32]
	limit         int
	minSimilarity float64
	maxImageBytes int
}

// NewFaceSource 创建人脸数据源
func NewFaceSource(embedder FaceEmbedder, index FaceIndex, cfg FaceSourceConfig) (*FaceSource, error) {
	if embedder == nil || index == nil {
		return nil, errors.New("face source requires an embedder and an index")
	}
	if cfg.Limit <= 0 {
		cfg.Limit = defaultFaceLimit
	}
	if cfg.MinSimilarity <= 0 {
		cfg.MinSimilarity = defaultFaceMinSimilarity
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaultFaceCacheSize
	}
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = defaultMaxImageBytes
	}
	cache, err := lru.New[string, []float32](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding cache: %w", err)
	}
	return &FaceSource{
		embedder:      embedder,
		index:         index,
		cache:         cache,
		limit:         cfg.Limit,
		minSimilarity: cfg.MinSimilarity,
		maxImageBytes: cfg.MaxImageBytes,
	}, nil
}

func (s *FaceSource) Mode() Mode { return ModeFace }

// Search 解码图片、提取向量、近邻检索并按相似度阈值过滤
func (s *FaceSource) Search(ctx context.Context, q SourceQuery) ([]Candidate, error) {
	img, err := DecodeFaceImage(q.FaceImage, s.maxImageBytes)
	if err != nil {
		return nil, err
	}

	vec, err := s.embed(ctx, img)
	if err != nil {
		return nil, err
	}

	cands, err := s.index.NearestFaces(ctx, FaceQuery{
		TenantID:  q.TenantID,
		Embedding: vec,
		Filters:   q.Filters,
		Limit:     s.limit,
	})
	if err != nil {
		return nil, fmt.Errorf("face index search failed: %w", err)
	}

	out := cands[:0]
	for _, c := range cands {
		if c.Match != nil && c.Match.Score() >= s.minSimilarity {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *FaceSource) embed(ctx context.Context, img []byte) ([]float32, error) {
	sum := sha256.Sum256(img)
	key := hex.EncodeToString(sum[:])
	if vec, ok := s.cache.Get(key); ok {
		metrics.FaceEmbeddingCacheTotal.WithLabelValues("hit").Inc()
		return vec, nil
	}
	metrics.FaceEmbeddingCacheTotal.WithLabelValues("miss").Inc()

	start := time.Now()
	vec, err := s.embedder.EmbedFace(ctx, img)
	if err != nil {
		metrics.FaceEmbeddingDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		if errors.Is(err, ErrNoFaceDetected) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrFaceEmbedding, err)
	}
	metrics.FaceEmbeddingDuration.WithLabelValues("success").Observe(time.Since(start).Seconds())
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", ErrFaceEmbedding)
	}

	s.cache.Add(key, vec)
	return vec, nil
}

// DecodeFaceImage 解码 base64 图片（支持 data URL 形式）并校验为图片
func DecodeFaceImage(payload string, maxBytes int) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidFaceImage)
	}
	if strings.HasPrefix(payload, "data:") {
		idx := strings.Index(payload, ",")
		if idx < 0 || !strings.Contains(payload[:idx], ";base64") {
			return nil, fmt.Errorf("%w: malformed data url", ErrInvalidFaceImage)
		}
		payload = payload[idx+1:]
	}
	if maxBytes > 0 && base64.StdEncoding.DecodedLen(len(payload)) > maxBytes+3 {
		return nil, fmt.Errorf("%w: image exceeds %d bytes", ErrInvalidFaceImage, maxBytes)
	}

	img, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		img, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFaceImage, err)
		}
	}
	if maxBytes > 0 && len(img) > maxBytes {
		return nil, fmt.Errorf("%w: image exceeds %d bytes", ErrInvalidFaceImage, maxBytes)
	}
	if !filetype.IsImage(img) {
		return nil, fmt.Errorf("%w: unsupported content type", ErrInvalidFaceImage)
	}
	return img, nil
}
