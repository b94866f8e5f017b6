package search

import (
	"context"
	"time"
)

// Source 单个检索数据源
type Source interface {
	Mode() Mode
	Search(ctx context.Context, q SourceQuery) ([]Candidate, error)
}

// SourceQuery 数据源查询参数
type SourceQuery struct {
	TenantID  string
	Text      string
	FaceImage string
	Filters   Filters
}

// TextStore 文本类数据源的存储端口（由 PostgreSQL 实现）
type TextStore interface {
	SearchTranscriptions(ctx context.Context, q SourceQuery, limit int) ([]Candidate, error)
	SearchScenes(ctx context.Context, q SourceQuery, limit int) ([]Candidate, error)
	// SearchKeywords 人工关键词在前、AI 关键词在后，limit 作用于每一类
	SearchKeywords(ctx context.Context, q SourceQuery, limit int) ([]Candidate, error)
	SearchMetadata(ctx context.Context, q SourceQuery, limit int) ([]Candidate, error)
}

// FaceQuery 人脸近邻查询
type FaceQuery struct {
	TenantID  string
	Embedding []float32
	Filters   Filters
	Limit     int
}

// FaceIndex 人脸向量索引（pgvector 或 Milvus），候选按相似度降序
type FaceIndex interface {
	NearestFaces(ctx context.Context, q FaceQuery) ([]Candidate, error)
}

// FaceEmbedder 人脸向量提取
type FaceEmbedder interface {
	// EmbedFace 返回图片中主要人脸的向量；未检测到人脸时返回 ErrNoFaceDetected
	EmbedFace(ctx context.Context, image []byte) ([]float32, error)
}

// SuggestionStore 建议数据来源
type SuggestionStore interface {
	SuggestKeywords(ctx context.Context, tenantID, q string, limit int) ([]Suggestion, error)
	SuggestPersons(ctx context.Context, tenantID, q string, limit int) ([]Suggestion, error)
}

// SuggestionCache 读穿缓存
type SuggestionCache interface {
	GetOrLoadSafe(ctx context.Context, key string, ttl time.Duration, loader func() (interface{}, error)) ([]byte, error)
}
