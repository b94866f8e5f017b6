package repository

import (
	"context"
	"time"

	"mam-search-api/internal/domain/entity"
)

// AssetTextQuery 资产全文检索条件
type AssetTextQuery struct {
	Query     string
	AssetType entity.AssetType
	Status    entity.AssetStatus
	DateFrom  *time.Time
	DateTo    *time.Time
}

// AssetAdvancedQuery 资产高级检索条件
type AssetAdvancedQuery struct {
	Query         string
	Title         string
	Description   string
	AssetType     entity.AssetType
	Status        entity.AssetStatus
	Visibility    entity.Visibility
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	RecordedFrom  *time.Time
	RecordedTo    *time.Time
	MinDurationMs *int64
	MaxDurationMs *int64
	MinSizeBytes  *int64
	MaxSizeBytes  *int64
	Keywords      []string
	Sort          Sort
}

// AssetHit 全文检索命中
type AssetHit struct {
	Asset    *entity.Asset
	Rank     float64
	Headline string
}

// TextSuggestion 文本建议
type TextSuggestion struct {
	Text  string
	Count int
}

// AssetRepository 资产检索仓储接口
type AssetRepository interface {
	// SearchText 全文检索
	SearchText(ctx context.Context, tenantID string, q AssetTextQuery, pagination Pagination) (*PagedResult[*AssetHit], error)

	// SearchAdvanced 高级检索
	SearchAdvanced(ctx context.Context, tenantID string, q AssetAdvancedQuery, pagination Pagination) (*PagedResult[*entity.Asset], error)

	// SuggestTitles 标题建议
	SuggestTitles(ctx context.Context, tenantID, prefix string, limit int) ([]TextSuggestion, error)

	// SuggestKeywords 关键词建议（按出现次数）
	SuggestKeywords(ctx context.Context, tenantID, prefix string, limit int) ([]TextSuggestion, error)
}
