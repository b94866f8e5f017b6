package postgres

import (
	"context"
	"fmt"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"mam-search-api/internal/config"
	"mam-search-api/internal/domain/entity"
	"mam-search-api/internal/domain/repository"
)

const assetHeadlineOptions = "StartSel=<mark>, StopSel=</mark>, MaxWords=35, MinWords=15"

// assetSortColumns 高级检索允许的排序字段
var assetSortColumns = map[string]string{
	"created_at":      "created_at",
	"title":           "title",
	"duration_ms":     "duration_ms",
	"file_size_bytes": "file_size_bytes",
	"recorded_at":     "recorded_at",
}

type assetHitRow struct {
	entity.Asset
	Rank     float64 `gorm:"column:rank"`
	Headline string  `gorm:"column:headline"`
}

type titleSuggestionRow struct {
	Text  string `gorm:"column:text"`
	Count int    `gorm:"column:count"`
}

// AssetRepository 资产检索仓储实现
type AssetRepository struct {
	client *Client
	tsc    textSearchConfig
}

// NewAssetRepository 创建资产仓储
func NewAssetRepository(client *Client, cfg *config.SearchConfig) (*AssetRepository, error) {
	tsc, err := newTextSearchConfig(cfg.TextSearchConfig)
	if err != nil {
		return nil, err
	}
	return &AssetRepository{client: client, tsc: tsc}, nil
}

func (r *AssetRepository) textBase(db *gorm.DB, tenantID string, q repository.AssetTextQuery) *gorm.DB {
	status := q.Status
	if status == "" {
		status = entity.AssetStatusAvailable
	}
	query := db.Model(&entity.Asset{}).
		Where("tenant_id = ? AND deleted_at IS NULL", tenantID).
		Where("search_vector @@ "+r.tsc.tsquery(), q.Query).
		Where("status = ?", status)
	if q.AssetType != "" {
		query = query.Where("asset_type = ?", q.AssetType)
	}
	if q.DateFrom != nil {
		query = query.Where("created_at >= ?", *q.DateFrom)
	}
	if q.DateTo != nil {
		query = query.Where("created_at <= ?", *q.DateTo)
	}
	return query
}

// SearchText 全文检索，按相关度降序分页
func (r *AssetRepository) SearchText(ctx context.Context, tenantID string, q repository.AssetTextQuery, pagination repository.Pagination) (*repository.PagedResult[*repository.AssetHit], error) {
	ctx, span := tracer.Start(ctx, "postgres.AssetRepository.SearchText")
	defer span.End()

	base := r.textBase(getDB(ctx, r.client.db), tenantID, q)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count assets: %w", err)
	}

	tsq := r.tsc.tsquery()
	var rows []assetHitRow
	err := base.Session(&gorm.Session{}).
		Select("assets.*, ts_rank(search_vector, "+tsq+") AS rank, "+
			r.tsc.headline("coalesce(title, '') || ' ' || coalesce(description, '')")+" AS headline",
			q.Query, q.Query, assetHeadlineOptions).
		Order("rank DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Scan(&rows).Error
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to search assets: %w", err)
	}

	hits := make([]*repository.AssetHit, 0, len(rows))
	for i := range rows {
		asset := rows[i].Asset
		hits = append(hits, &repository.AssetHit{Asset: &asset, Rank: rows[i].Rank, Headline: rows[i].Headline})
	}
	return repository.NewPagedResult(hits, total, pagination), nil
}

func (r *AssetRepository) advancedBase(db *gorm.DB, tenantID string, q repository.AssetAdvancedQuery) *gorm.DB {
	query := db.Model(&entity.Asset{}).Where("tenant_id = ? AND deleted_at IS NULL", tenantID)
	if q.Query != "" {
		query = query.Where("search_vector @@ "+r.tsc.tsquery(), q.Query)
	}
	if q.Title != "" {
		query = query.Where("title ILIKE ?", likePattern(q.Title))
	}
	if q.Description != "" {
		query = query.Where("description ILIKE ?", likePattern(q.Description))
	}
	if q.AssetType != "" {
		query = query.Where("asset_type = ?", q.AssetType)
	}
	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	}
	if q.Visibility != "" {
		query = query.Where("visibility = ?", q.Visibility)
	}
	if q.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *q.CreatedFrom)
	}
	if q.CreatedTo != nil {
		query = query.Where("created_at <= ?", *q.CreatedTo)
	}
	if q.RecordedFrom != nil {
		query = query.Where("recorded_at >= ?", *q.RecordedFrom)
	}
	if q.RecordedTo != nil {
		query = query.Where("recorded_at <= ?", *q.RecordedTo)
	}
	if q.MinDurationMs != nil {
		query = query.Where("duration_ms >= ?", *q.MinDurationMs)
	}
	if q.MaxDurationMs != nil {
		query = query.Where("duration_ms <= ?", *q.MaxDurationMs)
	}
	if q.MinSizeBytes != nil {
		query = query.Where("file_size_bytes >= ?", *q.MinSizeBytes)
	}
	if q.MaxSizeBytes != nil {
		query = query.Where("file_size_bytes <= ?", *q.MaxSizeBytes)
	}
	if len(q.Keywords) > 0 {
		query = query.Where(
			"id IN (SELECT DISTINCT asset_id FROM asset_keywords WHERE tenant_id = ? AND keyword = ANY(?))",
			tenantID, pq.Array(q.Keywords),
		)
	}
	return query
}

// orderClause 白名单外的字段回退到 created_at
func orderClause(s repository.Sort) string {
	col, ok := assetSortColumns[s.Field]
	if !ok {
		col = "created_at"
	}
	order := repository.SortOrderDesc
	if s.Order == repository.SortOrderAsc {
		order = repository.SortOrderAsc
	}
	return fmt.Sprintf("%s %s", col, order)
}

// SearchAdvanced 多条件组合检索
func (r *AssetRepository) SearchAdvanced(ctx context.Context, tenantID string, q repository.AssetAdvancedQuery, pagination repository.Pagination) (*repository.PagedResult[*entity.Asset], error) {
	ctx, span := tracer.Start(ctx, "postgres.AssetRepository.SearchAdvanced")
	defer span.End()

	base := r.advancedBase(getDB(ctx, r.client.db), tenantID, q)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count assets: %w", err)
	}

	var assets []*entity.Asset
	if err := base.Session(&gorm.Session{}).
		Order(orderClause(q.Sort)).
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&assets).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to search assets: %w", err)
	}
	return repository.NewPagedResult(assets, total, pagination), nil
}

// SuggestTitles 标题建议
func (r *AssetRepository) SuggestTitles(ctx context.Context, tenantID, prefix string, limit int) ([]repository.TextSuggestion, error) {
	ctx, span := tracer.Start(ctx, "postgres.AssetRepository.SuggestTitles")
	defer span.End()

	var rows []titleSuggestionRow
	err := getDB(ctx, r.client.db).Model(&entity.Asset{}).
		Select("title AS text, COUNT(*) AS count").
		Where("tenant_id = ? AND deleted_at IS NULL", tenantID).
		Where("title ILIKE ?", likePattern(prefix)).
		Group("title").
		Order("count DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to suggest titles: %w", err)
	}
	return toTextSuggestions(rows), nil
}

// SuggestKeywords 关键词建议
func (r *AssetRepository) SuggestKeywords(ctx context.Context, tenantID, prefix string, limit int) ([]repository.TextSuggestion, error) {
	ctx, span := tracer.Start(ctx, "postgres.AssetRepository.SuggestKeywords")
	defer span.End()

	var rows []titleSuggestionRow
	err := getDB(ctx, r.client.db).Table("asset_keywords").
		Select("keyword AS text, COUNT(*) AS count").
		Where("tenant_id = ?", tenantID).
		Where("keyword ILIKE ?", likePattern(prefix)).
		Group("keyword").
		Order("count DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to suggest keywords: %w", err)
	}
	return toTextSuggestions(rows), nil
}

func toTextSuggestions(rows []titleSuggestionRow) []repository.TextSuggestion {
	out := make([]repository.TextSuggestion, 0, len(rows))
	for _, row := range rows {
		out = append(out, repository.TextSuggestion{Text: row.Text, Count: row.Count})
	}
	return out
}
