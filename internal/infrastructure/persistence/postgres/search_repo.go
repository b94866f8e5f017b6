package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"mam-search-api/internal/application/search"
	"mam-search-api/internal/config"
)

const assetColumns = "a.id AS asset_id, a.title, a.description, a.asset_type, a.status, a.duration_ms, a.created_at"

const (
	transcriptionHeadlineOptions = "MaxWords=30, MinWords=15, StartSel=<mark>, StopSel=</mark>"
	metadataHeadlineOptions      = "MaxWords=20, StartSel=<mark>, StopSel=</mark>"
)

// AssetRow 资产展示字段的扫描结构，以导出类型嵌入其它行结构
type AssetRow struct {
	AssetID     uuid.UUID `gorm:"column:asset_id"`
	Title       string    `gorm:"column:title"`
	Description *string   `gorm:"column:description"`
	AssetType   string    `gorm:"column:asset_type"`
	Status      string    `gorm:"column:status"`
	DurationMs  *int64    `gorm:"column:duration_ms"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

type rankedTextRow struct {
	AssetRow
	Rank     float64 `gorm:"column:rank"`
	Headline string  `gorm:"column:headline"`
}

type sceneRow struct {
	AssetRow
	TimecodeStartMs  int64   `gorm:"column:timecode_start_ms"`
	SceneDescription string  `gorm:"column:scene_description"`
	Rank             float64 `gorm:"column:rank"`
}

type keywordRow struct {
	AssetRow
	Keyword    string   `gorm:"column:keyword"`
	TimecodeMs *int64   `gorm:"column:timecode_ms"`
	Rank       *float64 `gorm:"column:rank"`
}

type suggestionRow struct {
	Text  string `gorm:"column:text"`
	Count int    `gorm:"column:count"`
}

// displayMapper 行到展示字段的转换
type displayMapper struct {
	thumbnailBaseURL string
}

func (m displayMapper) display(row AssetRow) search.DisplayFields {
	created := row.CreatedAt
	d := search.DisplayFields{
		Title:       row.Title,
		Description: row.Description,
		AssetType:   row.AssetType,
		Status:      row.Status,
		DurationMs:  row.DurationMs,
		CreatedAt:   &created,
	}
	if m.thumbnailBaseURL != "" {
		u := fmt.Sprintf("%s/%s/thumbnail.jpg", m.thumbnailBaseURL, row.AssetID)
		d.ThumbnailURL = &u
	}
	return d
}

// SearchRepository 多模态文本检索与建议的 PostgreSQL 实现
type SearchRepository struct {
	client *Client
	tsc    textSearchConfig
	mapper displayMapper
}

// NewSearchRepository 创建检索仓储
func NewSearchRepository(client *Client, cfg *config.SearchConfig) (*SearchRepository, error) {
	tsc, err := newTextSearchConfig(cfg.TextSearchConfig)
	if err != nil {
		return nil, err
	}
	return &SearchRepository{
		client: client,
		tsc:    tsc,
		mapper: displayMapper{thumbnailBaseURL: strings.TrimRight(cfg.ThumbnailBaseURL, "/")},
	}, nil
}

func (r *SearchRepository) transcriptionQuery(db *gorm.DB, q search.SourceQuery, limit int) *gorm.DB {
	tsq := r.tsc.tsquery()
	return db.Table("asset_transcriptions AS t").
		Select(assetColumns+", ts_rank(t.search_vector, "+tsq+") AS rank, "+r.tsc.headline("t.full_text")+" AS headline",
			q.Text, q.Text, transcriptionHeadlineOptions).
		Joins("JOIN assets a ON a.id = t.asset_id").
		Where("t.tenant_id = ?", q.TenantID).
		Where("t.search_vector @@ "+tsq, q.Text).
		Scopes(AssetFilterScope(q.TenantID, q.Filters)).
		Order("rank DESC").
		Limit(limit)
}

// SearchTranscriptions 转写全文检索
func (r *SearchRepository) SearchTranscriptions(ctx context.Context, q search.SourceQuery, limit int) ([]search.Candidate, error) {
	ctx, span := tracer.Start(ctx, "postgres.SearchRepository.SearchTranscriptions")
	defer span.End()

	var rows []rankedTextRow
	if err := r.transcriptionQuery(getDB(ctx, r.client.db), q, limit).Scan(&rows).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to search transcriptions: %w", err)
	}

	out := make([]search.Candidate, 0, len(rows))
	for _, row := range rows {
		out = append(out, search.Candidate{
			AssetID: row.AssetID,
			Display: r.mapper.display(row.AssetRow),
			Match:   search.TranscriptionMatch{Snippet: row.Headline, Rank: row.Rank},
		})
	}
	return out, nil
}

func (r *SearchRepository) sceneQuery(db *gorm.DB, q search.SourceQuery, limit int) *gorm.DB {
	tsq := r.tsc.tsquery()
	return db.Table("asset_scene_descriptions AS s").
		Select(assetColumns+", s.timecode_start_ms, s.description AS scene_description, ts_rank(s.search_vector, "+tsq+") AS rank", q.Text).
		Joins("JOIN assets a ON a.id = s.asset_id").
		Where("s.tenant_id = ?", q.TenantID).
		Where("s.search_vector @@ "+tsq, q.Text).
		Scopes(AssetFilterScope(q.TenantID, q.Filters)).
		Order("rank DESC").
		Limit(limit)
}

// SearchScenes 场景描述检索
func (r *SearchRepository) SearchScenes(ctx context.Context, q search.SourceQuery, limit int) ([]search.Candidate, error) {
	ctx, span := tracer.Start(ctx, "postgres.SearchRepository.SearchScenes")
	defer span.End()

	var rows []sceneRow
	if err := r.sceneQuery(getDB(ctx, r.client.db), q, limit).Scan(&rows).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to search scenes: %w", err)
	}

	out := make([]search.Candidate, 0, len(rows))
	for _, row := range rows {
		out = append(out, search.Candidate{
			AssetID: row.AssetID,
			Display: r.mapper.display(row.AssetRow),
			Match:   search.NewSceneMatch(row.TimecodeStartMs, row.SceneDescription, row.Rank),
		})
	}
	return out, nil
}

func (r *SearchRepository) keywordQuery(db *gorm.DB, table, rankExpr string, q search.SourceQuery, limit int) *gorm.DB {
	return db.Table(table+" AS k").
		Select(assetColumns+", k.keyword, k.start_ms AS timecode_ms, "+rankExpr+" AS rank").
		Joins("JOIN assets a ON a.id = k.asset_id").
		Where("k.tenant_id = ?", q.TenantID).
		Where("k.keyword_normalized ILIKE ?", likePattern(strings.ToLower(q.Text))).
		Scopes(AssetFilterScope(q.TenantID, q.Filters)).
		Limit(limit)
}

// SearchKeywords 人工关键词与 AI 关键词检索，各自最多 limit 条
func (r *SearchRepository) SearchKeywords(ctx context.Context, q search.SourceQuery, limit int) ([]search.Candidate, error) {
	ctx, span := tracer.Start(ctx, "postgres.SearchRepository.SearchKeywords")
	defer span.End()

	db := getDB(ctx, r.client.db)
	sources := []struct {
		table  string
		rank   string
		origin search.KeywordOrigin
	}{
		{"asset_keywords", "1.0", search.KeywordManual},
		{"ai_extracted_keywords", "k.confidence", search.KeywordAI},
	}

	var out []search.Candidate
	for _, src := range sources {
		var rows []keywordRow
		if err := r.keywordQuery(db, src.table, src.rank, q, limit).Scan(&rows).Error; err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to search %s: %w", src.table, err)
		}
		for _, row := range rows {
			rank := 0.5
			if row.Rank != nil && *row.Rank != 0 {
				rank = *row.Rank
			}
			out = append(out, search.Candidate{
				AssetID: row.AssetID,
				Display: r.mapper.display(row.AssetRow),
				Match: search.KeywordMatch{
					Keyword:    row.Keyword,
					TimecodeMs: row.TimecodeMs,
					Origin:     src.origin,
					Rank:       rank,
				},
			})
		}
	}
	return out, nil
}

func (r *SearchRepository) metadataQuery(db *gorm.DB, q search.SourceQuery, limit int) *gorm.DB {
	tsq := r.tsc.tsquery()
	return db.Table("assets AS a").
		Select(assetColumns+", ts_rank(a.search_vector, "+tsq+") AS rank, "+r.tsc.headline("a.title")+" AS headline",
			q.Text, q.Text, metadataHeadlineOptions).
		Where("a.tenant_id = ?", q.TenantID).
		Where("a.search_vector @@ "+tsq, q.Text).
		Scopes(AssetFilterScope(q.TenantID, q.Filters)).
		Order("rank DESC").
		Limit(limit)
}

// SearchMetadata 标题与描述检索
func (r *SearchRepository) SearchMetadata(ctx context.Context, q search.SourceQuery, limit int) ([]search.Candidate, error) {
	ctx, span := tracer.Start(ctx, "postgres.SearchRepository.SearchMetadata")
	defer span.End()

	var rows []rankedTextRow
	if err := r.metadataQuery(getDB(ctx, r.client.db), q, limit).Scan(&rows).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to search metadata: %w", err)
	}

	out := make([]search.Candidate, 0, len(rows))
	for _, row := range rows {
		out = append(out, search.Candidate{
			AssetID: row.AssetID,
			Display: r.mapper.display(row.AssetRow),
			Match:   search.MetadataMatch{Snippet: row.Headline, Rank: row.Rank},
		})
	}
	return out, nil
}

// SuggestKeywords 关键词建议，按出现次数降序
func (r *SearchRepository) SuggestKeywords(ctx context.Context, tenantID, q string, limit int) ([]search.Suggestion, error) {
	ctx, span := tracer.Start(ctx, "postgres.SearchRepository.SuggestKeywords")
	defer span.End()

	var rows []suggestionRow
	err := getDB(ctx, r.client.db).Table("asset_keywords").
		Select("keyword AS text, COUNT(*) AS count").
		Where("tenant_id = ?", tenantID).
		Where("keyword_normalized ILIKE ?", likePattern(strings.ToLower(q))).
		Group("keyword").
		Order("count DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to suggest keywords: %w", err)
	}
	return toSuggestions(rows, search.SuggestionKeyword), nil
}

// SuggestPersons 人物建议，按出现次数降序
func (r *SearchRepository) SuggestPersons(ctx context.Context, tenantID, q string, limit int) ([]search.Suggestion, error) {
	ctx, span := tracer.Start(ctx, "postgres.SearchRepository.SuggestPersons")
	defer span.End()

	var rows []suggestionRow
	err := getDB(ctx, r.client.db).Table("persons").
		Select("name AS text, appearance_count AS count").
		Where("tenant_id = ?", tenantID).
		Where("name ILIKE ?", likePattern(q)).
		Order("appearance_count DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to suggest persons: %w", err)
	}
	return toSuggestions(rows, search.SuggestionPerson), nil
}

func toSuggestions(rows []suggestionRow, typ search.SuggestionType) []search.Suggestion {
	out := make([]search.Suggestion, 0, len(rows))
	for _, row := range rows {
		out = append(out, search.Suggestion{Text: row.Text, Type: typ, Count: row.Count})
	}
	return out
}

// HydrateAssets 批量读取资产展示字段，并套用过滤条件；不满足条件的资产不会出现在结果中
func (r *SearchRepository) HydrateAssets(ctx context.Context, tenantID string, ids []uuid.UUID, filters search.Filters) (map[uuid.UUID]search.DisplayFields, error) {
	ctx, span := tracer.Start(ctx, "postgres.SearchRepository.HydrateAssets")
	defer span.End()

	out := make(map[uuid.UUID]search.DisplayFields, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []AssetRow
	err := getDB(ctx, r.client.db).Table("assets AS a").
		Select(assetColumns).
		Where("a.tenant_id = ?", tenantID).
		Where("a.id IN ?", uuidStrings(ids)).
		Scopes(AssetFilterScope(tenantID, filters)).
		Scan(&rows).Error
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to hydrate assets: %w", err)
	}
	for _, row := range rows {
		out[row.AssetID] = r.mapper.display(row)
	}
	return out, nil
}

// PersonNames 批量读取人物名称
func (r *SearchRepository) PersonNames(ctx context.Context, tenantID string, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	ctx, span := tracer.Start(ctx, "postgres.SearchRepository.PersonNames")
	defer span.End()

	out := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []struct {
		ID   uuid.UUID `gorm:"column:id"`
		Name string    `gorm:"column:name"`
	}
	err := getDB(ctx, r.client.db).Table("persons").
		Select("id, name").
		Where("tenant_id = ? AND id IN ?", tenantID, uuidStrings(ids)).
		Scan(&rows).Error
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to load person names: %w", err)
	}
	for _, row := range rows {
		out[row.ID] = row.Name
	}
	return out, nil
}
