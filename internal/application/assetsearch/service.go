// Package assetsearch 资产全文检索、高级检索与标题/关键词建议
package assetsearch

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"

	"mam-search-api/internal/application/search"
	"mam-search-api/internal/domain/entity"
	"mam-search-api/internal/domain/repository"
)

var tracer = otel.Tracer("assetsearch")

const (
	minQueryRunes          = 2
	maxQueryRunes          = 500
	defaultSuggestionLimit = 10
	maxSuggestionLimit     = 20
	defaultSortField       = "created_at"
)

// TextRequest 全文检索请求
type TextRequest struct {
	Query     string
	AssetType entity.AssetType
	Status    entity.AssetStatus
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
}

// TextResponse 全文检索响应
type TextResponse struct {
	Query        string
	Result       *repository.PagedResult[*repository.AssetHit]
	SearchTimeMs int64
}

// AdvancedRequest 高级检索请求，Keywords 为逗号分隔的原始字符串
type AdvancedRequest struct {
	repository.AssetAdvancedQuery
	KeywordsRaw string
	SortBy      string
	SortOrder   string
	Page        int
	PageSize    int
}

// AdvancedResponse 高级检索响应
type AdvancedResponse struct {
	Result       *repository.PagedResult[*entity.Asset]
	SearchTimeMs int64
}

// Service 资产检索服务
type Service struct {
	repo repository.AssetRepository
}

// NewService 创建资产检索服务
func NewService(repo repository.AssetRepository) *Service {
	return &Service{repo: repo}
}

// Search 全文检索
func (s *Service) Search(ctx context.Context, tenantID string, req TextRequest) (*TextResponse, error) {
	ctx, span := tracer.Start(ctx, "assetsearch.Service.Search")
	defer span.End()

	start := time.Now()
	if strings.TrimSpace(tenantID) == "" {
		return nil, search.ErrTenantRequired
	}

	q := strings.TrimSpace(req.Query)
	if err := validateQuery("q", q); err != nil {
		return nil, err
	}
	if req.AssetType != "" && !req.AssetType.IsValid() {
		return nil, invalid("asset_type", fmt.Sprintf("unknown asset type %q", req.AssetType))
	}
	if req.Status != "" && !req.Status.IsValid() {
		return nil, invalid("status", fmt.Sprintf("unknown status %q", req.Status))
	}
	if err := validateRange("date_from", req.DateFrom, req.DateTo); err != nil {
		return nil, err
	}
	pagination, err := paginate(req.Page, req.PageSize)
	if err != nil {
		return nil, err
	}

	result, err := s.repo.SearchText(ctx, tenantID, repository.AssetTextQuery{
		Query:     q,
		AssetType: req.AssetType,
		Status:    req.Status,
		DateFrom:  req.DateFrom,
		DateTo:    req.DateTo,
	}, pagination)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to search assets: %w", err)
	}

	return &TextResponse{
		Query:        q,
		Result:       result,
		SearchTimeMs: time.Since(start).Milliseconds(),
	}, nil
}

// Advanced 高级检索，所有条件均可选
func (s *Service) Advanced(ctx context.Context, tenantID string, req AdvancedRequest) (*AdvancedResponse, error) {
	ctx, span := tracer.Start(ctx, "assetsearch.Service.Advanced")
	defer span.End()

	start := time.Now()
	if strings.TrimSpace(tenantID) == "" {
		return nil, search.ErrTenantRequired
	}

	q := req.AssetAdvancedQuery
	q.Query = strings.TrimSpace(q.Query)
	q.Title = strings.TrimSpace(q.Title)
	q.Description = strings.TrimSpace(q.Description)
	if utf8.RuneCountInString(q.Query) > maxQueryRunes {
		return nil, invalid("q", fmt.Sprintf("must be at most %d characters", maxQueryRunes))
	}
	if q.AssetType != "" && !q.AssetType.IsValid() {
		return nil, invalid("asset_type", fmt.Sprintf("unknown asset type %q", q.AssetType))
	}
	if q.Status != "" && !q.Status.IsValid() {
		return nil, invalid("status", fmt.Sprintf("unknown status %q", q.Status))
	}
	if q.Visibility != "" && !q.Visibility.IsValid() {
		return nil, invalid("visibility", fmt.Sprintf("unknown visibility %q", q.Visibility))
	}
	if err := validateRange("created_from", q.CreatedFrom, q.CreatedTo); err != nil {
		return nil, err
	}
	if err := validateRange("recorded_from", q.RecordedFrom, q.RecordedTo); err != nil {
		return nil, err
	}
	if err := validateBounds("min_duration_ms", q.MinDurationMs, q.MaxDurationMs); err != nil {
		return nil, err
	}
	if err := validateBounds("min_size_bytes", q.MinSizeBytes, q.MaxSizeBytes); err != nil {
		return nil, err
	}
	if req.KeywordsRaw != "" {
		q.Keywords = append(q.Keywords, SplitKeywords(req.KeywordsRaw)...)
	}

	sortBy := strings.TrimSpace(req.SortBy)
	if sortBy == "" {
		sortBy = defaultSortField
	}
	order := strings.TrimSpace(req.SortOrder)
	if order != "" && !strings.EqualFold(order, "asc") && !strings.EqualFold(order, "desc") {
		return nil, invalid("sort_order", "must be asc or desc")
	}
	q.Sort = repository.Sort{Field: sortBy, Order: repository.ParseSortOrder(order, repository.SortOrderDesc)}

	pagination, err := paginate(req.Page, req.PageSize)
	if err != nil {
		return nil, err
	}

	result, err := s.repo.SearchAdvanced(ctx, tenantID, q, pagination)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to search assets: %w", err)
	}
	return &AdvancedResponse{Result: result, SearchTimeMs: time.Since(start).Milliseconds()}, nil
}

// Suggest 标题与关键词建议，各取 limit/2 后按出现次数合并
func (s *Service) Suggest(ctx context.Context, tenantID, q string, limit int) ([]search.Suggestion, error) {
	ctx, span := tracer.Start(ctx, "assetsearch.Service.Suggest")
	defer span.End()

	if strings.TrimSpace(tenantID) == "" {
		return nil, search.ErrTenantRequired
	}
	q = strings.TrimSpace(q)
	if err := validateQuery("q", q); err != nil {
		return nil, err
	}
	if limit == 0 {
		limit = defaultSuggestionLimit
	}
	if limit < 1 || limit > maxSuggestionLimit {
		return nil, invalid("limit", fmt.Sprintf("must be between 1 and %d", maxSuggestionLimit))
	}

	half := limit / 2
	if half < 1 {
		half = 1
	}

	titles, err := s.repo.SuggestTitles(ctx, tenantID, q, half)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to suggest titles: %w", err)
	}
	keywords, err := s.repo.SuggestKeywords(ctx, tenantID, q, half)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to suggest keywords: %w", err)
	}

	out := make([]search.Suggestion, 0, len(titles)+len(keywords))
	for _, t := range titles {
		out = append(out, search.Suggestion{Text: t.Text, Type: search.SuggestionTitle, Count: t.Count})
	}
	for _, k := range keywords {
		out = append(out, search.Suggestion{Text: k.Text, Type: search.SuggestionKeyword, Count: k.Count})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SplitKeywords 按逗号拆分关键词，去掉首尾空白与空项
func SplitKeywords(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func validateQuery(field, q string) error {
	n := utf8.RuneCountInString(q)
	if n < minQueryRunes {
		return invalid(field, fmt.Sprintf("must be at least %d characters", minQueryRunes))
	}
	if n > maxQueryRunes {
		return invalid(field, fmt.Sprintf("must be at most %d characters", maxQueryRunes))
	}
	return nil
}

func validateRange(field string, from, to *time.Time) error {
	if from != nil && to != nil && from.After(*to) {
		return invalid(field, "must not be after the upper bound")
	}
	return nil
}

func validateBounds(field string, lo, hi *int64) error {
	if (lo != nil && *lo < 0) || (hi != nil && *hi < 0) {
		return invalid(field, "must not be negative")
	}
	if lo != nil && hi != nil && *lo > *hi {
		return invalid(field, "must not exceed the upper bound")
	}
	return nil
}

func paginate(page, pageSize int) (repository.Pagination, error) {
	if page < 0 {
		return repository.Pagination{}, invalid("page", "must be at least 1")
	}
	if pageSize < 0 || pageSize > 100 {
		return repository.Pagination{}, invalid("page_size", "must be between 1 and 100")
	}
	return repository.NewPagination(page, pageSize), nil
}

func invalid(field, reason string) error {
	return &search.ValidationError{Field: field, Reason: reason}
}
