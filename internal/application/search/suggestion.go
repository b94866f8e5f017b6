package search

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"mam-search-api/pkg/logger"
	"mam-search-api/pkg/metrics"
)

const (
	minSuggestionQueryRunes = 2
	defaultSuggestionLimit  = 10
	maxSuggestionLimit      = 20
	defaultSuggestionTTL    = 60 * time.Second
)

// SuggestionService 关键词与人物名称建议
type SuggestionService struct {
	store SuggestionStore
	cache SuggestionCache
	ttl   time.Duration
}

// NewSuggestionService 创建建议服务，cache 可为 nil
func NewSuggestionService(store SuggestionStore, cache SuggestionCache, ttl time.Duration) *SuggestionService {
	if ttl <= 0 {
		ttl = defaultSuggestionTTL
	}
	return &SuggestionService{store: store, cache: cache, ttl: ttl}
}

// Suggest 返回按出现次数降序的建议；limit 为 0 时取默认值 10
func (s *SuggestionService) Suggest(ctx context.Context, tenantID, q string, limit int) ([]Suggestion, error) {
	ctx, span := tracer.Start(ctx, "search.SuggestionService.Suggest")
	defer span.End()

	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, ErrTenantRequired
	}
	q = strings.TrimSpace(q)
	if utf8.RuneCountInString(q) < minSuggestionQueryRunes {
		return nil, invalid("q", "must be at least %d characters", minSuggestionQueryRunes)
	}
	if limit == 0 {
		limit = defaultSuggestionLimit
	}
	if limit < 1 || limit > maxSuggestionLimit {
		return nil, invalid("limit", "must be between 1 and %d", maxSuggestionLimit)
	}

	if s.cache == nil {
		return s.load(ctx, tenantID, q, limit)
	}

	key := fmt.Sprintf("suggest:%s:%d:%s", tenantID, limit, strings.ToLower(q))
	loaded := false
	raw, err := s.cache.GetOrLoadSafe(ctx, key, s.ttl, func() (interface{}, error) {
		loaded = true
		return s.load(ctx, tenantID, q, limit)
	})
	if err == nil {
		var out []Suggestion
		if err = json.Unmarshal(raw, &out); err == nil {
			if loaded {
				metrics.SuggestionCacheTotal.WithLabelValues("miss").Inc()
			} else {
				metrics.SuggestionCacheTotal.WithLabelValues("hit").Inc()
			}
			return out, nil
		}
	}
	if loaded {
		// 加载本身失败，不再重复查询
		return nil, err
	}

	metrics.SuggestionCacheTotal.WithLabelValues("error").Inc()
	logger.Warn(ctx, "suggestion cache unavailable, querying store directly", "error", err.Error())
	return s.load(ctx, tenantID, q, limit)
}

func (s *SuggestionService) load(ctx context.Context, tenantID, q string, limit int) ([]Suggestion, error) {
	half := limit / 2
	if half < 1 {
		half = 1
	}

	keywords, err := s.store.SuggestKeywords(ctx, tenantID, q, half)
	if err != nil {
		return nil, fmt.Errorf("failed to suggest keywords: %w", err)
	}
	persons, err := s.store.SuggestPersons(ctx, tenantID, q, half)
	if err != nil {
		return nil, fmt.Errorf("failed to suggest persons: %w", err)
	}

	out := make([]Suggestion, 0, len(keywords)+len(persons))
	out = append(out, keywords...)
	out = append(out, persons...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
