package search

import "context"

type textSearchFunc func(ctx context.Context, q SourceQuery, limit int) ([]Candidate, error)

// textSource 基于 TextStore 的文本数据源
type textSource struct {
	mode   Mode
	limit  int
	search textSearchFunc
}

func (s *textSource) Mode() Mode { return s.mode }

func (s *textSource) Search(ctx context.Context, q SourceQuery) ([]Candidate, error) {
	return s.search(ctx, q, s.limit)
}

func newTextSource(mode Mode, limit, fallback int, fn textSearchFunc) Source {
	if limit <= 0 {
		limit = fallback
	}
	return &textSource{mode: mode, limit: limit, search: fn}
}

// NewTranscriptionSource 转写全文检索，默认上限 100
func NewTranscriptionSource(store TextStore, limit int) Source {
	return newTextSource(ModeTranscription, limit, 100, store.SearchTranscriptions)
}

// NewSceneSource 场景描述检索，默认上限 100
func NewSceneSource(store TextStore, limit int) Source {
	return newTextSource(ModeScene, limit, 100, store.SearchScenes)
}

// NewKeywordSource 关键词检索，人工/AI 各默认 50
func NewKeywordSource(store TextStore, limit int) Source {
	return newTextSource(ModeKeyword, limit, 50, store.SearchKeywords)
}

// NewMetadataSource 标题/描述检索，默认上限 100
func NewMetadataSource(store TextStore, limit int) Source {
	return newTextSource(ModeMetadata, limit, 100, store.SearchMetadata)
}
