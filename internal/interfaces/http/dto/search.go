package dto

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"mam-search-api/internal/application/search"
	"mam-search-api/internal/domain/entity"
)

// SearchModesRequest 数据源开关，缺省字段视为开启
type SearchModesRequest struct {
	Transcription *bool `json:"transcription"`
	Face          *bool `json:"face"`
	Scene         *bool `json:"scene"`
	Keywords      *bool `json:"keywords"`
	Metadata      *bool `json:"metadata"`
}

// SearchFiltersRequest 过滤条件
type SearchFiltersRequest struct {
	AssetType     string      `json:"asset_type,omitempty"`
	Status        string      `json:"status,omitempty"`
	DateFrom      *time.Time  `json:"date_from,omitempty"`
	DateTo        *time.Time  `json:"date_to,omitempty"`
	CollectionIDs []uuid.UUID `json:"collection_ids,omitempty"`
	PersonIDs     []uuid.UUID `json:"person_ids,omitempty"`
	MinDurationMs *int64      `json:"min_duration_ms,omitempty"`
	MaxDurationMs *int64      `json:"max_duration_ms,omitempty"`
}

// MultimodalSearchRequest 多模态检索请求
type MultimodalSearchRequest struct {
	Query     string                `json:"query"`
	Modes     *SearchModesRequest   `json:"modes,omitempty"`
	Filters   *SearchFiltersRequest `json:"filters,omitempty"`
	FaceImage string                `json:"face_image,omitempty"`
	Limit     *int                  `json:"limit,omitempty"`
	Offset    int                   `json:"offset"`
}

// ToSearchRequest 转换为应用层请求；limit 缺省时交由应用层取默认值
func (r *MultimodalSearchRequest) ToSearchRequest() search.Request {
	req := search.Request{
		Query:     r.Query,
		Modes:     r.Modes.toModes(),
		FaceImage: r.FaceImage,
		Offset:    r.Offset,
	}
	if r.Limit != nil {
		req.Limit = *r.Limit
		if req.Limit == 0 {
			// 显式的 0 交给校验拒绝
			req.Limit = -1
		}
	}
	if f := r.Filters; f != nil {
		req.Filters = search.Filters{
			AssetType:     entity.AssetType(f.AssetType),
			Status:        entity.AssetStatus(f.Status),
			DateFrom:      f.DateFrom,
			DateTo:        f.DateTo,
			CollectionIDs: f.CollectionIDs,
			PersonIDs:     f.PersonIDs,
			MinDurationMs: f.MinDurationMs,
			MaxDurationMs: f.MaxDurationMs,
		}
	}
	return req
}

func (m *SearchModesRequest) toModes() search.Modes {
	modes := search.AllModes()
	if m == nil {
		return modes
	}
	set := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	set(&modes.Transcription, m.Transcription)
	set(&modes.Face, m.Face)
	set(&modes.Scene, m.Scene)
	set(&modes.Keywords, m.Keywords)
	set(&modes.Metadata, m.Metadata)
	return modes
}

// MatchResponse 命中信息的扁平 JSON 形式
type MatchResponse struct {
	Type        string     `json:"type"`
	TimecodeMs  *int64     `json:"timecode_ms,omitempty"`
	Text        *string    `json:"text,omitempty"`
	Description *string    `json:"description,omitempty"`
	PersonID    *uuid.UUID `json:"person_id,omitempty"`
	PersonName  *string    `json:"person_name,omitempty"`
	Keyword     *string    `json:"keyword,omitempty"`
	Origin      string     `json:"origin,omitempty"`
	Score       float64    `json:"score"`
}

// ToMatchResponse 按具体命中类型展开
func ToMatchResponse(m search.Match) MatchResponse {
	out := MatchResponse{Type: string(m.Source()), Score: m.Score()}
	switch v := m.(type) {
	case search.TranscriptionMatch:
		out.Text = &v.Snippet
	case search.SceneMatch:
		tc := v.TimecodeMs
		out.TimecodeMs = &tc
		out.Description = &v.Description
	case search.KeywordMatch:
		out.Keyword = &v.Keyword
		out.TimecodeMs = v.TimecodeMs
		out.Origin = string(v.Origin)
	case search.MetadataMatch:
		out.Text = &v.Snippet
	case search.FaceMatch:
		out.TimecodeMs = v.TimecodeMs
		out.PersonID = v.PersonID
		out.PersonName = v.PersonName
	default:
		panic(fmt.Sprintf("dto: unhandled match type %T", m))
	}
	return out
}

// SearchResultResponse 单个资产结果
type SearchResultResponse struct {
	AssetID       uuid.UUID       `json:"asset_id"`
	Title         string          `json:"title"`
	Description   *string         `json:"description"`
	AssetType     string          `json:"asset_type"`
	Status        string          `json:"status"`
	ThumbnailURL  *string         `json:"thumbnail_url"`
	DurationMs    *int64          `json:"duration_ms"`
	CreatedAt     *time.Time      `json:"created_at"`
	Matches       []MatchResponse `json:"matches"`
	CombinedScore float64         `json:"combined_score"`
}

// MultimodalSearchResponse 多模态检索响应
type MultimodalSearchResponse struct {
	Query        string                 `json:"query"`
	Total        int                    `json:"total"`
	Limit        int                    `json:"limit"`
	Offset       int                    `json:"offset"`
	SearchTimeMs int64                  `json:"search_time_ms"`
	Results      []SearchResultResponse `json:"results"`
	ModesUsed    []string               `json:"modes_used"`
}

// ToMultimodalSearchResponse 转换检索响应
func ToMultimodalSearchResponse(r *search.Response) *MultimodalSearchResponse {
	out := &MultimodalSearchResponse{
		Query:        r.Query,
		Total:        r.Total,
		Limit:        r.Limit,
		Offset:       r.Offset,
		SearchTimeMs: r.SearchTimeMs,
		Results:      make([]SearchResultResponse, 0, len(r.Results)),
		ModesUsed:    make([]string, 0, len(r.ModesUsed)),
	}
	for _, res := range r.Results {
		matches := make([]MatchResponse, 0, len(res.Matches))
		for _, m := range res.Matches {
			matches = append(matches, ToMatchResponse(m))
		}
		out.Results = append(out.Results, SearchResultResponse{
			AssetID:       res.AssetID,
			Title:         res.Display.Title,
			Description:   res.Display.Description,
			AssetType:     res.Display.AssetType,
			Status:        res.Display.Status,
			ThumbnailURL:  res.Display.ThumbnailURL,
			DurationMs:    res.Display.DurationMs,
			CreatedAt:     res.Display.CreatedAt,
			Matches:       matches,
			CombinedScore: res.CombinedScore,
		})
	}
	for _, m := range r.ModesUsed {
		out.ModesUsed = append(out.ModesUsed, string(m))
	}
	return out
}
