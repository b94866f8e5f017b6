package dto

import (
	"fmt"
	"time"

	"mam-search-api/internal/domain/entity"
	"mam-search-api/internal/domain/repository"
)

// AssetSearchResult 资产检索结果
type AssetSearchResult struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   *string    `json:"description"`
	AssetType     string     `json:"asset_type"`
	Status        string     `json:"status"`
	DurationMs    *int64     `json:"duration_ms"`
	FileSizeBytes *int64     `json:"file_size_bytes"`
	ThumbnailURL  *string    `json:"thumbnail_url"`
	RecordedAt    *time.Time `json:"recorded_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	Rank          *float64   `json:"rank,omitempty"`
	Headline      *string    `json:"headline,omitempty"`
}

// AssetSearchResponse 资产检索响应
type AssetSearchResponse struct {
	Query        string              `json:"query"`
	Total        int64               `json:"total"`
	Page         int                 `json:"page"`
	PageSize     int                 `json:"page_size"`
	Results      []AssetSearchResult `json:"results"`
	SearchTimeMs int64               `json:"search_time_ms"`
}

// ThumbnailURL 缩略图地址，baseURL 为空时不返回
func ThumbnailURL(baseURL, assetID string) *string {
	if baseURL == "" {
		return nil
	}
	u := fmt.Sprintf("%s/%s/thumbnail.jpg", baseURL, assetID)
	return &u
}

func toAssetSearchResult(a *entity.Asset, thumbBase string) AssetSearchResult {
	return AssetSearchResult{
		ID:            a.ID,
		Title:         a.Title,
		Description:   a.Description,
		AssetType:     string(a.AssetType),
		Status:        string(a.Status),
		DurationMs:    a.DurationMs,
		FileSizeBytes: a.FileSizeBytes,
		ThumbnailURL:  ThumbnailURL(thumbBase, a.ID),
		RecordedAt:    a.RecordedAt,
		CreatedAt:     a.CreatedAt,
	}
}

// ToAssetTextSearchResponse 全文检索响应
func ToAssetTextSearchResponse(query string, page *repository.PagedResult[*repository.AssetHit], tookMs int64, thumbBase string) *AssetSearchResponse {
	out := &AssetSearchResponse{
		Query:        query,
		Total:        page.Total,
		Page:         page.Page,
		PageSize:     page.PageSize,
		Results:      make([]AssetSearchResult, 0, len(page.Items)),
		SearchTimeMs: tookMs,
	}
	for _, hit := range page.Items {
		r := toAssetSearchResult(hit.Asset, thumbBase)
		rank := hit.Rank
		r.Rank = &rank
		if hit.Headline != "" {
			headline := hit.Headline
			r.Headline = &headline
		}
		out.Results = append(out.Results, r)
	}
	return out
}

// ToAssetAdvancedSearchResponse 高级检索响应
func ToAssetAdvancedSearchResponse(query string, page *repository.PagedResult[*entity.Asset], tookMs int64, thumbBase string) *AssetSearchResponse {
	out := &AssetSearchResponse{
		Query:        query,
		Total:        page.Total,
		Page:         page.Page,
		PageSize:     page.PageSize,
		Results:      make([]AssetSearchResult, 0, len(page.Items)),
		SearchTimeMs: tookMs,
	}
	for _, a := range page.Items {
		out.Results = append(out.Results, toAssetSearchResult(a, thumbBase))
	}
	return out
}
