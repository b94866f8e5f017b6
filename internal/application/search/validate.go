package search

import (
	"strings"
	"unicode/utf8"
)

const (
	maxQueryRunes = 500
	defaultLimit  = 20
	maxLimit      = 100
)

// Normalize 校验并补全请求默认值，返回规范化后的副本
func (r Request) Normalize() (Request, error) {
	r.Query = strings.TrimSpace(r.Query)
	if r.Query == "" {
		return r, invalid("query", "must not be empty")
	}
	if n := utf8.RuneCountInString(r.Query); n > maxQueryRunes {
		return r, invalid("query", "must be at most %d characters, got %d", maxQueryRunes, n)
	}

	if r.Limit == 0 {
		r.Limit = defaultLimit
	}
	if r.Limit < 1 || r.Limit > maxLimit {
		return r, invalid("limit", "must be between 1 and %d", maxLimit)
	}
	if r.Offset < 0 {
		return r, invalid("offset", "must not be negative")
	}

	r.FaceImage = strings.TrimSpace(r.FaceImage)
	if err := r.Filters.Validate(); err != nil {
		return r, err
	}
	return r, nil
}

// Validate 校验过滤条件
func (f Filters) Validate() error {
	if f.AssetType != "" && !f.AssetType.IsValid() {
		return invalid("filters.asset_type", "unknown asset type %q", f.AssetType)
	}
	if f.Status != "" && !f.Status.IsValid() {
		return invalid("filters.status", "unknown status %q", f.Status)
	}
	if f.DateFrom != nil && f.DateTo != nil && f.DateFrom.After(*f.DateTo) {
		return invalid("filters.date_from", "must not be after date_to")
	}
	if f.MinDurationMs != nil && *f.MinDurationMs < 0 {
		return invalid("filters.min_duration_ms", "must not be negative")
	}
	if f.MaxDurationMs != nil && *f.MaxDurationMs < 0 {
		return invalid("filters.max_duration_ms", "must not be negative")
	}
	if f.MinDurationMs != nil && f.MaxDurationMs != nil && *f.MinDurationMs > *f.MaxDurationMs {
		return invalid("filters.min_duration_ms", "must not exceed max_duration_ms")
	}
	return nil
}
