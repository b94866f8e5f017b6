package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"mam-search-api/internal/application/assetsearch"
	"mam-search-api/internal/application/search"
	"mam-search-api/internal/domain/entity"
	"mam-search-api/internal/interfaces/http/dto"
)

// AssetSearcher 资产检索
type AssetSearcher interface {
	Search(ctx context.Context, tenantID string, req assetsearch.TextRequest) (*assetsearch.TextResponse, error)
	Advanced(ctx context.Context, tenantID string, req assetsearch.AdvancedRequest) (*assetsearch.AdvancedResponse, error)
	Suggest(ctx context.Context, tenantID, q string, limit int) ([]search.Suggestion, error)
}

// AssetSearchHandler 资产检索处理器
type AssetSearchHandler struct {
	svc          AssetSearcher
	thumbnailURL string
}

// NewAssetSearchHandler 创建资产检索处理器
func NewAssetSearchHandler(svc AssetSearcher, thumbnailBaseURL string) *AssetSearchHandler {
	return &AssetSearchHandler{svc: svc, thumbnailURL: strings.TrimRight(thumbnailBaseURL, "/")}
}

// Search 全文检索
// @Summary 资产全文检索
// @Tags Search
// @Produce json
// @Param q query string true "查询词，2-500 个字符"
// @Param asset_type query string false "资产类型"
// @Param status query string false "资产状态"
// @Param date_from query string false "创建时间起"
// @Param date_to query string false "创建时间止"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} dto.Response[dto.AssetSearchResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/search [get]
func (h *AssetSearchHandler) Search(c *gin.Context) {
	tenant, ok := tenantID(c)
	if !ok {
		return
	}

	req, err := bindTextRequest(c)
	if err != nil {
		writeError(c, err, "invalid search parameters")
		return
	}

	resp, err := h.svc.Search(c.Request.Context(), tenant, req)
	if err != nil {
		writeError(c, err, "failed to search assets")
		return
	}
	dto.Success(c, dto.ToAssetTextSearchResponse(resp.Query, resp.Result, resp.SearchTimeMs, h.thumbnailURL))
}

// Advanced 高级检索
// @Summary 资产高级检索
// @Tags Search
// @Produce json
// @Param q query string false "全文查询"
// @Param title query string false "标题包含"
// @Param description query string false "描述包含"
// @Param keywords query string false "逗号分隔的关键词"
// @Param sort_by query string false "排序字段"
// @Param sort_order query string false "asc 或 desc"
// @Success 200 {object} dto.Response[dto.AssetSearchResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/search/advanced [get]
func (h *AssetSearchHandler) Advanced(c *gin.Context) {
	tenant, ok := tenantID(c)
	if !ok {
		return
	}

	req, err := bindAdvancedRequest(c)
	if err != nil {
		writeError(c, err, "invalid search parameters")
		return
	}

	resp, err := h.svc.Advanced(c.Request.Context(), tenant, req)
	if err != nil {
		writeError(c, err, "failed to search assets")
		return
	}
	dto.Success(c, dto.ToAssetAdvancedSearchResponse(req.Query, resp.Result, resp.SearchTimeMs, h.thumbnailURL))
}

// Suggestions 标题与关键词建议
// @Summary 资产检索建议
// @Tags Search
// @Produce json
// @Param q query string true "前缀"
// @Param limit query int false "返回数量"
// @Success 200 {object} dto.Response[[]search.Suggestion]
// @Router /v1/search/suggestions [get]
func (h *AssetSearchHandler) Suggestions(c *gin.Context) {
	tenant, ok := tenantID(c)
	if !ok {
		return
	}

	limit, err := dto.QueryInt(c, "limit")
	if err != nil {
		writeError(c, err, "invalid limit")
		return
	}

	out, err := h.svc.Suggest(c.Request.Context(), tenant, c.Query("q"), limit)
	if err != nil {
		writeError(c, err, "failed to load suggestions")
		return
	}
	if out == nil {
		out = []search.Suggestion{}
	}
	dto.Success(c, out)
}

func bindTextRequest(c *gin.Context) (assetsearch.TextRequest, error) {
	req := assetsearch.TextRequest{
		Query:     c.Query("q"),
		AssetType: entity.AssetType(c.Query("asset_type")),
		Status:    entity.AssetStatus(c.Query("status")),
	}
	var err error
	if req.DateFrom, err = dto.QueryTime(c, "date_from"); err != nil {
		return req, err
	}
	if req.DateTo, err = dto.QueryTime(c, "date_to"); err != nil {
		return req, err
	}
	if req.Page, err = dto.QueryInt(c, "page"); err != nil {
		return req, err
	}
	if req.PageSize, err = dto.QueryInt(c, "page_size"); err != nil {
		return req, err
	}
	return req, nil
}

func bindAdvancedRequest(c *gin.Context) (assetsearch.AdvancedRequest, error) {
	req := assetsearch.AdvancedRequest{
		KeywordsRaw: c.Query("keywords"),
		SortBy:      c.Query("sort_by"),
		SortOrder:   c.Query("sort_order"),
	}
	req.Query = c.Query("q")
	req.Title = c.Query("title")
	req.Description = c.Query("description")
	req.AssetType = entity.AssetType(c.Query("asset_type"))
	req.Status = entity.AssetStatus(c.Query("status"))
	req.Visibility = entity.Visibility(c.Query("visibility"))

	var err error
	if req.CreatedFrom, err = dto.QueryTime(c, "created_from"); err != nil {
		return req, err
	}
	if req.CreatedTo, err = dto.QueryTime(c, "created_to"); err != nil {
		return req, err
	}
	if req.RecordedFrom, err = dto.QueryTime(c, "recorded_from"); err != nil {
		return req, err
	}
	if req.RecordedTo, err = dto.QueryTime(c, "recorded_to"); err != nil {
		return req, err
	}
	if req.MinDurationMs, err = dto.QueryInt64Ptr(c, "min_duration_ms"); err != nil {
		return req, err
	}
	if req.MaxDurationMs, err = dto.QueryInt64Ptr(c, "max_duration_ms"); err != nil {
		return req, err
	}
	if req.MinSizeBytes, err = dto.QueryInt64Ptr(c, "min_size_bytes"); err != nil {
		return req, err
	}
	if req.MaxSizeBytes, err = dto.QueryInt64Ptr(c, "max_size_bytes"); err != nil {
		return req, err
	}
	if req.Page, err = dto.QueryInt(c, "page"); err != nil {
		return req, err
	}
	if req.PageSize, err = dto.QueryInt(c, "page_size"); err != nil {
		return req, err
	}
	return req, nil
}
