package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"mam-search-api/internal/application/search"
	"mam-search-api/internal/interfaces/http/dto"
)

// MultimodalSearcher 多模态检索
type MultimodalSearcher interface {
	Search(ctx context.Context, tenantID string, req search.Request) (*search.Response, error)
}

// Suggester 搜索建议
type Suggester interface {
	Suggest(ctx context.Context, tenantID, q string, limit int) ([]search.Suggestion, error)
}

// SearchHandler 多模态检索处理器
type SearchHandler struct {
	searcher  MultimodalSearcher
	suggester Suggester
}

// NewSearchHandler 创建多模态检索处理器
func NewSearchHandler(searcher MultimodalSearcher, suggester Suggester) *SearchHandler {
	return &SearchHandler{searcher: searcher, suggester: suggester}
}

// Multimodal 多模态检索
// @Summary 多模态检索
// @Description 同时检索转写、场景、关键词、元数据与人脸，按 RRF 融合排序
// @Tags Search
// @Accept json
// @Produce json
// @Param request body dto.MultimodalSearchRequest true "检索请求"
// @Success 200 {object} dto.Response[dto.MultimodalSearchResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/search/multimodal [post]
func (h *SearchHandler) Multimodal(c *gin.Context) {
	tenant, ok := tenantID(c)
	if !ok {
		return
	}

	var req dto.MultimodalSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.ValidationError(c, "body", err.Error())
		return
	}

	// 检索指标由 search.Service 记录
	resp, err := h.searcher.Search(c.Request.Context(), tenant, req.ToSearchRequest())
	if err != nil {
		writeError(c, err, "failed to search")
		return
	}

	dto.Success(c, dto.ToMultimodalSearchResponse(resp))
}

// Suggestions 关键词与人物建议
// @Summary 多模态检索建议
// @Tags Search
// @Produce json
// @Param q query string true "前缀，至少 2 个字符"
// @Param limit query int false "返回数量 1-20，默认 10"
// @Success 200 {object} dto.Response[[]search.Suggestion]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/search/multimodal/suggestions [get]
func (h *SearchHandler) Suggestions(c *gin.Context) {
	tenant, ok := tenantID(c)
	if !ok {
		return
	}

	limit, err := dto.QueryInt(c, "limit")
	if err != nil {
		writeError(c, err, "invalid limit")
		return
	}

	out, err := h.suggester.Suggest(c.Request.Context(), tenant, c.Query("q"), limit)
	if err != nil {
		writeError(c, err, "failed to load suggestions")
		return
	}
	if out == nil {
		out = []search.Suggestion{}
	}
	dto.Success(c, out)
}
