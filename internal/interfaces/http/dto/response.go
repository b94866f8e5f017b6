package dto

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mam-search-api/pkg/errors"
)

// Response 统一响应结构，成功时 code 为 "0"
type Response[T any] struct {
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
	Data    T                `json:"data,omitempty"`
	Meta    *PageMeta        `json:"meta,omitempty"`
	TraceID string           `json:"trace_id,omitempty"`
}

// PageMeta 分页元数据
type PageMeta struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// ErrorDetail 错误详情
type ErrorDetail struct {
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}

// ErrorResponse 错误响应结构
type ErrorResponse struct {
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
	Error   *ErrorDetail     `json:"error,omitempty"`
	TraceID string           `json:"trace_id,omitempty"`
}

// Success 返回成功响应
func Success[T any](c *gin.Context, data T) {
	c.JSON(http.StatusOK, Response[T]{
		Code:    errors.CodeSuccess,
		Message: "success",
		Data:    data,
		TraceID: c.GetString("trace_id"),
	})
}

// SuccessWithPage 返回带分页的成功响应
func SuccessWithPage[T any](c *gin.Context, data T, meta *PageMeta) {
	c.JSON(http.StatusOK, Response[T]{
		Code:    errors.CodeSuccess,
		Message: "success",
		Data:    data,
		Meta:    meta,
		TraceID: c.GetString("trace_id"),
	})
}

// Accepted 返回接受处理响应 (202)
func Accepted[T any](c *gin.Context, data T) {
	c.JSON(http.StatusAccepted, Response[T]{
		Code:    errors.CodeSuccess,
		Message: "accepted",
		Data:    data,
		TraceID: c.GetString("trace_id"),
	})
}

// Error 返回错误响应
func Error(c *gin.Context, httpCode int, code errors.ErrorCode, message string) {
	c.JSON(httpCode, ErrorResponse{
		Code:    code,
		Message: message,
		TraceID: c.GetString("trace_id"),
	})
}

// AppError 按 AppError 的状态码与错误码渲染
func AppError(c *gin.Context, appErr *errors.AppError) {
	resp := ErrorResponse{
		Code:    appErr.Code,
		Message: appErr.Message,
		TraceID: c.GetString("trace_id"),
	}
	if appErr.Detail != "" {
		resp.Error = &ErrorDetail{Details: appErr.Detail}
	}
	c.JSON(appErr.HTTPStatus, resp)
}

// ValidationError 返回 400 字段校验错误
func ValidationError(c *gin.Context, field, reason string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Code:    errors.CodeInvalidParam,
		Message: "invalid parameter",
		Error:   &ErrorDetail{Field: field, Details: reason},
		TraceID: c.GetString("trace_id"),
	})
}

// InternalError 返回 500 错误
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, errors.CodeInternalError, message)
}

// NewPageMeta 创建分页元数据
func NewPageMeta(page, pageSize, total int) *PageMeta {
	totalPages := 0
	if pageSize > 0 {
		totalPages = total / pageSize
		if total%pageSize > 0 {
			totalPages++
		}
	}
	return &PageMeta{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
	}
}
