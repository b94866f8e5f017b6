// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	stderrors "errors"

	"github.com/gin-gonic/gin"

	"mam-search-api/internal/application/search"
	"mam-search-api/internal/interfaces/http/dto"
	"mam-search-api/internal/interfaces/http/middleware"
	"mam-search-api/pkg/errors"
	"mam-search-api/pkg/logger"
)

// tenantID 从请求上下文取租户，缺失时写入 400 并返回 false
func tenantID(c *gin.Context) (string, bool) {
	id := middleware.GetTenantIDFromGin(c)
	if id == "" {
		dto.AppError(c, errors.ErrTenantRequired)
		return "", false
	}
	return id, true
}

// writeError 将应用层错误映射为统一错误响应
func writeError(c *gin.Context, err error, msg string) {
	var ve *search.ValidationError
	if stderrors.As(err, &ve) {
		dto.ValidationError(c, ve.Field, ve.Reason)
		return
	}
	var qe *dto.QueryError
	if stderrors.As(err, &qe) {
		dto.ValidationError(c, qe.Field, qe.Reason)
		return
	}
	if stderrors.Is(err, search.ErrTenantRequired) {
		dto.AppError(c, errors.ErrTenantRequired)
		return
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		logger.Warn(c.Request.Context(), "request canceled", "path", c.FullPath(), "error", err.Error())
		dto.AppError(c, errors.ErrRequestCanceled)
		return
	}
	if errors.IsAppError(err) {
		appErr := errors.AsAppError(err)
		if appErr.HTTPStatus >= 500 {
			logger.Error(c.Request.Context(), msg, err)
		}
		dto.AppError(c, appErr)
		return
	}

	logger.Error(c.Request.Context(), msg, err)
	dto.InternalError(c, msg)
}
