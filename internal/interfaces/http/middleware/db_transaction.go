package middleware

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"mam-search-api/internal/domain/repository"
	"mam-search-api/pkg/errors"
	"mam-search-api/pkg/logger"
)

type rollbackOnlyError struct {
	status int
}

func (e rollbackOnlyError) Error() string {
	return fmt.Sprintf("rollback only: status=%d", e.status)
}

// DBTransaction 将请求包裹在数据库事务中，并在事务内设置 app.current_tenant_id 供 RLS 使用。
// 状态码 >= 400 或存在 Gin 错误时回滚。
// 仅用于任务读路由，写路由与检索路由不走请求级事务。
func DBTransaction(tx repository.Transactor, tenantCtx repository.TenantContextManager) gin.HandlerFunc {
	if tx == nil || tenantCtx == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		tenantID := GetTenantIDFromGin(c)

		err := tx.WithTransaction(ctx, func(txCtx context.Context) error {
			// 设置租户上下文 (RLS)，须在任何查询之前
			if tenantID != "" {
				if err := tenantCtx.SetTenant(txCtx, tenantID); err != nil {
					return err
				}
			}

			// 将包含事务的 Context 注入请求，执行后续处理器
			c.Request = c.Request.WithContext(txCtx)
			c.Next()

			// 错误状态码或 Gin 错误触发回滚
			status := c.Writer.Status()
			if status >= http.StatusBadRequest || len(c.Errors) > 0 {
				return rollbackOnlyError{status: status}
			}
			return nil
		})
		if err == nil {
			return
		}

		// 主动回滚时响应已由处理器写入
		var rbErr rollbackOnlyError
		if stderrors.As(err, &rbErr) {
			return
		}

		// 提交失败等数据库错误返回 500
		logger.Error(ctx, "db transaction failed", err)
		if !c.Writer.Written() {
			abortWithError(c, errors.ErrInternalError)
		}
	}
}
