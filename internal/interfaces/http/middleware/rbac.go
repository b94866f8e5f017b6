package middleware

import (
	"github.com/gin-gonic/gin"

	"mam-search-api/internal/domain/entity"
	"mam-search-api/pkg/errors"
)

// Permission 权限类型
type Permission string

const (
	PermSearchRead Permission = "search:read"
	PermJobsRead   Permission = "jobs:read"
	PermJobsWrite  Permission = "jobs:write"
)

var rolePermissions = map[entity.UserRole][]Permission{
	entity.UserRoleAdmin:  {PermSearchRead, PermJobsRead, PermJobsWrite},
	entity.UserRoleEditor: {PermSearchRead, PermJobsRead, PermJobsWrite},
	entity.UserRoleViewer: {PermSearchRead, PermJobsRead},
}

// HasPermission 检查角色是否具有指定权限
func HasPermission(role entity.UserRole, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}

// RequirePermission 权限检查中间件
// 未经 Token 认证的请求（认证关闭的部署）直接放行
func RequirePermission(perm Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAuthenticated(c) {
			c.Next()
			return
		}

		role := entity.UserRole(c.GetString("role"))
		if role == "" {
			abortWithError(c, errors.ErrPermissionDenied.WithDetail("missing role in token"))
			return
		}
		if !HasPermission(role, perm) {
			abortWithError(c, errors.ErrPermissionDenied.WithDetail(string(perm)))
			return
		}

		c.Next()
	}
}
