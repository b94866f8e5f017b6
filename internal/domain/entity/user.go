package entity

// UserRole 用户角色，来自访问令牌的 role 声明
type UserRole string

const (
	UserRoleAdmin  UserRole = "admin"
	UserRoleEditor UserRole = "editor"
	UserRoleViewer UserRole = "viewer"
)

// IsValid 是否为已知角色
func (r UserRole) IsValid() bool {
	switch r {
	case UserRoleAdmin, UserRoleEditor, UserRoleViewer:
		return true
	}
	return false
}
