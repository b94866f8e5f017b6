package repository

import (
	"context"

	"mam-search-api/internal/domain/entity"
)

// TenantRepository 租户仓储接口
type TenantRepository interface {
	// GetByID 根据 ID 获取租户
	GetByID(ctx context.Context, id string) (*entity.Tenant, error)

	// GetByCode 根据编码获取租户
	GetByCode(ctx context.Context, code string) (*entity.Tenant, error)

	// Create 创建租户
	Create(ctx context.Context, tenant *entity.Tenant) error
}
