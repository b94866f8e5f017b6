// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"mam-search-api/internal/domain/entity"
)

// TenantRepository 租户仓储实现
type TenantRepository struct {
	client *Client
}

// NewTenantRepository 创建租户仓储
func NewTenantRepository(client *Client) *TenantRepository {
	return &TenantRepository{client: client}
}

// GetByID 根据 ID 获取租户
func (r *TenantRepository) GetByID(ctx context.Context, id string) (*entity.Tenant, error) {
	ctx, span := tracer.Start(ctx, "postgres.TenantRepository.GetByID")
	defer span.End()

	return r.first(ctx, "id = ?", id)
}

// GetByCode 根据编码获取租户
func (r *TenantRepository) GetByCode(ctx context.Context, code string) (*entity.Tenant, error) {
	ctx, span := tracer.Start(ctx, "postgres.TenantRepository.GetByCode")
	defer span.End()

	return r.first(ctx, "code = ?", code)
}

func (r *TenantRepository) first(ctx context.Context, cond string, arg any) (*entity.Tenant, error) {
	db := getDB(ctx, r.client.db)
	var tenant entity.Tenant
	if err := db.First(&tenant, cond, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		trace.SpanFromContext(ctx).RecordError(err)
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return &tenant, nil
}

// Create 创建租户，ID 由数据库生成
func (r *TenantRepository) Create(ctx context.Context, tenant *entity.Tenant) error {
	ctx, span := tracer.Start(ctx, "postgres.TenantRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(tenant).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create tenant: %w", err)
	}
	return nil
}
