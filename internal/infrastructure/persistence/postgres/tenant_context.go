package postgres

import (
	"context"
	"fmt"
)

// TenantContext 租户上下文管理（RLS 依赖 app.current_tenant_id）
type TenantContext struct {
	client *Client
	tx     *TxManager
}

// NewTenantContext 创建租户上下文管理器
func NewTenantContext(client *Client, tx *TxManager) *TenantContext {
	return &TenantContext{client: client, tx: tx}
}

// SetTenant 设置当前租户上下文（事务级，提交后失效）
func (tc *TenantContext) SetTenant(ctx context.Context, tenantID string) error {
	db := getDB(ctx, tc.client.db)
	err := db.Exec("SELECT set_config('app.current_tenant_id', ?, TRUE)", tenantID).Error
	if err != nil {
		return fmt.Errorf("failed to set tenant context: %w", err)
	}
	return nil
}

// ClearTenant 清除租户上下文
func (tc *TenantContext) ClearTenant(ctx context.Context) error {
	db := getDB(ctx, tc.client.db)
	err := db.Exec("SELECT set_config('app.current_tenant_id', '', TRUE)").Error
	if err != nil {
		return fmt.Errorf("failed to clear tenant context: %w", err)
	}
	return nil
}

// WithTenant 开启事务、设置租户后执行 fn
func (tc *TenantContext) WithTenant(ctx context.Context, tenantID string, fn func(ctx context.Context) error) error {
	return tc.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := tc.SetTenant(txCtx, tenantID); err != nil {
			return err
		}
		return fn(txCtx)
	})
}
