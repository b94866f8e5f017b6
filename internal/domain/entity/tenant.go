// Package entity 定义领域实体
package entity

import (
	"time"
)

// TenantStatus 租户状态
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "active"
	TenantStatusSuspended TenantStatus = "suspended"
)

// TenantSettings 租户设置
type TenantSettings struct {
	TextSearchConfig string `json:"text_search_config,omitempty"`
	DefaultLanguage  string `json:"default_language,omitempty"`
}

// Tenant 租户实体
type Tenant struct {
	ID        string          `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Code      string          `json:"code" gorm:"type:varchar(50);uniqueIndex;not null"`
	Name      string          `json:"name" gorm:"type:varchar(255);not null"`
	Type      string          `json:"type" gorm:"type:varchar(50)"`
	Settings  *TenantSettings `json:"settings,omitempty" gorm:"type:jsonb;serializer:json"`
	IsActive  bool            `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Tenant) TableName() string {
	return "tenants"
}

// NewTenant 创建新租户
func NewTenant(code, name, tenantType string) *Tenant {
	now := time.Now()
	return &Tenant{
		Code:      code,
		Name:      name,
		Type:      tenantType,
		Settings:  &TenantSettings{},
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Status 租户状态
func (t *Tenant) Status() TenantStatus {
	if t.IsActive {
		return TenantStatusActive
	}
	return TenantStatusSuspended
}
