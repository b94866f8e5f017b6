// Package entity 定义领域实体
package entity

import (
	"time"
)

// AssetType 资产类型
type AssetType string

const (
	AssetTypeVideo    AssetType = "video"
	AssetTypeAudio    AssetType = "audio"
	AssetTypeImage    AssetType = "image"
	AssetTypeDocument AssetType = "document"
	AssetTypeSequence AssetType = "sequence"
)

// IsValid 检查资产类型是否合法
func (t AssetType) IsValid() bool {
	switch t {
	case AssetTypeVideo, AssetTypeAudio, AssetTypeImage, AssetTypeDocument, AssetTypeSequence:
		return true
	}
	return false
}

// AssetStatus 资产状态
type AssetStatus string

const (
	AssetStatusIngesting  AssetStatus = "ingesting"
	AssetStatusProcessing AssetStatus = "processing"
	AssetStatusAvailable  AssetStatus = "available"
	AssetStatusReview     AssetStatus = "review"
	AssetStatusArchived   AssetStatus = "archived"
	AssetStatusDeleted    AssetStatus = "deleted"
)

// IsValid 检查资产状态是否合法
func (s AssetStatus) IsValid() bool {
	switch s {
	case AssetStatusIngesting, AssetStatusProcessing, AssetStatusAvailable,
		AssetStatusReview, AssetStatusArchived, AssetStatusDeleted:
		return true
	}
	return false
}

// Visibility 可见性
type Visibility string

const (
	VisibilityPrivate  Visibility = "private"
	VisibilityInternal Visibility = "internal"
	VisibilityPublic   Visibility = "public"
)

// IsValid 检查可见性是否合法
func (v Visibility) IsValid() bool {
	switch v {
	case VisibilityPrivate, VisibilityInternal, VisibilityPublic:
		return true
	}
	return false
}

// Asset 媒体资产（只读映射，表结构由上游服务维护）
type Asset struct {
	ID            string      `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID      string      `json:"tenant_id" gorm:"type:uuid;index;not null"`
	Code          *string     `json:"code,omitempty" gorm:"type:varchar(100)"`
	AssetType     AssetType   `json:"asset_type" gorm:"type:varchar(50);not null"`
	Title         string      `json:"title" gorm:"type:varchar(500);not null"`
	Description   *string     `json:"description,omitempty" gorm:"type:text"`
	DurationMs    *int64      `json:"duration_ms,omitempty"`
	RecordedAt    *time.Time  `json:"recorded_at,omitempty"`
	Status        AssetStatus `json:"status" gorm:"type:varchar(50)"`
	Visibility    Visibility  `json:"visibility" gorm:"type:varchar(50)"`
	FileSizeBytes *int64      `json:"file_size_bytes,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
	DeletedAt     *time.Time  `json:"deleted_at,omitempty"`
}

// TableName 指定表名
func (Asset) TableName() string {
	return "assets"
}

// IsAvailable 资产是否可用
func (a *Asset) IsAvailable() bool {
	return a.Status == AssetStatusAvailable && a.DeletedAt == nil
}
