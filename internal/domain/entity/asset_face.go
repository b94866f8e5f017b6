package entity

import "time"

// AssetFace 资产中检测到的人脸（embedding 以 pgvector 存储）
type AssetFace struct {
	ID         string    `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID   string    `json:"tenant_id" gorm:"type:uuid;index;not null"`
	AssetID    string    `json:"asset_id" gorm:"type:uuid;index;not null"`
	PersonID   *string   `json:"person_id,omitempty" gorm:"type:uuid"`
	TimecodeMs int64     `json:"timecode_ms"`
	Confidence *float64  `json:"confidence,omitempty"`
	Embedding  []float32 `json:"-" gorm:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName 指定表名
func (AssetFace) TableName() string {
	return "asset_faces"
}

// Person 已知人物
type Person struct {
	ID              string    `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID        string    `json:"tenant_id" gorm:"type:uuid;index;not null"`
	Name            string    `json:"name" gorm:"type:varchar(255);not null"`
	AppearanceCount int       `json:"appearance_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Person) TableName() string {
	return "persons"
}
