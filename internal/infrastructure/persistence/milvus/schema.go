package milvus

import (
	"strconv"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	domain "mam-search-api/internal/domain/entity"
)

const (
	// CollectionFaces 人脸向量集合
	CollectionFaces = "asset_faces"

	fieldID         = "id"
	fieldVector     = "vector"
	fieldTenantID   = "tenant_id"
	fieldAssetID    = "asset_id"
	fieldPersonID   = "person_id"
	fieldTimecodeMs = "timecode_ms"
)

func varcharField(name string, maxLen int) *entity.Field {
	return &entity.Field{
		Name:       name,
		DataType:   entity.FieldTypeVarChar,
		TypeParams: map[string]string{"max_length": strconv.Itoa(maxLen)},
	}
}

// FacesSchema 人脸向量 Collection Schema
func FacesSchema(collectionName string, dim int) *entity.Schema {
	id := varcharField(fieldID, 64)
	id.PrimaryKey = true

	return &entity.Schema{
		CollectionName: collectionName,
		Description:    "Face embeddings detected in media assets",
		Fields: []*entity.Field{
			id,
			{
				Name:       fieldVector,
				DataType:   entity.FieldTypeFloatVector,
				TypeParams: map[string]string{"dim": strconv.Itoa(dim)},
			},
			varcharField(fieldTenantID, 64),
			varcharField(fieldAssetID, 64),
			varcharField(fieldPersonID, 64),
			{Name: fieldTimecodeMs, DataType: entity.FieldTypeInt64},
		},
	}
}

// FaceVector 写入 Milvus 的人脸向量
type FaceVector struct {
	ID         string
	Vector     []float32
	TenantID   string
	AssetID    string
	PersonID   string
	TimecodeMs int64
}

// ToFaceVectors 人脸实体转向量记录，person_id 为空时写入空串
func ToFaceVectors(faces []*domain.AssetFace) []*FaceVector {
	out := make([]*FaceVector, 0, len(faces))
	for _, f := range faces {
		v := &FaceVector{
			ID:         f.ID,
			Vector:     f.Embedding,
			TenantID:   f.TenantID,
			AssetID:    f.AssetID,
			TimecodeMs: f.TimecodeMs,
		}
		if f.PersonID != nil {
			v.PersonID = *f.PersonID
		}
		out = append(out, v)
	}
	return out
}

// FaceHit 人脸近邻结果
type FaceHit struct {
	ID         string
	AssetID    string
	PersonID   string
	TimecodeMs int64
	Score      float32
}

// PartitionName 租户分区名称，分区名仅允许字母、数字和下划线
func PartitionName(tenantID string) string {
	return "tenant_" + strings.ReplaceAll(tenantID, "-", "_")
}
