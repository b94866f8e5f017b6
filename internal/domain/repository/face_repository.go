package repository

import (
	"context"

	"mam-search-api/internal/domain/entity"
)

// FaceRepository 人脸向量仓储接口
type FaceRepository interface {
	// CountWithEmbedding 统计带 embedding 的人脸数，assetID 为空表示整个租户
	CountWithEmbedding(ctx context.Context, tenantID, assetID string) (int64, error)

	// ListWithEmbedding 按 id 游标分页读取带 embedding 的人脸
	ListWithEmbedding(ctx context.Context, tenantID, assetID, afterID string, limit int) ([]*entity.AssetFace, error)
}
