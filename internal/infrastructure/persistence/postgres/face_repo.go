package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"mam-search-api/internal/domain/entity"
)

type faceEmbeddingRow struct {
	ID         string    `gorm:"column:id"`
	TenantID   string    `gorm:"column:tenant_id"`
	AssetID    string    `gorm:"column:asset_id"`
	PersonID   *string   `gorm:"column:person_id"`
	TimecodeMs int64     `gorm:"column:timecode_ms"`
	Confidence *float64  `gorm:"column:confidence"`
	Embedding  string    `gorm:"column:embedding"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

// FaceRepository 人脸向量仓储实现
type FaceRepository struct {
	client *Client
}

// NewFaceRepository 创建人脸仓储
func NewFaceRepository(client *Client) *FaceRepository {
	return &FaceRepository{client: client}
}

func (r *FaceRepository) scope(tenantID, assetID string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("tenant_id = ? AND face_embedding IS NOT NULL", tenantID)
		if assetID != "" {
			db = db.Where("asset_id = ?", assetID)
		}
		return db
	}
}

// CountWithEmbedding 统计带 embedding 的人脸数
func (r *FaceRepository) CountWithEmbedding(ctx context.Context, tenantID, assetID string) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.FaceRepository.CountWithEmbedding")
	defer span.End()

	var total int64
	err := getDB(ctx, r.client.db).Model(&entity.AssetFace{}).
		Scopes(r.scope(tenantID, assetID)).
		Count(&total).Error
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to count faces: %w", err)
	}
	return total, nil
}

func (r *FaceRepository) listQuery(db *gorm.DB, tenantID, assetID, afterID string, limit int) *gorm.DB {
	query := db.Table("asset_faces").
		Select("id, tenant_id, asset_id, person_id, timecode_ms, confidence, face_embedding::text AS embedding, created_at").
		Scopes(r.scope(tenantID, assetID))
	if afterID != "" {
		query = query.Where("id > ?", afterID)
	}
	return query.Order("id ASC").Limit(limit)
}

// ListWithEmbedding 按 id 游标读取一批人脸及其向量
func (r *FaceRepository) ListWithEmbedding(ctx context.Context, tenantID, assetID, afterID string, limit int) ([]*entity.AssetFace, error) {
	ctx, span := tracer.Start(ctx, "postgres.FaceRepository.ListWithEmbedding")
	defer span.End()

	var rows []faceEmbeddingRow
	if err := r.listQuery(getDB(ctx, r.client.db), tenantID, assetID, afterID, limit).Scan(&rows).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list faces: %w", err)
	}

	faces := make([]*entity.AssetFace, 0, len(rows))
	for _, row := range rows {
		vec, err := parseVector(row.Embedding)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to parse embedding of face %s: %w", row.ID, err)
		}
		faces = append(faces, &entity.AssetFace{
			ID:         row.ID,
			TenantID:   row.TenantID,
			AssetID:    row.AssetID,
			PersonID:   row.PersonID,
			TimecodeMs: row.TimecodeMs,
			Confidence: row.Confidence,
			Embedding:  vec,
			CreatedAt:  row.CreatedAt,
		})
	}
	return faces, nil
}
