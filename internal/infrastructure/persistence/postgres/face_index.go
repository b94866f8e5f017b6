package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mam-search-api/internal/application/search"
	"mam-search-api/internal/config"
)

type faceRow struct {
	AssetRow
	TimecodeMs int64         `gorm:"column:timecode_ms"`
	PersonID   uuid.NullUUID `gorm:"column:person_id"`
	PersonName *string       `gorm:"column:person_name"`
	Similarity float64       `gorm:"column:similarity"`
}

// FaceIndex 基于 pgvector 的人脸近邻检索（余弦距离）
type FaceIndex struct {
	client *Client
	mapper displayMapper
}

// NewFaceIndex 创建 pgvector 人脸索引
func NewFaceIndex(client *Client, cfg *config.SearchConfig) *FaceIndex {
	return &FaceIndex{
		client: client,
		mapper: displayMapper{thumbnailBaseURL: strings.TrimRight(cfg.ThumbnailBaseURL, "/")},
	}
}

func (i *FaceIndex) nearestQuery(db *gorm.DB, q search.FaceQuery) *gorm.DB {
	vec := formatVector(q.Embedding)
	return db.Table("asset_faces AS f").
		Select(assetColumns+", f.timecode_ms, f.person_id, p.name AS person_name, 1 - (f.face_embedding <=> ?::vector) AS similarity", vec).
		Joins("JOIN assets a ON a.id = f.asset_id").
		Joins("LEFT JOIN persons p ON p.id = f.person_id").
		Where("f.tenant_id = ?", q.TenantID).
		Where("f.face_embedding IS NOT NULL").
		Scopes(AssetFilterScope(q.TenantID, q.Filters)).
		Order(clause.OrderBy{Expression: clause.Expr{
			SQL:                "f.face_embedding <=> ?::vector",
			Vars:               []interface{}{vec},
			WithoutParentheses: true,
		}}).
		Limit(q.Limit)
}

// NearestFaces 按余弦相似度降序返回最近的人脸
func (i *FaceIndex) NearestFaces(ctx context.Context, q search.FaceQuery) ([]search.Candidate, error) {
	ctx, span := tracer.Start(ctx, "postgres.FaceIndex.NearestFaces")
	defer span.End()

	var rows []faceRow
	if err := i.nearestQuery(getDB(ctx, i.client.db), q).Scan(&rows).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to search faces: %w", err)
	}

	out := make([]search.Candidate, 0, len(rows))
	for _, row := range rows {
		tc := row.TimecodeMs
		m := search.FaceMatch{TimecodeMs: &tc, PersonName: row.PersonName, Similarity: row.Similarity}
		if row.PersonID.Valid {
			pid := row.PersonID.UUID
			m.PersonID = &pid
		}
		out = append(out, search.Candidate{
			AssetID: row.AssetID,
			Display: i.mapper.display(row.AssetRow),
			Match:   m,
		})
	}
	return out, nil
}
