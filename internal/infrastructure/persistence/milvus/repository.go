package milvus

import (
	"context"
	"fmt"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	domain "mam-search-api/internal/domain/entity"
	"mam-search-api/pkg/metrics"
)

// Repository 人脸向量仓储
type Repository struct {
	client *Client
}

// NewRepository 创建人脸向量仓储
func NewRepository(client *Client) *Repository {
	return &Repository{client: client}
}

func (r *Repository) ready() error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	return nil
}

// EnsureFacesCollection 确保人脸集合与 HNSW 索引存在并已加载，不做破坏性操作
func (r *Repository) EnsureFacesCollection(ctx context.Context) error {
	if err := r.ready(); err != nil {
		return err
	}
	collName := r.client.CollectionName(CollectionFaces)
	ctx, span := tracer.Start(ctx, "milvus.EnsureFacesCollection",
		trace.WithAttributes(attribute.String("collection", collName)))
	defer span.End()

	exists, err := r.client.milvus.HasCollection(ctx, collName)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if !exists {
		if err := r.client.milvus.CreateCollection(ctx, FacesSchema(collName, r.client.Dimension()), entity.DefaultShardNumber); err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to create collection: %w", err)
		}

		m, efConstruction, _ := r.client.hnswParams()
		idx, err := entity.NewIndexHNSW(r.client.MetricType(), m, efConstruction)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to build index params: %w", err)
		}
		if err := r.client.milvus.CreateIndex(ctx, collName, fieldVector, idx, false); err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return r.client.LoadCollection(ctx, CollectionFaces)
}

func (r *Repository) ensurePartition(ctx context.Context, collName, partition string) error {
	has, err := r.client.milvus.HasPartition(ctx, collName, partition)
	if err != nil {
		return fmt.Errorf("failed to check partition: %w", err)
	}
	if has {
		return nil
	}
	if err := r.client.milvus.CreatePartition(ctx, collName, partition); err != nil {
		return fmt.Errorf("failed to create partition: %w", err)
	}
	return nil
}

// UpsertFaces 写入或覆盖租户分区内的人脸向量
func (r *Repository) UpsertFaces(ctx context.Context, tenantID string, faces []*FaceVector) error {
	if err := r.ready(); err != nil {
		return err
	}
	ctx, span := tracer.Start(ctx, "milvus.UpsertFaces",
		trace.WithAttributes(
			attribute.String("tenant_id", tenantID),
			attribute.Int("count", len(faces)),
		))
	defer span.End()

	if len(faces) == 0 {
		return nil
	}

	collName := r.client.CollectionName(CollectionFaces)
	partition := PartitionName(tenantID)
	if err := r.ensurePartition(ctx, collName, partition); err != nil {
		span.RecordError(err)
		return err
	}

	dim := r.client.Dimension()
	ids := make([]string, len(faces))
	vectors := make([][]float32, len(faces))
	tenantIDs := make([]string, len(faces))
	assetIDs := make([]string, len(faces))
	personIDs := make([]string, len(faces))
	timecodes := make([]int64, len(faces))
	for i, f := range faces {
		if len(f.Vector) != dim {
			err := fmt.Errorf("face %s has dimension %d, want %d", f.ID, len(f.Vector), dim)
			span.RecordError(err)
			return err
		}
		ids[i] = f.ID
		vectors[i] = f.Vector
		tenantIDs[i] = f.TenantID
		assetIDs[i] = f.AssetID
		personIDs[i] = f.PersonID
		timecodes[i] = f.TimecodeMs
	}

	_, err := r.client.milvus.Upsert(ctx, collName, partition,
		entity.NewColumnVarChar(fieldID, ids),
		entity.NewColumnFloatVector(fieldVector, dim, vectors),
		entity.NewColumnVarChar(fieldTenantID, tenantIDs),
		entity.NewColumnVarChar(fieldAssetID, assetIDs),
		entity.NewColumnVarChar(fieldPersonID, personIDs),
		entity.NewColumnInt64(fieldTimecodeMs, timecodes),
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to upsert faces: %w", err)
	}

	metrics.MilvusUpsertedTotal.WithLabelValues(CollectionFaces).Add(float64(len(faces)))
	return nil
}

// IndexFaces 将人脸实体写入租户分区
func (r *Repository) IndexFaces(ctx context.Context, tenantID string, faces []*domain.AssetFace) error {
	return r.UpsertFaces(ctx, tenantID, ToFaceVectors(faces))
}

// SearchFaces 在租户分区内做近邻检索，结果按相似度降序
func (r *Repository) SearchFaces(ctx context.Context, tenantID string, vector []float32, topK int) ([]*FaceHit, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "milvus.SearchFaces",
		trace.WithAttributes(
			attribute.String("tenant_id", tenantID),
			attribute.Int("top_k", topK),
		))
	defer span.End()

	start := time.Now()
	hits, err := r.searchFaces(ctx, tenantID, vector, topK)
	metrics.MilvusSearchDuration.WithLabelValues(CollectionFaces).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.MilvusSearchTotal.WithLabelValues(CollectionFaces, "error").Inc()
		span.RecordError(err)
		return nil, err
	}
	metrics.MilvusSearchTotal.WithLabelValues(CollectionFaces, "success").Inc()
	span.SetAttributes(attribute.Int("result_count", len(hits)))
	return hits, nil
}

func (r *Repository) searchFaces(ctx context.Context, tenantID string, vector []float32, topK int) ([]*FaceHit, error) {
	collName := r.client.CollectionName(CollectionFaces)
	partition := PartitionName(tenantID)

	// 租户尚未建索引
	has, err := r.client.milvus.HasPartition(ctx, collName, partition)
	if err != nil {
		return nil, fmt.Errorf("failed to check partition: %w", err)
	}
	if !has {
		return []*FaceHit{}, nil
	}

	_, _, ef := r.client.hnswParams()
	sp, err := entity.NewIndexHNSWSearchParam(ef)
	if err != nil {
		return nil, fmt.Errorf("failed to create search param: %w", err)
	}

	results, err := r.client.milvus.Search(ctx,
		collName,
		[]string{partition},
		fmt.Sprintf("%s == %q", fieldTenantID, tenantID),
		[]string{fieldID, fieldAssetID, fieldPersonID, fieldTimecodeMs},
		[]entity.Vector{entity.FloatVector(vector)},
		fieldVector,
		r.client.MetricType(),
		topK,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search faces: %w", err)
	}

	var hits []*FaceHit
	for _, result := range results {
		for i := 0; i < result.ResultCount; i++ {
			hit := &FaceHit{Score: result.Scores[i]}
			if col, ok := result.Fields.GetColumn(fieldID).(*entity.ColumnVarChar); ok {
				hit.ID = col.Data()[i]
			}
			if col, ok := result.Fields.GetColumn(fieldAssetID).(*entity.ColumnVarChar); ok {
				hit.AssetID = col.Data()[i]
			}
			if col, ok := result.Fields.GetColumn(fieldPersonID).(*entity.ColumnVarChar); ok {
				hit.PersonID = col.Data()[i]
			}
			if col, ok := result.Fields.GetColumn(fieldTimecodeMs).(*entity.ColumnInt64); ok {
				hit.TimecodeMs = col.Data()[i]
			}
			hits = append(hits, hit)
		}
	}
	return hits, nil
}

// DeleteFacesByAsset 删除资产的全部人脸向量
func (r *Repository) DeleteFacesByAsset(ctx context.Context, tenantID, assetID string) error {
	if err := r.ready(); err != nil {
		return err
	}
	ctx, span := tracer.Start(ctx, "milvus.DeleteFacesByAsset",
		trace.WithAttributes(attribute.String("asset_id", assetID)))
	defer span.End()

	collName := r.client.CollectionName(CollectionFaces)
	partition := PartitionName(tenantID)
	if has, err := r.client.milvus.HasPartition(ctx, collName, partition); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to check partition: %w", err)
	} else if !has {
		return nil
	}

	if err := r.client.milvus.Delete(ctx, collName, partition, fmt.Sprintf("%s == %q", fieldAssetID, assetID)); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete faces: %w", err)
	}
	return nil
}
