package milvus

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"mam-search-api/internal/application/search"
)

const maxTopK = 16384

// FaceSearcher 租户分区内的人脸近邻检索
type FaceSearcher interface {
	SearchFaces(ctx context.Context, tenantID string, vector []float32, topK int) ([]*FaceHit, error)
}

// AssetHydrator 从关系库补全展示字段，过滤条件在此下推
type AssetHydrator interface {
	HydrateAssets(ctx context.Context, tenantID string, ids []uuid.UUID, filters search.Filters) (map[uuid.UUID]search.DisplayFields, error)
	PersonNames(ctx context.Context, tenantID string, ids []uuid.UUID) (map[uuid.UUID]string, error)
}

// FaceIndex 基于 Milvus 的人脸索引
type FaceIndex struct {
	searcher FaceSearcher
	hydrator AssetHydrator
	// overfetch 有过滤条件时的放大倍数
	overfetch int
}

// NewFaceIndex 创建 Milvus 人脸索引
func NewFaceIndex(searcher FaceSearcher, hydrator AssetHydrator) *FaceIndex {
	return &FaceIndex{searcher: searcher, hydrator: hydrator, overfetch: 4}
}

func hasFilters(f search.Filters) bool {
	return f.AssetType != "" || f.Status != "" || f.DateFrom != nil || f.DateTo != nil ||
		len(f.CollectionIDs) > 0 || len(f.PersonIDs) > 0 || f.MinDurationMs != nil || f.MaxDurationMs != nil
}

// NearestFaces 近邻检索后补全资产与人物信息，被过滤掉的资产不返回
func (i *FaceIndex) NearestFaces(ctx context.Context, q search.FaceQuery) ([]search.Candidate, error) {
	topK := q.Limit
	if hasFilters(q.Filters) {
		topK *= i.overfetch
	}
	if topK > maxTopK {
		topK = maxTopK
	}

	hits, err := i.searcher.SearchFaces(ctx, q.TenantID, q.Embedding, topK)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return []search.Candidate{}, nil
	}

	assetIDs := make([]uuid.UUID, 0, len(hits))
	personIDs := make([]uuid.UUID, 0)
	seenAsset := make(map[uuid.UUID]bool)
	seenPerson := make(map[uuid.UUID]bool)
	for _, h := range hits {
		aid, err := uuid.Parse(h.AssetID)
		if err != nil {
			return nil, fmt.Errorf("invalid asset id %q in face index: %w", h.AssetID, err)
		}
		if !seenAsset[aid] {
			seenAsset[aid] = true
			assetIDs = append(assetIDs, aid)
		}
		if pid, err := uuid.Parse(h.PersonID); err == nil && !seenPerson[pid] {
			seenPerson[pid] = true
			personIDs = append(personIDs, pid)
		}
	}

	display, err := i.hydrator.HydrateAssets(ctx, q.TenantID, assetIDs, q.Filters)
	if err != nil {
		return nil, err
	}
	names, err := i.hydrator.PersonNames(ctx, q.TenantID, personIDs)
	if err != nil {
		return nil, err
	}

	out := make([]search.Candidate, 0, len(hits))
	for _, h := range hits {
		aid := uuid.MustParse(h.AssetID)
		d, ok := display[aid]
		if !ok {
			continue
		}
		tc := h.TimecodeMs
		m := search.FaceMatch{TimecodeMs: &tc, Similarity: float64(h.Score)}
		if pid, err := uuid.Parse(h.PersonID); err == nil {
			m.PersonID = &pid
			if name, ok := names[pid]; ok {
				m.PersonName = &name
			}
		}
		out = append(out, search.Candidate{AssetID: aid, Display: d, Match: m})
		if len(out) == q.Limit {
			break
		}
	}
	return out, nil
}
