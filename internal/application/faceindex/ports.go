// Package faceindex 人脸索引任务：提交、查询、重试、取消，以及 job-worker 中的索引执行
package faceindex

import (
	"context"

	"go.opentelemetry.io/otel"

	"mam-search-api/internal/domain/entity"
	"mam-search-api/internal/infrastructure/messaging"
)

var tracer = otel.Tracer("faceindex")

// JobPublisher 任务消息发布
type JobPublisher interface {
	PublishMediaJob(ctx context.Context, job *messaging.MediaJobMessage) (string, error)
}

// VectorStore 人脸向量索引
type VectorStore interface {
	IndexFaces(ctx context.Context, tenantID string, faces []*entity.AssetFace) error
	DeleteFacesByAsset(ctx context.Context, tenantID, assetID string) error
}

// SuggestionInvalidator 清理租户的建议缓存
type SuggestionInvalidator interface {
	InvalidateSuggestions(ctx context.Context, tenantID string) error
}
