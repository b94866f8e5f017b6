package repository

import (
	"context"

	"mam-search-api/internal/domain/entity"
)

// JobFilter 任务过滤条件
type JobFilter struct {
	JobType entity.JobType
	Status  entity.JobStatus
	AssetID string
}

// JobRepository 媒体任务仓储接口
type JobRepository interface {
	// Create 创建任务
	Create(ctx context.Context, job *entity.MediaJob) error

	// GetByID 根据 ID 获取任务（限定租户），不存在时返回 nil, nil
	GetByID(ctx context.Context, tenantID, id string) (*entity.MediaJob, error)

	// Update 更新任务
	Update(ctx context.Context, job *entity.MediaJob) error

	// ListByTenant 获取租户任务列表
	ListByTenant(ctx context.Context, tenantID string, filter *JobFilter, pagination Pagination) (*PagedResult[*entity.MediaJob], error)

	// MarkRunning 标记任务为运行中，仅对 pending 任务生效；返回是否成功抢占
	MarkRunning(ctx context.Context, id string) (bool, error)

	// UpdateProgress 更新任务进度（0-100）
	UpdateProgress(ctx context.Context, id string, progress int) error
}
