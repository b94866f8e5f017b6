package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"mam-search-api/internal/domain/entity"
	"mam-search-api/internal/domain/repository"
)

// JobRepository 媒体任务仓储实现
type JobRepository struct {
	client *Client
}

// NewJobRepository 创建任务仓储
func NewJobRepository(client *Client) *JobRepository {
	return &JobRepository{client: client}
}

// Create 创建任务
func (r *JobRepository) Create(ctx context.Context, job *entity.MediaJob) error {
	ctx, span := tracer.Start(ctx, "postgres.JobRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(job).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取任务
func (r *JobRepository) GetByID(ctx context.Context, tenantID, id string) (*entity.MediaJob, error) {
	ctx, span := tracer.Start(ctx, "postgres.JobRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var job entity.MediaJob
	if err := db.First(&job, "tenant_id = ? AND id = ?", tenantID, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// Update 更新任务
func (r *JobRepository) Update(ctx context.Context, job *entity.MediaJob) error {
	ctx, span := tracer.Start(ctx, "postgres.JobRepository.Update")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Save(job).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update job: %w", err)
	}
	return nil
}

// ListByTenant 获取租户任务列表
func (r *JobRepository) ListByTenant(ctx context.Context, tenantID string, filter *repository.JobFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.MediaJob], error) {
	ctx, span := tracer.Start(ctx, "postgres.JobRepository.ListByTenant")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.MediaJob{}).Where("tenant_id = ?", tenantID)

	if filter != nil {
		if filter.AssetID != "" {
			query = query.Where("asset_id = ?", filter.AssetID)
		}
		if filter.JobType != "" {
			query = query.Where("job_type = ?", filter.JobType)
		}
		if filter.Status != "" {
			query = query.Where("status = ?", filter.Status)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}

	var jobs []*entity.MediaJob
	if err := query.Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&jobs).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	return repository.NewPagedResult(jobs, total, pagination), nil
}

// MarkRunning 将 pending 任务置为 running，已被处理或取消的任务返回 false
func (r *JobRepository) MarkRunning(ctx context.Context, id string) (bool, error) {
	ctx, span := tracer.Start(ctx, "postgres.JobRepository.MarkRunning")
	defer span.End()

	db := getDB(ctx, r.client.db)
	res := db.Model(&entity.MediaJob{}).
		Where("id = ? AND status = ?", id, entity.JobStatusPending).
		Updates(map[string]interface{}{
			"status":     entity.JobStatusRunning,
			"started_at": time.Now(),
		})
	if res.Error != nil {
		span.RecordError(res.Error)
		return false, fmt.Errorf("failed to mark job running: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// UpdateProgress 更新任务进度
func (r *JobRepository) UpdateProgress(ctx context.Context, id string, progress int) error {
	ctx, span := tracer.Start(ctx, "postgres.JobRepository.UpdateProgress")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Model(&entity.MediaJob{}).Where("id = ?", id).Update("progress", progress).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update job progress: %w", err)
	}
	return nil
}
