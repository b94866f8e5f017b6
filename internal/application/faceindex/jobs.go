package faceindex

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"mam-search-api/internal/domain/entity"
	"mam-search-api/internal/domain/repository"
	"mam-search-api/internal/infrastructure/messaging"
	"mam-search-api/pkg/errors"
	"mam-search-api/pkg/logger"
)

// JobService 人脸索引任务管理
type JobService struct {
	jobs      repository.JobRepository
	publisher JobPublisher
}

// NewJobService 创建任务服务
func NewJobService(jobs repository.JobRepository, publisher JobPublisher) *JobService {
	return &JobService{jobs: jobs, publisher: publisher}
}

// CreateRequest 创建任务请求
type CreateRequest struct {
	AssetID   string
	CreatedBy string
}

// Create 创建 face_index 任务并投递到任务流；assetID 为空表示整个租户
func (s *JobService) Create(ctx context.Context, tenantID string, req CreateRequest) (*entity.MediaJob, error) {
	ctx, span := tracer.Start(ctx, "faceindex.JobService.Create")
	defer span.End()

	if strings.TrimSpace(tenantID) == "" {
		return nil, errors.ErrTenantRequired
	}

	var assetID *string
	if id := strings.TrimSpace(req.AssetID); id != "" {
		if _, err := uuid.Parse(id); err != nil {
			return nil, errors.ErrInvalidParam.WithDetail("asset_id must be a UUID")
		}
		assetID = &id
	}

	params, _ := json.Marshal(map[string]interface{}{"asset_id": req.AssetID})
	job := entity.NewMediaJob(tenantID, assetID, entity.JobTypeFaceIndex, params)
	job.ID = uuid.NewString()
	if _, err := uuid.Parse(req.CreatedBy); err == nil {
		createdBy := req.CreatedBy
		job.CreatedBy = &createdBy
	}

	if err := s.jobs.Create(ctx, job); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	if err := s.publish(ctx, job); err != nil {
		span.RecordError(err)
		return nil, err
	}

	logger.Info(ctx, "face index job created", "job_id", job.ID, "asset_id", req.AssetID)
	return job, nil
}

// Get 获取任务
func (s *JobService) Get(ctx context.Context, tenantID, jobID string) (*entity.MediaJob, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, errors.ErrTenantRequired
	}
	if _, err := uuid.Parse(jobID); err != nil {
		return nil, errors.ErrJobNotFound
	}

	job, err := s.jobs.GetByID(ctx, tenantID, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	if job == nil {
		return nil, errors.ErrJobNotFound
	}
	return job, nil
}

// List 分页列出租户任务
func (s *JobService) List(ctx context.Context, tenantID string, filter repository.JobFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.MediaJob], error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, errors.ErrTenantRequired
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, errors.ErrInvalidParam.WithDetail(fmt.Sprintf("unknown status %q", filter.Status))
	}
	if filter.JobType != "" && !filter.JobType.IsValid() {
		return nil, errors.ErrInvalidParam.WithDetail(fmt.Sprintf("unknown job type %q", filter.JobType))
	}
	if filter.AssetID != "" {
		if _, err := uuid.Parse(filter.AssetID); err != nil {
			return nil, errors.ErrInvalidParam.WithDetail("asset_id must be a UUID")
		}
	}

	result, err := s.jobs.ListByTenant(ctx, tenantID, &filter, pagination)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return result, nil
}

// Retry 重新投递失败或已取消的任务
func (s *JobService) Retry(ctx context.Context, tenantID, jobID string) (*entity.MediaJob, error) {
	ctx, span := tracer.Start(ctx, "faceindex.JobService.Retry")
	defer span.End()

	job, err := s.Get(ctx, tenantID, jobID)
	if err != nil {
		return nil, err
	}
	if !job.CanRetry() {
		return nil, errors.ErrJobStateInvalid.WithDetail(fmt.Sprintf("job is %s", job.Status))
	}

	job.Retry()
	if err := s.jobs.Update(ctx, job); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to update job: %w", err)
	}
	if err := s.publish(ctx, job); err != nil {
		span.RecordError(err)
		return nil, err
	}

	logger.Info(ctx, "face index job requeued", "job_id", job.ID, "retry_count", job.RetryCount)
	return job, nil
}

// Cancel 取消任务；已取消的任务重复取消直接返回
func (s *JobService) Cancel(ctx context.Context, tenantID, jobID string) (*entity.MediaJob, error) {
	ctx, span := tracer.Start(ctx, "faceindex.JobService.Cancel")
	defer span.End()

	job, err := s.Get(ctx, tenantID, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status == entity.JobStatusCancelled {
		return job, nil
	}
	if !job.Cancel() {
		return nil, errors.ErrJobStateInvalid.WithDetail(fmt.Sprintf("job is %s", job.Status))
	}

	if err := s.jobs.Update(ctx, job); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to cancel job: %w", err)
	}
	return job, nil
}

// publish 投递失败时任务直接标记失败，调用方可通过 retry 重新投递
func (s *JobService) publish(ctx context.Context, job *entity.MediaJob) error {
	msg := &messaging.MediaJobMessage{
		JobID:    job.ID,
		TenantID: job.TenantID,
		JobType:  string(job.JobType),
		Priority: job.Priority,
	}
	if job.AssetID != nil {
		msg.AssetID = *job.AssetID
	}

	if _, err := s.publisher.PublishMediaJob(ctx, msg); err != nil {
		job.Fail("failed to enqueue: " + err.Error())
		if uerr := s.jobs.Update(ctx, job); uerr != nil {
			logger.Error(ctx, "failed to mark unpublished job failed", uerr, "job_id", job.ID)
		}
		return errors.Wrap(err, errors.CodeQueueError, "failed to enqueue job")
	}
	return nil
}
