package faceindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mam-search-api/internal/domain/entity"
	"mam-search-api/internal/domain/repository"
	"mam-search-api/internal/infrastructure/messaging"
	"mam-search-api/pkg/logger"
	"mam-search-api/pkg/metrics"
)

const defaultBatchSize = 500

// errJobCancelled 执行过程中任务被取消
var errJobCancelled = errors.New("job cancelled")

// Indexer 将 asset_faces 中的 embedding 同步到向量库
type Indexer struct {
	jobs      repository.JobRepository
	faces     repository.FaceRepository
	store     VectorStore
	tenants   repository.TenantContextManager
	cache     SuggestionInvalidator
	batchSize int
}

// IndexerOption 索引器选项
type IndexerOption func(*Indexer)

// WithBatchSize 设置每批读取的人脸数
func WithBatchSize(n int) IndexerOption {
	return func(i *Indexer) {
		if n > 0 {
			i.batchSize = n
		}
	}
}

// WithSuggestionInvalidator 完成后清理建议缓存
func WithSuggestionInvalidator(cache SuggestionInvalidator) IndexerOption {
	return func(i *Indexer) { i.cache = cache }
}

// NewIndexer 创建索引器
func NewIndexer(
	jobs repository.JobRepository,
	faces repository.FaceRepository,
	store VectorStore,
	tenants repository.TenantContextManager,
	opts ...IndexerOption,
) *Indexer {
	ix := &Indexer{
		jobs:      jobs,
		faces:     faces,
		store:     store,
		tenants:   tenants,
		batchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Result 任务输出
type Result struct {
	Total   int64 `json:"total"`
	Indexed int64 `json:"indexed"`
}

// HandleMessage 消费 face_index 消息
func (ix *Indexer) HandleMessage(ctx context.Context, msg *messaging.Message) error {
	var payload messaging.MediaJobMessage
	if err := msg.UnmarshalPayload(&payload); err != nil {
		return err
	}
	if payload.JobID == "" || payload.TenantID == "" {
		return fmt.Errorf("face index message missing job_id or tenant_id")
	}
	return ix.Run(ctx, payload.TenantID, payload.JobID)
}

// Run 执行一个人脸索引任务。
// 任务被认领之后的失败记录到任务上并返回 nil，由用户决定是否重试；
// 认领之前的错误与 ctx 取消返回给调用方，消息留在 pending 列表中重投。
func (ix *Indexer) Run(ctx context.Context, tenantID, jobID string) error {
	ctx, span := tracer.Start(ctx, "faceindex.Indexer.Run",
		trace.WithAttributes(
			attribute.String("tenant_id", tenantID),
			attribute.String("job_id", jobID),
		))
	defer span.End()

	job, claimed, err := ix.claim(ctx, tenantID, jobID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if !claimed {
		return nil
	}

	start := time.Now()
	result, err := ix.index(ctx, job)
	switch {
	case err == nil:
		ix.finish(ctx, job, func(j *entity.MediaJob) {
			out, _ := json.Marshal(result)
			j.Complete(out)
		})
		metrics.JobsTotal.WithLabelValues(string(job.JobType), string(entity.JobStatusCompleted)).Inc()
		logger.Info(ctx, "face index job completed", "job_id", jobID, "indexed", result.Indexed)

		if ix.cache != nil {
			if cerr := ix.cache.InvalidateSuggestions(ctx, tenantID); cerr != nil {
				logger.Warn(ctx, "failed to invalidate suggestion cache", "error", cerr.Error())
			}
		}
	case errors.Is(err, errJobCancelled):
		metrics.JobsTotal.WithLabelValues(string(job.JobType), string(entity.JobStatusCancelled)).Inc()
		logger.Info(ctx, "face index job cancelled while running", "job_id", jobID)
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		span.RecordError(err)
		ix.finish(ctx, job, func(j *entity.MediaJob) { j.Fail(err.Error()) })
		metrics.JobsTotal.WithLabelValues(string(job.JobType), string(entity.JobStatusFailed)).Inc()
		logger.Error(ctx, "face index job failed", err, "job_id", jobID)
	}

	metrics.JobDuration.WithLabelValues(string(job.JobType)).Observe(time.Since(start).Seconds())
	return nil
}

// claim 认领 pending 任务；running 状态视为重投，继续执行
func (ix *Indexer) claim(ctx context.Context, tenantID, jobID string) (*entity.MediaJob, bool, error) {
	var job *entity.MediaJob
	claimed := false

	err := ix.tenants.WithTenant(ctx, tenantID, func(txCtx context.Context) error {
		var err error
		job, err = ix.jobs.GetByID(txCtx, tenantID, jobID)
		if err != nil {
			return err
		}
		if job == nil {
			logger.Warn(ctx, "face index job not found, skipping", "job_id", jobID)
			return nil
		}

		switch job.Status {
		case entity.JobStatusPending:
			ok, err := ix.jobs.MarkRunning(txCtx, jobID)
			if err != nil {
				return err
			}
			if ok {
				job.Start()
			}
			claimed = ok
		case entity.JobStatusRunning:
			claimed = true
		default:
			logger.Info(ctx, "face index job already finished, skipping", "job_id", jobID, "status", string(job.Status))
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to claim job: %w", err)
	}
	return job, claimed, nil
}

func (ix *Indexer) index(ctx context.Context, job *entity.MediaJob) (*Result, error) {
	assetID := ""
	if job.AssetID != nil {
		assetID = *job.AssetID
	}

	total, err := ix.faces.CountWithEmbedding(ctx, job.TenantID, assetID)
	if err != nil {
		return nil, err
	}

	if assetID != "" {
		if err := ix.store.DeleteFacesByAsset(ctx, job.TenantID, assetID); err != nil {
			return nil, err
		}
	}

	result := &Result{Total: total}
	afterID := ""
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		batch, err := ix.faces.ListWithEmbedding(ctx, job.TenantID, assetID, afterID, ix.batchSize)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}

		if err := ix.store.IndexFaces(ctx, job.TenantID, batch); err != nil {
			return nil, err
		}
		result.Indexed += int64(len(batch))
		afterID = batch[len(batch)-1].ID

		if err := ix.progress(ctx, job, result); err != nil {
			return nil, err
		}
		if len(batch) < ix.batchSize {
			break
		}
	}
	return result, nil
}

// progress 更新进度并检查任务是否已被取消；完成前进度最多到 99
func (ix *Indexer) progress(ctx context.Context, job *entity.MediaJob, r *Result) error {
	pct := 99
	if r.Total > 0 && r.Indexed < r.Total {
		pct = int(r.Indexed * 100 / r.Total)
	}

	return ix.tenants.WithTenant(ctx, job.TenantID, func(txCtx context.Context) error {
		current, err := ix.jobs.GetByID(txCtx, job.TenantID, job.ID)
		if err != nil {
			return err
		}
		if current != nil && current.Status == entity.JobStatusCancelled {
			return errJobCancelled
		}
		return ix.jobs.UpdateProgress(txCtx, job.ID, pct)
	})
}

// finish 在租户事务内写入终态，任务已被取消时保持取消状态
func (ix *Indexer) finish(ctx context.Context, job *entity.MediaJob, apply func(*entity.MediaJob)) {
	err := ix.tenants.WithTenant(context.WithoutCancel(ctx), job.TenantID, func(txCtx context.Context) error {
		current, err := ix.jobs.GetByID(txCtx, job.TenantID, job.ID)
		if err != nil {
			return err
		}
		if current == nil || current.Status == entity.JobStatusCancelled {
			return nil
		}
		apply(current)
		return ix.jobs.Update(txCtx, current)
	})
	if err != nil {
		logger.Error(ctx, "failed to finalize face index job", err, "job_id", job.ID)
	}
}
