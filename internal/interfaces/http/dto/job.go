package dto

import (
	"encoding/json"
	"time"

	"mam-search-api/internal/domain/entity"
)

// CreateFaceIndexJobRequest 创建人脸索引任务请求，asset_id 为空表示整个租户
type CreateFaceIndexJobRequest struct {
	AssetID string `json:"asset_id,omitempty"`
}

// JobResponse 任务响应
type JobResponse struct {
	ID          string          `json:"id"`
	AssetID     *string         `json:"asset_id,omitempty"`
	JobType     string          `json:"job_type"`
	Status      string          `json:"status"`
	Priority    int             `json:"priority"`
	Result      json.RawMessage `json:"result,omitempty"`
	ErrorMsg    string          `json:"error_msg,omitempty"`
	RetryCount  int             `json:"retry_count"`
	Progress    int             `json:"progress"`
	DurationMs  int             `json:"duration_ms,omitempty"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// JobListResponse 任务列表响应
type JobListResponse struct {
	Jobs []*JobResponse `json:"jobs"`
}

// ToJobResponse 将领域实体转换为响应 DTO
func ToJobResponse(j *entity.MediaJob) *JobResponse {
	if j == nil {
		return nil
	}
	return &JobResponse{
		ID:          j.ID,
		AssetID:     j.AssetID,
		JobType:     string(j.JobType),
		Status:      string(j.Status),
		Priority:    j.Priority,
		Result:      j.OutputResult,
		ErrorMsg:    j.ErrorMessage,
		RetryCount:  j.RetryCount,
		Progress:    j.Progress,
		DurationMs:  j.DurationMs,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
}

// ToJobListResponse 将领域实体列表转换为响应 DTO
func ToJobListResponse(jobs []*entity.MediaJob) *JobListResponse {
	resp := &JobListResponse{
		Jobs: make([]*JobResponse, 0, len(jobs)),
	}
	for _, j := range jobs {
		resp.Jobs = append(resp.Jobs, ToJobResponse(j))
	}
	return resp
}
