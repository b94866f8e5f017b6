package entity

import (
	"encoding/json"
	"time"
)

// JobType 任务类型
type JobType string

const (
	JobTypeFaceIndex JobType = "face_index"
)

// IsValid 检查任务类型是否合法
func (t JobType) IsValid() bool {
	return t == JobTypeFaceIndex
}

// JobStatus 任务状态
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// IsValid 检查任务状态是否合法
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusPending, JobStatusRunning, JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// IsTerminal 是否为终态
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// MediaJob 媒体处理任务
type MediaJob struct {
	ID           string          `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantID     string          `json:"tenant_id" gorm:"type:uuid;index;not null"`
	AssetID      *string         `json:"asset_id,omitempty" gorm:"type:uuid;index"`
	JobType      JobType         `json:"job_type" gorm:"type:varchar(50);not null"`
	Status       JobStatus       `json:"status" gorm:"type:varchar(20);index;not null"`
	Priority     int             `json:"priority" gorm:"default:5"`
	InputParams  json.RawMessage `json:"input_params,omitempty" gorm:"type:jsonb"`
	OutputResult json.RawMessage `json:"output_result,omitempty" gorm:"type:jsonb"`
	ErrorMessage string          `json:"error_message,omitempty" gorm:"type:text"`
	DurationMs   int             `json:"duration_ms,omitempty"`
	RetryCount   int             `json:"retry_count" gorm:"default:0"`
	Progress     int             `json:"progress" gorm:"default:0"`
	CreatedBy    *string         `json:"created_by,omitempty" gorm:"type:uuid"`
	CreatedAt    time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// TableName 指定表名
func (MediaJob) TableName() string {
	return "media_jobs"
}

// NewMediaJob 创建新任务
func NewMediaJob(tenantID string, assetID *string, jobType JobType, inputParams json.RawMessage) *MediaJob {
	return &MediaJob{
		TenantID:    tenantID,
		AssetID:     assetID,
		JobType:     jobType,
		Status:      JobStatusPending,
		Priority:    5,
		InputParams: inputParams,
		CreatedAt:   time.Now(),
	}
}

// Start 开始执行任务
func (j *MediaJob) Start() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
}

// Complete 完成任务
func (j *MediaJob) Complete(result json.RawMessage) {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.OutputResult = result
	j.Progress = 100
	j.CompletedAt = &now
	j.setDuration(now)
}

// Fail 任务失败
func (j *MediaJob) Fail(errMsg string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.ErrorMessage = errMsg
	j.CompletedAt = &now
	j.setDuration(now)
}

// Cancel 取消任务，终态任务不可取消
func (j *MediaJob) Cancel() bool {
	if j.Status.IsTerminal() {
		return false
	}
	now := time.Now()
	j.Status = JobStatusCancelled
	j.CompletedAt = &now
	j.setDuration(now)
	return true
}

// CanRetry 只有失败或取消的任务可以重试
func (j *MediaJob) CanRetry() bool {
	return j.Status == JobStatusFailed || j.Status == JobStatusCancelled
}

// Retry 重置为待处理
func (j *MediaJob) Retry() {
	j.RetryCount++
	j.Status = JobStatusPending
	j.Progress = 0
	j.StartedAt = nil
	j.CompletedAt = nil
	j.ErrorMessage = ""
	j.OutputResult = nil
	j.DurationMs = 0
}

// UpdateProgress 更新任务进度
func (j *MediaJob) UpdateProgress(progress int) {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	j.Progress = progress
}

func (j *MediaJob) setDuration(now time.Time) {
	if j.StartedAt != nil {
		j.DurationMs = int(now.Sub(*j.StartedAt).Milliseconds())
	}
}
