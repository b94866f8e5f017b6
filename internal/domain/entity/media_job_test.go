package entity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMediaJob_Lifecycle(t *testing.T) {
	job := NewMediaJob("t1", nil, JobTypeFaceIndex, json.RawMessage(`{}`))
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Equal(t, 5, job.Priority)

	job.Start()
	assert.Equal(t, JobStatusRunning, job.Status)
	assert.NotNil(t, job.StartedAt)

	job.UpdateProgress(150)
	assert.Equal(t, 100, job.Progress)
	job.UpdateProgress(-3)
	assert.Equal(t, 0, job.Progress)

	*job.StartedAt = job.StartedAt.Add(-2 * time.Second)
	job.Complete(json.RawMessage(`{"indexed":3}`))
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.Equal(t, 100, job.Progress)
	assert.GreaterOrEqual(t, job.DurationMs, 2000)
	assert.False(t, job.CanRetry())
	assert.False(t, job.Cancel())
}

func TestMediaJob_FailAndRetry(t *testing.T) {
	job := NewMediaJob("t1", nil, JobTypeFaceIndex, nil)
	job.Start()
	job.UpdateProgress(40)
	job.Fail("milvus unavailable")

	assert.Equal(t, JobStatusFailed, job.Status)
	assert.True(t, job.CanRetry())

	job.Retry()
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Equal(t, 1, job.RetryCount)
	assert.Equal(t, 0, job.Progress)
	assert.Empty(t, job.ErrorMessage)
	assert.Nil(t, job.StartedAt)
	assert.Nil(t, job.CompletedAt)
}

func TestMediaJob_Cancel(t *testing.T) {
	job := NewMediaJob("t1", nil, JobTypeFaceIndex, nil)
	assert.True(t, job.Cancel())
	assert.Equal(t, JobStatusCancelled, job.Status)
	assert.True(t, job.CanRetry())
}

func TestAssetEnums(t *testing.T) {
	assert.True(t, AssetTypeVideo.IsValid())
	assert.False(t, AssetType("movie").IsValid())
	assert.True(t, AssetStatusReview.IsValid())
	assert.False(t, AssetStatus("published").IsValid())
	assert.True(t, VisibilityPublic.IsValid())
	assert.False(t, Visibility("secret").IsValid())
}
