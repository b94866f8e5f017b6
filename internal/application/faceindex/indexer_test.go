package faceindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mam-search-api/internal/domain/entity"
	"mam-search-api/internal/infrastructure/messaging"
)

const jobID = "0b8f4a63-0f4e-4b4b-9f0a-2a9f9b7e1c01"

func makeFaces(tenantID, assetID string, n int) []*entity.AssetFace {
	out := make([]*entity.AssetFace, n)
	for i := range out {
		out[i] = &entity.AssetFace{
			ID:         fmt.Sprintf("face-%03d", i),
			TenantID:   tenantID,
			AssetID:    assetID,
			TimecodeMs: int64(i) * 1000,
			Embedding:  []float32{0.1, 0.2, 0.3},
		}
	}
	return out
}

func pendingJob(assetID *string) *entity.MediaJob {
	return &entity.MediaJob{
		ID:       jobID,
		TenantID: tenantA,
		AssetID:  assetID,
		JobType:  entity.JobTypeFaceIndex,
		Status:   entity.JobStatusPending,
	}
}

func TestIndexer_Run_WholeTenant(t *testing.T) {
	jobs := newFakeJobRepo(pendingJob(nil))
	faces := &fakeFaceRepo{faces: append(makeFaces(tenantA, assetX, 5), makeFaces(tenantB, assetX, 3)...)}
	store := &fakeVectorStore{}
	cache := &fakeInvalidator{}
	tenants := &fakeTenantContext{}

	ix := NewIndexer(jobs, faces, store, tenants, WithBatchSize(2), WithSuggestionInvalidator(cache))
	require.NoError(t, ix.Run(context.Background(), tenantA, jobID))

	assert.Equal(t, []string{"face-000", "face-001", "face-002", "face-003", "face-004"}, store.indexed)
	assert.Empty(t, store.deleted, "whole-tenant jobs do not delete by asset")
	assert.Equal(t, []int{40, 80, 99}, jobs.progress)

	job := jobs.job(jobID)
	assert.Equal(t, entity.JobStatusCompleted, job.Status)
	assert.Equal(t, 100, job.Progress)
	assert.NotNil(t, job.CompletedAt)

	var out Result
	require.NoError(t, json.Unmarshal(job.OutputResult, &out))
	assert.Equal(t, Result{Total: 5, Indexed: 5}, out)

	assert.Equal(t, []string{tenantA}, cache.tenants)
	assert.Positive(t, tenants.calls)
}

func TestIndexer_Run_AssetScopedDeletesFirst(t *testing.T) {
	asset := assetX
	jobs := newFakeJobRepo(pendingJob(&asset))
	faces := &fakeFaceRepo{faces: append(makeFaces(tenantA, assetX, 2), makeFaces(tenantA, "other", 4)...)}
	store := &fakeVectorStore{}

	require.NoError(t, NewIndexer(jobs, faces, store, &fakeTenantContext{}).Run(context.Background(), tenantA, jobID))

	assert.Equal(t, []string{assetX}, store.deleted)
	assert.Equal(t, []string{"face-000", "face-001"}, store.indexed)
	assert.Equal(t, entity.JobStatusCompleted, jobs.job(jobID).Status)
}

func TestIndexer_Run_NoFaces(t *testing.T) {
	jobs := newFakeJobRepo(pendingJob(nil))
	store := &fakeVectorStore{}

	require.NoError(t, NewIndexer(jobs, &fakeFaceRepo{}, store, &fakeTenantContext{}).Run(context.Background(), tenantA, jobID))

	assert.Empty(t, store.indexed)
	assert.Empty(t, jobs.progress)
	assert.Equal(t, entity.JobStatusCompleted, jobs.job(jobID).Status)
}

func TestIndexer_Run_StoreFailureFailsJob(t *testing.T) {
	jobs := newFakeJobRepo(pendingJob(nil))
	faces := &fakeFaceRepo{faces: makeFaces(tenantA, assetX, 3)}
	store := &fakeVectorStore{err: errors.New("milvus unavailable")}
	cache := &fakeInvalidator{}

	err := NewIndexer(jobs, faces, store, &fakeTenantContext{}, WithSuggestionInvalidator(cache)).
		Run(context.Background(), tenantA, jobID)
	require.NoError(t, err, "failures after claim are recorded on the job")

	job := jobs.job(jobID)
	assert.Equal(t, entity.JobStatusFailed, job.Status)
	assert.Contains(t, job.ErrorMessage, "milvus unavailable")
	assert.Empty(t, cache.tenants)
}

func TestIndexer_Run_SkipsFinishedAndMissingJobs(t *testing.T) {
	done := pendingJob(nil)
	done.Status = entity.JobStatusCompleted
	jobs := newFakeJobRepo(done)
	store := &fakeVectorStore{}
	faces := &fakeFaceRepo{faces: makeFaces(tenantA, assetX, 2)}
	ix := NewIndexer(jobs, faces, store, &fakeTenantContext{})

	require.NoError(t, ix.Run(context.Background(), tenantA, jobID))
	require.NoError(t, ix.Run(context.Background(), tenantA, "7f6e5d4c-3b2a-4190-8f7e-6d5c4b3a2910"))
	assert.Empty(t, store.indexed)
}

func TestIndexer_Run_ResumesRunningJob(t *testing.T) {
	running := pendingJob(nil)
	running.Start()
	jobs := newFakeJobRepo(running)
	store := &fakeVectorStore{}
	faces := &fakeFaceRepo{faces: makeFaces(tenantA, assetX, 2)}

	require.NoError(t, NewIndexer(jobs, faces, store, &fakeTenantContext{}).Run(context.Background(), tenantA, jobID))
	assert.Len(t, store.indexed, 2)
	assert.Equal(t, entity.JobStatusCompleted, jobs.job(jobID).Status)
}

func TestIndexer_Run_StopsWhenCancelled(t *testing.T) {
	jobs := newFakeJobRepo(pendingJob(nil))
	jobs.onProgress = func(n int, job *entity.MediaJob) {
		if n == 1 {
			job.Status = entity.JobStatusCancelled
		}
	}
	faces := &fakeFaceRepo{faces: makeFaces(tenantA, assetX, 6)}
	store := &fakeVectorStore{}

	require.NoError(t, NewIndexer(jobs, faces, store, &fakeTenantContext{}, WithBatchSize(2)).Run(context.Background(), tenantA, jobID))

	assert.Len(t, store.indexed, 4, "the batch after cancellation is not indexed")
	assert.Equal(t, entity.JobStatusCancelled, jobs.job(jobID).Status)
}

func TestIndexer_Run_ClaimErrorIsReturned(t *testing.T) {
	jobs := newFakeJobRepo(pendingJob(nil))
	jobs.getErr = errors.New("connection refused")

	err := NewIndexer(jobs, &fakeFaceRepo{}, &fakeVectorStore{}, &fakeTenantContext{}).Run(context.Background(), tenantA, jobID)
	assert.ErrorContains(t, err, "connection refused")
}

func TestIndexer_HandleMessage(t *testing.T) {
	jobs := newFakeJobRepo(pendingJob(nil))
	store := &fakeVectorStore{}
	faces := &fakeFaceRepo{faces: makeFaces(tenantA, assetX, 1)}
	ix := NewIndexer(jobs, faces, store, &fakeTenantContext{})

	msg, err := messaging.NewMessage(jobID, messaging.MessageTypeFaceIndex, tenantA, &messaging.MediaJobMessage{
		JobID:    jobID,
		TenantID: tenantA,
		JobType:  messaging.MessageTypeFaceIndex,
	})
	require.NoError(t, err)

	require.NoError(t, ix.HandleMessage(context.Background(), msg))
	assert.Equal(t, []string{"face-000"}, store.indexed)

	bad, err := messaging.NewMessage("x", messaging.MessageTypeFaceIndex, tenantA, map[string]string{})
	require.NoError(t, err)
	assert.Error(t, ix.HandleMessage(context.Background(), bad))
}
