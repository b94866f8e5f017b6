package faceindex

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"mam-search-api/internal/domain/entity"
	"mam-search-api/internal/domain/repository"
	"mam-search-api/internal/infrastructure/messaging"
)

type fakeJobRepo struct {
	mu       sync.Mutex
	jobs     map[string]*entity.MediaJob
	progress []int
	getErr   error

	// onProgress 在第 n 次更新进度时触发
	onProgress func(n int, job *entity.MediaJob)
}

func newFakeJobRepo(jobs ...*entity.MediaJob) *fakeJobRepo {
	r := &fakeJobRepo{jobs: map[string]*entity.MediaJob{}}
	for _, j := range jobs {
		r.jobs[j.ID] = j
	}
	return r
}

func (r *fakeJobRepo) Create(_ context.Context, job *entity.MediaJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *job
	r.jobs[job.ID] = &cp
	return nil
}

func (r *fakeJobRepo) GetByID(_ context.Context, tenantID, id string) (*entity.MediaJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	j, ok := r.jobs[id]
	if !ok || j.TenantID != tenantID {
		return nil, nil
	}
	cp := *j
	return &cp, nil
}

func (r *fakeJobRepo) Update(_ context.Context, job *entity.MediaJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *job
	r.jobs[job.ID] = &cp
	return nil
}

func (r *fakeJobRepo) ListByTenant(_ context.Context, tenantID string, filter *repository.JobFilter, p repository.Pagination) (*repository.PagedResult[*entity.MediaJob], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.MediaJob
	for _, j := range r.jobs {
		if j.TenantID != tenantID {
			continue
		}
		if filter != nil && filter.Status != "" && j.Status != filter.Status {
			continue
		}
		out = append(out, j)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return repository.NewPagedResult(out, int64(len(out)), p), nil
}

func (r *fakeJobRepo) MarkRunning(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok || j.Status != entity.JobStatusPending {
		return false, nil
	}
	j.Start()
	return true, nil
}

func (r *fakeJobRepo) UpdateProgress(_ context.Context, id string, progress int) error {
	r.mu.Lock()
	r.progress = append(r.progress, progress)
	n := len(r.progress)
	j := r.jobs[id]
	if j != nil {
		j.Progress = progress
	}
	hook := r.onProgress
	r.mu.Unlock()
	if hook != nil && j != nil {
		hook(n, j)
	}
	return nil
}

func (r *fakeJobRepo) job(id string) *entity.MediaJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jobs[id]
}

type fakePublisher struct {
	published []*messaging.MediaJobMessage
	err       error
}

func (p *fakePublisher) PublishMediaJob(_ context.Context, job *messaging.MediaJobMessage) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.published = append(p.published, job)
	return fmt.Sprintf("1700000000000-%d", len(p.published)), nil
}

type fakeFaceRepo struct {
	faces   []*entity.AssetFace
	listErr error
}

func (r *fakeFaceRepo) filter(tenantID, assetID string) []*entity.AssetFace {
	var out []*entity.AssetFace
	for _, f := range r.faces {
		if f.TenantID == tenantID && (assetID == "" || f.AssetID == assetID) {
			out = append(out, f)
		}
	}
	return out
}

func (r *fakeFaceRepo) CountWithEmbedding(_ context.Context, tenantID, assetID string) (int64, error) {
	return int64(len(r.filter(tenantID, assetID))), nil
}

func (r *fakeFaceRepo) ListWithEmbedding(_ context.Context, tenantID, assetID, afterID string, limit int) ([]*entity.AssetFace, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []*entity.AssetFace
	for _, f := range r.filter(tenantID, assetID) {
		if f.ID > afterID {
			out = append(out, f)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type fakeVectorStore struct {
	indexed []string
	deleted []string
	err     error
}

func (s *fakeVectorStore) IndexFaces(_ context.Context, _ string, faces []*entity.AssetFace) error {
	if s.err != nil {
		return s.err
	}
	for _, f := range faces {
		s.indexed = append(s.indexed, f.ID)
	}
	return nil
}

func (s *fakeVectorStore) DeleteFacesByAsset(_ context.Context, _, assetID string) error {
	s.deleted = append(s.deleted, assetID)
	return nil
}

type fakeTenantContext struct {
	calls int
}

func (t *fakeTenantContext) SetTenant(context.Context, string) error { return nil }
func (t *fakeTenantContext) ClearTenant(context.Context) error { return nil }
func (t *fakeTenantContext) WithTenant(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	t.calls++
	return fn(ctx)
}

type fakeInvalidator struct {
	tenants []string
}

func (f *fakeInvalidator) InvalidateSuggestions(_ context.Context, tenantID string) error {
	f.tenants = append(f.tenants, tenantID)
	return nil
}
