package handler

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mam-search-api/internal/application/assetsearch"
	"mam-search-api/internal/application/faceindex"
	"mam-search-api/internal/application/search"
	"mam-search-api/internal/domain/entity"
	"mam-search-api/internal/domain/repository"
	"mam-search-api/pkg/errors"
)

const testTenant = "11111111-1111-1111-1111-111111111111"

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
	Data    json.RawMessage  `json:"data"`
	Meta    *struct {
		Total int `json:"total"`
	} `json:"meta"`
	Error *struct {
		Field   string `json:"field"`
		Details string `json:"details"`
	} `json:"error"`
}

func newEngine(tenant string) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if tenant != "" {
			c.Set("tenant_id", tenant)
		}
		c.Next()
	})
	return r
}

func do(t *testing.T, r *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

type fakeSearcher struct {
	req  search.Request
	resp *search.Response
	err  error
}

func (f *fakeSearcher) Search(_ context.Context, _ string, req search.Request) (*search.Response, error) {
	f.req = req
	return f.resp, f.err
}

type fakeSuggester struct {
	q     string
	limit int
	out   []search.Suggestion
	err   error
}

func (f *fakeSuggester) Suggest(_ context.Context, _ string, q string, limit int) ([]search.Suggestion, error) {
	f.q, f.limit = q, limit
	return f.out, f.err
}

func TestSearchHandler_Multimodal(t *testing.T) {
	assetID := uuid.New()
	searcher := &fakeSearcher{resp: &search.Response{
		Query: "interview",
		Total: 1,
		Limit: 20,
		Results: []search.Result{{
			AssetID:       assetID,
			Display:       search.DisplayFields{Title: "Interview", AssetType: "video", Status: "available"},
			Matches:       []search.Match{search.TranscriptionMatch{Snippet: "the interview", Rank: 0.8}},
			CombinedScore: 0.016,
		}},
		ModesUsed: []search.Mode{search.ModeTranscription},
	}}
	h := NewSearchHandler(searcher, &fakeSuggester{})
	r := newEngine(testTenant)
	r.POST("/v1/search/multimodal", h.Multimodal)

	w, env := do(t, r, http.MethodPost, "/v1/search/multimodal", map[string]any{
		"query": "interview",
		"modes": map[string]bool{"face": false},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, errors.CodeSuccess, env.Code)
	assert.False(t, searcher.req.Modes.Face)
	assert.True(t, searcher.req.Modes.Transcription)

	var data struct {
		Results []struct {
			AssetID string `json:"asset_id"`
			Matches []struct {
				Type  string  `json:"type"`
				Text  string  `json:"text"`
				Score float64 `json:"score"`
			} `json:"matches"`
		} `json:"results"`
		ModesUsed []string `json:"modes_used"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Results, 1)
	assert.Equal(t, assetID.String(), data.Results[0].AssetID)
	assert.Equal(t, "transcription", data.Results[0].Matches[0].Type)
	assert.Equal(t, "the interview", data.Results[0].Matches[0].Text)
	assert.Equal(t, []string{"transcription"}, data.ModesUsed)
}

func TestSearchHandler_Multimodal_Errors(t *testing.T) {
	tests := []struct {
		name   string
		tenant string
		err    error
		status int
		code   errors.ErrorCode
	}{
		{name: "validation", tenant: testTenant, err: &search.ValidationError{Field: "limit", Reason: "must be between 1 and 100"}, status: http.StatusBadRequest, code: errors.CodeInvalidParam},
		{name: "missing tenant", status: http.StatusBadRequest, code: errors.CodeTenantRequired},
		{name: "canceled", tenant: testTenant, err: context.Canceled, status: 499, code: errors.CodeRequestCanceled},
		{name: "unexpected", tenant: testTenant, err: stderrors.New("boom"), status: http.StatusInternalServerError, code: errors.CodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSearchHandler(&fakeSearcher{err: tt.err}, &fakeSuggester{})
			r := newEngine(tt.tenant)
			r.POST("/v1/search/multimodal", h.Multimodal)

			w, env := do(t, r, http.MethodPost, "/v1/search/multimodal", map[string]any{"query": "x"})
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, env.Code)
		})
	}
}

func TestSearchHandler_Multimodal_ExplicitZeroLimit(t *testing.T) {
	searcher := &fakeSearcher{resp: &search.Response{}}
	h := NewSearchHandler(searcher, &fakeSuggester{})
	r := newEngine(testTenant)
	r.POST("/v1/search/multimodal", h.Multimodal)

	do(t, r, http.MethodPost, "/v1/search/multimodal", map[string]any{"query": "x", "limit": 0})
	assert.Equal(t, -1, searcher.req.Limit)
}

func TestSearchHandler_Suggestions(t *testing.T) {
	suggester := &fakeSuggester{out: []search.Suggestion{{Text: "Alice", Type: search.SuggestionPerson, Count: 3}}}
	h := NewSearchHandler(&fakeSearcher{}, suggester)
	r := newEngine(testTenant)
	r.GET("/s", h.Suggestions)

	w, env := do(t, r, http.MethodGet, "/s?q=al&limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "al", suggester.q)
	assert.Equal(t, 5, suggester.limit)
	assert.Contains(t, string(env.Data), "Alice")

	w, env = do(t, r, http.MethodGet, "/s?q=al&limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "limit", env.Error.Field)
}

type fakeAssetSearcher struct {
	text     assetsearch.TextRequest
	advanced assetsearch.AdvancedRequest
	err      error
}

func (f *fakeAssetSearcher) Search(_ context.Context, _ string, req assetsearch.TextRequest) (*assetsearch.TextResponse, error) {
	f.text = req
	if f.err != nil {
		return nil, f.err
	}
	desc := "desc"
	page := repository.NewPagedResult([]*repository.AssetHit{{
		Asset:    &entity.Asset{ID: "a1", Title: "Match", Description: &desc, AssetType: entity.AssetTypeVideo, Status: entity.AssetStatusAvailable},
		Rank:     0.7,
		Headline: "<b>Match</b>",
	}}, 1, repository.NewPagination(1, 20))
	return &assetsearch.TextResponse{Query: req.Query, Result: page, SearchTimeMs: 3}, nil
}

func (f *fakeAssetSearcher) Advanced(_ context.Context, _ string, req assetsearch.AdvancedRequest) (*assetsearch.AdvancedResponse, error) {
	f.advanced = req
	if f.err != nil {
		return nil, f.err
	}
	page := repository.NewPagedResult([]*entity.Asset{}, 0, repository.NewPagination(1, 20))
	return &assetsearch.AdvancedResponse{Result: page}, nil
}

func (f *fakeAssetSearcher) Suggest(context.Context, string, string, int) ([]search.Suggestion, error) {
	return nil, f.err
}

func TestAssetSearchHandler_Search(t *testing.T) {
	svc := &fakeAssetSearcher{}
	h := NewAssetSearchHandler(svc, "https://cdn.example.com/")
	r := newEngine(testTenant)
	r.GET("/v1/search", h.Search)

	w, env := do(t, r, http.MethodGet, "/v1/search?q=match&asset_type=video&date_from=2024-01-01&page=2&page_size=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "match", svc.text.Query)
	assert.Equal(t, entity.AssetTypeVideo, svc.text.AssetType)
	require.NotNil(t, svc.text.DateFrom)
	assert.Equal(t, 2024, svc.text.DateFrom.Year())
	assert.Equal(t, 2, svc.text.Page)
	assert.Equal(t, 10, svc.text.PageSize)

	var data struct {
		Total   int64 `json:"total"`
		Results []struct {
			ID           string   `json:"id"`
			ThumbnailURL string   `json:"thumbnail_url"`
			Rank         *float64 `json:"rank"`
			Headline     string   `json:"headline"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Results, 1)
	assert.Equal(t, "https://cdn.example.com/a1/thumbnail.jpg", data.Results[0].ThumbnailURL)
	require.NotNil(t, data.Results[0].Rank)
	assert.InDelta(t, 0.7, *data.Results[0].Rank, 1e-9)
	assert.Equal(t, "<b>Match</b>", data.Results[0].Headline)
}

func TestAssetSearchHandler_BadQueryParams(t *testing.T) {
	h := NewAssetSearchHandler(&fakeAssetSearcher{}, "")
	r := newEngine(testTenant)
	r.GET("/v1/search", h.Search)
	r.GET("/v1/search/advanced", h.Advanced)

	tests := []struct {
		path  string
		field string
	}{
		{path: "/v1/search?q=ab&date_to=yesterday", field: "date_to"},
		{path: "/v1/search?q=ab&page=x", field: "page"},
		{path: "/v1/search/advanced?min_duration_ms=1.5", field: "min_duration_ms"},
		{path: "/v1/search/advanced?recorded_from=2024-13-01", field: "recorded_from"},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			w, env := do(t, r, http.MethodGet, tt.path, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.field, env.Error.Field)
		})
	}
}

func TestAssetSearchHandler_Advanced(t *testing.T) {
	svc := &fakeAssetSearcher{}
	h := NewAssetSearchHandler(svc, "")
	r := newEngine(testTenant)
	r.GET("/v1/search/advanced", h.Advanced)

	w, _ := do(t, r, http.MethodGet, "/v1/search/advanced?title=news&keywords=a,b&visibility=public&max_size_bytes=1024&sort_by=title&sort_order=asc", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "news", svc.advanced.Title)
	assert.Equal(t, "a,b", svc.advanced.KeywordsRaw)
	assert.Equal(t, entity.Visibility("public"), svc.advanced.Visibility)
	require.NotNil(t, svc.advanced.MaxSizeBytes)
	assert.Equal(t, int64(1024), *svc.advanced.MaxSizeBytes)
	assert.Equal(t, "title", svc.advanced.SortBy)
	assert.Equal(t, "asc", svc.advanced.SortOrder)
}

type fakeJobs struct {
	created faceindex.CreateRequest
	job     *entity.MediaJob
	page    *repository.PagedResult[*entity.MediaJob]
	filter  repository.JobFilter
	err     error
}

func (f *fakeJobs) Create(_ context.Context, _ string, req faceindex.CreateRequest) (*entity.MediaJob, error) {
	f.created = req
	return f.job, f.err
}

func (f *fakeJobs) Get(context.Context, string, string) (*entity.MediaJob, error) {
	return f.job, f.err
}

func (f *fakeJobs) List(_ context.Context, _ string, filter repository.JobFilter, _ repository.Pagination) (*repository.PagedResult[*entity.MediaJob], error) {
	f.filter = filter
	return f.page, f.err
}

func (f *fakeJobs) Retry(context.Context, string, string) (*entity.MediaJob, error) {
	return f.job, f.err
}

func (f *fakeJobs) Cancel(context.Context, string, string) (*entity.MediaJob, error) {
	return f.job, f.err
}

func jobRouter(jobs JobManager) *gin.Engine {
	h := NewJobHandler(jobs)
	r := newEngine(testTenant)
	r.Use(func(c *gin.Context) { c.Set("user_id", "22222222-2222-2222-2222-222222222222"); c.Next() })
	r.POST("/v1/jobs/face-index", h.CreateFaceIndexJob)
	r.GET("/v1/jobs", h.ListJobs)
	r.GET("/v1/jobs/:jid", h.GetJob)
	r.POST("/v1/jobs/:jid/retry", h.RetryJob)
	r.POST("/v1/jobs/:jid/cancel", h.CancelJob)
	return r
}

func TestJobHandler_Create(t *testing.T) {
	assetID := uuid.NewString()
	jobs := &fakeJobs{job: &entity.MediaJob{ID: "j1", AssetID: &assetID, JobType: entity.JobTypeFaceIndex, Status: entity.JobStatusPending, CreatedAt: time.Now()}}
	r := jobRouter(jobs)

	w, env := do(t, r, http.MethodPost, "/v1/jobs/face-index", map[string]string{"asset_id": assetID})
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, assetID, jobs.created.AssetID)
	assert.Equal(t, "22222222-2222-2222-2222-222222222222", jobs.created.CreatedBy)
	assert.Contains(t, string(env.Data), `"status":"pending"`)

	w, _ = do(t, r, http.MethodPost, "/v1/jobs/face-index", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Empty(t, jobs.created.AssetID)
}

func TestJobHandler_Errors(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		err    error
		status int
		code   errors.ErrorCode
	}{
		{name: "not found", method: http.MethodGet, path: "/v1/jobs/nope", err: errors.ErrJobNotFound, status: http.StatusNotFound, code: errors.CodeJobNotFound},
		{name: "retry conflict", method: http.MethodPost, path: "/v1/jobs/j1/retry", err: errors.ErrJobStateInvalid, status: http.StatusConflict, code: errors.CodeJobStateInvalid},
		{name: "cancel conflict", method: http.MethodPost, path: "/v1/jobs/j1/cancel", err: errors.ErrJobStateInvalid, status: http.StatusConflict, code: errors.CodeJobStateInvalid},
		{name: "bad filter", method: http.MethodGet, path: "/v1/jobs?status=weird", err: errors.ErrInvalidParam.WithDetail("unknown status"), status: http.StatusBadRequest, code: errors.CodeInvalidParam},
		{name: "queue down", method: http.MethodPost, path: "/v1/jobs/j1/retry", err: errors.Wrap(stderrors.New("redis"), errors.CodeQueueError, "failed to enqueue job"), status: http.StatusInternalServerError, code: errors.CodeQueueError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := do(t, jobRouter(&fakeJobs{err: tt.err}), tt.method, tt.path, nil)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, env.Code)
		})
	}
}

func TestJobHandler_List(t *testing.T) {
	jobs := &fakeJobs{page: repository.NewPagedResult([]*entity.MediaJob{{ID: "j1"}, {ID: "j2"}}, 12, repository.NewPagination(2, 2))}
	w, env := do(t, jobRouter(jobs), http.MethodGet, "/v1/jobs?status=failed&page=2&page_size=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, entity.JobStatusFailed, jobs.filter.Status)
	require.NotNil(t, env.Meta)
	assert.Equal(t, 12, env.Meta.Total)
}

type stubChecker struct{ err error }

func (s stubChecker) HealthCheck(context.Context) error { return s.err }

func TestHealthHandler_Ready(t *testing.T) {
	tests := []struct {
		name   string
		deps   []Dependency
		status int
	}{
		{name: "all healthy", deps: []Dependency{{Name: "postgres", Checker: stubChecker{}, Required: true}}, status: http.StatusOK},
		{name: "optional degraded", deps: []Dependency{
			{Name: "postgres", Checker: stubChecker{}, Required: true},
			{Name: "milvus", Checker: stubChecker{err: stderrors.New("down")}},
		}, status: http.StatusOK},
		{name: "required failing", deps: []Dependency{{Name: "redis", Checker: stubChecker{err: stderrors.New("down")}, Required: true}}, status: http.StatusServiceUnavailable},
		{name: "required missing", deps: []Dependency{{Name: "postgres", Required: true}}, status: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler("test", tt.deps...)
			r := gin.New()
			r.GET("/ready", h.Ready)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
			assert.Equal(t, tt.status, w.Code)
		})
	}
}
