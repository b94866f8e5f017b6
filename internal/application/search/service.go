package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"mam-search-api/pkg/logger"
	"mam-search-api/pkg/metrics"
)

var tracer = otel.Tracer("search")

// Service 多模态检索编排：并发调用各数据源，合并、排序、分页
type Service struct {
	sources        map[Mode]Source
	ranker         *Ranker
	adapterTimeout time.Duration
}

// Option 编排器选项
type Option func(*Service)

// WithAdapterTimeout 单个数据源的超时，0 表示只受请求上下文约束
func WithAdapterTimeout(d time.Duration) Option {
	return func(s *Service) { s.adapterTimeout = d }
}

// NewService 创建检索服务；同一 Mode 的数据源以后注册者为准
func NewService(sources []Source, ranker *Ranker, opts ...Option) *Service {
	if ranker == nil {
		ranker = NewRanker(DefaultRRFK, DefaultMultiMatchBoost)
	}
	s := &Service{
		sources: make(map[Mode]Source, len(sources)),
		ranker:  ranker,
	}
	for _, src := range sources {
		if src != nil {
			s.sources[src.Mode()] = src
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search 执行多模态检索。只有参数/租户校验失败和请求被取消会返回错误，单个数据源失败按无结果处理。
func (s *Service) Search(ctx context.Context, tenantID string, req Request) (*Response, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "search.Service.Search")
	defer span.End()

	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		metrics.SearchRequestsTotal.WithLabelValues("invalid").Inc()
		return nil, ErrTenantRequired
	}
	req, err := req.Normalize()
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	active := s.activeSources(req)
	span.SetAttributes(attribute.Int("search.sources", len(active)))

	q := SourceQuery{
		TenantID:  tenantID,
		Text:      req.Query,
		FaceImage: req.FaceImage,
		Filters:   req.Filters,
	}

	// 每个 goroutine 只写自己的槽位
	lists := make([]CandidateList, len(active))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range active {
		i, src := i, src
		g.Go(func() error {
			lists[i] = CandidateList{Mode: src.Mode(), Candidates: s.invoke(gctx, src, q)}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("canceled").Inc()
		span.RecordError(err)
		return nil, fmt.Errorf("search aborted: %w", err)
	}

	modesUsed := make([]Mode, 0, len(lists))
	for _, l := range lists {
		if contributes(l.Candidates) {
			modesUsed = append(modesUsed, l.Mode)
		}
	}

	ranked := s.ranker.Rank(Merge(lists...))
	elapsed := time.Since(start)

	metrics.SearchRequestsTotal.WithLabelValues("success").Inc()
	metrics.SearchDuration.Observe(elapsed.Seconds())
	span.SetAttributes(attribute.Int("search.total", len(ranked)))

	return &Response{
		Query:        req.Query,
		Total:        len(ranked),
		Limit:        req.Limit,
		Offset:       req.Offset,
		SearchTimeMs: elapsed.Milliseconds(),
		Results:      paginate(ranked, req.Offset, req.Limit),
		ModesUsed:    modesUsed,
	}, nil
}

// activeSources 按固定顺序返回本次请求需要调用的数据源；人脸无图片时跳过
func (s *Service) activeSources(req Request) []Source {
	out := make([]Source, 0, len(canonicalModes))
	for _, mode := range canonicalModes {
		if !req.Modes.Enabled(mode) {
			continue
		}
		if mode == ModeFace && req.FaceImage == "" {
			continue
		}
		if src, ok := s.sources[mode]; ok {
			out = append(out, src)
		}
	}
	return out
}

// invoke 调用单个数据源，错误降级为空结果
func (s *Service) invoke(ctx context.Context, src Source, q SourceQuery) []Candidate {
	mode := string(src.Mode())
	ctx, span := tracer.Start(ctx, "search.source."+mode)
	defer span.End()

	if s.adapterTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.adapterTimeout)
		defer cancel()
	}

	start := time.Now()
	cands, err := src.Search(ctx, q)
	metrics.SearchSourceDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		metrics.SearchSourceErrors.WithLabelValues(mode).Inc()
		logger.Warn(ctx, "search source failed, degrading to empty result",
			"source", mode,
			"error", err.Error(),
		)
		return nil
	}

	metrics.SearchSourceCandidates.WithLabelValues(mode).Observe(float64(len(cands)))
	span.SetAttributes(attribute.Int("search.candidates", len(cands)))
	return cands
}

// contributes 与 Merge 一致：无命中详情的候选不计入
func contributes(cands []Candidate) bool {
	for _, c := range cands {
		if c.Match != nil {
			return true
		}
	}
	return false
}
