package search

import (
	"sort"
)

const (
	DefaultRRFK            = 60.0
	DefaultMultiMatchBoost = 0.2
)

// Ranker RRF 融合排序：rrf = Σ 1/(K+rank)，再乘以多命中加成 (1 + (N-1)*Boost)
type Ranker struct {
	K     float64
	Boost float64
}

// NewRanker 创建排序器，非法参数回退到默认值
func NewRanker(k, boost float64) *Ranker {
	if k <= 0 {
		k = DefaultRRFK
	}
	if boost < 0 {
		boost = DefaultMultiMatchBoost
	}
	return &Ranker{K: k, Boost: boost}
}

// Score 计算单个资产的融合分数，不修改 matches
func (r *Ranker) Score(matches []Match) float64 {
	n := len(matches)
	if n == 0 {
		return 0
	}

	ordered := make([]Match, n)
	copy(ordered, matches)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Score() > ordered[j].Score() })

	var rrf float64
	for i := range ordered {
		rrf += 1.0 / (r.K + float64(i+1))
	}
	return rrf * (1 + float64(n-1)*r.Boost)
}

// Rank 计算融合分数并按分数降序、资产 ID 升序排序
func (r *Ranker) Rank(set *MergedSet) []Result {
	entities := set.Entities()
	results := make([]Result, 0, len(entities))
	for _, e := range entities {
		results = append(results, Result{
			AssetID:       e.AssetID,
			Display:       e.Display,
			Matches:       e.Matches,
			CombinedScore: r.Score(e.Matches),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].CombinedScore != results[j].CombinedScore {
			return results[i].CombinedScore > results[j].CombinedScore
		}
		return results[i].AssetID.String() < results[j].AssetID.String()
	})
	return results
}

// paginate 截取 [offset, offset+limit)，越界时截断
func paginate(results []Result, offset, limit int) []Result {
	if offset >= len(results) {
		return []Result{}
	}
	end := offset + limit
	if end > len(results) {
		end = len(results)
	}
	return results[offset:end]
}
