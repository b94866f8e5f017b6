package search

import "github.com/google/uuid"

// Entity 合并后的资产
type Entity struct {
	AssetID uuid.UUID
	Display DisplayFields
	Matches []Match
	// Ranks 每个数据源最后一次出现的原始分数
	Ranks map[Mode]float64
}

// MergedSet 按资产 ID 去重后的集合，保持首次出现顺序
type MergedSet struct {
	order []uuid.UUID
	byID  map[uuid.UUID]*Entity
}

// Len 资产数量
func (s *MergedSet) Len() int {
	return len(s.order)
}

// Get 按资产 ID 查找
func (s *MergedSet) Get(id uuid.UUID) (*Entity, bool) {
	e, ok := s.byID[id]
	return e, ok
}

// Entities 按插入顺序返回
func (s *MergedSet) Entities() []*Entity {
	out := make([]*Entity, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// Merge 合并多个数据源的候选：展示字段取首次出现，命中全部追加
func Merge(lists ...CandidateList) *MergedSet {
	set := &MergedSet{byID: make(map[uuid.UUID]*Entity)}
	for _, list := range lists {
		for _, c := range list.Candidates {
			if c.Match == nil {
				continue
			}
			e, ok := set.byID[c.AssetID]
			if !ok {
				e = &Entity{
					AssetID: c.AssetID,
					Display: c.Display,
					Ranks:   make(map[Mode]float64, 1),
				}
				set.byID[c.AssetID] = e
				set.order = append(set.order, c.AssetID)
			}
			e.Matches = append(e.Matches, c.Match)
			e.Ranks[list.Mode] = c.Match.Score()
		}
	}
	return set
}
