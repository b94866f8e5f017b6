// Package search 实现多模态检索：多数据源并发召回、按资产合并、RRF 融合排序。
package search

import (
	"time"

	"github.com/google/uuid"

	"mam-search-api/internal/domain/entity"
)

// Mode 检索数据源
type Mode string

const (
	ModeTranscription Mode = "transcription"
	ModeScene         Mode = "scene"
	ModeMetadata      Mode = "metadata"
	ModeKeyword       Mode = "keyword"
	ModeFace          Mode = "face"
)

// canonicalModes 数据源的固定顺序，modes_used 按此顺序输出
var canonicalModes = []Mode{ModeTranscription, ModeScene, ModeMetadata, ModeKeyword, ModeFace}

// Modes 各数据源开关
type Modes struct {
	Transcription bool
	Face          bool
	Scene         bool
	Keywords      bool
	Metadata      bool
}

// AllModes 全部开启
func AllModes() Modes {
	return Modes{Transcription: true, Face: true, Scene: true, Keywords: true, Metadata: true}
}

// Enabled 判断指定数据源是否开启
func (m Modes) Enabled(mode Mode) bool {
	switch mode {
	case ModeTranscription:
		return m.Transcription
	case ModeScene:
		return m.Scene
	case ModeMetadata:
		return m.Metadata
	case ModeKeyword:
		return m.Keywords
	case ModeFace:
		return m.Face
	}
	return false
}

// Filters 过滤条件，全部可选，条件之间为 AND
type Filters struct {
	AssetType     entity.AssetType
	Status        entity.AssetStatus
	DateFrom      *time.Time
	DateTo        *time.Time
	CollectionIDs []uuid.UUID
	PersonIDs     []uuid.UUID
	MinDurationMs *int64
	MaxDurationMs *int64
}

// Request 多模态检索请求
type Request struct {
	Query     string
	Modes     Modes
	Filters   Filters
	FaceImage string
	Limit     int
	Offset    int
}

// DisplayFields 结果展示字段
type DisplayFields struct {
	Title        string
	Description  *string
	AssetType    string
	Status       string
	ThumbnailURL *string
	DurationMs   *int64
	CreatedAt    *time.Time
}

// Candidate 单个数据源返回的候选
type Candidate struct {
	AssetID uuid.UUID
	Display DisplayFields
	Match   Match
}

// CandidateList 某个数据源的全部候选
type CandidateList struct {
	Mode       Mode
	Candidates []Candidate
}

// Result 一条排序后的资产结果
type Result struct {
	AssetID       uuid.UUID
	Display       DisplayFields
	Matches       []Match
	CombinedScore float64
}

// Response 检索响应
type Response struct {
	Query        string
	Total        int
	Limit        int
	Offset       int
	SearchTimeMs int64
	Results      []Result
	ModesUsed    []Mode
}

// SuggestionType 建议类型
type SuggestionType string

const (
	SuggestionKeyword SuggestionType = "keyword"
	SuggestionPerson  SuggestionType = "person"
	SuggestionTitle   SuggestionType = "title"
)

// Suggestion 搜索建议
type Suggestion struct {
	Text  string         `json:"text"`
	Type  SuggestionType `json:"type"`
	Count int            `json:"count"`
}
