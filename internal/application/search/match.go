package search

import "github.com/google/uuid"

// Match 命中信息，每个数据源一种具体类型
type Match interface {
	Source() Mode
	Score() float64
	sealed()
}

// KeywordOrigin 关键词来源
type KeywordOrigin string

const (
	KeywordManual KeywordOrigin = "manual"
	KeywordAI     KeywordOrigin = "ai"
)

const sceneDescriptionMaxRunes = 200

// TranscriptionMatch 转写文本命中
type TranscriptionMatch struct {
	Snippet string
	Rank    float64
}

func (m TranscriptionMatch) Source() Mode   { return ModeTranscription }
func (m TranscriptionMatch) Score() float64 { return m.Rank }
func (TranscriptionMatch) sealed()          {}

// SceneMatch 场景描述命中
type SceneMatch struct {
	TimecodeMs  int64
	Description string
	Rank        float64
}

// NewSceneMatch 创建场景命中，描述截断为 200 个字符
func NewSceneMatch(timecodeMs int64, description string, rank float64) SceneMatch {
	return SceneMatch{TimecodeMs: timecodeMs, Description: truncateRunes(description, sceneDescriptionMaxRunes), Rank: rank}
}

func (m SceneMatch) Source() Mode   { return ModeScene }
func (m SceneMatch) Score() float64 { return m.Rank }
func (SceneMatch) sealed()          {}

// KeywordMatch 关键词命中
type KeywordMatch struct {
	Keyword    string
	TimecodeMs *int64
	Origin     KeywordOrigin
	Rank       float64
}

func (m KeywordMatch) Source() Mode   { return ModeKeyword }
func (m KeywordMatch) Score() float64 { return m.Rank }
func (KeywordMatch) sealed()          {}

// MetadataMatch 标题/描述命中
type MetadataMatch struct {
	Snippet string
	Rank    float64
}

func (m MetadataMatch) Source() Mode   { return ModeMetadata }
func (m MetadataMatch) Score() float64 { return m.Rank }
func (MetadataMatch) sealed()          {}

// FaceMatch 人脸相似度命中
type FaceMatch struct {
	TimecodeMs *int64
	PersonID   *uuid.UUID
	PersonName *string
	Similarity float64
}

func (m FaceMatch) Source() Mode   { return ModeFace }
func (m FaceMatch) Score() float64 { return m.Similarity }
func (FaceMatch) sealed()          {}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
