package postgres

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"mam-search-api/internal/application/search"
)

// AssetFilterScope 把检索过滤条件下推为 assets（别名 a）上的谓词，未设置的条件不产生谓词
func AssetFilterScope(tenantID string, f search.Filters) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if f.AssetType != "" {
			db = db.Where("a.asset_type = ?", string(f.AssetType))
		}
		if f.Status != "" {
			db = db.Where("a.status = ?", string(f.Status))
		}
		if f.DateFrom != nil {
			db = db.Where("a.created_at >= ?", *f.DateFrom)
		}
		if f.DateTo != nil {
			db = db.Where("a.created_at <= ?", *f.DateTo)
		}
		if f.MinDurationMs != nil {
			db = db.Where("a.duration_ms >= ?", *f.MinDurationMs)
		}
		if f.MaxDurationMs != nil {
			db = db.Where("a.duration_ms <= ?", *f.MaxDurationMs)
		}
		if len(f.CollectionIDs) > 0 {
			db = db.Where(
				"a.id IN (SELECT asset_id FROM collection_items WHERE tenant_id = ? AND collection_id = ANY(?))",
				tenantID, pq.Array(uuidStrings(f.CollectionIDs)),
			)
		}
		if len(f.PersonIDs) > 0 {
			db = db.Where(
				"a.id IN (SELECT asset_id FROM asset_faces WHERE tenant_id = ? AND person_id = ANY(?))",
				tenantID, pq.Array(uuidStrings(f.PersonIDs)),
			)
		}
		return db
	}
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

var regconfigPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// textSearchConfig PostgreSQL 全文检索配置名，校验后直接内联到 SQL
type textSearchConfig string

func newTextSearchConfig(name string) (textSearchConfig, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "portuguese"
	}
	if !regconfigPattern.MatchString(name) {
		return "", fmt.Errorf("invalid text search config %q", name)
	}
	return textSearchConfig(name), nil
}

// tsquery 返回 plainto_tsquery('<cfg>', ?)
func (c textSearchConfig) tsquery() string {
	return fmt.Sprintf("plainto_tsquery('%s', ?)", string(c))
}

// headline 返回 ts_headline('<cfg>', <document>, plainto_tsquery(...), ?)
func (c textSearchConfig) headline(document string) string {
	return fmt.Sprintf("ts_headline('%s', %s, %s, ?)", string(c), document, c.tsquery())
}

// likePattern 构造 %q% 形式的 ILIKE 模式，转义通配符
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}
