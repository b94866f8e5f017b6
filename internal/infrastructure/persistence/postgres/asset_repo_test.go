package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"mam-search-api/internal/config"
	"mam-search-api/internal/domain/entity"
	"mam-search-api/internal/domain/repository"
)

func newTestAssetRepo(t *testing.T, db *gorm.DB) *AssetRepository {
	t.Helper()
	repo, err := NewAssetRepository(NewClientWithDB(db), &config.SearchConfig{TextSearchConfig: "portuguese"})
	require.NoError(t, err)
	return repo
}

func TestAssetRepository_TextBase(t *testing.T) {
	db := newDryRunDB(t)
	repo := newTestAssetRepo(t, db)

	t.Run("status defaults to available", func(t *testing.T) {
		stmt := repo.textBase(db, "tenant-1", repository.AssetTextQuery{Query: "sunset"}).Find(&[]entity.Asset{}).Statement
		sql := stmt.SQL.String()
		assert.Contains(t, sql, "deleted_at IS NULL")
		assert.Contains(t, sql, "search_vector @@ plainto_tsquery('portuguese', $")
		assert.Contains(t, stmt.Vars, entity.AssetStatusAvailable)
		assert.NotContains(t, sql, "asset_type")
	})

	t.Run("explicit filters", func(t *testing.T) {
		from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		stmt := repo.textBase(db, "tenant-1", repository.AssetTextQuery{
			Query:     "sunset",
			AssetType: entity.AssetTypeAudio,
			Status:    entity.AssetStatusArchived,
			DateFrom:  &from,
		}).Find(&[]entity.Asset{}).Statement
		assert.Contains(t, stmt.SQL.String(), "asset_type = $")
		assert.Contains(t, stmt.SQL.String(), "created_at >= $")
		assert.Contains(t, stmt.Vars, entity.AssetStatusArchived)
		assert.NotContains(t, stmt.Vars, entity.AssetStatusAvailable)
	})
}

func TestAssetRepository_AdvancedBase(t *testing.T) {
	db := newDryRunDB(t)
	repo := newTestAssetRepo(t, db)
	minSize := int64(1024)

	stmt := repo.advancedBase(db, "tenant-1", repository.AssetAdvancedQuery{
		Title:        "news",
		Visibility:   entity.VisibilityPublic,
		MinSizeBytes: &minSize,
		Keywords:     []string{"beach", "sunset"},
	}).Find(&[]entity.Asset{}).Statement
	sql := stmt.SQL.String()

	assert.NotContains(t, sql, "search_vector")
	assert.Contains(t, sql, "title ILIKE $")
	assert.Contains(t, sql, "visibility = $")
	assert.Contains(t, sql, "file_size_bytes >= $")
	assert.Contains(t, sql, "keyword = ANY($")
	assert.Contains(t, stmt.Vars, "%news%")
}

func TestOrderClause(t *testing.T) {
	assert.Equal(t, "created_at DESC", orderClause(repository.Sort{}))
	assert.Equal(t, "title ASC", orderClause(repository.Sort{Field: "title", Order: repository.SortOrderAsc}))
	assert.Equal(t, "created_at DESC", orderClause(repository.Sort{Field: "id; DROP TABLE assets"}))
	assert.Equal(t, "duration_ms DESC", orderClause(repository.Sort{Field: "duration_ms", Order: "sideways"}))
}
