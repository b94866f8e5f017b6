package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"mam-search-api/internal/application/search"
	"mam-search-api/internal/config"
	"mam-search-api/internal/domain/entity"
)

func newDryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=test dbname=test sslmode=disable",
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	require.NoError(t, err)
	return db
}

func newTestSearchRepo(t *testing.T, db *gorm.DB) *SearchRepository {
	t.Helper()
	repo, err := NewSearchRepository(NewClientWithDB(db), &config.SearchConfig{
		TextSearchConfig: "portuguese",
		ThumbnailBaseURL: "https://cdn.example.com/assets/",
	})
	require.NoError(t, err)
	return repo
}

func TestAssetFilterScope(t *testing.T) {
	db := newDryRunDB(t)
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	minDur, maxDur := int64(1000), int64(60000)
	collection := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	person := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	t.Run("empty filters add no predicates", func(t *testing.T) {
		stmt := db.Table("assets AS a").Scopes(AssetFilterScope("tenant-1", search.Filters{})).Find(&[]AssetRow{}).Statement
		assert.NotContains(t, stmt.SQL.String(), "WHERE")
	})

	t.Run("all filters", func(t *testing.T) {
		stmt := db.Table("assets AS a").Scopes(AssetFilterScope("tenant-1", search.Filters{
			AssetType:     entity.AssetTypeVideo,
			Status:        entity.AssetStatusAvailable,
			DateFrom:      &from,
			MinDurationMs: &minDur,
			MaxDurationMs: &maxDur,
			CollectionIDs: []uuid.UUID{collection},
			PersonIDs:     []uuid.UUID{person},
		})).Find(&[]AssetRow{}).Statement

		sql := stmt.SQL.String()
		assert.Contains(t, sql, "a.asset_type = $")
		assert.Contains(t, sql, "a.status = $")
		assert.Contains(t, sql, "a.created_at >= $")
		assert.NotContains(t, sql, "a.created_at <=")
		assert.Contains(t, sql, "a.duration_ms >= $")
		assert.Contains(t, sql, "a.duration_ms <= $")
		assert.Contains(t, sql, "FROM collection_items WHERE tenant_id = $")
		assert.Contains(t, sql, "FROM asset_faces WHERE tenant_id = $")
		assert.Contains(t, stmt.Vars, "video")
		assert.Contains(t, stmt.Vars, minDur)
		assert.Contains(t, stmt.Vars, "tenant-1")
	})
}

func TestSearchRepository_TranscriptionQuery(t *testing.T) {
	db := newDryRunDB(t)
	repo := newTestSearchRepo(t, db)

	q := search.SourceQuery{TenantID: "tenant-1", Text: "sunset beach", Filters: search.Filters{AssetType: entity.AssetTypeVideo}}
	stmt := repo.transcriptionQuery(db, q, 100).Find(&[]rankedTextRow{}).Statement
	sql := stmt.SQL.String()

	assert.Contains(t, sql, "FROM asset_transcriptions AS t")
	assert.Contains(t, sql, "JOIN assets a ON a.id = t.asset_id")
	assert.Contains(t, sql, "ts_rank(t.search_vector, plainto_tsquery('portuguese', $")
	assert.Contains(t, sql, "ts_headline('portuguese', t.full_text")
	assert.Contains(t, sql, "t.search_vector @@ plainto_tsquery('portuguese'")
	assert.Contains(t, sql, "a.asset_type = $")
	assert.Contains(t, sql, "ORDER BY rank DESC")
	assert.Contains(t, sql, "LIMIT")
	assert.Contains(t, stmt.Vars, "sunset beach")
	assert.Contains(t, stmt.Vars, transcriptionHeadlineOptions)
}

func TestSearchRepository_SceneAndMetadataQueries(t *testing.T) {
	db := newDryRunDB(t)
	repo := newTestSearchRepo(t, db)
	q := search.SourceQuery{TenantID: "tenant-1", Text: "sunset"}

	scene := repo.sceneQuery(db, q, 100).Find(&[]sceneRow{}).Statement.SQL.String()
	assert.Contains(t, scene, "FROM asset_scene_descriptions AS s")
	assert.Contains(t, scene, "s.description AS scene_description")
	assert.Contains(t, scene, "s.search_vector @@")

	meta := repo.metadataQuery(db, q, 100).Find(&[]rankedTextRow{}).Statement
	assert.Contains(t, meta.SQL.String(), "FROM assets AS a")
	assert.Contains(t, meta.SQL.String(), "ts_headline('portuguese', a.title")
	assert.Contains(t, meta.Vars, metadataHeadlineOptions)
}

func TestSearchRepository_KeywordQuery(t *testing.T) {
	db := newDryRunDB(t)
	repo := newTestSearchRepo(t, db)
	q := search.SourceQuery{TenantID: "tenant-1", Text: "100%_Sunset"}

	stmt := repo.keywordQuery(db, "ai_extracted_keywords", "k.confidence", q, 50).Find(&[]keywordRow{}).Statement
	sql := stmt.SQL.String()

	assert.Contains(t, sql, "FROM ai_extracted_keywords AS k")
	assert.Contains(t, sql, "k.confidence AS rank")
	assert.Contains(t, sql, "k.start_ms AS timecode_ms")
	assert.Contains(t, sql, "k.keyword_normalized ILIKE $")
	assert.NotContains(t, sql, "ORDER BY")
	assert.Contains(t, stmt.Vars, `%100\%\_sunset%`)
}

func TestFaceIndex_NearestQuery(t *testing.T) {
	db := newDryRunDB(t)
	idx := NewFaceIndex(NewClientWithDB(db), &config.SearchConfig{})

	stmt := idx.nearestQuery(db, search.FaceQuery{
		TenantID:  "tenant-1",
		Embedding: []float32{0.5, -0.25, 1},
		Limit:     50,
	}).Find(&[]faceRow{}).Statement
	sql := stmt.SQL.String()

	assert.Contains(t, sql, "1 - (f.face_embedding <=> $")
	assert.Contains(t, sql, "LEFT JOIN persons p ON p.id = f.person_id")
	assert.Contains(t, sql, "f.face_embedding IS NOT NULL")
	assert.Contains(t, sql, "ORDER BY f.face_embedding <=> $")
	assert.Contains(t, stmt.Vars, "[0.5,-0.25,1]")
}

func TestFaceRepository_ListQuery(t *testing.T) {
	db := newDryRunDB(t)
	repo := NewFaceRepository(NewClientWithDB(db))

	sql := repo.listQuery(db, "tenant-1", "asset-1", "face-9", 200).Find(&[]faceEmbeddingRow{}).Statement.SQL.String()
	assert.Contains(t, sql, "face_embedding::text AS embedding")
	assert.Contains(t, sql, "asset_id = $")
	assert.Contains(t, sql, "id > $")
	assert.Contains(t, sql, "ORDER BY id ASC")
}

func TestDisplayMapper(t *testing.T) {
	id := uuid.MustParse("33333333-3333-3333-3333-333333333333")
	row := AssetRow{AssetID: id, Title: "Sunset", AssetType: "video", Status: "available"}

	d := displayMapper{thumbnailBaseURL: "https://cdn.example.com/assets"}.display(row)
	require.NotNil(t, d.ThumbnailURL)
	assert.Equal(t, "https://cdn.example.com/assets/"+id.String()+"/thumbnail.jpg", *d.ThumbnailURL)
	assert.NotNil(t, d.CreatedAt)

	d = displayMapper{}.display(row)
	assert.Nil(t, d.ThumbnailURL)
}

func TestNewTextSearchConfig(t *testing.T) {
	cfg, err := newTextSearchConfig("")
	require.NoError(t, err)
	assert.Equal(t, textSearchConfig("portuguese"), cfg)

	cfg, err = newTextSearchConfig("simple")
	require.NoError(t, err)
	assert.Equal(t, "plainto_tsquery('simple', ?)", cfg.tsquery())

	for _, bad := range []string{"english'; DROP TABLE assets; --", "Portuguese", "pt-br"} {
		_, err := newTextSearchConfig(bad)
		assert.Error(t, err, bad)
	}
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, "%sunset%", likePattern("sunset"))
	assert.Equal(t, `%50\% off\_now\\%`, likePattern(`50% off_now\`))
}

func TestVectorFormat(t *testing.T) {
	assert.Equal(t, "[]", formatVector(nil))
	assert.Equal(t, "[0.1,0.2,-3]", formatVector([]float32{0.1, 0.2, -3}))

	v, err := parseVector("[0.1, 0.2,-3]")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, -3}, v)

	v, err = parseVector("[]")
	require.NoError(t, err)
	assert.Empty(t, v)

	_, err = parseVector("0.1,0.2")
	assert.Error(t, err)
	_, err = parseVector("[0.1,abc]")
	assert.Error(t, err)
}
