package search

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mam-search-api/internal/domain/entity"
)

func newTestService(sources ...Source) *Service {
	return NewService(sources, NewRanker(60, 0.2))
}

func TestService_SunsetScenario(t *testing.T) {
	a := mustUUID("00000000-0000-0000-0000-0000000000aa")
	b := mustUUID("00000000-0000-0000-0000-0000000000bb")

	metadata := &fakeSource{mode: ModeMetadata, cands: []Candidate{
		candidate(a, "Sunset over the bay", MetadataMatch{Snippet: "<mark>Sunset</mark> over the bay", Rank: 0.8}),
		candidate(b, "Beach at sunset", MetadataMatch{Snippet: "Beach at <mark>sunset</mark>", Rank: 0.3}),
	}}
	keyword := &fakeSource{mode: ModeKeyword, cands: []Candidate{
		candidate(a, "Sunset over the bay", KeywordMatch{Keyword: "sunset", Origin: KeywordManual, Rank: 1.0}),
	}}
	transcription := &fakeSource{mode: ModeTranscription}
	scene := &fakeSource{mode: ModeScene}
	face := &fakeSource{mode: ModeFace}

	svc := newTestService(transcription, scene, metadata, keyword, face)
	resp, err := svc.Search(context.Background(), "tenant-1", Request{
		Query:   "sunset",
		Modes:   Modes{Metadata: true, Keywords: true},
		Filters: Filters{AssetType: entity.AssetTypeVideo},
		Limit:   20,
	})
	require.NoError(t, err)

	require.Equal(t, 2, resp.Total)
	assert.Equal(t, a, resp.Results[0].AssetID)
	assert.Equal(t, b, resp.Results[1].AssetID)
	assert.Len(t, resp.Results[0].Matches, 2)
	assert.Greater(t, resp.Results[0].CombinedScore, resp.Results[1].CombinedScore)
	assert.Equal(t, []Mode{ModeMetadata, ModeKeyword}, resp.ModesUsed)

	assert.Zero(t, transcription.calls.Load())
	assert.Zero(t, scene.calls.Load())
	assert.Zero(t, face.calls.Load())
	assert.Equal(t, entity.AssetTypeVideo, metadata.lastQuery.Filters.AssetType)
	assert.Equal(t, "tenant-1", keyword.lastQuery.TenantID)
}

func TestService_FaceSkippedWithoutImage(t *testing.T) {
	face := &fakeSource{mode: ModeFace, cands: []Candidate{candidate(uuid.New(), "x", FaceMatch{Similarity: 0.9})}}
	svc := newTestService(face)

	resp, err := svc.Search(context.Background(), "t", Request{Query: "anyone", Modes: AllModes()})
	require.NoError(t, err)

	assert.Zero(t, face.calls.Load())
	assert.Empty(t, resp.ModesUsed)
	assert.Empty(t, resp.Results)
}

func TestService_FaceFailureDegradesGracefully(t *testing.T) {
	id := uuid.New()
	face := &fakeSource{mode: ModeFace, err: ErrNoFaceDetected}
	metadata := &fakeSource{mode: ModeMetadata, cands: []Candidate{candidate(id, "x", MetadataMatch{Rank: 0.5})}}

	svc := newTestService(face, metadata)
	resp, err := svc.Search(context.Background(), "t", Request{Query: "x", Modes: AllModes(), FaceImage: "aW1n"})
	require.NoError(t, err)

	assert.Equal(t, int32(1), face.calls.Load())
	assert.Equal(t, []Mode{ModeMetadata}, resp.ModesUsed)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, id, resp.Results[0].AssetID)
}

func TestService_AllSourcesFailing(t *testing.T) {
	boom := errors.New("db down")
	svc := newTestService(
		&fakeSource{mode: ModeTranscription, err: boom},
		&fakeSource{mode: ModeScene, err: boom},
		&fakeSource{mode: ModeMetadata, err: boom},
		&fakeSource{mode: ModeKeyword, err: boom},
	)

	resp, err := svc.Search(context.Background(), "t", Request{Query: "x", Modes: AllModes()})
	require.NoError(t, err)
	assert.Zero(t, resp.Total)
	assert.Empty(t, resp.Results)
	assert.Empty(t, resp.ModesUsed)
}

func TestService_ValidationRunsBeforeSources(t *testing.T) {
	src := &fakeSource{mode: ModeMetadata}
	svc := newTestService(src)

	_, err := svc.Search(context.Background(), "t", Request{Query: "", Modes: AllModes()})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.Search(context.Background(), " ", Request{Query: "x", Modes: AllModes()})
	assert.ErrorIs(t, err, ErrTenantRequired)

	assert.Zero(t, src.calls.Load())
}

func TestService_PaginationConsistency(t *testing.T) {
	cands := make([]Candidate, 0, 12)
	for i := 0; i < 12; i++ {
		id := mustUUID(fmt.Sprintf("00000000-0000-0000-0000-%012d", i))
		// 多组同分，考察稳定的平局顺序
		cands = append(cands, candidate(id, fmt.Sprint(i), MetadataMatch{Rank: float64(i % 3)}))
	}
	extra := &fakeSource{mode: ModeKeyword, cands: []Candidate{
		candidate(cands[4].AssetID, "4", KeywordMatch{Keyword: "k", Rank: 1}),
		candidate(cands[7].AssetID, "7", KeywordMatch{Keyword: "k", Rank: 0.5}),
	}}
	svc := newTestService(&fakeSource{mode: ModeMetadata, cands: cands}, extra)

	req := Request{Query: "x", Modes: AllModes()}
	req.Limit = 10
	full, err := svc.Search(context.Background(), "t", req)
	require.NoError(t, err)

	req.Limit, req.Offset = 5, 0
	p1, err := svc.Search(context.Background(), "t", req)
	require.NoError(t, err)
	req.Offset = 5
	p2, err := svc.Search(context.Background(), "t", req)
	require.NoError(t, err)

	assert.Equal(t, 12, full.Total)
	assert.Equal(t, full.Total, p1.Total)
	assert.Equal(t, full.Results, append(append([]Result{}, p1.Results...), p2.Results...))

	req.Offset = 50
	empty, err := svc.Search(context.Background(), "t", req)
	require.NoError(t, err)
	assert.Equal(t, 12, empty.Total)
	assert.Empty(t, empty.Results)
}

func TestService_Deterministic(t *testing.T) {
	cands := []Candidate{
		candidate(uuid.New(), "a", MetadataMatch{Rank: 0.5}),
		candidate(uuid.New(), "b", MetadataMatch{Rank: 0.5}),
		candidate(uuid.New(), "c", MetadataMatch{Rank: 0.5}),
	}
	svc := newTestService(
		&fakeSource{mode: ModeMetadata, cands: cands},
		&fakeSource{mode: ModeScene, cands: cands[1:], delay: time.Millisecond},
	)

	first, err := svc.Search(context.Background(), "t", Request{Query: "x", Modes: AllModes()})
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := svc.Search(context.Background(), "t", Request{Query: "x", Modes: AllModes()})
		require.NoError(t, err)
		assert.Equal(t, first.Results, again.Results)
		assert.Equal(t, first.ModesUsed, again.ModesUsed)
	}
}

func TestService_CanceledRequestReturnsError(t *testing.T) {
	slow := &fakeSource{mode: ModeMetadata, delay: time.Second, cands: []Candidate{candidate(uuid.New(), "x", MetadataMatch{Rank: 1})}}
	svc := newTestService(slow)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	resp, err := svc.Search(ctx, "t", Request{Query: "x", Modes: AllModes()})
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestService_AdapterTimeoutDegradesOnlyThatSource(t *testing.T) {
	id := uuid.New()
	slow := &fakeSource{mode: ModeScene, delay: time.Second}
	fast := &fakeSource{mode: ModeMetadata, cands: []Candidate{candidate(id, "x", MetadataMatch{Rank: 1})}}

	svc := NewService([]Source{slow, fast}, nil, WithAdapterTimeout(20*time.Millisecond))
	resp, err := svc.Search(context.Background(), "t", Request{Query: "x", Modes: AllModes()})
	require.NoError(t, err)
	assert.Equal(t, []Mode{ModeMetadata}, resp.ModesUsed)
	assert.Equal(t, 1, resp.Total)
}

func TestService_ModesUsedFollowsCanonicalOrder(t *testing.T) {
	id := uuid.New()
	svc := newTestService(
		&fakeSource{mode: ModeFace, cands: []Candidate{candidate(id, "x", FaceMatch{Similarity: 0.9})}},
		&fakeSource{mode: ModeKeyword, cands: []Candidate{candidate(id, "x", KeywordMatch{Rank: 1})}},
		&fakeSource{mode: ModeTranscription, cands: []Candidate{candidate(id, "x", TranscriptionMatch{Rank: 0.1})}},
	)

	resp, err := svc.Search(context.Background(), "t", Request{Query: "x", Modes: AllModes(), FaceImage: "aW1n"})
	require.NoError(t, err)
	assert.Equal(t, []Mode{ModeTranscription, ModeKeyword, ModeFace}, resp.ModesUsed)
	require.Len(t, resp.Results, 1)
	assert.Len(t, resp.Results[0].Matches, 3)
}

func TestService_ModesUsedIgnoresCandidatesWithoutMatch(t *testing.T) {
	id := uuid.New()
	svc := newTestService(
		&fakeSource{mode: ModeScene, cands: []Candidate{{AssetID: uuid.New(), Display: DisplayFields{Title: "y"}}}},
		&fakeSource{mode: ModeMetadata, cands: []Candidate{candidate(id, "x", MetadataMatch{Rank: 0.5})}},
	)

	resp, err := svc.Search(context.Background(), "t", Request{Query: "x", Modes: AllModes()})
	require.NoError(t, err)
	assert.Equal(t, []Mode{ModeMetadata}, resp.ModesUsed)
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, id, resp.Results[0].AssetID)
}
