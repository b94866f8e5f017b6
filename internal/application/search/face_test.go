package search

import (
	"context"
	"encoding/base64"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R', 0, 0, 0, 1, 0, 0, 0, 1, 8, 2, 0, 0, 0}

type fakeEmbedder struct {
	vec   []float32
	err   error
	calls atomic.Int32
}

func (f *fakeEmbedder) EmbedFace(_ context.Context, _ []byte) ([]float32, error) {
	f.calls.Add(1)
	return f.vec, f.err
}

type fakeFaceIndex struct {
	cands []Candidate
	err   error
	last  FaceQuery
}

func (f *fakeFaceIndex) NearestFaces(_ context.Context, q FaceQuery) ([]Candidate, error) {
	f.last = q
	if f.err != nil {
		return nil, f.err
	}
	out := make([]Candidate, len(f.cands))
	copy(out, f.cands)
	return out, nil
}

func TestDecodeFaceImage(t *testing.T) {
	raw := base64.StdEncoding.EncodeToString(pngHeader)

	tests := []struct {
		name    string
		payload string
		max     int
		wantErr bool
	}{
		{name: "plain base64", payload: raw},
		{name: "data url", payload: "data:image/png;base64," + raw},
		{name: "unpadded", payload: base64.RawStdEncoding.EncodeToString(pngHeader)},
		{name: "empty", payload: "", wantErr: true},
		{name: "not base64", payload: "%%%not-base64%%%", wantErr: true},
		{name: "data url without base64 marker", payload: "data:image/png," + raw, wantErr: true},
		{name: "not an image", payload: base64.StdEncoding.EncodeToString([]byte("hello world, plain text")), wantErr: true},
		{name: "too large", payload: raw, max: 8, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := DecodeFaceImage(tt.payload, tt.max)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidFaceImage)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, pngHeader, img)
		})
	}
}

func TestFaceSource_FiltersBySimilarity(t *testing.T) {
	high, low := uuid.New(), uuid.New()
	index := &fakeFaceIndex{cands: []Candidate{
		candidate(high, "high", FaceMatch{Similarity: 0.91}),
		candidate(low, "edge", FaceMatch{Similarity: 0.5}),
		candidate(uuid.New(), "low", FaceMatch{Similarity: 0.49}),
	}}
	src, err := NewFaceSource(&fakeEmbedder{vec: []float32{0.1, 0.2}}, index, FaceSourceConfig{})
	require.NoError(t, err)

	got, err := src.Search(context.Background(), SourceQuery{
		TenantID:  "t",
		FaceImage: base64.StdEncoding.EncodeToString(pngHeader),
		Filters:   Filters{AssetType: "video"},
	})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, high, got[0].AssetID)
	assert.Equal(t, low, got[1].AssetID)
	assert.Equal(t, 50, index.last.Limit)
	assert.Equal(t, "t", index.last.TenantID)
	assert.Equal(t, []float32{0.1, 0.2}, index.last.Embedding)
	assert.EqualValues(t, "video", index.last.Filters.AssetType)
}

func TestFaceSource_CachesEmbeddings(t *testing.T) {
	emb := &fakeEmbedder{vec: []float32{1}}
	src, err := NewFaceSource(emb, &fakeFaceIndex{}, FaceSourceConfig{CacheSize: 4})
	require.NoError(t, err)

	q := SourceQuery{TenantID: "t", FaceImage: base64.StdEncoding.EncodeToString(pngHeader)}
	_, err = src.Search(context.Background(), q)
	require.NoError(t, err)
	_, err = src.Search(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, int32(1), emb.calls.Load())
}

func TestFaceSource_Errors(t *testing.T) {
	img := base64.StdEncoding.EncodeToString(pngHeader)

	t.Run("invalid image", func(t *testing.T) {
		emb := &fakeEmbedder{vec: []float32{1}}
		src, err := NewFaceSource(emb, &fakeFaceIndex{}, FaceSourceConfig{})
		require.NoError(t, err)
		_, err = src.Search(context.Background(), SourceQuery{FaceImage: "bm90IGFuIGltYWdl"})
		assert.ErrorIs(t, err, ErrInvalidFaceImage)
		assert.Zero(t, emb.calls.Load())
	})

	t.Run("no face", func(t *testing.T) {
		src, err := NewFaceSource(&fakeEmbedder{err: ErrNoFaceDetected}, &fakeFaceIndex{}, FaceSourceConfig{})
		require.NoError(t, err)
		_, err = src.Search(context.Background(), SourceQuery{FaceImage: img})
		assert.ErrorIs(t, err, ErrNoFaceDetected)
	})

	t.Run("embedding service failure", func(t *testing.T) {
		src, err := NewFaceSource(&fakeEmbedder{err: errors.New("503")}, &fakeFaceIndex{}, FaceSourceConfig{})
		require.NoError(t, err)
		_, err = src.Search(context.Background(), SourceQuery{FaceImage: img})
		assert.ErrorIs(t, err, ErrFaceEmbedding)
	})

	t.Run("index failure", func(t *testing.T) {
		boom := errors.New("milvus down")
		src, err := NewFaceSource(&fakeEmbedder{vec: []float32{1}}, &fakeFaceIndex{err: boom}, FaceSourceConfig{})
		require.NoError(t, err)
		_, err = src.Search(context.Background(), SourceQuery{FaceImage: img})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("missing collaborators", func(t *testing.T) {
		_, err := NewFaceSource(nil, &fakeFaceIndex{}, FaceSourceConfig{})
		assert.Error(t, err)
	})
}
