package search

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

type fakeSource struct {
	mode      Mode
	cands     []Candidate
	err       error
	delay     time.Duration
	calls     atomic.Int32
	mu        sync.Mutex
	lastQuery SourceQuery
}

func (f *fakeSource) Mode() Mode { return f.mode }

func (f *fakeSource) Search(ctx context.Context, q SourceQuery) ([]Candidate, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.lastQuery = q
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.cands, nil
}

func candidate(id uuid.UUID, title string, m Match) Candidate {
	return Candidate{AssetID: id, Display: DisplayFields{Title: title, AssetType: "video", Status: "available"}, Match: m}
}

func mustUUID(s string) uuid.UUID {
	return uuid.MustParse(s)
}

func int64Ptr(v int64) *int64 { return &v }
