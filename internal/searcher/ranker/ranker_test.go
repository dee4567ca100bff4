package ranker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/catalogue"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/catalogue/cataloguetest"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/indexer/index"
)

func snapshotOf(t testing.TB, raw []catalogue.RawPost) *index.Snapshot {
	t.Helper()
	cat := cataloguetest.MustLoad(t, raw)
	b := index.NewBuilder(cat.Len())
	for _, p := range cat.Chronological() {
		require.NoError(t, b.Add(p))
	}
	snap, err := b.Build(nil, time.Now())
	require.NoError(t, err)
	return snap
}

func TestRankScenario(t *testing.T) {
	snap := snapshotOf(t, cataloguetest.Trio())

	got := Rank(snap, []string{"json", "security"})
	assert.Equal(t, []Scored{
		{PostID: "post2", Score: 7},
		{PostID: "post1", Score: 3},
		{PostID: "post3", Score: 3},
	}, got)
}

func TestRankExcludesNonMatching(t *testing.T) {
	snap := snapshotOf(t, cataloguetest.Trio())
	assert.Equal(t, []Scored{{PostID: "post3", Score: 1}}, Rank(snap, []string{"quarter"}))
	assert.Empty(t, Rank(snap, []string{"kubernetes"}))
	assert.Empty(t, Rank(snap, nil))
}

func TestRankTieBreaksByRecencyThenID(t *testing.T) {
	raw := []catalogue.RawPost{
		{ID: "b", Title: "Go", Category: "c", Date: "2025-01-01"},
		{ID: "a", Title: "Go", Category: "c", Date: "2025-01-01"},
		{ID: "z", Title: "Go", Category: "c", Date: "2025-02-01"},
	}
	snap := snapshotOf(t, raw)
	got := Rank(snap, []string{"go"})
	ids := []string{got[0].PostID, got[1].PostID, got[2].PostID}
	// equal dates keep load order in the chronological rank
	assert.Equal(t, []string{"z", "b", "a"}, ids)
}

func TestRelatedCandidatesScenario(t *testing.T) {
	snap := snapshotOf(t, cataloguetest.Trio())
	target, _ := snap.Post("post2")

	got := RelatedCandidates(snap, target)
	Sort(snap, got)
	assert.Equal(t, []Scored{
		{PostID: "post1", Score: 2},
		{PostID: "post3", Score: 2},
	}, got)
}

func TestRelatedCandidatesScoring(t *testing.T) {
	raw := []catalogue.RawPost{
		{ID: "target", Category: "Go", Date: "2025-03-01", Tags: []string{"a", "b"}},
		{ID: "both-tags", Category: "Rust", Date: "2025-02-01", Tags: []string{"a", "b"}},
		{ID: "tag-and-cat", Category: "Go", Date: "2025-01-01", Tags: []string{"a"}},
		{ID: "cat-only", Category: "Go", Date: "2025-01-02"},
		{ID: "unrelated", Category: "Rust", Date: "2025-04-01", Tags: []string{"c"}},
	}
	snap := snapshotOf(t, raw)
	target, _ := snap.Post("target")

	got := RelatedCandidates(snap, target)
	Sort(snap, got)
	assert.Equal(t, []Scored{
		{PostID: "both-tags", Score: 4},
		{PostID: "tag-and-cat", Score: 3},
		{PostID: "cat-only", Score: 1},
	}, got)
}

func BenchmarkRank(b *testing.B) {
	snap := snapshotOf(b, cataloguetest.Generate(5000))
	terms := []string{"json", "security", "performance"}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Rank(snap, terms)
	}
}
