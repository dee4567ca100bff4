// Package ranker scores posts against a query or against another post and
// orders them deterministically.
package ranker

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/catalogue"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/indexer/index"
)

// Scores for related posts.
const (
	SharedTagScore    = 2
	SameCategoryScore = 1
)

// Index is the part of a snapshot the ranker reads.
type Index interface {
	Postings(term string) index.PostingList
	Rank(id string) int
	Post(id string) (*catalogue.Post, bool)
	Tag(tag string) []string
	Category(category string) []string
}

type Scored struct {
	PostID string `json:"id"`
	Score  int    `json:"score"`
}

// Better orders by score descending, then chronological rank (newer first),
// then id.
func Better(idx Index) func(a, b Scored) bool {
	return func(a, b Scored) bool {
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		ra, rb := idx.Rank(a.PostID), idx.Rank(b.PostID)
		if ra != rb {
			return ra < rb
		}
		return a.PostID < b.PostID
	}
}

// Rank scores every post matching at least one term by the sum of its
// weighted term frequencies and returns them best first.
func Rank(idx Index, terms []string) []Scored {
	scores := make(map[string]int)
	for _, term := range terms {
		for _, p := range idx.Postings(term) {
			scores[p.PostID] += p.Frequency
		}
	}
	result := collect(scores, "")
	Sort(idx, result)
	return result
}

// RelatedCandidates scores every other post against target: SharedTagScore
// per shared tag plus SameCategoryScore for a shared category. Posts scoring
// zero are left out; the result is unordered.
func RelatedCandidates(idx Index, target *catalogue.Post) []Scored {
	scores := make(map[string]int)
	for _, tag := range target.Tags {
		for _, id := range idx.Tag(tag) {
			scores[id] += SharedTagScore
		}
	}
	for _, id := range idx.Category(target.Category) {
		scores[id] += SameCategoryScore
	}
	return collect(scores, target.ID)
}

// Sort orders scored posts with Better.
func Sort(idx Index, scored []Scored) {
	better := Better(idx)
	sort.Slice(scored, func(i, j int) bool {
		return better(scored[i], scored[j])
	})
}

func collect(scores map[string]int, exclude string) []Scored {
	result := make([]Scored, 0, len(scores))
	for id, score := range scores {
		if id == exclude || score <= 0 {
			continue
		}
		result = append(result, Scored{PostID: id, Score: score})
	}
	return result
}
