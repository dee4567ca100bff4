package index

import (
	"sort"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/catalogue"
)

// Snapshot is the immutable set of lookup structures derived from one
// catalogue version. Every accessor is safe for concurrent use; returned
// slices are shared with the snapshot and must not be modified.
type Snapshot struct {
	posts      map[string]*catalogue.Post
	chrono     []string
	rank       map[string]int
	byCategory map[string][]string
	byTag      map[string][]string
	inverted   map[string]PostingList
	version    string
	builtAt    time.Time
}

// Stats summarises a snapshot for logs and the metadata endpoint.
type Stats struct {
	Version    string    `json:"version"`
	Posts      int       `json:"posts"`
	Categories int       `json:"categories"`
	Tags       int       `json:"tags"`
	Terms      int       `json:"terms"`
	BuiltAt    time.Time `json:"built_at"`
}

// Post returns the post with the given id.
func (s *Snapshot) Post(id string) (*catalogue.Post, bool) {
	p, ok := s.posts[id]
	return p, ok
}

// Chronological returns every post id, newest first.
func (s *Snapshot) Chronological() []string {
	return s.chrono
}

// Rank is the position of id in chronological order; lower is newer.
// Unknown ids rank after every known post.
func (s *Snapshot) Rank(id string) int {
	if r, ok := s.rank[id]; ok {
		return r
	}
	return len(s.chrono)
}

// Category returns the ids in category, newest first.
func (s *Snapshot) Category(category string) []string {
	return s.byCategory[category]
}

// Tag returns the ids carrying tag, newest first.
func (s *Snapshot) Tag(tag string) []string {
	return s.byTag[tag]
}

// Postings returns the posting list of an already-tokenized term.
func (s *Snapshot) Postings(term string) PostingList {
	return s.inverted[term]
}

// Categories returns category facets sorted by count desc, then name.
func (s *Snapshot) Categories() []Facet {
	return facets(s.byCategory)
}

// Tags returns tag facets sorted by count desc, then name.
func (s *Snapshot) Tags() []Facet {
	return facets(s.byTag)
}

// Terms returns the inverted index ordered by term.
func (s *Snapshot) Terms() []TermEntry {
	entries := make([]TermEntry, 0, len(s.inverted))
	for term, postings := range s.inverted {
		entries = append(entries, TermEntry{Term: term, Postings: postings})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}

// CategoryLists returns byCategory ordered by key.
func (s *Snapshot) CategoryLists() []ListEntry {
	return lists(s.byCategory)
}

// TagLists returns byTag ordered by key.
func (s *Snapshot) TagLists() []ListEntry {
	return lists(s.byTag)
}

// Posts returns posts in chronological order.
func (s *Snapshot) Posts() []*catalogue.Post {
	out := make([]*catalogue.Post, len(s.chrono))
	for i, id := range s.chrono {
		out[i] = s.posts[id]
	}
	return out
}

func (s *Snapshot) Len() int {
	return len(s.chrono)
}

// Version is the hex SHA-256 of the snapshot's canonical encoding.
func (s *Snapshot) Version() string {
	return s.version
}

func (s *Snapshot) BuiltAt() time.Time {
	return s.builtAt
}

func (s *Snapshot) Stats() Stats {
	return Stats{
		Version:    s.version,
		Posts:      len(s.chrono),
		Categories: len(s.byCategory),
		Tags:       len(s.byTag),
		Terms:      len(s.inverted),
		BuiltAt:    s.builtAt,
	}
}

func facets(groups map[string][]string) []Facet {
	out := make([]Facet, 0, len(groups))
	for name, ids := range groups {
		out = append(out, Facet{Name: name, Count: len(ids)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func lists(groups map[string][]string) []ListEntry {
	out := make([]ListEntry, 0, len(groups))
	for key, ids := range groups {
		out = append(out, ListEntry{Key: key, PostIDs: ids})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key < out[j].Key
	})
	return out
}
