package index

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/catalogue"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/indexer/tokenizer"
)

// Field weights applied when accumulating term frequencies.
const (
	TitleWeight   = 3
	SummaryWeight = 3
	ContentWeight = 1
)

// Encoder produces the canonical byte form of a snapshot. The builder hashes
// it to stamp the snapshot's version.
type Encoder func(*Snapshot) ([]byte, error)

// Builder accumulates posts into the structures of a Snapshot. Posts must be
// added newest first; a Builder is not safe for concurrent use.
type Builder struct {
	snap  *Snapshot
	terms map[string]map[string]int
}

func NewBuilder(capacity int) *Builder {
	return &Builder{
		snap: &Snapshot{
			posts:      make(map[string]*catalogue.Post, capacity),
			chrono:     make([]string, 0, capacity),
			rank:       make(map[string]int, capacity),
			byCategory: make(map[string][]string),
			byTag:      make(map[string][]string),
		},
		terms: make(map[string]map[string]int),
	}
}

// Add indexes one post. Adding the same id twice is an error.
func (b *Builder) Add(post *catalogue.Post) error {
	s := b.snap
	if _, dup := s.posts[post.ID]; dup {
		return fmt.Errorf("post %q added twice", post.ID)
	}
	s.posts[post.ID] = post
	s.rank[post.ID] = len(s.chrono)
	s.chrono = append(s.chrono, post.ID)
	s.byCategory[post.Category] = append(s.byCategory[post.Category], post.ID)
	for _, tag := range post.Tags {
		s.byTag[tag] = append(s.byTag[tag], post.ID)
	}

	b.addField(post.ID, post.Title, TitleWeight)
	b.addField(post.ID, post.Summary, SummaryWeight)
	b.addField(post.ID, post.Content, ContentWeight)
	return nil
}

func (b *Builder) addField(id, text string, weight int) {
	for _, term := range tokenizer.Tokenize(text) {
		docs, ok := b.terms[term]
		if !ok {
			docs = make(map[string]int)
			b.terms[term] = docs
		}
		docs[id] += weight
	}
}

// Build freezes the accumulated posts into a Snapshot stamped with builtAt
// and the SHA-256 of enc's output. The Builder must not be used afterwards.
func (b *Builder) Build(enc Encoder, builtAt time.Time) (*Snapshot, error) {
	s := b.snap
	s.inverted = make(map[string]PostingList, len(b.terms))
	for term, docs := range b.terms {
		postings := make(PostingList, 0, len(docs))
		for id, freq := range docs {
			postings = append(postings, Posting{PostID: id, Frequency: freq})
		}
		sort.Slice(postings, func(i, j int) bool {
			return postings[i].PostID < postings[j].PostID
		})
		s.inverted[term] = postings
	}
	s.builtAt = builtAt.UTC()

	if enc != nil {
		data, err := enc(s)
		if err != nil {
			return nil, fmt.Errorf("encoding snapshot: %w", err)
		}
		s.version = Checksum(data)
	}
	b.snap = nil
	b.terms = nil
	return s, nil
}

// Checksum is the hex SHA-256 of data.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
