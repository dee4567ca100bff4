package catalogue

import (
	"errors"
	"sort"
	"strings"
)

// Catalogue is a validated post sequence. Posts keep their original relative
// order; Chronological returns them newest first.
type Catalogue struct {
	posts  []*Post
	chrono []*Post
}

// Load validates raw records in a single pass and fails on the first
// violation. A catalogue is accepted whole or not at all.
func Load(raw []RawPost) (*Catalogue, error) {
	posts := make([]*Post, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))

	for i := range raw {
		id := strings.TrimSpace(raw[i].ID)
		if id == "" {
			return nil, &LoadError{Kind: KindMissingID, Index: i}
		}
		if _, dup := seen[id]; dup {
			return nil, &LoadError{Kind: KindDuplicateID, ID: id, Index: i}
		}
		seen[id] = struct{}{}

		post, err := normalize(id, &raw[i])
		if err != nil {
			var loadErr *LoadError
			if errors.As(err, &loadErr) {
				loadErr.Index = i
			}
			return nil, err
		}
		posts = append(posts, post)
	}

	chrono := make([]*Post, len(posts))
	copy(chrono, posts)
	sort.SliceStable(chrono, func(i, j int) bool {
		return chrono[i].Date.After(chrono[j].Date.Time)
	})

	return &Catalogue{posts: posts, chrono: chrono}, nil
}

// normalize checks the remaining fields of one record, whose id has already
// been validated, and returns its typed form.
func normalize(id string, r *RawPost) (*Post, error) {
	category := strings.TrimSpace(r.Category)
	if category == "" {
		return nil, &LoadError{Kind: KindMissingCategory, ID: id}
	}
	date, err := ParseDate(r.Date)
	if err != nil {
		return nil, &LoadError{Kind: KindInvalidDate, ID: id, Err: err}
	}
	tags := make([]string, 0, len(r.Tags))
	seenTags := make(map[string]struct{}, len(r.Tags))
	for _, tag := range r.Tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			return nil, &LoadError{Kind: KindEmptyTag, ID: id}
		}
		if _, dup := seenTags[tag]; dup {
			continue
		}
		seenTags[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return &Post{
		ID:       id,
		Title:    strings.TrimSpace(r.Title),
		Content:  r.Content,
		Summary:  r.Summary,
		Author:   strings.TrimSpace(r.Author),
		Category: category,
		ImageURL: r.ImageURL,
		Date:     date,
		Tags:     tags,
		ReadTime: r.ReadTime,
	}, nil
}

// Posts returns the posts in their original order. The slice is a copy; the
// posts themselves are shared and must not be modified.
func (c *Catalogue) Posts() []*Post {
	out := make([]*Post, len(c.posts))
	copy(out, c.posts)
	return out
}

// Chronological returns posts newest first, ties in original order.
func (c *Catalogue) Chronological() []*Post {
	out := make([]*Post, len(c.chrono))
	copy(out, c.chrono)
	return out
}

// Len returns the number of posts.
func (c *Catalogue) Len() int {
	return len(c.posts)
}
