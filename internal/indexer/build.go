// Package indexer turns a validated catalogue into an immutable index
// snapshot and keeps the serving engine supplied with fresh snapshots.
package indexer

import (
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/catalogue"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/indexer/segment"
)

// Build indexes every post of cat. Lists inside the snapshot follow the
// catalogue's chronological order, and the snapshot version is the hash of
// its segment encoding, so equal catalogues build equal versions.
func Build(cat *catalogue.Catalogue, builtAt time.Time) (*index.Snapshot, error) {
	posts := cat.Chronological()
	b := index.NewBuilder(len(posts))
	for _, p := range posts {
		if err := b.Add(p); err != nil {
			return nil, fmt.Errorf("indexing catalogue: %w", err)
		}
	}
	return b.Build(segment.Encode, builtAt)
}

// Restore rebuilds a snapshot from a decoded segment.
func Restore(seg *segment.Segment, builtAt time.Time) (*index.Snapshot, error) {
	posts := seg.Restore()
	b := index.NewBuilder(len(posts))
	for _, p := range posts {
		if err := b.Add(p); err != nil {
			return nil, fmt.Errorf("restoring segment: %w", err)
		}
	}
	return b.Build(segment.Encode, builtAt)
}
