package collector

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/kafka"
)

type fakePublisher struct {
	mu      sync.Mutex
	batches [][]kafka.Event
	err     error
}

func (p *fakePublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.batches = append(p.batches, events)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) published() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, b := range p.batches {
		n += len(b)
	}
	return n
}

func TestBatchCollectorFlushesFullBatch(t *testing.T) {
	pub := &fakePublisher{}
	bc := NewBatchCollector(pub, 3, time.Hour)
	for i := 0; i < 3; i++ {
		bc.Track(analytics.QueryEvent{Operation: analytics.OpSearch, Query: "json"})
	}
	assert.Eventually(t, func() bool { return pub.published() == 3 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, bc.BufferLen())
	assert.Equal(t, "search", pub.batches[0][0].Key)
}

func TestBatchCollectorFlushesOnShutdown(t *testing.T) {
	pub := &fakePublisher{}
	bc := NewBatchCollector(pub, 100, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	bc.Start(ctx)
	bc.Track(analytics.ReloadEvent{Trigger: "manual"})
	bc.Track(analytics.QueryEvent{Operation: analytics.OpGet})
	cancel()
	bc.Close()

	require.Len(t, pub.batches, 1)
	assert.Equal(t, "reload", pub.batches[0][0].Key)
	assert.Equal(t, "get", pub.batches[0][1].Key)
}

func TestBatchCollectorRequeuesAndCaps(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	bc := NewBatchCollector(pub, 2, time.Hour)
	bc.mu.Lock()
	for i := 0; i < 8; i++ {
		bc.buffer = append(bc.buffer, kafka.Event{Key: "search"})
	}
	bc.mu.Unlock()

	bc.Flush(context.Background())
	assert.Equal(t, 6, bc.BufferLen(), "at most three batches are kept")

	pub.mu.Lock()
	pub.err = nil
	pub.mu.Unlock()
	bc.Flush(context.Background())
	assert.Equal(t, 6, pub.published())
	assert.Zero(t, bc.BufferLen())
}
