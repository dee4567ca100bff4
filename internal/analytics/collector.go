package analytics

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/kafka"
)

// Sink receives tracked events off the request path. *kafka.Producer and
// *Aggregator both satisfy it.
type Sink interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Collector hands events to a Sink from a single background goroutine so
// request handlers never block on analytics. Events are dropped when the
// buffer is full.
type Collector struct {
	sink    Sink
	eventCh chan any
	logger  *slog.Logger
	done    chan struct{}

	mu      sync.RWMutex
	closed  bool
	started atomic.Bool
	dropped atomic.Int64
}

func NewCollector(sink Sink, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		sink:    sink,
		eventCh: make(chan any, bufferSize),
		logger:  slog.Default().With("component", "analytics-collector"),
		done:    make(chan struct{}),
	}
}

func (c *Collector) Start(ctx context.Context) {
	if !c.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(c.done)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					return
				}
				c.publish(ctx, event)
			case <-ctx.Done():
				c.drainRemaining()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started", "buffer_size", cap(c.eventCh))
}

// Track enqueues a QueryEvent or ReloadEvent.
func (c *Collector) Track(event any) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.eventCh <- event:
	default:
		c.dropped.Add(1)
		c.logger.Warn("analytics event dropped (buffer full)")
	}
}

// Dropped is the number of events discarded because the buffer was full.
func (c *Collector) Dropped() int64 {
	return c.dropped.Load()
}

// Close stops accepting events and waits until the buffered ones have been
// handed to the sink.
func (c *Collector) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.eventCh)
	c.mu.Unlock()
	if c.started.Load() {
		<-c.done
	}
}

func (c *Collector) publish(ctx context.Context, event any) {
	if err := c.sink.Publish(ctx, kafka.Event{Key: EventKey(event), Value: event}); err != nil {
		c.logger.Error("failed to publish analytics event", "error", err)
	}
}

func (c *Collector) drainRemaining() {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return
			}
			c.publish(context.Background(), event)
		default:
			return
		}
	}
}

// EventKey is the partition key of an event: queries partition by
// operation, reloads share one key.
func EventKey(event any) string {
	switch ev := event.(type) {
	case QueryEvent:
		return string(ev.Operation)
	case ReloadEvent:
		return string(EventReload)
	default:
		return "analytics"
	}
}
