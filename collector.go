package sinkz

import (
	"sync"
	"sync/atomic"
	"time"
)

var _ Processor = (*Collector)(nil)

// Collector is a buffering leaf processor: OnEnd buffers completed spans,
// ForceFlush and Shutdown push them to the configured Exporter.
// Safe for concurrent span buffering from multiple goroutines.
//
//nolint:govet // Field alignment optimized for readability over memory efficiency
type Collector struct {
	exporter     Exporter
	spans        []Span
	spansCh      chan Span
	stopCh       chan struct{}
	done         chan struct{}
	droppedCount atomic.Int64
	name         string
	mu           sync.Mutex
	stopOnce     sync.Once
	closed       atomic.Bool // Track if collector is closed.
	syncMode     bool        // Bypass channel for synchronous collection.
}

// NewCollector creates a collector with the specified name and buffer size
// and starts its receive loop.
func NewCollector(name string, bufferSize int) *Collector {
	c := &Collector{
		name:    name,
		spans:   make([]Span, 0, 8), // Start with small capacity.
		spansCh: make(chan Span, bufferSize),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	go c.run()
	return c
}

// WithExporter sets the exporter that flush operations push buffered
// spans to.
// Returns the collector for chaining; call before first use.
func (c *Collector) WithExporter(e Exporter) *Collector {
	c.exporter = e
	return c
}

// run receives spans from the channel until stopped.
func (c *Collector) run() {
	defer close(c.done)

	for {
		select {
		case <-c.stopCh:
			// Drain remaining spans before shutdown.
			for {
				select {
				case span := <-c.spansCh:
					c.buffer(span)
				default:
					return // Clean shutdown.
				}
			}
		case span := <-c.spansCh:
			c.buffer(span)
		}
	}
}

// OnStart is a no-op: the collector only buffers completed spans.
func (*Collector) OnStart(_ *Span) {}

// OnEnd buffers a completed span with backpressure protection. If the
// internal channel is full, the span is dropped and the drop counter is
// incremented. In sync mode, spans are buffered directly for
// deterministic testing.
func (c *Collector) OnEnd(span Span) {
	if c.closed.Load() {
		// Collector is closed - drop span.
		c.droppedCount.Add(1)
		return
	}

	// Deep copy tags to prevent modifications after collection.
	if span.Tags != nil {
		tags := make(map[Tag]string, len(span.Tags))
		for k, v := range span.Tags {
			tags[k] = v
		}
		span.Tags = tags
	}

	if c.syncMode {
		// Direct synchronous buffering for tests.
		c.buffer(span)
		return
	}

	select {
	case c.spansCh <- span:
		// Successfully queued.
	default:
		// Channel full - drop span to prevent blocking.
		c.droppedCount.Add(1)
	}
}

// buffer adds a span to the internal buffer, growing it as needed.
func (c *Collector) buffer(span Span) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.spans) >= cap(c.spans) {
		// Double small buffers, grow large ones by 50% to avoid
		// excessive memory usage.
		currentCap := cap(c.spans)
		newCap := currentCap * 2
		if currentCap >= 1024 {
			newCap = currentCap + currentCap/2
		}
		if newCap < 32 {
			newCap = 32
		}
		grown := make([]Span, len(c.spans), newCap)
		copy(grown, c.spans)
		c.spans = grown
	}
	c.spans = append(c.spans, span)
}

// ForceFlush drains the buffer and exports the drained spans within the
// given budget. Without an exporter the buffer is left in place and the
// flush trivially succeeds.
func (c *Collector) ForceFlush(timeout time.Duration) (bool, error) {
	if err := validateTimeout(timeout); err != nil {
		return false, err
	}
	if c.exporter == nil {
		return true, nil
	}

	spans := c.Drain()
	if len(spans) == 0 {
		return true, nil
	}
	if err := c.exporter.Export(spans, timeout); err != nil {
		return false, err
	}
	return true, nil
}

// Shutdown stops the receive loop, then exports whatever is buffered
// within the given budget. A zero budget still stops the loop but skips
// the final export; the spans stay buffered for an explicit Drain.
func (c *Collector) Shutdown(timeout time.Duration) error {
	if err := validateTimeout(timeout); err != nil {
		return err
	}
	c.stop()

	if c.exporter == nil || timeout == 0 {
		return nil
	}
	spans := c.Drain()
	if len(spans) == 0 {
		return nil
	}
	return c.exporter.Export(spans, timeout)
}

// Close stops the receive loop, marks the collector closed, and closes
// the exporter. Buffered spans that were never flushed are discarded.
func (c *Collector) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.stop()
	if c.exporter != nil {
		return c.exporter.Close()
	}
	return nil
}

// stop closes the receive loop exactly once and waits briefly for it to
// drain.
func (c *Collector) stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		select {
		case <-c.done:
			// Clean shutdown completed.
		case <-time.After(100 * time.Millisecond):
			// Loop overran its drain window; buffered spans may be
			// incomplete.
		}
	})
}

// Drain returns a copy of all buffered spans and clears the internal
// buffer. The returned slice is safe to modify without affecting the
// collector.
func (c *Collector) Drain() []Span {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.spans) == 0 {
		return nil
	}

	result := make([]Span, len(c.spans))
	for i := range c.spans {
		result[i] = c.spans[i]
		// Deep copy the Tags map to prevent sharing.
		if c.spans[i].Tags != nil {
			result[i].Tags = make(map[Tag]string, len(c.spans[i].Tags))
			for k, v := range c.spans[i].Tags {
				result[i].Tags[k] = v
			}
		}
	}

	// Only shrink very oversized buffers to avoid allocation churn.
	if cap(c.spans) > 256 && len(c.spans) < cap(c.spans)/8 {
		newCap := cap(c.spans) / 4
		if newCap < 32 {
			newCap = 32
		}
		c.spans = make([]Span, 0, newCap)
	} else {
		c.spans = c.spans[:0] // Keep capacity, reset length.
	}

	return result
}

// Count returns the current number of buffered spans.
func (c *Collector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.spans)
}

// DroppedCount returns the total number of spans dropped due to
// backpressure.
func (c *Collector) DroppedCount() int64 {
	return c.droppedCount.Load()
}

// SetSyncMode enables synchronous buffering for testing.
// When enabled, spans are buffered directly without using the channel.
// This makes tests deterministic by eliminating async behavior.
func (c *Collector) SetSyncMode(sync bool) {
	c.syncMode = sync
}

// Reset clears all buffered spans and resets the drop counter.
// Does not affect the running goroutine - use Close for that.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.spans = c.spans[:0]
	c.droppedCount.Store(0)
}
