// Package sinkz provides a minimal span-processing pipeline built around a
// composite fan-out dispatcher.
//
// sinkz focuses on forwarding span lifecycle events to an ordered set of
// processors without the complexity of full OpenTelemetry. It's designed for
// systems that need several independent span sinks behind one handle, with
// a shared time budget for flush and shutdown and predictable teardown.
//
// Core Components:.
//   - Processor: The capability contract every sink implements.
//   - Composite: Forwards lifecycle events to an ordered set of Processors.
//   - Collector: Buffers completed spans and flushes them to an Exporter.
//   - Tracer: Produces spans and drives a Processor pipeline.
//
// Basic Usage:.
//
//	collector := sinkz.NewCollector("export", 1024)
//	pipeline, err := sinkz.NewComposite(collector)
//	if err != nil {
//		return err
//	}
//	tracer := sinkz.New(pipeline)
//	defer tracer.Close()
//
//	// Start a new span.
//	ctx, span := tracer.StartSpan(ctx, "operation-name")
//	defer span.Finish()
//
// Lifecycle:.
//
// Every lifecycle call (OnStart, OnEnd, ForceFlush, Shutdown, Close) visits
// processors in the exact order they were added. ForceFlush and Shutdown
// share one shrinking time budget across all processors; Close isolates
// per-processor failures so every processor is torn down exactly once.
//
// Thread Safety:.
//
// Composite performs no internal locking: callers that invoke lifecycle
// methods from multiple goroutines must serialize them externally. The
// typical owner (a Tracer, or an application shutdown path) already does.
// Collector is safe for concurrent span buffering.
//
// Resource Cleanup:.
//
// Call Close() on the pipeline (or Tracer.Close(), which flushes first) to
// tear down all processors. Close is idempotent.
package sinkz

import "time"

// Key represents a span operation name.
type Key = string

// Tag represents a span tag key.
type Tag = string

// NoDeadline is the sentinel timeout meaning "no time budget": ForceFlush
// and Shutdown visit every processor without deadline arithmetic, and each
// processor receives NoDeadline itself.
const NoDeadline time.Duration = -1

// Processor receives span lifecycle events. Implementations are sinks:
// they may buffer, export, or discard spans, but the pipeline never
// inspects what they do with them.
//
// Composite satisfies Processor itself, so pipelines nest.
type Processor interface {
	// OnStart is called when a span begins. Synchronous, on the calling
	// goroutine; should not block.
	OnStart(span *Span)

	// OnEnd is called when a span finishes. Synchronous; receives a
	// snapshot the processor may retain.
	OnEnd(span Span)

	// ForceFlush pushes any buffered spans out within the given budget.
	// The bool reports whether the flush completed in time. timeout is
	// either NoDeadline or a non-negative duration; a processor's own
	// failure to finish in budget is a false return, not an error.
	ForceFlush(timeout time.Duration) (bool, error)

	// Shutdown stops the processor within the given budget. Processors
	// must tolerate a zero timeout without failing.
	Shutdown(timeout time.Duration) error

	// Close releases the processor's resources. May fail; callers that
	// hold several processors are expected to keep closing the rest.
	Close() error
}
