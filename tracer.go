package sinkz

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/zoobzio/clockz"
)

// contextBundle holds both tracer and span to reduce context allocations.
type contextBundle struct {
	tracer *Tracer
	span   *Span
}

// Tracer produces spans and drives a Processor pipeline: OnStart when a
// span is created, OnEnd when it finishes.
//
// A Tracer with a nil pipeline is a no-op producer: spans are created and
// finished but never dispatched.
type Tracer struct {
	pipeline Processor
	clock    clockz.Clock
}

// New creates a tracer dispatching to the given pipeline.
// Uses the real clock for production behavior.
func New(pipeline Processor) *Tracer {
	return &Tracer{
		pipeline: pipeline,
		clock:    clockz.RealClock,
	}
}

// WithClock returns a new tracer with the specified clock.
// Enables clock injection for deterministic testing.
func (t *Tracer) WithClock(clock clockz.Clock) *Tracer {
	return &Tracer{
		pipeline: t.pipeline,
		clock:    clock,
	}
}

// StartSpan creates a new span and returns it wrapped in an ActiveSpan.
// If the context contains an existing span, the new span will be its
// child. The pipeline's OnStart runs synchronously before StartSpan
// returns.
func (t *Tracer) StartSpan(ctx context.Context, operation Key) (context.Context, *ActiveSpan) {
	// Handle nil context by creating a new one.
	if ctx == nil {
		ctx = context.Background()
	}

	span := &Span{
		TraceID:   generateID(16),
		SpanID:    generateID(8),
		Name:      string(operation),
		StartTime: t.clock.Now(),
	}

	// Link to parent span if present.
	if parentSpan := GetSpan(ctx); parentSpan != nil {
		span.TraceID = parentSpan.TraceID
		span.ParentID = parentSpan.SpanID
	}

	if t.pipeline != nil {
		t.pipeline.OnStart(span)
	}

	activeSpan := &ActiveSpan{
		span:   span,
		tracer: t,
	}

	// Create new context with bundled tracer and span (single allocation optimization).
	bundle := &contextBundle{tracer: t, span: span}
	newCtx := context.WithValue(ctx, bundleKey, bundle)

	return newCtx, activeSpan
}

// finishSpan hands a completed span to the pipeline.
func (t *Tracer) finishSpan(span *Span) {
	if t.pipeline != nil {
		t.pipeline.OnEnd(*span)
	}
}

// ForceFlush flushes the pipeline with the given budget.
func (t *Tracer) ForceFlush(timeout time.Duration) (bool, error) {
	if t.pipeline == nil {
		return true, nil
	}
	return t.pipeline.ForceFlush(timeout)
}

// Close shuts the tracer down: flush the pipeline without a budget, shut
// it down, then release its resources. This should be called when the
// tracer is no longer needed.
func (t *Tracer) Close() error {
	if t.pipeline == nil {
		return nil
	}
	if _, err := t.pipeline.ForceFlush(NoDeadline); err != nil {
		return err
	}
	if err := t.pipeline.Shutdown(NoDeadline); err != nil {
		return err
	}
	return t.pipeline.Close()
}

// generateID creates a random hex ID of n bytes. Falls back to a
// time-based ID if crypto/rand fails.
func generateID(n int) string {
	bytes := make([]byte, n)
	if _, err := rand.Read(bytes); err != nil {
		return hex.EncodeToString([]byte(time.Now().Format(time.RFC3339Nano)))
	}
	return hex.EncodeToString(bytes)
}
