package sinkz

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

func TestGetSpanEmptyContext(t *testing.T) {
	if span := GetSpan(context.Background()); span != nil {
		t.Error("Expected nil span from empty context")
	}

	//nolint:staticcheck // Intentionally passing nil context.
	if span := GetSpan(nil); span != nil {
		t.Error("Expected nil span from nil context")
	}
}

func TestActiveSpanContext(t *testing.T) {
	tracer := New(nil)

	_, span := tracer.StartSpan(context.Background(), "test-operation")

	ctx := span.Context(context.Background())
	if got := GetSpan(ctx); got != span.span {
		t.Error("Expected Context to embed the span")
	}
}

func TestActiveSpanIdentifiers(t *testing.T) {
	tracer := New(nil)

	_, span := tracer.StartSpan(context.Background(), "test-operation")

	if span.TraceID() != span.span.TraceID {
		t.Error("Expected TraceID accessor to match the span")
	}
	if span.SpanID() != span.span.SpanID {
		t.Error("Expected SpanID accessor to match the span")
	}
}

func TestActiveSpanConcurrentTags(t *testing.T) {
	tracer := New(nil)

	_, span := tracer.StartSpan(context.Background(), "concurrent-tags")

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				span.SetTag(Tag(fmt.Sprintf("key-%d", g)), fmt.Sprintf("value-%d", i))
			}
		}(g)
	}
	wg.Wait()

	for g := 0; g < 10; g++ {
		if v, ok := span.GetTag(Tag(fmt.Sprintf("key-%d", g))); !ok || v != "value-49" {
			t.Errorf("Expected key-%d=value-49, got %q (%v)", g, v, ok)
		}
	}
}

func TestSpanIDUniqueness(t *testing.T) {
	tracer := New(nil)

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		_, span := tracer.StartSpan(context.Background(), "test-operation")
		id := span.SpanID()
		if seen[id] {
			t.Fatalf("Duplicate span ID generated: %s", id)
		}
		seen[id] = true
	}
}
