package sinkz

import (
	"time"

	"github.com/pkg/errors"
	"github.com/zoobzio/clockz"
	"go.uber.org/zap"
)

// Validation errors for composite construction and lifecycle arguments.
var (
	ErrNoProcessors   = errors.New("sinkz: composite requires at least one processor")
	ErrNilProcessor   = errors.New("sinkz: nil processor")
	ErrInvalidTimeout = errors.New("sinkz: negative timeout")
)

var _ Processor = (*Composite)(nil)

// Composite forwards every span lifecycle event to an ordered set of
// processors. It satisfies Processor itself, so composites nest.
//
// Processors are visited in the order they were added, on the calling
// goroutine, one at a time. ForceFlush and Shutdown spread one shared time
// budget across the whole sequence; Close isolates per-processor failures.
//
// Composite has no internal locking. Callers invoking lifecycle methods
// from multiple goroutines must serialize them externally.
type Composite struct {
	procs  []Processor
	clock  clockz.Clock
	log    *zap.Logger
	closed bool
}

// NewComposite creates a composite over the given processors, preserving
// their order. At least one processor is required; a nil element is
// rejected.
func NewComposite(procs ...Processor) (*Composite, error) {
	if len(procs) == 0 {
		return nil, ErrNoProcessors
	}
	held := make([]Processor, 0, len(procs))
	for i, p := range procs {
		if p == nil {
			return nil, errors.Wrapf(ErrNilProcessor, "position %d", i)
		}
		held = append(held, p)
	}
	return &Composite{
		procs: held,
		clock: clockz.RealClock,
		log:   zap.NewNop(),
	}, nil
}

// WithClock replaces the clock used for budget arithmetic. Returns the
// composite for chaining; call before first use.
func (c *Composite) WithClock(clock clockz.Clock) *Composite {
	c.clock = clock
	return c
}

// WithLogger sets the logger that receives teardown diagnostics. Returns
// the composite for chaining.
func (c *Composite) WithLogger(log *zap.Logger) *Composite {
	c.log = log
	return c
}

// Add appends p to the end of the processor sequence and returns the
// composite for chaining. Panics with ErrNilProcessor if p is nil.
func (c *Composite) Add(p Processor) *Composite {
	if p == nil {
		panic(ErrNilProcessor)
	}
	c.procs = append(c.procs, p)
	return c
}

// OnStart forwards the span start to every processor in order. Start
// handlers are not guarded: a panicking processor propagates to the
// caller.
func (c *Composite) OnStart(span *Span) {
	for _, p := range c.procs {
		p.OnStart(span)
	}
}

// OnEnd forwards the span end to every processor in order. Like OnStart,
// end handlers are not guarded.
func (c *Composite) OnEnd(span Span) {
	for _, p := range c.procs {
		p.OnEnd(span)
	}
}

// ForceFlush flushes every processor under one shared budget.
//
// With a finite timeout, each processor receives whatever budget is left
// when its turn comes. The first processor to report failure, and an
// exhausted budget, both end the flush with false immediately; remaining
// processors are not visited.
//
// With NoDeadline, every processor is visited and individual flush results
// are ignored: the call returns true unless a processor fails with an
// error.
//
// Processor errors propagate on both paths and end iteration.
func (c *Composite) ForceFlush(timeout time.Duration) (bool, error) {
	if err := validateTimeout(timeout); err != nil {
		return false, err
	}
	d := newDeadline(c.clock, timeout)
	for _, p := range c.procs {
		left, exhausted := d.remaining()
		if exhausted {
			return false, nil
		}
		ok, err := p.ForceFlush(left)
		if err != nil {
			return false, err
		}
		if !d.unbounded() && !ok {
			return false, nil
		}
	}
	return true, nil
}

// Shutdown shuts every processor down under one shared budget. Unlike
// ForceFlush it never stops early on an exhausted budget: once the budget
// runs out, remaining processors are still invoked with a zero timeout, so
// each processor observes shutdown exactly once.
//
// A processor error is returned immediately and remaining processors are
// not visited.
func (c *Composite) Shutdown(timeout time.Duration) error {
	if err := validateTimeout(timeout); err != nil {
		return err
	}
	d := newDeadline(c.clock, timeout)
	for _, p := range c.procs {
		left, _ := d.remaining()
		if err := p.Shutdown(left); err != nil {
			return err
		}
	}
	return nil
}

// Close tears down every processor exactly once per composite lifetime.
// Failures are reported to the diagnostic logger and never abort the
// sweep or reach the caller. Subsequent calls are no-ops.
func (c *Composite) Close() error {
	if c.closed {
		return nil
	}
	for i, p := range c.procs {
		c.closeProcessor(i, p)
	}
	c.closed = true
	return nil
}

// closeProcessor closes one processor inside a failure boundary: errors
// and panics are logged, never propagated.
func (c *Composite) closeProcessor(i int, p Processor) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("processor close panicked",
				zap.String("op", "close"),
				zap.Int("processor", i),
				zap.Any("panic", r),
			)
		}
	}()

	if err := p.Close(); err != nil {
		c.log.Error("processor close failed",
			zap.String("op", "close"),
			zap.Int("processor", i),
			zap.Error(err),
		)
	}
}
