package sinkz

import (
	"io"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Exporter ships a batch of drained spans somewhere. The timeout is
// advisory: exporters that perform I/O with their own deadline support
// should honor it, others may ignore it. NoDeadline means no budget.
type Exporter interface {
	Export(spans []Span, timeout time.Duration) error
	Close() error
}

var _ Exporter = (*WriterExporter)(nil)

// WriterExporter encodes spans as newline-delimited JSON to an io.Writer.
// Safe for concurrent Export calls.
type WriterExporter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterExporter creates an exporter writing NDJSON to w.
func NewWriterExporter(w io.Writer) *WriterExporter {
	return &WriterExporter{w: w}
}

// Export encodes each span as one JSON line. The timeout is ignored:
// writers have no deadline support.
func (e *WriterExporter) Export(spans []Span, _ time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	enc := json.NewEncoder(e.w)
	for i := range spans {
		if err := enc.Encode(&spans[i]); err != nil {
			return errors.Wrapf(err, "encode span %s", spans[i].SpanID)
		}
	}
	return nil
}

// Close flushes and closes the underlying writer when it supports either,
// combining the failures.
func (e *WriterExporter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var result *multierror.Error
	if f, ok := e.w.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			result = multierror.Append(result, errors.Wrap(err, "flush writer"))
		}
	}
	if c, ok := e.w.(io.Closer); ok {
		if err := c.Close(); err != nil {
			result = multierror.Append(result, errors.Wrap(err, "close writer"))
		}
	}
	return result.ErrorOrNil()
}
