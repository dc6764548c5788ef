package spies

import (
	"context"
	"maps"
	"sync"

	"github.com/Tushar4059x/the-hive-project/eventstore"
)

// SpanSpy is the span handed out by TracingCollectorSpy.
type SpanSpy struct {
	status     string
	attributes map[string]string
	mu         sync.Mutex
}

func (c *SpanSpy) SetStatus(status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = status
}

func (c *SpanSpy) AddAttribute(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.attributes == nil {
		c.attributes = make(map[string]string)
	}
	c.attributes[key] = value
}

// SpanRecord is one finished span.
type SpanRecord struct {
	Name            string
	StartAttributes map[string]string
	Status          string
	EndAttributes   map[string]string
}

// TracingCollectorSpy captures spans for testing.
type TracingCollectorSpy struct {
	open     map[*SpanSpy]SpanRecord
	finished []SpanRecord
	mu       sync.Mutex
}

// NewTracingCollectorSpy creates a new TracingCollectorSpy.
func NewTracingCollectorSpy() *TracingCollectorSpy {
	return &TracingCollectorSpy{open: make(map[*SpanSpy]SpanRecord)}
}

// StartSpan implements eventstore.TracingCollector.
func (s *TracingCollectorSpy) StartSpan(
	ctx context.Context,
	name string,
	attrs map[string]string,
) (context.Context, eventstore.SpanContext) {

	span := &SpanSpy{}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.open[span] = SpanRecord{Name: name, StartAttributes: maps.Clone(attrs)}

	return ctx, span
}

// FinishSpan implements eventstore.TracingCollector.
func (s *TracingCollectorSpy) FinishSpan(spanCtx eventstore.SpanContext, status string, attrs map[string]string) {
	span, ok := spanCtx.(*SpanSpy)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, found := s.open[span]
	if !found {
		return
	}
	delete(s.open, span)

	record.Status = status
	record.EndAttributes = maps.Clone(attrs)
	s.finished = append(s.finished, record)
}

// FinishedSpans returns a copy of all finished span records.
func (s *TracingCollectorSpy) FinishedSpans() []SpanRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]SpanRecord(nil), s.finished...)
}

// OpenSpanCount returns the number of spans that were started but never finished.
func (s *TracingCollectorSpy) OpenSpanCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.open)
}

// HasSpan reports whether a span named name finished with status.
func (s *TracingCollectorSpy) HasSpan(name, status string) bool {
	for _, record := range s.FinishedSpans() {
		if record.Name == name && record.Status == status {
			return true
		}
	}

	return false
}
