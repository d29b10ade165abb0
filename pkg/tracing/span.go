// Package tracing records the timing of the stages of one operation, such as
// scoring, ranking and TF-IDF for a query, as a tree of spans carried in the
// context. A finished tree is written to slog at debug level.
package tracing

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type contextKey struct{}

// Span is one timed stage. Children are appended by StartChild and may be
// added from several goroutines.
type Span struct {
	Name     string
	TraceID  string
	Start    time.Time
	Duration time.Duration
	Attrs    map[string]any

	mu       sync.Mutex
	children []*Span
}

// Start opens a root span and stores it in the returned context.
func Start(ctx context.Context, name, traceID string) (context.Context, *Span) {
	span := &Span{Name: name, TraceID: traceID, Start: time.Now(), Attrs: map[string]any{}}
	return context.WithValue(ctx, contextKey{}, span), span
}

// StartChild opens a span under the one in ctx. Without a parent the span is
// a detached root with no trace id.
func StartChild(ctx context.Context, name string) (context.Context, *Span) {
	child := &Span{Name: name, Start: time.Now(), Attrs: map[string]any{}}
	if parent := FromContext(ctx); parent != nil {
		child.TraceID = parent.TraceID
		parent.mu.Lock()
		parent.children = append(parent.children, child)
		parent.mu.Unlock()
	}
	return context.WithValue(ctx, contextKey{}, child), child
}

// FromContext returns the current span, or nil.
func FromContext(ctx context.Context) *Span {
	span, _ := ctx.Value(contextKey{}).(*Span)
	return span
}

// End fixes the span's duration. Calling it twice keeps the first value.
func (s *Span) End() {
	s.mu.Lock()
	if s.Duration == 0 {
		s.Duration = time.Since(s.Start)
	}
	s.mu.Unlock()
}

func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	s.Attrs[key] = value
	s.mu.Unlock()
}

// Children returns a copy of the direct children in start order.
func (s *Span) Children() []*Span {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Span(nil), s.children...)
}

// Stages flattens the tree below s into name -> duration.
func (s *Span) Stages() map[string]time.Duration {
	out := map[string]time.Duration{}
	for _, child := range s.Children() {
		out[child.Name] = child.Duration
		for name, d := range child.Stages() {
			out[child.Name+"/"+name] = d
		}
	}
	return out
}

// Log writes the tree to logger at debug level, one record per span.
func (s *Span) Log(ctx context.Context, logger *slog.Logger) {
	if !logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	s.log(ctx, logger, 0)
}

func (s *Span) log(ctx context.Context, logger *slog.Logger, depth int) {
	attrs := []any{
		"trace_id", s.TraceID,
		"span", s.Name,
		"duration", s.Duration,
		"depth", depth,
	}
	s.mu.Lock()
	for k, v := range s.Attrs {
		attrs = append(attrs, k, v)
	}
	s.mu.Unlock()
	logger.DebugContext(ctx, "span", attrs...)

	for _, child := range s.Children() {
		child.log(ctx, logger, depth+1)
	}
}
