// Package source supplies the raw documents a corpus is built from. A Source
// delivers (name, text) pairs in a stable order; a document it finds but
// cannot read is delivered with Err set so the build can skip it and carry
// on.
package source

import (
	"context"
)

// Document is one item produced by a Source.
type Document struct {
	Name string
	Text string
	// Err is non-nil when the document was found but could not be read. It
	// wraps errors.ErrDocumentUnreadable.
	Err error
}

// VisitFunc receives documents in source order. Returning an error stops
// the walk and Walk returns that error.
type VisitFunc func(doc Document) error

// Source is implemented by every document supplier.
type Source interface {
	// Kind names the source for logs and metrics.
	Kind() string
	// Walk calls fn once per document, in order. It returns an error only
	// when the source cannot be enumerated at all, the context is done, or
	// fn fails.
	Walk(ctx context.Context, fn VisitFunc) error
}

// Collect drains src into a slice.
func Collect(ctx context.Context, src Source) ([]Document, error) {
	var docs []Document
	err := src.Walk(ctx, func(doc Document) error {
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}
