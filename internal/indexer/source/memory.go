package source

import (
	"context"
	"fmt"
)

// Memory serves a fixed list of documents.
type Memory struct {
	docs []Document
}

// NewMemory copies docs; entries with Err set are delivered as failures.
func NewMemory(docs ...Document) *Memory {
	own := make([]Document, len(docs))
	copy(own, docs)
	return &Memory{docs: own}
}

// FromPairs builds a Memory source from alternating name, text arguments.
func FromPairs(pairs ...string) (*Memory, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("odd number of name/text arguments: %d", len(pairs))
	}
	docs := make([]Document, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		docs = append(docs, Document{Name: pairs[i], Text: pairs[i+1]})
	}
	return &Memory{docs: docs}, nil
}

func (m *Memory) Kind() string { return "memory" }

func (m *Memory) Walk(ctx context.Context, fn VisitFunc) error {
	for _, doc := range m.docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(doc); err != nil {
			return err
		}
	}
	return nil
}
