// Package index holds the inverted index and per-document term-frequency
// tables. A Builder accumulates documents in a single batch pass and Build
// freezes them into an immutable Corpus.
package index

import (
	"github.com/Adithya-Monish-Kumar-K/cosine-search/internal/indexer/tokenizer"
)

// Builder accumulates documents into an inverted index. It is not safe for
// concurrent use; parallel ingestion tokenizes elsewhere and feeds
// AddFrequencies in source order.
type Builder struct {
	index map[string]Postings
	freqs []Frequencies
	names []string
	built bool
}

func NewBuilder() *Builder {
	return &Builder{
		index: make(map[string]Postings),
	}
}

// Add tokenizes text and records it as the next document. It returns the
// assigned id, which equals the number of documents added before it.
func (b *Builder) Add(name string, text string) int {
	tokens := tokenizer.Tokenize(text)
	id := b.nextID(name)
	tf := make(Frequencies)
	for _, token := range tokens {
		tf[token.Term]++
		b.post(token.Term, id)
	}
	b.freqs = append(b.freqs, tf)
	return id
}

// AddFrequencies records a document whose term counts were computed ahead
// of time. Non-positive counts are dropped. Postings only depend on the
// order documents are added, never on the order of terms within one.
func (b *Builder) AddFrequencies(name string, tf Frequencies) int {
	id := b.nextID(name)
	own := make(Frequencies, len(tf))
	for term, count := range tf {
		if count > 0 {
			own[term] = count
			b.post(term, id)
		}
	}
	b.freqs = append(b.freqs, own)
	return id
}

// Len returns the number of documents added so far.
func (b *Builder) Len() int {
	return len(b.names)
}

// Build freezes the accumulated documents into a Corpus. The Builder must
// not be used afterwards.
func (b *Builder) Build() *Corpus {
	if b.built {
		panic("index: Builder.Build called twice")
	}
	b.built = true
	return newCorpus(b.index, b.freqs, b.names)
}

func (b *Builder) nextID(name string) int {
	if b.built {
		panic("index: Builder used after Build")
	}
	b.names = append(b.names, name)
	return len(b.names) - 1
}

// post appends id to term's postings unless already recorded. Ids grow
// monotonically, so a repeat can only ever be the last element.
func (b *Builder) post(term string, id int) {
	postings := b.index[term]
	if n := len(postings); n > 0 && postings[n-1] == id {
		return
	}
	b.index[term] = append(postings, id)
}
