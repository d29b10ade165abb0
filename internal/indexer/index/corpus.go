package index

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/cosine-search/internal/stats"
)

// Corpus is the immutable result of a build: the inverted index, one
// term-frequency table per document, and document names by id. All
// accessors return copies, so a Corpus is safe to share between goroutines.
type Corpus struct {
	index       map[string]Postings
	freqs       []Frequencies
	names       []string
	norms       []float64
	terms       []string
	fingerprint string

	verifyOnce sync.Once
	verifyErr  error
}

func newCorpus(index map[string]Postings, freqs []Frequencies, names []string) *Corpus {
	c := &Corpus{
		index: index,
		freqs: freqs,
		names: names,
		norms: make([]float64, len(freqs)),
		terms: sortedKeys(index),
	}
	for id, tf := range freqs {
		c.norms[id] = stats.VectorLength(tf)
	}
	c.fingerprint = fingerprint(c)
	return c
}

// Empty returns a corpus with no documents.
func Empty() *Corpus {
	return NewBuilder().Build()
}

// DocCount returns the number of documents.
func (c *Corpus) DocCount() int {
	return len(c.names)
}

// NumTerms returns the number of distinct terms.
func (c *Corpus) NumTerms() int {
	return len(c.terms)
}

// Name returns the name of document id, or "" when id is out of range.
func (c *Corpus) Name(id int) string {
	if id < 0 || id >= len(c.names) {
		return ""
	}
	return c.names[id]
}

// Names returns all document names ordered by id.
func (c *Corpus) Names() []string {
	return slices.Clone(c.names)
}

// Documents returns every document ordered by id.
func (c *Corpus) Documents() []Document {
	docs := make([]Document, len(c.names))
	for id, name := range c.names {
		docs[id] = Document{ID: id, Name: name}
	}
	return docs
}

// Postings returns the postings for term, or nil when the term is unknown.
func (c *Corpus) Postings(term string) Postings {
	return slices.Clone(c.index[term])
}

// DocumentFrequency returns the number of documents containing term.
func (c *Corpus) DocumentFrequency(term string) int {
	return stats.DocumentFrequency(c.index[term])
}

// Count returns how often term occurs in document id.
func (c *Corpus) Count(id int, term string) int {
	if id < 0 || id >= len(c.freqs) {
		return 0
	}
	return c.freqs[id][term]
}

// Frequencies returns a copy of document id's term-frequency table.
func (c *Corpus) Frequencies(id int) Frequencies {
	if id < 0 || id >= len(c.freqs) {
		return nil
	}
	out := make(Frequencies, len(c.freqs[id]))
	for term, n := range c.freqs[id] {
		out[term] = n
	}
	return out
}

// Norm returns the L2 length of document id's frequency vector.
func (c *Corpus) Norm(id int) float64 {
	if id < 0 || id >= len(c.norms) {
		return 0
	}
	return c.norms[id]
}

// CollectionFrequency returns the total occurrences of term across all
// documents.
func (c *Corpus) CollectionFrequency(term string) int {
	total := 0
	for _, id := range c.index[term] {
		total += c.freqs[id][term]
	}
	return total
}

// Terms returns every indexed term in ascending order.
func (c *Corpus) Terms() []string {
	return slices.Clone(c.terms)
}

// Snapshot returns every term with its postings, sorted by term.
func (c *Corpus) Snapshot() []TermEntry {
	entries := make([]TermEntry, 0, len(c.terms))
	for _, term := range c.terms {
		entries = append(entries, TermEntry{
			Term:     term,
			Postings: slices.Clone(c.index[term]),
		})
	}
	return entries
}

// Fingerprint identifies the corpus content; two corpora built from the same
// documents in the same order share a fingerprint.
func (c *Corpus) Fingerprint() string {
	return c.fingerprint
}

// Verify checks that the inverted index and the frequency tables describe
// the same documents and terms. A Corpus never changes, so the check runs
// once and later calls return the cached result.
func (c *Corpus) Verify() error {
	c.verifyOnce.Do(func() {
		c.verifyErr = c.verify()
	})
	return c.verifyErr
}

// verify is linear in the size of the index. Postings are strictly
// increasing and every posted document counts the term, so a posting list is
// complete exactly when its length equals the number of frequency tables
// holding the term.
func (c *Corpus) verify() error {
	if len(c.freqs) != len(c.names) {
		return fmt.Errorf("corpus has %d frequency tables for %d documents", len(c.freqs), len(c.names))
	}
	counted := make(map[string]int, len(c.index))
	for _, tf := range c.freqs {
		for term := range tf {
			counted[term]++
		}
	}
	for term, postings := range c.index {
		for i, id := range postings {
			if id < 0 || id >= len(c.freqs) {
				return fmt.Errorf("term %q posts unknown document %d", term, id)
			}
			if c.freqs[id][term] <= 0 {
				return fmt.Errorf("term %q posts document %d which does not count it", term, id)
			}
			if i > 0 && postings[i-1] >= id {
				return fmt.Errorf("term %q postings out of insertion order at %d", term, i)
			}
		}
		if len(postings) != counted[term] {
			return fmt.Errorf("term %q posts %d documents but %d count it", term, len(postings), counted[term])
		}
	}
	for term, n := range counted {
		if _, ok := c.index[term]; !ok {
			return fmt.Errorf("term %q is counted by %d documents but has no postings", term, n)
		}
	}
	return nil
}

// fingerprint hashes a framed encoding of the corpus: every string carries a
// length prefix and every document its term count, so distinct corpora
// never share an input.
func fingerprint(c *Corpus) string {
	h := sha256.New()
	var buf [8]byte
	putUint := func(n int) {
		binary.LittleEndian.PutUint64(buf[:], uint64(n))
		h.Write(buf[:])
	}
	putString := func(str string) {
		putUint(len(str))
		h.Write([]byte(str))
	}

	putUint(len(c.names))
	for id, name := range c.names {
		putString(name)
		terms := sortedKeys(c.freqs[id])
		putUint(len(terms))
		for _, term := range terms {
			putString(term)
			putUint(c.freqs[id][term])
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
