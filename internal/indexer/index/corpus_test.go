package index

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catDogCorpus(t *testing.T) *Corpus {
	t.Helper()
	b := NewBuilder()
	require.Equal(t, 0, b.Add("doc1", "the cat sat"))
	require.Equal(t, 1, b.Add("doc2", "the dog sat"))
	return b.Build()
}

func TestBuildCatDogScenario(t *testing.T) {
	c := catDogCorpus(t)

	assert.Equal(t, Postings{0}, c.Postings("cat"))
	assert.Equal(t, Postings{0, 1}, c.Postings("sat"))
	assert.Equal(t, Postings{0, 1}, c.Postings("the"))
	assert.Equal(t, Postings{1}, c.Postings("dog"))
	assert.Nil(t, c.Postings("bird"))

	assert.Equal(t, Frequencies{"the": 1, "cat": 1, "sat": 1}, c.Frequencies(0))
	assert.Equal(t, []string{"doc1", "doc2"}, c.Names())
	assert.Equal(t, []string{"cat", "dog", "sat", "the"}, c.Terms())
	assert.Equal(t, 2, c.DocCount())
	assert.Equal(t, 4, c.NumTerms())
	require.NoError(t, c.Verify())
}

func TestPostingsDeduplicatedPerDocument(t *testing.T) {
	b := NewBuilder()
	b.Add("a", "go go go gopher")
	b.Add("b", "gopher")
	b.Add("c", "go")
	c := b.Build()

	assert.Equal(t, Postings{0, 2}, c.Postings("go"))
	assert.Equal(t, Postings{0, 1}, c.Postings("gopher"))
	assert.Equal(t, 3, c.Count(0, "go"))
	assert.Equal(t, 4, c.CollectionFrequency("go"))
	assert.Equal(t, 2, c.DocumentFrequency("go"))
}

func TestDocumentFrequencyMatchesFrequencyTables(t *testing.T) {
	b := NewBuilder()
	texts := []string{
		"alpha beta gamma",
		"beta beta delta",
		"",
		"gamma alpha alpha epsilon",
		"!!! ???",
	}
	for i, text := range texts {
		b.Add(fmt.Sprintf("d%d", i), text)
	}
	c := b.Build()
	require.NoError(t, c.Verify())

	for _, term := range c.Terms() {
		want := 0
		for id := 0; id < c.DocCount(); id++ {
			if c.Count(id, term) > 0 {
				want++
			}
		}
		assert.Equal(t, want, c.DocumentFrequency(term), "term %q", term)
	}
}

func TestEmptyDocumentKeepsItsID(t *testing.T) {
	b := NewBuilder()
	b.Add("empty", "")
	b.Add("full", "word")
	c := b.Build()

	assert.Equal(t, 2, c.DocCount())
	assert.Empty(t, c.Frequencies(0))
	assert.Equal(t, 0.0, c.Norm(0))
	assert.Equal(t, Postings{1}, c.Postings("word"))
	require.NoError(t, c.Verify())
}

func TestAddFrequenciesMatchesAdd(t *testing.T) {
	seq := NewBuilder()
	seq.Add("x", "b a b c")
	seq.Add("y", "c d")

	pre := NewBuilder()
	pre.AddFrequencies("x", Frequencies{"a": 1, "b": 2, "c": 1})
	pre.AddFrequencies("y", Frequencies{"c": 1, "d": 1, "zero": 0})

	a, b := seq.Build(), pre.Build()
	assert.Equal(t, a.Snapshot(), b.Snapshot())
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.Equal(t, 0, b.Count(1, "zero"))
}

func TestCorpusAccessorsReturnCopies(t *testing.T) {
	c := catDogCorpus(t)

	p := c.Postings("sat")
	p[0] = 99
	tf := c.Frequencies(0)
	tf["cat"] = 42
	names := c.Names()
	names[0] = "changed"

	assert.Equal(t, Postings{0, 1}, c.Postings("sat"))
	assert.Equal(t, 1, c.Count(0, "cat"))
	assert.Equal(t, "doc1", c.Name(0))
}

func TestOutOfRangeAccess(t *testing.T) {
	c := catDogCorpus(t)
	assert.Equal(t, "", c.Name(5))
	assert.Nil(t, c.Frequencies(-1))
	assert.Equal(t, 0, c.Count(9, "cat"))
	assert.Equal(t, 0.0, c.Norm(9))
}

func TestFingerprintDependsOnContent(t *testing.T) {
	a := catDogCorpus(t)
	b := catDogCorpus(t)
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	other := NewBuilder()
	other.Add("doc1", "the cat sat")
	other.Add("doc2", "the dog ran")
	assert.NotEqual(t, a.Fingerprint(), other.Build().Fingerprint())
}

func TestBuilderPanicsAfterBuild(t *testing.T) {
	b := NewBuilder()
	b.Build()
	assert.Panics(t, func() { b.Add("late", "text") })
	assert.Panics(t, func() { b.Build() })
}

func TestSnapshotSortedByTerm(t *testing.T) {
	c := catDogCorpus(t)
	snap := c.Snapshot()
	require.Len(t, snap, 4)
	for i := 1; i < len(snap); i++ {
		assert.Less(t, snap[i-1].Term, snap[i].Term)
	}
	assert.Empty(t, Empty().Snapshot())
}

func TestVerifyDetectsInconsistency(t *testing.T) {
	tests := []struct {
		name  string
		index map[string]Postings
		freqs []Frequencies
		want  string
	}{
		{
			name:  "counted term missing from postings",
			index: map[string]Postings{"cat": {0}},
			freqs: []Frequencies{{"cat": 1}, {"cat": 2}},
			want:  `term "cat" posts 1 documents but 2 count it`,
		},
		{
			name:  "counted term without postings",
			index: map[string]Postings{"cat": {0}},
			freqs: []Frequencies{{"cat": 1, "dog": 1}},
			want:  `term "dog" is counted by 1 documents but has no postings`,
		},
		{
			name:  "posting for document that does not count the term",
			index: map[string]Postings{"cat": {0, 1}},
			freqs: []Frequencies{{"cat": 1}, {"dog": 1}},
			want:  `term "cat" posts document 1 which does not count it`,
		},
		{
			name:  "postings out of order",
			index: map[string]Postings{"cat": {1, 0}},
			freqs: []Frequencies{{"cat": 1}, {"cat": 1}},
			want:  "out of insertion order",
		},
		{
			name:  "unknown document",
			index: map[string]Postings{"cat": {5}},
			freqs: []Frequencies{{"cat": 1}},
			want:  "unknown document 5",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			names := make([]string, len(tt.freqs))
			for i := range names {
				names[i] = fmt.Sprintf("doc%d", i)
			}
			c := newCorpus(tt.index, tt.freqs, names)
			err := c.Verify()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestVerifySharedTermsAcrossManyDocuments(t *testing.T) {
	b := NewBuilder()
	for i := 0; i < 40000; i++ {
		b.Add(fmt.Sprintf("doc%d", i), "alpha beta gamma delta epsilon zeta eta theta")
	}
	c := b.Build()

	require.NoError(t, c.Verify())
	assert.Equal(t, 40000, c.DocumentFrequency("alpha"))
}

func TestVerifyResultIsCached(t *testing.T) {
	c := newCorpus(map[string]Postings{"cat": {0}}, []Frequencies{{"cat": 1}, {"cat": 1}}, []string{"a", "b"})
	first := c.Verify()
	require.Error(t, first)

	// Repair the index behind the corpus's back; the cached verdict stands.
	c.index["cat"] = Postings{0, 1}
	assert.Same(t, first, c.Verify())
}

func TestFingerprintFramesTermsAndDocuments(t *testing.T) {
	split := NewBuilder()
	split.AddFrequencies("d", Frequencies{"a": 1, "b": 1})

	// One term whose bytes spell out "a", its count, then "b".
	joined := NewBuilder()
	joined.AddFrequencies("d", Frequencies{"a\x01\x00\x00\x00\x00\x00\x00\x00b": 1})

	assert.NotEqual(t, split.Build().Fingerprint(), joined.Build().Fingerprint())

	oneDoc := NewBuilder()
	oneDoc.AddFrequencies("x", Frequencies{"a": 1})
	oneDoc.AddFrequencies("y", Frequencies{})
	twoDocs := NewBuilder()
	twoDocs.AddFrequencies("x", Frequencies{})
	twoDocs.AddFrequencies("y", Frequencies{"a": 1})
	assert.NotEqual(t, oneDoc.Build().Fingerprint(), twoDocs.Build().Fingerprint())
	assert.Len(t, catDogCorpus(t).Fingerprint(), 64)
}
