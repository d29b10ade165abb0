// Package benchmark contains Go benchmarks for tokenizing, corpus building
// and query scoring, measuring throughput and allocation behaviour.
package benchmark

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/cosine-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/internal/indexer/source"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/pkg/config"
)

var vocabulary = strings.Fields(`information retrieval inverted index posting list term
frequency document cosine similarity vector norm query corpus tokenizer ranking weight
idf collection statistic shard cache crawler link page relevance score`)

func synthDocs(n, words int) []source.Document {
	r := rand.New(rand.NewSource(1))
	docs := make([]source.Document, n)
	for i := range docs {
		var sb strings.Builder
		for w := 0; w < words; w++ {
			sb.WriteString(vocabulary[r.Intn(len(vocabulary))])
			sb.WriteByte(' ')
		}
		docs[i] = source.Document{Name: fmt.Sprintf("doc-%05d", i), Text: sb.String()}
	}
	return docs
}

func buildCorpus(docs []source.Document) *index.Corpus {
	b := index.NewBuilder()
	for _, d := range docs {
		b.Add(d.Name, d.Text)
	}
	return b.Build()
}

// BenchmarkBuilderAdd measures per-document insert throughput.
func BenchmarkBuilderAdd(b *testing.B) {
	docs := synthDocs(1000, 200)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		builder := index.NewBuilder()
		for _, d := range docs {
			builder.Add(d.Name, d.Text)
		}
		_ = builder.Build()
	}
}

// BenchmarkEngineBuild compares sequential and parallel builds of the same
// corpus.
func BenchmarkEngineBuild(b *testing.B) {
	docs := synthDocs(2000, 300)
	for _, workers := range []int{1, 2, 4, 8} {
		b.Run(fmt.Sprintf("workers_%d", workers), func(b *testing.B) {
			engine := indexer.NewEngine(config.IndexerConfig{Workers: workers})
			src := source.NewMemory(docs...)
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, _, err := engine.Build(context.Background(), src); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkCorpusPostings measures single-term lookup latency over 10 000
// documents.
func BenchmarkCorpusPostings(b *testing.B) {
	corpus := buildCorpus(synthDocs(10000, 50))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = corpus.Postings("cosine")
	}
}
