// Copyright 2026 Perigee Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package rank

import (
	"math"
	"sync"

	"github.com/perigee/recall/core"
)

// Okapi BM25 defaults.
const (
	DefaultK1 = 1.5
	DefaultB  = 0.75
)

// docStats is what one document contributed to the corpus statistics, kept
// so removal can subtract it exactly.
type docStats struct {
	chunks     int
	tokens     int
	termChunks map[string]int
}

// Scorer computes BM25 scores over corpus statistics where every chunk is
// one BM25 document. Statistics are updated incrementally as documents are
// ingested and removed, and can be rebuilt from a full chunk listing at
// startup. Safe for concurrent use.
type Scorer struct {
	k1 float64
	b  float64

	mu          sync.RWMutex
	totalChunks int
	totalTokens int
	docFreq     map[string]int
	docs        map[core.ID]*docStats
}

// ScorerOption configures a Scorer.
type ScorerOption func(*Scorer)

// WithK1 overrides the term-frequency saturation parameter.
func WithK1(k1 float64) ScorerOption {
	return func(s *Scorer) { s.k1 = k1 }
}

// WithB overrides the length normalization parameter.
func WithB(b float64) ScorerOption {
	return func(s *Scorer) { s.b = b }
}

// NewScorer creates a BM25 scorer with an empty corpus.
func NewScorer(opts ...ScorerOption) *Scorer {
	s := &Scorer{
		k1:      DefaultK1,
		b:       DefaultB,
		docFreq: make(map[string]int),
		docs:    make(map[core.ID]*docStats),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rebuild replaces the corpus statistics with those derived from chunks.
// Used at startup to recover state from the vector store.
func (s *Scorer) Rebuild(chunks []*core.Chunk) {
	byDoc := make(map[core.ID][]*core.Chunk)
	for _, chunk := range chunks {
		byDoc[chunk.DocumentId] = append(byDoc[chunk.DocumentId], chunk)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalChunks = 0
	s.totalTokens = 0
	s.docFreq = make(map[string]int)
	s.docs = make(map[core.ID]*docStats)
	for docID, docChunks := range byDoc {
		s.addLocked(docID, docChunks)
	}
}

// AddDocument folds a document's chunks into the corpus statistics.
// Re-adding a document replaces its previous contribution.
func (s *Scorer) AddDocument(docID core.ID, chunks []*core.Chunk) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(docID)
	s.addLocked(docID, chunks)
}

// RemoveDocument subtracts a document's contribution. Unknown documents
// are ignored.
func (s *Scorer) RemoveDocument(docID core.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(docID)
}

func (s *Scorer) addLocked(docID core.ID, chunks []*core.Chunk) {
	stats := &docStats{termChunks: make(map[string]int)}
	for _, chunk := range chunks {
		terms := tokenizeAndFilter(chunk.Text)
		stats.chunks++
		stats.tokens += len(terms)

		seen := make(map[string]bool, len(terms))
		for _, term := range terms {
			if !seen[term] {
				seen[term] = true
				stats.termChunks[term]++
			}
		}
	}

	s.docs[docID] = stats
	s.totalChunks += stats.chunks
	s.totalTokens += stats.tokens
	for term, count := range stats.termChunks {
		s.docFreq[term] += count
	}
}

func (s *Scorer) removeLocked(docID core.ID) {
	stats, ok := s.docs[docID]
	if !ok {
		return
	}
	delete(s.docs, docID)
	s.totalChunks -= stats.chunks
	s.totalTokens -= stats.tokens
	for term, count := range stats.termChunks {
		s.docFreq[term] -= count
		if s.docFreq[term] <= 0 {
			delete(s.docFreq, term)
		}
	}
}

// TotalChunks returns the number of chunks in the corpus statistics.
func (s *Scorer) TotalChunks() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalChunks
}

// QueryTerms tokenizes a query for scoring. An empty result means the
// query has no recognized terms and every candidate scores exactly 0.
func (s *Scorer) QueryTerms(query string) []string {
	return tokenizeAndFilter(query)
}

// Score computes the BM25 score of a chunk's text against query terms.
func (s *Scorer) Score(queryTerms []string, chunkText string) float64 {
	if len(queryTerms) == 0 {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.totalChunks == 0 {
		return 0
	}

	chunkTerms := tokenizeAndFilter(chunkText)
	tf := make(map[string]int, len(chunkTerms))
	for _, term := range chunkTerms {
		tf[term]++
	}

	avgLen := float64(s.totalTokens) / float64(s.totalChunks)
	if avgLen == 0 {
		return 0
	}
	lenNorm := float64(len(chunkTerms)) / avgLen

	var score float64
	for _, term := range queryTerms {
		freq := float64(tf[term])
		if freq == 0 {
			continue
		}

		df := float64(s.docFreq[term])
		if df == 0 {
			// A term the corpus has never seen carries no weight.
			continue
		}
		idf := math.Log(1 + (float64(s.totalChunks)-df+0.5)/(df+0.5))
		score += idf * (freq * (s.k1 + 1)) / (freq + s.k1*(1-s.b+s.b*lenNorm))
	}
	return score
}
