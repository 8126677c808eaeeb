package retrieval

import (
	"sort"

	"github.com/kailas-cloud/ragpipe/internal/domain/retrieval/result"
)

// mergeWeighted fuses vector and keyword hits into a single ranking. Keyword
// scores are unbounded, so they are normalized by the maximum in the set
// before mixing: combined = alpha*similarity + (1-alpha)*normalizedKeyword.
// A chunk found by both paths gets both components; ordering is descending
// combined score, ties by ascending chunk ID.
func mergeWeighted(vecChunks, kwChunks []result.Chunk, alpha float64) []result.Chunk {
	var maxKw float64
	for i := range kwChunks {
		if s := kwChunks[i].KeywordScore(); s > maxKw {
			maxKw = s
		}
	}

	type partial struct {
		chunk   result.Chunk
		vecPart float64
		kwPart  float64
	}
	merged := make(map[string]*partial, len(vecChunks)+len(kwChunks))

	for i := range vecChunks {
		c := vecChunks[i]
		merged[c.ID()] = &partial{chunk: c, vecPart: c.Similarity()}
	}
	for i := range kwChunks {
		c := kwChunks[i]
		norm := 0.0
		if maxKw > 0 {
			norm = c.KeywordScore() / maxKw
		}
		if p, ok := merged[c.ID()]; ok {
			p.kwPart = norm
			continue
		}
		merged[c.ID()] = &partial{chunk: c, kwPart: norm}
	}

	out := make([]result.Chunk, 0, len(merged))
	for _, p := range merged {
		combined := alpha*p.vecPart + (1-alpha)*p.kwPart
		out = append(out, result.NewChunk(
			p.chunk.ID(), p.chunk.DocumentID(), p.chunk.Text(),
			p.chunk.Source(), p.chunk.Title(),
			combined, p.chunk.KeywordScore(),
		))
	}
	sortByScore(out)
	return out
}

// normalizeKeyword rescales raw keyword scores into [0,1] by the set maximum
// and stores them as the similarity, so thresholding and confidence work the
// same for keyword-only results.
func normalizeKeyword(chunks []result.Chunk) []result.Chunk {
	var maxKw float64
	for i := range chunks {
		if s := chunks[i].KeywordScore(); s > maxKw {
			maxKw = s
		}
	}

	out := make([]result.Chunk, 0, len(chunks))
	for i := range chunks {
		c := chunks[i]
		norm := 0.0
		if maxKw > 0 {
			norm = c.KeywordScore() / maxKw
		}
		out = append(out, result.NewChunk(
			c.ID(), c.DocumentID(), c.Text(), c.Source(), c.Title(), norm, c.KeywordScore(),
		))
	}
	sortByScore(out)
	return out
}

func sortByScore(chunks []result.Chunk) {
	sort.SliceStable(chunks, func(i, j int) bool {
		if chunks[i].Similarity() != chunks[j].Similarity() {
			return chunks[i].Similarity() > chunks[j].Similarity()
		}
		return chunks[i].ID() < chunks[j].ID()
	})
}

// filterByThreshold drops chunks scoring below the threshold.
func filterByThreshold(chunks []result.Chunk, threshold float64) []result.Chunk {
	if threshold <= 0 {
		return chunks
	}
	out := chunks[:0]
	for i := range chunks {
		if chunks[i].Similarity() >= threshold {
			out = append(out, chunks[i])
		}
	}
	return out
}

// confidence is the mean similarity of the top 3 surviving chunks, discounted
// by 0.75 when the result came from a fallback path.
func confidence(chunks []result.Chunk, outcome result.Outcome) float64 {
	if len(chunks) == 0 {
		return 0
	}
	n := len(chunks)
	if n > 3 {
		n = 3
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += chunks[i].Similarity()
	}
	conf := sum / float64(n)
	if outcome == result.Degraded {
		conf *= 0.75
	}
	return conf
}
