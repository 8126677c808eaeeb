package vectorstore

import (
	"encoding/binary"
	"math"
	"sort"
	"strings"

	"github.com/kailas-cloud/ragpipe/internal/db"
	"github.com/kailas-cloud/ragpipe/internal/domain/retrieval/result"
)

// entriesToChunks maps search hits to domain chunks. The entry score goes to
// similarity for vector hits and to the keyword score otherwise.
func entriesToChunks(entries []db.SearchEntry, keyPrefix string, vector bool) []result.Chunk {
	chunks := make([]result.Chunk, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		id := strings.TrimPrefix(e.Key, keyPrefix+"chunk:")

		var similarity, keywordScore float64
		if vector {
			similarity = e.Score
		} else {
			keywordScore = e.Score
		}

		chunks = append(chunks, result.NewChunk(
			id,
			e.Fields[db.FieldDocID],
			e.Fields[db.FieldText],
			e.Fields[db.FieldSource],
			e.Fields[db.FieldTitle],
			similarity,
			keywordScore,
		))
	}
	return chunks
}

// sortChunks orders by descending similarity, ties by ascending chunk ID.
func sortChunks(chunks []result.Chunk) {
	sort.SliceStable(chunks, func(i, j int) bool {
		if chunks[i].Similarity() != chunks[j].Similarity() {
			return chunks[i].Similarity() > chunks[j].Similarity()
		}
		return chunks[i].ID() < chunks[j].ID()
	})
}

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
