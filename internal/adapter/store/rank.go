package store

import (
	"math"
	"sort"

	"compliance/internal/domain"
	"compliance/internal/port"
)

// Rank scores every record against query by cosine similarity and returns
// the k best, most similar first. Ties keep chunk order.
func Rank(query []float32, records []port.VectorRecord, k int) []domain.ScoredChunk {
	if len(records) == 0 || k <= 0 {
		return nil
	}

	scores := make([]domain.ScoredChunk, 0, len(records))
	for _, rec := range records {
		scores = append(scores, domain.ScoredChunk{
			Chunk: rec.Chunk,
			Score: CosineSimilarity(query, rec.Vector),
		})
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})

	if k > len(scores) {
		k = len(scores)
	}
	return scores[:k]
}

// CosineSimilarity calculates the cosine similarity between two vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
