package dict_test

import (
	"math"
	"testing"

	"github.com/larkhollow/lexara/pkg/dict"
	"github.com/larkhollow/lexara/pkg/types"
)

func TestPronEmbeddingUnitLength(t *testing.T) {
	vec := dict.PronEmbedding([]types.PhoneID{1, 2, 3, 4}, 16)
	var sumSq float64
	for _, v := range vec {
		sumSq += float64(v) * float64(v)
	}
	if math.Abs(sumSq-1.0) > 1e-5 {
		t.Errorf("||vec||^2 = %v, want ~1.0", sumSq)
	}
}

func TestPronEmbeddingDeterministic(t *testing.T) {
	pron := []types.PhoneID{5, 9, 2}
	a := dict.PronEmbedding(pron, 8)
	b := dict.PronEmbedding(pron, 8)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("PronEmbedding is not deterministic at index %d: %v vs %v", i, a, b)
		}
	}
}

func TestPronEmbeddingEmptyPron(t *testing.T) {
	vec := dict.PronEmbedding(nil, 8)
	for i, v := range vec {
		if v != 0 {
			t.Errorf("vec[%d] = %v, want 0 for an empty pronunciation", i, v)
		}
	}
}

func TestPronEmbeddingDistinguishesDifferentPronunciations(t *testing.T) {
	cat := dict.PronEmbedding([]types.PhoneID{3, 1, 20}, 32)
	dog := dict.PronEmbedding([]types.PhoneID{5, 12, 6}, 32)
	var dot float64
	for i := range cat {
		dot += float64(cat[i]) * float64(dog[i])
	}
	if dot > 0.9 {
		t.Errorf("cosine similarity between unrelated pronunciations = %v, want well below 1", dot)
	}
}
