package dict

import (
	"math"

	"github.com/larkhollow/lexara/pkg/types"
)

// PronEmbedding maps a pronunciation's phone sequence to a fixed-width
// float32 vector: a positional bag-of-phones histogram (phone id modulo
// dim, weighted by position so "cat" and "tack" don't collide into the
// same bucket counts) normalized to unit length.
//
// This is not an acoustic or semantic embedding — it exists purely to give
// a nearest-neighbour vocabulary index ([persist.VocabIndex]) something
// cheap and deterministic to index large dictionaries by, complementing
// [Suggester]'s in-memory Jaro-Winkler scan for vocabularies too large to
// scan linearly per lookup.
func PronEmbedding(pron []types.PhoneID, dim int) []float32 {
	vec := make([]float32, dim)
	if dim == 0 {
		return vec
	}
	for i, ph := range pron {
		if ph < 0 {
			continue
		}
		bucket := int(ph) % dim
		vec[bucket] += 1.0 + float32(i)*0.1
	}
	var sumSq float64
	for _, v := range vec {
		sumSq += float64(v) * float64(v)
	}
	if sumSq == 0 {
		return vec
	}
	inv := float32(1.0 / math.Sqrt(sumSq))
	for i := range vec {
		vec[i] *= inv
	}
	return vec
}
