package persist

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/larkhollow/lexara/pkg/types"
)

// VocabIndex is a pgvector-backed nearest-neighbour index over dictionary
// pronunciation embeddings ([dict.PronEmbedding]). It exists for
// vocabularies too large for [dict.Suggester]'s in-memory Jaro-Winkler scan
// to serve at interactive latency — an FSG author's unresolved word gets a
// single HNSW lookup instead of a linear pass over every entry.
//
// Obtain one via [Store.Vocab] rather than constructing directly.
type VocabIndex struct {
	pool *pgxpool.Pool
	dim  int
}

// VocabMatch is one nearest-neighbour result from [VocabIndex.Nearest].
type VocabMatch struct {
	WordID   types.WordID
	Word     string
	Distance float32 // cosine distance; 0 is an exact match
}

// IndexWord upserts a dictionary word's pronunciation embedding. Callers
// typically index a whole dictionary once after loading it.
func (v *VocabIndex) IndexWord(ctx context.Context, wid types.WordID, word string, embedding []float32) error {
	const q = `
		INSERT INTO vocab_entries (word_id, word, embedding)
		VALUES ($1, $2, $3)
		ON CONFLICT (word_id) DO UPDATE SET
		    word      = EXCLUDED.word,
		    embedding = EXCLUDED.embedding`
	if _, err := v.pool.Exec(ctx, q, int32(wid), word, pgvector.NewVector(embedding)); err != nil {
		return fmt.Errorf("persist vocab index: index word %q: %w", word, err)
	}
	return nil
}

// Nearest returns the topK dictionary entries whose embeddings are closest
// (cosine distance) to embedding, ordered by ascending distance.
func (v *VocabIndex) Nearest(ctx context.Context, embedding []float32, topK int) ([]VocabMatch, error) {
	const q = `
		SELECT word_id, word, embedding <=> $1 AS distance
		FROM   vocab_entries
		ORDER  BY distance
		LIMIT  $2`

	rows, err := v.pool.Query(ctx, q, pgvector.NewVector(embedding), topK)
	if err != nil {
		return nil, fmt.Errorf("persist vocab index: nearest: %w", err)
	}
	matches, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (VocabMatch, error) {
		var (
			wordID int32
			m      VocabMatch
		)
		if err := row.Scan(&wordID, &m.Word, &m.Distance); err != nil {
			return VocabMatch{}, err
		}
		m.WordID = types.WordID(wordID)
		return m, nil
	})
	if err != nil {
		return nil, fmt.Errorf("persist vocab index: nearest: scan rows: %w", err)
	}
	if matches == nil {
		matches = []VocabMatch{}
	}
	return matches, nil
}

// Dim returns the embedding width this index was created with.
func (v *VocabIndex) Dim() int { return v.dim }
