// Package persist provides a PostgreSQL-backed archive of finished
// utterance hypotheses and their lattices, for offline rescoring pipelines
// that run after the decode loop (asynchronous, never during a Step), plus
// an optional pgvector-backed nearest-neighbour vocabulary index
// ([VocabIndex]) for resolving out-of-vocabulary FSG words at scale.
//
// Usage:
//
//	store, err := persist.NewStore(ctx, cfg.DSN, vocabEmbeddingDim)
//	if err != nil { … }
//	defer store.Close()
//
//	_ = store.SaveUtterance(ctx, utteranceID, segs, finalScore, nFrames)
//	_ = store.SaveLattice(ctx, utteranceID, lat)
//	_ = store.Vocab().IndexWord(ctx, wid, word, dict.PronEmbedding(pron, dim))
package persist

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlUtterances = `
CREATE TABLE IF NOT EXISTS utterances (
    utterance_id  TEXT         PRIMARY KEY,
    final_score   BIGINT       NOT NULL,
    n_frames      INTEGER      NOT NULL,
    created_at    TIMESTAMPTZ  NOT NULL DEFAULT now()
);
`

const ddlSegments = `
CREATE TABLE IF NOT EXISTS hypothesis_segments (
    id            BIGSERIAL    PRIMARY KEY,
    utterance_id  TEXT         NOT NULL REFERENCES utterances (utterance_id) ON DELETE CASCADE,
    seq           INTEGER      NOT NULL,
    word_id       INTEGER      NOT NULL,
    start_frame   INTEGER      NOT NULL,
    end_frame     INTEGER      NOT NULL,
    lscr          BIGINT       NOT NULL,
    ascr          BIGINT       NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_hypothesis_segments_utterance
    ON hypothesis_segments (utterance_id, seq);
`

const ddlLattices = `
CREATE TABLE IF NOT EXISTS lattices (
    utterance_id  TEXT         PRIMARY KEY REFERENCES utterances (utterance_id) ON DELETE CASCADE,
    frame         INTEGER      NOT NULL,
    graph         JSONB        NOT NULL,
    created_at    TIMESTAMPTZ  NOT NULL DEFAULT now()
);
`

// ddlVocab returns the vocabulary-index DDL with the embedding dimension
// substituted; the vector width is baked into the column type at creation
// time, matching the dimension [dict.PronEmbedding] was called with.
func ddlVocab(embeddingDim int) string {
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS vocab_entries (
    word_id     INTEGER      PRIMARY KEY,
    word        TEXT         NOT NULL,
    embedding   vector(%d)   NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_vocab_entries_embedding
    ON vocab_entries USING hnsw (embedding vector_cosine_ops);
`, embeddingDim)
}

// Migrate creates or ensures all required tables and indexes exist. It is
// idempotent (CREATE TABLE/INDEX IF NOT EXISTS) and safe to call on every
// application start.
//
// embeddingDim is the width of the vocabulary index's embedding column; it
// is ignored (no vector extension or table is created) when <= 0.
func Migrate(ctx context.Context, pool *pgxpool.Pool, embeddingDim int) error {
	statements := []string{ddlUtterances, ddlSegments, ddlLattices}
	if embeddingDim > 0 {
		statements = append(statements, ddlVocab(embeddingDim))
	}
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("persist migrate: %w", err)
		}
	}
	return nil
}
