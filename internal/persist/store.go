package persist

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/larkhollow/lexara/pkg/decoder"
	"github.com/larkhollow/lexara/pkg/lattice"
	"github.com/larkhollow/lexara/pkg/types"
)

// Store is the PostgreSQL-backed archive of finished utterance hypotheses
// and lattices, plus (when vocabEmbeddingDim > 0) the nearest-neighbour
// vocabulary index returned by [Store.Vocab]. All methods are safe for
// concurrent use.
type Store struct {
	pool  *pgxpool.Pool
	vocab *VocabIndex
}

// NewStore establishes a connection pool to the PostgreSQL database at dsn
// and runs [Migrate] to ensure the required tables exist.
//
// vocabEmbeddingDim is the width of the vocabulary index's stored embedding
// vectors (see [dict.PronEmbedding]); pass 0 to skip creating the
// pgvector-backed vocabulary table and extension entirely.
func NewStore(ctx context.Context, dsn string, vocabEmbeddingDim int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("persist store: parse dsn: %w", err)
	}
	if vocabEmbeddingDim > 0 {
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			return pgxvec.RegisterTypes(ctx, conn)
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("persist store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("persist store: ping: %w", err)
	}

	if err := Migrate(ctx, pool, vocabEmbeddingDim); err != nil {
		pool.Close()
		return nil, fmt.Errorf("persist store: migrate: %w", err)
	}

	s := &Store{pool: pool}
	if vocabEmbeddingDim > 0 {
		s.vocab = &VocabIndex{pool: pool, dim: vocabEmbeddingDim}
	}
	return s, nil
}

// Vocab returns the pgvector-backed vocabulary index, or nil if this Store
// was created with vocabEmbeddingDim == 0.
func (s *Store) Vocab() *VocabIndex { return s.vocab }

// Close releases all connections held by the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// SaveUtterance records utteranceID's final hypothesis: one row in
// utterances carrying the final score and frame count, and one row per
// segment in hypothesis_segments preserving decode order. Replaces any
// prior rows for the same utteranceID.
func (s *Store) SaveUtterance(ctx context.Context, utteranceID string, segs []decoder.Segment, finalScore types.LogProb, nFrames int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("persist store: save utterance: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const upsertUtterance = `
		INSERT INTO utterances (utterance_id, final_score, n_frames)
		VALUES ($1, $2, $3)
		ON CONFLICT (utterance_id) DO UPDATE
		    SET final_score = EXCLUDED.final_score, n_frames = EXCLUDED.n_frames`
	if _, err := tx.Exec(ctx, upsertUtterance, utteranceID, int64(finalScore), nFrames); err != nil {
		return fmt.Errorf("persist store: save utterance: upsert: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM hypothesis_segments WHERE utterance_id = $1`, utteranceID); err != nil {
		return fmt.Errorf("persist store: save utterance: clear segments: %w", err)
	}

	const insertSegment = `
		INSERT INTO hypothesis_segments
		    (utterance_id, seq, word_id, start_frame, end_frame, lscr, ascr)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for i, seg := range segs {
		if _, err := tx.Exec(ctx, insertSegment,
			utteranceID, i, int32(seg.Word), int32(seg.SF), int32(seg.EF),
			int64(seg.LScr), int64(seg.AScr),
		); err != nil {
			return fmt.Errorf("persist store: save utterance: insert segment %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("persist store: save utterance: commit: %w", err)
	}
	return nil
}

// LoadSegments returns utteranceID's previously saved hypothesis segments
// in decode order.
func (s *Store) LoadSegments(ctx context.Context, utteranceID string) ([]decoder.Segment, error) {
	const q = `
		SELECT word_id, start_frame, end_frame, lscr, ascr
		FROM   hypothesis_segments
		WHERE  utterance_id = $1
		ORDER  BY seq`

	rows, err := s.pool.Query(ctx, q, utteranceID)
	if err != nil {
		return nil, fmt.Errorf("persist store: load segments: %w", err)
	}
	segs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (decoder.Segment, error) {
		var (
			wordID, sf, ef int32
			lscr, ascr     int64
		)
		if err := row.Scan(&wordID, &sf, &ef, &lscr, &ascr); err != nil {
			return decoder.Segment{}, err
		}
		return decoder.Segment{
			Word: types.WordID(wordID),
			SF:   types.FrameIdx(sf),
			EF:   types.FrameIdx(ef),
			LScr: types.LogProb(lscr),
			AScr: types.LogProb(ascr),
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("persist store: load segments: scan: %w", err)
	}
	if segs == nil {
		segs = []decoder.Segment{}
	}
	return segs, nil
}

// SaveLattice serializes lat to JSON and stores it keyed by utteranceID,
// replacing any prior lattice for the same utterance.
func (s *Store) SaveLattice(ctx context.Context, utteranceID string, lat *lattice.Lattice) error {
	blob, err := json.Marshal(lat)
	if err != nil {
		return fmt.Errorf("persist store: save lattice: marshal: %w", err)
	}

	const upsert = `
		INSERT INTO lattices (utterance_id, frame, graph)
		VALUES ($1, $2, $3)
		ON CONFLICT (utterance_id) DO UPDATE
		    SET frame = EXCLUDED.frame, graph = EXCLUDED.graph, created_at = now()`
	if _, err := s.pool.Exec(ctx, upsert, utteranceID, int32(lat.Frame), blob); err != nil {
		return fmt.Errorf("persist store: save lattice: %w", err)
	}
	return nil
}

// LoadLattice retrieves and deserializes the lattice previously saved for
// utteranceID. Returns [pgx.ErrNoRows] if none exists.
func (s *Store) LoadLattice(ctx context.Context, utteranceID string) (*lattice.Lattice, error) {
	const q = `SELECT graph FROM lattices WHERE utterance_id = $1`

	var blob []byte
	if err := s.pool.QueryRow(ctx, q, utteranceID).Scan(&blob); err != nil {
		return nil, fmt.Errorf("persist store: load lattice: %w", err)
	}

	var lat lattice.Lattice
	if err := json.Unmarshal(blob, &lat); err != nil {
		return nil, fmt.Errorf("persist store: load lattice: unmarshal: %w", err)
	}
	return &lat, nil
}
