// Package fsg defines the finite-state-grammar collaborator contract the
// decoder walks: states, word/epsilon-labelled arcs, and the transitive
// closure of null (epsilon) transitions the decoder assumes is precomputed.
//
// [Graph] is the in-memory reference implementation; [Registry] is the
// decoder's per-instance name→Model table (add/remove/select), mirroring the
// hash table of named grammars in the reference FSG search.
package fsg

import "github.com/larkhollow/lexara/pkg/types"

// State is an FSG state id in [0, NState).
type State int32

// Link is a single FSG arc: (From, To, Word, LogProb). Word == types.NoWord
// marks a null (epsilon) arc.
type Link struct {
	From    State
	To      State
	Word    types.WordID
	LogProb types.LogProb
}

// IsNull reports whether l is an epsilon arc.
func (l *Link) IsNull() bool { return l.Word == types.NoWord }

// Model is the read-only contract the decoder consumes. It is shared and
// safely readable from multiple decoder instances at once; mutation (via
// AddSilence/AddAlt) must happen before decoding starts, and is serialized
// by the caller (typically [Registry.Add]).
type Model interface {
	// Name is the grammar's registry key.
	Name() string

	// NState returns the number of states, numbered [0, NState).
	NState() int

	// StartState and FinalState return the designated start/accept states.
	StartState() State
	FinalState() State

	// Trans returns the non-null arcs from s to d, or nil if none.
	Trans(s, d State) []*Link

	// NullTrans returns the (transitively closed) null arc from s to d, or
	// nil if s cannot reach d via epsilon arcs alone. A caller must never
	// need more than one hop: the Model is responsible for precomputing
	// the closure.
	NullTrans(s, d State) *Link

	// WordStr returns the surface form of a word id.
	WordStr(w types.WordID) string

	// IsFiller reports whether w is a non-lexical filler (e.g. silence).
	IsFiller(w types.WordID) bool

	// WordAdd interns str, returning its WordID (creating one if new).
	WordAdd(str string) types.WordID

	// NWord returns the number of distinct words referenced by arcs.
	NWord() int

	// HasSilence reports whether silence self-loops have already been added
	// (fsgusefiller is only applied once per grammar).
	HasSilence() bool

	// HasAlt reports whether alternate pronunciations have already been added.
	HasAlt() bool

	// AddSilence adds a self-loop on every state for the filler word named
	// word, with the given linear self-loop probability.
	AddSilence(word string, prob float64)

	// AddAlt records that altWord is an alternate surface form reachable
	// wherever word is, for FSG-vocabulary-driven alternate-pronunciation
	// expansion.
	AddAlt(word, altWord string)
}
