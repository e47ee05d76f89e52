// Package dict defines the pronunciation-dictionary collaborator contract:
// word string ⇄ id lookup, per-word phone sequences, and the alternate-
// pronunciation chain ([Dictionary.NextAlt]/[Dictionary.BaseWID]) the lextree
// builder walks to instantiate one tree branch per pronunciation variant.
package dict

import "github.com/larkhollow/lexara/pkg/types"

// Dictionary is the read-only contract the lextree builder (and the
// decoder's filler/single-phone-word exit-context rule) consumes.
type Dictionary interface {
	// ToID returns the WordID for str, or types.NoWord if str is unknown.
	ToID(str string) types.WordID

	// WordStr returns the surface form of a word id.
	WordStr(wid types.WordID) string

	// PronLen returns the number of phones in wid's pronunciation.
	PronLen(wid types.WordID) int

	// Pron returns wid's phone sequence. The slice must not be mutated.
	Pron(wid types.WordID) []types.PhoneID

	// NextAlt returns the next alternate pronunciation of the same base
	// word, or types.NoWord if wid is the last (or only) variant.
	NextAlt(wid types.WordID) types.WordID

	// BaseWID returns the canonical (first-listed) pronunciation variant
	// id for wid's base word; equal to wid itself for a word with no
	// alternates.
	BaseWID(wid types.WordID) types.WordID

	// NWords returns the number of distinct pronunciation entries
	// (base words plus alternates).
	NWords() int

	// IsFiller reports whether wid names a non-lexical filler (e.g.
	// silence or a noise model), used by the lextree builder and the
	// decoder's "all right contexts" exit-context rule.
	IsFiller(wid types.WordID) bool
}
