// Package history is the decoder's append-only word-exit back-pointer
// table: every word emitted by a leaf exit, null-transition propagation, or
// the utterance-start dummy entry becomes one immutable [Entry], indexable
// by [types.BpIdx] from then on.
//
// Entries added during a frame are tentative until [Table.EndFrame] commits
// them; the decoder relies on this two-phase commit to run null-transition
// closure and cross-word transitions only over entries that have already
// survived the wbeam test.
package history

import (
	"github.com/larkhollow/lexara/pkg/fsg"
	"github.com/larkhollow/lexara/pkg/types"
)

// Entry is one committed word-exit record. It is immutable once appended by
// [Table.EndFrame]; earlier fields may be tentative between a call to
// [Table.Add] and the following [Table.EndFrame].
type Entry struct {
	// FSGLink identifies the word/arc just exited. Nil only for the
	// utterance-root dummy entry or for null-transition entries whose arc
	// is itself the null arc.
	FSGLink *fsg.Link

	// Frame is the exit frame.
	Frame types.FrameIdx

	// Score is the path score at exit.
	Score types.LogProb

	// Pred is the back-pointer to the preceding entry, or types.NoBpIdx.
	Pred types.BpIdx

	// LC is the left-context phone id carried into this exit.
	LC types.PhoneID

	// RC is the right-context bitset of allowed following context phones.
	RC types.ContextSet
}

// ToState returns the FSG state this entry transitions into: FSGLink.To, or
// startState if FSGLink is nil (the dummy entry transitions into the
// grammar's start state).
func (e *Entry) ToState(startState fsg.State) fsg.State {
	if e.FSGLink == nil {
		return startState
	}
	return e.FSGLink.To
}

// Table is the append-only history arena. Indices are stable for the
// lifetime of an utterance; [Table.Drain] resets the table for the next
// utterance.
type Table struct {
	entries []Entry
	commit  int // number of entries permanent (committed by EndFrame)
}

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{}
}

// Size returns the number of entries appended so far, committed or not.
// The decoder captures this at the top of each frame as bpidx_start
func (t *Table) Size() int { return len(t.entries) }

// Committed returns the number of permanent entries, i.e. the exclusive
// upper bound of indices safe to read before the next Add.
func (t *Table) Committed() int { return t.commit }

// Add appends e and returns its index. The entry is tentative until the
// next [Table.EndFrame].
func (t *Table) Add(e Entry) types.BpIdx {
	idx := types.BpIdx(len(t.entries))
	t.entries = append(t.entries, e)
	return idx
}

// EndFrame commits every entry added since the last EndFrame, making them
// permanent and visible to [Table.Committed]-bounded iteration. The core
// calls this once after word exits are emitted and again after null-
// transition propagation.
func (t *Table) EndFrame() {
	t.commit = len(t.entries)
}

// Get returns the entry at idx. idx must be < Size(); the decoder never
// dereferences an index it has not itself produced.
func (t *Table) Get(idx types.BpIdx) *Entry {
	return &t.entries[idx]
}

// Drain resets the table to empty, for a new utterance ([Decoder.Start]).
func (t *Table) Drain() {
	t.entries = t.entries[:0]
	t.commit = 0
}

// Range calls fn for every committed entry with index in [from, Committed()).
// fn receives the entry's index and a pointer to it; fn must not mutate the
// table. Used to walk newly committed entries for null-propagation and
// cross-word transition, both of which iterate from the frame's commit
// boundary.
func (t *Table) Range(from int, fn func(idx types.BpIdx, e *Entry)) {
	for i := from; i < t.commit; i++ {
		fn(types.BpIdx(i), &t.entries[i])
	}
}

// AcyclicFrom reports whether walking e's Pred chain from idx terminates at
// types.NoBpIdx without revisiting an index, i.e. the back-pointer chain is
// acyclic. It is a diagnostic aid used by tests, not called on the decode
// hot path.
func (t *Table) AcyclicFrom(idx types.BpIdx) bool {
	seen := make(map[types.BpIdx]bool)
	for idx != types.NoBpIdx {
		if seen[idx] {
			return false
		}
		if int(idx) < 0 || int(idx) >= len(t.entries) {
			return false
		}
		seen[idx] = true
		idx = t.entries[idx].Pred
	}
	return true
}
