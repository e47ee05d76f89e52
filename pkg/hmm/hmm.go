// Package hmm defines the HMM-context collaborator contract the decoder
// treats as opaque acoustic scoring: a fixed-topology, per-frame Viterbi
// step over one phone's hidden states, addressed by the instance embedded
// in each lextree pnode.
//
// The forward-pass arithmetic itself (topology, transition probabilities,
// senone-to-state assignment) is out of the decoder core's scope; [Fixed3]
// is a reference left-to-right tri-state implementation in the style of a
// classic Bakis-topology phone HMM, suitable for tests and for grammars
// that don't need a richer acoustic model plugged in.
package hmm

import "github.com/larkhollow/lexara/pkg/types"

// SenoneID identifies one tied acoustic state in the current frame's
// senone score vector.
type SenoneID int32

// Instance is one HMM token living at a lextree pnode: the bookkeeping the
// decoder reads/writes every frame (entry/exit scores, carried history
// index, and the admission-token frame field). Any per-state internal
// scores are owned and indexed by the owning [Context], keyed off the
// Instance pointer, so a ci phone's topology stays entirely inside its
// Context implementation.
//
// Instance is allocated once per pnode by [NewInstance] and never freed
// mid-utterance — [Instance.Enter] resets its bookkeeping in place.
type Instance struct {
	ci types.PhoneID

	inScore    types.LogProb
	outScore   types.LogProb
	outHistory types.BpIdx
	best       types.LogProb
	frame      types.FrameIdx
}

// NewInstance allocates an Instance scoring phone ci, with Frame() == -1
// (never yet scheduled) until the first [Instance.Enter] call. Concrete
// [Context] implementations call this from their own NewInstance method;
// it is exported so that package-external Context implementations (e.g. a
// test mock) can build conforming instances without reaching into
// unexported fields.
func NewInstance(ci types.PhoneID) *Instance {
	return &Instance{
		ci:         ci,
		inScore:    types.WorstScore,
		outHistory: types.NoBpIdx,
		frame:      -1,
		best:       types.WorstScore,
		outScore:   types.WorstScore,
	}
}

// BestScore returns the best of this instance's internal state scores as
// of the last [Context.VitEval].
func (i *Instance) BestScore() types.LogProb { return i.best }

// InScore returns the score the instance was entered with.
func (i *Instance) InScore() types.LogProb { return i.inScore }

// OutScore returns the exit-state score as of the last [Context.VitEval].
func (i *Instance) OutScore() types.LogProb { return i.outScore }

// OutHistory returns the history-table index carried through this
// instance, set at [Instance.Enter] time and propagated unchanged by
// VitEval.
func (i *Instance) OutHistory() types.BpIdx { return i.outHistory }

// Frame returns the frame this instance is scheduled to be evaluated at.
// The decoder uses this as the sole admission token deciding whether the
// instance has already been pushed onto the next-frame active set.
func (i *Instance) Frame() types.FrameIdx { return i.frame }

// Enter (re-)activates the instance with a fresh token: score seeds the
// entry state, hist is carried as OutHistory until the next exit, and
// frame schedules the next evaluation. Internal state scores other than
// the entry state are reset to [types.WorstScore].
func (i *Instance) Enter(score types.LogProb, hist types.BpIdx, frame types.FrameIdx) {
	i.inScore = score
	i.outHistory = hist
	i.frame = frame
}

// Continue advances the instance's scheduled frame without resetting its
// entry score or carried history index, for a pnode that simply self-loops
// into the next frame rather than being (re-)entered by a competing token
// via [Instance.Enter]. This is the "reused by resetting their frame
// field" reuse path the decoder relies on to let an HMM keep evolving its
// internal states across more than one frame.
func (i *Instance) Continue(frame types.FrameIdx) {
	i.frame = frame
}

// CIPhone returns the context-independent phone this instance scores.
func (i *Instance) CIPhone() types.PhoneID { return i.ci }

// SetScores records the result of one VitEval: out is the exit-state
// score, best is the best internal state score for the frame just
// evaluated. Context implementations call this after computing a step;
// it is exported so Context implementations outside this package can
// update an Instance without access to its unexported fields.
func (i *Instance) SetScores(out, best types.LogProb) {
	i.outScore = out
	i.best = best
}

// Context is the collaborator contract the decoder drives once per frame:
// install the frame's senone scores, then run vit_eval on each active
// instance.
type Context interface {
	// SetSenScores installs the current frame's senone score vector.
	SetSenScores(scores []types.LogProb)

	// NewInstance allocates an Instance scoring phone ci, ready for a
	// first Enter call.
	NewInstance(ci types.PhoneID) *Instance

	// VitEval runs one Viterbi step of inst against the installed senone
	// scores, updating its internal state scores, OutScore and BestScore,
	// and returns OutScore for convenience.
	VitEval(inst *Instance) types.LogProb
}
