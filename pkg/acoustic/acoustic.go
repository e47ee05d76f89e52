// Package acoustic defines the acoustic-model collaborator contract the
// decoder core treats as opaque per-frame senone scoring, plus
// two reference feeds: a file-backed batch feed ([FileFeed]) for offline
// decoding and test fixtures, and a websocket-backed streaming feed
// ([StreamFeed]) for a live front-end pushing frames as they are computed.
//
// The forward-pass scoring math itself (feature extraction, GMM/DNN
// inference) is explicitly out of the decoder core's scope; both reference
// feeds assume senone scores have already been computed upstream and only
// hand frames to the decoder in order.
package acoustic

import "github.com/larkhollow/lexara/pkg/types"

// SenoneID identifies one tied acoustic state, matching [pkg/hmm.SenoneID]'s
// numbering.
type SenoneID = types.PhoneID

// Model is the collaborator the decoder drives once per [Decoder.Step]
// call: it supplies the current frame's senone scores and lets the decoder
// mark which senones its active set actually needs.
type Model interface {
	// NFeatFrame returns the number of frames currently available to
	// decode. Step treats frame >= NFeatFrame() as "no new frame".
	NFeatFrame() int

	// CompAllSen reports whether the model always scores every senone
	// regardless of the active set, in which case the decoder skips the
	// active-senone marking walk.
	CompAllSen() bool

	// Score returns the senone score vector for frame, plus the frame's
	// best-scoring senone id and score (for diagnostics; the decoder
	// computes its own bestscore from HMM evaluation).
	Score(frame types.FrameIdx) (scores []types.LogProb, bestSenone SenoneID, bestScore types.LogProb, err error)

	// ActivateHMM marks the senones of phone ci's HMM as needed for the
	// next Score call. Only meaningful when CompAllSen() is false; a model
	// that always scores every senone may implement this as a no-op.
	ActivateHMM(ci types.PhoneID)

	// ClearActive resets the active-senone marking before a new frame's
	// walk. Only meaningful when CompAllSen() is false.
	ClearActive()
}
