// Package types holds the scalar vocabulary shared by every decoder package:
// log-probabilities, frame indices, word and phone ids, and the fixed-size
// context bitsets used to gate cross-word transitions.
package types

import "math"

// LogProb is a log-probability expressed in the decoder's fixed integer log
// domain. Score combination is addition; survival is tested with ">=".
type LogProb int32

// WorstScore is a sentinel LogProb far below any reachable path score. It
// seeds bestscore accumulation at the start of a frame.
const WorstScore LogProb = math.MinInt32 / 2

// FrameIdx indexes a decoded frame. -1 means "before the first frame".
type FrameIdx int32

// WordID identifies a word in the FSG/dictionary vocabulary.
type WordID int32

// NoWord marks a null (epsilon) FSG arc or a failed dictionary lookup.
const NoWord WordID = -1

// PhoneID identifies a context-independent phone.
type PhoneID int16

// NoPhone marks the absence of a phone, e.g. the result of looking up a
// phone name that was never interned.
const NoPhone PhoneID = -1

// BpIdx indexes an entry in the history table. -1 means "no predecessor".
type BpIdx int32

// NoBpIdx marks the absence of a back-pointer.
const NoBpIdx BpIdx = -1
