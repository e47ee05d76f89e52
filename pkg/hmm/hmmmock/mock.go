// Package hmmmock provides a scripted test double for [hmm.Context]. Use it
// to force a specific HMM path to dominate a frame's pruning and propagation
// without modeling real acoustic topology.
package hmmmock

import (
	"sync"

	"github.com/larkhollow/lexara/pkg/hmm"
	"github.com/larkhollow/lexara/pkg/types"
)

// VitEvalCall records a single invocation of Context.VitEval.
type VitEvalCall struct {
	CIPhone types.PhoneID
	InScore types.LogProb
	Frame   types.FrameIdx
}

// Context is a mock [hmm.Context]. For each instance, VitEval returns
// Script[ci][age] where age is the number of times VitEval has been
// called on that instance since it was created by [Context.NewInstance]
// or last passed to [Context.ResetAge] (0-indexed; Enter alone does not
// restart the count); once
// age runs past the end of Script[ci], the last scripted value repeats.
// Instances of phones absent from Script score Default on every call.
type Context struct {
	mu sync.Mutex

	// Script maps a phone id to the sequence of out-scores VitEval should
	// report for successive evaluations of an instance of that phone.
	Script map[types.PhoneID][]types.LogProb

	// Default is returned for phones not present in Script.
	Default types.LogProb

	// VitEvalCalls records every VitEval invocation, in order.
	VitEvalCalls []VitEvalCall

	age map[*hmm.Instance]int
}

// NewContext returns an empty Context; set Script/Default before use.
func NewContext() *Context {
	return &Context{
		Script:  make(map[types.PhoneID][]types.LogProb),
		Default: types.WorstScore,
		age:     make(map[*hmm.Instance]int),
	}
}

func (c *Context) SetSenScores(scores []types.LogProb) {}

func (c *Context) NewInstance(ci types.PhoneID) *hmm.Instance {
	inst := hmm.NewInstance(ci)
	c.mu.Lock()
	c.age[inst] = -1
	c.mu.Unlock()
	return inst
}

// VitEval returns the next scripted score for inst's phone, records the
// call, and updates inst's OutScore/BestScore via [hmm.Instance.SetScores].
func (c *Context) VitEval(inst *hmm.Instance) types.LogProb {
	c.mu.Lock()
	defer c.mu.Unlock()

	// The mock has no hook into Enter, so a re-Enter does not restart the
	// script: age simply counts calls since NewInstance/ResetAge, and the
	// caller is expected to call VitEval exactly once per frame the
	// instance is active.
	c.age[inst]++
	age := c.age[inst]

	seq := c.Script[inst.CIPhone()]
	var score types.LogProb
	switch {
	case len(seq) == 0:
		score = c.Default
	case age < len(seq):
		score = seq[age]
	default:
		score = seq[len(seq)-1]
	}

	c.VitEvalCalls = append(c.VitEvalCalls, VitEvalCall{
		CIPhone: inst.CIPhone(),
		InScore: inst.InScore(),
		Frame:   inst.Frame(),
	})
	inst.SetScores(score, score)
	return score
}

// ResetAge restarts inst's scripted sequence from the beginning. Call
// this after re-Entering an instance that should replay its script
// rather than continue from where it left off.
func (c *Context) ResetAge(inst *hmm.Instance) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.age[inst] = -1
}

// Reset clears all recorded calls.
func (c *Context) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.VitEvalCalls = nil
}

var _ hmm.Context = (*Context)(nil)
