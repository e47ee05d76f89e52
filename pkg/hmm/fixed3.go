package hmm

import "github.com/larkhollow/lexara/pkg/types"

// Topo holds the transition log-probabilities of a three-state,
// left-to-right (Bakis) phone HMM: states 0, 1, 2, each with a self-loop
// and a transition to the next state; state 2's "next" transition is the
// phone's exit. There is no skip transition, matching the topology the
// decoder's lextree leaf/`ci_ext` accounting assumes (one exit per phone).
type Topo struct {
	SelfLoop [3]types.LogProb
	Next     [3]types.LogProb // Next[2] is the exit transition
}

// DefaultTopo is a mildly leaky three-state topology useful for tests and
// as a starting point for a real acoustic model's transition matrix.
var DefaultTopo = Topo{
	SelfLoop: [3]types.LogProb{-200, -200, -200},
	Next:     [3]types.LogProb{-800, -800, -800},
}

// fixed3State is the per-instance internal state [Fixed3] keeps outside
// the shared [Instance] bookkeeping.
type fixed3State struct {
	state  [3]types.LogProb
	senone [3]SenoneID
	// seededIn and seededHist are the entry score and history index
	// state0 was last seeded from. Fixed3 is never notified of
	// Instance.Enter calls directly, so VitEval reseeds from
	// inst.InScore() only when either value has changed since (a fresh
	// Enter); an instance carried on with Instance.Continue keeps
	// evolving its states across frames.
	seeded     bool
	seededIn   types.LogProb
	seededHist types.BpIdx
}

// Fixed3 is a reference [Context]: every phone shares the same [Topo], and
// each phone's three states are mapped onto three consecutive senone ids
// assigned the first time that phone is seen by [Fixed3.NewInstance].
type Fixed3 struct {
	topo    Topo
	sen     []types.LogProb // current frame's senone scores
	nextSen SenoneID
	senOf   map[types.PhoneID][3]SenoneID
	inst    map[*Instance]*fixed3State
}

// NewFixed3 returns a Fixed3 context using topo for every phone.
func NewFixed3(topo Topo) *Fixed3 {
	return &Fixed3{
		topo:  topo,
		senOf: make(map[types.PhoneID][3]SenoneID),
		inst:  make(map[*Instance]*fixed3State),
	}
}

func (c *Fixed3) SetSenScores(scores []types.LogProb) { c.sen = scores }

func (c *Fixed3) NewInstance(ci types.PhoneID) *Instance {
	sens, ok := c.senOf[ci]
	if !ok {
		sens = [3]SenoneID{c.nextSen, c.nextSen + 1, c.nextSen + 2}
		c.nextSen += 3
		c.senOf[ci] = sens
	}
	inst := NewInstance(ci)
	c.inst[inst] = &fixed3State{
		state:  [3]types.LogProb{types.WorstScore, types.WorstScore, types.WorstScore},
		senone: sens,
	}
	return inst
}

// VitEval implements the standard three-state Viterbi recursion: for each
// state, the best incoming path is either the self-loop from the same
// state's previous score or the forward transition from the preceding
// state, plus that state's senone score for the current frame.
func (c *Fixed3) VitEval(inst *Instance) types.LogProb {
	st := c.inst[inst]
	if !st.seeded || st.seededIn != inst.InScore() || st.seededHist != inst.OutHistory() {
		st.state = [3]types.LogProb{inst.InScore(), types.WorstScore, types.WorstScore}
		st.seeded, st.seededIn, st.seededHist = true, inst.InScore(), inst.OutHistory()
	}
	prev := st.state
	var next [3]types.LogProb

	if prev[0] != types.WorstScore {
		next[0] = prev[0] + c.topo.SelfLoop[0]
	} else {
		next[0] = types.WorstScore
	}
	next[1] = maxLP(addLP(prev[1], c.topo.SelfLoop[1]), addLP(prev[0], c.topo.Next[0]))
	next[2] = maxLP(addLP(prev[2], c.topo.SelfLoop[2]), addLP(prev[1], c.topo.Next[1]))

	best := types.WorstScore
	for s := 0; s < 3; s++ {
		if next[s] != types.WorstScore {
			next[s] += c.senoneScore(st.senone[s])
		}
		if next[s] > best {
			best = next[s]
		}
	}
	st.state = next

	out := addLP(next[2], c.topo.Next[2])
	inst.SetScores(out, best)
	return out
}

func (c *Fixed3) senoneScore(s SenoneID) types.LogProb {
	if int(s) >= len(c.sen) {
		return types.WorstScore
	}
	return c.sen[s]
}

// addLP adds two log-probabilities, saturating at types.WorstScore so a
// WorstScore operand never wraps into a spuriously high score.
func addLP(a, b types.LogProb) types.LogProb {
	if a <= types.WorstScore || b <= types.WorstScore {
		return types.WorstScore
	}
	return a + b
}

func maxLP(a, b types.LogProb) types.LogProb {
	if a > b {
		return a
	}
	return b
}

var _ Context = (*Fixed3)(nil)
