package hmm

import (
	"testing"

	"github.com/larkhollow/lexara/pkg/types"
)

func TestFixed3_SingleFramePropagatesEntryScore(t *testing.T) {
	ctx := NewFixed3(DefaultTopo)
	inst := ctx.NewInstance(0)
	inst.Enter(0, types.NoBpIdx, 0)

	ctx.SetSenScores([]types.LogProb{0, 0, 0})
	out := ctx.VitEval(inst)

	if out != types.WorstScore {
		t.Fatal("expected no exit score after one frame: the exit state is two transitions from the entry state")
	}
	if inst.BestScore() == types.WorstScore {
		t.Fatal("expected a real best score after the first eval")
	}
}

func TestFixed3_ScoreDegradesWithSenonePenalty(t *testing.T) {
	ctx := NewFixed3(DefaultTopo)
	good := ctx.NewInstance(0)
	bad := ctx.NewInstance(1)
	good.Enter(0, types.NoBpIdx, 0)
	bad.Enter(0, types.NoBpIdx, 0)

	ctx.SetSenScores([]types.LogProb{0, 0, 0, -5000, -5000, -5000})
	// The exit state is reached on the second frame at the earliest.
	ctx.VitEval(good)
	ctx.VitEval(bad)
	goodOut := ctx.VitEval(good)
	badOut := ctx.VitEval(bad)

	if goodOut <= badOut {
		t.Fatalf("expected the undamaged senone path to score higher: good=%d bad=%d", goodOut, badOut)
	}
}

func TestFixed3_ReenterResetsState(t *testing.T) {
	ctx := NewFixed3(DefaultTopo)
	inst := ctx.NewInstance(0)
	inst.Enter(0, types.NoBpIdx, 0)
	ctx.SetSenScores([]types.LogProb{0, 0, 0})
	ctx.VitEval(inst)

	inst.Enter(-100, types.BpIdx(7), 5)
	if inst.InScore() != -100 || inst.OutHistory() != 7 || inst.Frame() != 5 {
		t.Fatal("expected Enter to overwrite bookkeeping fields")
	}
	// Re-entering reseeds state 0 from -100 and clears states 1 and 2, so
	// the exit is unreachable again and the best state is -100 + self-loop.
	out := ctx.VitEval(inst)
	if out != types.WorstScore || inst.BestScore() != -300 {
		t.Fatalf("expected re-entry to reset the states: out=%d best=%d", out, inst.BestScore())
	}
}

func TestFixed3_DistinctPhonesGetDistinctSenones(t *testing.T) {
	ctx := NewFixed3(DefaultTopo)
	ctx.NewInstance(0)
	ctx.NewInstance(1)
	if ctx.senOf[0] == ctx.senOf[1] {
		t.Fatal("expected distinct phones to be assigned distinct senone ids")
	}
	// Same phone reuses its senone assignment.
	ctx.NewInstance(0)
	if ctx.nextSen != 6 {
		t.Fatalf("expected only 2 phones' worth of senones allocated, got nextSen=%d", ctx.nextSen)
	}
}
