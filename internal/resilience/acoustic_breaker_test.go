package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/larkhollow/lexara/pkg/acoustic"
	"github.com/larkhollow/lexara/pkg/types"
)

// fakeAcousticModel is a hand-written mock of [acoustic.Model] whose Score
// method can be made to fail on demand.
type fakeAcousticModel struct {
	nFeat     int
	compAll   bool
	failNext  bool
	scoreErr  error
	scoreCall int
}

func (f *fakeAcousticModel) NFeatFrame() int  { return f.nFeat }
func (f *fakeAcousticModel) CompAllSen() bool { return f.compAll }

func (f *fakeAcousticModel) ActivateHMM(ci types.PhoneID) {}
func (f *fakeAcousticModel) ClearActive()                 {}

func (f *fakeAcousticModel) Score(frame types.FrameIdx) ([]types.LogProb, acoustic.SenoneID, types.LogProb, error) {
	f.scoreCall++
	if f.failNext {
		return nil, 0, 0, f.scoreErr
	}
	return []types.LogProb{-100, -200}, 0, -100, nil
}

func TestAcousticBreaker_PassesThroughSuccess(t *testing.T) {
	model := &fakeAcousticModel{nFeat: 10}
	b := NewAcousticBreaker(model, CircuitBreakerConfig{Name: "test", MaxFailures: 2}, nil)

	scores, best, bestScore, err := b.Score(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scores) != 2 || best != 0 || bestScore != -100 {
		t.Errorf("unexpected score result: %v %v %v", scores, best, bestScore)
	}
	if b.NFeatFrame() != 10 {
		t.Errorf("NFeatFrame() = %d, want 10", b.NFeatFrame())
	}
}

func TestAcousticBreaker_OpensOnConsecutiveFailures(t *testing.T) {
	model := &fakeAcousticModel{nFeat: 10, failNext: true, scoreErr: errors.New("scorer unavailable")}
	b := NewAcousticBreaker(model, CircuitBreakerConfig{
		Name:         "test",
		MaxFailures:  2,
		ResetTimeout: time.Hour,
	}, nil)

	if _, _, _, err := b.Score(0); err == nil {
		t.Fatal("expected an error from the first failing call")
	}
	if _, _, _, err := b.Score(1); err == nil {
		t.Fatal("expected an error from the second failing call")
	}

	// The breaker should now be open; the model must not be called again.
	callsBefore := model.scoreCall
	if _, _, _, err := b.Score(2); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
	if model.scoreCall != callsBefore {
		t.Error("wrapped model was called while the breaker was open")
	}
}

func TestAcousticBreaker_RecoversAfterModelHeals(t *testing.T) {
	model := &fakeAcousticModel{nFeat: 10, failNext: true, scoreErr: errors.New("scorer unavailable")}
	b := NewAcousticBreaker(model, CircuitBreakerConfig{
		Name:         "test",
		MaxFailures:  1,
		ResetTimeout: 10 * time.Millisecond,
		HalfOpenMax:  1,
	}, nil)

	if _, _, _, err := b.Score(0); err == nil {
		t.Fatal("expected failure")
	}
	if b.breaker.State() != StateOpen {
		t.Fatal("expected breaker to be open")
	}

	time.Sleep(15 * time.Millisecond)
	model.failNext = false

	if _, _, _, err := b.Score(1); err != nil {
		t.Fatalf("expected the probe call to succeed, got: %v", err)
	}
	if b.breaker.State() != StateClosed {
		t.Fatalf("state = %v, want closed after successful probe", b.breaker.State())
	}
}
