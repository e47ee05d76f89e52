package resilience

import (
	"context"
	"log/slog"

	"github.com/larkhollow/lexara/internal/observe"
	"github.com/larkhollow/lexara/pkg/acoustic"
	"github.com/larkhollow/lexara/pkg/types"
)

// AcousticBreaker wraps a single [acoustic.Model] with a [CircuitBreaker] so
// that a flaky remote scorer degrades a frame instead of taking the decoder
// process down with it. Unlike [FallbackGroup] there is no second model to
// fail over to — CompAllSen/ActivateHMM/ClearActive pass straight through,
// and Score returns the breaker's rejection error verbatim when the circuit
// is open so the caller can decide whether to skip the frame or abort the
// utterance.
type AcousticBreaker struct {
	model   acoustic.Model
	breaker *CircuitBreaker
	metrics *observe.Metrics
}

// NewAcousticBreaker wraps model with a circuit breaker using cfg. metrics
// may be nil, in which case no acoustic error counters are recorded.
func NewAcousticBreaker(model acoustic.Model, cfg CircuitBreakerConfig, metrics *observe.Metrics) *AcousticBreaker {
	if cfg.Name == "" {
		cfg.Name = "acoustic-model"
	}
	return &AcousticBreaker{
		model:   model,
		breaker: NewCircuitBreaker(cfg),
		metrics: metrics,
	}
}

// NFeatFrame passes through to the wrapped model; it performs no I/O the
// breaker needs to guard.
func (b *AcousticBreaker) NFeatFrame() int { return b.model.NFeatFrame() }

// CompAllSen passes through to the wrapped model.
func (b *AcousticBreaker) CompAllSen() bool { return b.model.CompAllSen() }

// ActivateHMM passes through to the wrapped model.
func (b *AcousticBreaker) ActivateHMM(ci types.PhoneID) { b.model.ActivateHMM(ci) }

// ClearActive passes through to the wrapped model.
func (b *AcousticBreaker) ClearActive() { b.model.ClearActive() }

// Score scores frame through the circuit breaker. When the breaker is open,
// Score returns [ErrCircuitOpen] without calling the wrapped model, and the
// caller is expected to treat the frame as unscorable for this step rather
// than crash the utterance.
func (b *AcousticBreaker) Score(frame types.FrameIdx) ([]types.LogProb, acoustic.SenoneID, types.LogProb, error) {
	var (
		scores     []types.LogProb
		bestSenone acoustic.SenoneID
		bestScore  types.LogProb
	)
	err := b.breaker.Execute(func() error {
		var innerErr error
		scores, bestSenone, bestScore, innerErr = b.model.Score(frame)
		return innerErr
	})
	if err != nil {
		if b.metrics != nil {
			b.metrics.RecordAcousticError(context.Background(), "Score")
		}
		slog.Warn("acoustic model scoring failed", "frame", frame, "error", err)
	}
	return scores, bestSenone, bestScore, err
}
