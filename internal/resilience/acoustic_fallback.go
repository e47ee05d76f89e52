package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/larkhollow/lexara/pkg/acoustic"
	"github.com/larkhollow/lexara/pkg/types"
)

// AcousticFallback implements [acoustic.Model] with automatic failover
// across multiple senone-score feeds, each guarded by its own circuit
// breaker. Unlike [AcousticBreaker] (one feed, degrade-or-reject), this is
// for deployments that actually have a second scorer to fall back to — a
// secondary acoustic-model process, or a cached/offline feed standing in
// for a live one gone unhealthy.
//
// AcousticFallback is safe for concurrent use.
type AcousticFallback struct {
	group *FallbackGroup[acoustic.Model]

	mu      sync.Mutex
	current int // index into group.entries of the feed Score last succeeded on
}

// NewAcousticFallback creates an [AcousticFallback] with primary as the
// preferred feed. Additional feeds are registered via
// [AcousticFallback.AddFallback].
func NewAcousticFallback(primary acoustic.Model, primaryName string, cfg FallbackConfig) *AcousticFallback {
	return &AcousticFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional acoustic feed, tried after the
// primary (and any previously added fallbacks) in registration order.
func (f *AcousticFallback) AddFallback(name string, feed acoustic.Model) {
	f.group.AddFallback(name, feed)
}

// currentModel returns the feed Score most recently succeeded on (the
// primary until the first failover).
func (f *AcousticFallback) currentModel() acoustic.Model {
	f.mu.Lock()
	idx := f.current
	f.mu.Unlock()
	return f.group.entries[idx].value
}

// NFeatFrame passes through to the feed currently in use.
func (f *AcousticFallback) NFeatFrame() int { return f.currentModel().NFeatFrame() }

// CompAllSen passes through to the feed currently in use.
func (f *AcousticFallback) CompAllSen() bool { return f.currentModel().CompAllSen() }

// ActivateHMM passes through to the feed currently in use.
func (f *AcousticFallback) ActivateHMM(ci types.PhoneID) { f.currentModel().ActivateHMM(ci) }

// ClearActive passes through to the feed currently in use.
func (f *AcousticFallback) ClearActive() { f.currentModel().ClearActive() }

// Score tries each feed in order until one scores frame successfully,
// skipping any whose circuit breaker is open. The feed that succeeds
// becomes the one NFeatFrame/CompAllSen/ActivateHMM/ClearActive delegate
// to until the next failover. Returns [ErrAllFailed] wrapped with the last
// error if every feed fails.
func (f *AcousticFallback) Score(frame types.FrameIdx) ([]types.LogProb, acoustic.SenoneID, types.LogProb, error) {
	var lastErr error
	for i := range f.group.entries {
		entry := &f.group.entries[i]
		var (
			scores     []types.LogProb
			bestSenone acoustic.SenoneID
			bestScore  types.LogProb
		)
		err := entry.breaker.Execute(func() error {
			var innerErr error
			scores, bestSenone, bestScore, innerErr = entry.value.Score(frame)
			return innerErr
		})
		if err == nil {
			f.mu.Lock()
			f.current = i
			f.mu.Unlock()
			return scores, bestSenone, bestScore, nil
		}
		lastErr = err
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("acoustic fallback: skipping feed (circuit open)", "feed", entry.name, "frame", frame)
		} else {
			slog.Warn("acoustic fallback: feed failed, trying next",
				"feed", entry.name, "frame", frame, "error", err)
		}
	}
	return nil, 0, types.WorstScore, fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}

var _ acoustic.Model = (*AcousticFallback)(nil)
