// Command lexara drives the frame-synchronous Viterbi decoder core over a
// file-backed acoustic feed, prints the resulting hypothesis, optionally
// persists the lattice for offline rescoring, and serves Prometheus metrics
// on the configured listen address.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/larkhollow/lexara/internal/config"
	"github.com/larkhollow/lexara/internal/observe"
	"github.com/larkhollow/lexara/internal/persist"
	"github.com/larkhollow/lexara/internal/resilience"
	"github.com/larkhollow/lexara/pkg/acoustic"
	"github.com/larkhollow/lexara/pkg/decoder"
	"github.com/larkhollow/lexara/pkg/dict"
	"github.com/larkhollow/lexara/pkg/fsg"
	"github.com/larkhollow/lexara/pkg/hmm"
	"github.com/larkhollow/lexara/pkg/types"
)

func main() {
	var (
		configPath    = flag.String("config", "configs/lexara.yaml", "path to the YAML configuration file")
		dictPath      = flag.String("dict", "", "path to the pronunciation dictionary (required)")
		audioPath     = flag.String("audio", "", "path to a senone-score feature file (required)")
		fallbackAudio = flag.String("fallback-audio", "", "path to a second senone-score feature file, tried if -audio's feed fails")
		utteranceID   = flag.String("utterance", "utt-1", "identifier under which to persist this utterance")
		useBreaker    = flag.Bool("breaker", false, "wrap the acoustic feed in a circuit breaker")
	)
	flag.Parse()

	if err := run(*configPath, *dictPath, *audioPath, *fallbackAudio, *utteranceID, *useBreaker); err != nil {
		slog.Error("lexara: fatal", "error", err)
		os.Exit(1)
	}
}

func run(configPath, dictPath, audioPath, fallbackAudioPath, utteranceID string, useBreaker bool) error {
	if dictPath == "" || audioPath == "" {
		return fmt.Errorf("lexara: -dict and -audio are required")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("lexara: load config: %w", err)
	}
	setLogLevel(cfg.Server.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "lexara"})
	if err != nil {
		return fmt.Errorf("lexara: init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = shutdownTelemetry(shutdownCtx)
	}()

	metrics := observe.DefaultMetrics()
	srv := startMetricsServer(cfg.Server.ListenAddr, metrics)
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	phones := dict.NewPhoneSet()
	memDict, err := dict.LoadFile(dictPath, phones)
	if err != nil {
		return fmt.Errorf("lexara: load dictionary: %w", err)
	}

	graph, err := fsg.LoadFile(cfg.FSG.Path)
	if err != nil {
		return fmt.Errorf("lexara: load fsg: %w", err)
	}
	if cfg.FSG.UseFiller {
		graph.AddSilence("<sil>", cfg.FSG.SilProb)
	}
	if cfg.FSG.UseAltPron {
		wireAltPron(graph, memDict)
	}

	registry := fsg.NewRegistry()
	registry.Add(graph)
	if err := registry.Select(graph.Name()); err != nil {
		return fmt.Errorf("lexara: select fsg: %w", err)
	}

	hctx := hmm.NewFixed3(hmm.DefaultTopo)

	feed, err := acoustic.LoadFileFeedPath(audioPath)
	if err != nil {
		return fmt.Errorf("lexara: load audio feed: %w", err)
	}

	var am acoustic.Model
	switch {
	case fallbackAudioPath != "":
		fallbackFeed, err := acoustic.LoadFileFeedPath(fallbackAudioPath)
		if err != nil {
			return fmt.Errorf("lexara: load fallback audio feed: %w", err)
		}
		fb := resilience.NewAcousticFallback(feed, "primary", resilience.FallbackConfig{
			CircuitBreaker: resilience.CircuitBreakerConfig{Name: "acoustic-primary"},
		})
		fb.AddFallback("fallback", fallbackFeed)
		am = fb
	case useBreaker:
		am = resilience.NewAcousticBreaker(feed, resilience.CircuitBreakerConfig{Name: "acoustic-feed"}, metrics)
	default:
		am = feed
	}

	silPhone := phones.ID("SIL")
	if silPhone == types.NoPhone {
		silPhone = 0
	}
	dec := decoder.New(registry, memDict, hctx, am, cfg.Decoder.ToDecoderConfig(cfg.FSG, phones.N(), silPhone))

	var store *persist.Store
	if cfg.Persist.DSN != "" {
		store, err = persist.NewStore(ctx, cfg.Persist.DSN, cfg.Persist.VocabEmbeddingDim)
		if err != nil {
			return fmt.Errorf("lexara: open persistence store: %w", err)
		}
		defer store.Close()

		if vocab := store.Vocab(); vocab != nil {
			if err := indexVocabulary(ctx, vocab, memDict); err != nil {
				return fmt.Errorf("lexara: index vocabulary: %w", err)
			}
		}
	}

	if err := decodeUtterance(ctx, dec, metrics, store, utteranceID); err != nil {
		return fmt.Errorf("lexara: decode: %w", err)
	}

	return nil
}

// indexVocabulary populates the nearest-neighbour vocabulary index with one
// pronunciation embedding per dictionary entry, so an FSG author's
// unresolved word can be resolved to a near-miss even on a vocabulary too
// large for [dict.Suggester]'s in-memory scan.
func indexVocabulary(ctx context.Context, vocab *persist.VocabIndex, d *dict.MemDict) error {
	for wid := types.WordID(0); int(wid) < d.NWords(); wid++ {
		embed := dict.PronEmbedding(d.Pron(wid), vocab.Dim())
		if err := vocab.IndexWord(ctx, wid, d.WordStr(wid), embed); err != nil {
			return err
		}
	}
	return nil
}

func decodeUtterance(ctx context.Context, dec *decoder.Decoder, metrics *observe.Metrics, store *persist.Store, utteranceID string) error {
	utterCtx, span := observe.StartSpan(ctx, "decode.utterance")
	defer span.End()
	metrics.ActiveUtterances.Add(utterCtx, 1)
	defer metrics.ActiveUtterances.Add(utterCtx, -1)

	if err := dec.Start(); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	var lastFrame types.FrameIdx = -1
	for {
		start := time.Now()
		n, err := dec.Step()
		metrics.FrameDecodeDuration.Record(utterCtx, time.Since(start).Seconds())
		if err != nil {
			return fmt.Errorf("step: %w", err)
		}
		if n == 0 {
			break
		}
		lastFrame++
	}
	dec.Finish()

	hyp, score, err := dec.Hyp()
	if err != nil {
		return fmt.Errorf("hyp: %w", err)
	}
	slog.Info("decoded utterance", "utterance_id", utteranceID, "hypothesis", hyp, "score", score, "frames", lastFrame+1)

	if store == nil {
		return nil
	}

	bp, err := dec.FindExit(lastFrame, true)
	if err != nil {
		return fmt.Errorf("find_exit: %w", err)
	}
	segs := dec.Segments(bp)
	if err := store.SaveUtterance(ctx, utteranceID, segs, score, int(lastFrame)+1); err != nil {
		return fmt.Errorf("save utterance: %w", err)
	}

	lat, err := dec.Lattice()
	if err != nil {
		return fmt.Errorf("lattice: %w", err)
	}
	if err := store.SaveLattice(ctx, utteranceID, lat); err != nil {
		return fmt.Errorf("save lattice: %w", err)
	}
	return nil
}

// startMetricsServer starts an HTTP server on addr exposing Prometheus
// metrics at /metrics, instrumented with the same tracing middleware the
// rest of the request surface uses.
func startMetricsServer(addr string, metrics *observe.Metrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{Addr: addr, Handler: observe.Middleware(metrics)(mux)}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server failed", "error", err)
		}
	}()
	return srv
}

func setLogLevel(level config.LogLevel) {
	var lvl slog.Level
	switch level {
	case config.LogLevelDebug:
		lvl = slog.LevelDebug
	case config.LogLevelWarn:
		lvl = slog.LevelWarn
	case config.LogLevelError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

// wireAltPron registers every alternate pronunciation the dictionary holds
// with the grammar's vocabulary, mirroring fsg_model_word_add's alternate
// bookkeeping; the lextree builder walks the dictionary's own alt chain
// when constructing phone paths regardless of this registration.
func wireAltPron(g *fsg.Graph, d *dict.MemDict) {
	for i := 0; i < d.NWords(); i++ {
		wid := types.WordID(i)
		if d.BaseWID(wid) != wid {
			continue // not a base word
		}
		for alt := d.NextAlt(wid); alt != types.NoWord; alt = d.NextAlt(alt) {
			g.AddAlt(d.WordStr(wid), d.WordStr(alt))
		}
	}
}
