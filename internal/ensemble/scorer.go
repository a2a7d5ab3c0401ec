// Package ensemble fuses independent oracle scores into a composite
// risk verdict with per-model failure isolation.
package ensemble

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/metrics"
)

// Scorer calls the anomaly, supervised, and graph oracles through the
// uniform predict contract and computes the weighted composite score.
// Each oracle call is independent: a failure, timeout, or missing model
// degrades that sub-score to the neutral default and never fails the
// request.
type Scorer struct {
	anomaly    domain.Oracle
	supervised domain.Oracle
	graph      domain.Oracle

	cfg domain.ScoringConfig
}

// NewScorer creates an ensemble scorer. Any oracle may be nil; its
// sub-score is then permanently degraded to the neutral default.
func NewScorer(anomaly, supervised, graph domain.Oracle, cfg domain.ScoringConfig) *Scorer {
	if cfg.OracleTimeout <= 0 {
		cfg.OracleTimeout = 2 * time.Second
	}
	if cfg.NeutralScore == 0 {
		cfg.NeutralScore = 0.5
	}
	return &Scorer{
		anomaly:    anomaly,
		supervised: supervised,
		graph:      graph,
		cfg:        cfg,
	}
}

// Score runs the three oracles in parallel and fuses their outputs.
//
// Composite = (wA*anomaly + wS*supervised + wG*graph) * (0.5 + customerRisk).
// The anomaly and supervised signals are trusted equally and more than
// the graph signal; the multiplier amplifies scores by up to 1.5x for
// historically risky accounts. The composite is intentionally not
// clamped to [0,1] (see domain.Result).
func (s *Scorer) Score(ctx context.Context, fv *domain.FeatureVector, customerRisk float64) (anomaly, supervised, graph domain.SubScore, composite float64) {
	oracles := []domain.Oracle{s.anomaly, s.supervised, s.graph}
	subs := make([]domain.SubScore, len(oracles))

	var wg sync.WaitGroup
	for i, oracle := range oracles {
		wg.Add(1)
		go func(idx int, o domain.Oracle) {
			defer wg.Done()
			subs[idx] = s.callOracle(ctx, o, fv)
		}(i, oracle)
	}
	wg.Wait()

	anomaly, supervised, graph = subs[0], subs[1], subs[2]

	if !isValidRisk(customerRisk) {
		customerRisk = domain.DefaultRiskScore
	}

	composite = (anomaly.Value*s.cfg.AnomalyWeight +
		supervised.Value*s.cfg.SupervisedWeight +
		graph.Value*s.cfg.GraphWeight) * (0.5 + customerRisk)

	return anomaly, supervised, graph, composite
}

// callOracle runs one oracle under its own deadline and normalizes the
// outcome into a sub-score. Every degenerate case (nil oracle, error,
// timeout, NaN/Inf or out-of-range output) collapses to the neutral
// default with the degraded flag set.
func (s *Scorer) callOracle(ctx context.Context, o domain.Oracle, fv *domain.FeatureVector) domain.SubScore {
	neutral := domain.SubScore{Value: s.cfg.NeutralScore, Degraded: true}

	if o == nil {
		return neutral
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.OracleTimeout)
	defer cancel()

	score, err := o.Predict(callCtx, fv)
	if err != nil {
		slog.Warn("oracle degraded", "oracle", o.Name(), "error", err)
		metrics.OracleDegradedTotal.WithLabelValues(o.Name()).Inc()
		return neutral
	}
	if math.IsNaN(score) || math.IsInf(score, 0) {
		slog.Warn("oracle returned non-finite score", "oracle", o.Name())
		metrics.OracleDegradedTotal.WithLabelValues(o.Name()).Inc()
		return neutral
	}
	// Sub-scores are probabilities (or probability-like): clamp into [0,1].
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return domain.SubScore{Value: score}
}

func isValidRisk(risk float64) bool {
	return !math.IsNaN(risk) && !math.IsInf(risk, 0) && risk >= 0 && risk <= 1
}
