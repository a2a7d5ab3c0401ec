// Package analyzer orchestrates the scoring pipeline: profile update,
// feature encoding, ensemble scoring, drift observation, explanation
// and the policy verdict.
package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/drift"
	"github.com/opensource-finance/kestrel/internal/ensemble"
	"github.com/opensource-finance/kestrel/internal/explain"
	"github.com/opensource-finance/kestrel/internal/features"
	"github.com/opensource-finance/kestrel/internal/metrics"
	"github.com/opensource-finance/kestrel/internal/verdict"
)

// Analyzer runs the full scoring pipeline for one transaction.
type Analyzer struct {
	profiles  domain.ProfileStore
	scorer    *ensemble.Scorer
	drift     *drift.Aggregator
	explainer domain.Explainer
	policy    *verdict.Policy
	repo      domain.Repository
	bus       domain.EventBus

	explanationLimit int
}

// Options carries the analyzer's collaborators. Repo, Bus and Explainer
// are optional; the rest are required.
type Options struct {
	Profiles  domain.ProfileStore
	Scorer    *ensemble.Scorer
	Drift     *drift.Aggregator
	Explainer domain.Explainer
	Policy    *verdict.Policy
	Repo      domain.Repository
	Bus       domain.EventBus

	ExplanationLimit int
}

// New creates an analyzer.
func New(opts Options) *Analyzer {
	limit := opts.ExplanationLimit
	if limit <= 0 {
		limit = explain.DefaultLimit
	}
	return &Analyzer{
		profiles:         opts.Profiles,
		scorer:           opts.Scorer,
		drift:            opts.Drift,
		explainer:        opts.Explainer,
		policy:           opts.Policy,
		repo:             opts.Repo,
		bus:              opts.Bus,
		explanationLimit: limit,
	}
}

// Analyze scores one transaction. The account profile is updated with
// the incoming transaction before its snapshot is read, so the request
// is scored against aggregates that already include it.
func (a *Analyzer) Analyze(ctx context.Context, req *domain.AnalyzeRequest) (*domain.Result, error) {
	if req.TransactionDate == "" {
		return nil, domain.NewValidationError("TransactionDate", "required")
	}
	txTime, err := time.Parse(domain.TimeLayout, req.TransactionDate)
	if err != nil {
		return nil, domain.NewValidationError("TransactionDate", "must match "+domain.TimeLayout)
	}

	if req.TransactionAmount != nil && req.TransactionDuration != nil {
		summary := domain.TransactionSummary{
			Amount:    *req.TransactionAmount,
			Duration:  *req.TransactionDuration,
			Type:      req.TransactionType,
			Location:  req.Location,
			Timestamp: txTime,
		}
		if err := a.profiles.UpdateProfile(ctx, req.AccountID, summary); err != nil {
			slog.Warn("profile update failed",
				"account_id", req.AccountID,
				"error", err,
			)
		}
	}

	profile, err := a.profiles.GetProfile(ctx, req.AccountID)
	if err != nil && !errors.Is(err, domain.ErrProfileNotFound) {
		slog.Warn("profile read failed, using defaults",
			"account_id", req.AccountID,
			"error", err,
		)
	}
	normalizeProfile(profile)

	fv, err := features.Build(req, profile, txTime)
	if err != nil {
		return nil, err
	}

	customerRisk := domain.DefaultRiskScore
	if profile != nil {
		customerRisk = profile.RiskScore
	}

	res := &domain.Result{
		ID:           uuid.New().String(),
		TxID:         req.TransactionID,
		AccountID:    req.AccountID,
		Timestamp:    txTime,
		CustomerRisk: customerRisk,
	}

	// Drift observation runs alongside the oracle fan-out; neither
	// waits on the other.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.drift.Observe(fv)
	}()

	res.Anomaly, res.Supervised, res.Graph, res.Composite = a.scorer.Score(ctx, fv, customerRisk)

	wg.Wait()
	res.DriftDetected, _ = a.drift.Status()

	res.Explanation = a.explanation(ctx, fv)

	amount := 0.0
	if req.TransactionAmount != nil {
		amount = *req.TransactionAmount
	}

	status, err := a.policy.Decide(res, amount)
	if err != nil {
		slog.Warn("policy evaluation failed, approving",
			"evaluation_id", res.ID,
			"error", err,
		)
	}
	res.Status = status

	metrics.AnalysesTotal.WithLabelValues(res.Status).Inc()

	a.persist(ctx, res)

	return res, nil
}

// normalizeProfile substitutes cold-start defaults for aggregates a
// young account cannot have yet. A single observation yields a zero
// standard deviation, which the deviation features divide by.
func normalizeProfile(p *domain.CustomerRiskProfile) {
	if p == nil {
		return
	}
	if p.AvgAmount == 0 {
		p.AvgAmount = domain.DefaultAvgAmount
	}
	if p.StdAmount == 0 {
		p.StdAmount = domain.DefaultStdAmount
	}
	if p.MaxAmount == 0 {
		p.MaxAmount = domain.DefaultMaxAmount
	}
	if p.AvgDuration == 0 {
		p.AvgDuration = domain.DefaultAvgDuration
	}
	if p.UniqueLocations == 0 {
		p.UniqueLocations = domain.DefaultUniqueLocations
	}
}

// explanation computes ranked per-feature attributions. Best-effort: a
// nil or failing explainer yields an empty list.
func (a *Analyzer) explanation(ctx context.Context, fv *domain.FeatureVector) []domain.ExplanationItem {
	if a.explainer == nil {
		return nil
	}
	items, err := a.explainer.Attribute(ctx, fv)
	if err != nil {
		slog.Warn("explanation failed", "error", err)
		return nil
	}
	return explain.Rank(items, a.explanationLimit)
}

// persist saves the evaluation and emits an alert for flagged verdicts.
// Failures are logged, never surfaced to the caller.
func (a *Analyzer) persist(ctx context.Context, res *domain.Result) {
	if a.repo != nil {
		if err := a.repo.SaveEvaluation(ctx, res); err != nil {
			slog.Warn("evaluation save failed",
				"evaluation_id", res.ID,
				"error", err,
			)
		}
	}

	if a.bus == nil || res.Status != domain.StatusFlagged {
		return
	}

	payload, err := json.Marshal(domain.AlertEvent{
		EvaluationID: res.ID,
		AccountID:    res.AccountID,
		Composite:    res.Composite,
		Drift:        res.DriftDetected,
	})
	if err != nil {
		return
	}
	if err := a.bus.Publish(ctx, domain.TopicAlert, payload); err != nil {
		slog.Warn("alert publish failed",
			"evaluation_id", res.ID,
			"error", err,
		)
	}
}
