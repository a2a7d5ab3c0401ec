package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/opensource-finance/kestrel/internal/bus"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/drift"
	"github.com/opensource-finance/kestrel/internal/ensemble"
	"github.com/opensource-finance/kestrel/internal/explain"
	"github.com/opensource-finance/kestrel/internal/profile"
	"github.com/opensource-finance/kestrel/internal/verdict"
)

type stubOracle struct {
	name  string
	score float64
	err   error
}

func (o *stubOracle) Name() string { return o.name }

func (o *stubOracle) Predict(ctx context.Context, fv *domain.FeatureVector) (float64, error) {
	if o.err != nil {
		return 0, o.err
	}
	return o.score, nil
}

func newTestAnalyzer(t *testing.T, supervised domain.Oracle, eventBus domain.EventBus) *Analyzer {
	t.Helper()

	policy, err := verdict.New(verdict.DefaultExpression)
	if err != nil {
		t.Fatalf("failed to build policy: %v", err)
	}

	scorer := ensemble.NewScorer(
		&stubOracle{name: "anomaly", score: 0.9},
		supervised,
		&stubOracle{name: "graph", score: 0.9},
		domain.ScoringConfig{
			AnomalyWeight:    0.4,
			SupervisedWeight: 0.4,
			GraphWeight:      0.2,
			NeutralScore:     0.5,
			OracleTimeout:    time.Second,
		},
	)

	return New(Options{
		Profiles:  profile.NewMemoryStore(),
		Scorer:    scorer,
		Drift:     drift.NewAggregator(50, 3.0),
		Explainer: explain.NewLinearAttributor(),
		Policy:    policy,
		Bus:       eventBus,
	})
}

func validRequest(accountID string, amount float64) *domain.AnalyzeRequest {
	f := func(v float64) *float64 { return &v }
	return &domain.AnalyzeRequest{
		TransactionID:           "tx-001",
		AccountID:               accountID,
		TransactionAmount:       f(amount),
		TransactionDuration:     f(60),
		LoginAttempts:           f(1),
		AccountBalance:          f(2000),
		TransactionDate:         "2026-08-20 12:00:00",
		PreviousTransactionDate: "2026-08-15 12:00:00",
		TransactionType:         domain.TypeDebit,
		Location:                "New York, NY",
		DeviceID:                "D-1",
		MerchantID:              "M-1",
		Channel:                 "Online",
		CustomerOccupation:      "Engineer",
	}
}

func TestAnalyzeApproved(t *testing.T) {
	a := newTestAnalyzer(t, &stubOracle{name: "supervised", score: 0.9}, nil)
	ctx := context.Background()

	res, err := a.Analyze(ctx, validRequest("acct-001", 200))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if res.Status != domain.StatusApproved {
		t.Errorf("expected %s, got %s", domain.StatusApproved, res.Status)
	}
	if res.ID == "" {
		t.Error("expected evaluation ID to be set")
	}
	if res.AccountID != "acct-001" {
		t.Errorf("expected account acct-001, got %s", res.AccountID)
	}

	// Fresh account, one small transaction in one location: 0.3.
	if res.CustomerRisk != 0.3 {
		t.Errorf("expected customer risk 0.3, got %.4f", res.CustomerRisk)
	}

	// All oracles at 0.9: composite = 0.9 * (0.5 + 0.3).
	want := 0.9 * 0.8
	if diff := res.Composite - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected composite %.4f, got %.4f", want, res.Composite)
	}

	if res.DriftDetected {
		t.Error("expected no drift during warmup")
	}
	if len(res.Explanation) == 0 || len(res.Explanation) > explain.DefaultLimit {
		t.Errorf("expected 1..%d explanation items, got %d", explain.DefaultLimit, len(res.Explanation))
	}
}

func TestAnalyzeFlaggedAndAlerted(t *testing.T) {
	eventBus := bus.NewChannelBus(10)
	defer eventBus.Close()

	alertCh := make(chan domain.AlertEvent, 1)
	eventBus.Subscribe(context.Background(), domain.TopicAlert, func(ctx context.Context, msg *domain.Message) error {
		var ev domain.AlertEvent
		if err := json.Unmarshal(msg.Payload, &ev); err == nil {
			alertCh <- ev
		}
		return nil
	})
	time.Sleep(10 * time.Millisecond)

	a := newTestAnalyzer(t, &stubOracle{name: "supervised", score: 0.9}, eventBus)

	// A large first transaction drives the large-amount ratio to 1, so
	// the risk read back already reflects the update: 0.3 + 0.5 = 0.8,
	// and composite = 0.9 * 1.3 = 1.17 crosses the flag threshold.
	res, err := a.Analyze(context.Background(), validRequest("acct-002", 5000))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if res.CustomerRisk != 0.8 {
		t.Errorf("expected customer risk 0.8, got %.4f", res.CustomerRisk)
	}
	if res.Status != domain.StatusFlagged {
		t.Errorf("expected %s, got %s", domain.StatusFlagged, res.Status)
	}

	select {
	case ev := <-alertCh:
		if ev.EvaluationID != res.ID {
			t.Errorf("expected alert for %s, got %s", res.ID, ev.EvaluationID)
		}
		if ev.AccountID != "acct-002" {
			t.Errorf("expected alert account acct-002, got %s", ev.AccountID)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for alert")
	}
}

func TestAnalyzeValidation(t *testing.T) {
	a := newTestAnalyzer(t, &stubOracle{name: "supervised", score: 0.5}, nil)
	ctx := context.Background()

	t.Run("MissingAmount", func(t *testing.T) {
		req := validRequest("acct-003", 100)
		req.TransactionAmount = nil

		_, err := a.Analyze(ctx, req)
		if err == nil {
			t.Fatal("expected error for missing amount")
		}
		if _, ok := domain.AsValidationError(err); !ok {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("BadTransactionDate", func(t *testing.T) {
		req := validRequest("acct-003", 100)
		req.TransactionDate = "20/08/2026 12:00"

		_, err := a.Analyze(ctx, req)
		verr, ok := domain.AsValidationError(err)
		if !ok {
			t.Fatalf("expected validation error, got %v", err)
		}
		if verr.Field != "TransactionDate" {
			t.Errorf("expected field TransactionDate, got %s", verr.Field)
		}
	})

	t.Run("MissingTransactionDate", func(t *testing.T) {
		req := validRequest("acct-003", 100)
		req.TransactionDate = ""

		_, err := a.Analyze(ctx, req)
		if _, ok := domain.AsValidationError(err); !ok {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("BadPreviousDate", func(t *testing.T) {
		req := validRequest("acct-003", 100)
		req.PreviousTransactionDate = "not-a-date"

		_, err := a.Analyze(ctx, req)
		if _, ok := domain.AsValidationError(err); !ok {
			t.Errorf("expected validation error, got %v", err)
		}
	})
}

func TestAnalyzeDegradedOracle(t *testing.T) {
	a := newTestAnalyzer(t, &stubOracle{name: "supervised", err: errors.New("model offline")}, nil)

	res, err := a.Analyze(context.Background(), validRequest("acct-004", 200))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if !res.Supervised.Degraded {
		t.Error("expected supervised sub-score to be degraded")
	}
	if res.Supervised.Value != 0.5 {
		t.Errorf("expected neutral 0.5, got %.4f", res.Supervised.Value)
	}
	if res.Anomaly.Degraded || res.Graph.Degraded {
		t.Error("expected healthy oracles to stay non-degraded")
	}
}

func TestAnalyzeProfileAccumulates(t *testing.T) {
	a := newTestAnalyzer(t, &stubOracle{name: "supervised", score: 0.5}, nil)
	ctx := context.Background()

	first, err := a.Analyze(ctx, validRequest("acct-005", 100))
	if err != nil {
		t.Fatalf("first Analyze failed: %v", err)
	}

	req := validRequest("acct-005", 4000)
	second, err := a.Analyze(ctx, req)
	if err != nil {
		t.Fatalf("second Analyze failed: %v", err)
	}

	if second.CustomerRisk <= first.CustomerRisk {
		t.Errorf("expected risk to rise after a large transaction: %.4f -> %.4f",
			first.CustomerRisk, second.CustomerRisk)
	}
}
