package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

func newTestRepo(t *testing.T) domain.Repository {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "kestrel-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpPath) })

	repo, err := New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	return repo
}

func TestSQLiteRepository(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	t.Run("Ping", func(t *testing.T) {
		if err := repo.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("SaveAndGetTransaction", func(t *testing.T) {
		tx := &domain.Transaction{
			ID:         "tx-001",
			AccountID:  "acct-001",
			Amount:     1250.50,
			Timestamp:  time.Now().UTC().Truncate(time.Second),
			Type:       domain.TypeDebit,
			Location:   "New York, NY",
			DeviceID:   "device-17",
			MerchantID: "merchant-42",
			Channel:    "Online",
			Occupation: "Engineer",
			RiskScore:  0.31,
			Status:     domain.StatusApproved,
		}

		if err := repo.SaveTransaction(ctx, tx); err != nil {
			t.Fatalf("SaveTransaction failed: %v", err)
		}

		retrieved, err := repo.GetTransaction(ctx, tx.ID)
		if err != nil {
			t.Fatalf("GetTransaction failed: %v", err)
		}

		if retrieved.ID != tx.ID {
			t.Errorf("expected ID %s, got %s", tx.ID, retrieved.ID)
		}
		if retrieved.Amount != tx.Amount {
			t.Errorf("expected Amount %.2f, got %.2f", tx.Amount, retrieved.Amount)
		}
		if retrieved.AccountID != tx.AccountID {
			t.Errorf("expected AccountID %s, got %s", tx.AccountID, retrieved.AccountID)
		}
		if retrieved.Channel != tx.Channel {
			t.Errorf("expected Channel %s, got %s", tx.Channel, retrieved.Channel)
		}
	})

	t.Run("GetTransactionNotFound", func(t *testing.T) {
		_, err := repo.GetTransaction(ctx, "no-such-tx")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("SaveTransactionMissingID", func(t *testing.T) {
		err := repo.SaveTransaction(ctx, &domain.Transaction{AccountID: "acct-001"})
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestListTransactionsSince(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	ages := []time.Duration{0, time.Hour, 48 * time.Hour, 72 * time.Hour}
	for i, age := range ages {
		tx := &domain.Transaction{
			ID:        "tx-" + string(rune('a'+i)),
			AccountID: "acct-001",
			Amount:    float64(100 * (i + 1)),
			Timestamp: now.Add(-age),
			Type:      domain.TypeCredit,
			Location:  "Chicago, IL",
		}
		if err := repo.SaveTransaction(ctx, tx); err != nil {
			t.Fatalf("SaveTransaction failed: %v", err)
		}
	}

	t.Run("FiltersByTime", func(t *testing.T) {
		txs, err := repo.ListTransactionsSince(ctx, now.Add(-24*time.Hour), 0)
		if err != nil {
			t.Fatalf("ListTransactionsSince failed: %v", err)
		}
		if len(txs) != 2 {
			t.Fatalf("expected 2 transactions, got %d", len(txs))
		}
	})

	t.Run("NewestFirst", func(t *testing.T) {
		txs, err := repo.ListTransactionsSince(ctx, time.Time{}, 0)
		if err != nil {
			t.Fatalf("ListTransactionsSince failed: %v", err)
		}
		if len(txs) != 4 {
			t.Fatalf("expected 4 transactions, got %d", len(txs))
		}
		for i := 1; i < len(txs); i++ {
			if txs[i].Timestamp.After(txs[i-1].Timestamp) {
				t.Errorf("transactions not ordered newest first at index %d", i)
			}
		}
	})

	t.Run("Limit", func(t *testing.T) {
		txs, err := repo.ListTransactionsSince(ctx, time.Time{}, 2)
		if err != nil {
			t.Fatalf("ListTransactionsSince failed: %v", err)
		}
		if len(txs) != 2 {
			t.Fatalf("expected 2 transactions, got %d", len(txs))
		}
		if txs[0].ID != "tx-a" {
			t.Errorf("expected newest transaction first, got %s", txs[0].ID)
		}
	})
}

func TestEvaluations(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	res := &domain.Result{
		ID:           "eval-001",
		TxID:         "tx-001",
		AccountID:    "acct-001",
		Timestamp:    time.Now().UTC().Truncate(time.Second),
		Anomaly:      domain.SubScore{Value: 0.72},
		Supervised:   domain.SubScore{Value: 0.5, Degraded: true},
		Graph:        domain.SubScore{Value: 0.18},
		Composite:    0.84,
		CustomerRisk: 0.5,
		Explanation: []domain.ExplanationItem{
			{Feature: "AmountDeviation", Value: 4.2, Attribution: 1.26},
			{Feature: "LoginAttempts", Value: 3, Attribution: 0.003},
		},
		DriftDetected: true,
		Status:        domain.StatusFlagged,
	}

	t.Run("SaveAndGet", func(t *testing.T) {
		if err := repo.SaveEvaluation(ctx, res); err != nil {
			t.Fatalf("SaveEvaluation failed: %v", err)
		}

		got, err := repo.GetEvaluation(ctx, res.ID)
		if err != nil {
			t.Fatalf("GetEvaluation failed: %v", err)
		}

		if got.Composite != res.Composite {
			t.Errorf("expected Composite %.2f, got %.2f", res.Composite, got.Composite)
		}
		if got.Status != domain.StatusFlagged {
			t.Errorf("expected status %s, got %s", domain.StatusFlagged, got.Status)
		}
		if !got.DriftDetected {
			t.Error("expected DriftDetected true")
		}
		if !got.Supervised.Degraded {
			t.Error("expected degraded supervised sub-score to round-trip")
		}
		if got.Anomaly.Value != res.Anomaly.Value {
			t.Errorf("expected anomaly %.2f, got %.2f", res.Anomaly.Value, got.Anomaly.Value)
		}
		if len(got.Explanation) != 2 {
			t.Fatalf("expected 2 explanation items, got %d", len(got.Explanation))
		}
		if got.Explanation[0].Feature != "AmountDeviation" {
			t.Errorf("expected first explanation feature AmountDeviation, got %s", got.Explanation[0].Feature)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := repo.GetEvaluation(ctx, "no-such-eval")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}
