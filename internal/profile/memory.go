// Package profile implements the customer risk profile store.
// The memory backend serves the community tier; the Redis backend
// (pro tier) keeps snapshots across restarts.
package profile

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// New creates a profile store for the configured backend.
func New(cfg domain.ProfileConfig) (domain.ProfileStore, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		return NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	default:
		return nil, fmt.Errorf("unsupported profile backend: %s", cfg.Backend)
	}
}

// accountState holds the running aggregates for one account.
// Variance uses Welford's algorithm so StdAmount is numerically stable
// over long-lived accounts.
type accountState struct {
	count       int64
	meanAmount  float64
	m2Amount    float64
	maxAmount   float64
	sumDuration float64
	largeCount  int64
	locations   map[string]struct{}
}

// MemoryStore is the in-process profile store.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]*accountState
}

// NewMemoryStore creates an empty memory-backed profile store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[string]*accountState)}
}

// GetProfile returns a snapshot for the account.
func (s *MemoryStore) GetProfile(ctx context.Context, accountID string) (*domain.CustomerRiskProfile, error) {
	if accountID == "" {
		return nil, fmt.Errorf("accountID is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.accounts[accountID]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return st.snapshot(accountID), nil
}

// UpdateProfile folds one transaction into the account's aggregates.
func (s *MemoryStore) UpdateProfile(ctx context.Context, accountID string, summary domain.TransactionSummary) error {
	if accountID == "" {
		return fmt.Errorf("accountID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.accounts[accountID]
	if !ok {
		st = &accountState{locations: make(map[string]struct{})}
		s.accounts[accountID] = st
	}
	st.apply(summary)
	return nil
}

// Ping checks store health.
func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

// Close clears the store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = make(map[string]*accountState)
	return nil
}

// largeAmount is the threshold above which a transaction counts toward
// the account's risk score.
const largeAmount = 1000.0

func (st *accountState) apply(summary domain.TransactionSummary) {
	st.count++
	delta := summary.Amount - st.meanAmount
	st.meanAmount += delta / float64(st.count)
	st.m2Amount += delta * (summary.Amount - st.meanAmount)

	if summary.Amount > st.maxAmount {
		st.maxAmount = summary.Amount
	}
	st.sumDuration += summary.Duration
	if summary.Amount > largeAmount {
		st.largeCount++
	}
	if summary.Location != "" {
		st.locations[summary.Location] = struct{}{}
	}
}

func (st *accountState) snapshot(accountID string) *domain.CustomerRiskProfile {
	std := 0.0
	if st.count > 1 {
		std = math.Sqrt(st.m2Amount / float64(st.count-1))
	}
	avgDuration := 0.0
	if st.count > 0 {
		avgDuration = st.sumDuration / float64(st.count)
	}

	return &domain.CustomerRiskProfile{
		AccountID:       accountID,
		AvgAmount:       st.meanAmount,
		StdAmount:       std,
		MaxAmount:       st.maxAmount,
		AvgDuration:     avgDuration,
		UniqueLocations: len(st.locations),
		RiskScore:       riskScore(st.count, st.largeCount, len(st.locations)),
		TxCount:         st.count,
	}
}

// riskScore derives the scalar account risk in [0,1] from the share of
// large transactions and the account's location spread, anchored at the
// 0.5 cold-start baseline.
func riskScore(count, largeCount int64, locations int) float64 {
	if count == 0 {
		return domain.DefaultRiskScore
	}

	largeRatio := float64(largeCount) / float64(count)
	spread := float64(locations-1) * 0.05
	if spread > 0.2 {
		spread = 0.2
	}
	if spread < 0 {
		spread = 0
	}

	risk := 0.3 + 0.5*largeRatio + spread
	return math.Min(1, math.Max(0, risk))
}
