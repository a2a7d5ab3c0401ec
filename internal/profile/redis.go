package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// RedisStore keeps profile aggregates in Redis so they survive process
// restarts (pro tier). Aggregates are stored as one JSON blob per
// account plus a set for unique locations. Kestrel is single-writer per
// process; cross-process write contention is out of scope, matching the
// single-process design.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// storedAggregates is the persisted per-account state.
type storedAggregates struct {
	Count       int64   `json:"count"`
	MeanAmount  float64 `json:"meanAmount"`
	M2Amount    float64 `json:"m2Amount"`
	MaxAmount   float64 `json:"maxAmount"`
	SumDuration float64 `json:"sumDuration"`
	LargeCount  int64   `json:"largeCount"`
}

func profileKey(accountID string) string   { return "kestrel:profile:" + accountID }
func locationsKey(accountID string) string { return "kestrel:profile:" + accountID + ":locations" }

// GetProfile returns a snapshot for the account.
func (s *RedisStore) GetProfile(ctx context.Context, accountID string) (*domain.CustomerRiskProfile, error) {
	if accountID == "" {
		return nil, fmt.Errorf("accountID is required")
	}

	raw, err := s.client.Get(ctx, profileKey(accountID)).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	var agg storedAggregates
	if err := json.Unmarshal(raw, &agg); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}

	locations, err := s.client.SCard(ctx, locationsKey(accountID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read locations: %w", err)
	}

	std := 0.0
	if agg.Count > 1 {
		std = math.Sqrt(agg.M2Amount / float64(agg.Count-1))
	}
	avgDuration := 0.0
	if agg.Count > 0 {
		avgDuration = agg.SumDuration / float64(agg.Count)
	}

	return &domain.CustomerRiskProfile{
		AccountID:       accountID,
		AvgAmount:       agg.MeanAmount,
		StdAmount:       std,
		MaxAmount:       agg.MaxAmount,
		AvgDuration:     avgDuration,
		UniqueLocations: int(locations),
		RiskScore:       riskScore(agg.Count, agg.LargeCount, int(locations)),
		TxCount:         agg.Count,
	}, nil
}

// UpdateProfile folds one transaction into the persisted aggregates.
func (s *RedisStore) UpdateProfile(ctx context.Context, accountID string, summary domain.TransactionSummary) error {
	if accountID == "" {
		return fmt.Errorf("accountID is required")
	}

	var agg storedAggregates
	raw, err := s.client.Get(ctx, profileKey(accountID)).Bytes()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("failed to read profile: %w", err)
	}
	if err == nil {
		if err := json.Unmarshal(raw, &agg); err != nil {
			return fmt.Errorf("failed to decode profile: %w", err)
		}
	}

	agg.Count++
	delta := summary.Amount - agg.MeanAmount
	agg.MeanAmount += delta / float64(agg.Count)
	agg.M2Amount += delta * (summary.Amount - agg.MeanAmount)
	if summary.Amount > agg.MaxAmount {
		agg.MaxAmount = summary.Amount
	}
	agg.SumDuration += summary.Duration
	if summary.Amount > largeAmount {
		agg.LargeCount++
	}

	encoded, err := json.Marshal(&agg)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, profileKey(accountID), encoded, 0)
	if summary.Location != "" {
		pipe.SAdd(ctx, locationsKey(accountID), summary.Location)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	return nil
}

// Ping checks Redis health.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
