// Package producer feeds the recent-transaction window with synthetic
// activity so the dashboard endpoints have data before real traffic
// arrives.
package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/metrics"
	"github.com/opensource-finance/kestrel/internal/store"
)

var (
	locations = []string{"New York, NY", "Chicago, IL", "Miami, FL"}
	types     = []string{domain.TypeDebit, domain.TypeCredit}
	statuses  = []string{domain.StatusApproved, domain.StatusFlagged, domain.StatusPendingReview}
)

// Producer generates synthetic transactions on a randomized interval.
type Producer struct {
	ring *store.Ring
	repo domain.Repository
	bus  domain.EventBus
	cfg  domain.ProducerConfig
	rng  *rand.Rand

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a producer. Repo and bus are optional.
func New(ring *store.Ring, repo domain.Repository, bus domain.EventBus, cfg domain.ProducerConfig) *Producer {
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 2 * time.Minute
	}
	if cfg.MaxInterval < cfg.MinInterval {
		cfg.MaxInterval = cfg.MinInterval
	}
	return &Producer{
		ring: ring,
		repo: repo,
		bus:  bus,
		cfg:  cfg,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start preloads the window and launches the generator loop.
func (p *Producer) Start(ctx context.Context) {
	for i := 0; i < p.cfg.Preload; i++ {
		p.emit(ctx)
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go p.loop(runCtx)

	slog.Info("transaction producer started",
		"preload", p.cfg.Preload,
		"min_interval", p.cfg.MinInterval,
		"max_interval", p.cfg.MaxInterval,
	)
}

// Stop terminates the generator loop and waits for it to exit.
func (p *Producer) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

func (p *Producer) loop(ctx context.Context) {
	defer p.wg.Done()

	for {
		timer := time.NewTimer(p.nextInterval())
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			p.emit(ctx)
		}
	}
}

func (p *Producer) nextInterval() time.Duration {
	span := p.cfg.MaxInterval - p.cfg.MinInterval
	if span <= 0 {
		return p.cfg.MinInterval
	}
	return p.cfg.MinInterval + time.Duration(p.rng.Int63n(int64(span)))
}

// emit generates one transaction, ingests it into the window and
// fans it out. Repository and bus failures are logged, never fatal.
func (p *Producer) emit(ctx context.Context) {
	tx := p.generate()
	p.ring.Ingest(tx)
	metrics.RingSize.Set(float64(p.ring.Len()))

	if p.repo != nil {
		if err := p.repo.SaveTransaction(ctx, tx); err != nil {
			slog.Warn("transaction save failed",
				"transaction_id", tx.ID,
				"error", err,
			)
		}
	}

	if p.bus != nil {
		payload, err := json.Marshal(domain.IngestedEvent{
			Transaction:       *tx,
			Duration:          float64(30 + p.rng.Intn(270)),
			LoginAttempts:     float64(1 + p.rng.Intn(3)),
			AccountBalance:    round2(p.rng.Float64() * 20000),
			PreviousTimestamp: tx.Timestamp.Add(-time.Duration(1+p.rng.Intn(13)) * 24 * time.Hour).Format(domain.TimeLayout),
		})
		if err == nil {
			if err := p.bus.Publish(ctx, domain.TopicTransactionIngested, payload); err != nil {
				slog.Warn("ingest publish failed",
					"transaction_id", tx.ID,
					"error", err,
				)
			}
		}
	}
}

func (p *Producer) generate() *domain.Transaction {
	return &domain.Transaction{
		ID:        fmt.Sprintf("TX%06d", 100000+p.rng.Intn(900000)),
		AccountID: fmt.Sprintf("AC%05d", 10000+p.rng.Intn(90000)),
		Amount:    round2(10 + p.rng.Float64()*4990),
		Timestamp: time.Now().UTC(),
		Type:      types[p.rng.Intn(len(types))],
		Location:  locations[p.rng.Intn(len(locations))],
		RiskScore: round2(p.rng.Float64()),
		Status:    statuses[p.rng.Intn(len(statuses))],
	}
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
