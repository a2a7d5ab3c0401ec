// Package worker provides async scoring of ingested transactions.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/opensource-finance/kestrel/internal/analyzer"
	"github.com/opensource-finance/kestrel/internal/domain"
)

// Worker consumes ingested-transaction events from the EventBus and
// runs each through the scoring pipeline. It closes the loop for
// producer-generated traffic that never hits the analyze endpoint.
type Worker struct {
	bus      domain.EventBus
	analyzer *analyzer.Analyzer

	subscription domain.Subscription
	wg           sync.WaitGroup
	ctx          context.Context
	cancel       context.CancelFunc
}

// NewWorker creates an async scoring worker.
func NewWorker(bus domain.EventBus, a *analyzer.Analyzer) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:      bus,
		analyzer: a,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start subscribes to the ingestion topic.
func (w *Worker) Start() error {
	sub, err := w.bus.Subscribe(w.ctx, domain.TopicTransactionIngested, w.handleMessage)
	if err != nil {
		return err
	}
	w.subscription = sub

	slog.Info("scoring worker started", "topic", domain.TopicTransactionIngested)
	return nil
}

// Stop unsubscribes and waits for in-flight work.
func (w *Worker) Stop() {
	w.cancel()
	if w.subscription != nil {
		_ = w.subscription.Unsubscribe()
	}
	w.wg.Wait()
	slog.Info("scoring worker stopped")
}

func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	w.wg.Add(1)
	defer w.wg.Done()

	var ev domain.IngestedEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		slog.Error("failed to unmarshal ingested event",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	req := requestFromEvent(&ev)

	res, err := w.analyzer.Analyze(ctx, req)
	if err != nil {
		slog.Error("async scoring failed",
			"transaction_id", ev.Transaction.ID,
			"error", err,
		)
		return err
	}

	slog.Info("transaction scored",
		"transaction_id", ev.Transaction.ID,
		"evaluation_id", res.ID,
		"status", res.Status,
		"composite", res.Composite,
	)
	return nil
}

// requestFromEvent maps an ingestion event onto a scoring request.
func requestFromEvent(ev *domain.IngestedEvent) *domain.AnalyzeRequest {
	tx := ev.Transaction
	amount := tx.Amount
	duration := ev.Duration
	attempts := ev.LoginAttempts
	balance := ev.AccountBalance

	return &domain.AnalyzeRequest{
		TransactionID:           tx.ID,
		AccountID:               tx.AccountID,
		TransactionAmount:       &amount,
		TransactionDuration:     &duration,
		LoginAttempts:           &attempts,
		AccountBalance:          &balance,
		TransactionDate:         tx.WireDate(),
		PreviousTransactionDate: ev.PreviousTimestamp,
		TransactionType:         tx.Type,
		Location:                tx.Location,
		DeviceID:                tx.DeviceID,
		MerchantID:              tx.MerchantID,
		Channel:                 tx.Channel,
		CustomerOccupation:      tx.Occupation,
	}
}
