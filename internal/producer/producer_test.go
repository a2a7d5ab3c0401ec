package producer

import (
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opensource-finance/kestrel/internal/bus"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/store"
)

func TestGenerate(t *testing.T) {
	p := New(store.NewRing(20), nil, nil, domain.ProducerConfig{})

	for i := 0; i < 100; i++ {
		tx := p.generate()

		if !strings.HasPrefix(tx.ID, "TX") || len(tx.ID) != 8 {
			t.Fatalf("unexpected transaction ID %q", tx.ID)
		}
		if !strings.HasPrefix(tx.AccountID, "AC") || len(tx.AccountID) != 7 {
			t.Fatalf("unexpected account ID %q", tx.AccountID)
		}
		if tx.Amount < 10 || tx.Amount > 5000 {
			t.Fatalf("amount %.2f outside [10, 5000]", tx.Amount)
		}
		if tx.RiskScore < 0 || tx.RiskScore > 1 {
			t.Fatalf("risk score %.2f outside [0, 1]", tx.RiskScore)
		}
		if tx.Type != domain.TypeDebit && tx.Type != domain.TypeCredit {
			t.Fatalf("unexpected type %q", tx.Type)
		}
		switch tx.Location {
		case "New York, NY", "Chicago, IL", "Miami, FL":
		default:
			t.Fatalf("unexpected location %q", tx.Location)
		}
		switch tx.Status {
		case domain.StatusApproved, domain.StatusFlagged, domain.StatusPendingReview:
		default:
			t.Fatalf("unexpected status %q", tx.Status)
		}
	}
}

func TestPreload(t *testing.T) {
	ring := store.NewRing(20)
	p := New(ring, nil, nil, domain.ProducerConfig{
		Preload:     5,
		MinInterval: time.Hour,
		MaxInterval: time.Hour,
	})

	p.Start(context.Background())
	defer p.Stop()

	if ring.Len() != 5 {
		t.Errorf("expected 5 preloaded transactions, got %d", ring.Len())
	}
}

func TestEmitPublishes(t *testing.T) {
	eventBus := bus.NewChannelBus(10)
	defer eventBus.Close()

	var received atomic.Int32
	var lastEvent domain.IngestedEvent
	eventBus.Subscribe(context.Background(), domain.TopicTransactionIngested, func(ctx context.Context, msg *domain.Message) error {
		if err := json.Unmarshal(msg.Payload, &lastEvent); err != nil {
			t.Errorf("bad event payload: %v", err)
		}
		received.Add(1)
		return nil
	})
	time.Sleep(10 * time.Millisecond)

	ring := store.NewRing(20)
	p := New(ring, nil, eventBus, domain.ProducerConfig{})
	p.emit(context.Background())

	deadline := time.After(time.Second)
	for received.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("timeout waiting for ingest event")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if lastEvent.Transaction.ID == "" {
		t.Error("expected transaction in event")
	}
	if lastEvent.Duration <= 0 {
		t.Error("expected positive duration in event")
	}
	if _, err := time.Parse(domain.TimeLayout, lastEvent.PreviousTimestamp); err != nil {
		t.Errorf("previous timestamp not in wire format: %v", err)
	}
	if ring.Len() != 1 {
		t.Errorf("expected 1 ingested transaction, got %d", ring.Len())
	}
}

func TestNextIntervalBounds(t *testing.T) {
	p := New(store.NewRing(20), nil, nil, domain.ProducerConfig{
		MinInterval: 2 * time.Minute,
		MaxInterval: 5 * time.Minute,
	})

	for i := 0; i < 1000; i++ {
		iv := p.nextInterval()
		if iv < 2*time.Minute || iv >= 5*time.Minute {
			t.Fatalf("interval %v outside [2m, 5m)", iv)
		}
	}
}

func TestStopTerminatesLoop(t *testing.T) {
	p := New(store.NewRing(20), nil, nil, domain.ProducerConfig{
		MinInterval: 10 * time.Millisecond,
		MaxInterval: 20 * time.Millisecond,
	})

	p.Start(context.Background())

	done := make(chan struct{})
	go func() {
		p.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}
