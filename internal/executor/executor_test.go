package executor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alanyoungcy/absorbot/internal/domain"
)

type fakePlacer struct {
	mu      sync.Mutex
	calls   []domain.TradeSignal
	results []domain.OrderResult
	err     error
}

func (f *fakePlacer) PlaceOrder(ctx context.Context, sig domain.TradeSignal) (domain.OrderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, sig)
	if f.err != nil {
		return domain.OrderResult{}, f.err
	}
	if len(f.results) == 0 {
		return domain.OrderResult{Success: true, OrderID: "ord-1", Status: domain.OrderStatusMatched}, nil
	}
	res := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	return res, nil
}

func (f *fakePlacer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeRisk struct{ err error }

func (f *fakeRisk) PreTradeCheck(ctx context.Context, sig domain.TradeSignal, wallet string) error {
	return f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func validSignal(id string) domain.TradeSignal {
	now := time.Now().UTC()
	return domain.TradeSignal{
		ID:         id,
		Source:     "absorption",
		TokenID:    "tok-1",
		Side:       domain.OrderSideSell,
		Type:       domain.OrderTypeFOK,
		PriceTicks: domain.ToTicks(0.55),
		SizeUnits:  domain.ToTicks(3),
		CreatedAt:  now,
		ExpiresAt:  now.Add(30 * time.Second),
	}
}

func TestExecutorPlacesValidSignal(t *testing.T) {
	placer := &fakePlacer{}
	e := NewExecutor(nil, placer, &fakeRisk{}, "0xwallet", discardLogger())

	e.process(context.Background(), validSignal("sig-1"))

	if placer.callCount() != 1 {
		t.Fatalf("place calls = %d, want 1", placer.callCount())
	}
	if placer.calls[0].ID != "sig-1" {
		t.Errorf("placed signal ID = %q", placer.calls[0].ID)
	}
}

func TestExecutorDeduplicates(t *testing.T) {
	placer := &fakePlacer{}
	e := NewExecutor(nil, placer, &fakeRisk{}, "0xwallet", discardLogger())

	sig := validSignal("sig-dup")
	e.process(context.Background(), sig)
	e.process(context.Background(), sig)

	if placer.callCount() != 1 {
		t.Fatalf("place calls = %d, want 1 after dedup", placer.callCount())
	}
}

func TestExecutorSkipsExpiredSignal(t *testing.T) {
	placer := &fakePlacer{}
	e := NewExecutor(nil, placer, &fakeRisk{}, "0xwallet", discardLogger())

	sig := validSignal("sig-exp")
	sig.ExpiresAt = time.Now().UTC().Add(-time.Second)
	e.process(context.Background(), sig)

	if placer.callCount() != 0 {
		t.Fatalf("expired signal was placed %d times", placer.callCount())
	}
}

func TestExecutorSkipsOnRiskRejection(t *testing.T) {
	placer := &fakePlacer{}
	risk := &fakeRisk{err: errors.New("position limit reached")}
	e := NewExecutor(nil, placer, risk, "0xwallet", discardLogger())

	e.process(context.Background(), validSignal("sig-risk"))

	if placer.callCount() != 0 {
		t.Fatalf("risk-rejected signal was placed %d times", placer.callCount())
	}
}

func TestExecutorRetriesOnceWhenAsked(t *testing.T) {
	placer := &fakePlacer{results: []domain.OrderResult{
		{Success: false, ShouldRetry: true, Message: "transient"},
		{Success: true, OrderID: "ord-2", Status: domain.OrderStatusMatched},
	}}
	e := NewExecutor(nil, placer, &fakeRisk{}, "0xwallet", discardLogger())

	e.process(context.Background(), validSignal("sig-retry"))

	if placer.callCount() != 2 {
		t.Fatalf("place calls = %d, want 2 (initial + one retry)", placer.callCount())
	}
}

func TestExecutorNoRetryOnHardRejection(t *testing.T) {
	placer := &fakePlacer{results: []domain.OrderResult{
		{Success: false, ShouldRetry: false, Message: "insufficient balance"},
	}}
	e := NewExecutor(nil, placer, &fakeRisk{}, "0xwallet", discardLogger())

	e.process(context.Background(), validSignal("sig-hard"))

	if placer.callCount() != 1 {
		t.Fatalf("place calls = %d, want 1", placer.callCount())
	}
}

func TestExecutorRunDrainsOnCancel(t *testing.T) {
	ch := make(chan domain.TradeSignal, 2)
	placer := &fakePlacer{}
	e := NewExecutor(ch, placer, &fakeRisk{}, "0xwallet", discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ch <- validSignal("sig-a")
	ch <- validSignal("sig-b")

	if err := e.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run returned %v, want context.Canceled", err)
	}
	if placer.callCount() != 2 {
		t.Fatalf("drained %d signals, want 2", placer.callCount())
	}
}

func TestDedupWindow(t *testing.T) {
	d := NewDedup(50 * time.Millisecond)

	if d.IsDuplicate("a") {
		t.Fatal("first sighting flagged as duplicate")
	}
	if !d.IsDuplicate("a") {
		t.Fatal("second sighting not flagged")
	}

	time.Sleep(60 * time.Millisecond)
	if d.IsDuplicate("a") {
		t.Fatal("sighting after TTL flagged as duplicate")
	}

	d.Cleanup()
	if !d.IsDuplicate("a") {
		t.Fatal("recent entry dropped by cleanup")
	}
}
