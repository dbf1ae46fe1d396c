package app

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/unnode001/basis-arbitrage-bot/internal/market"
	"github.com/unnode001/basis-arbitrage-bot/internal/metrics"
	"github.com/unnode001/basis-arbitrage-bot/internal/paper"
	"github.com/unnode001/basis-arbitrage-bot/internal/strategy"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestEngine() (*Engine, *paper.Ledger) {
	log := zap.NewNop()
	ledger := paper.NewLedger("USDT", "BTC",
		dec("1000"), dec("0.001"), dec("0.001"),
		paper.Portfolio{"USDT": dec("10000")},
	)
	engine := NewEngine(log, EngineOptions{
		Store:  market.NewStore(log),
		Ledger: ledger,
		Params: strategy.Params{
			OpenThresholdPct:  dec("0.5"),
			CloseThresholdPct: dec("0.2"),
			MinFundingPct:     dec("0.01"),
			SpotTakerFee:      dec("0.001"),
			FuturesTakerFee:   dec("0.001"),
		},
		Metrics:    metrics.NewNoop(),
		BaseAsset:  "BTC",
		QuoteAsset: "USDT",
	})
	return engine, ledger
}

func TestEngineHoldsUntilAllComponentsKnown(t *testing.T) {
	engine, ledger := newTestEngine()
	ctx := context.Background()
	engine.OnSpotTicker(ctx, dec("99.9"), dec("100"))
	engine.OnFuturesTicker(ctx, dec("101"), dec("101.1"))
	if ledger.Positioned() {
		t.Fatalf("must not open before funding is known")
	}
	engine.OnFundingRate(ctx, dec("0.05"))
	// Funding refresh alone never triggers evaluation.
	if ledger.Positioned() {
		t.Fatalf("funding update must not trigger a decision")
	}
	engine.OnSpotTicker(ctx, dec("99.9"), dec("100"))
	if !ledger.Positioned() {
		t.Fatalf("expected open once basis and funding clear thresholds")
	}
	if engine.State() != strategy.StatePositioned {
		t.Fatalf("expected %s, got %s", strategy.StatePositioned, engine.State())
	}
}

func TestEngineOpensOncePerOpportunity(t *testing.T) {
	engine, ledger := newTestEngine()
	ctx := context.Background()
	engine.OnFundingRate(ctx, dec("0.05"))
	engine.OnFuturesTicker(ctx, dec("101"), dec("101.1"))
	engine.OnSpotTicker(ctx, dec("99.9"), dec("100"))
	if !ledger.Positioned() {
		t.Fatalf("expected open")
	}
	position, _ := ledger.Position()
	if !position.Amount.Equal(dec("10")) {
		t.Fatalf("expected amount 10, got %s", position.Amount)
	}
	// The same wide basis must not open a second position.
	engine.OnSpotTicker(ctx, dec("99.9"), dec("100"))
	engine.OnFuturesTicker(ctx, dec("101"), dec("101.1"))
	after, _ := ledger.Position()
	if !after.OpenedAt.Equal(position.OpenedAt) {
		t.Fatalf("position was replaced while positioned")
	}
	if got := ledger.Portfolio().Balance("BTC"); !got.Equal(dec("10")) {
		t.Fatalf("expected base balance 10, got %s", got)
	}
}

func TestEngineClosesWhenBasisCollapses(t *testing.T) {
	engine, ledger := newTestEngine()
	ctx := context.Background()
	engine.OnFundingRate(ctx, dec("0.05"))
	engine.OnFuturesTicker(ctx, dec("101"), dec("101.1"))
	engine.OnSpotTicker(ctx, dec("99.9"), dec("100"))
	if !ledger.Positioned() {
		t.Fatalf("expected open")
	}
	// Basis down to 0.05%, below the 0.2% close threshold.
	engine.OnFuturesTicker(ctx, dec("100.05"), dec("100.15"))
	if ledger.Positioned() {
		t.Fatalf("expected close after basis collapse")
	}
	if engine.State() != strategy.StateFlat {
		t.Fatalf("expected %s, got %s", strategy.StateFlat, engine.State())
	}
	if got := ledger.Portfolio().Balance("BTC"); !got.IsZero() {
		t.Fatalf("expected base balance 0 after close, got %s", got)
	}
}

func TestEngineRejectedQuoteCausesNoDecision(t *testing.T) {
	engine, ledger := newTestEngine()
	ctx := context.Background()
	engine.OnFundingRate(ctx, dec("0.05"))
	engine.OnFuturesTicker(ctx, dec("101"), dec("101.1"))
	engine.OnSpotTicker(ctx, dec("0"), dec("100"))
	if ledger.Positioned() {
		t.Fatalf("invalid quote must not produce a decision")
	}
}
