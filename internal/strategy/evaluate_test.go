package strategy

import (
	"testing"

	"github.com/shopspring/decimal"
)

func testParams() Params {
	return Params{
		OpenThresholdPct:  decimal.NewFromFloat(0.5),
		CloseThresholdPct: decimal.NewFromFloat(0.2),
		MinFundingPct:     decimal.NewFromFloat(0.01),
		SpotTakerFee:      decimal.NewFromFloat(0.001),
		FuturesTakerFee:   decimal.NewFromFloat(0.001),
	}
}

func knownSnapshot(spotAsk, futuresBid, fundingPct string) Snapshot {
	return Snapshot{
		SpotBid:        decimal.RequireFromString(spotAsk),
		SpotAsk:        decimal.RequireFromString(spotAsk),
		FuturesBid:     decimal.RequireFromString(futuresBid),
		FuturesAsk:     decimal.RequireFromString(futuresBid),
		FundingRatePct: decimal.RequireFromString(fundingPct),
		HasSpot:        true,
		HasFutures:     true,
		HasFunding:     true,
	}
}

func TestBasisPercent(t *testing.T) {
	got := BasisPercent(decimal.NewFromInt(100), decimal.NewFromInt(101))
	if !got.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("expected basis 1%%, got %s", got)
	}
}

func TestEvaluateOpensOnWideBasis(t *testing.T) {
	snap := knownSnapshot("100", "101", "0.05")
	out := Evaluate(snap, false, testParams())
	if out.Decision != DecisionOpen {
		t.Fatalf("expected %s, got %s", DecisionOpen, out.Decision)
	}
	if !out.BasisPct.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("expected basis 1%%, got %s", out.BasisPct)
	}
}

func TestEvaluateOpenThresholdIsStrict(t *testing.T) {
	snap := knownSnapshot("100", "100.5", "0.05")
	out := Evaluate(snap, false, testParams())
	if out.Decision != DecisionNone {
		t.Fatalf("basis equal to threshold must not open, got %s", out.Decision)
	}
}

func TestEvaluateFundingThresholdIsStrict(t *testing.T) {
	snap := knownSnapshot("100", "101", "0.01")
	out := Evaluate(snap, false, testParams())
	if out.Decision != DecisionNone {
		t.Fatalf("funding equal to threshold must not open, got %s", out.Decision)
	}
}

func TestEvaluateRequiresFunding(t *testing.T) {
	snap := knownSnapshot("100", "101", "0")
	out := Evaluate(snap, false, testParams())
	if out.Decision != DecisionNone {
		t.Fatalf("expected no action with zero funding, got %s", out.Decision)
	}
}

func TestEvaluateUnknownFuturesShortCircuits(t *testing.T) {
	snap := knownSnapshot("100", "101", "0.05")
	snap.HasFutures = false
	out := Evaluate(snap, false, testParams())
	if out.Decision != DecisionNone {
		t.Fatalf("expected no action with unknown futures, got %s", out.Decision)
	}
}

func TestEvaluateUnknownSpotShortCircuits(t *testing.T) {
	snap := knownSnapshot("100", "101", "0.05")
	snap.HasSpot = false
	if out := Evaluate(snap, false, testParams()); out.Decision != DecisionNone {
		t.Fatalf("expected no action with unknown spot, got %s", out.Decision)
	}
}

func TestEvaluateUnknownFundingShortCircuits(t *testing.T) {
	snap := knownSnapshot("100", "101", "0.05")
	snap.HasFunding = false
	if out := Evaluate(snap, true, testParams()); out.Decision != DecisionNone {
		t.Fatalf("expected no action with unknown funding, got %s", out.Decision)
	}
}

func TestEvaluateIsIdempotent(t *testing.T) {
	snap := knownSnapshot("100", "101", "0.05")
	p := testParams()
	first := Evaluate(snap, false, p)
	for i := 0; i < 5; i++ {
		if got := Evaluate(snap, false, p); got.Decision != first.Decision {
			t.Fatalf("decision changed on repeat: %s then %s", first.Decision, got.Decision)
		}
	}
}

func TestEvaluateClosesBelowThreshold(t *testing.T) {
	snap := knownSnapshot("100", "100.1", "0.05")
	out := Evaluate(snap, true, testParams())
	if out.Decision != DecisionClose {
		t.Fatalf("expected %s, got %s", DecisionClose, out.Decision)
	}
}

func TestEvaluateCloseThresholdIsStrict(t *testing.T) {
	snap := knownSnapshot("100", "100.2", "0.05")
	out := Evaluate(snap, true, testParams())
	if out.Decision != DecisionNone {
		t.Fatalf("basis equal to close threshold must not close, got %s", out.Decision)
	}
}

func TestEvaluatePositionedNeverOpens(t *testing.T) {
	snap := knownSnapshot("100", "101", "0.05")
	out := Evaluate(snap, true, testParams())
	if out.Decision != DecisionNone {
		t.Fatalf("wide basis while positioned must hold, got %s", out.Decision)
	}
}

func TestEvaluateFeeGate(t *testing.T) {
	p := testParams()
	// Round trip costs 1.6% while the basis is only 0.6% wide: clears the
	// 0.5% open threshold but not the fees.
	p.SpotTakerFee = decimal.NewFromFloat(0.004)
	p.FuturesTakerFee = decimal.NewFromFloat(0.004)
	snap := knownSnapshot("100", "100.6", "0.05")

	out := Evaluate(snap, false, p)
	if out.Decision != DecisionOpen {
		t.Fatalf("permissive mode should ignore fees, got %s", out.Decision)
	}
	if !out.RoundTripFeePct.Equal(decimal.NewFromFloat(1.6)) {
		t.Fatalf("expected round-trip fee 1.6%%, got %s", out.RoundTripFeePct)
	}

	p.FeeGate = true
	out = Evaluate(snap, false, p)
	if out.Decision != DecisionNone {
		t.Fatalf("fee gate should reject basis below round-trip cost, got %s", out.Decision)
	}
}
