package strategy

import "github.com/shopspring/decimal"

var (
	hundred = decimal.NewFromInt(100)
	two     = decimal.NewFromInt(2)
)

// BasisPercent is (futuresBid - spotAsk) / spotAsk * 100.
func BasisPercent(spotAsk, futuresBid decimal.Decimal) decimal.Decimal {
	if spotAsk.IsZero() {
		return decimal.Zero
	}
	return futuresBid.Sub(spotAsk).Div(spotAsk).Mul(hundred)
}

// RoundTripFeePercent is the combined taker fee across all four legs of a
// round trip, as a percentage of notional.
func RoundTripFeePercent(p Params) decimal.Decimal {
	return p.SpotTakerFee.Add(p.FuturesTakerFee).Mul(two).Mul(hundred)
}

// Evaluate decides whether to open, close, or do nothing. It is pure: no
// store, position, or portfolio is touched. Any unknown input short-circuits
// to no action. Thresholds compare strictly; equality never triggers.
//
// The round-trip fee percentage is always computed for observability, but it
// gates entry only when FeeGate is set. Without the gate a thin basis can be
// opened at a guaranteed fee loss, matching the permissive behavior this
// strategy started from.
func Evaluate(snap Snapshot, positioned bool, p Params) Assessment {
	out := Assessment{Decision: DecisionNone, RoundTripFeePct: RoundTripFeePercent(p)}
	if !snap.HasSpot || !snap.HasFutures || !snap.HasFunding {
		return out
	}
	if !snap.SpotAsk.IsPositive() {
		return out
	}
	out.BasisPct = BasisPercent(snap.SpotAsk, snap.FuturesBid)

	if positioned {
		if out.BasisPct.LessThan(p.CloseThresholdPct) {
			out.Decision = DecisionClose
		}
		return out
	}
	if !out.BasisPct.GreaterThan(p.OpenThresholdPct) {
		return out
	}
	if !snap.FundingRatePct.GreaterThan(p.MinFundingPct) {
		return out
	}
	if p.FeeGate && !out.BasisPct.GreaterThan(out.RoundTripFeePct) {
		return out
	}
	out.Decision = DecisionOpen
	return out
}
