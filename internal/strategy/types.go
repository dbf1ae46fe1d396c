package strategy

import "github.com/shopspring/decimal"

type Decision string

type State string

type Event string

const (
	DecisionNone  Decision = "NO_ACTION"
	DecisionOpen  Decision = "OPEN"
	DecisionClose Decision = "CLOSE"
)

const (
	StateFlat       State = "FLAT"
	StatePositioned State = "POSITIONED"
)

const (
	EventOpen  Event = "OPEN"
	EventClose Event = "CLOSE"
)

// Snapshot is the market view a decision is computed from. The Has flags
// distinguish "never updated" from any numeric value.
type Snapshot struct {
	SpotBid        decimal.Decimal
	SpotAsk        decimal.Decimal
	FuturesBid     decimal.Decimal
	FuturesAsk     decimal.Decimal
	FundingRatePct decimal.Decimal
	HasSpot        bool
	HasFutures     bool
	HasFunding     bool
}

type Params struct {
	OpenThresholdPct  decimal.Decimal
	CloseThresholdPct decimal.Decimal
	MinFundingPct     decimal.Decimal
	SpotTakerFee      decimal.Decimal
	FuturesTakerFee   decimal.Decimal
	// FeeGate additionally requires the basis to exceed the round-trip
	// fee percentage before opening.
	FeeGate bool
}

// Assessment carries the decision plus the numbers it was derived from,
// for logging and recording.
type Assessment struct {
	Decision        Decision
	BasisPct        decimal.Decimal
	RoundTripFeePct decimal.Decimal
}
