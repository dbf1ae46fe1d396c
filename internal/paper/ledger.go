// Package paper holds the simulated position and portfolio. The ledger is
// the only component allowed to mutate balances; everything it reports is a
// copy the caller may keep.
package paper

import (
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrAlreadyPositioned reports an open request while a position exists.
	// The evaluator must never produce that transition; hitting it means a
	// programming defect, not a runtime condition.
	ErrAlreadyPositioned = errors.New("open requested while positioned")
	// ErrNotPositioned reports a close request with no open position.
	ErrNotPositioned = errors.New("close requested while flat")
)

// Position is an immutable snapshot of one simulated long-spot/short-futures
// pair. It exists exactly while the ledger is positioned.
type Position struct {
	OpenedAt          time.Time
	Amount            decimal.Decimal
	EntrySpotPrice    decimal.Decimal
	EntryFuturesPrice decimal.Decimal
	EntryBasisPct     decimal.Decimal
}

// Portfolio maps asset symbols to balances.
type Portfolio map[string]decimal.Decimal

func (p Portfolio) Balance(asset string) decimal.Decimal {
	return p[asset]
}

func (p Portfolio) Clone() Portfolio {
	out := make(Portfolio, len(p))
	for asset, balance := range p {
		out[asset] = balance
	}
	return out
}

// OpenReport describes a simulated entry fill.
type OpenReport struct {
	Position   Position
	Notional   decimal.Decimal
	SpotFee    decimal.Decimal
	FuturesFee decimal.Decimal
	Portfolio  Portfolio
}

// CloseReport describes a simulated exit fill and the realized result.
type CloseReport struct {
	Position         Position
	ExitSpotPrice    decimal.Decimal
	ExitFuturesPrice decimal.Decimal
	SpotPnL          decimal.Decimal
	FuturesPnL       decimal.Decimal
	TotalFees        decimal.Decimal
	NetPnL           decimal.Decimal
	HeldFor          time.Duration
	Portfolio        Portfolio
}

type Ledger struct {
	quoteAsset      string
	baseAsset       string
	notional        decimal.Decimal
	spotTakerFee    decimal.Decimal
	futuresTakerFee decimal.Decimal

	mu       sync.Mutex
	balances Portfolio
	position *Position
}

func NewLedger(quoteAsset, baseAsset string, notional, spotTakerFee, futuresTakerFee decimal.Decimal, initial Portfolio) *Ledger {
	balances := make(Portfolio, len(initial))
	for asset, balance := range initial {
		balances[asset] = balance
	}
	return &Ledger{
		quoteAsset:      quoteAsset,
		baseAsset:       baseAsset,
		notional:        notional,
		spotTakerFee:    spotTakerFee,
		futuresTakerFee: futuresTakerFee,
		balances:        balances,
	}
}

// Position returns the open position, if any.
func (l *Ledger) Position() (Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.position == nil {
		return Position{}, false
	}
	return *l.position, true
}

func (l *Ledger) Positioned() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.position != nil
}

// Portfolio returns a copy of the current balances.
func (l *Ledger) Portfolio() Portfolio {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances.Clone()
}

// Open simulates buying the configured notional on spot at spotAsk and
// shorting the same amount on futures at futuresBid, debiting notional plus
// both taker fees from the quote balance.
func (l *Ledger) Open(now time.Time, spotAsk, futuresBid, basisPct decimal.Decimal) (OpenReport, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.position != nil {
		return OpenReport{}, ErrAlreadyPositioned
	}

	amount := l.notional.Div(spotAsk)
	spotFee := l.notional.Mul(l.spotTakerFee)
	futuresFee := amount.Mul(futuresBid).Mul(l.futuresTakerFee)

	quote := l.balances[l.quoteAsset]
	l.balances[l.quoteAsset] = quote.Sub(l.notional.Add(spotFee).Add(futuresFee))
	l.balances[l.baseAsset] = l.balances[l.baseAsset].Add(amount)

	position := Position{
		OpenedAt:          now,
		Amount:            amount,
		EntrySpotPrice:    spotAsk,
		EntryFuturesPrice: futuresBid,
		EntryBasisPct:     basisPct,
	}
	l.position = &position
	return OpenReport{
		Position:   position,
		Notional:   l.notional,
		SpotFee:    spotFee,
		FuturesFee: futuresFee,
		Portfolio:  l.balances.Clone(),
	}, nil
}

// Close simulates selling the spot leg at spotBid and buying back the
// futures leg at futuresAsk. Entry fees are recomputed from the recorded
// entry prices at the current fee rates, so a mid-trade fee change shifts
// the reported net PnL.
func (l *Ledger) Close(now time.Time, spotBid, futuresAsk decimal.Decimal) (CloseReport, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.position == nil {
		return CloseReport{}, ErrNotPositioned
	}
	position := *l.position

	spotSellValue := position.Amount.Mul(spotBid)
	exitSpotFee := spotSellValue.Mul(l.spotTakerFee)
	exitFuturesFee := position.Amount.Mul(futuresAsk).Mul(l.futuresTakerFee)
	entrySpotFee := position.Amount.Mul(position.EntrySpotPrice).Mul(l.spotTakerFee)
	entryFuturesFee := position.Amount.Mul(position.EntryFuturesPrice).Mul(l.futuresTakerFee)

	spotPnL := spotBid.Sub(position.EntrySpotPrice).Mul(position.Amount)
	futuresPnL := position.EntryFuturesPrice.Sub(futuresAsk).Mul(position.Amount)
	totalFees := exitSpotFee.Add(exitFuturesFee).Add(entrySpotFee).Add(entryFuturesFee)
	netPnL := spotPnL.Add(futuresPnL).Sub(totalFees)

	quote := l.balances[l.quoteAsset]
	l.balances[l.quoteAsset] = quote.Add(spotSellValue.Sub(exitSpotFee).Sub(exitFuturesFee))
	l.balances[l.baseAsset] = l.balances[l.baseAsset].Sub(position.Amount)
	l.position = nil

	return CloseReport{
		Position:         position,
		ExitSpotPrice:    spotBid,
		ExitFuturesPrice: futuresAsk,
		SpotPnL:          spotPnL,
		FuturesPnL:       futuresPnL,
		TotalFees:        totalFees,
		NetPnL:           netPnL,
		HeldFor:          now.Sub(position.OpenedAt),
		Portfolio:        l.balances.Clone(),
	}, nil
}
