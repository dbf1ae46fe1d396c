package app

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/unnode001/basis-arbitrage-bot/internal/alerts"
	"github.com/unnode001/basis-arbitrage-bot/internal/journal"
	"github.com/unnode001/basis-arbitrage-bot/internal/market"
	"github.com/unnode001/basis-arbitrage-bot/internal/metrics"
	"github.com/unnode001/basis-arbitrage-bot/internal/paper"
	"github.com/unnode001/basis-arbitrage-bot/internal/strategy"
	"github.com/unnode001/basis-arbitrage-bot/internal/timescale"
)

const alertTimeout = 10 * time.Second

// Engine owns the decision path. A single mutex serializes every feed
// update with the evaluation and ledger mutation it triggers, so no
// decision can see a half-updated store and at most one open or close
// transition is ever in flight.
type Engine struct {
	log        *zap.Logger
	store      *market.Store
	machine    *strategy.StateMachine
	ledger     *paper.Ledger
	params     strategy.Params
	metrics    *metrics.Metrics
	alerts     *alerts.Telegram
	journal    journal.Journal
	samples    *timescale.Writer
	baseAsset  string
	quoteAsset string
	showQuotes bool

	mu sync.Mutex
}

type EngineOptions struct {
	Store      *market.Store
	Ledger     *paper.Ledger
	Params     strategy.Params
	Metrics    *metrics.Metrics
	Alerts     *alerts.Telegram
	Journal    journal.Journal
	Samples    *timescale.Writer
	BaseAsset  string
	QuoteAsset string
	ShowQuotes bool
}

func NewEngine(log *zap.Logger, opts EngineOptions) *Engine {
	return &Engine{
		log:        log,
		store:      opts.Store,
		machine:    strategy.NewStateMachine(),
		ledger:     opts.Ledger,
		params:     opts.Params,
		metrics:    opts.Metrics,
		alerts:     opts.Alerts,
		journal:    opts.Journal,
		samples:    opts.Samples,
		baseAsset:  opts.BaseAsset,
		quoteAsset: opts.QuoteAsset,
		showQuotes: opts.ShowQuotes,
	}
}

func (e *Engine) State() strategy.State {
	return e.machine.Current()
}

func (e *Engine) OnSpotTicker(ctx context.Context, bid, ask decimal.Decimal) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.store.UpdateSpot(bid, ask) {
		e.metrics.QuotesRejected.Inc()
		return
	}
	e.logQuote("spot", bid, ask)
	e.evaluate(ctx)
}

func (e *Engine) OnFuturesTicker(ctx context.Context, bid, ask decimal.Decimal) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.store.UpdateFutures(bid, ask) {
		e.metrics.QuotesRejected.Inc()
		return
	}
	e.logQuote("futures", bid, ask)
	e.evaluate(ctx)
}

// OnFundingRate only refreshes the store; decisions wait for the next
// ticker update.
func (e *Engine) OnFundingRate(ctx context.Context, ratePct decimal.Decimal) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.store.UpdateFundingRate(ratePct)
}

func (e *Engine) logQuote(venue string, bid, ask decimal.Decimal) {
	if !e.showQuotes {
		return
	}
	e.log.Info("quote",
		zap.String("venue", venue),
		zap.String("bid", bid.String()),
		zap.String("ask", ask.String()),
	)
}

// evaluate runs one decision cycle. Callers hold e.mu.
func (e *Engine) evaluate(ctx context.Context) {
	snap := e.snapshot()
	state := e.machine.Current()
	assessment := strategy.Evaluate(snap, state == strategy.StatePositioned, e.params)
	e.record(state, snap, assessment)
	switch assessment.Decision {
	case strategy.DecisionOpen:
		e.open(ctx, snap, assessment)
	case strategy.DecisionClose:
		e.close(ctx, snap, assessment)
	}
}

func (e *Engine) snapshot() strategy.Snapshot {
	spot, hasSpot := e.store.Spot()
	futures, hasFutures := e.store.Futures()
	funding, hasFunding := e.store.FundingRate()
	return strategy.Snapshot{
		SpotBid:        spot.Bid,
		SpotAsk:        spot.Ask,
		FuturesBid:     futures.Bid,
		FuturesAsk:     futures.Ask,
		FundingRatePct: funding,
		HasSpot:        hasSpot,
		HasFutures:     hasFutures,
		HasFunding:     hasFunding,
	}
}

func (e *Engine) open(ctx context.Context, snap strategy.Snapshot, assessment strategy.Assessment) {
	e.log.Info("arbitrage entry triggered",
		zap.String("basis_pct", assessment.BasisPct.String()),
		zap.String("funding_pct", snap.FundingRatePct.String()),
		zap.String("round_trip_fee_pct", assessment.RoundTripFeePct.String()),
	)
	report, err := e.ledger.Open(time.Now().UTC(), snap.SpotAsk, snap.FuturesBid, assessment.BasisPct)
	if err != nil {
		// The evaluator must never open while positioned; a broken
		// invariant here means corrupt balances, so stop hard.
		e.log.Fatal("ledger invariant violated", zap.Error(err))
		return
	}
	e.metrics.PositionsOpened.Inc()
	e.machine.Apply(strategy.EventOpen)
	e.log.Info("simulated entry fill",
		zap.String("amount", report.Position.Amount.String()),
		zap.String("spot_price", report.Position.EntrySpotPrice.String()),
		zap.String("futures_price", report.Position.EntryFuturesPrice.String()),
		zap.String("spot_fee", report.SpotFee.String()),
		zap.String("futures_fee", report.FuturesFee.String()),
	)
	e.logPortfolio(report.Portfolio)
	e.notify(alerts.FormatOpen(e.baseAsset, report))
}

func (e *Engine) close(ctx context.Context, snap strategy.Snapshot, assessment strategy.Assessment) {
	e.log.Info("arbitrage exit triggered",
		zap.String("basis_pct", assessment.BasisPct.String()),
	)
	now := time.Now().UTC()
	report, err := e.ledger.Close(now, snap.SpotBid, snap.FuturesAsk)
	if err != nil {
		e.log.Fatal("ledger invariant violated", zap.Error(err))
		return
	}
	e.metrics.PositionsClosed.Inc()
	e.machine.Apply(strategy.EventClose)
	e.log.Info("simulated exit fill",
		zap.String("amount", report.Position.Amount.String()),
		zap.String("spot_price", report.ExitSpotPrice.String()),
		zap.String("futures_price", report.ExitFuturesPrice.String()),
	)
	e.log.Info("pnl report",
		zap.String("spot_pnl", report.SpotPnL.String()),
		zap.String("futures_pnl", report.FuturesPnL.String()),
		zap.String("total_fees", report.TotalFees.String()),
		zap.String("net_pnl", report.NetPnL.String()),
		zap.Duration("held_for", report.HeldFor),
	)
	e.logPortfolio(report.Portfolio)
	if e.journal != nil {
		trade := journal.Trade{
			OpenedAt:          report.Position.OpenedAt,
			ClosedAt:          now,
			BaseAsset:         e.baseAsset,
			QuoteAsset:        e.quoteAsset,
			Amount:            report.Position.Amount,
			EntrySpotPrice:    report.Position.EntrySpotPrice,
			EntryFuturesPrice: report.Position.EntryFuturesPrice,
			ExitSpotPrice:     report.ExitSpotPrice,
			ExitFuturesPrice:  report.ExitFuturesPrice,
			EntryBasisPct:     report.Position.EntryBasisPct,
			TotalFees:         report.TotalFees,
			NetPnL:            report.NetPnL,
		}
		if err := e.journal.Record(ctx, trade); err != nil {
			e.log.Warn("trade journal write failed", zap.Error(err))
		}
	}
	e.notify(alerts.FormatClose(e.baseAsset, report))
}

func (e *Engine) logPortfolio(portfolio paper.Portfolio) {
	fields := make([]zap.Field, 0, len(portfolio))
	for asset, balance := range portfolio {
		fields = append(fields, zap.String(asset, balance.String()))
	}
	e.log.Info("portfolio", fields...)
}

func (e *Engine) record(state strategy.State, snap strategy.Snapshot, assessment strategy.Assessment) {
	if e.samples == nil {
		return
	}
	portfolio := e.ledger.Portfolio()
	e.samples.Enqueue(timescale.Sample{
		Time:         time.Now().UTC(),
		State:        string(state),
		Decision:     string(assessment.Decision),
		SpotBid:      snap.SpotBid,
		SpotAsk:      snap.SpotAsk,
		FuturesBid:   snap.FuturesBid,
		FuturesAsk:   snap.FuturesAsk,
		BasisPct:     assessment.BasisPct,
		FundingPct:   snap.FundingRatePct,
		QuoteBalance: portfolio.Balance(e.quoteAsset),
		BaseBalance:  portfolio.Balance(e.baseAsset),
	})
}

// notify sends off the decision path so a slow alert endpoint never blocks
// feed processing.
func (e *Engine) notify(message string) {
	if e.alerts == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), alertTimeout)
		defer cancel()
		if err := e.alerts.Send(ctx, message); err != nil {
			e.log.Warn("alert send failed", zap.Error(err))
		}
	}()
}
