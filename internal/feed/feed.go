// Package feed delivers venue updates into the decision core. Two drivers
// exist, polling and streaming; both speak to the same Sink so the core is
// never duplicated per fetch strategy.
package feed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/unnode001/basis-arbitrage-bot/internal/feed/rest"
	"github.com/unnode001/basis-arbitrage-bot/internal/metrics"
)

// Sink receives feed updates. The engine implements this; updates are
// serialized on its side.
type Sink interface {
	OnSpotTicker(ctx context.Context, bid, ask decimal.Decimal)
	OnFuturesTicker(ctx context.Context, bid, ask decimal.Decimal)
	OnFundingRate(ctx context.Context, ratePct decimal.Decimal)
}

var hundred = decimal.NewFromInt(100)

// bookTickerEvent is the <symbol>@bookTicker stream payload.
type bookTickerEvent struct {
	Symbol string `json:"s"`
	Bid    string `json:"b"`
	Ask    string `json:"a"`
}

func parseBookTicker(msg json.RawMessage) (bid, ask decimal.Decimal, ok bool) {
	var event bookTickerEvent
	if err := json.Unmarshal(msg, &event); err != nil {
		return decimal.Zero, decimal.Zero, false
	}
	if event.Bid == "" || event.Ask == "" {
		return decimal.Zero, decimal.Zero, false
	}
	bid, err := decimal.NewFromString(event.Bid)
	if err != nil {
		return decimal.Zero, decimal.Zero, false
	}
	ask, err = decimal.NewFromString(event.Ask)
	if err != nil {
		return decimal.Zero, decimal.Zero, false
	}
	return bid, ask, true
}

// fundingLoop refreshes the funding rate immediately and then on every
// interval tick. Fetch errors are logged and retried on the next tick; the
// store simply keeps its last known value in between.
func fundingLoop(ctx context.Context, client *rest.Client, symbol string, interval time.Duration, sink Sink, m *metrics.Metrics, log *zap.Logger) {
	refresh := func() {
		rate, next, err := client.FundingRate(ctx, symbol)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.FeedErrors.Inc()
			log.Warn("funding rate fetch failed", zap.Error(err))
			return
		}
		ratePct := rate.Mul(hundred)
		log.Debug("funding rate refreshed",
			zap.String("symbol", symbol),
			zap.String("rate_pct", ratePct.String()),
			zap.Time("next_funding", next),
		)
		sink.OnFundingRate(ctx, ratePct)
	}
	refresh()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refresh()
		}
	}
}
