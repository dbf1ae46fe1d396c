package feed

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/unnode001/basis-arbitrage-bot/internal/feed/rest"
	"github.com/unnode001/basis-arbitrage-bot/internal/metrics"
)

// Poller drives the sink from periodic REST fetches of both venues.
type Poller struct {
	spot            *rest.Client
	futures         *rest.Client
	spotSymbol      string
	futuresSymbol   string
	pollInterval    time.Duration
	fundingInterval time.Duration
	sink            Sink
	metrics         *metrics.Metrics
	log             *zap.Logger
}

func NewPoller(spot, futures *rest.Client, spotSymbol, futuresSymbol string, pollInterval, fundingInterval time.Duration, sink Sink, m *metrics.Metrics, log *zap.Logger) *Poller {
	return &Poller{
		spot:            spot,
		futures:         futures,
		spotSymbol:      spotSymbol,
		futuresSymbol:   futuresSymbol,
		pollInterval:    pollInterval,
		fundingInterval: fundingInterval,
		sink:            sink,
		metrics:         m,
		log:             log,
	}
}

// Run blocks until ctx is cancelled. Each venue polls independently so a
// slow venue never stalls the other.
func (p *Poller) Run(ctx context.Context) error {
	go p.tickerLoop(ctx, "spot", func(ctx context.Context) error {
		bid, ask, err := p.spot.BookTicker(ctx, rest.SpotBookTickerPath, p.spotSymbol)
		if err != nil {
			return err
		}
		p.sink.OnSpotTicker(ctx, bid, ask)
		return nil
	})
	go p.tickerLoop(ctx, "futures", func(ctx context.Context) error {
		bid, ask, err := p.futures.BookTicker(ctx, rest.FuturesBookTickerPath, p.futuresSymbol)
		if err != nil {
			return err
		}
		p.sink.OnFuturesTicker(ctx, bid, ask)
		return nil
	})
	go fundingLoop(ctx, p.futures, p.futuresSymbol, p.fundingInterval, p.sink, p.metrics, p.log)
	<-ctx.Done()
	return ctx.Err()
}

func (p *Poller) tickerLoop(ctx context.Context, venue string, fetch func(context.Context) error) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := fetch(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				p.metrics.FeedErrors.Inc()
				p.log.Warn("ticker poll failed", zap.String("venue", venue), zap.Error(err))
			}
		}
	}
}
