package feed

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/unnode001/basis-arbitrage-bot/internal/feed/rest"
	"github.com/unnode001/basis-arbitrage-bot/internal/feed/ws"
	"github.com/unnode001/basis-arbitrage-bot/internal/metrics"
)

// Streamer drives the sink from one websocket book-ticker stream per venue.
// Funding still refreshes over REST on its own timer; venues do not stream it
// at a useful cadence.
type Streamer struct {
	spotWS          *ws.Client
	futuresWS       *ws.Client
	futuresREST     *rest.Client
	futuresSymbol   string
	fundingInterval time.Duration
	sink            Sink
	metrics         *metrics.Metrics
	log             *zap.Logger
}

// StreamURL builds the single-stream endpoint for a venue's book ticker.
func StreamURL(wsBase, symbol string) string {
	return strings.TrimRight(wsBase, "/") + "/" + strings.ToLower(symbol) + "@bookTicker"
}

func NewStreamer(spotWS, futuresWS *ws.Client, futuresREST *rest.Client, futuresSymbol string, fundingInterval time.Duration, sink Sink, m *metrics.Metrics, log *zap.Logger) *Streamer {
	return &Streamer{
		spotWS:          spotWS,
		futuresWS:       futuresWS,
		futuresREST:     futuresREST,
		futuresSymbol:   futuresSymbol,
		fundingInterval: fundingInterval,
		sink:            sink,
		metrics:         m,
		log:             log,
	}
}

func (s *Streamer) Run(ctx context.Context) error {
	go s.runStream(ctx, s.spotWS, func(ctx context.Context, bid, ask decimal.Decimal) {
		s.sink.OnSpotTicker(ctx, bid, ask)
	})
	go s.runStream(ctx, s.futuresWS, func(ctx context.Context, bid, ask decimal.Decimal) {
		s.sink.OnFuturesTicker(ctx, bid, ask)
	})
	go fundingLoop(ctx, s.futuresREST, s.futuresSymbol, s.fundingInterval, s.sink, s.metrics, s.log)
	<-ctx.Done()
	return ctx.Err()
}

func (s *Streamer) runStream(ctx context.Context, client *ws.Client, deliver func(context.Context, decimal.Decimal, decimal.Decimal)) {
	err := client.Run(ctx, func(msg json.RawMessage) {
		bid, ask, ok := parseBookTicker(msg)
		if !ok {
			s.log.Debug("unparseable stream message", zap.ByteString("payload", msg))
			return
		}
		deliver(ctx, bid, ask)
	})
	if err != nil && ctx.Err() == nil {
		s.metrics.FeedErrors.Inc()
		s.log.Warn("stream terminated", zap.Error(err))
	}
}
