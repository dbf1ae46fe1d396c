package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/unnode001/basis-arbitrage-bot/internal/alerts"
	"github.com/unnode001/basis-arbitrage-bot/internal/config"
	"github.com/unnode001/basis-arbitrage-bot/internal/feed"
	"github.com/unnode001/basis-arbitrage-bot/internal/feed/rest"
	"github.com/unnode001/basis-arbitrage-bot/internal/feed/ws"
	"github.com/unnode001/basis-arbitrage-bot/internal/journal/sqlite"
	"github.com/unnode001/basis-arbitrage-bot/internal/market"
	"github.com/unnode001/basis-arbitrage-bot/internal/metrics"
	"github.com/unnode001/basis-arbitrage-bot/internal/paper"
	"github.com/unnode001/basis-arbitrage-bot/internal/strategy"
	"github.com/unnode001/basis-arbitrage-bot/internal/timescale"
)

type runner interface {
	Run(ctx context.Context) error
}

type App struct {
	cfg         *config.Config
	log         *zap.Logger
	store       *market.Store
	ledger      *paper.Ledger
	engine      *Engine
	journal     *sqlite.Store
	samples     *timescale.Writer
	prom        *metrics.Prometheus
	spotREST    *rest.Client
	futuresREST *rest.Client
	driver      runner
}

func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Journal.SQLitePath), 0o755); err != nil {
		return nil, err
	}
	journalStore, err := sqlite.New(cfg.Journal.SQLitePath)
	if err != nil {
		return nil, err
	}
	samples, err := timescale.New(cfg.Timescale, log)
	if err != nil {
		_ = journalStore.Close()
		return nil, err
	}

	var prom *metrics.Prometheus
	m := metrics.NewNoop()
	if cfg.Metrics.Enabled {
		prom = metrics.NewPrometheus()
		m = prom.Metrics
	}

	store := market.NewStore(log)
	ledger := paper.NewLedger(
		cfg.Paper.QuoteAsset,
		cfg.Paper.BaseAsset,
		decimal.NewFromFloat(cfg.Paper.Notional),
		decimal.NewFromFloat(cfg.Fees.SpotTaker),
		decimal.NewFromFloat(cfg.Fees.FuturesTaker),
		initialBalances(cfg.Paper.InitialBalances),
	)
	params := strategy.Params{
		OpenThresholdPct:  decimal.NewFromFloat(cfg.Thresholds.OpenPercent),
		CloseThresholdPct: decimal.NewFromFloat(cfg.Thresholds.ClosePercent),
		MinFundingPct:     decimal.NewFromFloat(cfg.Thresholds.MinFundingPercent),
		SpotTakerFee:      decimal.NewFromFloat(cfg.Fees.SpotTaker),
		FuturesTakerFee:   decimal.NewFromFloat(cfg.Fees.FuturesTaker),
		FeeGate:           cfg.Thresholds.FeeGate,
	}
	engine := NewEngine(log, EngineOptions{
		Store:      store,
		Ledger:     ledger,
		Params:     params,
		Metrics:    m,
		Alerts:     alerts.NewTelegram(cfg.Telegram, log),
		Journal:    journalStore,
		Samples:    samples,
		BaseAsset:  cfg.Paper.BaseAsset,
		QuoteAsset: cfg.Paper.QuoteAsset,
		ShowQuotes: cfg.Feed.ShowUpdates,
	})

	spotREST := rest.New(cfg.Spot.RESTURL, cfg.Feed.Timeout, log)
	futuresREST := rest.New(cfg.Futures.RESTURL, cfg.Feed.Timeout, log)

	var driver runner
	switch cfg.Feed.Mode {
	case config.FeedModePoll:
		driver = feed.NewPoller(
			spotREST, futuresREST,
			cfg.Spot.Symbol, cfg.Futures.Symbol,
			cfg.Feed.PollInterval, cfg.Feed.FundingInterval,
			engine, m, log,
		)
	case config.FeedModeStream:
		spotWS := ws.New(feed.StreamURL(cfg.Spot.WSURL, cfg.Spot.Symbol), cfg.Feed.ReconnectDelay, cfg.Feed.PingInterval, log)
		futuresWS := ws.New(feed.StreamURL(cfg.Futures.WSURL, cfg.Futures.Symbol), cfg.Feed.ReconnectDelay, cfg.Feed.PingInterval, log)
		driver = feed.NewStreamer(
			spotWS, futuresWS, futuresREST,
			cfg.Futures.Symbol, cfg.Feed.FundingInterval,
			engine, m, log,
		)
	default:
		_ = journalStore.Close()
		return nil, fmt.Errorf("unknown feed mode %q", cfg.Feed.Mode)
	}

	return &App{
		cfg:         cfg,
		log:         log,
		store:       store,
		ledger:      ledger,
		engine:      engine,
		journal:     journalStore,
		samples:     samples,
		prom:        prom,
		spotREST:    spotREST,
		futuresREST: futuresREST,
		driver:      driver,
	}, nil
}

func initialBalances(balances map[string]float64) paper.Portfolio {
	out := make(paper.Portfolio, len(balances))
	for asset, balance := range balances {
		out[asset] = decimal.NewFromFloat(balance)
	}
	return out
}

func (a *App) Run(ctx context.Context) error {
	defer a.journal.Close()
	defer a.samples.Close()
	a.samples.Start(ctx)
	a.serveMetrics(ctx)

	if err := a.prime(ctx); err != nil {
		return fmt.Errorf("market initialization: %w", err)
	}
	a.log.Info("market data primed",
		zap.String("spot_symbol", a.cfg.Spot.Symbol),
		zap.String("futures_symbol", a.cfg.Futures.Symbol),
		zap.String("mode", a.cfg.Feed.Mode),
	)
	return a.driver.Run(ctx)
}

// prime performs one synchronous fetch of every market component so a
// misconfigured symbol or unreachable venue fails startup instead of being
// retried forever.
func (a *App) prime(ctx context.Context) error {
	bid, ask, err := a.spotREST.BookTicker(ctx, rest.SpotBookTickerPath, a.cfg.Spot.Symbol)
	if err != nil {
		return fmt.Errorf("spot ticker: %w", err)
	}
	a.engine.OnSpotTicker(ctx, bid, ask)

	bid, ask, err = a.futuresREST.BookTicker(ctx, rest.FuturesBookTickerPath, a.cfg.Futures.Symbol)
	if err != nil {
		return fmt.Errorf("futures ticker: %w", err)
	}
	a.engine.OnFuturesTicker(ctx, bid, ask)

	rate, _, err := a.futuresREST.FundingRate(ctx, a.cfg.Futures.Symbol)
	if err != nil {
		return fmt.Errorf("funding rate: %w", err)
	}
	a.engine.OnFundingRate(ctx, rate.Mul(decimal.NewFromInt(100)))
	return nil
}

func (a *App) serveMetrics(ctx context.Context) {
	if a.prom == nil {
		return
	}
	mux := http.NewServeMux()
	mux.Handle(a.cfg.Metrics.Path, a.prom.Handler())
	server := &http.Server{Addr: a.cfg.Metrics.Address, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Warn("metrics server failed", zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
}
