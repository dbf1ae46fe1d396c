package timescale

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/unnode001/basis-arbitrage-bot/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

const writeTimeout = 3 * time.Second

// Sample is one evaluation worth of market and portfolio observability data.
type Sample struct {
	Time         time.Time
	State        string
	Decision     string
	SpotBid      decimal.Decimal
	SpotAsk      decimal.Decimal
	FuturesBid   decimal.Decimal
	FuturesAsk   decimal.Decimal
	BasisPct     decimal.Decimal
	FundingPct   decimal.Decimal
	QuoteBalance decimal.Decimal
	BaseBalance  decimal.Decimal
}

type Writer struct {
	db      *sql.DB
	log     *zap.Logger
	schema  string
	samples chan Sample
	started atomic.Bool
	dropped atomic.Uint64
}

func New(cfg config.TimescaleConfig, log *zap.Logger) (*Writer, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("timescale dsn is required")
	}
	schema := strings.TrimSpace(cfg.Schema)
	if schema == "" {
		schema = "public"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	writer := &Writer{
		db:      db,
		log:     log,
		schema:  schema,
		samples: make(chan Sample, queueSize),
	}
	if err := writer.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return writer, nil
}

func (w *Writer) ensureSchema(ctx context.Context) error {
	_, err := w.db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.basis_samples (
		time TIMESTAMPTZ NOT NULL,
		state TEXT NOT NULL,
		decision TEXT NOT NULL,
		spot_bid NUMERIC NOT NULL,
		spot_ask NUMERIC NOT NULL,
		futures_bid NUMERIC NOT NULL,
		futures_ask NUMERIC NOT NULL,
		basis_pct NUMERIC NOT NULL,
		funding_pct NUMERIC NOT NULL,
		quote_balance NUMERIC NOT NULL,
		base_balance NUMERIC NOT NULL
	)`, w.schema))
	return err
}

// Start launches the background insert loop. It is safe to call on a nil
// writer (disabled config) and at most one loop runs.
func (w *Writer) Start(ctx context.Context) {
	if w == nil {
		return
	}
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	go w.loop(ctx)
}

func (w *Writer) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case sample := <-w.samples:
			if err := w.insert(sample); err != nil {
				w.log.Warn("timescale insert failed", zap.Error(err))
			}
		}
	}
}

func (w *Writer) insert(sample Sample) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	_, err := w.db.ExecContext(ctx, fmt.Sprintf(`INSERT INTO %s.basis_samples (
		time, state, decision, spot_bid, spot_ask, futures_bid, futures_ask,
		basis_pct, funding_pct, quote_balance, base_balance
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`, w.schema),
		sample.Time,
		sample.State,
		sample.Decision,
		sample.SpotBid.String(),
		sample.SpotAsk.String(),
		sample.FuturesBid.String(),
		sample.FuturesAsk.String(),
		sample.BasisPct.String(),
		sample.FundingPct.String(),
		sample.QuoteBalance.String(),
		sample.BaseBalance.String(),
	)
	return err
}

// Enqueue never blocks the decision path; samples are dropped when the
// queue is full.
func (w *Writer) Enqueue(sample Sample) {
	if w == nil {
		return
	}
	select {
	case w.samples <- sample:
	default:
		if w.dropped.Add(1)%100 == 1 {
			w.log.Warn("timescale queue full, dropping samples", zap.Uint64("dropped", w.dropped.Load()))
		}
	}
}

func (w *Writer) Dropped() uint64 {
	if w == nil {
		return 0
	}
	return w.dropped.Load()
}

func (w *Writer) Close() error {
	if w == nil {
		return nil
	}
	return w.db.Close()
}
