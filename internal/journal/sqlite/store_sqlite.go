package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"github.com/unnode001/basis-arbitrage-bot/internal/journal"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		opened_at TEXT NOT NULL,
		closed_at TEXT NOT NULL,
		base_asset TEXT NOT NULL,
		quote_asset TEXT NOT NULL,
		amount TEXT NOT NULL,
		entry_spot_price TEXT NOT NULL,
		entry_futures_price TEXT NOT NULL,
		exit_spot_price TEXT NOT NULL,
		exit_futures_price TEXT NOT NULL,
		entry_basis_pct TEXT NOT NULL,
		total_fees TEXT NOT NULL,
		net_pnl TEXT NOT NULL
	)`)
	return err
}

func (s *Store) Record(ctx context.Context, trade journal.Trade) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO trades (
			opened_at, closed_at, base_asset, quote_asset, amount,
			entry_spot_price, entry_futures_price, exit_spot_price,
			exit_futures_price, entry_basis_pct, total_fees, net_pnl
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		trade.OpenedAt.UTC().Format(time.RFC3339Nano),
		trade.ClosedAt.UTC().Format(time.RFC3339Nano),
		trade.BaseAsset,
		trade.QuoteAsset,
		trade.Amount.String(),
		trade.EntrySpotPrice.String(),
		trade.EntryFuturesPrice.String(),
		trade.ExitSpotPrice.String(),
		trade.ExitFuturesPrice.String(),
		trade.EntryBasisPct.String(),
		trade.TotalFees.String(),
		trade.NetPnL.String(),
	)
	return err
}

func (s *Store) Trades(ctx context.Context) ([]journal.Trade, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT opened_at, closed_at, base_asset, quote_asset, amount,
			entry_spot_price, entry_futures_price, exit_spot_price,
			exit_futures_price, entry_basis_pct, total_fees, net_pnl
		FROM trades ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []journal.Trade
	for rows.Next() {
		var openedAt, closedAt string
		var amount, entrySpot, entryFutures, exitSpot, exitFutures, basisPct, fees, pnl string
		var trade journal.Trade
		if err := rows.Scan(
			&openedAt, &closedAt, &trade.BaseAsset, &trade.QuoteAsset, &amount,
			&entrySpot, &entryFutures, &exitSpot, &exitFutures, &basisPct, &fees, &pnl,
		); err != nil {
			return nil, err
		}
		if trade.OpenedAt, err = time.Parse(time.RFC3339Nano, openedAt); err != nil {
			return nil, err
		}
		if trade.ClosedAt, err = time.Parse(time.RFC3339Nano, closedAt); err != nil {
			return nil, err
		}
		if trade.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		if trade.EntrySpotPrice, err = decimal.NewFromString(entrySpot); err != nil {
			return nil, err
		}
		if trade.EntryFuturesPrice, err = decimal.NewFromString(entryFutures); err != nil {
			return nil, err
		}
		if trade.ExitSpotPrice, err = decimal.NewFromString(exitSpot); err != nil {
			return nil, err
		}
		if trade.ExitFuturesPrice, err = decimal.NewFromString(exitFutures); err != nil {
			return nil, err
		}
		if trade.EntryBasisPct, err = decimal.NewFromString(basisPct); err != nil {
			return nil, err
		}
		if trade.TotalFees, err = decimal.NewFromString(fees); err != nil {
			return nil, err
		}
		if trade.NetPnL, err = decimal.NewFromString(pnl); err != nil {
			return nil, err
		}
		out = append(out, trade)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
