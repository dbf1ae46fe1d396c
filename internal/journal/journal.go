package journal

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Trade is one completed simulated round trip. The journal is append-only
// audit data; it is never read back into live portfolio state.
type Trade struct {
	OpenedAt          time.Time
	ClosedAt          time.Time
	BaseAsset         string
	QuoteAsset        string
	Amount            decimal.Decimal
	EntrySpotPrice    decimal.Decimal
	EntryFuturesPrice decimal.Decimal
	ExitSpotPrice     decimal.Decimal
	ExitFuturesPrice  decimal.Decimal
	EntryBasisPct     decimal.Decimal
	TotalFees         decimal.Decimal
	NetPnL            decimal.Decimal
}

type Journal interface {
	Record(ctx context.Context, trade Trade) error
	Trades(ctx context.Context) ([]Trade, error)
	Close() error
}
