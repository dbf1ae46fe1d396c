package market

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Quote is one venue's top of book, overwritten wholesale on every update.
type Quote struct {
	Bid decimal.Decimal
	Ask decimal.Decimal
	At  time.Time
}

// Store holds the latest spot quote, futures quote, and funding rate.
// Every field starts unknown; readers must skip evaluation until both
// venues and the funding rate have reported at least once.
type Store struct {
	log *zap.Logger

	mu         sync.RWMutex
	spot       Quote
	hasSpot    bool
	futures    Quote
	hasFutures bool
	funding    decimal.Decimal
	fundingAt  time.Time
	hasFunding bool
	rejected   uint64
}

func NewStore(log *zap.Logger) *Store {
	return &Store{log: log}
}

// UpdateSpot replaces the spot quote. A quote with a non-positive bid or
// ask is rejected and the last known quote is kept.
func (s *Store) UpdateSpot(bid, ask decimal.Decimal) bool {
	return s.updateQuote("spot", &s.spot, &s.hasSpot, bid, ask)
}

// UpdateFutures replaces the futures quote under the same validation rules.
func (s *Store) UpdateFutures(bid, ask decimal.Decimal) bool {
	return s.updateQuote("futures", &s.futures, &s.hasFutures, bid, ask)
}

func (s *Store) updateQuote(venue string, quote *Quote, known *bool, bid, ask decimal.Decimal) bool {
	if !bid.IsPositive() || !ask.IsPositive() {
		s.mu.Lock()
		s.rejected++
		s.mu.Unlock()
		s.log.Debug("rejected quote",
			zap.String("venue", venue),
			zap.String("bid", bid.String()),
			zap.String("ask", ask.String()),
		)
		return false
	}
	s.mu.Lock()
	*quote = Quote{Bid: bid, Ask: ask, At: time.Now().UTC()}
	*known = true
	s.mu.Unlock()
	return true
}

// UpdateFundingRate replaces the funding rate percentage. Any finite value
// is accepted; funding can legitimately be negative or zero.
func (s *Store) UpdateFundingRate(pct decimal.Decimal) bool {
	s.mu.Lock()
	s.funding = pct
	s.fundingAt = time.Now().UTC()
	s.hasFunding = true
	s.mu.Unlock()
	return true
}

func (s *Store) Spot() (Quote, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.spot, s.hasSpot
}

func (s *Store) Futures() (Quote, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.futures, s.hasFutures
}

func (s *Store) FundingRate() (decimal.Decimal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.funding, s.hasFunding
}

// Rejected reports how many quote updates failed validation.
func (s *Store) Rejected() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rejected
}

// Ages reports how long ago each component was refreshed. Components that
// have never been updated report zero.
func (s *Store) Ages(now time.Time) (spot, futures, funding time.Duration) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.hasSpot {
		spot = now.Sub(s.spot.At)
	}
	if s.hasFutures {
		futures = now.Sub(s.futures.At)
	}
	if s.hasFunding {
		funding = now.Sub(s.fundingAt)
	}
	return spot, futures, funding
}
