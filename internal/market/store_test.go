package market

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func TestStoreStartsUnknown(t *testing.T) {
	store := NewStore(zap.NewNop())
	if _, ok := store.Spot(); ok {
		t.Fatalf("spot must be unknown before first update")
	}
	if _, ok := store.Futures(); ok {
		t.Fatalf("futures must be unknown before first update")
	}
	if _, ok := store.FundingRate(); ok {
		t.Fatalf("funding must be unknown before first fetch")
	}
}

func TestStoreOverwritesWholesale(t *testing.T) {
	store := NewStore(zap.NewNop())
	if !store.UpdateSpot(decimal.NewFromInt(99), decimal.NewFromInt(100)) {
		t.Fatalf("valid quote rejected")
	}
	if !store.UpdateSpot(decimal.NewFromInt(101), decimal.NewFromInt(102)) {
		t.Fatalf("valid quote rejected")
	}
	quote, ok := store.Spot()
	if !ok {
		t.Fatalf("spot should be known")
	}
	if !quote.Bid.Equal(decimal.NewFromInt(101)) || !quote.Ask.Equal(decimal.NewFromInt(102)) {
		t.Fatalf("expected 101/102, got %s/%s", quote.Bid, quote.Ask)
	}
}

func TestStoreRejectsNonPositiveQuotes(t *testing.T) {
	store := NewStore(zap.NewNop())
	store.UpdateFutures(decimal.NewFromInt(100), decimal.NewFromInt(101))
	if store.UpdateFutures(decimal.Zero, decimal.NewFromInt(101)) {
		t.Fatalf("zero bid must be rejected")
	}
	if store.UpdateFutures(decimal.NewFromInt(100), decimal.NewFromInt(-1)) {
		t.Fatalf("negative ask must be rejected")
	}
	quote, ok := store.Futures()
	if !ok {
		t.Fatalf("futures should still be known")
	}
	if !quote.Bid.Equal(decimal.NewFromInt(100)) || !quote.Ask.Equal(decimal.NewFromInt(101)) {
		t.Fatalf("rejected update must keep last quote, got %s/%s", quote.Bid, quote.Ask)
	}
	if store.Rejected() != 2 {
		t.Fatalf("expected 2 rejections, got %d", store.Rejected())
	}
}

func TestStoreAcceptsNegativeFunding(t *testing.T) {
	store := NewStore(zap.NewNop())
	store.UpdateFundingRate(decimal.NewFromFloat(-0.01))
	rate, ok := store.FundingRate()
	if !ok {
		t.Fatalf("funding should be known")
	}
	if !rate.Equal(decimal.NewFromFloat(-0.01)) {
		t.Fatalf("expected -0.01, got %s", rate)
	}
}

func TestStoreAges(t *testing.T) {
	store := NewStore(zap.NewNop())
	store.UpdateSpot(decimal.NewFromInt(99), decimal.NewFromInt(100))
	spot, futures, _ := store.Ages(time.Now().UTC().Add(time.Minute))
	if spot < time.Minute {
		t.Fatalf("expected spot age >= 1m, got %v", spot)
	}
	if futures != 0 {
		t.Fatalf("unknown futures must report zero age, got %v", futures)
	}
}
