package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Endpoint paths, Binance-shaped. Spot and futures venues expose the same
// book-ticker payload under different prefixes.
const (
	SpotBookTickerPath    = "/api/v3/ticker/bookTicker"
	FuturesBookTickerPath = "/fapi/v1/ticker/bookTicker"
	PremiumIndexPath      = "/fapi/v1/premiumIndex"
)

type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

func New(baseURL string, timeout time.Duration, log *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

type bookTickerResponse struct {
	Symbol   string `json:"symbol"`
	BidPrice string `json:"bidPrice"`
	AskPrice string `json:"askPrice"`
}

type premiumIndexResponse struct {
	Symbol          string `json:"symbol"`
	LastFundingRate string `json:"lastFundingRate"`
	NextFundingTime int64  `json:"nextFundingTime"`
}

// BookTicker fetches the current top of book for symbol.
func (c *Client) BookTicker(ctx context.Context, path, symbol string) (bid, ask decimal.Decimal, err error) {
	var resp bookTickerResponse
	if err := c.get(ctx, path, url.Values{"symbol": []string{symbol}}, &resp); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	bid, err = decimal.NewFromString(resp.BidPrice)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("bad bid price %q: %w", resp.BidPrice, err)
	}
	ask, err = decimal.NewFromString(resp.AskPrice)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("bad ask price %q: %w", resp.AskPrice, err)
	}
	return bid, ask, nil
}

// FundingRate fetches the latest funding rate for symbol as a fraction
// (e.g. 0.0001 for one basis point), plus the next funding time.
func (c *Client) FundingRate(ctx context.Context, symbol string) (decimal.Decimal, time.Time, error) {
	var resp premiumIndexResponse
	if err := c.get(ctx, PremiumIndexPath, url.Values{"symbol": []string{symbol}}, &resp); err != nil {
		return decimal.Zero, time.Time{}, err
	}
	rate, err := decimal.NewFromString(resp.LastFundingRate)
	if err != nil {
		return decimal.Zero, time.Time{}, fmt.Errorf("bad funding rate %q: %w", resp.LastFundingRate, err)
	}
	var next time.Time
	if resp.NextFundingTime > 0 {
		next = time.UnixMilli(resp.NextFundingTime).UTC()
	}
	return rate, next, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("http %d: %s", resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
