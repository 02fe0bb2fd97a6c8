package models

import "strings"

// Tick is one push-channel price update from the market-data provider.
type Tick struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	ChangePercent float64 `json:"change_percent"`
	Volume        float64 `json:"volume"`
	Timestamp     int64   `json:"timestamp"` // unix seconds
}

// MarketQuote is the latest known state of a symbol. Mutated on every tick;
// no history is retained here.
type MarketQuote struct {
	Symbol           string  `json:"symbol"`
	Last             float64 `json:"last"`
	ChangePercent    float64 `json:"change_percent"`
	Volume           float64 `json:"volume"`
	VWAP             float64 `json:"vwap"`
	OpeningRangeHigh float64 `json:"opening_range_high"`
	OpeningRangeLow  float64 `json:"opening_range_low"`
	UpdatedAt        int64   `json:"updated_at"` // unix seconds
}

// Candle is an OHLCV bar for a single timeframe.
type Candle struct {
	Symbol string  `json:"symbol"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
	Start  int64   `json:"start"` // unix seconds, bar open time
}

// NormalizeSymbol upper-cases and trims a ticker. All per-symbol maps key on
// the normalized form.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
