package models

// FVGZone is an unfilled price imbalance between non-overlapping candle
// ranges. At most one nearest zone per direction is retained per symbol;
// a zone is discarded once price trades through its full range.
type FVGZone struct {
	Symbol      string    `json:"symbol"`
	Direction   Direction `json:"direction"`
	TopPrice    float64   `json:"top_price"`
	BottomPrice float64   `json:"bottom_price"`
	MidPrice    float64   `json:"mid_price"`
	CreatedAt   int64     `json:"created_at"` // unix seconds of the middle candle
}

// Contains reports whether price sits inside the zone.
func (z FVGZone) Contains(price float64) bool {
	return price >= z.BottomPrice && price <= z.TopPrice
}

// FVGPair holds the nearest unfilled zone in each direction. Either side may
// be nil when no unfilled imbalance exists.
type FVGPair struct {
	Bullish *FVGZone `json:"bullish,omitempty"`
	Bearish *FVGZone `json:"bearish,omitempty"`
}
