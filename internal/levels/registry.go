package levels

import (
	"sync"

	"LTPCoach/internal/domain/models"
	"LTPCoach/internal/indicators"
)

// Config tunes level construction.
type Config struct {
	OpeningRangeBars int // candles forming the opening range
	FastMA           int
	SlowMA           int
}

// DefaultConfig mirrors the tuned defaults of the original heuristic.
func DefaultConfig() Config {
	return Config{OpeningRangeBars: 6, FastMA: 8, SlowMA: 21}
}

// Registry holds the current key-level snapshot per symbol. Snapshots are
// replaced wholesale on refresh; levels are immutable once published.
type Registry struct {
	cfg Config

	mu     sync.RWMutex
	bySym  map[string][]models.KeyLevel
}

func NewRegistry(cfg Config) *Registry {
	if cfg.OpeningRangeBars <= 0 {
		cfg.OpeningRangeBars = 6
	}
	if cfg.FastMA <= 0 {
		cfg.FastMA = 8
	}
	if cfg.SlowMA <= 0 {
		cfg.SlowMA = 21
	}
	return &Registry{cfg: cfg, bySym: make(map[string][]models.KeyLevel)}
}

// Refresh rebuilds the level set for a symbol from intraday candles, the
// prior-day bar and longer-horizon extremes. Any input may be missing; the
// registry builds whatever it can.
func (r *Registry) Refresh(symbol string, intraday []models.Candle, priorDay *models.Candle, weekly, monthly []models.Candle) []models.KeyLevel {
	ls := r.build(symbol, intraday, priorDay, weekly, monthly)
	r.mu.Lock()
	r.bySym[symbol] = ls
	r.mu.Unlock()
	return ls
}

// Levels returns the current snapshot for a symbol, or nil.
func (r *Registry) Levels(symbol string) []models.KeyLevel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bySym[symbol]
}

// Drop removes a symbol's snapshot when it leaves the watchlist.
func (r *Registry) Drop(symbol string) {
	r.mu.Lock()
	delete(r.bySym, symbol)
	r.mu.Unlock()
}

func (r *Registry) build(symbol string, intraday []models.Candle, priorDay *models.Candle, weekly, monthly []models.Candle) []models.KeyLevel {
	ls := make([]models.KeyLevel, 0, 8)

	if priorDay != nil {
		ls = append(ls,
			models.KeyLevel{Type: models.LevelPriorDayHigh, Timeframe: "1d", Price: priorDay.High, Strength: 90},
			models.KeyLevel{Type: models.LevelPriorDayLow, Timeframe: "1d", Price: priorDay.Low, Strength: 90},
		)
	}

	if high, low, ok := indicators.OpeningRange(intraday, r.cfg.OpeningRangeBars); ok {
		ls = append(ls,
			models.KeyLevel{Type: models.LevelOpeningRange, Timeframe: "5m", Price: high, Strength: 75, Notes: "OR high"},
			models.KeyLevel{Type: models.LevelOpeningRange, Timeframe: "5m", Price: low, Strength: 75, Notes: "OR low"},
		)
	}

	closes := indicators.Closes(intraday)
	if fast := indicators.LastEMA(closes, r.cfg.FastMA); !isNaN(fast) {
		ls = append(ls, models.KeyLevel{Type: models.LevelMovingAverage, Timeframe: "5m", Price: fast, Strength: 60, Notes: "EMA fast"})
	}
	if slow := indicators.LastEMA(closes, r.cfg.SlowMA); !isNaN(slow) {
		ls = append(ls, models.KeyLevel{Type: models.LevelMovingAverage, Timeframe: "5m", Price: slow, Strength: 65, Notes: "EMA slow"})
	}

	if high, low, ok := extremes(weekly); ok {
		ls = append(ls,
			models.KeyLevel{Type: models.LevelWeeklyHigh, Timeframe: "1w", Price: high, Strength: 85},
			models.KeyLevel{Type: models.LevelWeeklyLow, Timeframe: "1w", Price: low, Strength: 85},
		)
	}
	if high, low, ok := extremes(monthly); ok {
		ls = append(ls,
			models.KeyLevel{Type: models.LevelMonthlyHigh, Timeframe: "1M", Price: high, Strength: 95},
			models.KeyLevel{Type: models.LevelMonthlyLow, Timeframe: "1M", Price: low, Strength: 95},
		)
	}

	return ls
}

// Nearest returns the closest level to price on the side matching direction:
// support below price for bullish candidates, resistance above for bearish.
// ok is false when no level exists on that side.
func Nearest(ls []models.KeyLevel, price float64, dir models.Direction) (models.KeyLevel, bool) {
	var best models.KeyLevel
	found := false
	for _, l := range ls {
		below := l.Price <= price
		if (dir == models.DirectionBullish) != below {
			continue
		}
		if !found || l.DistancePercent(price) < best.DistancePercent(price) {
			best = l
			found = true
		}
	}
	return best, found
}

// NearestAny returns the closest level to price on either side. Used for
// the level sub-score, where trading at a strong level counts regardless of
// which side price approached it from.
func NearestAny(ls []models.KeyLevel, price float64) (models.KeyLevel, bool) {
	var best models.KeyLevel
	found := false
	for _, l := range ls {
		if !found || l.DistancePercent(price) < best.DistancePercent(price) {
			best = l
			found = true
		}
	}
	return best, found
}

// StrongestOpposing returns the strongest level sitting between price and a
// candidate move in direction dir, within maxDistPct. Used for the
// resistance penalty.
func StrongestOpposing(ls []models.KeyLevel, price float64, dir models.Direction, maxDistPct float64) (models.KeyLevel, bool) {
	var best models.KeyLevel
	found := false
	for _, l := range ls {
		opposing := l.Price > price
		if dir == models.DirectionBearish {
			opposing = l.Price < price
		}
		if !opposing || l.DistancePercent(price) > maxDistPct {
			continue
		}
		if !found || l.Strength > best.Strength {
			best = l
			found = true
		}
	}
	return best, found
}

func extremes(candles []models.Candle) (high, low float64, ok bool) {
	if len(candles) == 0 {
		return 0, 0, false
	}
	high = candles[0].High
	low = candles[0].Low
	for _, c := range candles[1:] {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
	}
	return high, low, true
}

func isNaN(f float64) bool { return f != f }
