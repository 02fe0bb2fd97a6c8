package fvg

import (
	"testing"

	"LTPCoach/internal/domain/models"
)

func TestScanFindsBullishGap(t *testing.T) {
	d := NewDetector(0.1)
	candles := []models.Candle{
		{Open: 95, High: 100, Low: 94, Close: 98, Start: 1000},
		{Open: 98, High: 105, Low: 97, Close: 104, Start: 1060},
		{Open: 104, High: 108, Low: 101, Close: 106, Start: 1120},
	}
	pair := d.Scan("SPY", candles, 106)
	if pair.Bullish == nil {
		t.Fatalf("expected bullish zone")
	}
	if pair.Bullish.BottomPrice != 100 || pair.Bullish.TopPrice != 101 {
		t.Fatalf("zone = %v-%v, want 100-101", pair.Bullish.BottomPrice, pair.Bullish.TopPrice)
	}
	if pair.Bullish.MidPrice != 100.5 {
		t.Fatalf("mid = %v, want 100.5", pair.Bullish.MidPrice)
	}
	if pair.Bearish != nil {
		t.Fatalf("no bearish zone expected")
	}
}

func TestScanFindsBearishGap(t *testing.T) {
	d := NewDetector(0.1)
	candles := []models.Candle{
		{Open: 105, High: 106, Low: 100, Close: 102, Start: 1000},
		{Open: 102, High: 103, Low: 95, Close: 96, Start: 1060},
		{Open: 96, High: 99, Low: 92, Close: 94, Start: 1120},
	}
	pair := d.Scan("SPY", candles, 94)
	if pair.Bearish == nil {
		t.Fatalf("expected bearish zone")
	}
	if pair.Bearish.BottomPrice != 99 || pair.Bearish.TopPrice != 100 {
		t.Fatalf("zone = %v-%v, want 99-100", pair.Bearish.BottomPrice, pair.Bearish.TopPrice)
	}
}

func TestOverlappingCandlesNoGap(t *testing.T) {
	d := NewDetector(0.1)
	candles := []models.Candle{
		{High: 101, Low: 99, Start: 1},
		{High: 102, Low: 100, Start: 2},
		{High: 103, Low: 100.5, Start: 3},
	}
	pair := d.Scan("SPY", candles, 102)
	if pair.Bullish != nil || pair.Bearish != nil {
		t.Fatalf("overlapping candles must not create zones")
	}
}

func TestTinyGapIgnored(t *testing.T) {
	d := NewDetector(0.5)
	candles := []models.Candle{
		{High: 100, Low: 99, Start: 1},
		{High: 100.4, Low: 99.8, Start: 2},
		{High: 100.6, Low: 100.1, Start: 3}, // 0.1% gap, below the 0.5% floor
	}
	pair := d.Scan("SPY", candles, 100.5)
	if pair.Bullish != nil {
		t.Fatalf("gap below the minimum size should be ignored")
	}
}

func TestFilledZoneDiscarded(t *testing.T) {
	d := NewDetector(0.1)
	candles := []models.Candle{
		{Open: 95, High: 100, Low: 94, Close: 98, Start: 1000},
		{Open: 98, High: 105, Low: 97, Close: 104, Start: 1060},
		{Open: 104, High: 108, Low: 101, Close: 106, Start: 1120},
		// trades back down through the whole 100-101 zone
		{Open: 106, High: 106, Low: 99, Close: 99.5, Start: 1180},
	}
	pair := d.Scan("SPY", candles, 99.5)
	if pair.Bullish != nil {
		t.Fatalf("zone traded through should be discarded")
	}
}

func TestNearestZoneWins(t *testing.T) {
	d := NewDetector(0.1)
	candles := []models.Candle{
		// far bullish gap: 100-101
		{High: 100, Low: 94, Start: 1000},
		{High: 105, Low: 97, Start: 1060},
		{High: 108, Low: 101, Close: 106, Start: 1120},
		// nearer bullish gap: 108-109
		{High: 108, Low: 102, Start: 1180},
		{High: 112, Low: 107, Start: 1240},
		{High: 113, Low: 109, Close: 111, Start: 1300},
	}
	pair := d.Scan("SPY", candles, 111)
	if pair.Bullish == nil {
		t.Fatalf("expected a bullish zone")
	}
	if pair.Bullish.BottomPrice != 108 {
		t.Fatalf("nearest zone bottom = %v, want 108", pair.Bullish.BottomPrice)
	}
}

func TestInsufficientCandles(t *testing.T) {
	d := NewDetector(0.1)
	pair := d.Scan("SPY", []models.Candle{{High: 1, Low: 0}}, 1)
	if pair.Bullish != nil || pair.Bearish != nil {
		t.Fatalf("expected empty pair with <3 candles")
	}
}
