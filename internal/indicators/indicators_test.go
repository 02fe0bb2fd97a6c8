package indicators

import (
	"math"
	"testing"

	"LTPCoach/internal/domain/models"
)

func TestEMAWarmup(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	out := EMA(x, 3)
	if len(out) != len(x) {
		t.Fatalf("length mismatch: %d", len(out))
	}
	if !math.IsNaN(out[0]) || !math.IsNaN(out[1]) {
		t.Fatalf("expected NaN warmup, got %v %v", out[0], out[1])
	}
	// seed is SMA(3) = 2
	if out[2] != 2 {
		t.Fatalf("expected seed 2, got %v", out[2])
	}
}

func TestEMAInsufficientHistory(t *testing.T) {
	out := EMA([]float64{1, 2}, 5)
	for i, v := range out {
		if !math.IsNaN(v) {
			t.Fatalf("index %d: expected NaN, got %v", i, v)
		}
	}
}

func TestSessionVWAP(t *testing.T) {
	candles := []models.Candle{
		{High: 102, Low: 98, Close: 100, Volume: 10},
		{High: 104, Low: 100, Close: 102, Volume: 10},
	}
	got := SessionVWAP(candles)
	want := (100.0*10 + 102.0*10) / 20
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("vwap = %v, want %v", got, want)
	}
}

func TestSessionVWAPZeroVolume(t *testing.T) {
	if !math.IsNaN(SessionVWAP([]models.Candle{{High: 1, Low: 1, Close: 1}})) {
		t.Fatalf("expected NaN for zero volume")
	}
}

func TestVWAPDeviation(t *testing.T) {
	cases := []struct {
		price, vwap, want float64
	}{
		{101, 100, 1},
		{99, 100, -1},
		{100, 100, 0},
		{100, 0, 0},
		{100, math.NaN(), 0},
	}
	for _, c := range cases {
		if got := VWAPDeviation(c.price, c.vwap); math.Abs(got-c.want) > 1e-9 {
			t.Errorf("VWAPDeviation(%v, %v) = %v, want %v", c.price, c.vwap, got, c.want)
		}
	}
}

func TestIsInsideBar(t *testing.T) {
	mother := models.Candle{High: 110, Low: 100}
	tests := []struct {
		name string
		cur  models.Candle
		want bool
	}{
		{"contained", models.Candle{High: 108, Low: 102}, true},
		{"equal range", models.Candle{High: 110, Low: 100}, true},
		{"breaks high", models.Candle{High: 111, Low: 102}, false},
		{"breaks low", models.Candle{High: 108, Low: 99}, false},
	}
	for _, tc := range tests {
		if got := IsInsideBar(mother, tc.cur); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestPatienceRun(t *testing.T) {
	candles := []models.Candle{
		{High: 120, Low: 90},
		{High: 115, Low: 95},
		{High: 112, Low: 98},
		{High: 110, Low: 100},
	}
	if got := PatienceRun(candles); got != 3 {
		t.Fatalf("run = %d, want 3", got)
	}
	// latest candle breaks out: run resets
	candles = append(candles, models.Candle{High: 125, Low: 101})
	if got := PatienceRun(candles); got != 0 {
		t.Fatalf("run after breakout = %d, want 0", got)
	}
}

func TestInsideBarBias(t *testing.T) {
	mother := models.Candle{High: 110, Low: 100}
	if InsideBarBias(mother, models.Candle{Close: 108}) != models.DirectionBullish {
		t.Fatalf("upper-half close should lean bullish")
	}
	if InsideBarBias(mother, models.Candle{Close: 101}) != models.DirectionBearish {
		t.Fatalf("lower-half close should lean bearish")
	}
}

func TestOpeningRange(t *testing.T) {
	candles := []models.Candle{
		{High: 101, Low: 99},
		{High: 103, Low: 98},
		{High: 102, Low: 100},
	}
	high, low, ok := OpeningRange(candles, 2)
	if !ok {
		t.Fatalf("expected ok")
	}
	if high != 103 || low != 98 {
		t.Fatalf("range = %v/%v, want 103/98", high, low)
	}
	if _, _, ok := OpeningRange(candles, 5); ok {
		t.Fatalf("expected not ok with insufficient candles")
	}
}
