package usecase

import (
	"context"
	"errors"
	"time"

	"LTPCoach/internal/domain/models"
	drepo "LTPCoach/internal/domain/repository"
	"LTPCoach/internal/fvg"
	"LTPCoach/internal/gamma"
	"LTPCoach/internal/indicators"
	"LTPCoach/internal/levels"
	"LTPCoach/internal/lifecycle"
	"LTPCoach/internal/scoring"
	"LTPCoach/pkg/logger"
)

// AnalyzerConfig tunes the on-demand path.
type AnalyzerConfig struct {
	Timeframe     drepo.Timeframe `yaml:"timeframe"`
	BarCount      int             `yaml:"bar_count"`
	FastMA        int             `yaml:"fast_ma"`
	SlowMA        int             `yaml:"slow_ma"`
	HigherTFLimit int             `yaml:"higher_tf_limit"`
	Timeout       time.Duration   `yaml:"timeout"`
}

func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		Timeframe:     drepo.DefaultTimeframe(),
		BarCount:      120,
		FastMA:        8,
		SlowMA:        21,
		HigherTFLimit: 2,
		Timeout:       10 * time.Second,
	}
}

// Analyzer answers ad-hoc "analyze this symbol now" requests outside the
// streaming loop. Results are previews: they never enter the lifecycle
// engine's tracking.
type Analyzer struct {
	cfg      AnalyzerConfig
	lcCfg    lifecycle.Config
	data     drepo.MarketData
	registry *levels.Registry
	scorer   *scoring.Scorer
	fvg      *fvg.Detector
	log      *logger.Logger
}

func NewAnalyzer(cfg AnalyzerConfig, lcCfg lifecycle.Config, data drepo.MarketData, registry *levels.Registry, scorer *scoring.Scorer, detector *fvg.Detector, log *logger.Logger) *Analyzer {
	if cfg.BarCount <= 0 {
		cfg = DefaultAnalyzerConfig()
	}
	return &Analyzer{cfg: cfg, lcCfg: lcCfg, data: data, registry: registry, scorer: scorer, fvg: detector, log: log}
}

// AnalyzeNow fetches a fresh view and runs one scoring pass. A symbol the
// provider knows nothing about returns (nil, nil); a preview setup comes
// back only when the score clears the forming floor. Identical underlying
// data always produces an identical result.
func (a *Analyzer) AnalyzeNow(ctx context.Context, symbol string, variant models.ScoreVariant) (*models.DetectedSetup, error) {
	symbol = models.NormalizeSymbol(symbol)
	if variant == "" {
		variant = models.VariantLTP2
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	quote, err := a.data.GetQuote(ctx, symbol)
	if errors.Is(err, drepo.ErrNoData) {
		return nil, nil // "try later", not a failure
	}
	if err != nil {
		return nil, err
	}

	intraday, err := a.data.GetBars(ctx, symbol, a.cfg.Timeframe, a.cfg.BarCount)
	if errors.Is(err, drepo.ErrNoData) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	view := marketView{price: quote.Last, intraday: intraday}

	view.higher = make(map[drepo.Timeframe][]models.Candle)
	for i, tf := range drepo.HigherTimeframes(a.cfg.Timeframe) {
		if i >= a.cfg.HigherTFLimit {
			break
		}
		if bars, err := a.data.GetBars(ctx, symbol, tf, a.cfg.SlowMA*2); err == nil {
			view.higher[tf] = bars
		}
	}

	daily, err := a.data.GetBars(ctx, symbol, drepo.TF1d, 40)
	var priorDay *models.Candle
	var weekly, monthly []models.Candle
	if err == nil && len(daily) >= 2 {
		pd := daily[len(daily)-2]
		priorDay = &pd
		if len(daily) > 5 {
			weekly = daily[len(daily)-6 : len(daily)-1]
		}
		if len(daily) > 21 {
			monthly = daily[len(daily)-22 : len(daily)-1]
		}
	}
	view.levels = a.registry.Refresh(symbol, intraday, priorDay, weekly, monthly)

	// Gamma is evaluated statelessly here: an ad-hoc request must not
	// disturb the streaming loop's edge detection.
	var g *models.GammaExposure
	if snap, err := a.data.GetOptionsSnapshot(ctx, symbol); err == nil && snap != nil {
		exp := gamma.Classify(gamma.DefaultConfig(), symbol, quote.Last, snap)
		g = &exp
	}

	pair := a.fvg.Scan(symbol, intraday, quote.Last)

	closes := indicators.Closes(intraday)
	dir := candidateDirection(indicators.LastEMA(closes, a.cfg.FastMA), indicators.LastEMA(closes, a.cfg.SlowMA))

	in := buildScoreInput(symbol, dir, variant, view, g, pair, a.cfg.FastMA, a.cfg.SlowMA)
	score := a.scorer.Score(in)
	if score.Total < a.lcCfg.FormingFloor {
		return nil, nil
	}

	primary, _ := scoring.PrimaryLevel(view.levels, quote.Last)
	setup := &models.DetectedSetup{
		Symbol:              symbol,
		Direction:           dir,
		Stage:               models.StageNone, // preview, never tracked
		Score:               score,
		PrimaryLevel:        primary,
		PatienceCandleCount: in.Patience.Count,
		DetectedAt:          time.Now(),
	}
	setup.Entry, setup.Stop, setup.Target1, setup.Target2, setup.Target3, setup.RiskReward = lifecycle.Plan(a.lcCfg, dir, quote.Last, primary)
	return setup, nil
}
