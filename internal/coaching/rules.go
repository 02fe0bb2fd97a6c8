package coaching

import (
	"fmt"

	"LTPCoach/internal/domain/models"
)

// Rule is one declarative predicate over a coaching context. Fire returns
// nil when the rule does not apply. Rules never keep state between calls;
// everything they need lives in the context.
type Rule struct {
	Name string
	Fire func(ctx models.CoachingContext) *models.CoachingMessage
}

// defaultRules is ordered roughly by priority for readability; the engine
// sorts by the Priority field, not by position.
func defaultRules() []Rule {
	return []Rule{
		{Name: "stop_at_risk", Fire: stopAtRisk},
		{Name: "take_partial", Fire: takePartial},
		{Name: "ready_entry", Fire: readyEntry},
		{Name: "opposing_wall", Fire: opposingWall},
		{Name: "sniper_grade", Fire: sniperGrade},
		{Name: "negative_gamma", Fire: negativeGamma},
		{Name: "setup_forming", Fire: setupForming},
		{Name: "fvg_magnet", Fire: fvgMagnet},
		{Name: "power_hour", Fire: powerHour},
		{Name: "weak_score", Fire: weakScore},
	}
}

// stopAtRisk warns when an open trade is within a quarter risk unit of its
// stop.
func stopAtRisk(ctx models.CoachingContext) *models.CoachingMessage {
	tr := ctx.Trade
	if tr == nil || ctx.CurrentPrice <= 0 {
		return nil
	}
	if tr.RMultiple(ctx.CurrentPrice) > -0.75 {
		return nil
	}
	return &models.CoachingMessage{
		Title:    "Stop at risk",
		Body:     fmt.Sprintf("%s is trading near your stop at %.2f. Honor the stop; do not widen it.", tr.Symbol, tr.StopLoss),
		Type:     models.MessageWarning,
		Priority: 95,
		Action:   "Review the position now",
	}
}

// takePartial suggests scaling out once an open trade clears two risk units.
func takePartial(ctx models.CoachingContext) *models.CoachingMessage {
	tr := ctx.Trade
	if tr == nil || ctx.CurrentPrice <= 0 {
		return nil
	}
	r := tr.RMultiple(ctx.CurrentPrice)
	if r < 2 {
		return nil
	}
	return &models.CoachingMessage{
		Title:    "Lock in gains",
		Body:     fmt.Sprintf("%s is up %.1fR. Consider taking partial size and trailing the stop to break even.", tr.Symbol, r),
		Type:     models.MessageTradeManagement,
		Priority: 85,
		Action:   "Scale out a partial",
	}
}

// readyEntry is the core opportunity call: a ready setup with at least two
// patience candles and no trade already open.
func readyEntry(ctx models.CoachingContext) *models.CoachingMessage {
	s := ctx.Setup
	if s == nil || s.Stage != models.StageReady || ctx.Trade != nil {
		return nil
	}
	if s.PatienceCandleCount < 2 {
		return nil
	}
	return &models.CoachingMessage{
		Title:    fmt.Sprintf("%s setup ready", s.Symbol),
		Body:     fmt.Sprintf("%s %s setup scoring %.0f with %d patience candles. Entry %.2f, stop %.2f, first target %.2f.", s.Symbol, s.Direction, s.Score.Total, s.PatienceCandleCount, s.Entry, s.Stop, s.Target1),
		Type:     models.MessageOpportunity,
		Priority: 90,
		Action:   fmt.Sprintf("Plan entry near %.2f", s.Entry),
	}
}

// opposingWall warns when the gamma wall on the far side of an open trade is
// in play.
func opposingWall(ctx models.CoachingContext) *models.CoachingMessage {
	tr := ctx.Trade
	g := ctx.Gamma
	if tr == nil || g == nil {
		return nil
	}
	blocked := tr.Direction == models.DirectionBullish && g.AtCallWall ||
		tr.Direction == models.DirectionBearish && g.AtPutWall
	if !blocked {
		return nil
	}
	wall := g.CallWall
	if tr.Direction == models.DirectionBearish {
		wall = g.PutWall
	}
	return &models.CoachingMessage{
		Title:    "Gamma wall ahead",
		Body:     fmt.Sprintf("%s is pressing into the dealer wall at %.2f, which opposes your position. Expect the move to stall there.", tr.Symbol, wall),
		Type:     models.MessageWarning,
		Priority: 80,
	}
}

// sniperGrade flags a top-grade score even before the lifecycle engine has
// promoted the setup.
func sniperGrade(ctx models.CoachingContext) *models.CoachingMessage {
	sc := ctx.Score
	if sc == nil || sc.Grade != models.GradeSniper {
		return nil
	}
	if ctx.Setup != nil && ctx.Setup.Stage == models.StageReady {
		return nil // readyEntry already covers it
	}
	return &models.CoachingMessage{
		Title:    fmt.Sprintf("%s grading sniper", sc.Symbol),
		Body:     fmt.Sprintf("Confluence at %.0f for the %s side. Watch for the setup to confirm.", sc.Total, sc.Direction),
		Type:     models.MessageOpportunity,
		Priority: 70,
	}
}

// negativeGamma cautions that moves amplify when dealers are short gamma.
func negativeGamma(ctx models.CoachingContext) *models.CoachingMessage {
	g := ctx.Gamma
	if g == nil || g.Regime != models.RegimeNegative {
		return nil
	}
	return &models.CoachingMessage{
		Title:    "Negative gamma regime",
		Body:     "Dealers are short gamma, so moves tend to extend rather than revert. Size down and expect wider swings.",
		Type:     models.MessageWarning,
		Priority: 60,
	}
}

// setupForming nudges patience while a setup is still building.
func setupForming(ctx models.CoachingContext) *models.CoachingMessage {
	s := ctx.Setup
	if s == nil || s.Stage != models.StageForming || ctx.Trade != nil {
		return nil
	}
	return &models.CoachingMessage{
		Title:    fmt.Sprintf("%s setup forming", s.Symbol),
		Body:     fmt.Sprintf("Score is %.0f and building. Let the patience candles print before committing.", s.Score.Total),
		Type:     models.MessageGuidance,
		Priority: 50,
	}
}

// fvgMagnet notes an unfilled gap within one percent of price.
func fvgMagnet(ctx models.CoachingContext) *models.CoachingMessage {
	if ctx.CurrentPrice <= 0 {
		return nil
	}
	zone := nearestZone(ctx.FVG, ctx.CurrentPrice)
	if zone == nil {
		return nil
	}
	dist := (zone.MidPrice - ctx.CurrentPrice) / ctx.CurrentPrice * 100
	if dist < 0 {
		dist = -dist
	}
	if dist > 1.0 {
		return nil
	}
	return &models.CoachingMessage{
		Title:    "Fair value gap nearby",
		Body:     fmt.Sprintf("An unfilled %s gap sits at %.2f-%.2f. Price tends to gravitate toward these zones.", zone.Direction, zone.BottomPrice, zone.TopPrice),
		Type:     models.MessageGuidance,
		Priority: 40,
	}
}

// powerHour reminds an open position holder about the late-day volatility
// window.
func powerHour(ctx models.CoachingContext) *models.CoachingMessage {
	if ctx.Session != models.SessionPowerHour || ctx.Trade == nil {
		return nil
	}
	return &models.CoachingMessage{
		Title:    "Power hour",
		Body:     "Last hour of the session. Decide now whether this position is a day trade to flatten or a hold through the close.",
		Type:     models.MessageGuidance,
		Priority: 30,
	}
}

// weakScore teaches the scoring factors while scanning with nothing going on.
func weakScore(ctx models.CoachingContext) *models.CoachingMessage {
	if ctx.Mode != models.ModeScan || ctx.Score == nil || ctx.Score.Grade != models.GradeWeak {
		return nil
	}
	return &models.CoachingMessage{
		Title:    "No edge here yet",
		Body:     fmt.Sprintf("%s scores %.0f. A tradable setup needs a key level, trend alignment and patience candles together; keep scanning.", ctx.Score.Symbol, ctx.Score.Total),
		Type:     models.MessageEducation,
		Priority: 20,
	}
}

func nearestZone(pair models.FVGPair, price float64) *models.FVGZone {
	b, s := pair.Bullish, pair.Bearish
	switch {
	case b == nil:
		return s
	case s == nil:
		return b
	}
	db := b.MidPrice - price
	if db < 0 {
		db = -db
	}
	ds := s.MidPrice - price
	if ds < 0 {
		ds = -ds
	}
	if db <= ds {
		return b
	}
	return s
}
