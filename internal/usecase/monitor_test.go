package usecase

import (
	"context"
	"testing"
	"time"

	"LTPCoach/internal/alerts"
	"LTPCoach/internal/domain/models"
	"LTPCoach/internal/fvg"
	"LTPCoach/internal/gamma"
	"LTPCoach/internal/levels"
	"LTPCoach/internal/lifecycle"
	"LTPCoach/internal/scoring"
	"LTPCoach/internal/stream"
)

type monitorFixture struct {
	monitor  *Monitor
	stream   *fakeStream
	data     *fakeData
	dispatch *stream.Dispatcher
}

func newMonitorFixture(t *testing.T) *monitorFixture {
	t.Helper()
	fs := newFakeStream()
	data := &fakeData{
		quote: &models.MarketQuote{Last: 100, Volume: 5e6},
		bars:  breakoutBars(),
	}
	dispatch := stream.NewDispatcher(stream.Config{QueueSize: 64, HeartbeatInterval: time.Hour}, nil)
	t.Cleanup(dispatch.Close)

	m := NewMonitor(DefaultMonitorConfig(), lifecycle.DefaultConfig(), MonitorDeps{
		Stream:     fs,
		Data:       data,
		Watchlist:  &fakeWatchlist{symbols: []string{"SYM"}},
		Metrics:    noopMetrics{},
		Log:        testLogger(t),
		Registry:   levels.NewRegistry(levels.DefaultConfig()),
		Gamma:      gamma.NewAnalyzer(gamma.DefaultConfig()),
		FVG:        fvg.NewDetector(0.1),
		Scorer:     scoring.NewScorer(scoring.DefaultProfile()),
		Dispatcher: dispatch,
		Trigger:    alerts.NewTrigger(30*time.Second, nil),
	})
	return &monitorFixture{monitor: m, stream: fs, data: data, dispatch: dispatch}
}

func awaitEvent(t *testing.T, sub *stream.Subscription, want models.EventType) models.StreamEvent {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-sub.Events():
			if ev.Type == want {
				return ev
			}
		case <-deadline:
			t.Fatalf("no %s event within 2s", want)
		}
	}
}

func TestMonitorPromotesBreakoutToReady(t *testing.T) {
	fx := newMonitorFixture(t)
	sub := fx.dispatch.Subscribe([]string{"SYM"})
	defer fx.dispatch.Unsubscribe(sub)

	if err := fx.monitor.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer fx.monitor.Stop()

	fx.stream.ticks <- &models.Tick{Symbol: "SYM", Price: 100, Volume: 10, Timestamp: time.Now().Unix()}

	awaitEvent(t, sub, models.EventSetupForming)
	ev := awaitEvent(t, sub, models.EventSetupReady)
	if ev.Setup == nil || ev.Setup.Stage != models.StageReady {
		t.Fatalf("ready event payload = %+v", ev.Setup)
	}
	if ev.Setup.Entry != 100 || ev.Setup.Stop >= 100 {
		t.Errorf("plan entry=%.2f stop=%.2f, want a stop below entry", ev.Setup.Entry, ev.Setup.Stop)
	}

	setups := fx.monitor.Setups("SYM", 0, 0)
	if len(setups) != 1 || setups[0].Stage != models.StageReady {
		t.Fatalf("tracked setups = %+v, want one ready", setups)
	}
}

func TestMonitorExpiresOnStopCross(t *testing.T) {
	fx := newMonitorFixture(t)
	sub := fx.dispatch.Subscribe([]string{"SYM"})
	defer fx.dispatch.Unsubscribe(sub)

	if err := fx.monitor.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer fx.monitor.Stop()

	fx.stream.ticks <- &models.Tick{Symbol: "SYM", Price: 100, Volume: 10, Timestamp: time.Now().Unix()}
	ev := awaitEvent(t, sub, models.EventSetupReady)

	fx.stream.ticks <- &models.Tick{Symbol: "SYM", Price: ev.Setup.Stop - 0.5, Volume: 10, Timestamp: time.Now().Unix()}
	expired := awaitEvent(t, sub, models.EventSetupExpired)
	if expired.Setup.Stage != models.StageExpired {
		t.Fatalf("expired payload stage = %s", expired.Setup.Stage)
	}
}

func TestMonitorSnapshotServesPollFallback(t *testing.T) {
	fx := newMonitorFixture(t)
	sub := fx.dispatch.Subscribe([]string{"SYM"})
	defer fx.dispatch.Unsubscribe(sub)

	if err := fx.monitor.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer fx.monitor.Stop()

	fx.stream.ticks <- &models.Tick{Symbol: "SYM", Price: 100, Volume: 10, Timestamp: time.Now().Unix()}
	awaitEvent(t, sub, models.EventPriceUpdate)

	snap, err := fx.monitor.Snapshot("sym")
	if err != nil {
		t.Fatal(err)
	}
	if snap.Quote.Last != 100 {
		t.Errorf("snapshot last = %.2f, want 100", snap.Quote.Last)
	}
	if snap.Score == nil {
		t.Error("snapshot carries no score after an evaluation")
	}
	if snap.Gamma == nil {
		t.Error("snapshot carries no gamma assessment after an evaluation")
	} else if snap.Gamma.Regime != models.RegimeNeutral {
		t.Errorf("gamma regime without options data = %s, want neutral", snap.Gamma.Regime)
	}
	// First six 5m bars of the fixture tape: highest high 92.05, lowest low 89.70.
	if snap.Quote.OpeningRangeHigh < 92.04 || snap.Quote.OpeningRangeHigh > 92.06 {
		t.Errorf("opening range high = %.2f, want ~92.05", snap.Quote.OpeningRangeHigh)
	}
	if snap.Quote.OpeningRangeLow < 89.69 || snap.Quote.OpeningRangeLow > 89.71 {
		t.Errorf("opening range low = %.2f, want ~89.70", snap.Quote.OpeningRangeLow)
	}

	if _, err := fx.monitor.Snapshot("UNKNOWN"); err == nil {
		t.Error("unknown symbol should return an error")
	}
}

func TestMonitorRemoveSymbolDropsState(t *testing.T) {
	fx := newMonitorFixture(t)
	sub := fx.dispatch.Subscribe([]string{"SYM"})
	defer fx.dispatch.Unsubscribe(sub)

	if err := fx.monitor.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer fx.monitor.Stop()

	fx.stream.ticks <- &models.Tick{Symbol: "SYM", Price: 100, Volume: 10, Timestamp: time.Now().Unix()}
	awaitEvent(t, sub, models.EventSetupReady)

	if err := fx.monitor.RemoveSymbol(context.Background(), "SYM"); err != nil {
		t.Fatal(err)
	}
	if setups := fx.monitor.Setups("SYM", 0, 0); len(setups) != 0 {
		t.Fatalf("setups after removal = %+v, want none", setups)
	}
	if _, err := fx.monitor.Snapshot("SYM"); err == nil {
		t.Error("snapshot should be gone after removal")
	}
}
