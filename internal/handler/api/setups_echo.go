package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"LTPCoach/internal/alerts"
	"LTPCoach/internal/coaching"
	models "LTPCoach/internal/domain/models"
	domrepo "LTPCoach/internal/domain/repository"
	"LTPCoach/internal/usecase"
	xhttp "LTPCoach/pkg/http"
	xlogger "LTPCoach/pkg/logger"
)

// SetupsEchoHandler exposes the engine over HTTP: setup listings, on-demand
// analysis, the poll-fallback snapshot, watchlist management, coaching
// sessions and the transition history.
type SetupsEchoHandler struct {
	logger   *xlogger.Logger
	monitor  *usecase.Monitor
	analyzer *usecase.Analyzer
	coach    *coaching.Engine
	sessions *coaching.Manager
	audit    domrepo.AuditStore
	trigger  *alerts.Trigger
	loc      *time.Location
}

func NewSetupsEchoHandler(
	logger *xlogger.Logger,
	monitor *usecase.Monitor,
	analyzer *usecase.Analyzer,
	coach *coaching.Engine,
	sessions *coaching.Manager,
	audit domrepo.AuditStore,
	trigger *alerts.Trigger,
) *SetupsEchoHandler {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	return &SetupsEchoHandler{
		logger:   logger,
		monitor:  monitor,
		analyzer: analyzer,
		coach:    coach,
		sessions: sessions,
		audit:    audit,
		trigger:  trigger,
		loc:      loc,
	}
}

func (h *SetupsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/setups", h.ListSetups)
	g.POST("/setups", h.Analyze)
	g.GET("/snapshot", h.Snapshot)
	g.GET("/history", h.History)

	g.GET("/watchlist", h.ListWatchlist)
	g.POST("/watchlist", h.AddToWatchlist)
	g.DELETE("/watchlist/:symbol", h.RemoveFromWatchlist)

	g.POST("/session", h.StartSession)
	g.DELETE("/session/:id", h.EndSession)
	g.GET("/coach", h.Coach)

	e.GET("/health", h.Health)
}

// ListSetups returns tracked setups filtered by symbol and score floor.
func (h *SetupsEchoHandler) ListSetups(c echo.Context) error {
	req := &models.ListSetupsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	setups := h.monitor.Setups(req.Symbol, req.MinScore, req.Limit)
	return xhttp.ListResponse(c, setups, int64(len(setups)))
}

// Analyze runs one synchronous scoring pass for any symbol, tracked or not.
// The result is a preview: it never enters the lifecycle engine.
func (h *SetupsEchoHandler) Analyze(c echo.Context) error {
	req := &models.AnalyzeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	setup, err := h.analyzer.AnalyzeNow(c.Request().Context(), req.Symbol, models.ScoreVariant(req.Variant))
	if err != nil {
		if errors.Is(err, domrepo.ErrDegraded) {
			h.logger.Warn("analyze degraded", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
			return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_DEGRADED", "", "market data unavailable", http.StatusServiceUnavailable).WithError(err))
		}
		h.logger.Error("analyze usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if setup == nil {
		// No data, or no setup above the forming floor. Not an error.
		return xhttp.SuccessResponse(c, nil)
	}
	return xhttp.SuccessResponse(c, setup)
}

// Snapshot serves the last evaluation of one symbol for clients polling
// instead of streaming.
func (h *SetupsEchoHandler) Snapshot(c echo.Context) error {
	req := &models.SnapshotRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	snap, err := h.monitor.Snapshot(req.Symbol)
	if err != nil {
		if errors.Is(err, domrepo.ErrNoData) {
			return xhttp.NotFoundResponse(c, "symbol not tracked or no evaluation yet")
		}
		h.logger.Error("snapshot error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, snap)
}

// History returns audited setup transitions for a symbol and time range.
func (h *SetupsEchoHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if h.audit == nil {
		return xhttp.NotFoundResponse(c, "history store not configured")
	}
	from, to, err := parseRange(req.From, req.To)
	if err != nil {
		return xhttp.BadRequestResponse(c, err.Error())
	}
	rows, err := h.audit.History(c.Request().Context(), req.Symbol, from, to, req.Limit)
	if err != nil {
		h.logger.Error("history query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *SetupsEchoHandler) ListWatchlist(c echo.Context) error {
	symbols, err := h.monitor.ListSymbols(c.Request().Context())
	if err != nil {
		h.logger.Error("watchlist list error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, symbols, int64(len(symbols)))
}

func (h *SetupsEchoHandler) AddToWatchlist(c echo.Context) error {
	req := &models.WatchlistAddRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.monitor.AddSymbol(c.Request().Context(), req.Symbol); err != nil {
		h.logger.Error("watchlist add error", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.CreatedResponse(c, models.NormalizeSymbol(req.Symbol))
}

func (h *SetupsEchoHandler) RemoveFromWatchlist(c echo.Context) error {
	symbol := c.Param("symbol")
	if symbol == "" {
		return xhttp.BadRequestResponse(c, "symbol required")
	}
	if err := h.monitor.RemoveSymbol(c.Request().Context(), symbol); err != nil {
		h.logger.Error("watchlist remove error", xlogger.String("symbol", symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.NoContentResponse(c)
}

// StartSession opens a coaching session. Declaring a trade puts the session
// straight into trade mode. Ending the session releases voice alert
// cooldowns so a fresh session starts clean.
func (h *SetupsEchoHandler) StartSession(c echo.Context) error {
	req := &models.SessionStartRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	var trade *models.ActiveTrade
	symbol := ""
	if req.Trade != nil {
		trade = &models.ActiveTrade{
			Symbol:       models.NormalizeSymbol(req.Trade.Symbol),
			Direction:    models.Direction(req.Trade.Direction),
			EntryPrice:   req.Trade.EntryPrice,
			StopLoss:     req.Trade.StopLoss,
			Target1:      req.Trade.Target1,
			Target2:      req.Trade.Target2,
			Target3:      req.Trade.Target3,
			PositionSize: req.Trade.PositionSize,
			EnteredAt:    time.Now(),
		}
		symbol = trade.Symbol
	}
	s := h.sessions.Start(symbol, models.CoachMode(req.Mode), trade)
	if h.trigger != nil {
		_ = h.sessions.Attach(s.ID, h.trigger.Reset)
	}
	return xhttp.CreatedResponse(c, map[string]interface{}{
		"session_id": s.ID,
		"mode":       s.Mode,
		"started_at": s.StartedAt,
	})
}

func (h *SetupsEchoHandler) EndSession(c echo.Context) error {
	id := c.Param("id")
	if err := h.sessions.End(id); err != nil {
		if errors.Is(err, coaching.ErrSessionNotFound) {
			return xhttp.NotFoundResponse(c, "session not found")
		}
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.NoContentResponse(c)
}

// Coach evaluates the rule engine against the symbol's current state merged
// with the session's mode and open trade.
func (h *SetupsEchoHandler) Coach(c echo.Context) error {
	req := &models.CoachRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	sess, err := h.sessions.Get(req.Session)
	if err != nil {
		return xhttp.NotFoundResponse(c, "session not found")
	}
	cctx, err := h.monitor.Context(req.Symbol, sess.Trade, sess.Mode, coaching.SessionFor(time.Now(), h.loc))
	if err != nil {
		if errors.Is(err, domrepo.ErrNoData) {
			return xhttp.NotFoundResponse(c, "symbol not tracked or no evaluation yet")
		}
		h.logger.Error("coach context error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	msgs := h.coach.Evaluate(cctx)
	return xhttp.SuccessResponse(c, msgs)
}

// Health reports stream connectivity and audit store reachability.
func (h *SetupsEchoHandler) Health(c echo.Context) error {
	status := map[string]string{"stream": "ok", "audit": "ok"}
	code := http.StatusOK
	if !h.monitor.IsConnected() {
		status["stream"] = "disconnected"
		code = http.StatusServiceUnavailable
	}
	if h.audit != nil {
		if err := h.audit.Health(c.Request().Context()); err != nil {
			status["audit"] = "unreachable"
			code = http.StatusServiceUnavailable
		}
	} else {
		status["audit"] = "disabled"
	}
	return c.JSON(code, status)
}

func parseRange(from, to string) (time.Time, time.Time, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -1)
	if from != "" {
		t, ok := xhttp.ParseTime(from)
		if !ok {
			return time.Time{}, time.Time{}, errors.New("from must be RFC3339 or unix seconds")
		}
		start = t
	}
	if to != "" {
		t, ok := xhttp.ParseTime(to)
		if !ok {
			return time.Time{}, time.Time{}, errors.New("to must be RFC3339 or unix seconds")
		}
		end = t
	}
	return start, end, nil
}
