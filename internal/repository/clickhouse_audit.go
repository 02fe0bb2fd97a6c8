package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"LTPCoach/internal/domain/models"
	domrepo "LTPCoach/internal/domain/repository"
	pkgch "LTPCoach/pkg/clickhouse"
	applogger "LTPCoach/pkg/logger"
)

// CHAuditStore implements AuditStore backed by ClickHouse. Every lifecycle
// transition appends one row; the newest row per setup wins on read.
type CHAuditStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHAuditStore(ch *pkgch.Client, table string) *CHAuditStore {
	if table == "" {
		table = "ltpcoach.setup_audit"
	}
	return &CHAuditStore{db: ch.DB(), table: table}
}

// SetLogger injects a structured logger.
func (s *CHAuditStore) SetLogger(l *applogger.Logger) { s.l = l }

// AuditSchema returns the idempotent DDL for the audit table, fed to
// clickhouse.Client.InitSchema at startup.
func AuditSchema() []string {
	return []string{
		`CREATE DATABASE IF NOT EXISTS ltpcoach`,
		`CREATE TABLE IF NOT EXISTS ltpcoach.setup_audit (
            recorded_at     DateTime64(3),
            symbol          LowCardinality(String),
            direction       LowCardinality(String),
            stage           LowCardinality(String),
            variant         LowCardinality(String),
            grade           LowCardinality(String),
            total           Float64,
            level_score     Float64,
            trend_score     Float64,
            patience_score  Float64,
            mtf_score       Float64,
            gamma_wall      Float64,
            gamma_regime    Float64,
            penalty         Float64,
            level_type      LowCardinality(String),
            level_price     Float64,
            entry           Float64,
            stop            Float64,
            target1         Float64,
            target2         Float64,
            target3         Float64,
            risk_reward     Float64,
            patience_count  UInt8,
            detected_at     DateTime64(3),
            ready_at        DateTime64(3),
            expired_at      DateTime64(3)
        ) ENGINE = MergeTree()
        PARTITION BY toYYYYMMDD(recorded_at)
        ORDER BY (symbol, recorded_at)
        TTL toDateTime(recorded_at) + INTERVAL 90 DAY`,
	}
}

func (s *CHAuditStore) Record(ctx context.Context, setup *models.DetectedSetup) error {
	if setup == nil || setup.Symbol == "" {
		return nil
	}
	start := time.Now()
	q := fmt.Sprintf(`INSERT INTO %s (
        recorded_at, symbol, direction, stage, variant, grade, total,
        level_score, trend_score, patience_score, mtf_score, gamma_wall,
        gamma_regime, penalty, level_type, level_price, entry, stop,
        target1, target2, target3, risk_reward, patience_count,
        detected_at, ready_at, expired_at
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table)

	_, err := s.db.ExecContext(ctx, q,
		time.Now().UTC(),
		setup.Symbol,
		string(setup.Direction),
		string(setup.Stage),
		string(setup.Score.Variant),
		string(setup.Score.Grade),
		setup.Score.Total,
		setup.Score.LevelScore,
		setup.Score.TrendScore,
		setup.Score.PatienceScore,
		setup.Score.MTFScore,
		setup.Score.GammaWallScore,
		setup.Score.GammaRegimeScore,
		setup.Score.ResistancePenalty,
		string(setup.PrimaryLevel.Type),
		setup.PrimaryLevel.Price,
		setup.Entry,
		setup.Stop,
		setup.Target1,
		setup.Target2,
		setup.Target3,
		setup.RiskReward,
		uint8(setup.PatienceCandleCount),
		setup.DetectedAt,
		setup.ReadyAt,
		setup.ExpiredAt,
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse audit insert error",
				applogger.String("symbol", setup.Symbol),
				applogger.String("stage", string(setup.Stage)),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("audit record: %w", err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse audit insert ok",
			applogger.String("symbol", setup.Symbol),
			applogger.String("stage", string(setup.Stage)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

func (s *CHAuditStore) History(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.DetectedSetup, error) {
	start := time.Now()
	symbol = models.NormalizeSymbol(symbol)
	if limit <= 0 {
		limit = 100
	}
	q := fmt.Sprintf(`
        SELECT symbol, direction, stage, variant, grade, total,
               level_score, trend_score, patience_score, mtf_score,
               gamma_wall, gamma_regime, penalty, level_type, level_price,
               entry, stop, target1, target2, target3, risk_reward,
               patience_count, detected_at, ready_at, expired_at
        FROM %s
        WHERE symbol = ? AND recorded_at >= ? AND recorded_at <= ?
        ORDER BY recorded_at DESC
        LIMIT ?`, s.table)

	rows, err := s.db.QueryContext(ctx, q, symbol, from, to, limit)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse audit history query error",
				applogger.String("symbol", symbol),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("audit history: %w", err)
	}
	defer rows.Close()

	out := make([]*models.DetectedSetup, 0, limit)
	for rows.Next() {
		var (
			setup    models.DetectedSetup
			patience uint8
		)
		if err := rows.Scan(
			&setup.Symbol,
			(*string)(&setup.Direction),
			(*string)(&setup.Stage),
			(*string)(&setup.Score.Variant),
			(*string)(&setup.Score.Grade),
			&setup.Score.Total,
			&setup.Score.LevelScore,
			&setup.Score.TrendScore,
			&setup.Score.PatienceScore,
			&setup.Score.MTFScore,
			&setup.Score.GammaWallScore,
			&setup.Score.GammaRegimeScore,
			&setup.Score.ResistancePenalty,
			(*string)(&setup.PrimaryLevel.Type),
			&setup.PrimaryLevel.Price,
			&setup.Entry,
			&setup.Stop,
			&setup.Target1,
			&setup.Target2,
			&setup.Target3,
			&setup.RiskReward,
			&patience,
			&setup.DetectedAt,
			&setup.ReadyAt,
			&setup.ExpiredAt,
		); err != nil {
			return nil, fmt.Errorf("audit scan: %w", err)
		}
		setup.Score.Symbol = setup.Symbol
		setup.Score.Direction = setup.Direction
		setup.PatienceCandleCount = int(patience)
		out = append(out, &setup)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit rows: %w", err)
	}
	if s.l != nil {
		s.l.Info("clickhouse audit history ok",
			applogger.String("symbol", symbol),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *CHAuditStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CHAuditStore) Close() error {
	return nil // pool is owned by pkg/clickhouse
}

var _ domrepo.AuditStore = (*CHAuditStore)(nil)
