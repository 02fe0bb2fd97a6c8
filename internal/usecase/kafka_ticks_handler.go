package usecase

import (
	"context"
	"encoding/json"
	"time"

	"LTPCoach/internal/domain/models"
	domrepo "LTPCoach/internal/domain/repository"
	mid "LTPCoach/internal/middleware"
	pkgkafka "LTPCoach/pkg/kafka"
)

// KafkaTicksHandler feeds ticks mirrored on a Kafka topic into the
// evaluation loop. Deployments without direct provider access run the
// engine off another collector's tick stream this way.
type KafkaTicksHandler struct {
	topic   string
	proc    mid.TickProc
	metrics domrepo.Metrics
}

func NewKafkaTicksHandler(topic string, proc mid.TickProc, metrics domrepo.Metrics) *KafkaTicksHandler {
	return &KafkaTicksHandler{topic: topic, proc: proc, metrics: metrics}
}

func (h *KafkaTicksHandler) Topic() string { return h.topic }

// incoming message schema: {symbol, t, c, v, dp}
func (h *KafkaTicksHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Symbol string  `json:"symbol"`
		T      int64   `json:"t"`
		C      float64 `json:"c"`
		V      float64 `json:"v"`
		DP     float64 `json:"dp"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if m.T > 1e11 { // ms
		m.T = m.T / 1000
	}
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(time.Unix(m.T, 0)).Seconds())

	start := time.Now()
	err := h.proc.Process(ctx, &models.Tick{
		Symbol:        models.NormalizeSymbol(m.Symbol),
		Price:         m.C,
		ChangePercent: m.DP,
		Volume:        m.V,
		Timestamp:     m.T,
	})
	h.metrics.RecordLatency("evaluate_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_process")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaTicksHandler)(nil)
