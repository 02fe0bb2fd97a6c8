//go:build wireinject
// +build wireinject

package di

import (
	"LTPCoach/pkg/config"
	"LTPCoach/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideRedisClient,

		// Repositories
		ProvideAuditStore,
		ProvideEventSink,
		ProvideWatchlist,

		// Market data
		ProvideMarketStream,
		ProvideMarketData,

		// Engine tuning
		ProvideLifecycleConfig,
		ProvideMonitorConfig,
		ProvideScorer,

		// Use cases
		ProvideDispatcher,
		ProvideTrigger,
		ProvideMonitor,
		ProvideAnalyzer,
		ProvideSessions,
		ProvideCoach,
		ProvideKafkaTicksHandler,

		// HTTP surface
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
